package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// ErrInvalidCursor is returned for any cursor this package did not produce.
var ErrInvalidCursor = errors.New("invalid cursor")

// Params is a page request: how many rows and where the previous page ended.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the keyset position of the last row on a page. Lists are always
// ordered newest first with the id as tie breaker.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit clamps limit into [1, MaxLimit], defaulting non-positive values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// EncodeCursor renders c as an opaque, URL-safe token.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token from EncodeCursor. A blank token means the first
// page and yields a nil cursor.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: parsed}, nil
}

// Keyset names the columns a list is ordered by.
type Keyset struct {
	TimeColumn string
	IDColumn   string
}

// Default is the keyset of tables ordered by created_at.
var Default = Keyset{TimeColumn: "created_at", IDColumn: "id"}

// Apply orders query newest first, seeks past c when set, and fetches one row
// beyond the page so Trim can tell whether another page exists.
func (k Keyset) Apply(query *gorm.DB, c *Cursor, limit int) *gorm.DB {
	if c != nil {
		query = query.Where(
			k.TimeColumn+" < ? OR ("+k.TimeColumn+" = ? AND "+k.IDColumn+" < ?)",
			c.CreatedAt, c.CreatedAt, c.ID,
		)
	}
	return query.
		Order(k.TimeColumn + " DESC, " + k.IDColumn + " DESC").
		Limit(NormalizeLimit(limit) + 1)
}

// Trim drops the lookahead row fetched by Apply and returns the cursor of the
// next page, or nil on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	n := NormalizeLimit(limit)
	if len(rows) <= n {
		return rows, nil
	}
	next := key(rows[n-1])
	return rows[:n], &next
}
