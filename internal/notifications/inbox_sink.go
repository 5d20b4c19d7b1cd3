package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/db/models"
)

// InboxSink stores every obligation as an in-app notification row.
type InboxSink struct {
	repo Repository
	now  func() time.Time
}

// NewInboxSink wires the inbox sink.
func NewInboxSink(repo Repository) (*InboxSink, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &InboxSink{repo: repo, now: time.Now}, nil
}

func (s *InboxSink) Deliver(ctx context.Context, obligations []Obligation) error {
	if len(obligations) == 0 {
		return nil
	}
	createdAt := s.now().UTC()
	rows := make([]models.Notification, 0, len(obligations))
	for _, o := range obligations {
		rows = append(rows, models.Notification{
			ID:            uuid.New(),
			RecipientID:   o.Recipient.ID,
			RecipientRole: o.Recipient.Role,
			Template:      o.Template,
			ReferenceID:   o.ReferenceID,
			CreatedAt:     createdAt,
		})
	}
	if err := s.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("store inbox notifications: %w", err)
	}
	return nil
}
