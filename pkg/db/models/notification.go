package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/enums"
)

// Notification is an in-app inbox entry. Admin queue entries use uuid.Nil as
// the recipient so every admin sees them.
type Notification struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RecipientID   uuid.UUID                  `gorm:"column:recipient_id;type:uuid;not null"`
	RecipientRole enums.ActorRole            `gorm:"column:recipient_role;type:text;not null"`
	Template      enums.NotificationTemplate `gorm:"column:template;type:text;not null"`
	ReferenceID   uuid.UUID                  `gorm:"column:reference_id;type:uuid;not null"`
	ReadAt        *time.Time                 `gorm:"column:read_at"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
