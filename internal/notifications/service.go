package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	"github.com/angelmondragon/escrowmarket/pkg/pagination"
)

// Service defines inbox list/read operations for the calling actor.
type Service interface {
	List(ctx context.Context, caller actor.Actor, params ListParams) (*ListResult, error)
	MarkRead(ctx context.Context, caller actor.Actor, notificationID uuid.UUID) error
}

type service struct {
	repo Repository
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Limit      int
	Cursor     string
	UnreadOnly bool
}

// ListResult wraps returned notifications and the cursor for the next page.
type ListResult struct {
	Items  []models.Notification `json:"items"`
	Cursor string                `json:"cursor,omitempty"`
}

// NewService wires notifications dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	return &service{repo: repo}, nil
}

func recipientFor(caller actor.Actor) (Recipient, error) {
	switch caller.(type) {
	case actor.Buyer, actor.Merchant, actor.Admin:
		return Recipient{ID: caller.ID(), Role: caller.Role()}, nil
	case nil:
		return Recipient{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller identity required")
	default:
		return Recipient{}, pkgerrors.New(pkgerrors.CodeForbidden, "actor has no inbox")
	}
}

func (s *service) List(ctx context.Context, caller actor.Actor, params ListParams) (*ListResult, error) {
	recipient, err := recipientFor(caller)
	if err != nil {
		return nil, err
	}

	query := listNotificationsParams{
		Recipient:  recipient,
		Limit:      params.Limit,
		UnreadOnly: params.UnreadOnly,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}

	return &ListResult{
		Items:  rows,
		Cursor: cursor,
	}, nil
}

func (s *service) MarkRead(ctx context.Context, caller actor.Actor, notificationID uuid.UUID) error {
	recipient, err := recipientFor(caller)
	if err != nil {
		return err
	}
	if notificationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	result, err := s.repo.MarkRead(ctx, recipient, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if !result.Found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}
