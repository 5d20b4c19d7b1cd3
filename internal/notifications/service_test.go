package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
	paginationpkg "github.com/angelmondragon/escrowmarket/pkg/pagination"
)

type fakeRepository struct {
	created    []models.Notification
	createErr  error
	listFn     func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error)
	markReadFn func(ctx context.Context, recipient Recipient, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) CreateBatch(ctx context.Context, rows []models.Notification) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rows...)
	return nil
}

func (f *fakeRepository) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (f *fakeRepository) MarkRead(ctx context.Context, recipient Recipient, notificationID uuid.UUID, now time.Time) (notificationMarkResult, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, recipient, notificationID, now)
	}
	return notificationMarkResult{}, nil
}

func (f *fakeRepository) DeleteReadBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func newServiceWithRepo(repo Repository) Service {
	svc, _ := NewService(repo)
	return svc
}

func TestService_ListNotifications(t *testing.T) {
	buyer := actor.Buyer{UserID: uuid.New()}
	first := models.Notification{ID: uuid.New(), CreatedAt: time.Now().Add(-time.Hour)}

	repo := &fakeRepository{
		listFn: func(ctx context.Context, params listNotificationsParams) ([]models.Notification, *paginationpkg.Cursor, error) {
			if params.Limit != 1 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			if params.Recipient.ID != buyer.UserID || params.Recipient.Role != enums.ActorRoleBuyer {
				t.Fatalf("unexpected recipient %+v", params.Recipient)
			}
			return []models.Notification{first}, &paginationpkg.Cursor{CreatedAt: first.CreatedAt, ID: first.ID}, nil
		},
	}

	svc := newServiceWithRepo(repo)
	result, err := svc.List(context.Background(), buyer, ListParams{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(result.Items))
	}
	decoded, err := paginationpkg.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("unexpected cursor decode error: %v", err)
	}
	if decoded.ID != first.ID {
		t.Fatalf("cursor should point at last returned row")
	}
}

func TestService_ListRejectsSystemActor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), actor.System{Name: "cron"}, ListParams{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	_, err = svc.List(context.Background(), nil, ListParams{})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestService_ListInvalidCursor(t *testing.T) {
	svc := newServiceWithRepo(&fakeRepository{})
	_, err := svc.List(context.Background(), actor.Admin{UserID: uuid.New()}, ListParams{Cursor: "not-base64!"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestService_MarkRead(t *testing.T) {
	merchant := actor.Merchant{MerchantID: uuid.New()}
	notificationID := uuid.New()

	repo := &fakeRepository{
		markReadFn: func(ctx context.Context, recipient Recipient, id uuid.UUID, now time.Time) (notificationMarkResult, error) {
			if recipient.ID != merchant.MerchantID || id != notificationID {
				t.Fatalf("unexpected mark read args %+v %s", recipient, id)
			}
			return notificationMarkResult{Found: true, Updated: true}, nil
		},
	}
	if err := newServiceWithRepo(repo).MarkRead(context.Background(), merchant, notificationID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.markReadFn = func(context.Context, Recipient, uuid.UUID, time.Time) (notificationMarkResult, error) {
		return notificationMarkResult{}, nil
	}
	err := newServiceWithRepo(repo).MarkRead(context.Background(), merchant, notificationID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	repo.markReadFn = func(context.Context, Recipient, uuid.UUID, time.Time) (notificationMarkResult, error) {
		return notificationMarkResult{}, errors.New("db down")
	}
	err = newServiceWithRepo(repo).MarkRead(context.Background(), merchant, notificationID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
