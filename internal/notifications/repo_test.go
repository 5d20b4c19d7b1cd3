package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
	"github.com/angelmondragon/escrowmarket/pkg/db/dbtest"
	"github.com/angelmondragon/escrowmarket/pkg/db/models"
	"github.com/angelmondragon/escrowmarket/pkg/enums"
	pkgerrors "github.com/angelmondragon/escrowmarket/pkg/errors"
)

func TestInboxRoundTrip(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	sink, err := NewInboxSink(repo)
	require.NoError(t, err)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	buyer := actor.Buyer{UserID: uuid.New()}
	other := actor.Buyer{UserID: uuid.New()}
	admin := actor.Admin{UserID: uuid.New()}
	ref := uuid.New()

	require.NoError(t, sink.Deliver(ctx, []Obligation{
		{Recipient: Recipient{ID: buyer.UserID, Role: enums.ActorRoleBuyer}, Template: enums.NotificationTemplateOrderPlaced, ReferenceID: ref},
		{Recipient: Recipient{ID: AdminQueueID, Role: enums.ActorRoleAdmin}, Template: enums.NotificationTemplateOrderPlaced, ReferenceID: ref},
	}))

	mine, err := svc.List(ctx, buyer, ListParams{})
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, ref, mine.Items[0].ReferenceID)

	theirs, err := svc.List(ctx, other, ListParams{})
	require.NoError(t, err)
	assert.Empty(t, theirs.Items)

	queue, err := svc.List(ctx, admin, ListParams{})
	require.NoError(t, err)
	require.Len(t, queue.Items, 1)

	err = svc.MarkRead(ctx, other, mine.Items[0].ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.MarkRead(ctx, buyer, mine.Items[0].ID))
	require.NoError(t, svc.MarkRead(ctx, buyer, mine.Items[0].ID))

	unread, err := svc.List(ctx, buyer, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestInboxPagination(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	merchant := actor.Merchant{MerchantID: uuid.New()}
	sink, err := NewInboxSink(repo)
	require.NoError(t, err)
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		sink.now = func() time.Time { return at }
		require.NoError(t, sink.Deliver(ctx, []Obligation{{
			Recipient:   Recipient{ID: merchant.MerchantID, Role: enums.ActorRoleMerchant},
			Template:    enums.NotificationTemplateUnitReleased,
			ReferenceID: uuid.New(),
		}}))
	}

	page, err := svc.List(ctx, merchant, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.Cursor)

	rest, err := svc.List(ctx, merchant, ListParams{Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.Cursor)
	assert.True(t, rest.Items[0].CreatedAt.Before(page.Items[1].CreatedAt))
}

func TestDeleteReadBeforeKeepsUnread(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	buyer := Recipient{ID: uuid.New(), Role: enums.ActorRoleBuyer}
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := []models.Notification{
		{ID: uuid.New(), RecipientID: buyer.ID, RecipientRole: buyer.Role, Template: enums.NotificationTemplateOrderPlaced, ReferenceID: uuid.New(), CreatedAt: old},
		{ID: uuid.New(), RecipientID: buyer.ID, RecipientRole: buyer.Role, Template: enums.NotificationTemplateOrderVerified, ReferenceID: uuid.New(), CreatedAt: old},
	}
	require.NoError(t, repo.CreateBatch(ctx, rows))
	_, err := repo.MarkRead(ctx, buyer, rows[0].ID, old)
	require.NoError(t, err)

	deleted, err := repo.DeleteReadBefore(ctx, old.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	left, _, err := repo.List(ctx, listNotificationsParams{Recipient: buyer, Limit: 10})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, rows[1].ID, left[0].ID)
}
