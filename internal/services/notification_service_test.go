package services

import (
	"context"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/models"
	"github.com/ahmetcoskunkizilkaya/complaint-portal/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyCreated_FansOutToCategoryStaff(t *testing.T) {
	e := newEnv(t)
	owner := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	ravi := testutil.CreateUser(t, e.db, "Ravi", models.RoleDepartment, "Canteen")
	meera := testutil.CreateUser(t, e.db, "Meera", models.RoleDepartment, "Canteen")
	sam := testutil.CreateUser(t, e.db, "Sam", models.RoleDepartment, "Sports")
	admin := testutil.CreateUser(t, e.db, "Root", models.RoleAdmin, "")

	c := e.submit(t, owner, "Canteen", "Cold food", false)

	for _, u := range []models.User{ravi, meera} {
		got := e.notifications(t, u)
		require.Len(t, got, 1, u.Name)
		assert.Equal(t, models.NotificationNewComplaint, got[0].Kind)
		assert.Equal(t, "New complaint: Cold food", got[0].Message)
		assert.Equal(t, c.ID, *got[0].ComplaintID)
		assert.False(t, got[0].Read)
	}
	for _, u := range []models.User{sam, admin, owner} {
		assert.Empty(t, e.notifications(t, u), u.Name)
	}
}

func TestNotifyCreated_NoStaff(t *testing.T) {
	e := newEnv(t)

	n, err := e.notifier.NotifyCreated(context.Background(), &models.Complaint{ID: uuid.New(), Category: "Others", Title: "x"})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotifications_ReadSide(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	other := testutil.CreateUser(t, e.db, "Ben", models.RoleStudent, "")

	complaint := &models.Complaint{ID: uuid.New(), SubmitterID: user.ID}
	for i := 0; i < NotificationListLimit+5; i++ {
		e.clock.Advance(time.Second)
		require.NoError(t, e.notifier.NotifyTransition(ctx, complaint, models.StatusPending, models.StatusInProgress))
	}

	list, err := e.notifier.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, list.Notifications, NotificationListLimit)
	assert.Equal(t, int64(NotificationListLimit+5), list.UnreadCount)
	assert.True(t, list.Notifications[0].CreatedAt.After(list.Notifications[1].CreatedAt))

	target := list.Notifications[0]
	_, err = e.notifier.MarkRead(ctx, other.ID, target.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	read, err := e.notifier.MarkRead(ctx, user.ID, target.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	list, err = e.notifier.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(NotificationListLimit+4), list.UnreadCount)

	updated, err := e.notifier.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(NotificationListLimit+4), updated)

	list, err = e.notifier.ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, list.UnreadCount)

	empty, err := e.notifier.ListForUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Notifications)
}

func TestNotifyTransition_EscalationKind(t *testing.T) {
	e := newEnv(t)
	user := testutil.CreateUser(t, e.db, "Asha", models.RoleStudent, "")
	complaint := &models.Complaint{ID: uuid.New(), SubmitterID: user.ID}

	require.NoError(t, e.notifier.NotifyTransition(context.Background(), complaint, models.StatusPending, models.StatusEscalated))

	got := e.notifications(t, user)
	require.Len(t, got, 1)
	assert.Equal(t, models.NotificationEscalation, got[0].Kind)
	assert.Equal(t, "Your complaint has been escalated due to delayed resolution", got[0].Message)
}
