package authorization

import (
	"context"
	"testing"

	"github.com/smallbiznis/guestlist/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupAuthorization(t *testing.T) Service {
	t.Helper()
	db := dbtest.Open(t)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAdminMayDoEverything(t *testing.T) {
	svc := setupAuthorization(t)
	admin := Actor{AccountID: "acct-admin", Role: RoleAdmin}

	assert.NoError(t, svc.Authorize(context.Background(), admin, ObjectGuest, ActionGuestOverride))
	assert.NoError(t, svc.Authorize(context.Background(), admin, ObjectReminder, ActionReminderSend))
	assert.NoError(t, svc.Authorize(context.Background(), admin, ObjectTransport, ActionTransportManage))
}

func TestGuestIsLimitedToSelfService(t *testing.T) {
	svc := setupAuthorization(t)
	guest := Actor{AccountID: "acct-1", Role: RoleGuest}
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, guest, ObjectGuest, ActionGuestRespond))
	assert.NoError(t, svc.Authorize(ctx, guest, ObjectBooking, ActionBookingCreate))
	assert.NoError(t, svc.Authorize(ctx, guest, ObjectCarpool, ActionCarpoolJoin))

	assert.ErrorIs(t, svc.Authorize(ctx, guest, ObjectGuest, ActionGuestOverride), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, guest, ObjectDirectory, ActionDirectoryView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, guest, ObjectTransport, ActionTransportManage), ErrForbidden)
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := setupAuthorization(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, Actor{AccountID: "acct-2", Role: RoleAdmin}, ObjectDirectory, ActionDirectoryView))
	assert.ErrorIs(t,
		svc.Authorize(ctx, Actor{AccountID: "acct-2", Role: RoleGuest}, ObjectDirectory, ActionDirectoryView),
		ErrForbidden,
	)
}

func TestAuthorizeRejectsIncompleteInput(t *testing.T) {
	svc := setupAuthorization(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, Actor{Role: RoleGuest}, ObjectGuest, ActionGuestView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{AccountID: "a"}, ObjectGuest, ActionGuestView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{AccountID: "a", Role: RoleGuest}, "", ActionGuestView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, Actor{AccountID: "a", Role: RoleGuest}, ObjectGuest, " "), ErrInvalidAction)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	_, err := NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 11)
}
