package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGuest(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()

	g, err := f.svc.Create(ctx, domain.CreateGuestRequest{
		Name:  "  Ana Souza ",
		Email: "Ana@Example.COM",
		Phone: "+55 11 98765-4321",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", g.Name)
	assert.Equal(t, "ana@example.com", g.Email)
	require.NotNil(t, g.Phone)
	assert.Equal(t, "+5511987654321", *g.Phone)
	assert.Equal(t, domain.StatusPending, g.RSVPStatus)
	assert.Nil(t, g.RSVPRespondedAt)
	assert.NotNil(t, g.DietaryNeeds)

	_, err = f.svc.Create(ctx, domain.CreateGuestRequest{Name: "No Email"})
	require.ErrorIs(t, err, validation.ErrValidation)

	_, err = f.svc.Create(ctx, domain.CreateGuestRequest{Name: "No Phone", Email: "np@example.com", Phone: "call me"})
	require.ErrorIs(t, err, validation.ErrValidation)

	_, err = f.svc.Create(ctx, domain.CreateGuestRequest{Name: "", Email: "x@example.com"})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "name", verrs.Fields[0].Field)
	assert.Equal(t, "invalid_required", verrs.Fields[0].Code)
}

func TestSelfRegistrationLinksAccount(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()

	g, err := f.svc.Create(ctx, domain.CreateGuestRequest{Name: "Lee", Email: "lee@example.com", LinkedAccountID: "acct-1"})
	require.NoError(t, err)

	found, err := f.svc.GetByAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, g.ID, found.ID)

	_, err = f.svc.Create(ctx, domain.CreateGuestRequest{Name: "Lee 2", Email: "lee2@example.com", LinkedAccountID: "acct-1"})
	require.ErrorIs(t, err, domain.ErrAccountAlreadyLinked)

	_, err = f.svc.GetByAccount(ctx, "acct-unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetByAccount(ctx, " ")
	require.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestLinkAccountIsOneToOne(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	first := f.createGuest(t, "First", "first@example.com")
	second := f.createGuest(t, "Second", "second@example.com")

	linked, err := f.svc.LinkAccount(ctx, first.ID.String(), "acct-42")
	require.NoError(t, err)
	require.NotNil(t, linked.LinkedAccountID)
	assert.Equal(t, "acct-42", *linked.LinkedAccountID)

	again, err := f.svc.LinkAccount(ctx, first.ID.String(), "acct-42")
	require.NoError(t, err)
	assert.True(t, linked.UpdatedAt.Equal(again.UpdatedAt))

	_, err = f.svc.LinkAccount(ctx, second.ID.String(), "acct-42")
	require.ErrorIs(t, err, domain.ErrAccountAlreadyLinked)

	_, err = f.svc.LinkAccount(ctx, second.ID.String(), "")
	require.ErrorIs(t, err, domain.ErrInvalidAccount)
	_, err = f.svc.LinkAccount(ctx, f.node.Generate().String(), "acct-9")
	require.ErrorIs(t, err, domain.ErrNotFound)

	unlinked, err := f.svc.UnlinkAccount(ctx, first.ID.String())
	require.NoError(t, err)
	assert.Nil(t, unlinked.LinkedAccountID)

	_, err = f.svc.LinkAccount(ctx, second.ID.String(), "acct-42")
	require.NoError(t, err)

	// unlinking twice is harmless
	_, err = f.svc.UnlinkAccount(ctx, first.ID.String())
	require.NoError(t, err)

	assert.EqualValues(t, 0, f.countRows(t, &domain.HistoryEntry{}, ""), "linking never writes history")
}

func TestArchiveAndRestoreAreIndependentOfStatus(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Frankie", "frankie@example.com")

	archived, err := f.svc.Archive(ctx, g.ID.String())
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
	require.NotNil(t, archived.ArchivedAt)
	assert.Equal(t, domain.StatusPending, archived.RSVPStatus)

	again, err := f.svc.Archive(ctx, g.ID.String())
	require.NoError(t, err)
	assert.True(t, again.ArchivedAt.Equal(*archived.ArchivedAt))

	restored, err := f.svc.Restore(ctx, g.ID.String())
	require.NoError(t, err)
	assert.False(t, restored.IsArchived)
	assert.Nil(t, restored.ArchivedAt)

	stored, err := f.svc.GetByID(ctx, g.ID.String())
	require.NoError(t, err)
	assert.False(t, stored.IsArchived)
	assert.EqualValues(t, 0, f.countRows(t, &domain.HistoryEntry{}, ""))

	_, err = f.svc.Restore(ctx, "not-a-number")
	require.ErrorIs(t, err, domain.ErrInvalidID)
}
