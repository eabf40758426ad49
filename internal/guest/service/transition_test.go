package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubmitResponseConfirmWithPlusOneAndAdditionalGuests(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	host := f.createGuest(t, "Jordan Lee", "jordan@example.com")

	result, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: host.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{
			PlusOne:      &domain.PlusOne{Name: "Alex"},
			DietaryNeeds: []string{"Vegetarian"},
			AdditionalGuests: []domain.AdditionalGuest{
				{Name: "Mia Lee", Relationship: "daughter"},
				{Name: "Noah Lee", Email: "noah@example.com"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusConfirmed, result.Guest.RSVPStatus)
	require.NotNil(t, result.Guest.RSVPRespondedAt)
	assert.True(t, result.Guest.RSVPRespondedAt.Equal(testStart))
	assert.Equal(t, domain.StatusPending, result.History.OldStatus)
	assert.Equal(t, domain.StatusConfirmed, result.History.NewStatus)
	assert.Equal(t, domain.MethodGuestForm, result.History.ChangeMethod)
	require.Len(t, result.AdditionalGuests, 2)
	assert.False(t, result.Archived)

	stored, err := f.svc.GetByID(ctx, host.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.RSVPStatus)
	require.NotNil(t, stored.PlusOneName)
	assert.Equal(t, "Alex", *stored.PlusOneName)
	assert.Equal(t, []string{"vegetarian"}, []string(stored.DietaryNeeds))

	history, err := f.svc.History(ctx, host.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)

	assert.EqualValues(t, 3, f.countRows(t, &domain.Guest{}, ""))
	for _, extra := range result.AdditionalGuests {
		assert.Equal(t, domain.StatusConfirmed, extra.RSVPStatus)
		require.NotNil(t, extra.AddedByGuestID)
		assert.Equal(t, host.ID, *extra.AddedByGuestID)
		require.NotNil(t, extra.RelationshipNote)
		h, err := f.svc.History(ctx, extra.ID.String())
		require.NoError(t, err)
		require.Len(t, h, 1)
		assert.Equal(t, domain.StatusPending, h[0].OldStatus)
	}
	assert.Equal(t, "daughter", *result.AdditionalGuests[0].RelationshipNote)
	assert.Equal(t, "guest of Jordan Lee", *result.AdditionalGuests[1].RelationshipNote)

	msgs := f.notifier.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, host.ID, msgs[0].Recipient.GuestID)
	assert.Contains(t, msgs[0].Body, "Alex")
}

func TestSubmitResponseDeclineArchivesAndLogsOnce(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Riley", "riley@example.com")

	result, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusDeclined,
		Payload: &domain.ResponsePayload{},
	})
	require.NoError(t, err)
	assert.True(t, result.Archived)
	assert.True(t, result.Guest.IsArchived)
	require.NotNil(t, result.Guest.ArchivedAt)

	comms, err := f.svc.Communications(ctx, g.ID.String())
	require.NoError(t, err)
	require.Len(t, comms, 1)
	assert.Equal(t, domain.CommRSVPDeclined, comms[0].Type)
	assert.Equal(t, domain.DirectionInbound, comms[0].Direction)

	active, err := f.svc.Search(ctx, domain.SearchRequest{})
	require.NoError(t, err)
	assert.Empty(t, active.Guests)
}

func TestSubmitResponseConfirmAfterDeclineRestores(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Casey", "casey@example.com")

	_, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{GuestID: g.ID.String(), Status: domain.StatusDeclined})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	result, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{GuestID: g.ID.String(), Status: domain.StatusConfirmed})
	require.NoError(t, err)
	assert.True(t, result.Restored)
	assert.False(t, result.Guest.IsArchived)
	assert.Nil(t, result.Guest.ArchivedAt)
	assert.Equal(t, domain.StatusDeclined, result.History.OldStatus)

	history, err := f.svc.History(ctx, g.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.StatusDeclined, history[0].NewStatus)
	assert.Equal(t, domain.StatusConfirmed, history[1].NewStatus)
}

func TestSubmitResponseRepeatedSubmissionDoesNotDuplicateCompanions(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Sam", "sam@example.com")

	req := domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{
			AdditionalGuests: []domain.AdditionalGuest{{Name: "Robin"}},
		},
	}
	first, err := f.svc.SubmitResponse(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.AdditionalGuests, 1)

	second, err := f.svc.SubmitResponse(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, second.AdditionalGuests)
	assert.EqualValues(t, 2, f.countRows(t, &domain.Guest{}, ""))

	history, err := f.svc.History(ctx, g.ID.String())
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSubmitResponseLastWriteWinsOnDetails(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Dana", "dana@example.com")

	_, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{
			PlusOne:         &domain.PlusOne{Name: "Alex"},
			Allergies:       []string{"peanuts"},
			SpecialRequests: "high chair",
		},
	})
	require.NoError(t, err)

	result, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{Allergies: []string{"shellfish"}},
	})
	require.NoError(t, err)

	stored, err := f.svc.GetByID(ctx, g.ID.String())
	require.NoError(t, err)
	assert.Nil(t, stored.PlusOneName)
	assert.Nil(t, stored.SpecialRequests)
	assert.Equal(t, []string{"shellfish"}, []string(stored.Allergies))
	assert.Equal(t, stored.Allergies, result.Guest.Allergies)
}

func TestSubmitResponseValidation(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Vale", "vale@example.com")

	_, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{Email: "not-an-email"},
	})
	require.ErrorIs(t, err, validation.ErrValidation)

	_, err = f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{Phone: "12ab"},
	})
	require.ErrorIs(t, err, validation.ErrValidation)

	for _, payload := range []domain.ResponsePayload{
		{Phone: "n/a"},
		{Phone: "+1 555 123 4567 ext 89"},
		{AdditionalGuests: []domain.AdditionalGuest{{Name: "Kid", Phone: "unknown"}}},
	} {
		_, err = f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
			GuestID: g.ID.String(),
			Status:  domain.StatusConfirmed,
			Payload: &payload,
		})
		require.ErrorIs(t, err, validation.ErrValidation)
	}

	_, err = f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusPending,
	})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{GuestID: "abc", Status: domain.StatusConfirmed})
	require.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: f.node.Generate().String(),
		Status:  domain.StatusConfirmed,
	})
	require.ErrorIs(t, err, domain.ErrNotFound)

	assert.EqualValues(t, 0, f.countRows(t, &domain.HistoryEntry{}, ""))
	assert.Empty(t, f.notifier.Messages())
}

func TestSubmitResponseAcceptsFormattedPhone(t *testing.T) {
	f := setupGuestService(t)
	g := f.createGuest(t, "Pat", "pat@example.com")

	result, err := f.svc.SubmitResponse(context.Background(), domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{Phone: "+1 (555) 010-2030"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Guest.Phone)
	assert.Equal(t, "+15550102030", *result.Guest.Phone)
}

// failingInsertRepo fails every guest insert so a submission with companions
// aborts after the host row was already updated inside the transaction.
type failingInsertRepo struct {
	domain.Repository
}

func (r failingInsertRepo) Insert(ctx context.Context, db *gorm.DB, guest *domain.Guest) error {
	return errors.New("disk full")
}

func TestSubmitResponseIsAllOrNothing(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Quinn", "quinn@example.com")

	failing := newService(Params{
		DB:       f.db,
		Log:      f.svc.log,
		GenID:    f.node,
		Repo:     failingInsertRepo{Repository: f.repo},
		Clock:    f.clock,
		Notifier: f.notifier,
	})

	_, err := failing.SubmitResponse(ctx, domain.SubmitResponseRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusConfirmed,
		Payload: &domain.ResponsePayload{
			PlusOne:          &domain.PlusOne{Name: "Alex"},
			AdditionalGuests: []domain.AdditionalGuest{{Name: "Kim"}},
		},
	})
	require.EqualError(t, err, "disk full")

	stored, err := f.svc.GetByID(ctx, g.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, stored.RSVPStatus)
	assert.Nil(t, stored.RSVPRespondedAt)
	assert.Nil(t, stored.PlusOneName)
	assert.EqualValues(t, 0, f.countRows(t, &domain.HistoryEntry{}, ""))
	assert.Empty(t, f.notifier.Messages())
}

func TestOverrideStatus(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Morgan", "morgan@example.com")

	_, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{GuestID: g.ID.String(), Status: domain.StatusDeclined})
	require.NoError(t, err)

	result, err := f.svc.OverrideStatus(ctx, domain.OverrideStatusRequest{
		GuestID: g.ID.String(),
		Status:  domain.StatusPending,
		Reason:  "called to re-invite",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, result.Guest.RSVPStatus)
	assert.Nil(t, result.Guest.RSVPRespondedAt)
	assert.True(t, result.Guest.IsArchived, "override leaves archival alone")
	assert.Equal(t, domain.MethodAdminOverride, result.History.ChangeMethod)
	require.NotNil(t, result.History.ChangeReason)
	assert.Equal(t, "called to re-invite", *result.History.ChangeReason)
	assert.Empty(t, result.Communications)

	result, err = f.svc.OverrideStatus(ctx, domain.OverrideStatusRequest{GuestID: g.ID.String(), Status: domain.StatusDeclined})
	require.NoError(t, err)
	assert.False(t, result.Archived)
	require.NotNil(t, result.Guest.RSVPRespondedAt)

	_, err = f.svc.OverrideStatus(ctx, domain.OverrideStatusRequest{GuestID: g.ID.String(), Status: "maybe"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	comms, err := f.svc.Communications(ctx, g.ID.String())
	require.NoError(t, err)
	assert.Len(t, comms, 1, "only the guest decline is logged")
	assert.Len(t, f.notifier.Messages(), 1, "overrides do not notify")
}

func TestConcurrentSubmissionsKeepHistoryComplete(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()
	g := f.createGuest(t, "Taylor", "taylor@example.com")

	const workers = 12
	var wg sync.WaitGroup
	errCh := make(chan error, workers)
	for i := 0; i < workers; i++ {
		status := domain.StatusConfirmed
		if i%2 == 1 {
			status = domain.StatusDeclined
		}
		wg.Add(1)
		go func(status domain.RSVPStatus) {
			defer wg.Done()
			_, err := f.svc.SubmitResponse(ctx, domain.SubmitResponseRequest{GuestID: g.ID.String(), Status: status})
			if err != nil {
				errCh <- err
			}
		}(status)
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("submit: %v", err)
	}

	history, err := f.svc.History(ctx, g.ID.String())
	require.NoError(t, err)
	require.Len(t, history, workers)

	stored, err := f.svc.GetByID(ctx, g.ID.String())
	require.NoError(t, err)
	assert.Equal(t, history[len(history)-1].NewStatus, stored.RSVPStatus)
	assert.Equal(t, stored.RSVPStatus == domain.StatusDeclined, stored.IsArchived)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].NewStatus, history[i].OldStatus, "history chains entry %d", i)
	}
}

func TestHandleInboundReply(t *testing.T) {
	f := setupGuestService(t)
	ctx := context.Background()

	g, err := f.svc.Create(ctx, domain.CreateGuestRequest{Name: "Avi", Email: "avi@example.com", Phone: "+972 54-123-4567"})
	require.NoError(t, err)

	result, err := f.svc.HandleInboundReply(ctx, domain.InboundReply{Phone: "972541234567", Text: "Yes! We'll be there"})
	require.NoError(t, err)
	assert.Equal(t, g.ID, result.Guest.ID)
	assert.Equal(t, domain.StatusConfirmed, result.Guest.RSVPStatus)
	assert.Equal(t, domain.MethodWhatsApp, result.History.ChangeMethod)
	require.Len(t, result.Communications, 1)
	assert.Equal(t, domain.CommWhatsAppReply, result.Communications[0].Type)

	result, err = f.svc.HandleInboundReply(ctx, domain.InboundReply{Phone: "972541234567", Text: "no"})
	require.NoError(t, err)
	assert.True(t, result.Guest.IsArchived)
	assert.Len(t, result.Communications, 2)

	_, err = f.svc.HandleInboundReply(ctx, domain.InboundReply{Phone: "972541234567", Text: "what time is dinner?"})
	require.ErrorIs(t, err, domain.ErrUnrecognizedReply)

	_, err = f.svc.HandleInboundReply(ctx, domain.InboundReply{Phone: "15550000000", Text: "yes"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	comms, err := f.svc.Communications(ctx, g.ID.String())
	require.NoError(t, err)
	assert.Len(t, comms, 4)
	assert.Equal(t, "ignored", comms[3].Status)
}
