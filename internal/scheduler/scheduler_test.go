package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/guestlist/internal/clock"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGuests struct {
	guestdomain.Service
	calls  int
	result guestdomain.ReminderResult
	err    error
	block  bool
}

func (s *stubGuests) SendReminders(ctx context.Context) (guestdomain.ReminderResult, error) {
	s.calls++
	if s.block {
		<-ctx.Done()
		return guestdomain.ReminderResult{}, ctx.Err()
	}
	return s.result, s.err
}

func newTestScheduler(t *testing.T, guests *stubGuests, cfg Config) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:      zap.NewNop(),
		GuestSvc: guests,
		Clock:    clock.NewFakeClock(time.Date(2027, 5, 1, 9, 0, 0, 0, time.UTC)),
		Config:   cfg,
	})
	require.NoError(t, err)
	return s
}

func TestRunOnceSendsReminders(t *testing.T) {
	guests := &stubGuests{result: guestdomain.ReminderResult{Candidates: 2, Queued: 2}}
	s := newTestScheduler(t, guests, Config{})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, guests.calls)
}

func TestReminderJobIgnoresLockHeldElsewhere(t *testing.T) {
	guests := &stubGuests{err: guestdomain.ErrReminderInProgress}
	s := newTestScheduler(t, guests, Config{})

	assert.NoError(t, s.RunOnce(context.Background()))
}

func TestRunOnceWrapsJobErrors(t *testing.T) {
	boom := errors.New("store down")
	guests := &stubGuests{err: boom}
	s := newTestScheduler(t, guests, Config{})

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), JobRSVPReminders)
}

func TestRunJobTimeoutIsNotAnError(t *testing.T) {
	guests := &stubGuests{block: true}
	s := newTestScheduler(t, guests, Config{JobTimeout: 5 * time.Millisecond})

	assert.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, guests.calls)
}

func TestEnabledJobsFilter(t *testing.T) {
	guests := &stubGuests{}
	s := newTestScheduler(t, guests, Config{EnabledJobs: []string{"something_else"}})

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, guests.calls)

	s = newTestScheduler(t, guests, Config{EnabledJobs: []string{" RSVP_Reminders "}})
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, guests.calls)
}

func TestNewRequiresGuestService(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.Equal(t, 2*time.Minute, cfg.JobTimeout)
}
