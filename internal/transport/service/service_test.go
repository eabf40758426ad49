package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/capacity"
	"github.com/smallbiznis/guestlist/internal/clock"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/transport/domain"
	"github.com/smallbiznis/guestlist/internal/transport/repository"
	"github.com/smallbiznis/guestlist/internal/validation"
	"github.com/smallbiznis/guestlist/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testStart = time.Date(2027, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc  *Service
	db   *gorm.DB
	node *snowflake.Node
	repo domain.Repository
}

func setupTransportService(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t,
		&guestdomain.Guest{},
		&domain.Option{},
		&domain.Schedule{},
		&domain.SeatBooking{},
	)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	repo := repository.Provide()
	svc := newService(Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Repo:   repo,
		Ledger: capacity.New(capacity.Params{Log: zap.NewNop()}),
		Clock:  clock.NewFakeClock(testStart),
	})
	return &fixture{svc: svc, db: db, node: node, repo: repo}
}

func (f *fixture) guest(t *testing.T, name string) guestdomain.Guest {
	t.Helper()
	g := guestdomain.Guest{
		ID:         f.node.Generate(),
		Name:       name,
		Email:      fmt.Sprintf("%s@example.com", name),
		RSVPStatus: guestdomain.StatusPending,
		CreatedAt:  testStart,
		UpdatedAt:  testStart,
	}
	if err := f.db.Create(&g).Error; err != nil {
		t.Fatalf("create guest: %v", err)
	}
	return g
}

func (f *fixture) schedule(t *testing.T, max *int) domain.Schedule {
	t.Helper()
	ctx := context.Background()
	option, err := f.svc.CreateOption(ctx, domain.CreateOptionRequest{
		Name:            fmt.Sprintf("Shuttle %d", f.node.Generate()),
		PickupLocations: []string{"Hotel Lobby"},
	})
	require.NoError(t, err)

	schedule, err := f.svc.CreateSchedule(ctx, domain.CreateScheduleRequest{
		OptionID:          option.ID.String(),
		DepartureTime:     testStart.Add(6 * time.Hour),
		DepartureLocation: "Hotel Lobby",
		MaxCapacity:       max,
	})
	require.NoError(t, err)
	return schedule
}

func (f *fixture) currentBookings(t *testing.T, id snowflake.ID) int {
	t.Helper()
	var s domain.Schedule
	require.NoError(t, f.db.First(&s, "id = ?", id).Error)
	return s.CurrentBookings
}

func intPtr(v int) *int { return &v }

func TestCreateOptionSlugAndOrdering(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()

	plain, err := f.svc.CreateOption(ctx, domain.CreateOptionRequest{Name: "Airport Transfer"})
	require.NoError(t, err)
	assert.Equal(t, "airport-transfer", plain.Slug)

	featured, err := f.svc.CreateOption(ctx, domain.CreateOptionRequest{
		Name:            "Venue Shuttle",
		PickupLocations: []string{" Hotel Lobby ", "", "Train Station"},
		Featured:        true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hotel Lobby", "Train Station"}, []string(featured.PickupLocations))

	_, err = f.svc.CreateOption(ctx, domain.CreateOptionRequest{Name: "Airport transfer"})
	assert.ErrorIs(t, err, domain.ErrOptionExists)

	options, err := f.svc.ListOptions(ctx)
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, featured.ID, options[0].ID)
	assert.Equal(t, plain.ID, options[1].ID)
}

func TestCreateScheduleValidation(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()

	_, err := f.svc.CreateSchedule(ctx, domain.CreateScheduleRequest{
		OptionID:          f.node.Generate().String(),
		DepartureTime:     testStart,
		DepartureLocation: "Lobby",
	})
	assert.ErrorIs(t, err, domain.ErrOptionNotFound)

	_, err = f.svc.CreateSchedule(ctx, domain.CreateScheduleRequest{
		OptionID:          f.node.Generate().String(),
		DepartureTime:     testStart,
		DepartureLocation: "Lobby",
		MaxCapacity:       intPtr(0),
	})
	assert.ErrorIs(t, err, validation.ErrValidation)
}

func TestBookSeatCapacityScenario(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()
	schedule := f.schedule(t, intPtr(2))

	a, b, c, d := f.guest(t, "ana"), f.guest(t, "ben"), f.guest(t, "cai"), f.guest(t, "dee")

	first, err := f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: a.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, "ana", first.PassengerName)

	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: b.ID.String(), PassengerName: "Ben Jr"})
	require.NoError(t, err)

	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: c.ID.String()})
	assert.ErrorIs(t, err, domain.ErrFull)
	assert.ErrorIs(t, err, capacity.ErrFull)
	assert.Equal(t, 2, f.currentBookings(t, schedule.ID))

	require.NoError(t, f.svc.CancelBooking(ctx, first.ID.String()))
	assert.Equal(t, 1, f.currentBookings(t, schedule.ID))

	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: c.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: d.ID.String()})
	assert.ErrorIs(t, err, domain.ErrFull)

	views, err := f.svc.ListSchedules(ctx, schedule.OptionID.String())
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Remaining)
	assert.Equal(t, 0, *views[0].Remaining)
}

func TestBookSeatConcurrentNeverOverbooks(t *testing.T) {
	f := setupTransportService(t)
	const seats, extra = 5, 3
	schedule := f.schedule(t, intPtr(seats))

	guests := make([]guestdomain.Guest, seats+extra)
	for i := range guests {
		guests[i] = f.guest(t, fmt.Sprintf("guest%d", i))
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
		full    int
		other   []error
	)
	for _, g := range guests {
		wg.Add(1)
		go func(guestID string) {
			defer wg.Done()
			_, err := f.svc.BookSeat(context.Background(), domain.BookSeatRequest{
				ScheduleID: schedule.ID.String(),
				GuestID:    guestID,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				granted++
			case errors.Is(err, domain.ErrFull):
				full++
			default:
				other = append(other, err)
			}
		}(g.ID.String())
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, seats, granted)
	assert.Equal(t, extra, full)
	assert.Equal(t, seats, f.currentBookings(t, schedule.ID))

	rows, err := f.repo.CountBookings(context.Background(), f.db, schedule.ID)
	require.NoError(t, err)
	assert.EqualValues(t, seats, rows)
}

func TestBookSeatUnlimitedSchedule(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()
	schedule := f.schedule(t, nil)

	for i := 0; i < 4; i++ {
		g := f.guest(t, fmt.Sprintf("walker%d", i))
		_, err := f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: g.ID.String()})
		require.NoError(t, err)
	}
	assert.Equal(t, 4, f.currentBookings(t, schedule.ID))

	views, err := f.svc.ListSchedules(ctx, schedule.OptionID.String())
	require.NoError(t, err)
	assert.Nil(t, views[0].Remaining)
}

func TestBookSeatOnePerGuestPerSchedule(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()
	schedule := f.schedule(t, intPtr(3))
	g := f.guest(t, "ana")

	_, err := f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: g.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: g.ID.String()})
	assert.ErrorIs(t, err, domain.ErrAlreadyBooked)
	assert.Equal(t, 1, f.currentBookings(t, schedule.ID))
}

func TestBookSeatMissingReferences(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()
	schedule := f.schedule(t, intPtr(1))
	g := f.guest(t, "ana")

	_, err := f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: f.node.Generate().String(), GuestID: g.ID.String()})
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)

	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: f.node.Generate().String()})
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)
	assert.Equal(t, 0, f.currentBookings(t, schedule.ID))

	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: "nope", GuestID: g.ID.String()})
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

func TestCancelBookingTwiceIsNotFound(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()
	schedule := f.schedule(t, intPtr(2))
	g := f.guest(t, "ana")

	booking, err := f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: schedule.ID.String(), GuestID: g.ID.String()})
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelBooking(ctx, booking.ID.String()))
	assert.ErrorIs(t, f.svc.CancelBooking(ctx, booking.ID.String()), domain.ErrBookingNotFound)
	assert.Equal(t, 0, f.currentBookings(t, schedule.ID))

	_, err = f.svc.GetBooking(ctx, booking.ID.String())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestListBookingsByGuest(t *testing.T) {
	f := setupTransportService(t)
	ctx := context.Background()
	morning := f.schedule(t, intPtr(2))
	evening := f.schedule(t, nil)
	g := f.guest(t, "ana")

	_, err := f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: morning.ID.String(), GuestID: g.ID.String()})
	require.NoError(t, err)
	_, err = f.svc.BookSeat(ctx, domain.BookSeatRequest{ScheduleID: evening.ID.String(), GuestID: g.ID.String()})
	require.NoError(t, err)

	views, err := f.svc.ListBookingsByGuest(ctx, g.ID.String())
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Equal(t, v.ScheduleID, v.Schedule.ID)
	}

	_, err = f.svc.ListBookingsByGuest(ctx, f.node.Generate().String())
	assert.ErrorIs(t, err, domain.ErrGuestNotFound)
}
