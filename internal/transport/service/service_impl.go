package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/guestlist/internal/capacity"
	"github.com/smallbiznis/guestlist/internal/clock"
	"github.com/smallbiznis/guestlist/internal/transport/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Ledger capacity.Ledger
	Clock  clock.Clock `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	ledger capacity.Ledger
	clock  clock.Clock
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("transport.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		ledger: p.Ledger,
		clock:  clk,
	}
}

func (s *Service) CreateOption(ctx context.Context, req domain.CreateOptionRequest) (domain.Option, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.PickupLocations = compact(req.PickupLocations)
	if err := validation.Struct(req); err != nil {
		return domain.Option{}, err
	}

	now := s.clock.Now()
	option := domain.Option{
		ID:              s.genID.Generate(),
		Slug:            slug.Make(req.Name),
		Name:            req.Name,
		Description:     req.Description,
		PickupLocations: datatypes.JSONSlice[string](req.PickupLocations),
		BookingRequired: req.BookingRequired,
		Featured:        req.Featured,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if option.Slug == "" {
		return domain.Option{}, validation.Field("name", "invalid_slug")
	}

	if err := s.repo.InsertOption(ctx, s.db, &option); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Option{}, domain.ErrOptionExists
		}
		return domain.Option{}, err
	}
	s.log.Info("transport option created",
		zap.String("option_id", option.ID.String()),
		zap.String("slug", option.Slug),
	)
	return option, nil
}

func (s *Service) ListOptions(ctx context.Context) ([]domain.Option, error) {
	return s.repo.ListOptions(ctx, s.db)
}

func (s *Service) CreateSchedule(ctx context.Context, req domain.CreateScheduleRequest) (domain.Schedule, error) {
	req.DepartureLocation = strings.TrimSpace(req.DepartureLocation)
	if err := validation.Struct(req); err != nil {
		return domain.Schedule{}, err
	}
	optionID, err := parseID(req.OptionID)
	if err != nil {
		return domain.Schedule{}, err
	}

	option, err := s.repo.FindOption(ctx, s.db, optionID)
	if err != nil {
		return domain.Schedule{}, err
	}
	if option == nil {
		return domain.Schedule{}, domain.ErrOptionNotFound
	}

	now := s.clock.Now()
	schedule := domain.Schedule{
		ID:                s.genID.Generate(),
		OptionID:          option.ID,
		DepartureTime:     req.DepartureTime.UTC(),
		DepartureLocation: req.DepartureLocation,
		MaxCapacity:       req.MaxCapacity,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertSchedule(ctx, s.db, &schedule); err != nil {
		return domain.Schedule{}, err
	}
	return schedule, nil
}

func (s *Service) ListSchedules(ctx context.Context, optionID string) ([]domain.ScheduleView, error) {
	id, err := parseID(optionID)
	if err != nil {
		return nil, err
	}
	option, err := s.repo.FindOption(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, domain.ErrOptionNotFound
	}

	schedules, err := s.repo.ListSchedules(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	views := make([]domain.ScheduleView, 0, len(schedules))
	for _, schedule := range schedules {
		views = append(views, domain.ScheduleView{Schedule: schedule, Remaining: schedule.Remaining()})
	}
	return views, nil
}

// BookSeat reserves one seat through the capacity ledger and stores the
// booking in the same transaction. A guest holds at most one booking per
// schedule.
func (s *Service) BookSeat(ctx context.Context, req domain.BookSeatRequest) (domain.SeatBooking, error) {
	scheduleID, err := parseID(req.ScheduleID)
	if err != nil {
		return domain.SeatBooking{}, err
	}
	guestID, err := parseID(req.GuestID)
	if err != nil {
		return domain.SeatBooking{}, err
	}
	req.PassengerName = strings.TrimSpace(req.PassengerName)
	if err := validation.Struct(req); err != nil {
		return domain.SeatBooking{}, err
	}

	var booking domain.SeatBooking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedule, err := s.repo.FindSchedule(ctx, tx, scheduleID)
		if err != nil {
			return err
		}
		if schedule == nil {
			return domain.ErrScheduleNotFound
		}

		guest, err := s.repo.FindGuest(ctx, tx, guestID)
		if err != nil {
			return err
		}
		if guest == nil {
			return domain.ErrGuestNotFound
		}

		existing, err := s.repo.FindBookingByGuest(ctx, tx, scheduleID, guestID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyBooked
		}

		if err := s.ledger.Reserve(ctx, tx, capacity.ScheduleSeats, scheduleID); err != nil {
			if errors.Is(err, capacity.ErrFull) {
				return domain.ErrFull
			}
			return err
		}

		passenger := req.PassengerName
		if passenger == "" {
			passenger = guest.Name
		}
		booking = domain.SeatBooking{
			ID:            s.genID.Generate(),
			ScheduleID:    scheduleID,
			GuestID:       guestID,
			PassengerName: passenger,
			CreatedAt:     s.clock.Now(),
		}
		return s.repo.InsertBooking(ctx, tx, &booking)
	})
	if err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.SeatBooking{}, domain.ErrAlreadyBooked
		}
		return domain.SeatBooking{}, err
	}

	s.log.Info("seat booked",
		zap.String("booking_id", booking.ID.String()),
		zap.String("schedule_id", scheduleID.String()),
		zap.String("guest_id", guestID.String()),
	)
	return booking, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID string) (domain.SeatBooking, error) {
	id, err := parseID(bookingID)
	if err != nil {
		return domain.SeatBooking{}, err
	}
	booking, err := s.repo.FindBooking(ctx, s.db, id)
	if err != nil {
		return domain.SeatBooking{}, err
	}
	if booking == nil {
		return domain.SeatBooking{}, domain.ErrBookingNotFound
	}
	return *booking, nil
}

// CancelBooking deletes the booking and returns its seat. Only the caller
// that actually removed the row releases capacity.
func (s *Service) CancelBooking(ctx context.Context, bookingID string) error {
	id, err := parseID(bookingID)
	if err != nil {
		return err
	}

	var scheduleID snowflake.ID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.repo.FindBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		scheduleID = booking.ScheduleID

		removed, err := s.repo.DeleteBooking(ctx, tx, id)
		if err != nil {
			return err
		}
		if removed == 0 {
			return domain.ErrBookingNotFound
		}
		return s.ledger.Release(ctx, tx, capacity.ScheduleSeats, scheduleID)
	})
	if err != nil {
		return err
	}

	s.log.Info("seat booking cancelled",
		zap.String("booking_id", id.String()),
		zap.String("schedule_id", scheduleID.String()),
	)
	return nil
}

func (s *Service) ListBookingsByGuest(ctx context.Context, guestID string) ([]domain.BookingView, error) {
	id, err := parseID(guestID)
	if err != nil {
		return nil, err
	}
	guest, err := s.repo.FindGuest(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, domain.ErrGuestNotFound
	}

	bookings, err := s.repo.ListBookingsByGuest(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	ids := make([]snowflake.ID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ScheduleID)
	}
	schedules, err := s.repo.FindSchedulesByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]domain.Schedule, len(schedules))
	for _, schedule := range schedules {
		byID[schedule.ID] = schedule
	}

	views := make([]domain.BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, domain.BookingView{SeatBooking: b, Schedule: byID[b.ScheduleID]})
	}
	return views, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
