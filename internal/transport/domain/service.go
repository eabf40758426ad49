package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/guestlist/internal/capacity"
)

type CreateOptionRequest struct {
	Name            string   `json:"name" validate:"required,max=200"`
	Description     string   `json:"description" validate:"max=2000"`
	PickupLocations []string `json:"pickup_locations" validate:"max=20,dive,required,max=200"`
	BookingRequired bool     `json:"booking_required"`
	Featured        bool     `json:"featured"`
}

type CreateScheduleRequest struct {
	OptionID          string    `json:"option_id" validate:"required"`
	DepartureTime     time.Time `json:"departure_time" validate:"required"`
	DepartureLocation string    `json:"departure_location" validate:"required,max=200"`
	MaxCapacity       *int      `json:"max_capacity" validate:"omitempty,min=1,max=10000"`
}

type BookSeatRequest struct {
	ScheduleID string `json:"schedule_id"`
	GuestID    string `json:"guest_id"`
	// PassengerName defaults to the guest's name.
	PassengerName string `json:"passenger_name" validate:"max=200"`
}

type Service interface {
	CreateOption(ctx context.Context, req CreateOptionRequest) (Option, error)
	ListOptions(ctx context.Context) ([]Option, error)
	CreateSchedule(ctx context.Context, req CreateScheduleRequest) (Schedule, error)
	ListSchedules(ctx context.Context, optionID string) ([]ScheduleView, error)

	BookSeat(ctx context.Context, req BookSeatRequest) (SeatBooking, error)
	GetBooking(ctx context.Context, bookingID string) (SeatBooking, error)
	CancelBooking(ctx context.Context, bookingID string) error
	ListBookingsByGuest(ctx context.Context, guestID string) ([]BookingView, error)
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrOptionNotFound   = errors.New("transport_option_not_found")
	ErrOptionExists     = errors.New("transport_option_exists")
	ErrScheduleNotFound = errors.New("schedule_not_found")
	ErrBookingNotFound  = errors.New("booking_not_found")
	ErrGuestNotFound    = errors.New("guest_not_found")
	ErrAlreadyBooked    = errors.New("seat_already_booked")
	ErrFull             = fmt.Errorf("schedule_full: %w", capacity.ErrFull)
)
