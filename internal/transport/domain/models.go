package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Option is a kind of shared transport offered to guests, e.g. a shuttle
// from the hotel. Concrete departures are Schedules.
type Option struct {
	ID              snowflake.ID                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Slug            string                      `gorm:"type:varchar(220);not null;uniqueIndex:ux_transport_options_slug" json:"slug"`
	Name            string                      `gorm:"type:varchar(200);not null" json:"name"`
	Description     string                      `gorm:"type:text" json:"description"`
	PickupLocations datatypes.JSONSlice[string] `json:"pickup_locations"`
	BookingRequired bool                        `gorm:"not null;default:false" json:"booking_required"`
	Featured        bool                        `gorm:"not null;default:false" json:"featured"`
	CreatedAt       time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Option) TableName() string { return "transport_options" }

// Schedule is one departure. A nil MaxCapacity means unlimited seats;
// CurrentBookings is only moved by the capacity ledger.
type Schedule struct {
	ID                snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OptionID          snowflake.ID `gorm:"not null;index" json:"option_id"`
	DepartureTime     time.Time    `gorm:"not null;index" json:"departure_time"`
	DepartureLocation string       `gorm:"type:varchar(200);not null" json:"departure_location"`
	MaxCapacity       *int         `json:"max_capacity,omitempty"`
	CurrentBookings   int          `gorm:"not null;default:0" json:"current_bookings"`
	CreatedAt         time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time    `gorm:"not null" json:"updated_at"`
}

func (Schedule) TableName() string { return "schedules" }

// Remaining returns the free seats, or nil when the schedule is unlimited.
func (s Schedule) Remaining() *int {
	if s.MaxCapacity == nil {
		return nil
	}
	left := *s.MaxCapacity - s.CurrentBookings
	if left < 0 {
		left = 0
	}
	return &left
}

type SeatBooking struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ScheduleID    snowflake.ID `gorm:"not null;uniqueIndex:ux_seat_bookings_schedule_guest,priority:1" json:"schedule_id"`
	GuestID       snowflake.ID `gorm:"not null;uniqueIndex:ux_seat_bookings_schedule_guest,priority:2;index" json:"guest_id"`
	PassengerName string       `gorm:"type:varchar(200);not null" json:"passenger_name"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (SeatBooking) TableName() string { return "seat_bookings" }

// GuestRef is the slice of a guest row transport needs.
type GuestRef struct {
	ID         snowflake.ID
	Name       string
	IsArchived bool
}

type ScheduleView struct {
	Schedule
	Remaining *int `json:"remaining"`
}

type BookingView struct {
	SeatBooking
	Schedule Schedule `json:"schedule"`
}
