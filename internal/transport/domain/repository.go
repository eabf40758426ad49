package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertOption(ctx context.Context, db *gorm.DB, option *Option) error
	FindOption(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Option, error)
	ListOptions(ctx context.Context, db *gorm.DB) ([]Option, error)

	InsertSchedule(ctx context.Context, db *gorm.DB, schedule *Schedule) error
	FindSchedule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Schedule, error)
	ListSchedules(ctx context.Context, db *gorm.DB, optionID snowflake.ID) ([]Schedule, error)
	FindSchedulesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Schedule, error)

	InsertBooking(ctx context.Context, db *gorm.DB, booking *SeatBooking) error
	FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SeatBooking, error)
	FindBookingByGuest(ctx context.Context, db *gorm.DB, scheduleID, guestID snowflake.ID) (*SeatBooking, error)
	// DeleteBooking returns the number of rows removed.
	DeleteBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	ListBookingsByGuest(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]SeatBooking, error)
	CountBookings(ctx context.Context, db *gorm.DB, scheduleID snowflake.ID) (int64, error)

	FindGuest(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GuestRef, error)
}
