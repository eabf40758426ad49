package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/transport/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOption(ctx context.Context, db *gorm.DB, option *domain.Option) error {
	return db.WithContext(ctx).Create(option).Error
}

func (r *repo) FindOption(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Option, error) {
	var option domain.Option
	return take(db.WithContext(ctx).Where("id = ?", id), &option)
}

// ListOptions returns featured options first, then by name.
func (r *repo) ListOptions(ctx context.Context, db *gorm.DB) ([]domain.Option, error) {
	var items []domain.Option
	err := db.WithContext(ctx).
		Order("featured desc, name asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) InsertSchedule(ctx context.Context, db *gorm.DB, schedule *domain.Schedule) error {
	return db.WithContext(ctx).Create(schedule).Error
}

func (r *repo) FindSchedule(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Schedule, error) {
	var schedule domain.Schedule
	return take(db.WithContext(ctx).Where("id = ?", id), &schedule)
}

func (r *repo) ListSchedules(ctx context.Context, db *gorm.DB, optionID snowflake.ID) ([]domain.Schedule, error) {
	var items []domain.Schedule
	err := db.WithContext(ctx).
		Where("option_id = ?", optionID).
		Order("departure_time asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) FindSchedulesByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Schedule, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Schedule
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *repo) InsertBooking(ctx context.Context, db *gorm.DB, booking *domain.SeatBooking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repo) FindBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SeatBooking, error) {
	var booking domain.SeatBooking
	return take(db.WithContext(ctx).Where("id = ?", id), &booking)
}

func (r *repo) FindBookingByGuest(ctx context.Context, db *gorm.DB, scheduleID, guestID snowflake.ID) (*domain.SeatBooking, error) {
	var booking domain.SeatBooking
	return take(db.WithContext(ctx).Where("schedule_id = ? AND guest_id = ?", scheduleID, guestID), &booking)
}

func (r *repo) DeleteBooking(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	result := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.SeatBooking{})
	return result.RowsAffected, result.Error
}

func (r *repo) ListBookingsByGuest(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]domain.SeatBooking, error) {
	var items []domain.SeatBooking
	err := db.WithContext(ctx).
		Where("guest_id = ?", guestID).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) CountBookings(ctx context.Context, db *gorm.DB, scheduleID snowflake.ID) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.SeatBooking{}).Where("schedule_id = ?", scheduleID).Count(&n).Error
	return n, err
}

func (r *repo) FindGuest(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GuestRef, error) {
	var ref domain.GuestRef
	return take(db.WithContext(ctx).
		Table("guests").
		Select("id", "name", "is_archived").
		Where("id = ?", id), &ref)
}

func take[T any](stmt *gorm.DB, dest *T) (*T, error) {
	err := stmt.Limit(1).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dest, nil
}
