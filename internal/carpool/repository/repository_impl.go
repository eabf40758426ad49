package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/carpool/domain"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertOffer(ctx context.Context, db *gorm.DB, offer *domain.Offer) error {
	return db.WithContext(ctx).Create(offer).Error
}

func (r *repo) FindOffer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	return take(db.WithContext(ctx).Where("id = ?", id), &offer)
}

func (r *repo) FindActiveOfferByDriver(ctx context.Context, db *gorm.DB, driverID snowflake.ID) (*domain.Offer, error) {
	var offer domain.Offer
	return take(db.WithContext(ctx).
		Where("driver_guest_id = ? AND status = ?", driverID, domain.OfferActive), &offer)
}

func (r *repo) ListActiveOffers(ctx context.Context, db *gorm.DB) ([]domain.Offer, error) {
	var items []domain.Offer
	err := db.WithContext(ctx).
		Where("status = ?", domain.OfferActive).
		Order("departure_time asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) FindOffersByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]domain.Offer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.Offer
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&items).Error
	return items, err
}

func (r *repo) CancelOffer(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Offer{}).
		Where("id = ? AND status = ?", id, domain.OfferActive).
		Updates(map[string]any{
			"status":       domain.OfferCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) InsertParticipant(ctx context.Context, db *gorm.DB, participant *domain.Participant) error {
	return db.WithContext(ctx).Create(participant).Error
}

func (r *repo) FindParticipant(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Participant, error) {
	var participant domain.Participant
	return take(db.WithContext(ctx).Where("id = ?", id), &participant)
}

func (r *repo) FindActiveParticipant(ctx context.Context, db *gorm.DB, offerID, guestID snowflake.ID) (*domain.Participant, error) {
	var participant domain.Participant
	return take(db.WithContext(ctx).
		Where("offer_id = ? AND participant_guest_id = ? AND status = ?", offerID, guestID, domain.ParticipantConfirmed),
		&participant)
}

func (r *repo) ListParticipants(ctx context.Context, db *gorm.DB, offerID snowflake.ID) ([]domain.Participant, error) {
	var items []domain.Participant
	err := db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListParticipationsByGuest(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]domain.Participant, error) {
	var items []domain.Participant
	err := db.WithContext(ctx).
		Where("participant_guest_id = ?", guestID).
		Order("created_at desc, id desc").
		Find(&items).Error
	return items, err
}

func (r *repo) CountActiveParticipants(ctx context.Context, db *gorm.DB, offerID snowflake.ID) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("offer_id = ? AND status = ?", offerID, domain.ParticipantConfirmed).
		Count(&n).Error
	return n, err
}

func (r *repo) CancelParticipant(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Participant{}).
		Where("id = ? AND status = ?", id, domain.ParticipantConfirmed).
		Updates(map[string]any{
			"status":       domain.ParticipantCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *repo) LockGuest(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.GuestRef, error) {
	var ref domain.GuestRef
	return take(dbpkg.ForUpdate(db.WithContext(ctx)).
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
