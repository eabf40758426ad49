package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertOffer(ctx context.Context, db *gorm.DB, offer *Offer) error
	FindOffer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Offer, error)
	FindActiveOfferByDriver(ctx context.Context, db *gorm.DB, driverID snowflake.ID) (*Offer, error)
	ListActiveOffers(ctx context.Context, db *gorm.DB) ([]Offer, error)
	FindOffersByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]Offer, error)
	// CancelOffer flips an active offer to cancelled and reports rows changed.
	CancelOffer(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)

	InsertParticipant(ctx context.Context, db *gorm.DB, participant *Participant) error
	FindParticipant(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Participant, error)
	FindActiveParticipant(ctx context.Context, db *gorm.DB, offerID, guestID snowflake.ID) (*Participant, error)
	ListParticipants(ctx context.Context, db *gorm.DB, offerID snowflake.ID) ([]Participant, error)
	ListParticipationsByGuest(ctx context.Context, db *gorm.DB, guestID snowflake.ID) ([]Participant, error)
	CountActiveParticipants(ctx context.Context, db *gorm.DB, offerID snowflake.ID) (int64, error)
	// CancelParticipant flips a confirmed row to cancelled and reports rows changed.
	CancelParticipant(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (int64, error)

	// LockGuest reads the guest row under a row lock where the dialect has one.
	LockGuest(ctx context.Context, db *gorm.DB, id snowflake.ID) (*GuestRef, error)
}
