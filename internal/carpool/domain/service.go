package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/guestlist/internal/capacity"
)

type CreateOfferRequest struct {
	DriverGuestID      string    `json:"driver_guest_id"`
	DepartureLocation  string    `json:"departure_location" validate:"required,max=200"`
	DepartureTime      time.Time `json:"departure_time" validate:"required"`
	AvailableSeats     int       `json:"available_seats" validate:"required,min=1,max=50"`
	VehicleDescription string    `json:"vehicle_description" validate:"max=200"`
	ContactPhone       string    `json:"contact_phone" validate:"omitempty,phone"`
	SpecialNotes       string    `json:"special_notes" validate:"max=2000"`
}

type JoinOfferRequest struct {
	OfferID string `json:"offer_id"`
	GuestID string `json:"guest_id"`
	// PassengerName defaults to the guest's name.
	PassengerName string `json:"passenger_name" validate:"max=200"`
}

type Service interface {
	CreateOffer(ctx context.Context, req CreateOfferRequest) (Offer, error)
	GetOffer(ctx context.Context, offerID string) (OfferDetail, error)
	ListActiveOffers(ctx context.Context) ([]OfferDetail, error)
	CancelOffer(ctx context.Context, offerID string) (Offer, error)

	JoinOffer(ctx context.Context, req JoinOfferRequest) (Participant, error)
	GetParticipant(ctx context.Context, participantID string) (Participant, error)
	CancelParticipant(ctx context.Context, participantID string) error
	ListParticipations(ctx context.Context, guestID string) ([]Participation, error)
}

var (
	ErrInvalidID           = errors.New("invalid_id")
	ErrOfferNotFound       = errors.New("carpool_offer_not_found")
	ErrParticipantNotFound = errors.New("carpool_participant_not_found")
	ErrGuestNotFound       = errors.New("guest_not_found")
	ErrActiveOfferExists   = errors.New("active_offer_exists")
	ErrOfferNotActive      = errors.New("carpool_offer_not_active")
	ErrSelfJoinForbidden   = errors.New("self_join_forbidden")
	ErrAlreadyJoined       = errors.New("already_joined")
	ErrFull                = fmt.Errorf("carpool_full: %w", capacity.ErrFull)
)
