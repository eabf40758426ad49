package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type OfferStatus string

const (
	OfferActive    OfferStatus = "active"
	OfferCancelled OfferStatus = "cancelled"
)

type ParticipantStatus string

const (
	ParticipantConfirmed ParticipantStatus = "confirmed"
	ParticipantCancelled ParticipantStatus = "cancelled"
)

// Offer is a ride a guest drives. BookedSeats is only moved by the capacity
// ledger and never exceeds AvailableSeats.
type Offer struct {
	ID                 snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	DriverGuestID      snowflake.ID `gorm:"not null;index" json:"driver_guest_id"`
	DepartureLocation  string       `gorm:"type:varchar(200);not null" json:"departure_location"`
	DepartureTime      time.Time    `gorm:"not null;index" json:"departure_time"`
	AvailableSeats     int          `gorm:"not null" json:"available_seats"`
	BookedSeats        int          `gorm:"not null;default:0" json:"booked_seats"`
	VehicleDescription *string      `gorm:"type:varchar(200)" json:"vehicle_description,omitempty"`
	ContactPhone       *string      `gorm:"type:varchar(32)" json:"contact_phone,omitempty"`
	SpecialNotes       *string      `gorm:"type:text" json:"special_notes,omitempty"`
	Status             OfferStatus  `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	CancelledAt        *time.Time   `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"not null" json:"updated_at"`
}

func (Offer) TableName() string { return "carpool_offers" }

func (o Offer) Remaining() int {
	if left := o.AvailableSeats - o.BookedSeats; left > 0 {
		return left
	}
	return 0
}

type Participant struct {
	ID                 snowflake.ID      `gorm:"primaryKey;autoIncrement:false" json:"id"`
	OfferID            snowflake.ID      `gorm:"not null;index" json:"offer_id"`
	ParticipantGuestID snowflake.ID      `gorm:"not null;index" json:"participant_guest_id"`
	PassengerName      string            `gorm:"type:varchar(200);not null" json:"passenger_name"`
	Status             ParticipantStatus `gorm:"type:varchar(16);not null;default:'confirmed'" json:"status"`
	CancelledAt        *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null" json:"updated_at"`
}

func (Participant) TableName() string { return "carpool_participants" }

type GuestRef struct {
	ID         snowflake.ID
	Name       string
	IsArchived bool
}

type OfferDetail struct {
	Offer
	Remaining    int           `json:"remaining"`
	Participants []Participant `json:"participants"`
}

// Participation is a guest's seat in someone's offer. Void is set when the
// offer was cancelled; the seat no longer counts even though the row is
// still confirmed.
type Participation struct {
	Participant
	Offer Offer `json:"offer"`
	Void  bool  `json:"void"`
}
