package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type RSVPStatus string

const (
	StatusPending   RSVPStatus = "pending"
	StatusConfirmed RSVPStatus = "confirmed"
	StatusDeclined  RSVPStatus = "declined"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusDeclined:
		return true
	}
	return false
}

// Change methods recorded on history entries.
const (
	MethodGuestForm     = "guest_form"
	MethodAdminOverride = "admin_override"
	MethodWhatsApp      = "whatsapp"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Communication types.
const (
	CommRSVPDeclined     = "rsvp_declined"
	CommRSVPConfirmation = "rsvp_confirmation"
	CommRSVPReminder     = "rsvp_reminder"
	CommWhatsAppReply    = "whatsapp_reply"
)

// Communication statuses.
const (
	CommStatusReceived = "received"
	CommStatusQueued   = "queued"
	CommStatusSent     = "sent"
	CommStatusFailed   = "failed"
)

type Guest struct {
	ID               snowflake.ID                `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Name             string                      `gorm:"type:varchar(200);not null" json:"name"`
	Email            string                      `gorm:"type:varchar(320);not null;index" json:"email"`
	Phone            *string                     `gorm:"type:varchar(32);index" json:"phone,omitempty"`
	RSVPStatus       RSVPStatus                  `gorm:"column:rsvp_status;type:varchar(16);not null;default:pending;index" json:"rsvp_status"`
	RSVPRespondedAt  *time.Time                  `gorm:"column:rsvp_responded_at" json:"rsvp_responded_at,omitempty"`
	RSVPDeadline     *time.Time                  `gorm:"column:rsvp_deadline" json:"rsvp_deadline,omitempty"`
	PlusOneName      *string                     `json:"plus_one_name,omitempty"`
	PlusOneEmail     *string                     `json:"plus_one_email,omitempty"`
	DietaryNeeds     datatypes.JSONSlice[string] `json:"dietary_needs"`
	Allergies        datatypes.JSONSlice[string] `json:"allergies"`
	SpecialRequests  *string                     `json:"special_requests,omitempty"`
	TableAssignment  *string                     `json:"table_assignment,omitempty"`
	LinkedAccountID  *string                     `gorm:"type:varchar(191);uniqueIndex:ux_guests_linked_account" json:"linked_account_id,omitempty"`
	AddedByGuestID   *snowflake.ID               `gorm:"index" json:"added_by_guest_id,omitempty"`
	RelationshipNote *string                     `json:"relationship_note,omitempty"`
	IsArchived       bool                        `gorm:"not null;default:false;index" json:"is_archived"`
	ArchivedAt       *time.Time                  `json:"archived_at,omitempty"`
	CreatedAt        time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time                   `gorm:"not null" json:"updated_at"`
}

func (Guest) TableName() string { return "guests" }

// PlusOne returns the companion as a value object, nil when none was given.
func (g Guest) PlusOne() *PlusOne {
	if g.PlusOneName == nil || *g.PlusOneName == "" {
		return nil
	}
	p := &PlusOne{Name: *g.PlusOneName}
	if g.PlusOneEmail != nil {
		p.Email = *g.PlusOneEmail
	}
	return p
}

type HistoryEntry struct {
	ID           snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	GuestID      snowflake.ID `gorm:"not null;index:ix_rsvp_history_guest_changed,priority:1" json:"guest_id"`
	OldStatus    RSVPStatus   `gorm:"type:varchar(16);not null" json:"old_status"`
	NewStatus    RSVPStatus   `gorm:"type:varchar(16);not null" json:"new_status"`
	ChangedAt    time.Time    `gorm:"not null;index:ix_rsvp_history_guest_changed,priority:2" json:"changed_at"`
	ChangeMethod string       `gorm:"type:varchar(32);not null" json:"change_method"`
	ChangeReason *string      `json:"change_reason,omitempty"`
}

func (HistoryEntry) TableName() string { return "rsvp_history_entries" }

type CommunicationLogEntry struct {
	ID        snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	GuestID   snowflake.ID `gorm:"not null;index" json:"guest_id"`
	Direction Direction    `gorm:"type:varchar(16);not null" json:"direction"`
	Type      string       `gorm:"type:varchar(32);not null" json:"type"`
	Channel   *string      `gorm:"type:varchar(32)" json:"channel,omitempty"`
	Subject   *string      `json:"subject,omitempty"`
	Content   string       `gorm:"type:text;not null" json:"content"`
	Status    string       `gorm:"type:varchar(16);not null" json:"status"`
	// DispatchID correlates an outbound entry with its notification.
	DispatchID *string   `gorm:"type:varchar(64);index" json:"dispatch_id,omitempty"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (CommunicationLogEntry) TableName() string { return "communication_log_entries" }

type PlusOne struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=320"`
}

type AdditionalGuest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,phone"`
	Relationship string `json:"relationship,omitempty" validate:"max=200"`
}
