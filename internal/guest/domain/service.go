package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/guestlist/pkg/db/pagination"
)

type CreateGuestRequest struct {
	Name            string     `json:"name" validate:"required,max=200"`
	Email           string     `json:"email" validate:"required,email,max=320"`
	Phone           string     `json:"phone,omitempty" validate:"omitempty,phone"`
	RSVPDeadline    *time.Time `json:"rsvp_deadline,omitempty"`
	TableAssignment string     `json:"table_assignment,omitempty" validate:"max=100"`
	// LinkedAccountID links the new guest on self-registration.
	LinkedAccountID string `json:"-"`
}

// ResponsePayload is what a guest fills in alongside their decision. A
// submission replaces every field previously stored.
type ResponsePayload struct {
	Email            string            `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Phone            string            `json:"phone,omitempty" validate:"omitempty,phone"`
	PlusOne          *PlusOne          `json:"plus_one,omitempty"`
	DietaryNeeds     []string          `json:"dietary_needs,omitempty" validate:"max=20,dive,max=100"`
	Allergies        []string          `json:"allergies,omitempty" validate:"max=20,dive,max=100"`
	SpecialRequests  string            `json:"special_requests,omitempty" validate:"max=2000"`
	AdditionalGuests []AdditionalGuest `json:"additional_guests,omitempty" validate:"max=20,dive"`
}

type SubmitResponseRequest struct {
	GuestID string
	Status  RSVPStatus
	// Payload nil keeps the stored details and only records the decision.
	Payload *ResponsePayload
	// Method defaults to MethodGuestForm.
	Method string
}

type OverrideStatusRequest struct {
	GuestID string
	Status  RSVPStatus
	Reason  string
}

// TransitionResult reports everything one accepted transition changed.
type TransitionResult struct {
	Guest            Guest                   `json:"guest"`
	History          HistoryEntry            `json:"history"`
	AdditionalGuests []Guest                 `json:"additional_guests,omitempty"`
	Archived         bool                    `json:"archived"`
	Restored         bool                    `json:"restored"`
	Communications   []CommunicationLogEntry `json:"communications,omitempty"`
}

type SearchRequest struct {
	Text            string
	Status          RSVPStatus
	LinkedOnly      bool
	IncludeArchived bool
	PageToken       string
	PageSize        int
}

type SearchFilter struct {
	Text            string
	Status          RSVPStatus
	LinkedOnly      bool
	IncludeArchived bool
}

type SearchResponse struct {
	pagination.PageInfo
	Guests []Guest `json:"guests"`
}

// Summary counts non-archived guests by status, plus the archived total.
type Summary struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Declined  int64 `json:"declined"`
	Linked    int64 `json:"linked"`
	Archived  int64 `json:"archived"`
}

type ReminderResult struct {
	Candidates int      `json:"candidates"`
	Queued     int      `json:"queued"`
	GuestIDs   []string `json:"guest_ids"`
}

type InboundReply struct {
	Phone string
	Text  string
}

type Service interface {
	Create(ctx context.Context, req CreateGuestRequest) (Guest, error)
	GetByID(ctx context.Context, id string) (Guest, error)
	GetByAccount(ctx context.Context, accountID string) (Guest, error)

	SubmitResponse(ctx context.Context, req SubmitResponseRequest) (TransitionResult, error)
	OverrideStatus(ctx context.Context, req OverrideStatusRequest) (TransitionResult, error)
	HandleInboundReply(ctx context.Context, reply InboundReply) (TransitionResult, error)

	LinkAccount(ctx context.Context, guestID, accountID string) (Guest, error)
	UnlinkAccount(ctx context.Context, guestID string) (Guest, error)
	Archive(ctx context.Context, guestID string) (Guest, error)
	Restore(ctx context.Context, guestID string) (Guest, error)

	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Summary(ctx context.Context) (Summary, error)
	History(ctx context.Context, guestID string) ([]HistoryEntry, error)
	Communications(ctx context.Context, guestID string) ([]CommunicationLogEntry, error)

	SendReminders(ctx context.Context) (ReminderResult, error)
}

var (
	ErrNotFound             = errors.New("guest_not_found")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrInvalidAccount       = errors.New("invalid_account_id")
	ErrAccountAlreadyLinked = errors.New("account_already_linked")
	ErrUnrecognizedReply    = errors.New("unrecognized_reply")
	ErrReminderInProgress   = errors.New("reminder_in_progress")
)

// ReminderLock keeps concurrent reminder sweeps from double-sending. An
// implementation that is not configured grants every lock.
type ReminderLock interface {
	TryLockReminders(ctx context.Context) (token string, ok bool, err error)
	ReleaseReminders(ctx context.Context, token string) error
}
