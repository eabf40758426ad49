package authorization

import (
	"context"
	"errors"
)

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

const (
	ObjectGuest     = "guest"
	ObjectDirectory = "guest_directory"
	ObjectReminder  = "reminder"
	ObjectTransport = "transport"
	ObjectBooking   = "booking"
	ObjectCarpool   = "carpool"
)

const (
	ActionGuestView     = "guest.view"
	ActionGuestCreate   = "guest.create"
	ActionGuestRespond  = "guest.respond"
	ActionGuestOverride = "guest.override"
	ActionGuestLink     = "guest.link"
	ActionGuestArchive  = "guest.archive"

	ActionDirectoryView = "guest_directory.view"
	ActionReminderSend  = "reminder.send"

	ActionTransportView   = "transport.view"
	ActionTransportManage = "transport.manage"

	ActionBookingView   = "booking.view"
	ActionBookingCreate = "booking.create"
	ActionBookingCancel = "booking.cancel"

	ActionCarpoolView   = "carpool.view"
	ActionCarpoolOffer  = "carpool.offer"
	ActionCarpoolJoin   = "carpool.join"
	ActionCarpoolCancel = "carpool.cancel"
)

// Actor is the authenticated caller. Role comes from the bearer token.
type Actor struct {
	AccountID string
	Role      string
}

type Service interface {
	Authorize(ctx context.Context, actor Actor, object string, action string) error
}

var (
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
