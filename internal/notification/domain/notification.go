package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Kinds of outbound messages.
const (
	KindRSVPConfirmation = "rsvp_confirmation"
	KindRSVPReminder     = "rsvp_reminder"
)

type Recipient struct {
	GuestID snowflake.ID
	Name    string
	Email   string
	Phone   string
}

type Message struct {
	// DispatchID is a ULID assigned by the notifier when empty.
	DispatchID string
	Kind       string
	Recipient  Recipient
	Subject    string
	Body       string
}

// Notifier delivers messages in the background. Notify never blocks on
// delivery and never reports delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, msg Message) string
}

// Channel is one delivery route (email, WhatsApp).
type Channel interface {
	Name() string
	Accepts(r Recipient) bool
	Send(ctx context.Context, msg Message) error
}

// DeliveryRecorder persists the outcome of each delivery attempt.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, msg Message, channel string, sendErr error) error
}

var ErrNoChannel = errors.New("no_delivery_channel")
