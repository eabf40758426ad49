package email

import (
	"context"
	"strings"

	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/notification/domain"
)

// Channel delivers guest notifications by email using one template per
// message kind.
type Channel struct {
	provider Provider
	events   *config.EventConfigHolder
}

func NewChannel(provider Provider, events *config.EventConfigHolder) *Channel {
	return &Channel{provider: provider, events: events}
}

func (c *Channel) Name() string { return "email" }

func (c *Channel) Accepts(r domain.Recipient) bool {
	return strings.Contains(r.Email, "@")
}

func (c *Channel) Send(ctx context.Context, msg domain.Message) error {
	event := config.DefaultEventConfig()
	if c.events != nil {
		event = c.events.Get()
	}
	return c.provider.SendTemplate(ctx, []string{msg.Recipient.Email}, templateFor(msg.Kind), TemplateData{
		Subject:   msg.Subject,
		GuestName: msg.Recipient.Name,
		EventName: event.Name,
		Body:      msg.Body,
	})
}

func templateFor(kind string) string {
	switch kind {
	case domain.KindRSVPConfirmation, domain.KindRSVPReminder:
		return kind
	default:
		return "generic"
	}
}

var _ domain.Channel = (*Channel)(nil)
