package whatsapp

import (
	"context"
	"strings"

	"github.com/smallbiznis/guestlist/internal/notification/domain"
)

type textSender interface {
	SendText(ctx context.Context, phone, text string) error
}

// Channel delivers guest notifications as WhatsApp text messages.
type Channel struct {
	sender textSender
}

func NewChannel(sender textSender) *Channel {
	return &Channel{sender: sender}
}

func (c *Channel) Name() string { return "whatsapp" }

func (c *Channel) Accepts(r domain.Recipient) bool {
	return strings.TrimSpace(r.Phone) != ""
}

func (c *Channel) Send(ctx context.Context, msg domain.Message) error {
	return c.sender.SendText(ctx, msg.Recipient.Phone, formatText(msg))
}

// formatText renders the subject in WhatsApp bold above the body.
func formatText(msg domain.Message) string {
	subject := strings.TrimSpace(msg.Subject)
	body := strings.TrimSpace(msg.Body)
	if subject == "" {
		return body
	}
	return "*" + subject + "*\n\n" + body
}

var _ domain.Channel = (*Channel)(nil)
