package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	notificationdomain "github.com/smallbiznis/guestlist/internal/notification/domain"
)

func recipientOf(g domain.Guest) notificationdomain.Recipient {
	r := notificationdomain.Recipient{GuestID: g.ID, Name: g.Name, Email: g.Email}
	if g.Phone != nil {
		r.Phone = *g.Phone
	}
	return r
}

func receiptMessage(event config.EventConfig, g domain.Guest) notificationdomain.Message {
	var body string
	switch g.RSVPStatus {
	case domain.StatusConfirmed:
		body = fmt.Sprintf(
			"Hi %s,\n\nThank you for confirming. We look forward to celebrating %s with you on %s at %s.",
			g.Name, event.Name, event.Date, event.Venue,
		)
		if p := g.PlusOne(); p != nil {
			body += fmt.Sprintf("\n\nWe have noted %s as your plus-one.", p.Name)
		}
	default:
		body = fmt.Sprintf(
			"Hi %s,\n\nThank you for letting us know. We are sorry you cannot join us for %s.",
			g.Name, event.Name,
		)
	}
	if hosts := strings.Join(event.Hosts, " & "); hosts != "" {
		body += "\n\n" + hosts
	}

	return notificationdomain.Message{
		Kind:      notificationdomain.KindRSVPConfirmation,
		Recipient: recipientOf(g),
		Subject:   fmt.Sprintf("RSVP received: %s", event.Name),
		Body:      body,
	}
}

func reminderMessage(event config.EventConfig, g domain.Guest) notificationdomain.Message {
	body := fmt.Sprintf(
		"Hi %s,\n\nWe would love to know whether you can join us for %s on %s at %s.",
		g.Name, event.Name, event.Date, event.Venue,
	)
	if g.RSVPDeadline != nil {
		body += fmt.Sprintf(" Please reply by %s.", g.RSVPDeadline.Format("Monday, 2 January 2006"))
	}
	body += "\n\nReply YES to accept or NO to decline."

	return notificationdomain.Message{
		Kind:      notificationdomain.KindRSVPReminder,
		Recipient: recipientOf(g),
		Subject:   fmt.Sprintf("Reminder: please RSVP for %s", event.Name),
		Body:      body,
	}
}

// notifyReceipt hands the confirmation receipt to the notifier. Delivery is
// asynchronous and its outcome never reaches the caller.
func (s *Service) notifyReceipt(ctx context.Context, g domain.Guest) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, receiptMessage(s.eventConfig(), g))
}
