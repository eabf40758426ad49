package service

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	notificationdomain "github.com/smallbiznis/guestlist/internal/notification/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SendReminders queues a reminder for every pending guest whose deadline falls
// inside the configured lead time and who has not been reminded within it.
// Each reminder is logged as a queued outbound communication before it is
// handed to the notifier.
func (s *Service) SendReminders(ctx context.Context) (domain.ReminderResult, error) {
	if s.lock != nil {
		token, ok, err := s.lock.TryLockReminders(ctx)
		if err != nil {
			return domain.ReminderResult{}, err
		}
		if !ok {
			return domain.ReminderResult{}, domain.ErrReminderInProgress
		}
		defer func() {
			if err := s.lock.ReleaseReminders(context.WithoutCancel(ctx), token); err != nil {
				s.log.Warn("release reminder lock", zap.Error(err))
			}
		}()
	}

	event := s.eventConfig()
	now := s.clock.Now()
	candidates, err := s.repo.ListReminderCandidates(ctx, s.db, domain.ReminderQuery{
		Now:                    now,
		Cutoff:                 now.Add(event.ReminderLeadTime),
		IncludeWithoutDeadline: event.IncludeWithoutDeadline,
		RemindedSince:          now.Add(-event.ReminderLeadTime),
		Limit:                  event.ReminderBatchSize,
	})
	if err != nil {
		return domain.ReminderResult{}, err
	}

	messages := make([]notificationdomain.Message, 0, len(candidates))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, g := range candidates {
			msg := reminderMessage(event, g)
			msg.DispatchID = ulid.Make().String()

			subject := msg.Subject
			dispatchID := msg.DispatchID
			entry := domain.CommunicationLogEntry{
				ID:         s.genID.Generate(),
				GuestID:    g.ID,
				Direction:  domain.DirectionOutbound,
				Type:       domain.CommRSVPReminder,
				Subject:    &subject,
				Content:    msg.Body,
				Status:     domain.CommStatusQueued,
				DispatchID: &dispatchID,
				CreatedAt:  now,
			}
			if err := s.repo.InsertCommunication(ctx, tx, &entry); err != nil {
				return err
			}
			messages = append(messages, msg)
		}
		return nil
	})
	if err != nil {
		return domain.ReminderResult{}, err
	}

	result := domain.ReminderResult{
		Candidates: len(candidates),
		GuestIDs:   make([]string, 0, len(messages)),
	}
	for _, msg := range messages {
		if s.notifier != nil {
			s.notifier.Notify(ctx, msg)
		}
		result.Queued++
		result.GuestIDs = append(result.GuestIDs, msg.Recipient.GuestID.String())
	}

	s.log.Info("rsvp reminders queued",
		zap.Int("candidates", result.Candidates),
		zap.Int("queued", result.Queued),
		zap.Bool("notifier", s.notifier != nil),
	)
	return result, nil
}
