package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) SubmitResponse(ctx context.Context, req domain.SubmitResponseRequest) (domain.TransitionResult, error) {
	id, err := s.parseID(req.GuestID)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if req.Status != domain.StatusConfirmed && req.Status != domain.StatusDeclined {
		return domain.TransitionResult{}, domain.ErrInvalidStatus
	}

	var payload *domain.ResponsePayload
	if req.Payload != nil {
		p := normalizePayload(*req.Payload)
		if err := validation.Struct(p); err != nil {
			return domain.TransitionResult{}, err
		}
		payload = &p
	}

	var result domain.TransitionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.lockGuest(ctx, tx, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		t, err := domain.PlanResponse(*guest, req.Status, req.Method, now)
		if err != nil {
			return err
		}

		result, err = s.applyTransition(ctx, tx, guest, t, payload)
		if err != nil {
			return err
		}

		if payload != nil && len(payload.AdditionalGuests) > 0 {
			added, err := s.addAdditionalGuests(ctx, tx, guest, payload.AdditionalGuests, t)
			if err != nil {
				return err
			}
			result.AdditionalGuests = added
		}
		return nil
	})
	if err != nil {
		return domain.TransitionResult{}, err
	}

	s.afterTransition(ctx, result)
	s.notifyReceipt(ctx, result.Guest)
	return result, nil
}

func (s *Service) OverrideStatus(ctx context.Context, req domain.OverrideStatusRequest) (domain.TransitionResult, error) {
	id, err := s.parseID(req.GuestID)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if !req.Status.Valid() {
		return domain.TransitionResult{}, domain.ErrInvalidStatus
	}

	var result domain.TransitionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.lockGuest(ctx, tx, id)
		if err != nil {
			return err
		}
		t, err := domain.PlanOverride(*guest, req.Status, req.Reason, s.clock.Now())
		if err != nil {
			return err
		}
		result, err = s.applyTransition(ctx, tx, guest, t, nil)
		return err
	})
	if err != nil {
		return domain.TransitionResult{}, err
	}

	s.afterTransition(ctx, result)
	return result, nil
}

// HandleInboundReply turns a chat reply from a known phone number into a
// guest response. Unrecognized replies are logged and rejected.
func (s *Service) HandleInboundReply(ctx context.Context, reply domain.InboundReply) (domain.TransitionResult, error) {
	candidates := phoneCandidates(reply.Phone)
	if len(candidates) == 0 {
		return domain.TransitionResult{}, domain.ErrNotFound
	}
	found, err := s.repo.FindByPhone(ctx, s.db, candidates)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if found == nil {
		return domain.TransitionResult{}, domain.ErrNotFound
	}

	text := strings.TrimSpace(reply.Text)
	status, ok := domain.ParseReply(text)
	if !ok {
		entry := s.inboundReplyEntry(found.ID, text, "ignored")
		if err := s.repo.InsertCommunication(ctx, s.db, &entry); err != nil {
			return domain.TransitionResult{}, err
		}
		return domain.TransitionResult{}, domain.ErrUnrecognizedReply
	}

	var result domain.TransitionResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.lockGuest(ctx, tx, found.ID)
		if err != nil {
			return err
		}

		entry := s.inboundReplyEntry(guest.ID, text, domain.CommStatusReceived)
		if err := s.repo.InsertCommunication(ctx, tx, &entry); err != nil {
			return err
		}

		t, err := domain.PlanResponse(*guest, status, domain.MethodWhatsApp, entry.CreatedAt)
		if err != nil {
			return err
		}
		result, err = s.applyTransition(ctx, tx, guest, t, nil)
		if err != nil {
			return err
		}
		result.Communications = append([]domain.CommunicationLogEntry{entry}, result.Communications...)
		return nil
	})
	if err != nil {
		return domain.TransitionResult{}, err
	}

	s.afterTransition(ctx, result)
	s.notifyReceipt(ctx, result.Guest)
	return result, nil
}

// applyTransition writes the status change, its history entry and the
// planned side effects. It must run inside the caller's transaction.
func (s *Service) applyTransition(
	ctx context.Context,
	tx *gorm.DB,
	guest *domain.Guest,
	t domain.Transition,
	payload *domain.ResponsePayload,
) (domain.TransitionResult, error) {
	fields := t.Apply(guest)
	if payload != nil {
		for k, v := range domain.ApplyPayload(guest, *payload) {
			fields[k] = v
		}
	}
	if err := s.repo.Update(ctx, tx, guest.ID, fields); err != nil {
		return domain.TransitionResult{}, err
	}

	history := t.HistoryEntry(s.genID.Generate(), guest.ID)
	if err := s.repo.InsertHistory(ctx, tx, &history); err != nil {
		return domain.TransitionResult{}, err
	}

	result := domain.TransitionResult{
		History:  history,
		Archived: t.Archive,
		Restored: t.Restore,
	}

	if t.LogDecline {
		subject := "RSVP declined"
		entry := domain.CommunicationLogEntry{
			ID:        s.genID.Generate(),
			GuestID:   guest.ID,
			Direction: domain.DirectionInbound,
			Type:      domain.CommRSVPDeclined,
			Subject:   &subject,
			Content:   fmt.Sprintf("%s declined the invitation via %s", guest.Name, t.Method),
			Status:    domain.CommStatusReceived,
			CreatedAt: t.At,
		}
		if err := s.repo.InsertCommunication(ctx, tx, &entry); err != nil {
			return domain.TransitionResult{}, err
		}
		result.Communications = append(result.Communications, entry)
	}

	result.Guest = *guest
	return result, nil
}

// addAdditionalGuests creates confirmed rows for newly disclosed companions.
// Names already added by this guest are skipped so a repeated submission
// does not duplicate them.
func (s *Service) addAdditionalGuests(
	ctx context.Context,
	tx *gorm.DB,
	host *domain.Guest,
	extras []domain.AdditionalGuest,
	t domain.Transition,
) ([]domain.Guest, error) {
	existing, err := s.repo.ListAddedBy(ctx, tx, host.ID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(existing))
	for _, g := range existing {
		known[strings.ToLower(g.Name)] = struct{}{}
	}

	reason := fmt.Sprintf("added by %s (%s)", host.Name, host.ID)
	created := make([]domain.Guest, 0, len(extras))
	for _, extra := range extras {
		key := strings.ToLower(extra.Name)
		if _, ok := known[key]; ok {
			continue
		}
		known[key] = struct{}{}

		at := t.At
		hostID := host.ID
		note := extra.Relationship
		if note == "" {
			note = "guest of " + host.Name
		}
		g := domain.Guest{
			ID:               s.genID.Generate(),
			Name:             extra.Name,
			Email:            extra.Email,
			Phone:            optional(extra.Phone),
			RSVPStatus:       domain.StatusConfirmed,
			RSVPRespondedAt:  &at,
			DietaryNeeds:     domain.NormalizeSet(nil),
			Allergies:        domain.NormalizeSet(nil),
			AddedByGuestID:   &hostID,
			RelationshipNote: &note,
			CreatedAt:        at,
			UpdatedAt:        at,
		}
		if err := s.repo.Insert(ctx, tx, &g); err != nil {
			return nil, err
		}

		history := domain.HistoryEntry{
			ID:           s.genID.Generate(),
			GuestID:      g.ID,
			OldStatus:    domain.StatusPending,
			NewStatus:    domain.StatusConfirmed,
			ChangedAt:    at,
			ChangeMethod: t.Method,
			ChangeReason: &reason,
		}
		if err := s.repo.InsertHistory(ctx, tx, &history); err != nil {
			return nil, err
		}
		created = append(created, g)
	}
	return created, nil
}

func (s *Service) afterTransition(ctx context.Context, result domain.TransitionResult) {
	s.metrics.RecordRSVPTransition(ctx, result.History.ChangeMethod, string(result.History.NewStatus))
	for range result.AdditionalGuests {
		s.metrics.RecordRSVPTransition(ctx, result.History.ChangeMethod, string(domain.StatusConfirmed))
	}
	s.log.Info("rsvp transition",
		zap.String("guest_id", result.Guest.ID.String()),
		zap.String("from", string(result.History.OldStatus)),
		zap.String("to", string(result.History.NewStatus)),
		zap.String("method", result.History.ChangeMethod),
		zap.Bool("archived", result.Archived),
		zap.Int("additional_guests", len(result.AdditionalGuests)),
	)
}

func (s *Service) inboundReplyEntry(guestID snowflake.ID, text, status string) domain.CommunicationLogEntry {
	channel := "whatsapp"
	return domain.CommunicationLogEntry{
		ID:        s.genID.Generate(),
		GuestID:   guestID,
		Direction: domain.DirectionInbound,
		Type:      domain.CommWhatsAppReply,
		Channel:   &channel,
		Content:   text,
		Status:    status,
		CreatedAt: s.clock.Now(),
	}
}

func normalizePayload(p domain.ResponsePayload) domain.ResponsePayload {
	p.Email = validation.NormalizeEmail(p.Email)
	p.Phone = validation.NormalizePhone(p.Phone)
	p.SpecialRequests = strings.TrimSpace(p.SpecialRequests)
	if p.PlusOne != nil {
		plusOne := domain.PlusOne{
			Name:  strings.TrimSpace(p.PlusOne.Name),
			Email: validation.NormalizeEmail(p.PlusOne.Email),
		}
		if plusOne.Name == "" && plusOne.Email == "" {
			p.PlusOne = nil
		} else {
			p.PlusOne = &plusOne
		}
	}
	extras := make([]domain.AdditionalGuest, 0, len(p.AdditionalGuests))
	for _, extra := range p.AdditionalGuests {
		extras = append(extras, domain.AdditionalGuest{
			Name:         strings.TrimSpace(extra.Name),
			Email:        validation.NormalizeEmail(extra.Email),
			Phone:        validation.NormalizePhone(extra.Phone),
			Relationship: strings.TrimSpace(extra.Relationship),
		})
	}
	p.AdditionalGuests = extras
	return p
}

// phoneCandidates lists the stored forms a sender number may match.
func phoneCandidates(raw string) []string {
	normalized := validation.NormalizePhone(raw)
	digits := strings.TrimPrefix(normalized, "+")
	if digits == "" {
		return nil
	}
	return []string{"+" + digits, digits}
}
