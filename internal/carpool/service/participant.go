package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/capacity"
	"github.com/smallbiznis/guestlist/internal/carpool/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// JoinOffer takes one seat in an active offer. The joining guest's row is
// locked so the same guest cannot join twice concurrently.
func (s *Service) JoinOffer(ctx context.Context, req domain.JoinOfferRequest) (domain.Participant, error) {
	offerID, err := parseID(req.OfferID)
	if err != nil {
		return domain.Participant{}, err
	}
	guestID, err := parseID(req.GuestID)
	if err != nil {
		return domain.Participant{}, err
	}
	req.PassengerName = strings.TrimSpace(req.PassengerName)
	if err := validation.Struct(req); err != nil {
		return domain.Participant{}, err
	}

	var participant domain.Participant
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offer, err := s.loadOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if offer.Status != domain.OfferActive {
			return domain.ErrOfferNotActive
		}
		if offer.DriverGuestID == guestID {
			return domain.ErrSelfJoinForbidden
		}

		guest, err := s.lockGuest(ctx, tx, guestID)
		if err != nil {
			return err
		}
		existing, err := s.repo.FindActiveParticipant(ctx, tx, offerID, guestID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyJoined
		}

		if err := s.ledger.Reserve(ctx, tx, capacity.CarpoolSeats, offerID); err != nil {
			if errors.Is(err, capacity.ErrFull) {
				return s.deniedReason(ctx, tx, offerID)
			}
			return err
		}

		passenger := req.PassengerName
		if passenger == "" {
			passenger = guest.Name
		}
		now := s.clock.Now()
		participant = domain.Participant{
			ID:                 s.genID.Generate(),
			OfferID:            offerID,
			ParticipantGuestID: guestID,
			PassengerName:      passenger,
			Status:             domain.ParticipantConfirmed,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return s.repo.InsertParticipant(ctx, tx, &participant)
	})
	if err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Participant{}, domain.ErrAlreadyJoined
		}
		return domain.Participant{}, err
	}

	s.log.Info("carpool joined",
		zap.String("offer_id", offerID.String()),
		zap.String("participant_id", participant.ID.String()),
		zap.String("guest_id", guestID.String()),
	)
	return participant, nil
}

// deniedReason tells a full offer apart from one cancelled after it was read.
func (s *Service) deniedReason(ctx context.Context, tx *gorm.DB, offerID snowflake.ID) error {
	offer, err := s.loadOffer(ctx, tx, offerID)
	if err != nil {
		return err
	}
	if offer.Status != domain.OfferActive {
		return domain.ErrOfferNotActive
	}
	return domain.ErrFull
}

func (s *Service) GetParticipant(ctx context.Context, participantID string) (domain.Participant, error) {
	id, err := parseID(participantID)
	if err != nil {
		return domain.Participant{}, err
	}
	participant, err := s.repo.FindParticipant(ctx, s.db, id)
	if err != nil {
		return domain.Participant{}, err
	}
	if participant == nil {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return *participant, nil
}

// CancelParticipant gives the seat back to an active offer. Cancelling twice
// reports not found.
func (s *Service) CancelParticipant(ctx context.Context, participantID string) error {
	id, err := parseID(participantID)
	if err != nil {
		return err
	}

	var offerID string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participant, err := s.repo.FindParticipant(ctx, tx, id)
		if err != nil {
			return err
		}
		if participant == nil || participant.Status != domain.ParticipantConfirmed {
			return domain.ErrParticipantNotFound
		}
		offer, err := s.loadOffer(ctx, tx, participant.OfferID)
		if err != nil {
			return err
		}
		if offer.Status != domain.OfferActive {
			return domain.ErrOfferNotActive
		}
		offerID = offer.ID.String()

		changed, err := s.repo.CancelParticipant(ctx, tx, id, s.clock.Now())
		if err != nil {
			return err
		}
		if changed == 0 {
			return domain.ErrParticipantNotFound
		}
		return s.ledger.Release(ctx, tx, capacity.CarpoolSeats, offer.ID)
	})
	if err != nil {
		return err
	}

	s.log.Info("carpool participant cancelled",
		zap.String("participant_id", id.String()),
		zap.String("offer_id", offerID),
	)
	return nil
}
