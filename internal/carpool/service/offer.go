package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/carpool/domain"
	"github.com/smallbiznis/guestlist/internal/validation"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateOffer publishes a ride. A driver has at most one active offer; the
// driver's guest row is locked while that is checked.
func (s *Service) CreateOffer(ctx context.Context, req domain.CreateOfferRequest) (domain.Offer, error) {
	driverID, err := parseID(req.DriverGuestID)
	if err != nil {
		return domain.Offer{}, err
	}
	req.DepartureLocation = strings.TrimSpace(req.DepartureLocation)
	req.ContactPhone = validation.NormalizePhone(req.ContactPhone)
	if err := validation.Struct(req); err != nil {
		return domain.Offer{}, err
	}

	now := s.clock.Now()
	offer := domain.Offer{
		ID:                 s.genID.Generate(),
		DriverGuestID:      driverID,
		DepartureLocation:  req.DepartureLocation,
		DepartureTime:      req.DepartureTime.UTC(),
		AvailableSeats:     req.AvailableSeats,
		VehicleDescription: optional(req.VehicleDescription),
		ContactPhone:       optional(req.ContactPhone),
		SpecialNotes:       optional(req.SpecialNotes),
		Status:             domain.OfferActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockGuest(ctx, tx, driverID); err != nil {
			return err
		}
		existing, err := s.repo.FindActiveOfferByDriver(ctx, tx, driverID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrActiveOfferExists
		}
		return s.repo.InsertOffer(ctx, tx, &offer)
	})
	if err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Offer{}, domain.ErrActiveOfferExists
		}
		return domain.Offer{}, err
	}

	s.log.Info("carpool offer created",
		zap.String("offer_id", offer.ID.String()),
		zap.String("driver_guest_id", driverID.String()),
		zap.Int("available_seats", offer.AvailableSeats),
	)
	return offer, nil
}

func (s *Service) GetOffer(ctx context.Context, offerID string) (domain.OfferDetail, error) {
	id, err := parseID(offerID)
	if err != nil {
		return domain.OfferDetail{}, err
	}
	offer, err := s.loadOffer(ctx, s.db, id)
	if err != nil {
		return domain.OfferDetail{}, err
	}
	participants, err := s.repo.ListParticipants(ctx, s.db, id)
	if err != nil {
		return domain.OfferDetail{}, err
	}
	return domain.OfferDetail{
		Offer:        *offer,
		Remaining:    offer.Remaining(),
		Participants: participants,
	}, nil
}

func (s *Service) ListActiveOffers(ctx context.Context) ([]domain.OfferDetail, error) {
	offers, err := s.repo.ListActiveOffers(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OfferDetail, 0, len(offers))
	for _, offer := range offers {
		out = append(out, domain.OfferDetail{Offer: offer, Remaining: offer.Remaining()})
	}
	return out, nil
}

// CancelOffer withdraws the ride. Participant rows and booked seats are left
// as they were; participations in a cancelled offer read as void.
func (s *Service) CancelOffer(ctx context.Context, offerID string) (domain.Offer, error) {
	id, err := parseID(offerID)
	if err != nil {
		return domain.Offer{}, err
	}

	var offer *domain.Offer
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := s.repo.CancelOffer(ctx, tx, id, s.clock.Now())
		if err != nil {
			return err
		}
		offer, err = s.loadOffer(ctx, tx, id)
		if err != nil {
			return err
		}
		if changed == 0 {
			return domain.ErrOfferNotActive
		}
		return nil
	})
	if err != nil {
		return domain.Offer{}, err
	}

	s.log.Info("carpool offer cancelled",
		zap.String("offer_id", id.String()),
		zap.Int("void_seats", offer.BookedSeats),
	)
	return *offer, nil
}

func (s *Service) ListParticipations(ctx context.Context, guestID string) ([]domain.Participation, error) {
	id, err := parseID(guestID)
	if err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipationsByGuest(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.OfferID)
	}
	offers, err := s.repo.FindOffersByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]domain.Offer, len(offers))
	for _, o := range offers {
		byID[o.ID] = o
	}

	out := make([]domain.Participation, 0, len(participants))
	for _, p := range participants {
		offer := byID[p.OfferID]
		out = append(out, domain.Participation{
			Participant: p,
			Offer:       offer,
			Void:        p.Status == domain.ParticipantConfirmed && offer.Status != domain.OfferActive,
		})
	}
	return out, nil
}
