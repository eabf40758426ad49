package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/guestlist/internal/guest/domain"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LinkAccount attaches an external account to a guest. An account belongs to
// at most one guest; relinking the same pair is a no-op.
func (s *Service) LinkAccount(ctx context.Context, guestID, accountID string) (domain.Guest, error) {
	id, err := s.parseID(guestID)
	if err != nil {
		return domain.Guest{}, err
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.Guest{}, domain.ErrInvalidAccount
	}

	var out domain.Guest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.lockGuest(ctx, tx, id)
		if err != nil {
			return err
		}
		if guest.LinkedAccountID != nil && *guest.LinkedAccountID == accountID {
			out = *guest
			return nil
		}

		holder, err := s.repo.FindByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if holder != nil && holder.ID != guest.ID {
			return domain.ErrAccountAlreadyLinked
		}

		now := s.clock.Now()
		if err := s.repo.Update(ctx, tx, guest.ID, map[string]any{
			"linked_account_id": accountID,
			"updated_at":        now,
		}); err != nil {
			return err
		}
		guest.LinkedAccountID = &accountID
		guest.UpdatedAt = now
		out = *guest
		return nil
	})
	if err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Guest{}, domain.ErrAccountAlreadyLinked
		}
		return domain.Guest{}, err
	}

	s.log.Info("account linked", zap.String("guest_id", out.ID.String()))
	return out, nil
}

func (s *Service) UnlinkAccount(ctx context.Context, guestID string) (domain.Guest, error) {
	return s.mutate(ctx, guestID, func(g *domain.Guest) map[string]any {
		if g.LinkedAccountID == nil {
			return nil
		}
		g.LinkedAccountID = nil
		return map[string]any{"linked_account_id": nil}
	})
}

// Archive hides a guest from active views without touching the RSVP status.
func (s *Service) Archive(ctx context.Context, guestID string) (domain.Guest, error) {
	return s.mutate(ctx, guestID, func(g *domain.Guest) map[string]any {
		if g.IsArchived {
			return nil
		}
		at := s.clock.Now()
		g.IsArchived = true
		g.ArchivedAt = &at
		return map[string]any{"is_archived": true, "archived_at": &at}
	})
}

func (s *Service) Restore(ctx context.Context, guestID string) (domain.Guest, error) {
	return s.mutate(ctx, guestID, func(g *domain.Guest) map[string]any {
		if !g.IsArchived {
			return nil
		}
		g.IsArchived = false
		g.ArchivedAt = nil
		return map[string]any{"is_archived": false, "archived_at": nil}
	})
}

// mutate locks a guest, lets change edit it and persists the returned
// columns. A nil result means nothing changed.
func (s *Service) mutate(ctx context.Context, guestID string, change func(*domain.Guest) map[string]any) (domain.Guest, error) {
	id, err := s.parseID(guestID)
	if err != nil {
		return domain.Guest{}, err
	}

	var out domain.Guest
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		guest, err := s.lockGuest(ctx, tx, id)
		if err != nil {
			return err
		}
		fields := change(guest)
		if len(fields) > 0 {
			guest.UpdatedAt = s.clock.Now()
			fields["updated_at"] = guest.UpdatedAt
			if err := s.repo.Update(ctx, tx, guest.ID, fields); err != nil {
				return err
			}
		}
		out = *guest
		return nil
	})
	if err != nil {
		return domain.Guest{}, err
	}
	return out, nil
}
