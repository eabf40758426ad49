package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/capacity"
	"github.com/smallbiznis/guestlist/internal/carpool/domain"
	"github.com/smallbiznis/guestlist/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Ledger capacity.Ledger
	Clock  clock.Clock `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	ledger capacity.Ledger
	clock  clock.Clock
}

func New(p Params) domain.Service {
	return newService(p)
}

func newService(p Params) *Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("carpool.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		ledger: p.Ledger,
		clock:  clk,
	}
}

func (s *Service) lockGuest(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.GuestRef, error) {
	guest, err := s.repo.LockGuest(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, domain.ErrGuestNotFound
	}
	return guest, nil
}

func (s *Service) loadOffer(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Offer, error) {
	offer, err := s.repo.FindOffer(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if offer == nil {
		return nil, domain.ErrOfferNotFound
	}
	return offer, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
