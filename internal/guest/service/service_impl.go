package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/clock"
	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/guest/domain"
	notificationdomain "github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/smallbiznis/guestlist/internal/observability/metrics"
	"github.com/smallbiznis/guestlist/internal/validation"
	dbpkg "github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Clock    clock.Clock                 `optional:"true"`
	Events   *config.EventConfigHolder   `optional:"true"`
	Notifier notificationdomain.Notifier `optional:"true"`
	Lock     domain.ReminderLock         `optional:"true"`
	Metrics  *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	events   *config.EventConfigHolder
	notifier notificationdomain.Notifier
	lock     domain.ReminderLock
	metrics  *metrics.Metrics
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
		db:       p.DB,
		log:      p.Log.Named("guest.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    clk,
		events:   p.Events,
		notifier: p.Notifier,
		lock:     p.Lock,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateGuestRequest) (domain.Guest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = validation.NormalizeEmail(req.Email)
	req.Phone = validation.NormalizePhone(req.Phone)
	req.TableAssignment = strings.TrimSpace(req.TableAssignment)
	if err := validation.Struct(req); err != nil {
		return domain.Guest{}, err
	}

	now := s.clock.Now()
	guest := domain.Guest{
		ID:           s.genID.Generate(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        optional(req.Phone),
		RSVPStatus:   domain.StatusPending,
		DietaryNeeds: domain.NormalizeSet(nil),
		Allergies:    domain.NormalizeSet(nil),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.RSVPDeadline != nil {
		deadline := req.RSVPDeadline.UTC()
		guest.RSVPDeadline = &deadline
	}
	guest.TableAssignment = optional(req.TableAssignment)
	if account := strings.TrimSpace(req.LinkedAccountID); account != "" {
		guest.LinkedAccountID = &account
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if guest.LinkedAccountID != nil {
			existing, err := s.repo.FindByAccount(ctx, tx, *guest.LinkedAccountID)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrAccountAlreadyLinked
			}
		}
		return s.repo.Insert(ctx, tx, &guest)
	})
	if err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return domain.Guest{}, domain.ErrAccountAlreadyLinked
		}
		return domain.Guest{}, err
	}

	s.log.Info("guest created",
		zap.String("guest_id", guest.ID.String()),
		zap.Bool("self_registered", guest.LinkedAccountID != nil),
	)
	return guest, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Guest, error) {
	guestID, err := s.parseID(id)
	if err != nil {
		return domain.Guest{}, err
	}
	return s.load(ctx, s.db, guestID)
}

func (s *Service) GetByAccount(ctx context.Context, accountID string) (domain.Guest, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return domain.Guest{}, domain.ErrInvalidAccount
	}
	guest, err := s.repo.FindByAccount(ctx, s.db, accountID)
	if err != nil {
		return domain.Guest{}, err
	}
	if guest == nil {
		return domain.Guest{}, domain.ErrNotFound
	}
	return *guest, nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id snowflake.ID) (domain.Guest, error) {
	guest, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return domain.Guest{}, err
	}
	if guest == nil {
		return domain.Guest{}, domain.ErrNotFound
	}
	return *guest, nil
}

func (s *Service) lockGuest(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*domain.Guest, error) {
	guest, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		return nil, domain.ErrNotFound
	}
	return guest, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func (s *Service) eventConfig() config.EventConfig {
	if s.events == nil {
		return config.DefaultEventConfig()
	}
	return s.events.Get()
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
