// Package capacity guards bounded counters (schedule seats, carpool seats)
// with a single conditional UPDATE, so concurrent reservations can never push
// a counter past its limit.
package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrFull            = errors.New("capacity_full")
	ErrUnknownResource = errors.New("unknown_capacity_resource")
)

// Resource names a counter column and its limit column on one table.
// A NULL limit means unlimited.
type Resource struct {
	Name    string
	Table   string
	Counter string
	Limit   string
	// Guard is an extra predicate a row must satisfy to accept a reservation.
	Guard string
}

var (
	ScheduleSeats = Resource{
		Name:    "schedule",
		Table:   "schedules",
		Counter: "current_bookings",
		Limit:   "max_capacity",
	}
	CarpoolSeats = Resource{
		Name:    "carpool_offer",
		Table:   "carpool_offers",
		Counter: "booked_seats",
		Limit:   "available_seats",
		Guard:   "status = 'active'",
	}
)

func (r Resource) valid() bool {
	return r.Table != "" && r.Counter != "" && r.Limit != ""
}

// Ledger reserves and releases units of capacity. The db argument is the
// caller's transaction so the counter change commits or rolls back together
// with the booking row it pays for.
type Ledger interface {
	TryReserve(ctx context.Context, db *gorm.DB, res Resource, id snowflake.ID) (bool, error)
	Reserve(ctx context.Context, db *gorm.DB, res Resource, id snowflake.ID) error
	Release(ctx context.Context, db *gorm.DB, res Resource, id snowflake.ID) error
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.Metrics `optional:"true"`
}

type ledger struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func New(p Params) Ledger {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &ledger{
		log:     log.Named("capacity.ledger"),
		metrics: p.Metrics,
	}
}

var Module = fx.Module("capacity",
	fx.Provide(New),
)

func (l *ledger) TryReserve(ctx context.Context, db *gorm.DB, res Resource, id snowflake.ID) (bool, error) {
	if !res.valid() {
		return false, ErrUnknownResource
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = %s + 1 WHERE id = ? AND (%s IS NULL OR %s < %s)",
		res.Table, res.Counter, res.Counter, res.Limit, res.Counter, res.Limit,
	)
	if res.Guard != "" {
		query += " AND " + res.Guard
	}

	result := db.WithContext(ctx).Exec(query, id)
	if result.Error != nil {
		return false, result.Error
	}

	granted := result.RowsAffected == 1
	outcome := "granted"
	if !granted {
		outcome = "denied"
		l.log.Debug("capacity reservation denied",
			zap.String("resource", res.Name),
			zap.String("id", id.String()),
		)
	}
	l.metrics.RecordCapacityReservation(ctx, res.Name, outcome)
	return granted, nil
}

func (l *ledger) Reserve(ctx context.Context, db *gorm.DB, res Resource, id snowflake.ID) error {
	granted, err := l.TryReserve(ctx, db, res, id)
	if err != nil {
		return err
	}
	if !granted {
		return ErrFull
	}
	return nil
}

// Release returns one unit. The counter is floored at zero and releasing an
// absent row is not an error.
func (l *ledger) Release(ctx context.Context, db *gorm.DB, res Resource, id snowflake.ID) error {
	if !res.valid() {
		return ErrUnknownResource
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s = CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END WHERE id = ?",
		res.Table, res.Counter, res.Counter, res.Counter,
	)
	if err := db.WithContext(ctx).Exec(query, id).Error; err != nil {
		return err
	}
	l.metrics.RecordCapacityReservation(ctx, res.Name, "released")
	return nil
}
