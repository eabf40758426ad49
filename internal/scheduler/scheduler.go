package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/guestlist/internal/clock"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	obscontext "github.com/smallbiznis/guestlist/internal/observability/context"
	obsmetrics "github.com/smallbiznis/guestlist/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const JobRSVPReminders = "rsvp_reminders"

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log      *zap.Logger
	GuestSvc guestdomain.Service
	Clock    clock.Clock                  `optional:"true"`
	Metrics  *obsmetrics.SchedulerMetrics `optional:"true"`
	Config   Config                       `optional:"true"`
}

// Scheduler runs periodic maintenance jobs in-process. Jobs that need
// cross-instance exclusion take their own locks.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	clock    clock.Clock
	metrics  *obsmetrics.SchedulerMetrics
	guestSvc guestdomain.Service
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GuestSvc == nil {
		return nil, ErrInvalidConfig
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		clock:    clk,
		metrics:  p.Metrics,
		guestSvc: p.GuestSvc,
	}, nil
}

func (s *Scheduler) jobs() []job {
	return []job{
		{name: JobRSVPReminders, run: s.ReminderJob},
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	log := s.log.With(zap.String("job", name))
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	// a deadline is a soft stop; the next tick picks up the remainder
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job once and joins their errors.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, j.name, j.run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now()

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(name string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(strings.TrimSpace(enabled), name) {
			return true
		}
	}
	return false
}

// ReminderJob sweeps pending guests for RSVP reminders. Another instance
// holding the sweep lock is not an error.
func (s *Scheduler) ReminderJob(ctx context.Context) error {
	result, err := s.guestSvc.SendReminders(ctx)
	if errors.Is(err, guestdomain.ErrReminderInProgress) {
		s.log.Debug("reminder sweep already running elsewhere")
		return nil
	}
	if err != nil {
		return err
	}
	if result.Queued > 0 {
		s.log.Info("rsvp reminders queued",
			zap.Int("candidates", result.Candidates),
			zap.Int("queued", result.Queued),
		)
	}
	return nil
}
