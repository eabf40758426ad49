package service

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/smallbiznis/guestlist/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Log       *zap.Logger
	Channels  []domain.Channel        `group:"notification.channels"`
	Recorder  domain.DeliveryRecorder `optional:"true"`
	Metrics   *metrics.Metrics        `optional:"true"`
}

type Dispatcher struct {
	log      *zap.Logger
	channels []domain.Channel
	recorder domain.DeliveryRecorder
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

func New(p Params) *Dispatcher {
	channels := make([]domain.Channel, 0, len(p.Channels))
	for _, ch := range p.Channels {
		if ch != nil {
			channels = append(channels, ch)
		}
	}
	d := &Dispatcher{
		log:      p.Log.Named("notification.dispatcher"),
		channels: channels,
		recorder: p.Recorder,
		metrics:  p.Metrics,
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return d.Wait(ctx)
			},
		})
	}
	return d
}

// Notify queues msg for every channel that can reach the recipient and
// returns its dispatch id. The caller's cancellation does not stop delivery.
func (d *Dispatcher) Notify(ctx context.Context, msg domain.Message) string {
	if msg.DispatchID == "" {
		msg.DispatchID = ulid.Make().String()
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("notification delivery panicked",
					zap.String("dispatch_id", msg.DispatchID),
					zap.Any("panic", r),
				)
			}
		}()
		d.deliver(ctx, msg)
	}()
	return msg.DispatchID
}

// Wait blocks until queued deliveries finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg domain.Message) {
	log := d.log.With(
		zap.String("dispatch_id", msg.DispatchID),
		zap.String("kind", msg.Kind),
		zap.String("guest_id", msg.Recipient.GuestID.String()),
	)

	attempted := false
	for _, ch := range d.channels {
		if !ch.Accepts(msg.Recipient) {
			continue
		}
		attempted = true

		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := ch.Send(sendCtx, msg)
		cancel()

		result := "sent"
		if err != nil {
			result = "failed"
			log.Warn("notification delivery failed", zap.String("channel", ch.Name()), zap.Error(err))
		}
		d.metrics.RecordNotification(ctx, ch.Name(), result)
		d.record(ctx, log, msg, ch.Name(), err)
	}

	if !attempted {
		log.Debug("no channel accepts recipient")
		d.record(ctx, log, msg, "none", domain.ErrNoChannel)
	}
}

func (d *Dispatcher) record(ctx context.Context, log *zap.Logger, msg domain.Message, channel string, sendErr error) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordDelivery(ctx, msg, channel, sendErr); err != nil {
		log.Warn("record notification delivery", zap.String("channel", channel), zap.Error(err))
	}
}

var _ domain.Notifier = (*Dispatcher)(nil)
