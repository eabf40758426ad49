package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/guestlist/internal/config"
	"go.uber.org/fx"
)

const (
	keyGuestForm    = "guestlist:ratelimit:guest_form:%s"
	keyBooking      = "guestlist:ratelimit:booking:%s"
	keyReminderLock = "guestlist:lock:reminders"
)

// Limiter throttles guest-facing writes per caller and serializes reminder
// sweeps across instances. A nil or disabled Limiter allows everything.
type Limiter struct {
	enabled bool
	client  redis.UniversalClient

	bucket *TokenBucket
	locker *Locker

	guestFormRate  float64
	guestFormBurst int
	bookingRate    float64
	bookingBurst   int
	lockTTL        time.Duration
}

func New(lc fx.Lifecycle, cfg config.Config) (*Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})
	if lc != nil {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
	}
	return NewWithClient(client, limitCfg)
}

func NewWithClient(client redis.UniversalClient, limitCfg config.RateLimitConfig) (*Limiter, error) {
	if limitCfg.GuestFormRate <= 0 || limitCfg.GuestFormBurst <= 0 {
		return nil, errors.New("guest form rate limit must be positive")
	}
	if limitCfg.BookingRate <= 0 || limitCfg.BookingBurst <= 0 {
		return nil, errors.New("booking rate limit must be positive")
	}
	ttl := time.Duration(limitCfg.ReminderLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Limiter{
		enabled:        true,
		client:         client,
		bucket:         NewTokenBucket(client),
		locker:         NewLocker(client),
		guestFormRate:  limitCfg.GuestFormRate,
		guestFormBurst: limitCfg.GuestFormBurst,
		bookingRate:    limitCfg.BookingRate,
		bookingBurst:   limitCfg.BookingBurst,
		lockTTL:        ttl,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowGuestForm limits RSVP submissions per caller key (account or IP).
func (l *Limiter) AllowGuestForm(ctx context.Context, caller string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyGuestForm, strings.TrimSpace(caller)), l.guestFormRate, l.guestFormBurst)
}

// AllowBooking limits seat and carpool reservations per caller key.
func (l *Limiter) AllowBooking(ctx context.Context, caller string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyBooking, strings.TrimSpace(caller)), l.bookingRate, l.bookingBurst)
}

func (l *Limiter) TryLockReminders(ctx context.Context) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.locker.TryLock(ctx, keyReminderLock, l.lockTTL)
}

func (l *Limiter) ReleaseReminders(ctx context.Context, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.locker.Release(ctx, keyReminderLock, token)
}
