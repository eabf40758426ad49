package whatsapp

import (
	"context"

	"github.com/smallbiznis/guestlist/internal/config"
	guestdomain "github.com/smallbiznis/guestlist/internal/guest/domain"
	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.whatsapp",
	fx.Provide(NewFromConfig),
	fx.Provide(
		fx.Annotate(
			newNotificationChannel,
			fx.ResultTags(`group:"notification.channels"`),
		),
	),
	fx.Invoke(registerLifecycle),
)

// NewFromConfig returns nil when WhatsApp is disabled.
func NewFromConfig(cfg config.Config, log *zap.Logger) (*Client, error) {
	if !cfg.WhatsApp.Enabled {
		log.Info("whatsapp channel disabled")
		return nil, nil
	}
	return NewClient(context.Background(), Config{
		DataDir:       cfg.WhatsApp.DataDir,
		CountryPrefix: cfg.WhatsApp.CountryPrefix,
	}, log)
}

func newNotificationChannel(c *Client) domain.Channel {
	if c == nil {
		return nil
	}
	return NewChannel(c)
}

// registerLifecycle connects on start and routes inbound replies to the
// guest service. The guest service depends on the notification channels, so
// the reply handler is attached after construction.
func registerLifecycle(lc fx.Lifecycle, c *Client, guests guestdomain.Service) {
	if c == nil {
		return
	}
	c.SetReplyHandler(guests)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return c.Connect(ctx)
		},
		OnStop: func(ctx context.Context) error {
			c.Disconnect()
			return nil
		},
	})
}
