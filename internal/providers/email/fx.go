package email

import (
	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
	fx.Provide(
		fx.Annotate(
			newNotificationChannel,
			fx.ResultTags(`group:"notification.channels"`),
		),
	),
)

func NewFromConfig(cfg config.Config) Provider {
	if !cfg.Email.Enabled {
		return &NoOpProvider{}
	}
	return NewSMTP(Config{
		Host:        cfg.Email.SMTPHost,
		Port:        cfg.Email.SMTPPort,
		Username:    cfg.Email.SMTPUsername,
		Password:    cfg.Email.SMTPPassword,
		From:        cfg.Email.SMTPFrom,
		TemplateDir: cfg.Email.TemplateDir,
	})
}

type channelParams struct {
	fx.In

	Config   config.Config
	Provider Provider
	Events   *config.EventConfigHolder `optional:"true"`
	Log      *zap.Logger
}

func newNotificationChannel(p channelParams) domain.Channel {
	if !p.Config.Email.Enabled {
		p.Log.Info("email channel disabled")
		return nil
	}
	return NewChannel(p.Provider, p.Events)
}
