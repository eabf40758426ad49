package notification

import (
	"github.com/smallbiznis/guestlist/internal/notification/domain"
	"github.com/smallbiznis/guestlist/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(service.New),
	fx.Provide(func(d *service.Dispatcher) domain.Notifier { return d }),
)
