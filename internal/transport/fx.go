package transport

import (
	"github.com/smallbiznis/guestlist/internal/transport/repository"
	"github.com/smallbiznis/guestlist/internal/transport/service"
	"go.uber.org/fx"
)

var Module = fx.Module("transport.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
