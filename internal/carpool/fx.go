package carpool

import (
	"github.com/smallbiznis/guestlist/internal/carpool/repository"
	"github.com/smallbiznis/guestlist/internal/carpool/service"
	"go.uber.org/fx"
)

var Module = fx.Module("carpool.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
