package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/guestlist/internal/authorization"
	"github.com/smallbiznis/guestlist/internal/capacity"
	"github.com/smallbiznis/guestlist/internal/carpool"
	"github.com/smallbiznis/guestlist/internal/clock"
	"github.com/smallbiznis/guestlist/internal/config"
	"github.com/smallbiznis/guestlist/internal/guest"
	"github.com/smallbiznis/guestlist/internal/migration"
	"github.com/smallbiznis/guestlist/internal/notification"
	"github.com/smallbiznis/guestlist/internal/observability"
	"github.com/smallbiznis/guestlist/internal/providers"
	"github.com/smallbiznis/guestlist/internal/ratelimit"
	"github.com/smallbiznis/guestlist/internal/scheduler"
	"github.com/smallbiznis/guestlist/internal/server"
	"github.com/smallbiznis/guestlist/internal/transport"
	"github.com/smallbiznis/guestlist/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,
		authorization.Module,

		// Functional Domains
		capacity.Module,
		guest.Module,
		transport.Module,
		carpool.Module,
		notification.Module,
		providers.Module,
		scheduler.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
