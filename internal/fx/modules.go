package fx

import (
	"go.uber.org/fx"

	"mspt-tracker/internal/api"
	"mspt-tracker/internal/config"
	"mspt-tracker/internal/database"
	"mspt-tracker/internal/logger"
	"mspt-tracker/internal/repository"
	"mspt-tracker/internal/server"
	"mspt-tracker/internal/service"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewAccountMapRepository),
	// api clients
	fx.Provide(api.NewSapkClient),
	fx.Provide(api.NewMajsoulClient),
	// svc
	fx.Provide(service.NewObservationService),
	fx.Provide(service.NewStatsService),
	fx.Provide(service.NewResolver),
	// server
	fx.Provide(server.NewTrackerServer),
)
