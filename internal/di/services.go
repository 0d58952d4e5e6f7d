package di

import (
	"github.com/aristath/mjhmc/internal/config"
	"github.com/aristath/mjhmc/internal/runs"
	"github.com/rs/zerolog"
)

// InitializeServices creates repositories and services on top of the databases.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) {
	container.RunsRepo = runs.NewRepository(container.RunsDB.Conn(), log)
	container.RunsService = runs.NewService(container.RunsRepo, runs.ServiceConfig{
		Defaults: runs.Defaults{
			Epsilon: cfg.Epsilon,
			Beta:    cfg.Beta,
		},
		MaxSamples: cfg.MaxSamples,
		Workers:    cfg.Workers,
	}, log)
}
