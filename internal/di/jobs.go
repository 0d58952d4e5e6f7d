package di

import (
	"fmt"

	"github.com/aristath/mjhmc/internal/config"
	"github.com/aristath/mjhmc/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeScheduler registers the maintenance jobs. The scheduler is left
// nil when no maintenance schedule is configured.
func InitializeScheduler(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if cfg.MaintenanceSchedule == "" {
		log.Info().Msg("Maintenance scheduler disabled")
		return nil
	}

	sched := scheduler.New(log)

	walJob := scheduler.NewWALCheckpointJob(container.RunsDB, log)
	if err := sched.AddJob(cfg.MaintenanceSchedule, walJob); err != nil {
		return fmt.Errorf("failed to register %s job: %w", walJob.Name(), err)
	}

	if retention := cfg.Retention(); retention > 0 {
		retentionJob, err := scheduler.NewRetentionJob(container.RunsRepo, retention, log)
		if err != nil {
			return err
		}
		if err := sched.AddJob(cfg.MaintenanceSchedule, retentionJob); err != nil {
			return fmt.Errorf("failed to register %s job: %w", retentionJob.Name(), err)
		}
	}

	container.Scheduler = sched
	return nil
}
