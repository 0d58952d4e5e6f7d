// Package di wires the server's dependencies.
package di

import (
	"github.com/aristath/mjhmc/internal/database"
	"github.com/aristath/mjhmc/internal/runs"
	"github.com/aristath/mjhmc/internal/scheduler"
)

// Container holds every long-lived dependency of the server.
type Container struct {
	RunsDB      *database.DB
	RunsRepo    *runs.Repository
	RunsService *runs.Service
	Scheduler   *scheduler.Scheduler // nil when maintenance is disabled
}

// Close releases the container's resources.
func (c *Container) Close() error {
	if c == nil || c.RunsDB == nil {
		return nil
	}
	return c.RunsDB.Close()
}
