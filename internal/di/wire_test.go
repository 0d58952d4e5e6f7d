package di

import (
	"context"
	"testing"

	"github.com/aristath/mjhmc/internal/config"
	"github.com/aristath/mjhmc/internal/runs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:    t.TempDir(),
		Port:       8002,
		Workers:    2,
		MaxSamples: 1000,
		Epsilon:    0.1,
		Beta:       0.1,

		MaintenanceSchedule: "@hourly",
		RetentionDays:       30,
	}
}

func TestWire(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	container, err := Wire(testConfig(t), log)
	require.NoError(t, err)
	defer container.Close()

	require.NotNil(t, container.RunsDB)
	require.NotNil(t, container.RunsRepo)
	require.NotNil(t, container.RunsService)
	require.NotNil(t, container.Scheduler)
	assert.Equal(t, "runs", container.RunsDB.Name())

	run, _, err := container.RunsService.Execute(context.Background(), runs.Request{Dims: 1, Particles: 2, Steps: 3, Seed: 1})
	require.NoError(t, err)
	_, err = container.RunsRepo.GetByID(run.ID)
	assert.NoError(t, err)

	// The configured cap applies.
	_, _, err = container.RunsService.Execute(context.Background(), runs.Request{Dims: 10, Particles: 10, Steps: 11})
	assert.ErrorIs(t, err, runs.ErrInvalidRequest)
}

func TestWire_MaintenanceDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaintenanceSchedule = ""
	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.Close()
	assert.Nil(t, container.Scheduler)
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaintenanceSchedule = "whenever"
	_, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestWire_NilConfig(t *testing.T) {
	_, err := Wire(nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestContainer_CloseNil(t *testing.T) {
	var c *Container
	assert.NoError(t, c.Close())
}
