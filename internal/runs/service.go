package runs

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aristath/mjhmc/internal/energy"
	"github.com/aristath/mjhmc/internal/sampler"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// chunkSteps bounds how many sampling steps run between cancellation checks.
const chunkSteps = 50

// ServiceConfig tunes the run service.
type ServiceConfig struct {
	Defaults   Defaults
	MaxSamples int // cap on dims × particles × steps × leapfrog_steps, <= 0 for none
	Workers    int // sampler worker pool size
}

// Service executes sampler runs and stores their results.
type Service struct {
	repo *Repository
	cfg  ServiceConfig
	log  zerolog.Logger
	now  func() time.Time
}

// NewService creates a run service. A nil repo gives a service that executes
// runs without storing them; its lookups return ErrNoStore.
func NewService(repo *Repository, cfg ServiceConfig, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		cfg:  cfg,
		log:  log.With().Str("service", "runs").Logger(),
		now:  time.Now,
	}
}

// Distributions lists the distributions a request may name.
func (s *Service) Distributions() []string {
	return energy.Names()
}

// Execute validates req, samples the requested distribution and stores the
// run. The context is checked between chunks of sampling steps and once more
// after the last one, so a run that outlives its context is not reported as a
// success.
func (s *Service) Execute(ctx context.Context, req Request) (*Run, *mat.Dense, error) {
	req.ApplyDefaults(s.cfg.Defaults)
	if err := req.Validate(s.cfg.MaxSamples); err != nil {
		return nil, nil, err
	}
	params, err := req.Params()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	dist, err := energy.Lookup(req.Distribution, req.Dims, req.Param)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	seed := req.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}

	log := s.log.With().
		Str("distribution", req.Distribution).
		Uint64("seed", seed).
		Logger()

	// Particle streams use stream ids 0..N-1; the initial draw uses the last one.
	initial := dist.InitialPositions(req.Particles, rand.NewPCG(seed, math.MaxUint64))
	smp, err := sampler.New(initial, dist, params,
		sampler.WithSeed(seed),
		sampler.WithWorkers(s.cfg.Workers),
		sampler.WithLogger(log),
	)
	if err != nil {
		return nil, nil, err
	}

	start := s.now()
	samples := mat.NewDense(req.Dims, req.Steps*req.Particles, nil)
	for done := 0; done < req.Steps; {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("run cancelled after %d steps: %w", done, err)
		}
		k := chunkSteps
		if rest := req.Steps - done; rest < k {
			k = rest
		}
		chunk, err := smp.Sample(k)
		if err != nil {
			log.Error().Err(err).Int("step", done).Msg("Sampling failed")
			return nil, nil, err
		}
		dst := samples.Slice(0, req.Dims, done*req.Particles, (done+k)*req.Particles).(*mat.Dense)
		dst.Copy(chunk)
		done += k
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("run cancelled after %d steps: %w", req.Steps, err)
	}
	elapsed := s.now().Sub(start)

	run := &Run{
		ID:            uuid.New().String(),
		Distribution:  dist.Name(),
		Dims:          req.Dims,
		Particles:     req.Particles,
		Steps:         req.Steps,
		Epsilon:       params.Epsilon,
		Beta:          params.Beta,
		Param:         req.Param,
		LeapfrogSteps: params.LeapfrogSteps,
		Rule:          string(params.Rule),
		Seed:          seed,
		Summary:       Summarize(samples, smp.Stats()),
		DurationMs:    elapsed.Milliseconds(),
		CreatedAt:     s.now().UTC().Truncate(time.Second),
	}

	if s.repo != nil {
		if err := s.repo.Create(run, samples); err != nil {
			return nil, nil, err
		}
	}

	log.Info().
		Str("run_id", run.ID).
		Int("dims", run.Dims).
		Int("particles", run.Particles).
		Int("steps", run.Steps).
		Int("jumps", run.Summary.Stats.Jumps).
		Int64("duration_ms", run.DurationMs).
		Msg("Run completed")

	return run, samples, nil
}

// Get returns a stored run.
func (s *Service) Get(id string) (*Run, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.GetByID(id)
}

// List returns the newest stored runs.
func (s *Service) List(limit int) ([]Run, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.List(limit)
}

// SamplesBlob returns a run's samples in the msgpack export format.
func (s *Service) SamplesBlob(id string) ([]byte, error) {
	if s.repo == nil {
		return nil, ErrNoStore
	}
	return s.repo.SamplesBlob(id)
}

// Delete removes a stored run.
func (s *Service) Delete(id string) error {
	if s.repo == nil {
		return ErrNoStore
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("run_id", id).Msg("Run deleted")
	return nil
}
