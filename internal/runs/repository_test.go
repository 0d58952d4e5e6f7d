package runs

import (
	"math"
	"testing"
	"time"

	testingpkg "github.com/aristath/mjhmc/internal/testing"
	"github.com/aristath/mjhmc/internal/sampler"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := testingpkg.NewTestDB(t, "runs")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.New(nil).Level(zerolog.Disabled))
}

func testRun(id string, createdAt time.Time) *Run {
	return &Run{
		ID:            id,
		Distribution:  "gaussian",
		Dims:          2,
		Particles:     3,
		Steps:         4,
		Epsilon:       0.1,
		Beta:          0.2,
		Param:         1,
		LeapfrogSteps: 1,
		Rule:          "metropolis",
		Seed:          math.MaxUint64 - 7,
		Summary: Summary{
			Samples:  12,
			Mean:     []float64{0.1, -0.2},
			Variance: []float64{1.1, 0.9},
			Stats:    sampler.Stats{Steps: 4, Jumps: 9, Flow: 6, Flip: 2, Corrupt: 1},
		},
		DurationMs: 42,
		CreatedAt:  createdAt.UTC().Truncate(time.Second),
	}
}

func TestRepository_CreateAndGet(t *testing.T) {
	repo := newTestRepository(t)
	run := testRun("run-1", time.Now())
	samples := testingpkg.NewSampleMatrix(2, 12, 1)

	require.NoError(t, repo.Create(run, samples))

	got, err := repo.GetByID("run-1")
	require.NoError(t, err)
	assert.Equal(t, run, got)

	back, err := repo.Samples("run-1")
	require.NoError(t, err)
	assert.True(t, mat.Equal(samples, back))

	blob, err := repo.SamplesBlob("run-1")
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

func TestRepository_DuplicateID(t *testing.T) {
	repo := newTestRepository(t)
	run := testRun("dup", time.Now())
	require.NoError(t, repo.Create(run, testingpkg.NewSampleMatrix(2, 12, 1)))
	assert.Error(t, repo.Create(run, testingpkg.NewSampleMatrix(2, 12, 2)))
}

func TestRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Samples("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete("missing"), ErrNotFound)
}

func TestRepository_ListNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(testRun(id, base.Add(time.Duration(i)*time.Minute)), testingpkg.NewSampleMatrix(2, 12, uint64(i))))
	}

	runs, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, "a", runs[2].ID)

	runs, err = repo.List(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRepository_Delete(t *testing.T) {
	repo := newTestRepository(t)
	require.NoError(t, repo.Create(testRun("gone", time.Now()), testingpkg.NewSampleMatrix(2, 12, 1)))

	require.NoError(t, repo.Delete("gone"))
	_, err := repo.GetByID("gone")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := repo.List(10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo := newTestRepository(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	created := map[string]time.Time{
		"oldest": base.Add(-96 * time.Hour),
		"old":    base.Add(-48 * time.Hour),
		"fresh":  base,
	}
	var seed uint64
	for id, at := range created {
		seed++
		require.NoError(t, repo.Create(testRun(id, at), testingpkg.NewSampleMatrix(2, 12, seed)))
	}

	n, err := repo.DeleteOlderThan(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	runs, err := repo.List(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "fresh", runs[0].ID)

	n, err = repo.DeleteOlderThan(base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}
