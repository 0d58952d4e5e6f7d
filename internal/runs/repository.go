package runs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/mjhmc/internal/database"
	"github.com/aristath/mjhmc/internal/export"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// Repository persists runs in runs.db. Samples are stored as msgpack blobs
// next to the run metadata.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a run repository on an opened runs database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "runs").Logger(),
	}
}

const runColumns = `id, distribution, dims, particles, steps, epsilon, beta, param,
	leapfrog_steps, rule, seed, summary, duration_ms, created_at`

// Create stores run together with its samples.
func (r *Repository) Create(run *Run, samples *mat.Dense) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	blob, err := export.Encode(samples)
	if err != nil {
		return err
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (`+runColumns+`, samples)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			run.Distribution,
			run.Dims,
			run.Particles,
			run.Steps,
			run.Epsilon,
			run.Beta,
			run.Param,
			run.LeapfrogSteps,
			run.Rule,
			int64(run.Seed), // SQLite integers are signed; the bits round-trip
			string(summary),
			run.DurationMs,
			run.CreatedAt.Unix(),
			blob,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	r.log.Debug().
		Str("run_id", run.ID).
		Int("blob_bytes", len(blob)).
		Msg("Run stored")
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		seed      int64
		summary   string
		createdAt int64
	)
	err := row.Scan(
		&run.ID,
		&run.Distribution,
		&run.Dims,
		&run.Particles,
		&run.Steps,
		&run.Epsilon,
		&run.Beta,
		&run.Param,
		&run.LeapfrogSteps,
		&run.Rule,
		&seed,
		&summary,
		&run.DurationMs,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	run.Seed = uint64(seed)
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to unmarshal summary of run %s: %w", run.ID, err)
	}
	return &run, nil
}

// GetByID returns the run with the given ID or ErrNotFound.
func (r *Repository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List returns up to limit runs, newest first.
func (r *Repository) List(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT `+runColumns+` FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// SamplesBlob returns the encoded samples of a run.
func (r *Repository) SamplesBlob(id string) ([]byte, error) {
	var blob []byte
	err := r.db.QueryRow(`SELECT samples FROM runs WHERE id = ?`, id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get samples of run %s: %w", id, err)
	}
	return blob, nil
}

// Samples returns the decoded samples of a run.
func (r *Repository) Samples(id string) (*mat.Dense, error) {
	blob, err := r.SamplesBlob(id)
	if err != nil {
		return nil, err
	}
	return export.Decode(blob)
}

// Delete removes a run. It returns ErrNotFound if nothing was deleted.
func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes runs created before cutoff and returns how many
// were deleted.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
