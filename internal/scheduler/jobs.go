package scheduler

import (
	"fmt"
	"time"

	"github.com/aristath/mjhmc/internal/database"
	"github.com/rs/zerolog"
)

// WALCheckpointJob checkpoints the run store's write-ahead log. Sample blobs
// make the WAL grow quickly under load.
type WALCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates a checkpoint job for db.
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the checkpoint
func (j *WALCheckpointJob) Run() error {
	before, err := j.db.GetStats()
	if err != nil {
		return err
	}
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return err
	}

	j.log.Debug().
		Str("database", j.db.Name()).
		Int64("wal_bytes_before", before.WALSizeBytes).
		Msg("WAL checkpoint completed")
	return nil
}

// RunPruner deletes runs created before a cutoff.
type RunPruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// RetentionJob removes runs older than the retention window.
type RetentionJob struct {
	runs      RunPruner
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRetentionJob creates a retention job. retention must be positive.
func NewRetentionJob(runs RunPruner, retention time.Duration, log zerolog.Logger) (*RetentionJob, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}
	return &RetentionJob{
		runs:      runs,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("job", "run_retention").Logger(),
	}, nil
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "run_retention"
}

// Run deletes expired runs
func (j *RetentionJob) Run() error {
	cutoff := j.now().Add(-j.retention)
	n, err := j.runs.DeleteOlderThan(cutoff)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	if n > 0 {
		j.log.Info().
			Int64("deleted", n).
			Time("cutoff", cutoff).
			Msg("Expired runs deleted")
	}
	return nil
}
