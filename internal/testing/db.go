// Package testing provides test helpers shared across the mjhmc packages.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/mjhmc/internal/database"
)

// NewTestDB creates a migrated SQLite database in a temporary directory.
// name selects the embedded schema (e.g. "runs"). The returned cleanup
// closes the connection; the directory is removed by the test framework.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: database.ProfileCache,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	}
}
