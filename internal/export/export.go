// Package export serializes sample matrices with msgpack. The same envelope is
// used for CLI output files and for the blobs kept in the run store.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// Version of the envelope layout.
const Version = 1

// ContentType is the media type served for encoded samples.
const ContentType = "application/msgpack"

// ErrFormat is returned for payloads that are not a valid sample envelope.
var ErrFormat = errors.New("invalid sample envelope")

// envelope stores the matrix column-major: column j (one emitted sample)
// occupies Data[j*Rows : (j+1)*Rows].
type envelope struct {
	Version int       `msgpack:"version"`
	Rows    int       `msgpack:"rows"`
	Cols    int       `msgpack:"cols"`
	Data    []float64 `msgpack:"data"`
}

// Encode serializes m. A nil or empty matrix encodes as 0×0.
func Encode(m *mat.Dense) ([]byte, error) {
	env := envelope{Version: Version}
	if m != nil && !m.IsEmpty() {
		env.Rows, env.Cols = m.Dims()
		env.Data = make([]float64, 0, env.Rows*env.Cols)
		col := make([]float64, env.Rows)
		for j := 0; j < env.Cols; j++ {
			mat.Col(col, j, m)
			env.Data = append(env.Data, col...)
		}
	}

	b, err := msgpack.Marshal(&env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal samples: %w", err)
	}
	return b, nil
}

// Decode parses an envelope produced by Encode. A 0×0 envelope decodes to an
// empty matrix.
func Decode(b []byte) (*mat.Dense, error) {
	var env envelope
	if err := msgpack.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if env.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, env.Version)
	}
	if env.Rows < 0 || env.Cols < 0 || len(env.Data) != env.Rows*env.Cols {
		return nil, fmt.Errorf("%w: %d values for a %dx%d matrix", ErrFormat, len(env.Data), env.Rows, env.Cols)
	}
	if env.Rows == 0 || env.Cols == 0 {
		return &mat.Dense{}, nil
	}

	m := mat.NewDense(env.Rows, env.Cols, nil)
	for j := 0; j < env.Cols; j++ {
		m.SetCol(j, env.Data[j*env.Rows:(j+1)*env.Rows])
	}
	return m, nil
}

// WriteFile encodes m to path, creating parent directories as needed.
func WriteFile(path string, m *mat.Dense) error {
	b, err := Encode(m)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// ReadFile decodes the samples stored at path.
func ReadFile(path string) (*mat.Dense, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	return Decode(b)
}
