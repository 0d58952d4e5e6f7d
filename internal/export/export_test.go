package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

func TestEncode_ColumnMajorLayout(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{
		1, 2, 3,
		4, 5, 6,
	})

	b, err := Encode(m)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, msgpack.Unmarshal(b, &env))
	assert.Equal(t, Version, env.Version)
	assert.Equal(t, 2, env.Rows)
	assert.Equal(t, 3, env.Cols)
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, env.Data)

	back, err := Decode(b)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, back))
}

func TestEncode_Empty(t *testing.T) {
	for _, m := range []*mat.Dense{nil, {}} {
		b, err := Encode(m)
		require.NoError(t, err)
		back, err := Decode(b)
		require.NoError(t, err)
		assert.True(t, back.IsEmpty())
	}
}

func TestDecode_Rejects(t *testing.T) {
	marshal := func(env envelope) []byte {
		b, err := msgpack.Marshal(&env)
		require.NoError(t, err)
		return b
	}

	tests := []struct {
		name string
		in   []byte
	}{
		{"garbage", []byte{0xc1, 0x00}},
		{"wrong version", marshal(envelope{Version: 9, Rows: 1, Cols: 1, Data: []float64{1}})},
		{"short data", marshal(envelope{Version: Version, Rows: 2, Cols: 2, Data: []float64{1, 2, 3}})},
		{"negative shape", marshal(envelope{Version: Version, Rows: -1, Cols: -1, Data: []float64{1}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "samples.msgpack")
	m := mat.NewDense(1, 4, []float64{0.5, -1, 2, 3.25})

	require.NoError(t, WriteFile(path, m))
	_, err := os.Stat(path)
	require.NoError(t, err)

	back, err := ReadFile(path)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, back))

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
