package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aristath/mjhmc/internal/export"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags_Defaults(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "gaussian", o.req.Distribution)
	assert.Equal(t, 2, o.req.Dims)
	assert.Equal(t, 100, o.req.Particles)
	assert.Equal(t, 100, o.req.Steps)
	require.NotNil(t, o.req.Beta)
	assert.Equal(t, 0.1, *o.req.Beta)
	assert.Equal(t, "samples.msgpack", o.out)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"-dims", "x"})
	assert.Error(t, err)
	_, err = parseFlags([]string{"extra"})
	assert.Error(t, err)
}

func TestRun_WritesSamples(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.msgpack")
	o, err := parseFlags([]string{
		"-distribution", "funnel",
		"-dims", "3",
		"-particles", "4",
		"-steps", "5",
		"-beta", "0",
		"-seed", "11",
		"-out", out,
	})
	require.NoError(t, err)

	require.NoError(t, run(context.Background(), o, zerolog.Nop()))

	samples, err := export.ReadFile(out)
	require.NoError(t, err)
	r, c := samples.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 20, c)
}

func TestRun_InvalidRequest(t *testing.T) {
	o, err := parseFlags([]string{"-epsilon", "-1", "-out", filepath.Join(t.TempDir(), "x")})
	require.NoError(t, err)
	assert.Error(t, run(context.Background(), o, zerolog.Nop()))
}
