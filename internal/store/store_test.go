package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/observe-l/phylink/internal/sim"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveRunAndReadBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	points := []sim.Point{
		{SNRdB: 2, Trials: 10, Bits: 1280, BitErrors: 3, FrameErrors: 1, BER: 3.0 / 1280, FER: 0.1},
		{SNRdB: -1, Trials: 10, Bits: 1280, BitErrors: 200, FrameErrors: 9, BER: 200.0 / 1280, FER: 0.9},
	}
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.SaveRun(ctx, Run{
		CreatedAt: created, Scheme: "Polar(128,64)", Modulation: "BPSK", Method: "SCL",
		Seed: math.MaxUint64, Trials: 10, MessageBits: 128,
	}, points)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	run, err := s.Run(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Polar(128,64)", run.Scheme)
	assert.Equal(t, uint64(math.MaxUint64), run.Seed)
	assert.True(t, created.Equal(run.CreatedAt))

	got, err := s.Points(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, points[1], got[0], "points come back ordered by SNR")
	assert.Equal(t, points[0], got[1])
}

func TestRunNotFound(t *testing.T) {
	s := openTemp(t)
	_, err := s.Run(context.Background(), "missing")
	require.ErrorIs(t, err, ErrRunNotFound)
	pts, err := s.Points(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, pts)
}

func TestDuplicatePointRollsBack(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	_, err := s.SaveRun(ctx, Run{ID: "dup", Scheme: "None"}, []sim.Point{{SNRdB: 1}, {SNRdB: 1}})
	require.Error(t, err)
	_, err = s.Run(ctx, "dup")
	require.ErrorIs(t, err, ErrRunNotFound)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}
