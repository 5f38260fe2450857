package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textfile(t *testing.T, c *Collectors) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phylink.prom")
	require.NoError(t, c.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestObserveHop(t *testing.T) {
	c := New()
	c.ObserveHop("Polar(16,8)", "SC", 8, 1, time.Millisecond)
	c.ObserveHop("Polar(16,8)", "SC", 8, 0, time.Millisecond)
	c.ObserveHop("Hamming(7,4)", "SC", 4, 2, time.Microsecond)

	text := textfile(t, c)
	assert.Contains(t, text, `phylink_transmissions_total{method="SC",scheme="Polar(16,8)"} 2`)
	assert.Contains(t, text, `phylink_bits_total{method="SC",scheme="Polar(16,8)"} 16`)
	assert.Contains(t, text, `phylink_bit_errors_total{method="SC",scheme="Polar(16,8)"} 1`)
	assert.Contains(t, text, `phylink_bit_errors_total{method="SC",scheme="Hamming(7,4)"} 2`)
}

func TestNilCollectorsAreNoop(t *testing.T) {
	var c *Collectors
	c.ObserveHop("None", "SC", 1, 1, time.Second)
	c.SetSweepBER("None", "SC", 0, 0.5)
}

func TestNewWithRejectsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewWith(reg, reg)
	require.NoError(t, err)
	_, err = NewWith(reg, reg)
	require.Error(t, err)
}

func TestWriteTextfile(t *testing.T) {
	c := New()
	c.ObserveHop("Polar", "BP", 100, 3, 2*time.Millisecond)
	c.SetSweepBER("Polar", "BP", 2.5, 0.03)

	text := textfile(t, c)
	assert.True(t, strings.Contains(text, `phylink_bit_errors_total{method="BP",scheme="Polar"} 3`), text)
	assert.Contains(t, text, `phylink_sweep_ber{method="BP",scheme="Polar",snr_db="2.5"} 0.03`)
	assert.Contains(t, text, "phylink_decode_duration_seconds_bucket")
}
