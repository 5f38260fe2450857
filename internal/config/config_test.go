package config

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/observe-l/phylink/fec"
	"github.com/observe-l/phylink/internal/sim"
	"github.com/observe-l/phylink/modem"
)

const scenario = `
seed: 7
workers: 2
message: "MARS"
threshold: 0.001
hops:
  - name: earth-orbit
    code: Polar(512,256)
    modulation: QPSK
    snr_db: 1.5
    method: SCL
    list_size: 8
    genie: true
  - name: orbit-mars
    code: Polar(12,4)
    modulation: bpsk
    snr_db: -2
sweep:
  hop: 0
  snr_db: [0, 1, 2]
  trials: 50
  message_bits: 256
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadResolvesHops(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	cfg, err := Load(writeScenario(t, scenario), zap.New(core))
	require.NoError(t, err)

	assert.EqualValues(t, 7, cfg.Seed)
	assert.Equal(t, "MARS", cfg.Message)
	hops := cfg.LinkHops()
	require.Len(t, hops, 2)
	assert.Equal(t, fec.Scheme{Kind: fec.SchemePolar, N: 512, K: 256}, hops[0].Scheme)
	assert.Equal(t, modem.QPSK, hops[0].Modulation)
	assert.Equal(t, fec.MethodSCL, hops[0].Method)
	assert.Equal(t, 8, hops[0].Options.ListSize)
	assert.True(t, hops[0].Genie)

	// malformed polar parameters degrade to an uncoded hop with a warning
	assert.Equal(t, fec.Scheme{Kind: fec.SchemeNone}, hops[1].Scheme)
	assert.Equal(t, fec.MethodSC, hops[1].Method)
	warn := logs.FilterMessage("unparseable code, transmitting uncoded").All()
	require.Len(t, warn, 1)
	assert.Equal(t, "Polar(12,4)", warn[0].ContextMap()["code"])

	sc := cfg.SweepConfig()
	assert.Equal(t, []float64{0, 1, 2}, sc.SNRs)
	assert.Equal(t, 50, sc.Trials)
	assert.EqualValues(t, 7, sc.Seed)
	assert.Equal(t, hops[0], sc.Hop)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Message, cfg.Message)
	require.Len(t, cfg.LinkHops(), 1)
	assert.Equal(t, "Polar(256,128)", cfg.LinkHops()[0].Scheme.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PHYLINK_SEED", "99")
	t.Setenv("PHYLINK_METHOD", "bp")
	t.Setenv("PHYLINK_SWEEP_SNR_DB", "5,6")
	cfg, err := Load(writeScenario(t, scenario), nil)
	require.NoError(t, err)
	assert.EqualValues(t, 99, cfg.Seed)
	assert.Equal(t, []float64{5, 6}, cfg.Sweep.SNRdB)
	for _, h := range cfg.LinkHops() {
		assert.Equal(t, fec.MethodBP, h.Method)
	}
	assert.Equal(t, 50, cfg.Sweep.Trials, "unset variables keep file values")
}

func TestApplyEnvOverridesRejectsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.applyEnvOverrides(map[string]string{"PHYLINK_WORKERS": "many"})
	require.Error(t, err)
}

func TestResolveRejectsBadScenario(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no hops":       func(c *Config) { c.Hops = nil },
		"threshold":     func(c *Config) { c.Threshold = 2 },
		"modulation":    func(c *Config) { c.Hops[0].Modulation = "8PSK" },
		"method":        func(c *Config) { c.Hops[0].Method = "viterbi" },
		"sweep hop":     func(c *Config) { c.Sweep.Hop = 3 },
		"negative runs": func(c *Config) { c.Sweep.Trials = -1 },
		"two orders": func(c *Config) {
			c.Hops[0].ReliabilityOrder, c.Hops[0].ReliabilityTable = "a.bin", "b.txt"
		},
		"missing order": func(c *Config) {
			c.Hops[0].ReliabilityOrder = filepath.Join(t.TempDir(), "missing.bin")
		},
	} {
		cfg := DefaultConfig()
		mutate(cfg)
		assert.Error(t, cfg.Resolve(nil), name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(writeScenario(t, scenario), nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "out", "saved.yaml")
	require.NoError(t, cfg.Save(path))

	again, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.Hops, again.Hops)
	assert.Equal(t, cfg.Sweep, again.Sweep)
	assert.Equal(t, cfg.LinkHops(), again.LinkHops())
}

func TestShippedScenarioLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "phylink.yaml"), zap.NewNop())
	require.NoError(t, err)
	hops := cfg.LinkHops()
	require.Len(t, hops, 3)
	assert.Equal(t, "Polar(256,128)", hops[0].Scheme.String())
	assert.True(t, hops[1].Scheme.Auto())
	assert.Equal(t, fec.MethodBP, hops[1].Method)
	assert.Equal(t, 60, hops[1].Options.MaxIter)
	assert.Equal(t, "Hamming(7,4)", hops[2].Scheme.String())
	assert.Len(t, cfg.SweepConfig().SNRs, 7)
}

func TestLoadReadsReliabilityFiles(t *testing.T) {
	dir := t.TempDir()
	pc, err := fec.NewPolarCodec(64, 32)
	require.NoError(t, err)
	require.NoError(t, fec.SaveReliabilityOrder(filepath.Join(dir, "order.bin"), pc.ReliabilityOrder()))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "table.txt"), []byte("0 1\n1 9\n2 5\n3 7\n"), 0o644))

	body := `
hops:
  - code: Polar(64,32)
    noiseless: true
    reliability_order: order.bin
  - code: Polar(4,2)
    noiseless: true
    reliability_table: table.txt
  - code: Hamming(7,4)
    noiseless: true
    reliability_table: table.txt
`
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	core, logs := observer.New(zapcore.WarnLevel)
	cfg, err := Load(path, zap.New(core))
	require.NoError(t, err)

	hops := cfg.LinkHops()
	assert.Equal(t, pc.ReliabilityOrder(), hops[0].Order)
	assert.Equal(t, []int{1, 3, 2, 0}, hops[1].Order)
	assert.Equal(t, 1, logs.FilterMessage("reliability order ignored for non-polar code").Len())

	link, err := sim.NewLink(hops)
	require.NoError(t, err)
	msg := []uint8{1, 1, 0, 1, 0, 0, 1}
	res, err := link.Transmit(context.Background(), msg, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, msg, res.Received)
}
