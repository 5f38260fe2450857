// Package config loads link scenarios from YAML with PHYLINK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/observe-l/phylink/fec"
	"github.com/observe-l/phylink/internal/sim"
	"github.com/observe-l/phylink/modem"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "PHYLINK_"

// Config is a simulation scenario.
type Config struct {
	Seed      uint64      `yaml:"seed"`
	Workers   int         `yaml:"workers"`   // sweep parallelism, 0 = GOMAXPROCS
	Message   string      `yaml:"message"`   // text sent by simulate
	Threshold float64     `yaml:"threshold"` // end-to-end BER a transmission must meet
	Hops      []HopConfig `yaml:"hops"`
	Sweep     SweepConfig `yaml:"sweep"`

	hops []sim.Hop // resolved from Hops by Resolve
	dir  string    // directory of the loaded file
}

type HopConfig struct {
	Name       string  `yaml:"name"`
	Code       string  `yaml:"code"` // None, Repetition(3,1), Hamming(7,4), Polar, Polar(N,K)
	Modulation string  `yaml:"modulation"`
	SNRdB      float64 `yaml:"snr_db"`
	Noiseless  bool    `yaml:"noiseless,omitempty"`
	FlipProb   float64 `yaml:"flip_prob,omitempty"` // hard-decision BSC instead of modem + AWGN
	Method     string  `yaml:"method,omitempty"`    // SC, SCL, BP
	ListSize   int     `yaml:"list_size,omitempty"`
	MaxIter    int     `yaml:"max_iter,omitempty"`
	Genie      bool    `yaml:"genie,omitempty"`

	// Polar information sets from file instead of the Bhattacharyya construction. Relative
	// paths resolve against the scenario file's directory.
	ReliabilityOrder string `yaml:"reliability_order,omitempty"` // binary, as written by construct --out
	ReliabilityTable string `yaml:"reliability_table,omitempty"` // text "index rank" rows
}

type SweepConfig struct {
	Hop         int       `yaml:"hop"` // index into Hops used as the swept link
	SNRdB       []float64 `yaml:"snr_db"`
	Trials      int       `yaml:"trials"`
	MessageBits int       `yaml:"message_bits"`
}

// envOverrides lists what the environment may change. Unset variables leave the file value.
type envOverrides struct {
	Seed        *uint64   `env:"SEED"`
	Workers     *int      `env:"WORKERS"`
	Message     *string   `env:"MESSAGE"`
	Threshold   *float64  `env:"THRESHOLD"`
	Method      *string   `env:"METHOD"` // applied to every hop
	Genie       *bool     `env:"GENIE"`
	SweepSNRdB  []float64 `env:"SWEEP_SNR_DB" envSeparator:","`
	SweepTrials *int      `env:"SWEEP_TRIALS"`
	SweepBits   *int      `env:"SWEEP_MESSAGE_BITS"`
}

func DefaultConfig() *Config {
	return &Config{
		Seed:      1,
		Message:   "HELLO POLAR",
		Threshold: 0.01,
		Hops: []HopConfig{
			{Name: "uplink", Code: "Polar(256,128)", Modulation: "BPSK", SNRdB: 3, Method: "SC"},
		},
		Sweep: SweepConfig{
			SNRdB:       []float64{-2, -1, 0, 1, 2, 3, 4},
			Trials:      200,
			MessageBits: 128,
		},
	}
}

// Load reads path, applies environment overrides and resolves every hop. A missing file
// yields the defaults. Unparseable code strings fall back to uncoded transmission and are
// logged as warnings.
func Load(path string, log *zap.Logger) (*Config, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Debug("config file not found, using defaults", zap.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		cfg.dir = filepath.Dir(path)
	}
	if err := cfg.applyEnvOverrides(env.ToMap(os.Environ())); err != nil {
		return nil, err
	}
	if err := cfg.Resolve(log); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides(environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.Message != nil {
		c.Message = *o.Message
	}
	if o.Threshold != nil {
		c.Threshold = *o.Threshold
	}
	for i := range c.Hops {
		if o.Method != nil {
			c.Hops[i].Method = *o.Method
		}
		if o.Genie != nil {
			c.Hops[i].Genie = *o.Genie
		}
	}
	if len(o.SweepSNRdB) > 0 {
		c.Sweep.SNRdB = o.SweepSNRdB
	}
	if o.SweepTrials != nil {
		c.Sweep.Trials = *o.SweepTrials
	}
	if o.SweepBits != nil {
		c.Sweep.MessageBits = *o.SweepBits
	}
	return nil
}

// Resolve validates the scenario and turns every HopConfig into a sim.Hop. Code strings are
// parsed leniently: a malformed one becomes None with a warning.
func (c *Config) Resolve(log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if err := c.Validate(); err != nil {
		return err
	}
	hops := make([]sim.Hop, len(c.Hops))
	for i, hc := range c.Hops {
		s, ok := fec.ParseSchemeLenient(hc.Code)
		if !ok {
			log.Warn("unparseable code, transmitting uncoded",
				zap.Int("hop", i), zap.String("name", hc.Name), zap.String("code", hc.Code))
		}
		mod, err := modem.ParseModulation(hc.Modulation)
		if err != nil {
			return fmt.Errorf("hop %d: %w", i, err)
		}
		method := fec.MethodSC
		if hc.Method != "" {
			if method, err = fec.ParseMethod(hc.Method); err != nil {
				return fmt.Errorf("hop %d: %w", i, err)
			}
		}
		order, err := c.reliabilityOrder(hc)
		if err != nil {
			return fmt.Errorf("hop %d: %w", i, err)
		}
		if order != nil && s.Kind != fec.SchemePolar {
			log.Warn("reliability order ignored for non-polar code",
				zap.Int("hop", i), zap.String("name", hc.Name), zap.Stringer("code", s))
		}
		hops[i] = sim.Hop{
			Name:       hc.Name,
			Scheme:     s,
			Modulation: mod,
			SNRdB:      hc.SNRdB,
			Noiseless:  hc.Noiseless,
			FlipProb:   hc.FlipProb,
			Method:     method,
			Options:    fec.DecodeOptions{ListSize: hc.ListSize, MaxIter: hc.MaxIter},
			Genie:      hc.Genie,
			Order:      order,
		}
	}
	c.hops = hops
	return nil
}

func (c *Config) reliabilityOrder(hc HopConfig) ([]int, error) {
	switch {
	case hc.ReliabilityOrder != "":
		return fec.LoadReliabilityOrder(c.path(hc.ReliabilityOrder))
	case hc.ReliabilityTable != "":
		return fec.LoadReliabilityTable(c.path(hc.ReliabilityTable))
	}
	return nil, nil
}

func (c *Config) path(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

func (c *Config) Validate() error {
	if len(c.Hops) == 0 {
		return errors.New("config: at least one hop is required")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("config: threshold %g outside [0,1]", c.Threshold)
	}
	for i, h := range c.Hops {
		if h.FlipProb < 0 || h.FlipProb > 1 {
			return fmt.Errorf("config: hop %d flip_prob %g outside [0,1]", i, h.FlipProb)
		}
		if h.ReliabilityOrder != "" && h.ReliabilityTable != "" {
			return fmt.Errorf("config: hop %d sets both reliability_order and reliability_table", i)
		}
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: negative workers %d", c.Workers)
	}
	if c.Sweep.Hop < 0 || c.Sweep.Hop >= len(c.Hops) {
		return fmt.Errorf("config: sweep hop %d out of range", c.Sweep.Hop)
	}
	if c.Sweep.Trials < 0 || c.Sweep.MessageBits < 0 {
		return errors.New("config: sweep trials and message_bits must be non-negative")
	}
	return nil
}

// LinkHops returns the resolved hops. Resolve (or Load) must have succeeded.
func (c *Config) LinkHops() []sim.Hop { return append([]sim.Hop(nil), c.hops...) }

// SweepConfig builds the sweep request for the configured hop.
func (c *Config) SweepConfig() sim.SweepConfig {
	return sim.SweepConfig{
		Hop:         c.hops[c.Sweep.Hop],
		SNRs:        append([]float64(nil), c.Sweep.SNRdB...),
		Trials:      c.Sweep.Trials,
		MessageBits: c.Sweep.MessageBits,
		Seed:        c.Seed,
		Workers:     c.Workers,
	}
}

// Save writes the scenario as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
