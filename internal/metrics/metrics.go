// Package metrics exposes link simulation counters as Prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds every metric a link records. Labels are the code scheme and decoder.
type Collectors struct {
	gatherer prometheus.Gatherer

	transmissions *prometheus.CounterVec // hop transmissions
	bits          *prometheus.CounterVec // message bits compared for BER
	bitErrors     *prometheus.CounterVec // bit errors after decoding
	decodeSeconds *prometheus.HistogramVec
	lastBER       *prometheus.GaugeVec // BER of the most recent transmission per SNR point
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	c, err := NewWith(reg, reg)
	if err != nil {
		// a fresh registry cannot hold duplicates
		panic(err)
	}
	return c
}

// NewWith registers the collectors on reg; g is what WriteTextfile gathers from.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) (*Collectors, error) {
	labels := []string{"scheme", "method"}
	c := &Collectors{
		gatherer: g,
		transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phylink",
			Name:      "transmissions_total",
			Help:      "Hop transmissions simulated",
		}, labels),
		bits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phylink",
			Name:      "bits_total",
			Help:      "Message bits compared after decoding",
		}, labels),
		bitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "phylink",
			Name:      "bit_errors_total",
			Help:      "Bit errors left after decoding",
		}, labels),
		decodeSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "phylink",
			Name:      "decode_duration_seconds",
			Help:      "Channel decoder latency per hop",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, labels),
		lastBER: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "phylink",
			Name:      "sweep_ber",
			Help:      "Measured bit error rate per SNR point",
		}, []string{"scheme", "method", "snr_db"}),
	}
	for _, col := range []prometheus.Collector{c.transmissions, c.bits, c.bitErrors, c.decodeSeconds, c.lastBER} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return c, nil
}

// ObserveHop records one decoded hop.
func (c *Collectors) ObserveHop(scheme, method string, bits, errs int, decode time.Duration) {
	if c == nil {
		return
	}
	c.transmissions.WithLabelValues(scheme, method).Inc()
	c.bits.WithLabelValues(scheme, method).Add(float64(bits))
	c.bitErrors.WithLabelValues(scheme, method).Add(float64(errs))
	c.decodeSeconds.WithLabelValues(scheme, method).Observe(decode.Seconds())
}

// SetSweepBER publishes the BER measured at one SNR point.
func (c *Collectors) SetSweepBER(scheme, method string, snrDB, ber float64) {
	if c == nil {
		return
	}
	c.lastBER.WithLabelValues(scheme, method, fmt.Sprintf("%g", snrDB)).Set(ber)
}

// WriteTextfile writes the gathered metrics in the node-exporter textfile format.
func (c *Collectors) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.gatherer)
}
