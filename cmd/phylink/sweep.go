package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/observe-l/phylink/internal/config"
	"github.com/observe-l/phylink/internal/metrics"
	"github.com/observe-l/phylink/internal/sim"
	"github.com/observe-l/phylink/internal/store"
)

var (
	sweepDB         string
	sweepOut        string
	sweepMetricsOut string
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Monte Carlo BER/FER curve of one hop over a range of SNRs",
	Long: `Runs sweep.trials random messages per SNR point through the hop selected by
sweep.hop and prints BER and frame error rate per point. Results can be written as
CSV, stored in a SQLite database and exported as Prometheus textfile metrics.

Example:
  phylink sweep -c polar.yaml --db runs.sqlite --out curve.csv`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepDB, "db", "", "SQLite database to record the run in")
	sweepCmd.Flags().StringVar(&sweepOut, "out", "", "CSV report path")
	sweepCmd.Flags().StringVar(&sweepMetricsOut, "metrics-out", "", "Prometheus textfile path")
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath, logger)
	if err != nil {
		return err
	}
	sc := cfg.SweepConfig()
	m := metrics.New()

	start := time.Now()
	points, err := sim.Sweep(cmd.Context(), sc, sim.WithLogger(logger), sim.WithMetrics(m))
	if err != nil {
		return err
	}
	logger.Info("sweep finished", zap.Int("points", len(points)), zap.Duration("elapsed", time.Since(start)))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s %s, %d trials x %d bits\n", sc.Hop.Scheme, sc.Hop.Modulation, sc.Hop.Method, sc.Trials, sc.MessageBits)
	fmt.Fprintf(out, "%8s %12s %10s\n", "SNR(dB)", "BER", "FER")
	for _, p := range points {
		fmt.Fprintf(out, "%8.2f %12.3e %10.4f\n", p.SNRdB, p.BER, p.FER)
	}

	if sweepOut != "" {
		if err := writeCSV(sweepOut, points); err != nil {
			return err
		}
	}
	if sweepDB != "" {
		st, err := store.Open(sweepDB)
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.SaveRun(cmd.Context(), store.Run{
			Scheme:      sc.Hop.Scheme.String(),
			Modulation:  sc.Hop.Modulation.String(),
			Method:      sc.Hop.Method.String(),
			Seed:        sc.Seed,
			Trials:      sc.Trials,
			MessageBits: sc.MessageBits,
		}, points)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s saved to %s\n", id, sweepDB)
	}
	if sweepMetricsOut != "" {
		if err := m.WriteTextfile(sweepMetricsOut); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func writeCSV(path string, points []sim.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{"snr_db", "trials", "bits", "bit_errors", "frame_errors", "ber", "fer"})
	for _, p := range points {
		_ = w.Write([]string{
			strconv.FormatFloat(p.SNRdB, 'g', -1, 64),
			strconv.Itoa(p.Trials),
			strconv.Itoa(p.Bits),
			strconv.Itoa(p.BitErrors),
			strconv.Itoa(p.FrameErrors),
			strconv.FormatFloat(p.BER, 'g', -1, 64),
			strconv.FormatFloat(p.FER, 'g', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
