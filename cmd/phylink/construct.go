package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/observe-l/phylink/fec"
)

var (
	constructN   int
	constructK   int
	constructOut string
)

var constructCmd = &cobra.Command{
	Use:   "construct",
	Short: "Print (and optionally save) the polar reliability order for N, K",
	Long: `Runs the Bhattacharyya construction and prints the information set. With --out the
full reliability order is written as little-endian int64 values, most reliable first.

Example:
  phylink construct --N 1024 --K 512 --out order_1024.bin`,
	RunE: runConstruct,
}

func init() {
	constructCmd.Flags().IntVar(&constructN, "N", 1024, "code length (power of two)")
	constructCmd.Flags().IntVar(&constructK, "K", 512, "information bits")
	constructCmd.Flags().StringVar(&constructOut, "out", "", "write the reliability order to this file")
}

func runConstruct(cmd *cobra.Command, args []string) error {
	pc, err := fec.NewPolarCodec(constructN, constructK)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Polar(%d,%d) rate %.4f\n", pc.N, pc.K, pc.Rate())
	fmt.Fprintf(out, "information positions: %v\n", pc.InfoIndices())
	if constructOut != "" {
		if err := fec.SaveReliabilityOrder(constructOut, pc.ReliabilityOrder()); err != nil {
			return fmt.Errorf("save reliability order: %w", err)
		}
		logger.Info("reliability order saved", zap.String("path", constructOut), zap.Int("N", pc.N))
	}
	return nil
}
