package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zacharyweiss/demandscheduling/app"
	"github.com/zacharyweiss/demandscheduling/pkg/export"
	"github.com/zacharyweiss/demandscheduling/pkg/report"
)

var sweepFlags struct {
	elasticities []float64
	csv          string
	noColor      bool
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Solve once per elasticity value and compare the results",
	RunE:  runSweep,
}

func init() {
	f := sweepCmd.Flags()
	f.Float64SliceVarP(&sweepFlags.elasticities, "elasticities", "e", []float64{0, 0.25, 0.5, 1}, "elasticity values to evaluate")
	f.StringVar(&sweepFlags.csv, "csv", "", "write the sweep as CSV to this file")
	f.BoolVar(&sweepFlags.noColor, "no-color", false, "disable coloured output")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}

	in, err := svc.Input()
	if err != nil {
		_ = svc.Close(context.Background())
		return err
	}
	points, err := svc.Sweep(ctx, in, sweepFlags.elasticities)
	if cerr := svc.Close(context.Background()); cerr != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "close: %v\n", cerr)
	}
	if err != nil {
		return err
	}

	opts := report.DefaultOptions()
	opts.Color = !sweepFlags.noColor
	if err := report.Sweep(cmd.OutOrStdout(), points, opts); err != nil {
		return err
	}
	stats := svc.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "%d solved, %d failed in %s\n", stats.Solved, stats.Failed, stats.Duration.Round(time.Millisecond))

	if sweepFlags.csv != "" {
		if err := writeFile(sweepFlags.csv, func(f *os.File) error { return export.WriteSweepCSV(f, points) }); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}
	return nil
}
