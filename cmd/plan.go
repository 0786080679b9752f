package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zacharyweiss/demandscheduling/app"
	"github.com/zacharyweiss/demandscheduling/pkg/export"
	"github.com/zacharyweiss/demandscheduling/pkg/report"
)

var planFlags struct {
	json    string
	csv     string
	html    string
	publish bool
	noColor bool
	storage bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Solve the configured cohorts and print the schedule",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planFlags.json, "json", "", "write the schedule as JSON to this file")
	f.StringVar(&planFlags.csv, "csv", "", "write the schedule as CSV to this file")
	f.StringVar(&planFlags.html, "html", "", "write the schedule as an HTML chart to this file")
	f.BoolVar(&planFlags.publish, "publish", false, "publish the schedule over MQTT")
	f.BoolVar(&planFlags.noColor, "no-color", false, "disable coloured output")
	f.BoolVar(&planFlags.storage, "storage", false, "show storage columns")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, _ []string) error {
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
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "close: %v\n", err)
		}
	}()

	in, err := svc.Input()
	if err != nil {
		return err
	}
	sch, err := svc.Plan(ctx, in, planFlags.publish, cfg.MQTT.AckTimeout)
	if sch == nil {
		return err
	}

	opts := report.DefaultOptions()
	opts.Color = !planFlags.noColor
	opts.Storage = planFlags.storage
	if rerr := report.Schedule(cmd.OutOrStdout(), sch, opts); rerr != nil {
		return rerr
	}

	jsonPath, csvPath, htmlPath := cfg.Export.JSON, cfg.Export.CSV, cfg.Export.HTML
	if planFlags.json != "" {
		jsonPath = planFlags.json
	}
	if planFlags.csv != "" {
		csvPath = planFlags.csv
	}
	if planFlags.html != "" {
		htmlPath = planFlags.html
	}
	if jsonPath != "" {
		if werr := writeFile(jsonPath, func(f *os.File) error { return export.WriteJSON(f, sch) }); werr != nil {
			return fmt.Errorf("export json: %w", werr)
		}
	}
	if csvPath != "" {
		if werr := writeFile(csvPath, func(f *os.File) error { return export.WriteCSV(f, sch) }); werr != nil {
			return fmt.Errorf("export csv: %w", werr)
		}
	}
	if htmlPath != "" {
		if werr := writeFile(htmlPath, func(f *os.File) error { return export.WriteHTML(f, sch) }); werr != nil {
			return fmt.Errorf("export html: %w", werr)
		}
	}
	return err
}
