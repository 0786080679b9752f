package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zacharyweiss/demandscheduling/api/runs"
	"github.com/zacharyweiss/demandscheduling/api/schedule"
	"github.com/zacharyweiss/demandscheduling/app"
	"github.com/zacharyweiss/demandscheduling/config"
	"github.com/zacharyweiss/demandscheduling/infra/logger"
	"github.com/zacharyweiss/demandscheduling/infra/metrics"
)

var serveFlags struct {
	addr    string
	every   time.Duration
	publish bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Re-plan periodically and serve schedules, run history and metrics over HTTP",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", "", "listen address (default from server.addr)")
	f.DurationVar(&serveFlags.every, "every", 0, "planning interval (default from server.interval)")
	f.BoolVar(&serveFlags.publish, "publish", false, "publish every schedule over MQTT")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.addr != "" {
		cfg.Server.Addr = serveFlags.addr
	}
	if serveFlags.every > 0 {
		cfg.Server.Interval = serveFlags.every
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close(context.Background()) }()

	log := logger.NewZerologLogger("serve",
		logger.WithLevel(cfg.Logging.Level), logger.WithConsole(cfg.Logging.Format == "console"))
	routes := map[string]http.Handler{"/api/schedule": schedule.NewLatestHandler(svc.Latest)}
	if store := svc.Runs(); store != nil {
		routes["/api/runs"] = runs.NewHandler(store, cfg.Server.Token)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(gctx, cfg.Server.Addr, metrics.NewServeMux(nil, routes), log)
	})
	g.Go(func() error {
		planLoop(gctx, svc, cfg, log)
		return nil
	})
	return g.Wait()
}

// planLoop plans once immediately and then on every tick. Failed runs are
// logged and retried on the next tick.
func planLoop(ctx context.Context, svc *app.Service, cfg *config.Config, log logger.Logger) {
	ticker := time.NewTicker(cfg.Server.Interval)
	defer ticker.Stop()
	for {
		in, err := svc.Input()
		if err == nil {
			_, err = svc.Plan(ctx, in, serveFlags.publish, cfg.MQTT.AckTimeout)
		}
		if err != nil {
			log.Errorf("planning failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
