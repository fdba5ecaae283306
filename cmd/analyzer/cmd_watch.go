package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/shpitdev/call-analyzer/internal/trigger"
	"github.com/shpitdev/call-analyzer/internal/viewer"
)

var watchOpts runFlags

var watchFlags struct {
	schedule  string
	debounce  time.Duration
	noWatch   bool
	noInitial bool
	serve     bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run whenever the input changes and/or on a cron schedule",
	Long: `Watch keeps running and starts a new pass when the input file changes,
on a cron schedule, or both. Passes never overlap. With --serve the results
viewer is served from the same process.

Examples:
  analyzer watch --input calls.csv
  analyzer watch --schedule "*/30 * * * *" --no-watch
  analyzer watch --serve`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addRunFlags(watchCmd, &watchOpts)
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.schedule, "schedule", "", "Cron expression or descriptor such as @hourly (env: WATCH_SCHEDULE)")
	f.DurationVar(&watchFlags.debounce, "debounce", 0, "Quiet period after an input change before running (env: WATCH_DEBOUNCE)")
	f.BoolVar(&watchFlags.noWatch, "no-watch", false, "Do not watch the input file; only run on the schedule")
	f.BoolVar(&watchFlags.noInitial, "no-initial-run", false, "Skip the pass normally made at startup")
	f.BoolVar(&watchFlags.serve, "serve", false, "Also serve the results viewer")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &watchOpts)
	if err != nil {
		return usageErr(err)
	}
	f := cmd.Flags()
	if f.Changed("schedule") {
		cfg.Watch.Schedule = watchFlags.schedule
	}
	if f.Changed("debounce") {
		if watchFlags.debounce < 0 {
			return usageErr(fmt.Errorf("invalid --debounce %s: must be >= 0", watchFlags.debounce))
		}
		cfg.Watch.Debounce = watchFlags.debounce
	}
	logger := setupLogging(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := newRunner(ctx, cfg, logger)
	if err != nil {
		return usageErr(err)
	}
	publisher, err := newPublisher(cfg)
	if err != nil {
		return usageErr(err)
	}

	trig, err := trigger.New(trigger.Options{
		InputPath:  cfg.Input,
		Watch:      !watchFlags.noWatch,
		Debounce:   cfg.Watch.Debounce,
		Schedule:   cfg.Watch.Schedule,
		RunOnStart: !watchFlags.noInitial,
		Logger:     logger,
	}, func(ctx context.Context, _ string) error {
		err := runOnce(ctx, cmd, cfg, runner, publisher, logger)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if err != nil {
		return usageErr(err)
	}

	var srv *viewer.Server
	if watchFlags.serve {
		srv, err = viewer.New(viewer.Options{StorePath: cfg.StorePath(), Logger: logger})
		if err != nil {
			return usageErr(err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return trig.Run(gctx) })
	if srv != nil {
		addr := net.JoinHostPort(cfg.Viewer.Host, strconv.Itoa(cfg.Viewer.Port))
		g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
	}
	if err := g.Wait(); err != nil {
		return failure(err)
	}
	return nil
}
