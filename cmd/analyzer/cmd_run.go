package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpitdev/call-analyzer/internal/config"
	"github.com/shpitdev/call-analyzer/internal/pipeline"
	"github.com/shpitdev/call-analyzer/internal/publish"
)

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Classify every input call not yet in the result store",
	Long: `Run checks that the model is reachable, then classifies each input row
whose conversation_id is not yet in the result store, saving the store after
every row. Empty transcripts ("", "[]", "NULL") are recorded as
sin_contestaron without calling the model.

Examples:
  analyzer run --input calls.csv --output call_analysis_results.csv
  analyzer run --provider gemini --model gemini-2.5-flash`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd, &runOpts)
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, &runOpts)
	if err != nil {
		return usageErr(err)
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
	return runOnce(ctx, cmd, cfg, runner, publisher, logger)
}

// runOnce performs one pipeline pass, prints its summary and publishes the
// store when configured.
func runOnce(ctx context.Context, cmd *cobra.Command, cfg config.Config, runner *pipeline.Runner, publisher *publish.Publisher, logger *slog.Logger) error {
	out := cmd.OutOrStdout()
	summary, err := runner.Run(ctx)
	if err != nil {
		var ce *pipeline.ConnectivityError
		switch {
		case errors.As(err, &ce):
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "❌ Error: %s no está disponible. Inícialo primero.\n", ce.Provider)
		case errors.Is(err, pipeline.ErrInputNotFound):
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "❌ Error: No se encontró el archivo %s\n", cfg.Input)
		case errors.Is(err, context.Canceled):
			printSummary(out, summary)
		}
		return failure(err)
	}
	printSummary(out, summary)

	if publisher != nil {
		res, err := publisher.Publish(ctx, cfg.Output)
		if err != nil {
			return failure(err)
		}
		logger.Info("result store published", "bucket", res.Bucket, "key", res.Key, "bytes", res.Bytes)
	}
	return nil
}
