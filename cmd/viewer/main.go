// viewer serves a read-only web view over the call analysis result store.
//
// Usage:
//
//	viewer [--store call_analysis_results.csv] [--host 0.0.0.0] [--port 4000]
package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shpitdev/call-analyzer/internal/config"
	"github.com/shpitdev/call-analyzer/internal/logging"
	"github.com/shpitdev/call-analyzer/internal/redact"
	"github.com/shpitdev/call-analyzer/internal/version"
	"github.com/shpitdev/call-analyzer/internal/viewer"
)

var flags struct {
	configPath string
	store      string
	host       string
	port       int
	logLevel   string
}

var errUsage = errors.New("usage")

var rootCmd = &cobra.Command{
	Use:   "viewer",
	Short: "Serve the call analysis results over HTTP",
	Long: `viewer serves a summary page (/), the raw result CSV (/download) and
JSON statistics (/status). The store is read on every request, so a running
analyzer's progress shows up on refresh.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runViewer,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.configPath, "config", "", "YAML config file (default: $CONFIG_PATH or ./config.yaml if present)")
	f.StringVar(&flags.store, "store", "", "Result CSV to serve (env: VIEWER_STORE, falls back to ANALYZER_OUTPUT)")
	f.StringVar(&flags.host, "host", "", "Bind host (env: VIEWER_HOST)")
	f.IntVar(&flags.port, "port", 0, "Bind port (env: VIEWER_PORT)")
	f.StringVar(&flags.logLevel, "log-level", "", "Log level (env: LOG_LEVEL)")
	rootCmd.Version = version.Current
}

func runViewer(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("%w: config error: %w", errUsage, err)
	}
	f := cmd.Flags()
	if f.Changed("store") {
		cfg.Viewer.Store = flags.store
	}
	if f.Changed("host") {
		cfg.Viewer.Host = flags.host
	}
	if f.Changed("port") {
		cfg.Viewer.Port = flags.port
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: config error: %w", errUsage, err)
	}
	logger := logging.Configure(os.Stderr, cfg.LogLevel)

	srv, err := viewer.New(viewer.Options{StorePath: cfg.StorePath(), Logger: logger})
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := net.JoinHostPort(cfg.Viewer.Host, strconv.Itoa(cfg.Viewer.Port))
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "🌐 Iniciando servidor web...\n")
	_, _ = fmt.Fprintf(out, "📁 Archivo de resultados: %s\n", cfg.StorePath())
	_, _ = fmt.Fprintf(out, "🔗 Accede a: http://%s\n", addr)
	return srv.ListenAndServe(ctx, addr)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", redact.Secrets(err.Error()))
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
