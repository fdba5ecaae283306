// analyzer classifies call transcripts from a CSV through a language model
// and appends the results to a resumable CSV store.
//
// Usage:
//
//	analyzer run   [--input calls.csv] [--output results.csv] [--provider ollama]
//	analyzer watch [run flags] [--schedule "*/30 * * * *"] [--serve]
//
// Exit codes: 0 success, 1 run failure, 2 configuration or usage error.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shpitdev/call-analyzer/internal/redact"
	"github.com/shpitdev/call-analyzer/internal/version"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exitError carries the process exit code for an error returned by a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func failure(err error) error { return &exitError{code: exitFailure, err: err} }
func usageErr(err error) error { return &exitError{code: exitUsage, err: err} }

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "analyzer",
	Short: "Classify call transcripts with a language model",
	Long: `analyzer reads a CSV of call transcripts, asks a language model to
classify each one, and appends the result to a CSV store after every call.
Calls already in the store are skipped, so an interrupted run can simply be
started again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "YAML config file (default: $CONFIG_PATH or ./config.yaml if present)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR (env: LOG_LEVEL)")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageErr(err)
	})
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.Version = version.Current
}

func main() {
	os.Exit(execute())
}

func execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return exitOK
	}
	_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "error: %s\n", redact.Secrets(err.Error()))
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	// Errors cobra raises itself (unknown command, bad args) are usage errors.
	return exitUsage
}
