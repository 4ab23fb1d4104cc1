// Command smartclean analyzes and cleans CSV and Excel files offline, using
// the same analyzer, planner and cleaner as the HTTP service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/smartclean/internal/core"
	"github.com/JonMunkholm/smartclean/internal/ingest"
	"github.com/JonMunkholm/smartclean/internal/logging"
)

var version = "dev"

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	logLevel  string
	logFormat string
	workers   int
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "smartclean",
		Short: "Data-quality analysis and cleaning for tabular files",
		Long: `smartclean scores CSV and Excel files on completeness, uniqueness,
consistency and accuracy, detects column-level issues, and applies
cleaning operations chosen automatically or read from a YAML plan.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Logs go to stderr so command output can be piped
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat))
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", envOr("LOG_FORMAT", "text"), "log format (text, json)")
	cmd.PersistentFlags().IntVar(&opts.workers, "workers", ingest.DefaultWorkers, "parallel column coercion while parsing")

	cmd.AddCommand(analyzeCmd(opts))
	cmd.AddCommand(planCmd(opts))
	cmd.AddCommand(cleanCmd(opts))

	return cmd
}

func main() {
	// A missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+formatError(err))
		os.Exit(1)
	}
}

// formatError shows the coded user message for known failures, followed by
// the technical cause. Unknown errors (usage mistakes included) print as is.
func formatError(err error) string {
	if !core.IsUserFacing(err) {
		return err.Error()
	}
	return core.FormatUserError(err) + "\n  " + subtleStyle.Render(err.Error())
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
