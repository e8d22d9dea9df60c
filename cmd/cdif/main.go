// Command cdif rewrites the dynamic imports of bundled chunks so repeated
// loads of the same chunk are served from an in-memory cache.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/coldog/cdif/pkg/config"
)

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "cdif",
		Short:         "Cache dynamic imports of bundled chunks",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), cfg.LogLevel)
		},
	}
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(
		newBuildCmd(&cfg),
		newRewriteCmd(&cfg),
		newRelativeCmd(),
	)
	return root
}

func setupLogging(w io.Writer, level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})))
}
