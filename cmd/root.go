package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbosity int
	logFormat string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "aiscore",
		Short:        "Score AI projects on implementation depth, code health and market success",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML)")
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newReportCmd())
	root.AddCommand(newRescoreCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newCacheCmd())
	return root
}

// newLogger builds the process logger on w. Warnings and errors are shown
// by default; each -v lowers the threshold one level.
func newLogger(w io.Writer, verbosity int, format string) (*slog.Logger, error) {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func processLogger() (*slog.Logger, error) {
	logger, err := newLogger(os.Stderr, verbosity, logFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}
