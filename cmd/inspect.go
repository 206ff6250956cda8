package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/signalnine/aiscore/internal/config"
	"github.com/signalnine/aiscore/internal/signal"
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Run a single reviewer operation and print its record as JSON",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "verify <file>",
		Short: "Check whether a file contains a real AI implementation",
		Args:  cobra.ExactArgs(1),
		RunE: withReviewer(func(cmd *cobra.Command, c *signal.Client, args []string) (any, error) {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", args[0], err)
			}
			return c.VerifyAIImplementation(cmd.Context(), string(code)), nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "originality <file>",
		Short: "Check a file for copied or boilerplate code",
		Args:  cobra.ExactArgs(1),
		RunE: withReviewer(func(cmd *cobra.Command, c *signal.Client, args []string) (any, error) {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", args[0], err)
			}
			return c.CheckOriginality(cmd.Context(), string(code)), nil
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "market <project> <repo-url>",
		Short: "Research a project's market context",
		Args:  cobra.ExactArgs(2),
		RunE: withReviewer(func(cmd *cobra.Command, c *signal.Client, args []string) (any, error) {
			return c.AnalyzeMarketContext(cmd.Context(), args[0], args[1]), nil
		}),
	})
	return cmd
}

type inspectFunc func(cmd *cobra.Command, c *signal.Client, args []string) (any, error)

func withReviewer(fn inspectFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger, err := processLogger()
		if err != nil {
			return err
		}
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		reviewer, err := newReviewer(cfg, logger)
		if err != nil {
			return err
		}
		record, err := fn(cmd, reviewer, args)
		if err != nil {
			return err
		}
		logReviewerUsage(logger, reviewer)
		return writeJSON(cmd.OutOrStdout(), record)
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
