package cmd

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/signalnine/aiscore/internal/analyzer"
	"github.com/signalnine/aiscore/internal/config"
	"github.com/signalnine/aiscore/internal/report"
	"github.com/signalnine/aiscore/internal/result"
)

var (
	flagFormat      string
	flagParallel    int
	flagNoReview    bool
	flagKeepWorkdir bool
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <source>...",
		Short: "Analyze local directories or git repositories",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAnalyze,
	}
	cmd.Flags().StringVar(&flagFormat, "format", "table", "output format (table, markdown, json)")
	cmd.Flags().IntVar(&flagParallel, "parallel", 1, "max concurrent analyses and file reviews")
	cmd.Flags().BoolVar(&flagNoReview, "no-review", false, "skip the external reviewer and market research")
	cmd.Flags().BoolVar(&flagKeepWorkdir, "keep-workdir", false, "keep the acquired sources after analysis")
	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	logger, err := processLogger()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	svc, err := newServices(cfg, logger, !flagNoReview)
	if err != nil {
		return err
	}

	out := &lockedWriter{w: cmd.OutOrStdout()}
	runDir, err := result.CreateRunDir(cfg.Results.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Run directory: %s\n", runDir)

	a := analyzer.New(analyzer.Deps{
		Reviewer:    svc.reviewer,
		Market:      svc.market,
		Verifier:    svc.verifier,
		MaxSamples:  cfg.Review.MaxCalls,
		Parallel:    flagParallel,
		KeepWorkdir: flagKeepWorkdir,
		Logger:      logger,
	})

	ctx := cmd.Context()
	results := make([]*result.AnalysisResult, len(args))
	errs := make([]error, len(args))
	var g errgroup.Group
	g.SetLimit(max(1, flagParallel))
	for i, source := range args {
		g.Go(func() error {
			fmt.Fprintf(out, "Analyzing %s...\n", source)
			res, err := a.Analyze(ctx, source)
			if err != nil {
				fmt.Fprintf(out, "  ERROR: %v\n", err)
				errs[i] = err
				return nil
			}
			if err := result.WriteResult(result.ResultDir(runDir, res.Project, res.ID), res); err != nil {
				errs[i] = fmt.Errorf("storing %s: %w", res.Project, err)
				fmt.Fprintf(out, "  ERROR: %v\n", errs[i])
				return nil
			}
			results[i] = res
			return nil
		})
	}
	g.Wait()
	logReviewerUsage(logger, svc.reviewer)

	var summaries []report.Summary
	for _, r := range results {
		if r != nil {
			summaries = append(summaries, report.Summarize(r))
		}
	}
	if len(summaries) == 0 {
		return fmt.Errorf("no project could be analyzed: %w", errors.Join(errs...))
	}

	fmt.Fprintln(out, "\n--- Results ---")
	if err := report.Write(out, summaries, flagFormat); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// lockedWriter serializes progress lines written from concurrent analyses.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
