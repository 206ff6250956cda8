package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/signalnine/aiscore/internal/analyzer"
	"github.com/signalnine/aiscore/internal/config"
	"github.com/signalnine/aiscore/internal/market"
	"github.com/signalnine/aiscore/internal/result"
	"github.com/signalnine/aiscore/internal/scoring"
)

var flagMarketScore float64

func newRescoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescore [run-dir]",
		Short: "Refresh the market score of stored results and recompute overall scores",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runRescore,
	}
	cmd.Flags().Float64Var(&flagMarketScore, "market-score", 0, "use this market score (0-1) instead of researching it")
	return cmd
}

func runRescore(cmd *cobra.Command, args []string) error {
	logger, err := processLogger()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	runDir := ""
	if len(args) > 0 {
		runDir = args[0]
	}
	resolved, err := resolveRunDir(runDir)
	if err != nil {
		return err
	}
	stored, err := result.ReadRun(resolved)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return fmt.Errorf("no results found in %s", resolved)
	}

	override := cmd.Flags().Changed("market-score")
	if override && (flagMarketScore < 0 || flagMarketScore > 1) {
		return fmt.Errorf("--market-score must be between 0 and 1, got %v", flagMarketScore)
	}

	var mkt *market.Analyzer
	if override {
		mkt = newMarket(cfg, nil, logger)
	} else {
		reviewer, err := newReviewer(cfg, logger)
		if err != nil {
			return err
		}
		mkt = newMarket(cfg, reviewer, logger)
		defer logReviewerUsage(logger, reviewer)
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	for _, s := range stored {
		r := s.Result
		before, _ := scoring.OverallScore(r.Scores)
		if override {
			overrideMarket(r, mkt, flagMarketScore)
		} else {
			as := mkt.Assess(ctx, r.Project, analyzer.RepoURL(r.Source))
			applyMarket(r, mkt.Detail(as), as.Recommendations)
		}
		after, boosted := scoring.OverallScore(r.Scores)
		if err := result.WriteResult(filepath.Dir(s.Path), r); err != nil {
			return fmt.Errorf("storing %s: %w", r.Project, err)
		}
		note := ""
		if boosted {
			note = " (popularity floor applied)"
		}
		fmt.Fprintf(out, "%s: %.1f/10 -> %.1f/10%s\n", r.Project, before*10, after*10, note)
	}
	return nil
}

// applyMarket replaces the market part of r, keeping recommendations
// unique.
func applyMarket(r *result.AnalysisResult, m *result.Market, recs []string) {
	r.Scores.MarketValue = m.Score
	r.Market = m
	seen := make(map[string]bool, len(r.Recommendations))
	for _, rec := range r.Recommendations {
		seen[rec] = true
	}
	for _, rec := range recs {
		if !seen[rec] {
			r.Recommendations = append(r.Recommendations, rec)
			seen[rec] = true
		}
	}
}

func overrideMarket(r *result.AnalysisResult, mkt *market.Analyzer, score float64) {
	m := &result.Market{
		Score:     score,
		IsPopular: score >= market.PopularScore,
		Override:  true,
	}
	if floor, ok := mkt.MinimumScore(score); ok {
		m.MinimumScore = &floor
	}
	applyMarket(r, m, nil)
}
