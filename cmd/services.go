package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/signalnine/aiscore/internal/cache"
	"github.com/signalnine/aiscore/internal/config"
	"github.com/signalnine/aiscore/internal/heuristics"
	"github.com/signalnine/aiscore/internal/llm"
	"github.com/signalnine/aiscore/internal/market"
	"github.com/signalnine/aiscore/internal/pricing"
	"github.com/signalnine/aiscore/internal/ratelimit"
	"github.com/signalnine/aiscore/internal/sandbox"
	"github.com/signalnine/aiscore/internal/signal"
)

// services are the long-lived collaborators shared by every analysis in
// one process. reviewer and market are nil when reviewing is disabled.
type services struct {
	reviewer *signal.Client
	market   *market.Analyzer
	verifier *heuristics.ExecutionVerifier
}

func newServices(cfg *config.Config, logger *slog.Logger, review bool) (*services, error) {
	svc := &services{verifier: &heuristics.ExecutionVerifier{Logger: logger}}
	if cfg.Sandbox.Enabled() {
		svc.verifier.Sandbox = sandbox.NewRunner(sandbox.Check{
			Image:   cfg.Sandbox.Image,
			Command: cfg.Sandbox.Command,
			Timeout: cfg.Sandbox.Timeout(),
		}, logger)
	}
	if !review {
		return svc, nil
	}

	reviewer, err := newReviewer(cfg, logger)
	if err != nil {
		return nil, err
	}
	svc.reviewer = reviewer
	svc.market = newMarket(cfg, reviewer, logger)
	return svc, nil
}

// newReviewer wires the reviewer client: one hourly window of
// MAX_GPT_CALLS shared by every operation.
func newReviewer(cfg *config.Config, logger *slog.Logger) (*signal.Client, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	completer, err := llm.NewOpenAI(llm.Options{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Review.BaseURL,
		Model:   cfg.Review.Model,
		Timeout: cfg.Review.Timeout(),
	})
	if err != nil {
		return nil, err
	}

	prices := pricing.Default()
	if cfg.Pricing.File != "" {
		prices, err = pricing.Load(cfg.Pricing.File)
		if err != nil {
			return nil, fmt.Errorf("loading pricing: %w", err)
		}
	}

	store := cache.New(cfg.Cache.Dir, cfg.Review.CacheTTL())
	limiter := ratelimit.NewWindow(cfg.Review.MaxCalls, time.Hour)
	return signal.NewClient(completer, store, limiter, signal.Options{
		Model:    cfg.Review.Model,
		Provider: "openai",
		Pricing:  prices,
		Logger:   logger,
	}), nil
}

// newMarket returns a market analyzer with its own cache TTL. researcher
// may be nil for a purely local analyzer.
func newMarket(cfg *config.Config, researcher market.Researcher, logger *slog.Logger) *market.Analyzer {
	store := cache.New(cfg.Cache.Dir, cfg.Market.CacheTTL())
	return market.New(researcher, store, market.Options{
		MinPopularScore: cfg.Market.MinPopularScore,
		Logger:          logger,
	})
}

func logReviewerUsage(logger *slog.Logger, reviewer *signal.Client) {
	if reviewer == nil {
		return
	}
	st := reviewer.Stats()
	logger.Info("reviewer usage",
		"model", reviewer.Model(),
		"calls", st.Calls,
		"cache_hits", st.CacheHits,
		"rate_limited", st.RateLimited,
		"failures", st.Failures,
		"prompt_tokens", st.PromptTokens,
		"completion_tokens", st.CompletionTokens,
		"cost_usd", st.CostUSD)
}
