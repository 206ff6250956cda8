package signal_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalnine/aiscore/internal/cache"
	"github.com/signalnine/aiscore/internal/llm"
	"github.com/signalnine/aiscore/internal/pricing"
	"github.com/signalnine/aiscore/internal/ratelimit"
	"github.com/signalnine/aiscore/internal/signal"
)

const fullAnalysis = `{
  "ai_score": 0.8,
  "quality_score": 0.7,
  "originality_score": 0.9,
  "execution_score": 0.6,
  "market_value": 0.85,
  "findings": ["Good AI implementation"],
  "recommendations": ["Consider optimizing further"]
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, completer llm.Completer, cacheDir string, maxCalls int) (*signal.Client, *ratelimit.Window) {
	t.Helper()
	window := ratelimit.NewWindow(maxCalls, time.Hour)
	store := cache.New(cacheDir, 24*time.Hour)
	return signal.NewClient(completer, store, window, signal.Options{Logger: quietLogger()}), window
}

func TestAnalyzeParsesResponse(t *testing.T) {
	fake := &llm.Fake{Content: fullAnalysis}
	c, _ := newClient(t, fake, "", 5)

	rec := c.Analyze(context.Background(), "import torch", "project: demo")
	assert.False(t, rec.Fallback)
	assert.Equal(t, 0.8, rec.AIScore)
	assert.Equal(t, 0.85, rec.MarketValue)
	assert.Equal(t, []string{"Good AI implementation"}, rec.Findings)

	reqs := fake.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, signal.DefaultModel, reqs[0].Model)
	require.Len(t, reqs[0].Messages, 2)
	assert.Equal(t, "system", reqs[0].Messages[0].Role)
	assert.Contains(t, reqs[0].Messages[1].Content, "import torch")
	assert.Contains(t, reqs[0].Messages[1].Content, "project: demo")
}

func TestRateLimitScenario(t *testing.T) {
	fake := &llm.Fake{Content: fullAnalysis}
	c, window := newClient(t, fake, "", 2)
	ctx := context.Background()

	first := c.Analyze(ctx, "a", "")
	second := c.Analyze(ctx, "b", "")
	third := c.Analyze(ctx, "c", "")

	assert.False(t, first.Fallback)
	assert.False(t, second.Fallback)
	assert.True(t, third.Fallback)
	assert.Equal(t, []string{"Rate limit reached"}, third.Findings)
	for _, v := range []float64{third.AIScore, third.QualityScore, third.OriginalityScore, third.ExecutionScore, third.MarketValue} {
		assert.Equal(t, 0.5, v)
	}

	assert.Equal(t, 2, fake.Calls(), "third call never reaches the reviewer")
	assert.Equal(t, 2, window.CallsMade())

	stats := c.Stats()
	assert.Equal(t, 2, stats.Calls)
	assert.Equal(t, 1, stats.RateLimited)
}

func TestCacheHitIsVerbatimAndFree(t *testing.T) {
	fake := &llm.Fake{Content: fullAnalysis}
	c, window := newClient(t, fake, t.TempDir(), 5)
	ctx := context.Background()

	first := c.Analyze(ctx, "code", "ctx")
	second := c.Analyze(ctx, "code", "ctx")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.Calls())
	assert.Equal(t, 1, window.CallsMade(), "cache hits consume no budget")
	assert.Equal(t, 1, c.Stats().CacheHits)

	c.Analyze(ctx, "code", "other ctx")
	assert.Equal(t, 2, fake.Calls(), "context is part of the key")
}

func TestCacheSurvivesRestartWithExhaustedBudget(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	warm, _ := newClient(t, &llm.Fake{Content: fullAnalysis}, dir, 5)
	want := warm.Analyze(ctx, "code", "")

	// A fresh process with no budget left still answers from cache.
	fake := &llm.Fake{Content: fullAnalysis}
	cold, _ := newClient(t, fake, dir, 0)
	got := cold.Analyze(ctx, "code", "")

	assert.Equal(t, want, got)
	assert.Equal(t, 0, fake.Calls())
}

func TestNamespacesDoNotCollide(t *testing.T) {
	fake := &llm.Fake{Reply: func(req *llm.Request) (string, error) {
		if strings.Contains(req.Messages[1].Content, "originality") {
			return `{"originality_score": 0.3, "is_likely_copied": true}`, nil
		}
		return fullAnalysis, nil
	}}
	c, _ := newClient(t, fake, t.TempDir(), 5)
	ctx := context.Background()

	rec := c.Analyze(ctx, "same code", "")
	orig := c.CheckOriginality(ctx, "same code")

	assert.Equal(t, 0.9, rec.OriginalityScore)
	assert.Equal(t, 0.3, orig.OriginalityScore)
	assert.True(t, orig.IsLikelyCopied)
	assert.Equal(t, 2, fake.Calls())
}

func TestEmbeddedJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "prose around object", reply: "Sure! Here is my analysis:\n" + fullAnalysis + "\nLet me know."},
		{name: "markdown fence", reply: "```json\n" + fullAnalysis + "\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newClient(t, &llm.Fake{Content: tt.reply}, "", 5)
			rec := c.Analyze(context.Background(), "x", "")
			assert.False(t, rec.Fallback)
			assert.Equal(t, 0.8, rec.AIScore)
		})
	}
}

func TestMissingKeysDefault(t *testing.T) {
	c, _ := newClient(t, &llm.Fake{Content: `{"ai_score": 0.9}`}, "", 5)
	rec := c.Analyze(context.Background(), "x", "")

	assert.False(t, rec.Fallback)
	assert.Equal(t, 0.9, rec.AIScore)
	assert.Equal(t, 0.5, rec.QualityScore)
	assert.Equal(t, 0.5, rec.MarketValue)
	assert.Equal(t, []string{"No findings available"}, rec.Findings)
	assert.Equal(t, []string{"No recommendations available"}, rec.Recommendations)
}

func TestMalformedResponsesFallBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "no json", reply: "I am unable to analyze this code."},
		{name: "broken json", reply: `{"ai_score": 0.8,`},
		{name: "out of range", reply: `{"ai_score": 1.5}`},
		{name: "wrong type", reply: `{"ai_score": "high"}`},
		{name: "findings not a list", reply: `{"findings": "looks fine"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &llm.Fake{Content: tt.reply}
			c, window := newClient(t, fake, t.TempDir(), 5)
			ctx := context.Background()

			rec := c.Analyze(ctx, "x", "")
			assert.True(t, rec.Fallback)
			require.Len(t, rec.Findings, 1)
			assert.True(t, strings.HasPrefix(rec.Findings[0], "Analysis failed: "), rec.Findings[0])
			assert.Equal(t, 0.5, rec.AIScore)
			assert.Equal(t, 1, window.CallsMade(), "failed call still consumes budget")

			c.Analyze(ctx, "x", "")
			assert.Equal(t, 2, fake.Calls(), "failures are not cached")
			assert.Equal(t, 2, c.Stats().Failures)
		})
	}
}

func TestCallFailureFallsBack(t *testing.T) {
	fake := &llm.Fake{Err: errors.New("connection refused")}
	c, _ := newClient(t, fake, "", 5)

	rec := c.Analyze(context.Background(), "x", "")
	assert.True(t, rec.Fallback)
	assert.Contains(t, rec.Findings[0], "connection refused")

	v := c.VerifyAIImplementation(context.Background(), "x")
	assert.True(t, v.Fallback)
	assert.False(t, v.IsRealAI)
	assert.Equal(t, signal.ImplementationNone, v.ImplementationType)
	assert.Equal(t, 0.5, v.Confidence)
	assert.Contains(t, v.Evidence[0], "Analysis failed")
}

func TestCanceledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, window := newClient(t, &llm.Fake{Content: fullAnalysis}, "", 5)
	rec := c.Analyze(ctx, "x", "")
	assert.True(t, rec.Fallback)
	assert.Equal(t, 1, window.CallsMade(), "budget is not refunded")
}

func TestBudgetSharedAcrossOperations(t *testing.T) {
	fake := &llm.Fake{Content: `{}`}
	c, _ := newClient(t, fake, "", 2)
	ctx := context.Background()

	assert.False(t, c.Analyze(ctx, "a", "").Fallback)
	assert.False(t, c.VerifyAIImplementation(ctx, "a").Fallback)

	orig := c.CheckOriginality(ctx, "a")
	assert.True(t, orig.Fallback)
	assert.Equal(t, []string{"Rate limit reached"}, orig.CommonPatterns)
	assert.Equal(t, 0.5, orig.OriginalityScore)

	mc := c.AnalyzeMarketContext(ctx, "proj", "https://example.com/proj")
	assert.True(t, mc.Fallback)
	assert.Equal(t, 0.5, mc.PopularityScore)
	assert.Equal(t, 2, fake.Calls())
}

func TestVerifyAndMarketContextDecode(t *testing.T) {
	fake := &llm.Fake{Reply: func(req *llm.Request) (string, error) {
		if strings.Contains(req.Messages[1].Content, "market success") {
			return `{"popularity_score": 0.85, "adoption_score": 0.8, "impact_score": 0.75,
				"popularity_metrics": {"stars": 1200}, "community_metrics": {"contributors": 25},
				"market_context": "Strong community", "recommendations": ["Offer support"]}`, nil
		}
		return `{"is_real_ai": true, "implementation_type": "framework", "confidence": 0.9,
			"evidence": ["torch.nn.Module subclass"]}`, nil
	}}
	c, _ := newClient(t, fake, t.TempDir(), 5)
	ctx := context.Background()

	v := c.VerifyAIImplementation(ctx, "class Net(nn.Module): ...")
	assert.True(t, v.IsRealAI)
	assert.Equal(t, signal.ImplementationFramework, v.ImplementationType)
	assert.Equal(t, 0.9, v.Confidence)
	assert.Empty(t, v.Suggestions)

	mc := c.AnalyzeMarketContext(ctx, "demo", "https://github.com/acme/demo")
	assert.Equal(t, 0.85, mc.PopularityScore)
	assert.Equal(t, float64(1200), mc.PopularityMetrics["stars"])
	assert.Equal(t, "Strong community", mc.MarketContext)

	again := c.AnalyzeMarketContext(ctx, "demo", "https://github.com/acme/demo")
	assert.Equal(t, mc, again)
	assert.Equal(t, 2, fake.Calls())
}

func TestVerifyRejectsUnknownImplementationType(t *testing.T) {
	c, _ := newClient(t, &llm.Fake{Content: `{"implementation_type": "magic"}`}, "", 5)
	v := c.VerifyAIImplementation(context.Background(), "x")
	assert.True(t, v.Fallback)
	assert.Equal(t, signal.ImplementationNone, v.ImplementationType)
}

func TestConcurrentCallsRespectBudget(t *testing.T) {
	fake := &llm.Fake{Content: fullAnalysis}
	c, window := newClient(t, fake, "", 5)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Analyze(context.Background(), fmt.Sprintf("code %d", i), "")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5, fake.Calls())
	assert.Equal(t, 5, window.CallsMade())
	assert.Equal(t, 35, c.Stats().RateLimited)
}

func TestStatsTrackCost(t *testing.T) {
	fake := &llm.Fake{Content: fullAnalysis, Usage: llm.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}}
	c := signal.NewClient(fake, nil, ratelimit.NewWindow(5, time.Hour), signal.Options{
		Model:   "gpt-4",
		Pricing: pricing.Default(),
		Logger:  quietLogger(),
	})

	c.Analyze(context.Background(), "a", "")
	c.Analyze(context.Background(), "b", "")

	stats := c.Stats()
	assert.Equal(t, 2000, stats.PromptTokens)
	assert.Equal(t, 1000, stats.CompletionTokens)
	assert.InDelta(t, 2*(0.03+0.03), stats.CostUSD, 1e-9)
}
