// Package signal wraps the external reviewer behind a cache and a shared
// call budget. Operations never fail: every problem degrades to a neutral
// fallback record.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/signalnine/aiscore/internal/cache"
	"github.com/signalnine/aiscore/internal/llm"
	"github.com/signalnine/aiscore/internal/pricing"
	"github.com/signalnine/aiscore/internal/ratelimit"
)

// DefaultModel is the reviewer model used when none is configured.
const DefaultModel = "gpt-4"

// DefaultMaxCalls is the hourly call budget used when no limiter is given.
const DefaultMaxCalls = 5

// Code longer than this is cut before it is sent. The cache key always
// covers the full input.
const maxPromptChars = 100_000

// Options tunes a Client.
type Options struct {
	Model    string
	Provider string
	Pricing  *pricing.Table
	Logger   *slog.Logger
}

// Stats is a snapshot of the client's activity since construction.
type Stats struct {
	Calls            int     `json:"calls"`
	CacheHits        int     `json:"cache_hits"`
	RateLimited      int     `json:"rate_limited"`
	Failures         int     `json:"failures"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Client issues reviewer requests. It is safe for concurrent use; all
// operations share one rate-limit window.
type Client struct {
	completer llm.Completer
	store     *cache.Cache
	limiter   *ratelimit.Window
	model     string
	provider  string
	prices    *pricing.Table
	logger    *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// NewClient assembles a client. A nil store disables caching.
func NewClient(completer llm.Completer, store *cache.Cache, limiter *ratelimit.Window, opts Options) *Client {
	if store == nil {
		store = cache.New("", 0)
	}
	if limiter == nil {
		limiter = ratelimit.NewWindow(DefaultMaxCalls, time.Hour)
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Provider == "" {
		opts.Provider = "openai"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		completer: completer,
		store:     store,
		limiter:   limiter,
		model:     opts.Model,
		provider:  opts.Provider,
		prices:    opts.Pricing,
		logger:    opts.Logger,
	}
}

// Model returns the reviewer model name.
func (c *Client) Model() string {
	return c.model
}

// Stats returns a snapshot of the usage counters.
func (c *Client) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Analyze scores a code segment in the given context.
func (c *Client) Analyze(ctx context.Context, code, projectContext string) Record {
	user := fmt.Sprintf("Context: %s\n\nAnalyze this code:\n```\n%s\n```", projectContext, truncate(code))
	return invoke(ctx, c, analyzeOp, user, code, projectContext)
}

// VerifyAIImplementation decides whether code implements real AI/ML logic.
func (c *Client) VerifyAIImplementation(ctx context.Context, code string) Verification {
	user := fmt.Sprintf("Analyze this code for AI implementation:\n```\n%s\n```", truncate(code))
	return invoke(ctx, c, verifyOp, user, code)
}

// AnalyzeMarketContext researches the market standing of a project.
func (c *Client) AnalyzeMarketContext(ctx context.Context, project, repoURL string) MarketContext {
	user := fmt.Sprintf("Analyze market success for project %s (%s)", project, repoURL)
	return invoke(ctx, c, marketContextOp, user, project, repoURL)
}

// CheckOriginality looks for copied or boilerplate code.
func (c *Client) CheckOriginality(ctx context.Context, code string) Originality {
	user := fmt.Sprintf("Check this code for originality:\n```\n%s\n```", truncate(code))
	return invoke(ctx, c, originalityOp, user, code)
}

// operation describes one reviewer request type.
type operation[T any] struct {
	name     string
	system   string
	schema   *jsonschema.Schema
	defaults func() map[string]any
	fallback func(finding, advice string) T
}

func invoke[T any](ctx context.Context, c *Client, op *operation[T], user string, keyParts ...string) T {
	log := c.logger.With("op", op.name)
	store := c.store.Namespace(op.name)
	key := cache.Key(op.name, keyParts...)

	var cached T
	if store.Get(key, &cached) {
		c.count(func(s *Stats) { s.CacheHits++ })
		log.Debug("reviewer cache hit", "key", key[:12])
		return cached
	}
	if store.Enabled() {
		log.Debug("reviewer cache miss", "key", key[:12])
	}

	if !c.limiter.TryAdmit() {
		c.count(func(s *Stats) { s.RateLimited++ })
		log.Warn("reviewer rate limit reached, using fallback",
			"max_calls", c.limiter.Max(), "reset_at", c.limiter.ResetAt().Format(time.RFC3339))
		return op.fallback(rateLimitedFinding, rateLimitedAdvice)
	}
	c.count(func(s *Stats) { s.Calls++ })

	resp, err := c.completer.Complete(ctx, &llm.Request{
		Model: c.model,
		Messages: []llm.Message{
			{Role: "system", Content: op.system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return fail(c, log, op, fmt.Errorf("reviewer call: %w", err))
	}
	c.recordUsage(resp)

	out, err := decode(op, resp.Content)
	if err != nil {
		return fail(c, log, op, err)
	}

	if err := store.Put(key, out); err != nil {
		log.Warn("failed to cache reviewer result", "error", err)
	}
	return out
}

func fail[T any](c *Client, log *slog.Logger, op *operation[T], err error) T {
	c.count(func(s *Stats) { s.Failures++ })
	log.Error("reviewer analysis failed, using fallback", "error", err)
	return op.fallback("Analysis failed: "+err.Error(), failedAdvice)
}

// decode turns a reply into T: extract the JSON object, validate it, fill
// in defaults for missing keys, then map it onto the record.
func decode[T any](op *operation[T], content string) (T, error) {
	var out T

	fragment, err := llm.ExtractJSON(content)
	if err != nil {
		return out, err
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(fragment), &raw); err != nil {
		return out, fmt.Errorf("parsing reviewer response: %w", err)
	}
	if err := op.schema.Validate(raw); err != nil {
		return out, fmt.Errorf("reviewer response does not match %s schema: %w", op.name, err)
	}
	for k, v := range op.defaults() {
		if _, ok := raw[k]; !ok {
			raw[k] = v
		}
	}
	if err := mapstructure.Decode(raw, &out); err != nil {
		return out, fmt.Errorf("decoding reviewer response: %w", err)
	}
	return out, nil
}

func (c *Client) count(update func(*Stats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update(&c.stats)
}

func (c *Client) recordUsage(resp *llm.Response) {
	model := resp.Model
	if model == "" {
		model = c.model
	}
	cost := c.prices.Cost(c.provider, model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	c.count(func(s *Stats) {
		s.PromptTokens += resp.Usage.PromptTokens
		s.CompletionTokens += resp.Usage.CompletionTokens
		s.CostUSD += cost
	})
}

func truncate(code string) string {
	if len(code) <= maxPromptChars {
		return code
	}
	return code[:maxPromptChars] + fmt.Sprintf("\n\n... [truncated from %d to %d chars] ...", len(code), maxPromptChars)
}
