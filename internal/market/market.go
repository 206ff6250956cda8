// Package market turns reviewer market research into the market value
// score.
package market

import (
	"context"
	"log/slog"
	"math"

	"github.com/signalnine/aiscore/internal/cache"
	"github.com/signalnine/aiscore/internal/result"
	"github.com/signalnine/aiscore/internal/signal"
)

const (
	popularityWeight = 0.4
	adoptionWeight   = 0.4
	impactWeight     = 0.2

	// PopularScore is the market score from which a project counts as popular.
	PopularScore = 0.8
	// ModerateScore is the market score of a moderately popular project.
	ModerateScore = 0.6

	// DefaultMinPopularScore is the minimum overall score suggested for
	// popular projects.
	DefaultMinPopularScore = 0.5
	moderateMinimum        = 0.4
)

// Namespace is the cache partition for assessments.
const Namespace = "market"

// Researcher supplies raw market research. *signal.Client implements it.
type Researcher interface {
	AnalyzeMarketContext(ctx context.Context, project, repoURL string) signal.MarketContext
}

// Options tunes an Analyzer.
type Options struct {
	MinPopularScore float64
	Logger          *slog.Logger
}

// Assessment is the market verdict for one project.
type Assessment struct {
	Project           string         `json:"project"`
	RepoURL           string         `json:"repo_url"`
	MarketScore       float64        `json:"market_score"`
	IsPopular         bool           `json:"is_popular"`
	PopularityScore   float64        `json:"popularity_score"`
	AdoptionScore     float64        `json:"adoption_score"`
	ImpactScore       float64        `json:"impact_score"`
	PopularityMetrics map[string]any `json:"popularity_metrics"`
	CommunityMetrics  map[string]any `json:"community_metrics"`
	MarketContext     string         `json:"market_context"`
	Recommendations   []string       `json:"recommendations"`
	Fallback          bool           `json:"fallback"`
}

// Analyzer computes market assessments and caches them in their own
// namespace. The store's TTL is the market TTL.
type Analyzer struct {
	researcher Researcher
	store      *cache.Cache
	minPopular float64
	logger     *slog.Logger
}

// New returns an Analyzer. researcher may be nil, in which case every
// assessment is neutral. A nil store disables caching.
func New(researcher Researcher, store *cache.Cache, opts Options) *Analyzer {
	if store == nil {
		store = cache.New("", 0)
	}
	if opts.MinPopularScore <= 0 {
		opts.MinPopularScore = DefaultMinPopularScore
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Analyzer{
		researcher: researcher,
		store:      store.Namespace(Namespace),
		minPopular: opts.MinPopularScore,
		logger:     opts.Logger,
	}
}

// Assess returns the market assessment for a project.
func (a *Analyzer) Assess(ctx context.Context, project, repoURL string) Assessment {
	key := cache.Key(Namespace, project, repoURL)
	var cached Assessment
	if a.store.Get(key, &cached) {
		a.logger.Debug("market cache hit", "project", project)
		return cached
	}

	if a.researcher == nil {
		return Neutral(project, repoURL)
	}

	mc := a.researcher.AnalyzeMarketContext(ctx, project, repoURL)
	if mc.Fallback {
		a.logger.Warn("market research unavailable, using neutral score", "project", project)
		n := Neutral(project, repoURL)
		if mc.MarketContext != "" {
			n.MarketContext = mc.MarketContext
		}
		return n
	}

	score := Score(mc.PopularityScore, mc.AdoptionScore, mc.ImpactScore)
	out := Assessment{
		Project:           project,
		RepoURL:           repoURL,
		MarketScore:       score,
		IsPopular:         score >= PopularScore,
		PopularityScore:   mc.PopularityScore,
		AdoptionScore:     mc.AdoptionScore,
		ImpactScore:       mc.ImpactScore,
		PopularityMetrics: mc.PopularityMetrics,
		CommunityMetrics:  mc.CommunityMetrics,
		MarketContext:     mc.MarketContext,
		Recommendations:   mc.Recommendations,
	}
	if err := a.store.Put(key, out); err != nil {
		a.logger.Warn("failed to cache market assessment", "project", project, "error", err)
	}
	a.logger.Info("market assessed", "project", project, "score", score, "popular", out.IsPopular)
	return out
}

// MinimumScore is the overall score a project of this market standing
// should not fall below, if any.
func (a *Analyzer) MinimumScore(marketScore float64) (float64, bool) {
	switch {
	case marketScore >= PopularScore:
		return a.minPopular, true
	case marketScore >= ModerateScore:
		return moderateMinimum, true
	default:
		return 0, false
	}
}

// Detail converts the assessment into the form stored with a result.
func (a *Analyzer) Detail(as Assessment) *result.Market {
	m := &result.Market{
		Score:      as.MarketScore,
		IsPopular:  as.IsPopular,
		Popularity: as.PopularityScore,
		Adoption:   as.AdoptionScore,
		Impact:     as.ImpactScore,
		Context:    as.MarketContext,
		Fallback:   as.Fallback,
	}
	if floor, ok := a.MinimumScore(as.MarketScore); ok {
		m.MinimumScore = &floor
	}
	return m
}

// Score weighs popularity, adoption and impact into a market score.
func Score(popularity, adoption, impact float64) float64 {
	return math.Min(1, popularity*popularityWeight+adoption*adoptionWeight+impact*impactWeight)
}

// Neutral is the assessment used when no research is available.
func Neutral(project, repoURL string) Assessment {
	return Assessment{
		Project:           project,
		RepoURL:           repoURL,
		MarketScore:       result.NeutralMarket,
		PopularityScore:   signal.Neutral,
		AdoptionScore:     signal.Neutral,
		ImpactScore:       signal.Neutral,
		PopularityMetrics: map[string]any{},
		CommunityMetrics:  map[string]any{},
		MarketContext:     "Market analysis unavailable",
		Recommendations:   []string{"Enable market analysis for enhanced results"},
		Fallback:          true,
	}
}
