// Package analyzer runs the full scoring pipeline for one project: acquire
// the source, run the static scanners, refine the AI score with the
// external reviewer and attach the market assessment.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/signalnine/aiscore/internal/gitops"
	"github.com/signalnine/aiscore/internal/heuristics"
	"github.com/signalnine/aiscore/internal/market"
	"github.com/signalnine/aiscore/internal/result"
	"github.com/signalnine/aiscore/internal/signal"
)

const (
	// StaticWeight is the share of the static authenticity score in the
	// refined AI score; the reviewer average gets the rest.
	StaticWeight = 0.7
	ReviewWeight = 0.3

	// DefaultMaxSamples caps reviewed files when Deps.MaxSamples is unset.
	DefaultMaxSamples = 5
	maxFindings       = 10
)

// Deps are the collaborators and limits of an Analyzer.
type Deps struct {
	// Reviewer is optional; nil skips the external review.
	Reviewer *signal.Client
	// Market is optional; nil leaves the market score neutral.
	Market   *market.Analyzer
	Verifier *heuristics.ExecutionVerifier

	MaxSamples  int
	Parallel    int
	WorkRoot    string
	KeepWorkdir bool
	Logger      *slog.Logger
}

// Analyzer turns a source into an AnalysisResult using its Deps.
type Analyzer struct {
	deps Deps
	log  *slog.Logger
	now  func() time.Time
}

// New returns an Analyzer, filling unset Deps with defaults.
func New(deps Deps) *Analyzer {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Verifier == nil {
		deps.Verifier = &heuristics.ExecutionVerifier{Logger: deps.Logger}
	}
	if deps.MaxSamples <= 0 {
		deps.MaxSamples = DefaultMaxSamples
	}
	if deps.Parallel <= 0 {
		deps.Parallel = 1
	}
	return &Analyzer{deps: deps, log: deps.Logger, now: time.Now}
}

// Analyze scores the project at source, a local directory or git URL
// (optionally "url#ref"). Only a failure to acquire the source is fatal.
func (a *Analyzer) Analyze(ctx context.Context, source string) (*result.AnalysisResult, error) {
	start := a.now()
	project := gitops.ProjectName(source)
	log := a.log.With("project", project)

	workDir, err := os.MkdirTemp(a.deps.WorkRoot, "aiscore-*")
	if err != nil {
		return nil, fmt.Errorf("creating workdir: %w", err)
	}
	if a.deps.KeepWorkdir {
		log.Info("keeping workdir", "dir", workDir)
	} else {
		defer os.RemoveAll(workDir)
	}

	srcDir := filepath.Join(workDir, "src")
	if err := gitops.Acquire(ctx, source, srcDir); err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", project, err)
	}

	files, err := heuristics.LoadSources(srcDir)
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", project, err)
	}
	log.Debug("loaded sources", "files", len(files))

	quality := heuristics.Quality(ctx, files)
	security, issues := heuristics.Security(files)
	auth := heuristics.DetectAuthenticity(files)
	exec := a.deps.Verifier.Verify(ctx, srcDir, files)

	res := &result.AnalysisResult{
		ID:      uuid.NewString(),
		Project: project,
		Source:  source,
		Files:   len(files),
		Scores: result.Scores{
			AIFramework: auth.Score,
			CodeQuality: quality,
			Execution:   exec.Score,
			Security:    security,
			MarketValue: result.NeutralMarket,
		},
		Issues:          issues,
		Recommendations: staticRecommendations(auth, exec),
	}
	if res.Issues == nil {
		res.Issues = []result.Issue{}
	}

	if a.deps.Reviewer != nil && len(files) > 0 {
		review, recs := a.review(ctx, files)
		review.StaticAIScore = auth.Score
		res.Scores.AIFramework = StaticWeight*auth.Score + ReviewWeight*review.AverageAIScore
		res.Review = review
		res.Recommendations = appendUnique(res.Recommendations, recs...)
		log.Info("refined AI score with review",
			"static", auth.Score, "review_avg", review.AverageAIScore, "ai", res.Scores.AIFramework)
	}

	if a.deps.Market != nil {
		as := a.deps.Market.Assess(ctx, project, RepoURL(source))
		res.Scores.MarketValue = as.MarketScore
		res.Market = a.deps.Market.Detail(as)
		res.Recommendations = appendUnique(res.Recommendations, as.Recommendations...)
	}

	end := a.now()
	res.AnalyzedAt = end.UTC()
	res.DurationS = end.Sub(start).Seconds()
	log.Info("analysis complete",
		"ai", res.Scores.AIFramework, "quality", res.Scores.CodeQuality,
		"execution", res.Scores.Execution, "security", res.Scores.Security,
		"market", res.Scores.MarketValue, "duration_s", res.DurationS)
	return res, nil
}

// review sends up to MaxSamples files to the reviewer concurrently. Every
// sampled file contributes its ai_score, fallbacks included.
func (a *Analyzer) review(ctx context.Context, files []heuristics.SourceFile) (*result.Review, []string) {
	sample := files
	if len(sample) > a.deps.MaxSamples {
		sample = sample[:a.deps.MaxSamples]
	}

	records := make([]signal.Record, len(sample))
	var g errgroup.Group
	g.SetLimit(a.deps.Parallel)
	for i, f := range sample {
		g.Go(func() error {
			records[i] = a.deps.Reviewer.Analyze(ctx, string(f.Content),
				"Analyzing AI implementation in "+filepath.Base(f.Rel))
			return nil
		})
	}
	g.Wait()

	review := &result.Review{Model: a.deps.Reviewer.Model(), FilesReviewed: len(records)}
	var recs []string
	total := 0.0
	for _, r := range records {
		total += r.AIScore
		if r.Fallback {
			review.Fallbacks++
			continue
		}
		review.Findings = appendUnique(review.Findings, r.Findings...)
		recs = appendUnique(recs, r.Recommendations...)
	}
	review.AverageAIScore = total / float64(len(records))
	if len(review.Findings) > maxFindings {
		review.Findings = review.Findings[:maxFindings]
	}
	return review, recs
}

func staticRecommendations(auth *heuristics.Authenticity, exec *heuristics.Execution) []string {
	recs := []string{}
	if len(auth.Detected) == 0 {
		recs = append(recs, "No AI framework usage detected; integrate a model or AI SDK directly")
	}
	if exec.Implementation < 0.5 {
		recs = append(recs, "Add model initialization, inference and configuration code paths")
	}
	if exec.Dependencies < 1 {
		recs = append(recs, "Declare dependencies (requirements.txt, package.json or Cargo.toml) at the project root")
	}
	if exec.SandboxPassed != nil && !*exec.SandboxPassed {
		recs = append(recs, "Fix the failures reported by the sandbox check")
	}
	return recs
}

// RepoURL strips a "#ref" suffix from source.
func RepoURL(source string) string {
	url, _, _ := strings.Cut(source, "#")
	return url
}

func appendUnique(dst []string, items ...string) []string {
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		dup := false
		for _, d := range dst {
			if d == it {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, it)
		}
	}
	return dst
}
