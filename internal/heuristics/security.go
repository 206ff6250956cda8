package heuristics

import (
	"regexp"

	"github.com/signalnine/aiscore/internal/result"
)

const CategorySecurity = "security"

type riskyPattern struct {
	name     string
	re       *regexp.Regexp
	severity result.Severity
	message  string
}

var riskyPatterns = []riskyPattern{
	{
		name:     "api_key_exposure",
		re:       regexp.MustCompile(`(API_KEY|OPENAI_KEY|SECRET_KEY)\s*=\s*["'][^"']+["']`),
		severity: result.SeverityHigh,
		message:  "hard-coded credential",
	},
	{
		name:     "sql_injection",
		re:       regexp.MustCompile("`SELECT.*\\$\\{"),
		severity: result.SeverityHigh,
		message:  "SQL built by string interpolation",
	},
	{
		name:     "xss",
		re:       regexp.MustCompile(`dangerouslySetInnerHTML`),
		severity: result.SeverityMedium,
		message:  "raw HTML injection",
	},
	{
		name:     "eval",
		re:       regexp.MustCompile(`\beval\s*\(`),
		severity: result.SeverityMedium,
		message:  "use of eval",
	},
}

var protectivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`helmet\(`),
	regexp.MustCompile(`(?i)csrf`),
	regexp.MustCompile(`RateLimit|rateLimiter`),
	regexp.MustCompile(`zod|yup|joi|validate`),
}

// SecurityScore scores the sources under root and reports every risky
// pattern hit as an issue.
func SecurityScore(root string) (float64, []result.Issue, error) {
	files, err := LoadSources(root)
	if err != nil {
		return 0, nil, err
	}
	score, issues := Security(files)
	return score, issues, nil
}

// Security is the mean per-file security score. A file starts at 0.7,
// gains up to 0.3 for protective measures and loses 0.2 per kind of risky
// pattern it contains.
func Security(files []SourceFile) (float64, []result.Issue) {
	if len(files) == 0 {
		return 0, nil
	}
	var issues []result.Issue
	total := 0.0
	for _, f := range files {
		risky := 0
		for _, p := range riskyPatterns {
			locs := p.re.FindAllIndex(f.Content, -1)
			if len(locs) == 0 {
				continue
			}
			risky++
			for _, loc := range locs {
				issues = append(issues, result.Issue{
					Severity: p.severity,
					Category: CategorySecurity,
					File:     f.Rel,
					Line:     lineOf(f.Content, loc[0]),
					Message:  p.message + " (" + p.name + ")",
				})
			}
		}
		score := 0.7 + 0.3*patternShare(f.Content, protectivePatterns) - 0.2*float64(risky)
		total += clamp01(score)
	}
	return total / float64(len(files)), issues
}
