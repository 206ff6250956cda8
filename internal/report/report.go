package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/aiscore/internal/result"
	"github.com/signalnine/aiscore/internal/scoring"
)

// BoostNote is prepended to the recommendations when the popularity floor
// raised a project's score.
const BoostNote = "NOTE: Project score was adjusted to minimum 5.0/10 due to high market success"

// Breakdown labels, in presentation order.
const (
	LabelAIFramework = "AI Framework Integration"
	LabelCodeQuality = "Code Quality"
	LabelExecution   = "Execution Performance"
	LabelSecurity    = "Security"
	LabelMarket      = "Market Success"
)

// Signal is one labeled raw sub-score.
type Signal struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Summary is the presentation view of one AnalysisResult.
type Summary struct {
	ID              string         `json:"id"`
	Project         string         `json:"project"`
	Source          string         `json:"source"`
	OverallScore    float64        `json:"overall_score"`
	Boosted         bool           `json:"boosted"`
	Breakdown       []Signal       `json:"breakdown"`
	Issues          []result.Issue `json:"issues"`
	Recommendations []string       `json:"recommendations"`
}

// Summarize projects a result for display. The breakdown carries the raw
// sub-scores, not their weighted contributions.
func Summarize(r *result.AnalysisResult) Summary {
	score, boosted := scoring.OverallScore(r.Scores)

	recs := make([]string, 0, len(r.Recommendations)+1)
	if boosted {
		recs = append(recs, BoostNote)
	}
	recs = append(recs, r.Recommendations...)

	issues := r.Issues
	if issues == nil {
		issues = []result.Issue{}
	}

	return Summary{
		ID:           r.ID,
		Project:      r.Project,
		Source:       r.Source,
		OverallScore: score,
		Boosted:      boosted,
		Breakdown: []Signal{
			{Label: LabelAIFramework, Value: r.Scores.AIFramework},
			{Label: LabelCodeQuality, Value: r.Scores.CodeQuality},
			{Label: LabelExecution, Value: r.Scores.Execution},
			{Label: LabelSecurity, Value: r.Scores.Security},
			{Label: LabelMarket, Value: r.Scores.MarketValue},
		},
		Issues:          issues,
		Recommendations: recs,
	}
}

// Value returns the breakdown entry with the given label.
func (s Summary) Value(label string) (float64, bool) {
	for _, sig := range s.Breakdown {
		if sig.Label == label {
			return sig.Value, true
		}
	}
	return 0, false
}

// Generate reads the results stored in runDir and writes their summaries.
func Generate(runDir, format string, w io.Writer) error {
	stored, err := result.ReadRun(runDir)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return fmt.Errorf("no results found in %s", runDir)
	}
	summaries := make([]Summary, 0, len(stored))
	for _, s := range stored {
		summaries = append(summaries, Summarize(s.Result))
	}
	return Write(w, summaries, format)
}

// Write renders summaries as "table" (default), "markdown" or "json".
func Write(w io.Writer, summaries []Summary, format string) error {
	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	case "", "table":
		return writeTable(summaries, w)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeTable(summaries []Summary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROJECT\tOVERALL\tAI\tQUALITY\tEXECUTION\tSECURITY\tMARKET\tISSUES")
	fmt.Fprintln(tw, strings.Repeat("-", 90))
	for _, s := range summaries {
		overall := fmt.Sprintf("%.1f/10", s.OverallScore*10)
		if s.Boosted {
			overall += "*"
		}
		fmt.Fprintf(tw, "%s\t%s", s.Project, overall)
		for _, sig := range s.Breakdown {
			fmt.Fprintf(tw, "\t%.2f", sig.Value)
		}
		fmt.Fprintf(tw, "\t%d\n", len(s.Issues))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, s := range summaries {
		if s.Boosted {
			fmt.Fprintf(w, "\n* %s: %s\n", s.Project, BoostNote)
		}
	}
	return nil
}

func writeMarkdown(summaries []Summary, w io.Writer) error {
	for i, s := range summaries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "## %s\n\n", s.Project)
		if s.Source != "" {
			fmt.Fprintf(w, "Source: %s\n\n", s.Source)
		}
		fmt.Fprintf(w, "**Overall score: %.1f/10**\n\n", s.OverallScore*10)
		fmt.Fprintln(w, "| Signal | Score |")
		fmt.Fprintln(w, "|---|---|")
		for _, sig := range s.Breakdown {
			fmt.Fprintf(w, "| %s | %.2f |\n", sig.Label, sig.Value)
		}
		if len(s.Issues) > 0 {
			fmt.Fprintf(w, "\n### Issues\n\n")
			for _, is := range s.Issues {
				loc := is.File
				if is.Line > 0 {
					loc = fmt.Sprintf("%s:%d", is.File, is.Line)
				}
				fmt.Fprintf(w, "- **%s** `%s`: %s\n", is.Severity, loc, is.Message)
			}
		}
		if len(s.Recommendations) > 0 {
			fmt.Fprintf(w, "\n### Recommendations\n\n")
			for _, r := range s.Recommendations {
				fmt.Fprintf(w, "- %s\n", r)
			}
		}
	}
	return nil
}

func writeJSON(summaries []Summary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
