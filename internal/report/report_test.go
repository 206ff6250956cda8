package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/signalnine/aiscore/internal/report"
	"github.com/signalnine/aiscore/internal/result"
)

func popular() *result.AnalysisResult {
	return &result.AnalysisResult{
		ID:      "11111111-aaaa",
		Project: "popular",
		Scores: result.Scores{
			AIFramework: 0.1,
			CodeQuality: 0.2,
			Execution:   0.1,
			Security:    0.2,
			MarketValue: 0.9,
		},
		Issues:          []result.Issue{{Severity: result.SeverityHigh, File: "app.py", Line: 4, Message: "eval() call"}},
		Recommendations: []string{"Add type hints"},
	}
}

func plain() *result.AnalysisResult {
	return &result.AnalysisResult{
		ID:      "22222222-bbbb",
		Project: "plain",
		Scores: result.Scores{
			AIFramework: 0.6,
			CodeQuality: 0.7,
			Execution:   0.8,
			Security:    0.9,
			MarketValue: 0.5,
		},
		Recommendations: []string{"Write docs"},
	}
}

func TestSummarizeBoostedPrependsNote(t *testing.T) {
	r := popular()
	s := report.Summarize(r)

	if !s.Boosted {
		t.Fatal("expected boosted summary")
	}
	if s.OverallScore < 0.5 {
		t.Errorf("overall: got %f, want >= 0.5", s.OverallScore)
	}
	want := []string{report.BoostNote, "Add type hints"}
	if len(s.Recommendations) != len(want) {
		t.Fatalf("recommendations: got %v, want %v", s.Recommendations, want)
	}
	for i := range want {
		if s.Recommendations[i] != want[i] {
			t.Errorf("recommendation %d: got %q, want %q", i, s.Recommendations[i], want[i])
		}
	}
	if len(r.Recommendations) != 1 {
		t.Errorf("Summarize mutated the result: %v", r.Recommendations)
	}
}

func TestSummarizeBreakdownIsRaw(t *testing.T) {
	s := report.Summarize(plain())
	if s.Boosted {
		t.Error("plain project should not be boosted")
	}
	want := map[string]float64{
		report.LabelAIFramework: 0.6,
		report.LabelCodeQuality: 0.7,
		report.LabelExecution:   0.8,
		report.LabelSecurity:    0.9,
		report.LabelMarket:      0.5,
	}
	if len(s.Breakdown) != len(want) {
		t.Fatalf("breakdown has %d entries, want %d", len(s.Breakdown), len(want))
	}
	for label, v := range want {
		got, ok := s.Value(label)
		if !ok || got != v {
			t.Errorf("%s: got %v (%v), want %v", label, got, ok, v)
		}
	}
	if s.Recommendations[0] == report.BoostNote {
		t.Error("note must only appear when boosted")
	}
	if s.Issues == nil {
		t.Error("issues should be an empty list, not nil")
	}
}

func TestWriteFormats(t *testing.T) {
	summaries := []report.Summary{report.Summarize(plain()), report.Summarize(popular())}

	tests := []struct {
		format string
		want   []string
	}{
		{"table", []string{"PROJECT", "plain", "popular", "5.0/10*", report.BoostNote}},
		{"markdown", []string{"## plain", "| Security | 0.90 |", "### Issues", "`app.py:4`", "### Recommendations"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := report.Write(&buf, summaries, tt.format); err != nil {
				t.Fatalf("Write: %v", err)
			}
			out := buf.String()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Write(&buf, []report.Summary{report.Summarize(popular())}, "json"); err != nil {
		t.Fatalf("Write: %v", err)
	}
	var got []report.Summary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	if len(got) != 1 || !got[0].Boosted || got[0].Project != "popular" {
		t.Errorf("unexpected json: %+v", got)
	}
}

func TestWriteUnknownFormat(t *testing.T) {
	if err := report.Write(&bytes.Buffer{}, nil, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestGenerate(t *testing.T) {
	runDir := t.TempDir()
	for _, r := range []*result.AnalysisResult{plain(), popular()} {
		if err := result.WriteResult(result.ResultDir(runDir, r.Project, r.ID), r); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := report.Generate(runDir, "table", &buf); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	out := buf.String()
	if strings.Index(out, "plain") > strings.Index(out, "popular") {
		t.Errorf("projects not sorted:\n%s", out)
	}

	if err := report.Generate(t.TempDir(), "table", &buf); err == nil {
		t.Error("expected error for empty run dir")
	}
}
