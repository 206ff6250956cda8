package heuristics

import (
	"context"
	"regexp"
	"strings"
)

// QualityScore scores the code quality of the sources under root.
func QualityScore(ctx context.Context, root string) (float64, error) {
	files, err := LoadSources(root)
	if err != nil {
		return 0, err
	}
	return Quality(ctx, files), nil
}

// Quality is the mean per-file quality score. It is at least 0.1 when any
// file was scanned and 0 when none was.
func Quality(ctx context.Context, files []SourceFile) float64 {
	if len(files) == 0 {
		return 0
	}
	total := 0.0
	for _, f := range files {
		switch f.Lang {
		case LangPython:
			total += pythonQuality(ctx, f.Content)
		case LangRust:
			total += rustQuality(f.Content)
		default:
			total += scriptQuality(f.Content, f.Lang)
		}
	}
	return max(0.1, total/float64(len(files)))
}

// docScore rewards comment density: one comment line per two code lines
// scores 1.
func docScore(c lineCounts) float64 {
	if c.code == 0 {
		return 0
	}
	return min(1, 2*float64(c.comments)/float64(c.code))
}

// patternShare is the fraction of patterns found in content.
func patternShare(content []byte, patterns []*regexp.Regexp) float64 {
	found := 0
	for _, p := range patterns {
		if p.Match(content) {
			found++
		}
	}
	return float64(found) / float64(len(patterns))
}

var (
	pyFuncRe     = regexp.MustCompile(`(?m)^\s*(async\s+)?def\s+\w+`)
	pyDecisionRe = regexp.MustCompile(`\b(if|elif|for|while|except|with|and|or)\b`)
)

func pythonQuality(ctx context.Context, content []byte) float64 {
	complexity := 1.0
	avg, ok := pythonComplexity(ctx, content)
	if !ok {
		avg, ok = pythonComplexityApprox(content)
	}
	if ok {
		complexity = max(0, 1-avg/10)
	}

	lines := countLines(string(content), LangPython)
	return complexity*0.4 + structureScore(content, lines)*0.4 + docScore(lines)*0.2
}

// pythonComplexityApprox estimates mean complexity by keyword counting when
// no parser is available.
func pythonComplexityApprox(content []byte) (float64, bool) {
	funcs := len(pyFuncRe.FindAll(content, -1))
	if funcs == 0 {
		return 0, false
	}
	decisions := len(pyDecisionRe.FindAll(content, -1))
	return 1 + float64(decisions)/float64(funcs), true
}

const maxLineWidth = 100

// structureScore penalizes monolithic files and long lines.
func structureScore(content []byte, lines lineCounts) float64 {
	size := 0.0
	switch {
	case lines.code <= 200:
		size = 1
	case lines.code <= 500:
		size = 0.67
	case lines.code <= 800:
		size = 0.33
	}

	all := strings.Split(string(content), "\n")
	short := 0
	for _, l := range all {
		if len(l) <= maxLineWidth {
			short++
		}
	}
	return 0.5*size + 0.5*float64(short)/float64(len(all))
}

var (
	tsTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`interface\s+\w+`),
		regexp.MustCompile(`type\s+\w+\s*=`),
		regexp.MustCompile(`:\s*(string|number|boolean|any)\b`),
		regexp.MustCompile(`<\w+\s*extends\s*\w+>`),
		regexp.MustCompile(`as\s+const`),
	}
	tsComponentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`export\s+(default\s+)?function\s+\w+`),
		regexp.MustCompile(`const\s+\w+\s*=\s*\([^)]*\)\s*:`),
		regexp.MustCompile(`useState<`),
		regexp.MustCompile(`useEffect`),
		regexp.MustCompile(`Props>`),
	}
	tsErrorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`try\s*\{`),
		regexp.MustCompile(`catch\s*\(`),
		regexp.MustCompile(`throw\s+new\s+Error`),
		regexp.MustCompile(`\.catch\(`),
		regexp.MustCompile(`Error>`),
	}
)

func scriptQuality(content []byte, lang Language) float64 {
	lines := countLines(string(content), lang)
	return docScore(lines)*0.2 +
		patternShare(content, tsTypePatterns)*0.3 +
		patternShare(content, tsComponentPatterns)*0.3 +
		patternShare(content, tsErrorPatterns)*0.2
}

var (
	rustErrorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Result<.*>`),
		regexp.MustCompile(`Option<.*>`),
		regexp.MustCompile(`match .*`),
		regexp.MustCompile(`\.unwrap_or\(`),
		regexp.MustCompile(`\.unwrap_or_else\(`),
		regexp.MustCompile(`\.map_err\(`),
	}
	rustTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`pub struct `),
		regexp.MustCompile(`pub enum `),
		regexp.MustCompile(`pub trait `),
		regexp.MustCompile(`pub fn `),
		regexp.MustCompile(`impl `),
	}
)

func rustQuality(content []byte) float64 {
	lines := countLines(string(content), LangRust)
	return docScore(lines)*0.3 +
		patternShare(content, rustErrorPatterns)*0.4 +
		patternShare(content, rustTypePatterns)*0.3
}
