package heuristics

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

// Sandbox runs an optional container check against a workspace.
type Sandbox interface {
	Check(ctx context.Context, workDir string) (bool, error)
}

// Execution breaks down the execution readiness score.
type Execution struct {
	Score          float64
	Syntax         float64
	Implementation float64
	Dependencies   float64
	ParsedFiles    int
	ValidFiles     int
	// SandboxPassed is nil when no sandbox check ran.
	SandboxPassed *bool
}

// ExecutionVerifier estimates whether a project can run and perform AI
// operations.
type ExecutionVerifier struct {
	Sandbox Sandbox
	Logger  *slog.Logger
}

// Score returns only the combined execution score.
func (v *ExecutionVerifier) Score(ctx context.Context, root string) (float64, error) {
	files, err := LoadSources(root)
	if err != nil {
		return 0, err
	}
	return v.Verify(ctx, root, files).Score, nil
}

// Verify combines syntax validity (25%), AI implementation checks (65%) and
// dependency manifests (10%). A failed sandbox check halves the syntax part.
func (v *ExecutionVerifier) Verify(ctx context.Context, root string, files []SourceFile) *Execution {
	log := v.Logger
	if log == nil {
		log = slog.Default()
	}

	e := &Execution{}
	e.Syntax = v.syntax(ctx, files, e, log)
	if v.Sandbox != nil {
		ok, err := v.Sandbox.Check(ctx, root)
		if err != nil {
			log.Warn("sandbox check failed", "dir", root, "error", err)
		}
		passed := ok && err == nil
		e.SandboxPassed = &passed
		if !passed {
			e.Syntax *= 0.5
		}
	}
	e.Implementation = implementationChecks(files)
	e.Dependencies = dependencyManifests(root, files)
	e.Score = e.Syntax*0.25 + e.Implementation*0.65 + e.Dependencies*0.1
	return e
}

func (v *ExecutionVerifier) syntax(ctx context.Context, files []SourceFile, e *Execution, log *slog.Logger) float64 {
	if !SyntaxAvailable() {
		log.Debug("syntax validation unavailable, using neutral score")
		return 0.5
	}
	for _, f := range files {
		ok, err := SyntaxValid(ctx, f.Content, f.Lang)
		if err != nil {
			log.Debug("parse failed", "file", f.Rel, "error", err)
			continue
		}
		e.ParsedFiles++
		if ok {
			e.ValidFiles++
		}
	}
	if e.ParsedFiles == 0 {
		return 0
	}
	return float64(e.ValidFiles) / float64(e.ParsedFiles)
}

// implementationCategories are the kinds of AI plumbing a runnable project
// is expected to contain.
var implementationCategories = [][]*regexp.Regexp{
	// model initialization
	{
		regexp.MustCompile(`CompletionModel::new`),
		regexp.MustCompile(`EmbeddingModel::new`),
		regexp.MustCompile(`Agent::new`),
		regexp.MustCompile(`model\s*=\s*[A-Za-z]+Model\(`),
		regexp.MustCompile(`torch\.nn\.Module`),
		regexp.MustCompile(`keras\.Model`),
		regexp.MustCompile(`new\s+OpenAI\s*\(`),
	},
	// inference
	{
		regexp.MustCompile(`async\s+fn\s+completion`),
		regexp.MustCompile(`async\s+fn\s+embed`),
		regexp.MustCompile(`fn\s+forward`),
		regexp.MustCompile(`def\s+predict`),
		regexp.MustCompile(`def\s+forward`),
		regexp.MustCompile(`model\.predict`),
		regexp.MustCompile(`\.chat\.completions\.create`),
	},
	// error handling around AI calls
	{
		regexp.MustCompile(`CompletionError`),
		regexp.MustCompile(`EmbeddingError`),
		regexp.MustCompile(`Result<.*Response`),
		regexp.MustCompile(`(?s)try:.*except\s+(torch|tensorflow|transformers|openai)`),
	},
	// model configuration
	{
		regexp.MustCompile(`temperature\s*[=:]`),
		regexp.MustCompile(`max_tokens\s*[=:]`),
		regexp.MustCompile(`model_name\s*[=:]`),
		regexp.MustCompile(`batch_size\s*[=:]`),
		regexp.MustCompile(`learning_rate\s*[=:]`),
	},
}

// implementationChecks is the fraction of categories found anywhere in the
// project.
func implementationChecks(files []SourceFile) float64 {
	found := 0
	for _, category := range implementationCategories {
		for _, f := range files {
			if anyMatch(f.Content, category) {
				found++
				break
			}
		}
	}
	return float64(found) / float64(len(implementationCategories))
}

var manifests = map[Language][]string{
	LangPython:     {"requirements.txt", "pyproject.toml", "setup.py", "Pipfile"},
	LangJavaScript: {"package.json"},
	LangTypeScript: {"package.json"},
	LangTSX:        {"package.json"},
	LangRust:       {"Cargo.toml"},
}

// dependencyManifests is the fraction of the project's languages that have
// a dependency manifest at the root.
func dependencyManifests(root string, files []SourceFile) float64 {
	langs := map[Language]bool{}
	for _, f := range files {
		langs[f.Lang] = true
	}
	if len(langs) == 0 {
		return 0
	}
	declared := 0
	for lang := range langs {
		for _, name := range manifests[lang] {
			if _, err := os.Stat(filepath.Join(root, name)); err == nil {
				declared++
				break
			}
		}
	}
	return float64(declared) / float64(len(langs))
}
