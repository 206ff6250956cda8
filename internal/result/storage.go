package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// FileName is the name of a stored result inside its project directory.
const FileName = "result.json"

// CreateRunDir makes <baseDir>/runs/<UTC stamp> and points <baseDir>/latest
// at it.
func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir, err := filepath.Abs(filepath.Join(runsDir, stamp))
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ResultDir is where a project's result lives inside a run directory.
// Project names are sanitized and the id prefix keeps duplicates apart.
func ResultDir(runDir, project, id string) string {
	name := strings.Trim(unsafeChars.ReplaceAllString(project, "-"), "-.")
	if name == "" {
		name = "project"
	}
	if len(id) > 8 {
		id = id[:8]
	}
	if id != "" {
		name += "-" + id
	}
	return filepath.Join(runDir, "projects", name)
}

// WriteResult stores r as result.json under dir.
func WriteResult(dir string, r *AnalysisResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating result dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, FileName), data, 0o644)
}

// ReadResult loads a stored result.
func ReadResult(path string) (*AnalysisResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var r AnalysisResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}
	return &r, nil
}

// Stored is a result together with the file it was read from.
type Stored struct {
	Path   string
	Result *AnalysisResult
}

// ReadRun loads every result in a run directory, ordered by project name.
// runDir may be a symlink such as <baseDir>/latest.
func ReadRun(runDir string) ([]Stored, error) {
	root, err := filepath.EvalSymlinks(runDir)
	if err != nil {
		return nil, fmt.Errorf("resolving run dir: %w", err)
	}
	var out []Stored
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() != FileName {
			return nil
		}
		r, err := ReadResult(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, Stored{Path: path, Result: r})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking run dir: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Result.Project != out[j].Result.Project {
			return out[i].Result.Project < out[j].Result.Project
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}
