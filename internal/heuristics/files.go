// Package heuristics holds the static scanners: quality, security,
// authenticity and execution readiness. All of them are deterministic and
// make no network calls.
package heuristics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Language is a source language the scanners understand.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangRust       Language = "rust"
)

// LanguageFromExtension maps a file extension (with dot) to a language.
func LanguageFromExtension(ext string) (Language, bool) {
	switch strings.ToLower(ext) {
	case ".py":
		return LangPython, true
	case ".js", ".jsx":
		return LangJavaScript, true
	case ".ts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".rs":
		return LangRust, true
	default:
		return "", false
	}
}

var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
}

// Source files larger than this are not scanned.
const maxFileBytes = 1 << 20

// SourceFile is one scanned file.
type SourceFile struct {
	Rel     string
	Lang    Language
	Content []byte
}

// SourceFiles lists the scannable files under root as sorted relative paths.
func SourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != root && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || info.Size() > maxFileBytes {
			return nil
		}
		if _, ok := LanguageFromExtension(filepath.Ext(path)); !ok {
			return nil
		}
		if strings.HasSuffix(info.Name(), ".d.ts") || strings.HasSuffix(info.Name(), ".min.js") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing source files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// LoadSources reads every scannable file under root.
func LoadSources(root string) ([]SourceFile, error) {
	rels, err := SourceFiles(root)
	if err != nil {
		return nil, err
	}
	out := make([]SourceFile, 0, len(rels))
	for _, rel := range rels {
		data, err := os.ReadFile(filepath.Join(root, rel))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		lang, _ := LanguageFromExtension(filepath.Ext(rel))
		out = append(out, SourceFile{Rel: rel, Lang: lang, Content: data})
	}
	return out, nil
}

// lineCounts is the number of code and comment lines in a file.
type lineCounts struct {
	total    int
	code     int
	comments int
}

func countLines(content string, lang Language) lineCounts {
	var c lineCounts
	inBlock := false
	inDocstring := false
	for _, line := range strings.Split(content, "\n") {
		c.total++
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if lang == LangPython {
			switch {
			case inDocstring:
				c.comments++
				if strings.Contains(trimmed, `"""`) || strings.Contains(trimmed, `'''`) {
					inDocstring = false
				}
			case strings.HasPrefix(trimmed, "#"):
				c.comments++
			case strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, `'''`):
				c.comments++
				quote := trimmed[:3]
				if strings.Count(trimmed, quote) < 2 {
					inDocstring = true
				}
			default:
				c.code++
			}
			continue
		}

		if inBlock {
			c.comments++
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(trimmed, "/*"):
			c.comments++
			inBlock = !strings.Contains(trimmed, "*/")
		case strings.HasPrefix(trimmed, "//"):
			c.comments++
		default:
			c.code++
		}
	}
	return c
}

// lineOf returns the 1-based line number of byte offset off.
func lineOf(content []byte, off int) int {
	return strings.Count(string(content[:off]), "\n") + 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
