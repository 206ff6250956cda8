package gitops

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// AcquireError reports a source that could not be materialized locally.
type AcquireError struct {
	Source string
	Err    error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquiring %s: %v", e.Source, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// Acquire materializes source into dest. An existing local directory is
// copied (without its .git directory); anything else is cloned with git.
// A remote source may pin a branch or tag as "url#ref".
func Acquire(ctx context.Context, source, dest string) error {
	if strings.HasPrefix(source, "-") {
		return &AcquireError{Source: source, Err: fmt.Errorf("source must not start with '-'")}
	}

	if info, err := os.Stat(source); err == nil {
		if !info.IsDir() {
			return &AcquireError{Source: source, Err: fmt.Errorf("not a directory")}
		}
		if err := copyTree(source, dest); err != nil {
			return &AcquireError{Source: source, Err: err}
		}
		return nil
	}

	if !IsRemote(source) {
		return &AcquireError{Source: source, Err: fmt.Errorf("no such directory and not a repository URL")}
	}
	repo, ref, _ := strings.Cut(source, "#")
	if err := Clone(ctx, repo, ref, dest); err != nil {
		return &AcquireError{Source: source, Err: err}
	}
	return nil
}

// IsRemote reports whether source looks like a git remote.
func IsRemote(source string) bool {
	return strings.Contains(source, "://") ||
		strings.HasPrefix(source, "git@") ||
		strings.HasSuffix(strings.SplitN(source, "#", 2)[0], ".git")
}

// Clone makes a shallow clone of repo at ref (default branch when empty).
func Clone(ctx context.Context, repo, ref, dest string) error {
	if repo == "" || strings.HasPrefix(repo, "-") {
		return fmt.Errorf("invalid repository %q", repo)
	}
	args := []string{"clone", "--depth", "1"}
	if ref != "" {
		if !validRef(ref) {
			return fmt.Errorf("invalid ref %q", ref)
		}
		args = append(args, "--branch", ref)
	}
	args = append(args, "--", repo, dest)

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

func validRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "-") || strings.Contains(ref, "..") {
		return false
	}
	return !strings.ContainsAny(ref, " \t\n~^:?*[\\")
}

// ProjectName derives a display name from a source path or URL.
func ProjectName(source string) string {
	s, _, _ := strings.Cut(source, "#")
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndexAny(s, "/:"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(s, ".git")
	if s == "" || s == "." {
		if abs, err := filepath.Abs(source); err == nil {
			return filepath.Base(abs)
		}
		return "project"
	}
	return s
}

var skipDirs = map[string]bool{".git": true}

func copyTree(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		switch {
		case info.IsDir():
			if rel != "." && skipDirs[info.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		case info.Mode().IsRegular():
			return copyFile(path, target, info.Mode().Perm())
		default:
			// Symlinks and devices are left out of the workspace.
			return nil
		}
	})
}

func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
