//go:build !cgo

package heuristics

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when syntax checks are unavailable because
// tree-sitter needs cgo.
var ErrNoCGO = errors.New("syntax validation requires CGO (tree-sitter)")

// SyntaxAvailable reports whether tree-sitter parsing is compiled in.
func SyntaxAvailable() bool {
	return false
}

// SyntaxValid always fails without cgo.
func SyntaxValid(ctx context.Context, src []byte, lang Language) (bool, error) {
	return false, ErrNoCGO
}

func pythonComplexity(ctx context.Context, src []byte) (float64, bool) {
	return 0, false
}
