//go:build cgo

package heuristics

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SyntaxAvailable reports whether tree-sitter parsing is compiled in.
func SyntaxAvailable() bool {
	return true
}

func treeSitterLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangPython:
		return python.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

func parse(ctx context.Context, src []byte, lang Language) (*sitter.Tree, error) {
	tsLang, err := treeSitterLanguage(lang)
	if err != nil {
		return nil, err
	}
	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// SyntaxValid reports whether src parses without error nodes.
func SyntaxValid(ctx context.Context, src []byte, lang Language) (bool, error) {
	tree, err := parse(ctx, src, lang)
	if err != nil {
		return false, err
	}
	defer tree.Close()
	return !tree.RootNode().HasError(), nil
}

var pythonDecisionTypes = map[string]bool{
	"if_statement":             true,
	"elif_clause":              true,
	"for_statement":            true,
	"while_statement":          true,
	"except_clause":            true,
	"with_statement":           true,
	"boolean_operator":         true,
	"conditional_expression":   true,
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
}

// pythonComplexity returns the mean cyclomatic complexity of the
// functions in src. ok is false when src has no functions or cannot be
// parsed.
func pythonComplexity(ctx context.Context, src []byte) (avg float64, ok bool) {
	tree, err := parse(ctx, src, LangPython)
	if err != nil {
		return 0, false
	}
	defer tree.Close()

	var funcs []*sitter.Node
	walk(tree.RootNode(), func(n *sitter.Node) {
		if n.Type() == "function_definition" {
			funcs = append(funcs, n)
		}
	})
	if len(funcs) == 0 {
		return 0, false
	}

	total := 0
	for _, fn := range funcs {
		cc := 1
		walk(fn, func(n *sitter.Node) {
			if pythonDecisionTypes[n.Type()] {
				cc++
			}
		})
		total += cc
	}
	return float64(total) / float64(len(funcs)), true
}

func walk(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walk(node.Child(i), visit)
	}
}
