// Package crosscheck compares the declaration model of a header with the
// outline tree-sitter's C++ grammar finds in the same text.
package crosscheck

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/headerdoc/internal/lang"
	"github.com/phobologic/headerdoc/internal/model"
)

// Definition is one outline entry found by tree-sitter.
type Definition struct {
	Kind model.DeclKind
	Name string
	Pos  model.Pos
}

// Report is the outcome of one cross-check.
type Report struct {
	Definitions []Definition
	Diagnostics []model.Diagnostic
	// Skipped is set when tree-sitter could not parse the file cleanly, which
	// is normal for headers full of unexpanded macros.
	Skipped bool
}

// Checker runs cross-checks. It is safe for concurrent use; each call gets
// its own tree-sitter parser.
type Checker struct {
	lang *lang.Language
	log  *slog.Logger
}

// New returns a Checker for C++ headers.
func New(logger *slog.Logger) (*Checker, error) {
	l, ok := lang.Languages["cpp"]
	if !ok {
		return nil, fmt.Errorf("cpp language not registered")
	}
	if _, err := l.GetOutlineQuery(); err != nil {
		return nil, fmt.Errorf("loading cpp outline query: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Checker{lang: l, log: logger.With("component", "crosscheck")}, nil
}

// Outline parses src and returns its definitions in source order. hasErrors
// reports whether the syntax tree contains error nodes.
func (c *Checker) Outline(ctx context.Context, file string, src []byte) (defs []Definition, hasErrors bool, err error) {
	if len(src) == 0 {
		return nil, false, nil
	}
	query, err := c.lang.GetOutlineQuery()
	if err != nil {
		return nil, false, err
	}

	tree, err := c.lang.NewParser().ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, false, fmt.Errorf("tree-sitter parse %s: %w", file, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(query, root)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, src)

		var nameNode, defNode *sitter.Node
		var kind model.DeclKind
		for _, capture := range match.Captures {
			cname := query.CaptureNameForId(capture.Index)
			if cname == "name" {
				nameNode = capture.Node
			} else if k, ok := c.lang.Captures[cname]; ok {
				kind = k
				defNode = capture.Node
			}
		}
		if nameNode == nil || defNode == nil || inactive(defNode, src) {
			continue
		}
		defs = append(defs, Definition{
			Kind: kind,
			Name: lang.NodeText(nameNode, src),
			Pos:  lang.NodePos(file, nameNode),
		})
	}
	return defs, root.HasError(), nil
}

// Check reports outline definitions that have no declaration of the same
// kind and bare name in t.
func (c *Checker) Check(ctx context.Context, t *model.SymbolTable, src []byte) (*Report, error) {
	defs, hasErrors, err := c.Outline(ctx, t.File, src)
	if err != nil {
		return nil, err
	}
	rep := &Report{Definitions: defs}
	if hasErrors {
		c.log.Debug("tree has errors, skipping", "file", t.File)
		rep.Skipped = true
		return rep, nil
	}

	for _, d := range defs {
		if known(t, d) {
			continue
		}
		rep.Diagnostics = append(rep.Diagnostics, model.Warning(model.CodeCrossCheck, d.Pos,
			"tree-sitter sees %s %s but the model has no such declaration", d.Kind, d.Name))
	}
	c.log.Debug("crosscheck", "file", t.File, "definitions", len(defs), "missing", len(rep.Diagnostics))
	return rep, nil
}

func known(t *model.SymbolTable, d Definition) bool {
	for _, decl := range t.ByName(d.Name) {
		if decl.Kind() == d.Kind {
			return true
		}
	}
	return false
}

// inactive reports whether node sits in a conditional branch the declaration
// parser does not read: the body of "#if 0" or any #else/#elif alternative.
func inactive(node *sitter.Node, src []byte) bool {
	for n := node.Parent(); n != nil; n = n.Parent() {
		switch n.Type() {
		case "preproc_else", "preproc_elif", "preproc_elifdef":
			return true
		case "preproc_if":
			if cond := n.ChildByFieldName("condition"); cond != nil {
				switch strings.TrimSpace(lang.NodeText(cond, src)) {
				case "0", "false":
					return true
				}
			}
		}
	}
	return false
}
