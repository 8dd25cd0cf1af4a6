// Package extract runs the full single-file pipeline: header text in, symbol
// table and diagnostics out.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/headerdoc/internal/crosscheck"
	"github.com/phobologic/headerdoc/internal/doc"
	"github.com/phobologic/headerdoc/internal/lex"
	"github.com/phobologic/headerdoc/internal/macro"
	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/parse"
	"github.com/phobologic/headerdoc/internal/symtab"
)

// Options configures one file extraction.
type Options struct {
	// AnnotationMacros are accepted as annotation macros wherever they
	// appear, on top of the generic recognition rule.
	AnnotationMacros []string
	// Recover turns member grammar errors into warnings.
	Recover            bool
	DuplicateFunctions symtab.DuplicatePolicy
	// CommentGap is the number of blank lines allowed inside one comment
	// block. Negative means doc.DefaultGap.
	CommentGap int
	// Ignore drops warnings whose message matches any of the expressions.
	Ignore []*regexp.Regexp
	// Checker, when set, cross-checks every table against tree-sitter.
	Checker *crosscheck.Checker
	Logger  *slog.Logger
}

// Fingerprint identifies the options for caching: two option values with the
// same fingerprint produce the same result for the same input.
func (o Options) Fingerprint() string {
	names := append([]string(nil), o.AnnotationMacros...)
	sort.Strings(names)
	ignore := make([]string, len(o.Ignore))
	for i, re := range o.Ignore {
		ignore[i] = re.String()
	}
	return fmt.Sprintf("macros=%s;recover=%t;dup=%s;gap=%d;ignore=%s;crosscheck=%t",
		strings.Join(names, ","), o.Recover, o.DuplicateFunctions, o.CommentGap,
		strings.Join(ignore, "\x00"), o.Checker != nil)
}

// Result is the outcome of extracting one file. Table is nil when Err is set.
type Result struct {
	Path        string
	Table       *model.SymbolTable
	Diagnostics []model.Diagnostic
	Err         error
}

// OK reports whether the file produced a table.
func (r *Result) OK() bool {
	return r.Err == nil
}

// File extracts the symbol table of the header at path with contents src.
// Fatal errors are reported through Result.Err and an error diagnostic, never
// as a panic.
func File(ctx context.Context, path string, src []byte, opts Options) *Result {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	res := &Result{Path: path}

	toks, err := lex.Tokenize(path, src)
	if err != nil {
		return res.fail(err)
	}
	blocks := doc.Collect(toks, doc.Options{Gap: opts.CommentGap})

	var policy macro.Policy = macro.Generic{}
	if len(opts.AnnotationMacros) > 0 {
		policy = macro.NewKnown(opts.AnnotationMacros...)
	}
	parsed, err := parse.Parse(path, toks, doc.NewIndex(toks, blocks), parse.Options{
		Policy:  policy,
		Recover: opts.Recover,
		Logger:  log,
	})
	if err != nil {
		return res.fail(err)
	}
	res.warn(opts.Ignore, parsed.Warnings...)

	tab, warnings, err := symtab.Build(path, parsed, blocks, symtab.Options{
		DuplicateFunctions: opts.DuplicateFunctions,
		Logger:             log,
	})
	if err != nil {
		return res.fail(err)
	}
	res.warn(opts.Ignore, warnings...)
	res.Table = tab

	if opts.Checker != nil {
		rep, err := opts.Checker.Check(ctx, tab, src)
		if err != nil {
			log.Warn("crosscheck failed", "file", path, "error", err)
		} else {
			res.warn(opts.Ignore, rep.Diagnostics...)
		}
	}

	log.Debug("extracted", "summary", symtab.Describe(tab), "diagnostics", len(res.Diagnostics))
	return res
}

func (r *Result) fail(err error) *Result {
	r.Err = err
	r.Table = nil
	var d model.Diagnoser
	if errors.As(err, &d) {
		r.Diagnostics = append(r.Diagnostics, d.Diagnostic())
	} else {
		r.Diagnostics = append(r.Diagnostics, model.Diagnostic{
			Severity: model.SeverityError,
			Code:     model.CodeParse,
			File:     r.Path,
			Message:  err.Error(),
		})
	}
	return r
}

func (r *Result) warn(ignore []*regexp.Regexp, ds ...model.Diagnostic) {
	for _, d := range ds {
		if !Ignored(ignore, d) {
			r.Diagnostics = append(r.Diagnostics, d)
		}
	}
}

// Ignored reports whether d is a warning whose message matches one of the
// expressions. Errors are never ignored.
func Ignored(ignore []*regexp.Regexp, d model.Diagnostic) bool {
	if d.Severity == model.SeverityError {
		return false
	}
	for _, re := range ignore {
		if re.MatchString(d.Message) {
			return true
		}
	}
	return false
}
