// headerdoc extracts the documentation model of C++ headers: declarations,
// overload sets, doc comments and doc groups.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phobologic/headerdoc/internal/batch"
	"github.com/phobologic/headerdoc/internal/config"
	"github.com/phobologic/headerdoc/internal/coverage"
	"github.com/phobologic/headerdoc/internal/crosscheck"
	"github.com/phobologic/headerdoc/internal/discover"
	"github.com/phobologic/headerdoc/internal/export"
	"github.com/phobologic/headerdoc/internal/extract"
	"github.com/phobologic/headerdoc/internal/graph"
	"github.com/phobologic/headerdoc/internal/lookup"
	"github.com/phobologic/headerdoc/internal/model"
	"github.com/phobologic/headerdoc/internal/ranking"
	"github.com/phobologic/headerdoc/internal/symtab"
	"github.com/phobologic/headerdoc/internal/toon"
	"github.com/phobologic/headerdoc/internal/watch"
)

var version = "dev"

var errNoHeaders = errors.New("no headers found")

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// globalFlags are shared by every command that analyzes a tree.
type globalFlags struct {
	configFile string
	verbose    bool
	crosscheck bool
	recover    bool
	workers    int
	progress   bool
}

type rootFlags struct {
	globalFlags
	format   string
	maxFiles int
	file     string
	symbol   string
	watch    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "headerdoc [root]",
		Short: "Extract the documentation model of C++ headers",
		Long: `headerdoc scans a source tree for C++ headers and reports every declaration
with its doc comments, overload sets, doc groups and class inheritance, with
files ranked by how central they are to the inheritance graph.`,
		Args:          cobra.MaximumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, rootArg(args), &f.globalFlags, stderr)
			if err != nil {
				return err
			}
			defer s.close()
			if cmd.Flags().Changed("format") {
				s.cfg.Format = f.format
				if err := config.Validate(s.cfg); err != nil {
					return err
				}
			}

			render := func(ctx context.Context) error {
				rep, err := s.analyze(ctx)
				if err != nil {
					return err
				}
				if f.file != "" {
					rep = ranking.FilterByFile(rep, f.file)
				}
				if f.symbol != "" {
					rep = ranking.FilterBySymbol(rep, f.symbol)
				}
				if f.maxFiles > 0 {
					rep = ranking.SelectFiles(rep, f.maxFiles)
				}
				return write(stdout, rep, export.Format(s.cfg.Format))
			}

			if err := render(cmd.Context()); err != nil {
				return err
			}
			if !f.watch {
				return nil
			}
			return s.watch(cmd.Context(), func(ctx context.Context, changed []string) error {
				s.log.Info("headers changed", "files", changed)
				err := render(ctx)
				if errors.Is(err, errNoHeaders) {
					s.log.Warn("no headers left to report")
					return nil
				}
				return err
			})
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("headerdoc {{.Version}}\n")

	addGlobalFlags(cmd, &f.globalFlags)
	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "toon", "output format: toon, json or yaml")
	flags.IntVarP(&f.maxFiles, "max-files", "n", 0, "maximum number of files to include, by rank")
	flags.StringVarP(&f.file, "file", "f", "", "only include files whose path contains this string")
	flags.StringVarP(&f.symbol, "symbol", "s", "", "only include declarations whose name contains this string")
	flags.BoolVarP(&f.watch, "watch", "w", false, "re-run whenever a header changes")

	cmd.AddCommand(newLookupCmd(stdout, stderr))
	cmd.AddCommand(newCoverageCmd(stdout, stderr))
	cmd.AddCommand(newInitCmd(stdout, stderr))
	cmd.AddCommand(newSchemaCmd(stdout))
	return cmd
}

func newSchemaCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of --format json output",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(export.Schema())
		},
	}
}

func addGlobalFlags(cmd *cobra.Command, g *globalFlags) {
	flags := cmd.Flags()
	flags.StringVarP(&g.configFile, "config", "c", "", "config file (default is <root>/"+config.FileName+")")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log progress to stderr")
	flags.BoolVar(&g.crosscheck, "crosscheck", false, "compare every header against a tree-sitter outline")
	flags.BoolVar(&g.recover, "recover", false, "report unparseable declarations as warnings instead of failing the file")
	flags.IntVarP(&g.workers, "workers", "j", 0, "parallel parses (default GOMAXPROCS)")
	flags.BoolVar(&g.progress, "progress", false, "draw a progress bar on stderr while parsing")
}

func newLookupCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		g   globalFlags
		all bool
	)
	cmd := &cobra.Command{
		Use:   "lookup <query> [root]",
		Short: "Resolve a symbol name, optionally with an argument list",
		Example: `  headerdoc lookup MyClass
  headerdoc lookup 'my_func(int)' include/
  headerdoc lookup --all my_namespace::f`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, rootArg(args[1:]), &g, stderr)
			if err != nil {
				return err
			}
			defer s.close()

			rep, err := s.analyze(cmd.Context())
			if err != nil {
				return err
			}
			m := lookup.New(rep.Tables()...)
			s.log.Debug("symbol map", "entries", m.Len())

			var entries []lookup.Entry
			if all {
				entries, err = m.Candidates(args[0])
				if err == nil && len(entries) == 0 {
					err = fmt.Errorf("%q: %w", args[0], lookup.ErrNotFound)
				}
			} else {
				var e *lookup.Entry
				if e, err = m.Find(args[0]); err == nil {
					entries = []lookup.Entry{*e}
				}
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(stdout, toon.EncodeEntries(entries, graph.Build(rep.Tables())))
			return nil
		},
	}
	addGlobalFlags(cmd, &g)
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every match instead of the best one")
	return cmd
}

func newCoverageCmd(stdout, stderr io.Writer) *cobra.Command {
	var (
		g globalFlags
		n int
	)
	cmd := &cobra.Command{
		Use:   "coverage [root]",
		Short: "Report documentation coverage per header, worst first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd, rootArg(args), &g, stderr)
			if err != nil {
				return err
			}
			defer s.close()

			rep, err := s.analyze(cmd.Context())
			if err != nil {
				return err
			}
			cov := coverage.Select(coverage.Compute(rep.Tables()), n)
			_, _ = fmt.Fprintln(stdout, toon.EncodeCoverage(cov))
			return nil
		},
	}
	addGlobalFlags(cmd, &g)
	cmd.Flags().IntVarP(&n, "max-files", "n", 0, "only list the n worst covered files")
	return cmd
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// session holds what one invocation needs to analyze a tree, kept across
// re-runs in watch mode.
type session struct {
	root     string
	cfg      *config.Config
	opts     extract.Options
	cache    *batch.Cache
	log      *slog.Logger
	progress io.Writer
}

func newSession(cmd *cobra.Command, root string, g *globalFlags, stderr io.Writer) (*session, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: not a directory", root)
	}

	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(root, g.configFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("crosscheck") {
		cfg.CrossCheck = g.crosscheck
	}
	if flags.Changed("recover") {
		cfg.Parse.Recover = g.recover
	}
	if flags.Changed("workers") {
		cfg.Workers = g.workers
	}

	ignore, err := cfg.IgnorePatterns()
	if err != nil {
		return nil, err
	}
	opts := extract.Options{
		AnnotationMacros:   cfg.AnnotationMacros,
		Recover:            cfg.Parse.Recover,
		DuplicateFunctions: symtab.DuplicatePolicy(cfg.Parse.DuplicateFunctions),
		CommentGap:         cfg.Parse.CommentGap,
		Ignore:             ignore,
		Logger:             log,
	}
	if cfg.CrossCheck {
		if opts.Checker, err = crosscheck.New(log); err != nil {
			return nil, fmt.Errorf("crosscheck: %w", err)
		}
	}

	s := &session{root: root, cfg: cfg, opts: opts, log: log}
	if g.progress {
		s.progress = stderr
	}
	if cfg.CacheSize > 0 {
		if s.cache, err = batch.NewCache(cfg.CacheSize); err != nil {
			return nil, fmt.Errorf("creating cache: %w", err)
		}
	}
	return s, nil
}

func (s *session) close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// analyze discovers, parses and ranks every header under the root.
func (s *session) analyze(ctx context.Context) (*model.Report, error) {
	found, err := discover.Files(s.root, discover.Options{
		Extensions:  s.cfg.Extensions,
		Include:     s.cfg.Include,
		Exclude:     s.cfg.Exclude,
		MaxFileSize: s.cfg.MaxFileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}
	for _, f := range found.TooLarge {
		s.log.Warn("skipped large file", "path", f.Path, "size", f.Size, "limit", s.cfg.MaxFileSize)
	}
	if len(found.Files) == 0 {
		return nil, errNoHeaders
	}

	inputs := make([]batch.Input, len(found.Files))
	for i, f := range found.Files {
		inputs[i] = batch.Input{Path: f.Path}
	}
	bo := batch.Options{
		Root:    s.root,
		Workers: s.cfg.Workers,
		Extract: s.opts,
		Cache:   s.cache,
		Logger:  s.log,
	}
	finish := func() {}
	if s.progress != nil {
		bo.Progress, finish = newProgress(s.progress, len(inputs))
	}
	results, stats, err := batch.Run(ctx, inputs, bo)
	finish()
	if err != nil {
		return nil, err
	}
	s.log.Info("parsed headers", "parsed", stats.Parsed, "cached", stats.Cached, "failed", stats.Failed)

	return report(filepath.Base(s.root), results), nil
}

// report assembles the results into a ranked Report.
func report(name string, results []*extract.Result) *model.Report {
	rep := &model.Report{Name: name}
	paths := make([]string, 0, len(results))
	for _, r := range results {
		paths = append(paths, r.Path)
	}

	g := graph.Build(batch.Tables(results))
	deps := g.Dependencies()
	ranks := graph.Rank(paths, deps)

	for _, r := range results {
		rep.Files = append(rep.Files, model.FileReport{
			Path:        r.Path,
			Rank:        ranks[r.Path],
			Table:       r.Table,
			Diagnostics: r.Diagnostics,
		})
	}
	rep.Inherits = g.Edges()
	rep.Dependencies = deps
	rep.Diagnostics = g.Warnings()
	ranking.SortByRank(rep)
	return rep
}

func write(w io.Writer, rep *model.Report, format export.Format) error {
	if format == export.FormatTOON {
		_, err := fmt.Fprintln(w, toon.Encode(rep))
		return err
	}
	return export.Write(w, rep, format)
}

func (s *session) watch(ctx context.Context, fn func(context.Context, []string) error) error {
	w, err := watch.New(s.root, watch.Options{Extensions: s.cfg.Extensions, Logger: s.log})
	if err != nil {
		return fmt.Errorf("watching %s: %w", s.root, err)
	}
	defer w.Close()
	s.log.Info("watching for changes", "root", s.root)
	return w.Run(ctx, fn)
}
