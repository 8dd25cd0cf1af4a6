// Package batch extracts many headers in parallel and caches the results.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/maypok86/otter"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/headerdoc/internal/extract"
	"github.com/phobologic/headerdoc/internal/model"
)

// Input is one header to extract. When Src is nil the file is read from
// Root/Path by the worker.
type Input struct {
	Path string
	Src  []byte
}

// Options configures Run.
type Options struct {
	Root    string
	Workers int
	Extract extract.Options
	// Cache is optional; results found in it are reused as-is.
	Cache *Cache
	// Progress, when set, is called from the workers after each file is
	// done. It must be safe for concurrent use.
	Progress func(path string)
	Logger   *slog.Logger
}

// Cache holds extraction results keyed by input content and options.
// Cached results are shared and must not be modified.
type Cache struct {
	c otter.Cache[string, *extract.Result]
}

// NewCache returns a cache holding at most size results.
func NewCache(size int) (*Cache, error) {
	c, err := otter.MustBuilder[string, *extract.Result](size).Build()
	if err != nil {
		return nil, fmt.Errorf("building result cache: %w", err)
	}
	return &Cache{c: c}, nil
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	return c.c.Size()
}

// Close releases the cache.
func (c *Cache) Close() {
	c.c.Close()
}

// Key is the cache key of a header: sha256 over path, content and the
// options fingerprint.
func Key(path string, src []byte, fingerprint string) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(src)
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Stats counts what one Run did.
type Stats struct {
	Parsed int
	Cached int
	Failed int
}

// Run extracts every input and returns the results in input order. A failing
// file never affects another; its Result carries the error. Run itself only
// fails when ctx is cancelled, in which case unscheduled files are skipped.
func Run(ctx context.Context, inputs []Input, opts Options) ([]*extract.Result, Stats, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("component", "batch")

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	fingerprint := opts.Extract.Fingerprint()

	var parsed, cached, failed atomic.Int32
	results := make([]*extract.Result, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, in := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if opts.Progress != nil {
				defer opts.Progress(in.Path)
			}
			src := in.Src
			if src == nil {
				var err error
				src, err = os.ReadFile(filepath.Join(opts.Root, in.Path))
				if err != nil {
					failed.Add(1)
					results[i] = readFailure(in.Path, err)
					return nil
				}
			}

			var key string
			if opts.Cache != nil {
				key = Key(in.Path, src, fingerprint)
				if res, ok := opts.Cache.c.Get(key); ok {
					cached.Add(1)
					results[i] = res
					return nil
				}
			}

			res := extract.File(gctx, in.Path, src, opts.Extract)
			parsed.Add(1)
			if !res.OK() {
				failed.Add(1)
				log.Debug("extract failed", "file", in.Path, "error", res.Err)
			}
			if opts.Cache != nil {
				opts.Cache.c.Set(key, res)
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	stats := Stats{Parsed: int(parsed.Load()), Cached: int(cached.Load()), Failed: int(failed.Load())}
	if err != nil {
		return nil, stats, err
	}
	log.Debug("batch done", "files", len(inputs), "parsed", stats.Parsed, "cached", stats.Cached, "failed", stats.Failed)
	return results, stats, nil
}

func readFailure(path string, err error) *extract.Result {
	return &extract.Result{
		Path: path,
		Err:  fmt.Errorf("reading %s: %w", path, err),
		Diagnostics: []model.Diagnostic{{
			Severity: model.SeverityError,
			Code:     model.CodeIO,
			File:     path,
			Message:  err.Error(),
		}},
	}
}

// Tables returns the tables of the successful results, in order.
func Tables(results []*extract.Result) []*model.SymbolTable {
	var out []*model.SymbolTable
	for _, r := range results {
		if r != nil && r.Table != nil {
			out = append(out, r.Table)
		}
	}
	return out
}

// Diagnostics flattens the diagnostics of all results, in order.
func Diagnostics(results []*extract.Result) []model.Diagnostic {
	var out []model.Diagnostic
	for _, r := range results {
		if r != nil {
			out = append(out, r.Diagnostics...)
		}
	}
	return out
}
