// Package discover finds C++ headers in a source tree.
package discover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/headerdoc/internal/lang"
)

// FileEntry represents a discovered header.
type FileEntry struct {
	Path string // Relative to root
	Size int64
}

// Options filters discovery.
type Options struct {
	// Extensions overrides the registered header extensions when non-empty.
	Extensions []string
	// Include restricts discovery to paths matching one of these globs,
	// matched against the slash-separated path relative to root. "**"
	// crosses directories; "*" does not.
	Include []string
	// Exclude holds extra gitignore-style patterns.
	Exclude []string
	// MaxFileSize skips larger files when positive.
	MaxFileSize int64
}

// Result lists the headers found and those skipped for size.
type Result struct {
	Files    []FileEntry
	TooLarge []FileEntry
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".hg":          {},
	".svn":         {},
	"build":        {},
	"out":          {},
	"_deps":        {},
	"CMakeFiles":   {},
	"bazel-out":    {},
}

// SkipDir reports whether a directory named name is never searched: VCS
// metadata, hidden directories and build trees.
func SkipDir(name string) bool {
	_, skip := skipDirs[name]
	return skip || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "cmake-build-")
}

// Files discovers headers under root. Inside a git work tree only files git
// knows about are considered; otherwise the root .gitignore is honoured.
func Files(root string, opts Options) (*Result, error) {
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = struct{}{}
	}
	isHeader := func(name string) bool {
		ext := strings.ToLower(filepath.Ext(name))
		if len(exts) > 0 {
			_, ok := exts[ext]
			return ok
		}
		return lang.ForExtension(ext) != ""
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}
	include, err := compileGlobs(opts.Include)
	if err != nil {
		return nil, err
	}
	var excl *ignore.GitIgnore
	if len(opts.Exclude) > 0 {
		excl = ignore.CompileIgnoreLines(opts.Exclude...)
	}

	res := &Result{}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}

		name := d.Name()

		if d.IsDir() {
			if path == root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}

		// Skip symlinks
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if !isHeader(name) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if gitFiles != nil {
			if _, ok := gitFiles[filepath.ToSlash(rel)]; !ok {
				return nil
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if excl != nil && excl.MatchesPath(rel) {
			return nil
		}
		if len(include) > 0 && !matchAny(include, filepath.ToSlash(rel)) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		entry := FileEntry{Path: rel, Size: info.Size()}
		if opts.MaxFileSize > 0 && entry.Size > opts.MaxFileSize {
			res.TooLarge = append(res.TooLarge, entry)
			return nil
		}
		res.Files = append(res.Files, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(res.Files, func(i, j int) bool {
		return res.Files[i].Path < res.Files[j].Path
	})
	sort.Slice(res.TooLarge, func(i, j int) bool {
		return res.TooLarge[i].Path < res.TooLarge[j].Path
	})

	return res, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var out []glob.Glob
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
