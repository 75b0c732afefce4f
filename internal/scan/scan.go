// Package scan finds candidate source files under a root directory.
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// dirProbe is appended to a directory path to ask whether exclude patterns
// cover everything below it.
const dirProbe = "__routedoc_probe__"

// Scanner walks a directory tree and returns files matching the include
// globs and none of the exclude globs. Globs use forward slashes and are
// relative to the root.
type Scanner struct {
	root    string
	include []string
	exclude []string
	filter  func(string) bool
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithInclude sets the include globs.
func WithInclude(patterns ...string) Option {
	return func(s *Scanner) {
		s.include = append([]string(nil), patterns...)
	}
}

// WithExclude sets the exclude globs.
func WithExclude(patterns ...string) Option {
	return func(s *Scanner) {
		s.exclude = append([]string(nil), patterns...)
	}
}

// WithFilter adds a predicate every returned path must satisfy.
func WithFilter(fn func(path string) bool) Option {
	return func(s *Scanner) {
		s.filter = fn
	}
}

// New constructs a Scanner rooted at root.
func New(root string, opts ...Option) *Scanner {
	s := &Scanner{
		root:    root,
		include: []string{"**"},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Root returns the directory the scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Scan returns the matching files in lexical order. Hidden directories are
// never entered.
func (s *Scanner) Scan(ctx context.Context) ([]string, error) {
	for _, pattern := range append(append([]string{}, s.include...), s.exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}

	var files []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if s.skipRel(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !matchAny(s.include, rel) || s.excluded(rel) {
			return nil
		}
		if s.filter != nil && !s.filter(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.root, err)
	}
	return files, nil
}

// Match reports whether path (absolute or relative to the root) would be
// returned by Scan.
func (s *Scanner) Match(path string) bool {
	rel, ok := s.relative(path)
	if !ok || s.skipRel(parentDir(rel)) {
		return false
	}
	if !matchAny(s.include, rel) || s.excluded(rel) {
		return false
	}
	return s.filter == nil || s.filter(path)
}

// SkipDir reports whether Scan would prune the directory at path (absolute
// or relative to the root).
func (s *Scanner) SkipDir(path string) bool {
	rel, ok := s.relative(path)
	if !ok {
		return true
	}
	return s.skipRel(rel)
}

func (s *Scanner) skipRel(rel string) bool {
	if rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return s.excluded(rel + "/" + dirProbe)
}

func (s *Scanner) relative(path string) (string, bool) {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(s.root, path)
		if err != nil {
			return "", false
		}
		rel = r
	}
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (s *Scanner) excluded(rel string) bool {
	return matchAny(s.exclude, rel)
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func parentDir(rel string) string {
	idx := strings.LastIndex(rel, "/")
	if idx < 0 {
		return "."
	}
	return rel[:idx]
}
