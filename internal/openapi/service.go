package openapi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	pkglog "github.com/theroutercompany/routedoc/pkg/log"
	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
)

const defaultDistDir = "docs"

// ErrNotGenerated reports that no document has been generated or persisted
// yet for the requested format.
var ErrNotGenerated = errors.New("document not generated yet")

// DocumentProvider exposes generated documents by format.
type DocumentProvider interface {
	Document(ctx context.Context, format render.Format) ([]byte, error)
}

// Service holds the most recently generated artifacts and falls back to the
// files persisted in the output directory. File reads are cached until the
// file's modification time changes.
type Service struct {
	distDir string
	names   render.Names
	logger  pkglog.Logger

	mu      sync.Mutex
	latest  *render.Artifacts
	version uint64
	cache   map[render.Format]*cacheEntry
}

type cacheEntry struct {
	raw     []byte
	modTime time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithDistDir overrides the directory generated documents are persisted in.
func WithDistDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.distDir = dir
		}
	}
}

// WithNames overrides the persisted file names.
func WithNames(names render.Names) Option {
	return func(s *Service) {
		s.names = names
	}
}

// WithLogger sets the service logger.
func WithLogger(logger pkglog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs a Service with optional overrides.
func NewService(opts ...Option) *Service {
	s := &Service{
		distDir: filepath.FromSlash(defaultDistDir),
		names: render.Names{
			JSON:     "openapi.json",
			YAML:     "openapi.yaml",
			Markdown: "API.md",
			HTML:     "index.html",
		},
		logger: pkglog.NewNop(),
		cache:  make(map[render.Format]*cacheEntry),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Store replaces the in-memory artifacts and returns the new version number.
func (s *Service) Store(artifacts *render.Artifacts) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = artifacts
	s.version++
	return s.version
}

// Version reports how many times Store has been called.
func (s *Service) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Document returns the document for format.
func (s *Service) Document(ctx context.Context, format render.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latest != nil {
		if data := s.latest.Bytes(format); data != nil {
			return clone(data), nil
		}
	}

	path := s.path(format)
	if path == "" {
		return nil, fmt.Errorf("%s: %w", format, ErrNotGenerated)
	}

	if data, ok := s.cachedIfCurrent(format, path); ok {
		return data, nil
	}

	data, modTime, err := readDist(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", format, ErrNotGenerated)
		}
		s.logger.Warnw("failed to read persisted document", "error", err, "path", path)
		return nil, fmt.Errorf("read dist: %w", err)
	}
	s.cache[format] = &cacheEntry{raw: data, modTime: modTime}
	return clone(data), nil
}

func (s *Service) path(format render.Format) string {
	name := s.names.For(format)
	if name == "" {
		return ""
	}
	return filepath.Join(s.distDir, name)
}

func (s *Service) cachedIfCurrent(format render.Format, path string) ([]byte, bool) {
	entry := s.cache[format]
	if entry == nil {
		return nil, false
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if info.ModTime().Equal(entry.modTime) {
		return clone(entry.raw), true
	}
	return nil, false
}

func readDist(path string) ([]byte, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}

	return data, info.ModTime(), nil
}

func clone(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
