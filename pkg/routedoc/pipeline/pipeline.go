// Package pipeline runs extraction over many files concurrently while keeping
// the output order identical to the input order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	pkglog "github.com/theroutercompany/routedoc/pkg/log"
	"github.com/theroutercompany/routedoc/pkg/routedoc/extract"
	"github.com/theroutercompany/routedoc/pkg/routedoc/merge"
	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
	"github.com/theroutercompany/routedoc/pkg/routedoc/normalize"
)

// Warning is a non-fatal problem with a single file.
type Warning struct {
	File string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.File, w.Err)
}

// Result is the outcome of a run.
type Result struct {
	Descriptors []model.Descriptor
	Warnings    []Warning
	// Files is the number of files handed to the run.
	Files int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of files processed at once. Values below one
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithLogger sets the logger used for per-file warnings.
func WithLogger(logger pkglog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics records run statistics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReadFile replaces os.ReadFile, mainly for tests.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.readFile = fn
		}
	}
}

// Engine extracts descriptors from source files.
type Engine struct {
	workers  int
	logger   pkglog.Logger
	metrics  *Metrics
	readFile func(string) ([]byte, error)
}

// New constructs an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:   pkglog.NewNop(),
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

type fileOutcome struct {
	descs   []model.Descriptor
	warning error
}

// Run processes files in parallel. Descriptors are ordered by file position in
// files, then by declaration order within each file. Cancelling ctx discards
// all partial results and returns the context error. An empty file list
// yields model.ErrNoFiles; a run recovering nothing yields the Result together
// with model.ErrNoRoutes so callers can still report warnings.
func (e *Engine) Run(ctx context.Context, files []string) (*Result, error) {
	if len(files) == 0 {
		return nil, model.ErrNoFiles
	}

	start := time.Now()
	outcomes := make([]fileOutcome, len(files))
	sem := make(chan struct{}, e.workers)
	wg := sync.WaitGroup{}

dispatch:
	for i, file := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			defer func() { <-sem }()
			outcomes[idx] = e.processFile(ctx, name)
		}(i, file)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Files: len(files)}
	for i, outcome := range outcomes {
		if outcome.warning != nil {
			result.Warnings = append(result.Warnings, Warning{File: files[i], Err: outcome.warning})
			continue
		}
		result.Descriptors = append(result.Descriptors, outcome.descs...)
	}
	normalize.UniqueOperationIDs(result.Descriptors)

	e.metrics.observeRun(len(files), len(result.Warnings), len(result.Descriptors), time.Since(start))

	if len(result.Descriptors) == 0 {
		return result, model.ErrNoRoutes
	}
	return result, nil
}

func (e *Engine) processFile(ctx context.Context, name string) fileOutcome {
	if ctx.Err() != nil {
		return fileOutcome{}
	}

	src, err := e.readFile(name)
	if err != nil {
		e.logger.Warnw("skipping unreadable file", "file", name, "error", err)
		return fileOutcome{warning: fmt.Errorf("read: %w", err)}
	}

	descs, err := ExtractFile(ctx, name, src)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fileOutcome{}
		}
		e.logger.Warnw("skipping unparseable file", "file", name, "error", err)
		return fileOutcome{warning: err}
	}

	e.logger.Debugw("extracted routes", "file", name, "routes", len(descs))
	return fileOutcome{descs: descs}
}

// ExtractFile runs extraction, merging and normalization over one file.
// Operation ids are not de-duplicated across files here; Run does that.
func ExtractFile(ctx context.Context, name string, src []byte) ([]model.Descriptor, error) {
	f, err := extract.Parse(ctx, name, src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pairs := merge.Merge(f.Routes(), f.Docs())
	descs := make([]model.Descriptor, 0, len(pairs))
	for _, pair := range pairs {
		descs = append(descs, normalize.Descriptor(pair.Route, pair.Doc))
	}
	return descs, nil
}
