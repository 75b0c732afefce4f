// Package runtime composes configuration, the generator, the preview server
// and the source watcher into a controllable lifecycle suitable for CLIs or
// SDK embedding. It exposes helpers to generate, start, wait and shut down.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/theroutercompany/routedoc/internal/openapi"
	"github.com/theroutercompany/routedoc/internal/platform/health"
	"github.com/theroutercompany/routedoc/internal/scan"
	pkglog "github.com/theroutercompany/routedoc/pkg/log"
	"github.com/theroutercompany/routedoc/pkg/metrics"
	"github.com/theroutercompany/routedoc/pkg/routedoc"
	"github.com/theroutercompany/routedoc/pkg/routedoc/config"
	"github.com/theroutercompany/routedoc/pkg/routedoc/extract"
	"github.com/theroutercompany/routedoc/pkg/routedoc/server"
)

var (
	// ErrAlreadyRunning indicates the runtime is already serving requests.
	ErrAlreadyRunning = errors.New("runtime already running")
	// ErrNotRunning indicates the runtime has not been started yet.
	ErrNotRunning = errors.New("runtime not running")
)

// Runtime orchestrates generation, persistence and the preview server based
// on routedoc configuration.
type Runtime struct {
	mu sync.Mutex

	cfg       config.Config
	scanner   *scan.Scanner
	generator *routedoc.Generator
	documents *openapi.Service
	tracker   *health.Generation
	checker   *health.Checker
	registry  *metrics.Registry
	server    *server.Server
	logger    pkglog.Logger
	watch     bool
	write     bool
	genOpts   []routedoc.Option

	genMu sync.Mutex

	cancel context.CancelFunc
	errCh  chan error
}

// Option customises runtime behaviour.
type Option func(*Runtime)

// WithLogger overrides the logger used by the runtime and its components.
func WithLogger(logger pkglog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithWatch regenerates whenever a matching source file changes while the
// runtime is running.
func WithWatch(enabled bool) Option {
	return func(r *Runtime) {
		r.watch = enabled
	}
}

// WithoutWrite keeps generated artifacts in memory instead of writing them to
// the output directory.
func WithoutWrite() Option {
	return func(r *Runtime) {
		r.write = false
	}
}

// WithGeneratorOptions appends options to the generator built from the
// configuration, e.g. a validator or a clock.
func WithGeneratorOptions(opts ...routedoc.Option) Option {
	return func(r *Runtime) {
		r.genOpts = append(r.genOpts, opts...)
	}
}

// New constructs a runtime from the provided configuration.
func New(cfg config.Config, opts ...Option) (*Runtime, error) {
	rt := &Runtime{
		cfg:    cfg,
		logger: pkglog.Shared(),
		write:  true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(rt)
		}
	}

	if rt.logger == nil {
		rt.logger = pkglog.Shared()
	}

	if cfg.Metrics.Enabled {
		rt.registry = metrics.NewRegistry(metrics.WithNamespace(metricsNamespace(cfg)))
	}

	rt.scanner = scan.New(cfg.Source.Root,
		scan.WithInclude(cfg.Source.Include...),
		scan.WithExclude(cfg.Source.Exclude...),
		scan.WithFilter(extract.Supported),
	)

	genOpts := []routedoc.Option{
		routedoc.WithInfo(cfg.RenderInfo()),
		routedoc.WithLogger(rt.logger),
		routedoc.WithWorkers(cfg.Workers),
		routedoc.WithMetrics(rt.registry),
		routedoc.WithValidator(openapi.NewValidator()),
	}
	if cfg.Output.Timestamp {
		genOpts = append(genOpts, routedoc.WithClock(time.Now))
	}
	rt.generator = routedoc.NewGenerator(append(genOpts, rt.genOpts...)...)

	rt.documents = openapi.NewService(
		openapi.WithDistDir(cfg.Output.Dir),
		openapi.WithNames(cfg.OutputNames()),
		openapi.WithLogger(rt.logger),
	)
	rt.tracker = health.NewGeneration()
	rt.checker = health.NewChecker(2*time.Second, rt.tracker.Probe())
	rt.server = server.New(cfg, rt.checker, rt.registry,
		server.WithDocumentProvider(rt.documents),
		server.WithLogger(rt.logger),
	)

	return rt, nil
}

func metricsNamespace(cfg config.Config) string {
	if cfg.Metrics.Namespace != "" {
		return cfg.Metrics.Namespace
	}
	return "routedoc"
}

// Generate scans the source tree, renders every output, writes the enabled
// outputs to the output directory and publishes them to the preview server.
// Failed runs leave the previously published documents in place.
func (r *Runtime) Generate(ctx context.Context) (*routedoc.Output, error) {
	r.genMu.Lock()
	defer r.genMu.Unlock()

	files, err := r.scanner.Scan(ctx)
	if err != nil {
		r.tracker.Record(0, err)
		return nil, err
	}

	out, err := r.generator.Generate(ctx, files)
	if err != nil {
		r.tracker.Record(0, err)
		return out, err
	}

	if r.write {
		written, err := out.Artifacts.WriteDir(r.cfg.Output.Dir, r.cfg.OutputNames())
		if err != nil {
			err = fmt.Errorf("write outputs: %w", err)
			r.tracker.Record(0, err)
			return out, err
		}
		r.logger.Infow("documentation written", "runId", out.RunID, "dir", r.cfg.Output.Dir, "files", len(written))
	}

	version := r.documents.Store(out.Artifacts)
	r.tracker.Record(len(out.Result.Descriptors), nil)
	r.server.Reload(version, out.RunID)
	return out, nil
}

// Start begins serving in the background until the supplied context is
// cancelled or Shutdown is called. With watching enabled the source tree is
// observed for changes.
func (r *Runtime) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.errCh != nil {
		return ErrAlreadyRunning
	}

	if ctx == nil {
		ctx = context.Background()
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.errCh = make(chan error, 1)

	var w *watcher
	if r.watch {
		var err error
		w, err = newWatcher(r.scanner, r.cfg.Watch.Debounce.AsDuration(), r.logger)
		if err != nil {
			cancel()
			r.cancel = nil
			r.errCh = nil
			return fmt.Errorf("start watcher: %w", err)
		}
		go w.run(runCtx, func(ctx context.Context) {
			if _, err := r.Generate(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Errorw("regeneration failed", "error", err)
			}
		})
	}

	errCh := r.errCh
	go func() {
		err := r.server.Start(runCtx)
		errCh <- err
		close(errCh)
	}()

	return nil
}

// Wait blocks until the runtime stops and returns the terminal error, normalising context cancellation to nil.
func (r *Runtime) Wait() error {
	r.mu.Lock()
	errCh := r.errCh
	r.mu.Unlock()

	if errCh == nil {
		return ErrNotRunning
	}

	err := <-errCh
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	r.mu.Lock()
	r.errCh = nil
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	return err
}

// Run starts the runtime and waits for completion.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	return r.Wait()
}

// Shutdown gracefully stops the runtime if it is running.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.server == nil || r.errCh == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if r.cancel != nil {
		r.cancel()
	}

	return r.server.Shutdown(ctx)
}

// Config returns the runtime's configuration.
func (r *Runtime) Config() config.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Server exposes the preview server, mainly for embedding its handler.
func (r *Runtime) Server() *server.Server {
	return r.server
}

// Status reports the outcome of the most recent generation.
func (r *Runtime) Status() health.Status {
	return r.tracker.Status()
}

// OutputPath returns where the output for name is written.
func (r *Runtime) OutputPath(name string) string {
	return filepath.Join(r.cfg.Output.Dir, name)
}
