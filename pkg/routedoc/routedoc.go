// Package routedoc generates API reference documentation from route
// registrations in JavaScript and TypeScript sources.
//
// A Generator runs the extraction pipeline over a list of files and renders
// the resulting descriptors into an OpenAPI-style document (JSON and YAML),
// Markdown and HTML:
//
//	gen := routedoc.NewGenerator(routedoc.WithInfo(render.Info{Title: "Shop API", Version: "1.0.0"}))
//	out, err := gen.Generate(ctx, files)
//
// Errors wrapping model.ErrNoFiles and model.ErrNoRoutes mark the two
// unsuccessful terminal outcomes; per-file problems are warnings on the
// returned output.
package routedoc

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkglog "github.com/theroutercompany/routedoc/pkg/log"
	"github.com/theroutercompany/routedoc/pkg/metrics"
	"github.com/theroutercompany/routedoc/pkg/routedoc/pipeline"
	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
)

// Validator checks an encoded API document.
type Validator interface {
	Validate(ctx context.Context, document []byte) error
}

// Output is the result of one generation.
type Output struct {
	RunID     string
	Result    *pipeline.Result
	Artifacts *render.Artifacts
	// ValidationErr is set when the validator rejected the API document. The
	// artifacts are still usable.
	ValidationErr error
}

// Option configures a Generator.
type Option func(*Generator)

// WithInfo sets the document metadata.
func WithInfo(info render.Info) Option {
	return func(g *Generator) {
		g.info = info
	}
}

// WithLogger sets the logger for the generator and its pipeline.
func WithLogger(logger pkglog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock stamps outputs with the time returned by now. Without a clock the
// outputs carry no timestamp.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithWorkers bounds per-file concurrency.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		g.workers = n
	}
}

// WithMetrics registers pipeline collectors on reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(g *Generator) {
		g.registry = reg
	}
}

// WithValidator validates every generated API document.
func WithValidator(v Validator) Option {
	return func(g *Generator) {
		g.validator = v
	}
}

// WithReadFile replaces the file reader used by the pipeline.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(g *Generator) {
		g.readFile = fn
	}
}

// Generator ties the pipeline, renderers and validation together. It is safe
// for concurrent use.
type Generator struct {
	info      render.Info
	logger    pkglog.Logger
	now       func() time.Time
	workers   int
	registry  *metrics.Registry
	validator Validator
	readFile  func(string) ([]byte, error)

	engine *pipeline.Engine
}

// NewGenerator constructs a Generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		logger: pkglog.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.engine = pipeline.New(
		pipeline.WithWorkers(g.workers),
		pipeline.WithLogger(g.logger),
		pipeline.WithMetrics(pipeline.NewMetrics(g.registry)),
		pipeline.WithReadFile(g.readFile),
	)
	return g
}

// Generate extracts descriptors from files and renders every output. When no
// routes are found the returned Output still carries the pipeline result so
// warnings can be reported.
func (g *Generator) Generate(ctx context.Context, files []string) (*Output, error) {
	out := &Output{RunID: uuid.NewString()}
	start := time.Now()

	result, err := g.engine.Run(ctx, files)
	out.Result = result
	if err != nil {
		g.logger.Warnw("generation produced no documentation", "runId", out.RunID, "files", len(files), "error", err)
		return out, err
	}

	var opts []render.Option
	if g.now != nil {
		opts = append(opts, render.WithGeneratedAt(g.now()))
	}
	artifacts, err := render.All(result.Descriptors, g.info, opts...)
	if err != nil {
		return out, fmt.Errorf("render: %w", err)
	}
	out.Artifacts = artifacts

	for _, skipped := range artifacts.Document.Skipped() {
		g.logger.Warnw("duplicate route omitted from api document", "runId", out.RunID, "route", skipped)
	}

	if g.validator != nil {
		if err := g.validator.Validate(ctx, artifacts.JSON); err != nil {
			out.ValidationErr = err
			g.logger.Warnw("api document failed validation", "runId", out.RunID, "error", err)
		}
	}

	g.logger.Infow("generation complete",
		"runId", out.RunID,
		"files", result.Files,
		"routes", len(result.Descriptors),
		"warnings", len(result.Warnings),
		"duration", time.Since(start).String(),
	)
	return out, nil
}

// Info returns the document metadata the generator renders with.
func (g *Generator) Info() render.Info {
	return g.info
}
