package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/theroutercompany/routedoc/internal/drift"
	"github.com/theroutercompany/routedoc/internal/openapi"
	pkglog "github.com/theroutercompany/routedoc/pkg/log"
	"github.com/theroutercompany/routedoc/pkg/routedoc"
	"github.com/theroutercompany/routedoc/pkg/routedoc/config"
	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
	"github.com/theroutercompany/routedoc/pkg/routedoc/runtime"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitNoFiles = 2
	exitNoRoute = 3
)

var errDrift = errors.New("generated documentation differs from the committed files")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitFailure
	}

	var err error
	switch args[0] {
	case "generate":
		err = generateCommand(args[1:], stdout, stderr)
	case "check":
		err = checkCommand(args[1:], stdout, stderr)
	case "serve":
		err = serveCommand(args[1:], stdout, stderr)
	case "init":
		err = initCommand(args[1:], stdout, stderr)
	case "validate":
		err = validateCommand(args[1:], stdout, stderr)
	case "-h", "--help", "help":
		usage(stdout)
		return exitOK
	default:
		usage(stderr)
		return exitFailure
	}

	if err == nil || errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	fmt.Fprintf(stderr, "routedoc %s: %v\n", args[0], err)
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, model.ErrNoFiles):
		return exitNoFiles
	case errors.Is(err, model.ErrNoRoutes):
		return exitNoRoute
	default:
		return exitFailure
	}
}

// sourceFlags are shared by every command that generates documentation.
type sourceFlags struct {
	configPath string
	root       string
	out        string
	logLevel   string
	workers    int
}

func (f *sourceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "", "Path to a routedoc configuration file (YAML or TOML)")
	fs.StringVar(&f.root, "root", "", "Source directory to scan (overrides source.root)")
	fs.StringVar(&f.out, "out", "", "Output directory (overrides output.dir)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.IntVar(&f.workers, "workers", 0, "Files parsed concurrently (0 uses every CPU)")
}

func (f *sourceFlags) load() (config.Config, error) {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return cfg, err
	}
	if f.root != "" {
		cfg.Source.Root = f.root
	}
	if f.out != "" {
		cfg.Output.Dir = f.out
	}
	if f.logLevel != "" {
		cfg.Log.Level = strings.ToLower(f.logLevel)
	}
	if f.workers > 0 {
		cfg.Workers = f.workers
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadConfig(path string) (config.Config, error) {
	opts := []config.Option{config.WithDefaultFiles()}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return config.Config{}, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.WithPath(path))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	logger, err := pkglog.New(level)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

func generateCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs)
	toStdout := fs.String("stdout", "", "Print one format (json, yaml, markdown, html) instead of writing files")
	noTimestamp := fs.Bool("no-timestamp", false, "Omit the generation timestamp")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := src.load()
	if err != nil {
		return err
	}
	if *noTimestamp {
		cfg.Output.Timestamp = false
	}

	var format render.Format
	if *toStdout != "" {
		format = render.Format(strings.ToLower(*toStdout))
		if !knownFormat(format) {
			return fmt.Errorf("unknown format %q", *toStdout)
		}
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := []runtime.Option{runtime.WithLogger(logger)}
	if format != "" {
		opts = append(opts, runtime.WithoutWrite())
	}
	cfg.Metrics.Enabled = false
	rt, err := runtime.New(cfg, opts...)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	out, err := rt.Generate(context.Background())
	printWarnings(stderr, out)
	if err != nil {
		return err
	}

	if format != "" {
		_, err := stdout.Write(out.Artifacts.Bytes(format))
		return err
	}

	fmt.Fprintf(stdout, "documented %d routes from %d files into %s\n", len(out.Result.Descriptors), out.Result.Files, cfg.Output.Dir)
	return nil
}

func checkCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs)
	showDiff := fs.Bool("diff", false, "Print the differing lines of each stale output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := src.load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg.Metrics.Enabled = false
	rt, err := runtime.New(cfg, runtime.WithLogger(logger), runtime.WithoutWrite())
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx := context.Background()
	out, err := rt.Generate(ctx)
	printWarnings(stderr, out)
	if err != nil {
		return err
	}

	checker := &drift.Checker{Dir: cfg.Output.Dir, Names: cfg.OutputNames()}
	results, err := checker.Compare(ctx, out.Artifacts)
	if err != nil {
		return fmt.Errorf("compare outputs: %w", err)
	}

	for _, r := range results {
		fmt.Fprintln(stdout, r.String())
		if *showDiff && r.Diff != "" {
			fmt.Fprint(stdout, r.Diff)
		}
	}
	if drift.Drifted(results) {
		return fmt.Errorf("%w; run `routedoc generate`", errDrift)
	}
	return nil
}

func serveCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var src sourceFlags
	src.register(fs)
	port := fs.Int("port", 0, "Port to listen on (overrides serve.port)")
	watch := fs.Bool("watch", false, "Regenerate when source files change")
	noReload := fs.Bool("no-live-reload", false, "Disable the live reload channel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := src.load()
	if err != nil {
		return err
	}
	if *port > 0 {
		cfg.Serve.Port = *port
	}
	if *noReload {
		cfg.Serve.LiveReload = false
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	rt, err := runtime.New(cfg, runtime.WithLogger(logger), runtime.WithWatch(*watch))
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	out, err := rt.Generate(ctx)
	printWarnings(stderr, out)
	if err != nil {
		if !*watch {
			return err
		}
		logger.Warnw("initial generation failed; waiting for changes", "error", err)
	}

	fmt.Fprintf(stdout, "serving documentation on http://localhost:%d\n", cfg.Serve.Port)
	return rt.Run(ctx)
}

func initCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(stderr)
	outputPath := fs.String("path", "routedoc.yaml", "Destination path for generated config")
	force := fs.Bool("force", false, "Overwrite existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*force {
		if _, err := os.Stat(*outputPath); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", *outputPath)
		}
	}

	sample, err := config.Sample()
	if err != nil {
		return fmt.Errorf("render sample config: %w", err)
	}
	if err := os.WriteFile(*outputPath, sample, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Fprintf(stdout, "configuration written to %s\n", *outputPath)
	return nil
}

func validateCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to a routedoc configuration file")
	document := fs.String("document", "", "Also validate a generated API document (JSON or YAML)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := loadConfig(*configPath); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	fmt.Fprintln(stdout, "configuration valid")

	if *document == "" {
		return nil
	}
	raw, err := os.ReadFile(*document)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	if err := openapi.NewValidator().Validate(context.Background(), raw); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	fmt.Fprintf(stdout, "document %s valid\n", *document)
	return nil
}

func printWarnings(w io.Writer, out *routedoc.Output) {
	if out == nil {
		return
	}
	if out.Result != nil {
		for _, warning := range out.Result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warning.String())
		}
	}
	if out.ValidationErr != nil {
		fmt.Fprintf(w, "warning: api document: %v\n", out.ValidationErr)
	}
}

func knownFormat(f render.Format) bool {
	for _, known := range render.Formats() {
		if f == known {
			return true
		}
	}
	return false
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: routedoc <command> [options]\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  generate  Extract routes and write the API document, Markdown and HTML\n")
	fmt.Fprintf(w, "  check     Fail when the committed documentation is out of date\n")
	fmt.Fprintf(w, "  serve     Serve the documentation with live reload (--watch to regenerate)\n")
	fmt.Fprintf(w, "  init      Generate a config skeleton\n")
	fmt.Fprintf(w, "  validate  Validate configuration (and optionally an API document)\n")
}
