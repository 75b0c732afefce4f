// Package config loads, validates, and normalises routedoc configuration.
//
// Configuration is layered: built-in defaults, then YAML or TOML files, then
// ROUTEDOC_* environment variables. The CLI, preview server and SDK callers
// share the same schema.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
)

const (
	defaultTitle           = "API Reference"
	defaultVersion         = "1.0.0"
	defaultSourceRoot      = "."
	defaultOutputDir       = "docs"
	defaultPort            = 4400
	defaultShutdownTimeout = 10 * time.Second
	defaultDebounce        = 500 * time.Millisecond
	defaultLogLevel        = "info"
	defaultConfigEnvVar    = "ROUTEDOC_CONFIG"
	envPrefix              = "ROUTEDOC"
)

// DefaultFiles are the config files tried when no path is given.
var DefaultFiles = []string{"routedoc.yaml", "routedoc.yml", "routedoc.toml"}

// Config captures every routedoc setting.
type Config struct {
	Info    InfoConfig    `yaml:"info" toml:"info"`
	Source  SourceConfig  `yaml:"source" toml:"source"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Workers int           `yaml:"workers" toml:"workers"`
	Serve   ServeConfig   `yaml:"serve" toml:"serve"`
	Watch   WatchConfig   `yaml:"watch" toml:"watch"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
	Log     LogConfig     `yaml:"log" toml:"log"`
}

// InfoConfig is the document metadata.
type InfoConfig struct {
	Title       string         `yaml:"title" toml:"title"`
	Version     string         `yaml:"version" toml:"version"`
	Description string         `yaml:"description" toml:"description"`
	Servers     []ServerConfig `yaml:"servers" toml:"servers" ignored:"true"`
}

// ServerConfig is one base URL listed in the documents.
type ServerConfig struct {
	URL         string `yaml:"url" toml:"url"`
	Description string `yaml:"description,omitempty" toml:"description"`
}

// SourceConfig selects the files to scan. Globs are relative to Root and
// support "**" and "{a,b}".
type SourceConfig struct {
	Root    string   `yaml:"root" toml:"root"`
	Include []string `yaml:"include" toml:"include"`
	Exclude []string `yaml:"exclude" toml:"exclude"`
}

// OutputConfig names the generated files. An empty file name disables that
// output.
type OutputConfig struct {
	Dir       string `yaml:"dir" toml:"dir"`
	JSON      string `yaml:"json" toml:"json"`
	YAML      string `yaml:"yaml" toml:"yaml"`
	Markdown  string `yaml:"markdown" toml:"markdown"`
	HTML      string `yaml:"html" toml:"html"`
	Timestamp bool   `yaml:"timestamp" toml:"timestamp"`
}

// ServeConfig configures the preview server.
type ServeConfig struct {
	Port               int      `yaml:"port" toml:"port"`
	ShutdownTimeout    Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout" split_words:"true"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins" toml:"corsAllowedOrigins" split_words:"true"`
	LiveReload         bool     `yaml:"liveReload" toml:"liveReload" split_words:"true"`
}

// WatchConfig configures regeneration on file changes.
type WatchConfig struct {
	Debounce Duration `yaml:"debounce" toml:"debounce"`
}

// MetricsConfig toggles metrics exposure.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" toml:"enabled"`
	Namespace string `yaml:"namespace" toml:"namespace"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

// Default returns baseline configuration values.
func Default() Config {
	return Config{
		Info: InfoConfig{
			Title:   defaultTitle,
			Version: defaultVersion,
		},
		Source: SourceConfig{
			Root:    defaultSourceRoot,
			Include: []string{"**/*.{js,jsx,mjs,cjs,ts,tsx,mts,cts}"},
			Exclude: []string{
				"**/node_modules/**",
				"**/test/**",
				"**/tests/**",
				"**/__tests__/**",
				"**/*.test.*",
				"**/*.spec.*",
				"**/*.d.ts",
			},
		},
		Output: OutputConfig{
			Dir:       defaultOutputDir,
			JSON:      "openapi.json",
			YAML:      "openapi.yaml",
			Markdown:  "API.md",
			HTML:      "index.html",
			Timestamp: true,
		},
		Serve: ServeConfig{
			Port:            defaultPort,
			ShutdownTimeout: DurationFrom(defaultShutdownTimeout),
			LiveReload:      true,
		},
		Watch: WatchConfig{
			Debounce: DurationFrom(defaultDebounce),
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: defaultLogLevel,
		},
	}
}

// Option customises the load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	paths    []string
	defaults bool
}

// WithPath adds a config file to load. Files ending in .toml are decoded as
// TOML, anything else as YAML. Missing files are skipped.
func WithPath(path string) Option {
	return func(o *loaderOptions) {
		if strings.TrimSpace(path) != "" {
			o.paths = append(o.paths, path)
		}
	}
}

// WithDefaultFiles also tries DefaultFiles in the working directory before
// any explicit path.
func WithDefaultFiles() Option {
	return func(o *loaderOptions) {
		o.defaults = true
	}
}

// Load builds a Config from defaults, config files, and environment overrides
// (in that order).
func Load(opts ...Option) (Config, error) {
	var options loaderOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	paths := make([]string, 0, len(DefaultFiles)+len(options.paths)+1)
	if options.defaults {
		paths = append(paths, DefaultFiles...)
	}
	if envPath := strings.TrimSpace(os.Getenv(defaultConfigEnvVar)); envPath != "" {
		paths = append(paths, envPath)
	}
	paths = append(paths, options.paths...)

	cfg := Default()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			return cfg, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := decode(path, data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %q: %w", path, err)
		}
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("apply environment overrides: %w", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize fills in defaults that may be missing after file/env overrides.
func (cfg *Config) normalize() {
	cfg.Info.Title = strings.TrimSpace(cfg.Info.Title)
	cfg.Info.Version = strings.TrimSpace(cfg.Info.Version)
	if strings.TrimSpace(cfg.Source.Root) == "" {
		cfg.Source.Root = defaultSourceRoot
	}
	cfg.Source.Include = trimAll(cfg.Source.Include)
	cfg.Source.Exclude = trimAll(cfg.Source.Exclude)
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = defaultOutputDir
	}
	if cfg.Serve.Port == 0 {
		cfg.Serve.Port = defaultPort
	}
	if cfg.Serve.ShutdownTimeout.AsDuration() <= 0 {
		cfg.Serve.ShutdownTimeout = DurationFrom(defaultShutdownTimeout)
	}
	cfg.Serve.CORSAllowedOrigins = trimAll(cfg.Serve.CORSAllowedOrigins)
	if cfg.Watch.Debounce.AsDuration() <= 0 {
		cfg.Watch.Debounce = DurationFrom(defaultDebounce)
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
}

// Validate performs semantic validation on the configuration.
func (cfg Config) Validate() error {
	var errs []error

	if cfg.Info.Title == "" {
		errs = append(errs, fmt.Errorf("info.title must not be empty"))
	}
	if cfg.Info.Version == "" {
		errs = append(errs, fmt.Errorf("info.version must not be empty"))
	}
	for i, server := range cfg.Info.Servers {
		if strings.TrimSpace(server.URL) == "" {
			errs = append(errs, fmt.Errorf("info.servers[%d].url must not be empty", i))
			continue
		}
		if _, err := url.Parse(server.URL); err != nil {
			errs = append(errs, fmt.Errorf("info.servers[%d].url invalid: %w", i, err))
		}
	}

	if len(cfg.Source.Include) == 0 {
		errs = append(errs, fmt.Errorf("source.include requires at least one pattern"))
	}
	for _, pattern := range append(append([]string{}, cfg.Source.Include...), cfg.Source.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("invalid glob pattern %q", pattern))
		}
	}

	if cfg.Output.JSON == "" && cfg.Output.YAML == "" && cfg.Output.Markdown == "" && cfg.Output.HTML == "" {
		errs = append(errs, fmt.Errorf("output must enable at least one format"))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative"))
	}

	if cfg.Serve.Port <= 0 || cfg.Serve.Port > 65535 {
		errs = append(errs, fmt.Errorf("serve.port must be between 1 and 65535"))
	}
	if cfg.Serve.ShutdownTimeout.AsDuration() <= 0 {
		errs = append(errs, fmt.Errorf("serve.shutdownTimeout must be positive"))
	}
	if cfg.Watch.Debounce.AsDuration() <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive"))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of debug, info, warn, error"))
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// RenderInfo converts the info section for the renderers.
func (cfg Config) RenderInfo() render.Info {
	info := render.Info{
		Title:       cfg.Info.Title,
		Version:     cfg.Info.Version,
		Description: cfg.Info.Description,
	}
	for _, s := range cfg.Info.Servers {
		info.Servers = append(info.Servers, render.Server{URL: s.URL, Description: s.Description})
	}
	return info
}

// OutputNames returns the configured output file names.
func (cfg Config) OutputNames() render.Names {
	return render.Names{
		JSON:     cfg.Output.JSON,
		YAML:     cfg.Output.YAML,
		Markdown: cfg.Output.Markdown,
		HTML:     cfg.Output.HTML,
	}
}

// OutputDir resolves the output directory against base when it is relative.
func (cfg Config) OutputDir(base string) string {
	if filepath.IsAbs(cfg.Output.Dir) || base == "" {
		return cfg.Output.Dir
	}
	return filepath.Join(base, cfg.Output.Dir)
}

// Sample renders the default configuration as YAML for `routedoc init`.
func Sample() ([]byte, error) {
	cfg := Default()
	cfg.Info.Servers = []ServerConfig{{URL: "http://localhost:3000", Description: "Local development"}}
	return yaml.Marshal(cfg)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
