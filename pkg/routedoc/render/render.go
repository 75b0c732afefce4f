// Package render turns route descriptors into an OpenAPI-style API document
// (JSON and YAML), a Markdown reference and a standalone HTML page.
//
// Every renderer is deterministic for a given descriptor list. The only
// volatile value is the generation timestamp, which is emitted in exactly one
// place per format and omitted unless WithGeneratedAt is given.
package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

// UntaggedGroup is the group heading used for descriptors without tags.
const UntaggedGroup = "untagged"

// Info carries the document-level metadata.
type Info struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
}

// Server is a base URL the API is served from.
type Server struct {
	URL         string
	Description string
}

// Option configures rendering.
type Option func(*options)

type options struct {
	generatedAt time.Time
}

// WithGeneratedAt stamps the outputs with t. The zero time disables the stamp.
func WithGeneratedAt(t time.Time) Option {
	return func(o *options) {
		o.generatedAt = t
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o options) timestamp() string {
	if o.generatedAt.IsZero() {
		return ""
	}
	return o.generatedAt.UTC().Format(time.RFC3339)
}

// Artifacts bundles every rendered output of one generation.
type Artifacts struct {
	Document *Document
	JSON     []byte
	YAML     []byte
	Markdown []byte
	HTML     []byte
}

// All renders every format. Nothing is returned unless all formats succeed.
func All(descs []model.Descriptor, info Info, opts ...Option) (*Artifacts, error) {
	doc, err := APIDocument(descs, info, opts...)
	if err != nil {
		return nil, err
	}
	jsonOut, err := doc.EncodeJSON()
	if err != nil {
		return nil, fmt.Errorf("encode api document json: %w", err)
	}
	yamlOut, err := doc.EncodeYAML()
	if err != nil {
		return nil, fmt.Errorf("encode api document yaml: %w", err)
	}
	md, err := Markdown(descs, info, opts...)
	if err != nil {
		return nil, err
	}
	page, err := HTML(descs, info, opts...)
	if err != nil {
		return nil, err
	}

	return &Artifacts{
		Document: doc,
		JSON:     jsonOut,
		YAML:     yamlOut,
		Markdown: md,
		HTML:     page,
	}, nil
}

// Format identifies one rendered output.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// Formats lists every output format in write order.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatMarkdown, FormatHTML}
}

// ContentType returns the HTTP media type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Bytes returns the rendered output for f.
func (a *Artifacts) Bytes(f Format) []byte {
	if a == nil {
		return nil
	}
	switch f {
	case FormatJSON:
		return a.JSON
	case FormatYAML:
		return a.YAML
	case FormatMarkdown:
		return a.Markdown
	case FormatHTML:
		return a.HTML
	default:
		return nil
	}
}

// Names are the file names used by WriteDir. An empty name skips that output.
type Names struct {
	JSON     string
	YAML     string
	Markdown string
	HTML     string
}

// For returns the file name configured for f.
func (n Names) For(f Format) string {
	switch f {
	case FormatJSON:
		return n.JSON
	case FormatYAML:
		return n.YAML
	case FormatMarkdown:
		return n.Markdown
	case FormatHTML:
		return n.HTML
	default:
		return ""
	}
}

// WriteDir writes the selected outputs into dir, creating it when needed, and
// returns the written paths. Every output is staged in a temporary file next
// to its target and renamed into place only once all of them were written. A
// failure leaves the directory as it was: staged files are removed and
// targets already replaced get their previous contents back. The first error
// is returned unchanged.
func (a *Artifacts) WriteDir(dir string, names Names) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var staged []stagedFile
	defer func() {
		for _, sf := range staged {
			if sf.temp != "" {
				_ = os.Remove(sf.temp)
			}
		}
	}()

	for _, f := range Formats() {
		name := names.For(f)
		if name == "" {
			continue
		}
		sf, err := stage(dir, name, a.Bytes(f))
		if err != nil {
			return nil, err
		}
		staged = append(staged, sf)
	}

	for i := range staged {
		if err := staged[i].commit(); err != nil {
			for j := i - 1; j >= 0; j-- {
				staged[j].restore()
			}
			return nil, err
		}
	}

	written := make([]string, 0, len(staged))
	for _, sf := range staged {
		written = append(written, sf.path)
	}
	return written, nil
}

type stagedFile struct {
	path    string
	temp    string
	existed bool
	prev    []byte
	mode    os.FileMode
}

func stage(dir, name string, data []byte) (stagedFile, error) {
	sf := stagedFile{path: filepath.Join(dir, name), mode: 0o644}

	info, err := os.Stat(sf.path)
	switch {
	case err == nil && info.IsDir():
		return sf, &os.PathError{Op: "open", Path: sf.path, Err: syscall.EISDIR}
	case err == nil:
		prev, err := os.ReadFile(sf.path)
		if err != nil {
			return sf, err
		}
		sf.existed, sf.prev, sf.mode = true, prev, info.Mode().Perm()
	case !errors.Is(err, fs.ErrNotExist):
		return sf, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(sf.path), "."+filepath.Base(sf.path)+".*.tmp")
	if err != nil {
		return sf, err
	}
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), sf.mode)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return sf, err
	}
	sf.temp = tmp.Name()
	return sf, nil
}

func (sf *stagedFile) commit() error {
	if err := os.Rename(sf.temp, sf.path); err != nil {
		return err
	}
	sf.temp = ""
	return nil
}

func (sf *stagedFile) restore() {
	if !sf.existed {
		_ = os.Remove(sf.path)
		return
	}
	_ = os.WriteFile(sf.path, sf.prev, sf.mode)
}

func requireRoutes(descs []model.Descriptor) error {
	if len(descs) == 0 {
		return model.ErrNoRoutes
	}
	return nil
}
