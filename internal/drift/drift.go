// Package drift compares freshly generated documentation with the copies
// persisted in an output directory, ignoring the generation timestamp.
package drift

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
)

const (
	generatedAtKey = "x-generated-at"
	maxDiffLines   = 10
)

var (
	markdownStamp = regexp.MustCompile(`(?m)^_Generated at [^\n]*_\n\n?`)
	htmlStamp     = regexp.MustCompile(`(?m)^<meta name="generated-at" content="[^"]*">\n?`)
)

// DefaultNormalizers drops the generation stamp from every format.
func DefaultNormalizers() map[render.Format][]Normalizer {
	return map[render.Format][]Normalizer{
		render.FormatJSON:     {StripJSONKeys(generatedAtKey)},
		render.FormatYAML:     {StripYAMLKeys(generatedAtKey)},
		render.FormatMarkdown: {StripLines(markdownStamp)},
		render.FormatHTML:     {StripLines(htmlStamp)},
	}
}

// Result captures the comparison of one output.
type Result struct {
	Format  render.Format
	Path    string
	Missing bool
	Diff    string
	Err     error
}

// Drifted reports whether the persisted output differs from the generated one.
func (r Result) Drifted() bool {
	return r.Missing || r.Diff != "" || r.Err != nil
}

// String renders a one-line summary.
func (r Result) String() string {
	switch {
	case r.Err != nil:
		return fmt.Sprintf("%s: %v", r.Path, r.Err)
	case r.Missing:
		return fmt.Sprintf("%s: missing", r.Path)
	case r.Diff != "":
		return fmt.Sprintf("%s: out of date", r.Path)
	default:
		return fmt.Sprintf("%s: up to date", r.Path)
	}
}

// Checker compares artifacts with the files in Dir.
type Checker struct {
	Dir         string
	Names       render.Names
	Concurrency int
	Normalizers map[render.Format][]Normalizer
	ReadFile    func(string) ([]byte, error)
}

// Compare checks every output enabled in c.Names and returns one result per
// output in render.Formats order.
func (c *Checker) Compare(ctx context.Context, artifacts *render.Artifacts) ([]Result, error) {
	if artifacts == nil {
		return nil, errors.New("no artifacts to compare")
	}

	readFile := c.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	normalizers := c.Normalizers
	if normalizers == nil {
		normalizers = DefaultNormalizers()
	}
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = len(render.Formats())
	}

	var formats []render.Format
	for _, f := range render.Formats() {
		if c.Names.For(f) != "" {
			formats = append(formats, f)
		}
	}

	results := make([]Result, len(formats))
	sem := make(chan struct{}, concurrency)
	wg := sync.WaitGroup{}

	for i, format := range formats {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(idx int, f render.Format) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = c.compare(f, artifacts.Bytes(f), readFile, normalizers[f])
		}(i, format)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Checker) compare(format render.Format, generated []byte, readFile func(string) ([]byte, error), normalizers []Normalizer) Result {
	path := filepath.Join(c.Dir, c.Names.For(format))
	res := Result{Format: format, Path: path}

	onDisk, err := readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			res.Missing = true
			return res
		}
		res.Err = fmt.Errorf("read %s: %w", path, err)
		return res
	}

	for _, normalize := range normalizers {
		onDisk = normalize(onDisk)
		generated = normalize(generated)
	}

	if bytes.Equal(onDisk, generated) {
		return res
	}

	switch format {
	case render.FormatJSON, render.FormatYAML:
		res.Diff = diffJSON(onDisk, generated)
	default:
		res.Diff = diffLines(onDisk, generated)
	}
	return res
}

// Drifted reports whether any result drifted.
func Drifted(results []Result) bool {
	for _, r := range results {
		if r.Drifted() {
			return true
		}
	}
	return false
}

func diffJSON(expected, actual []byte) string {
	var expAny, actAny interface{}
	if err := json.Unmarshal(expected, &expAny); err != nil {
		return diffLines(expected, actual)
	}
	if err := json.Unmarshal(actual, &actAny); err != nil {
		return diffLines(expected, actual)
	}

	expCanonical, _ := json.MarshalIndent(expAny, "", "  ")
	actCanonical, _ := json.MarshalIndent(actAny, "", "  ")

	if bytes.Equal(expCanonical, actCanonical) {
		return ""
	}
	return diffLines(expCanonical, actCanonical)
}

// diffLines lists the first differing lines as "-" (on disk) and "+"
// (generated) pairs.
func diffLines(expected, actual []byte) string {
	exp := strings.Split(string(expected), "\n")
	act := strings.Split(string(actual), "\n")

	n := len(exp)
	if len(act) > n {
		n = len(act)
	}

	var b strings.Builder
	shown := 0
	for i := 0; i < n && shown < maxDiffLines; i++ {
		var e, a string
		if i < len(exp) {
			e = exp[i]
		}
		if i < len(act) {
			a = act[i]
		}
		if e == a {
			continue
		}
		fmt.Fprintf(&b, "line %d:\n- %s\n+ %s\n", i+1, e, a)
		shown++
	}
	if b.Len() == 0 && !bytes.Equal(expected, actual) {
		return "content differs\n"
	}
	return b.String()
}
