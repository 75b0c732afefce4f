package drift

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
	"github.com/theroutercompany/routedoc/pkg/routedoc/normalize"
	"github.com/theroutercompany/routedoc/pkg/routedoc/render"
)

var names = render.Names{
	JSON:     "openapi.json",
	YAML:     "openapi.yaml",
	Markdown: "API.md",
	HTML:     "index.html",
}

func descriptors(paths ...string) []model.Descriptor {
	out := make([]model.Descriptor, 0, len(paths))
	for i, p := range paths {
		out = append(out, normalize.Descriptor(model.RouteFact{
			Method:   model.MethodGet,
			Path:     p,
			Handlers: []string{"handler"},
			File:     "routes.js",
			Line:     i + 1,
		}, nil))
	}
	return out
}

func artifacts(t *testing.T, at time.Time, paths ...string) *render.Artifacts {
	t.Helper()
	a, err := render.All(descriptors(paths...), render.Info{Title: "API", Version: "1.0.0"}, render.WithGeneratedAt(at))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return a
}

func TestCompareIgnoresTimestamp(t *testing.T) {
	dir := t.TempDir()
	old := artifacts(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "/users", "/orders")
	if _, err := old.WriteDir(dir, names); err != nil {
		t.Fatalf("write: %v", err)
	}

	fresh := artifacts(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), "/users", "/orders")
	checker := &Checker{Dir: dir, Names: names}
	results, err := checker.Compare(context.Background(), fresh)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Drifted() {
			t.Fatalf("expected %s up to date, got diff:\n%s", r.Format, r.Diff)
		}
	}
	if Drifted(results) {
		t.Fatalf("expected no drift")
	}
}

func TestCompareDetectsChangedRoutes(t *testing.T) {
	dir := t.TempDir()
	if _, err := artifacts(t, time.Time{}, "/users").WriteDir(dir, names); err != nil {
		t.Fatalf("write: %v", err)
	}

	checker := &Checker{Dir: dir, Names: names, Concurrency: 1}
	results, err := checker.Compare(context.Background(), artifacts(t, time.Time{}, "/users", "/orders"))
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	if !Drifted(results) {
		t.Fatalf("expected drift")
	}
	for _, r := range results {
		if !r.Drifted() {
			t.Fatalf("expected %s to drift", r.Format)
		}
		if !strings.Contains(r.String(), "out of date") {
			t.Fatalf("unexpected summary %q", r.String())
		}
	}
	if !strings.Contains(results[2].Diff, "/orders") {
		t.Fatalf("expected markdown diff to mention new route, got:\n%s", results[2].Diff)
	}
}

func TestCompareReportsMissingFiles(t *testing.T) {
	dir := t.TempDir()
	only := render.Names{JSON: "openapi.json"}
	if err := os.WriteFile(filepath.Join(dir, "stale.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	checker := &Checker{Dir: dir, Names: only}
	results, err := checker.Compare(context.Background(), artifacts(t, time.Time{}, "/users"))
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if len(results) != 1 || !results[0].Missing {
		t.Fatalf("expected one missing result, got %+v", results)
	}
	if !strings.HasSuffix(results[0].String(), "missing") {
		t.Fatalf("unexpected summary %q", results[0].String())
	}
}

func TestCompareReadError(t *testing.T) {
	checker := &Checker{
		Dir:   "docs",
		Names: render.Names{Markdown: "API.md"},
		ReadFile: func(string) ([]byte, error) {
			return nil, errors.New("permission denied")
		},
	}
	results, err := checker.Compare(context.Background(), artifacts(t, time.Time{}, "/users"))
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if results[0].Err == nil || !results[0].Drifted() {
		t.Fatalf("expected read error result, got %+v", results[0])
	}
}

func TestCompareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker := &Checker{Dir: t.TempDir(), Names: names}
	if _, err := checker.Compare(ctx, artifacts(t, time.Time{}, "/users")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDiffLinesLimitsOutput(t *testing.T) {
	var a, b []string
	for i := 0; i < 30; i++ {
		a = append(a, "same")
		b = append(b, "changed")
	}
	diff := diffLines([]byte(strings.Join(a, "\n")), []byte(strings.Join(b, "\n")))
	if got := strings.Count(diff, "line "); got != maxDiffLines {
		t.Fatalf("expected %d diff entries, got %d", maxDiffLines, got)
	}
}
