package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("// test\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func relAll(t *testing.T, root string, paths []string) string {
	t.Helper()
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatalf("rel: %v", err)
		}
		out = append(out, filepath.ToSlash(rel))
	}
	return strings.Join(out, ",")
}

func TestScanAppliesIncludeAndExclude(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"app.js",
		"routes/users.js",
		"routes/orders.ts",
		"routes/users.test.js",
		"node_modules/express/index.js",
		"src/node_modules/x/index.js",
		"test/helpers.js",
		".git/hooks/post.js",
		"README.md",
	)

	s := New(root,
		WithInclude("**/*.{js,ts}"),
		WithExclude("**/node_modules/**", "**/test/**", "**/*.test.*"),
	)
	files, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if got := relAll(t, root, files); got != "app.js,routes/orders.ts,routes/users.js" {
		t.Fatalf("unexpected files %s", got)
	}
}

func TestScanFilter(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.js", "b.js")

	s := New(root, WithFilter(func(path string) bool { return strings.HasSuffix(path, "b.js") }))
	files, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := relAll(t, root, files); got != "b.js" {
		t.Fatalf("unexpected files %s", got)
	}
}

func TestScanInvalidPattern(t *testing.T) {
	if _, err := New(t.TempDir(), WithInclude("[")).Scan(context.Background()); err == nil {
		t.Fatalf("expected invalid pattern error")
	}
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.js")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(root).Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMatch(t *testing.T) {
	root := t.TempDir()
	s := New(root, WithInclude("**/*.js"), WithExclude("**/node_modules/**"))

	if !s.Match(filepath.Join(root, "routes", "a.js")) {
		t.Fatalf("expected absolute path to match")
	}
	if s.Match(filepath.Join(root, "node_modules", "a.js")) {
		t.Fatalf("expected excluded path not to match")
	}
	if s.Match(filepath.Join(filepath.Dir(root), "elsewhere.js")) {
		t.Fatalf("expected path outside root not to match")
	}
}

func TestSkipDir(t *testing.T) {
	root := t.TempDir()
	s := New(root, WithExclude("**/node_modules/**"))

	cases := map[string]bool{
		root:                                     false,
		filepath.Join(root, "routes"):            false,
		filepath.Join(root, "node_modules"):      true,
		filepath.Join(root, "a", "node_modules"): true,
		filepath.Join(root, ".git"):              true,
		filepath.Join(root, "src", ".cache"):     true,
		filepath.Dir(root):                       true,
	}
	for dir, want := range cases {
		if got := s.SkipDir(dir); got != want {
			t.Fatalf("SkipDir(%s) = %v, want %v", dir, got, want)
		}
	}
}
