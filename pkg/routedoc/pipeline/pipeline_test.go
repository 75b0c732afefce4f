package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/theroutercompany/routedoc/pkg/metrics"
	"github.com/theroutercompany/routedoc/pkg/routedoc/extract"
	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
)

func memoryFS(files map[string]string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		src, ok := files[name]
		if !ok {
			return nil, fmt.Errorf("open %s: no such file", name)
		}
		return []byte(src), nil
	}
}

const usersSource = `/**
 * @route POST /api/users
 * @summary Create user
 * @param {string} email - Email
 * @response 201 Created
 * @tag users
 */
router.post('/api/users', validate, createUser);
`

func TestRunEndToEndDescriptor(t *testing.T) {
	engine := New(WithReadFile(memoryFS(map[string]string{"users.js": usersSource})))

	result, err := engine.Run(context.Background(), []string{"users.js"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Descriptors) != 1 {
		t.Fatalf("expected 1 descriptor, got %d", len(result.Descriptors))
	}

	d := result.Descriptors[0]
	if d.Method != model.MethodPost || d.Path != "/api/users" || d.Summary != "Create user" {
		t.Fatalf("unexpected descriptor %+v", d)
	}
	if strings.Join(d.Handlers, ",") != "validate,createUser" {
		t.Fatalf("unexpected handlers %v", d.Handlers)
	}
	if len(d.Parameters) != 1 || d.Parameters[0].Name != "email" || d.Parameters[0].In != model.InQuery || !d.Parameters[0].Required {
		t.Fatalf("unexpected parameters %+v", d.Parameters)
	}
	if keys := strings.Join(d.Responses.Keys(), ","); keys != "201" {
		t.Fatalf("unexpected responses %s", keys)
	}
	if strings.Join(d.Tags, ",") != "users" {
		t.Fatalf("unexpected tags %v", d.Tags)
	}
	if d.OperationID != "post_api_users" {
		t.Fatalf("unexpected operation id %s", d.OperationID)
	}
}

func TestRunKeepsScannerAndDeclarationOrder(t *testing.T) {
	files := map[string]string{
		"a.js": "app.get('/a1', h);\napp.post('/a2', h);\n",
		"b.js": "app.put('/b1', h);\n",
		"c.js": "app.delete('/c1', h);\napp.patch('/c2', h);\n",
		"d.js": "app.head('/d1', h);\n",
	}
	order := []string{"c.js", "a.js", "d.js", "b.js"}
	want := "/c1,/c2,/a1,/a2,/d1,/b1"

	for i := 0; i < 20; i++ {
		engine := New(WithWorkers(4), WithReadFile(memoryFS(files)))
		result, err := engine.Run(context.Background(), order)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		var paths []string
		for _, d := range result.Descriptors {
			paths = append(paths, d.Path)
		}
		if got := strings.Join(paths, ","); got != want {
			t.Fatalf("run %d: expected %s, got %s", i, want, got)
		}
	}
}

func TestRunCollectsWarnings(t *testing.T) {
	files := map[string]string{
		"good.js":   "app.get('/ok', h);\n",
		"broken.js": "app.get('/x', function ( {\n",
	}
	engine := New(WithReadFile(memoryFS(files)))

	result, err := engine.Run(context.Background(), []string{"broken.js", "missing.js", "good.js"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Descriptors) != 1 || result.Descriptors[0].Path != "/ok" {
		t.Fatalf("unexpected descriptors %+v", result.Descriptors)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %+v", result.Warnings)
	}
	if result.Warnings[0].File != "broken.js" || result.Warnings[1].File != "missing.js" {
		t.Fatalf("unexpected warning order %+v", result.Warnings)
	}
	var perr *extract.ParseError
	if !errors.As(result.Warnings[0].Err, &perr) {
		t.Fatalf("expected parse error warning, got %v", result.Warnings[0].Err)
	}
	if result.Files != 3 {
		t.Fatalf("expected 3 files, got %d", result.Files)
	}
}

func TestRunNoFiles(t *testing.T) {
	if _, err := New().Run(context.Background(), nil); !errors.Is(err, model.ErrNoFiles) {
		t.Fatalf("expected ErrNoFiles, got %v", err)
	}
}

func TestRunNoRoutes(t *testing.T) {
	engine := New(WithReadFile(memoryFS(map[string]string{"empty.js": "const x = 1;\n"})))
	result, err := engine.Run(context.Background(), []string{"empty.js", "gone.js"})
	if !errors.Is(err, model.ErrNoRoutes) {
		t.Fatalf("expected ErrNoRoutes, got %v", err)
	}
	if result == nil || len(result.Warnings) != 1 {
		t.Fatalf("expected result with one warning, got %+v", result)
	}
}

func TestRunCancellationDiscardsResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	files := memoryFS(map[string]string{
		"a.js": "app.get('/a', h);\n",
		"b.js": "app.get('/b', h);\n",
		"c.js": "app.get('/c', h);\n",
	})
	read := func(name string) ([]byte, error) {
		if name == "b.js" {
			cancel()
		}
		return files(name)
	}

	engine := New(WithWorkers(1), WithReadFile(read))
	result, err := engine.Run(ctx, []string{"a.js", "b.js", "c.js"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no partial result, got %+v", result)
	}
}

func TestRunDeduplicatesOperationIDsAcrossFiles(t *testing.T) {
	files := map[string]string{
		"a.js": "app.get('/items', list);\n",
		"b.js": "router.get('/items', listAgain);\n",
	}
	engine := New(WithReadFile(memoryFS(files)))
	result, err := engine.Run(context.Background(), []string{"a.js", "b.js"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Descriptors[0].OperationID != "get_items" || result.Descriptors[1].OperationID != "get_items_2" {
		t.Fatalf("unexpected ids %s %s", result.Descriptors[0].OperationID, result.Descriptors[1].OperationID)
	}
}

func TestRunRecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry(metrics.WithoutDefaultCollectors())
	m := NewMetrics(reg)
	files := map[string]string{"a.js": "app.get('/a', h);\napp.post('/a', h);\n"}

	engine := New(WithMetrics(m), WithReadFile(memoryFS(files)))
	if _, err := engine.Run(context.Background(), []string{"a.js", "nope.js"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := testutil.ToFloat64(m.routes); got != 2 {
		t.Fatalf("expected 2 routes recorded, got %v", got)
	}
	if got := testutil.ToFloat64(m.files.WithLabelValues("skipped")); got != 1 {
		t.Fatalf("expected 1 skipped file, got %v", got)
	}
	if got := testutil.ToFloat64(m.runs); got != 1 {
		t.Fatalf("expected 1 run, got %v", got)
	}
}
