package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/theroutercompany/routedoc/pkg/routedoc/model"
	"github.com/theroutercompany/routedoc/pkg/routedoc/normalize"
)

var testInfo = Info{
	Title:       "My API",
	Version:     "1.0.0",
	Description: "Sample service",
	Servers:     []Server{{URL: "http://localhost:3000", Description: "local"}},
}

func createUserDescriptor() model.Descriptor {
	doc := &model.DocFact{
		Summary:         "Create user",
		ExplicitPath:    "/api/users",
		HasExplicitPath: true,
		Params:          []model.Param{{Name: "email", Type: "string", Required: true, Description: "Email"}},
	}
	doc.SetResponse("201", "Created")
	doc.AddTag("users")
	return normalize.Descriptor(model.RouteFact{Method: model.MethodPost, Path: "/api/users", Pos: 120}, doc)
}

func sampleDescriptors() []model.Descriptor {
	getUser := normalize.Descriptor(model.RouteFact{Method: model.MethodGet, Path: "/api/users/:id", Pos: 300}, &model.DocFact{
		Summary:  "Get user",
		Tags:     []string{"users"},
		Security: []string{"bearerAuth"},
		Params:   []model.Param{{Name: "id", Type: "String", Required: true, Description: "User id"}},
	})
	health := normalize.Descriptor(model.RouteFact{Method: model.MethodGet, Path: "/health", Pos: 500}, nil)
	remove := normalize.Descriptor(model.RouteFact{Method: model.MethodDelete, Path: "/api/users/:id", Pos: 700}, &model.DocFact{
		Summary: "Delete user",
		Tags:    []string{"admin", "users"},
	})
	return []model.Descriptor{createUserDescriptor(), getUser, health, remove}
}

func TestAPIDocumentShape(t *testing.T) {
	doc, err := APIDocument(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("api document: %v", err)
	}
	raw, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("encode json: %v", err)
	}

	out := string(raw)
	order := []string{`"openapi"`, `"info"`, `"servers"`, `"paths"`, `"components"`}
	last := -1
	for _, key := range order {
		idx := strings.Index(out, key)
		if idx <= last {
			t.Fatalf("expected %s after previous top-level key:\n%s", key, out)
		}
		last = idx
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	paths := decoded["paths"].(map[string]any)
	users := paths["/api/users"].(map[string]any)
	post := users["post"].(map[string]any)
	if post["summary"] != "Create user" || post["operationId"] != "post_api_users" {
		t.Fatalf("unexpected operation %+v", post)
	}
	params := post["parameters"].([]any)
	email := params[0].(map[string]any)
	if email["name"] != "email" || email["in"] != "query" || email["required"] != true {
		t.Fatalf("unexpected parameter %+v", email)
	}
	responses := post["responses"].(map[string]any)
	if responses["201"].(map[string]any)["description"] != "Created" {
		t.Fatalf("unexpected responses %+v", responses)
	}

	byID := paths["/api/users/{id}"].(map[string]any)
	get := byID["get"].(map[string]any)
	idParam := get["parameters"].([]any)[0].(map[string]any)
	if idParam["in"] != "path" || idParam["schema"].(map[string]any)["type"] != "string" {
		t.Fatalf("unexpected path parameter %+v", idParam)
	}
	security := get["security"].([]any)
	if _, ok := security[0].(map[string]any)["bearerAuth"]; !ok {
		t.Fatalf("unexpected security %+v", security)
	}
	if _, ok := byID["delete"]; !ok {
		t.Fatalf("expected delete operation under templated path")
	}

	components := decoded["components"].(map[string]any)
	if len(components["schemas"].(map[string]any)) != 0 || len(components["securitySchemes"].(map[string]any)) != 0 {
		t.Fatalf("expected empty components, got %+v", components)
	}
	if strings.Contains(out, "x-generated-at") {
		t.Fatalf("expected no timestamp without a clock")
	}
}

func TestAPIDocumentYAMLMatchesJSON(t *testing.T) {
	doc, err := APIDocument(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("api document: %v", err)
	}
	rawYAML, err := doc.EncodeYAML()
	if err != nil {
		t.Fatalf("encode yaml: %v", err)
	}
	rawJSON, err := doc.EncodeJSON()
	if err != nil {
		t.Fatalf("encode json: %v", err)
	}

	var fromYAML, fromJSON map[string]any
	if err := yaml.Unmarshal(rawYAML, &fromYAML); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if err := json.Unmarshal(rawJSON, &fromJSON); err != nil {
		t.Fatalf("decode json: %v", err)
	}

	// Round trip both through JSON so numeric and map types line up.
	a, _ := json.Marshal(fromYAML)
	b, _ := json.Marshal(fromJSON)
	if !bytes.Equal(a, b) {
		t.Fatalf("yaml and json encodings disagree:\n%s\n%s", a, b)
	}
	if !strings.HasPrefix(string(rawYAML), "openapi: 3.0.3\ninfo:\n") {
		t.Fatalf("unexpected yaml prefix:\n%s", rawYAML)
	}
}

func TestAPIDocumentSkipsDuplicateMethodAndPath(t *testing.T) {
	first := createUserDescriptor()
	second := createUserDescriptor()
	second.Summary = "Shadowed"

	doc, err := APIDocument([]model.Descriptor{first, second}, testInfo)
	if err != nil {
		t.Fatalf("api document: %v", err)
	}
	methods, _ := doc.Paths.Get("/api/users")
	op, _ := methods.Get("post")
	if op.Summary != "Create user" {
		t.Fatalf("expected first descriptor to win, got %q", op.Summary)
	}
	if skipped := doc.Skipped(); len(skipped) != 1 || skipped[0] != "POST /api/users" {
		t.Fatalf("unexpected skipped list %v", skipped)
	}
}

func TestRenderersAreDeterministic(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first, err := All(sampleDescriptors(), testInfo, WithGeneratedAt(stamp))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := All(sampleDescriptors(), testInfo, WithGeneratedAt(stamp))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	pairs := map[string][2][]byte{
		"json":     {first.JSON, second.JSON},
		"yaml":     {first.YAML, second.YAML},
		"markdown": {first.Markdown, second.Markdown},
		"html":     {first.HTML, second.HTML},
	}
	for name, pair := range pairs {
		if !bytes.Equal(pair[0], pair[1]) {
			t.Fatalf("%s output differs between runs", name)
		}
	}
}

func TestTimestampIsIsolated(t *testing.T) {
	stamp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	artifacts, err := All(sampleDescriptors(), testInfo, WithGeneratedAt(stamp))
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	want := "2024-05-01T12:00:00Z"
	outputs := map[string][]byte{
		"json":     artifacts.JSON,
		"yaml":     artifacts.YAML,
		"markdown": artifacts.Markdown,
		"html":     artifacts.HTML,
	}
	for name, out := range outputs {
		if n := strings.Count(string(out), want); n != 1 {
			t.Fatalf("expected timestamp exactly once in %s, found %d", name, n)
		}
	}
	if !strings.Contains(string(artifacts.HTML), `<meta name="generated-at" content="2024-05-01T12:00:00Z">`) {
		t.Fatalf("expected generated-at meta tag")
	}
}

func TestMarkdownLayout(t *testing.T) {
	out, err := Markdown(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"# My API\n\nSample service\n\n**Version:** 1.0.0\n",
		"#### POST /api/users\n",
		"| email | string | Yes | Email |",
		"| 201 | Created |",
		"**Security:** bearerAuth",
		"---\n",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected markdown to contain %q:\n%s", want, md)
		}
	}

	users := strings.Index(md, "### users\n")
	admin := strings.Index(md, "### admin\n")
	untagged := strings.Index(md, "### untagged\n")
	if users < 0 || admin < 0 || untagged < 0 || !(users < admin && admin < untagged) {
		t.Fatalf("unexpected group order users=%d admin=%d untagged=%d", users, admin, untagged)
	}
	if n := strings.Count(md, "#### DELETE /api/users/:id\n"); n != 2 {
		t.Fatalf("expected route with two tags to appear twice, got %d", n)
	}
	if n := strings.Count(md, "#### GET /health\n"); n != 1 {
		t.Fatalf("expected untagged route once, got %d", n)
	}
}

func TestMarkdownEscapesTableCells(t *testing.T) {
	d := createUserDescriptor()
	d.Parameters[0].Description = "a | b\nc"
	out, err := Markdown([]model.Descriptor{d}, testInfo)
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(string(out), `| email | string | Yes | a \| b c |`) {
		t.Fatalf("expected escaped cell:\n%s", out)
	}
}

func TestHTMLMethodClasses(t *testing.T) {
	out, err := HTML(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		`<span class="method green">GET</span>`,
		`<span class="method blue">POST</span>`,
		`<span class="method red">DELETE</span>`,
		`<h3>untagged</h3>`,
		`<h1>My API</h1>`,
	} {
		if !strings.Contains(page, want) {
			t.Fatalf("expected html to contain %q", want)
		}
	}
	if strings.Contains(page, "generated-at") {
		t.Fatalf("expected no timestamp without a clock")
	}
}

func TestHTMLEscapesContent(t *testing.T) {
	d := createUserDescriptor()
	d.Summary = "<script>alert(1)</script>"
	out, err := HTML([]model.Descriptor{d}, testInfo)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	if strings.Contains(string(out), "<script>alert") {
		t.Fatalf("expected summary to be escaped")
	}
}

func TestEmptyDescriptorsFail(t *testing.T) {
	if _, err := APIDocument(nil, testInfo); !errors.Is(err, model.ErrNoRoutes) {
		t.Fatalf("api document: expected ErrNoRoutes, got %v", err)
	}
	if _, err := Markdown(nil, testInfo); !errors.Is(err, model.ErrNoRoutes) {
		t.Fatalf("markdown: expected ErrNoRoutes, got %v", err)
	}
	if _, err := HTML(nil, testInfo); !errors.Is(err, model.ErrNoRoutes) {
		t.Fatalf("html: expected ErrNoRoutes, got %v", err)
	}
	if _, err := All(nil, testInfo); !errors.Is(err, model.ErrNoRoutes) {
		t.Fatalf("all: expected ErrNoRoutes, got %v", err)
	}
}

func TestWriteDir(t *testing.T) {
	artifacts, err := All(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "docs")
	written, err := artifacts.WriteDir(dir, Names{JSON: "openapi.json", Markdown: "API.md"})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 files, got %v", written)
	}
	data, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, artifacts.JSON) {
		t.Fatalf("written json differs from rendered json")
	}
	if _, err := os.Stat(filepath.Join(dir, "openapi.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected yaml output to be skipped")
	}
}

func TestWriteDirLeavesNothingBehindOnFailure(t *testing.T) {
	artifacts, err := All(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "api.md"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	names := Names{JSON: "openapi.json", YAML: "openapi.yaml", Markdown: "api.md", HTML: "index.html"}
	written, err := artifacts.WriteDir(dir, names)
	if err == nil {
		t.Fatalf("expected write to fail")
	}
	if len(written) != 0 {
		t.Fatalf("expected no written paths, got %v", written)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "api.md" || !entries[0].IsDir() {
		var got []string
		for _, e := range entries {
			got = append(got, e.Name())
		}
		t.Fatalf("expected only the api.md directory to remain, got %v", got)
	}
}

func TestWriteDirKeepsPreviousOutputsOnFailure(t *testing.T) {
	artifacts, err := All(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	dir := t.TempDir()
	previous := []byte(`{"openapi":"old"}`)
	if err := os.WriteFile(filepath.Join(dir, "openapi.json"), previous, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "index.html"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if _, err := artifacts.WriteDir(dir, Names{JSON: "openapi.json", HTML: "index.html"}); err == nil {
		t.Fatalf("expected write to fail")
	}

	data, err := os.ReadFile(filepath.Join(dir, "openapi.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, previous) {
		t.Fatalf("expected previous json to be kept, got %s", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected no staged files left behind, got %d entries", len(entries))
	}
}

func TestWriteDirReplacesExistingOutputs(t *testing.T) {
	artifacts, err := All(sampleDescriptors(), testInfo)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "openapi.yaml"), []byte("stale"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := artifacts.WriteDir(dir, Names{YAML: "openapi.yaml"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "openapi.yaml"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, artifacts.YAML) {
		t.Fatalf("expected yaml to be replaced")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected a single file, got %d entries", len(entries))
	}
}

func TestHTMLSectionIDsAreUniqueAcrossGroups(t *testing.T) {
	d := createUserDescriptor()
	d.Tags = []string{"x", "y"}
	out, err := HTML([]model.Descriptor{d}, testInfo)
	if err != nil {
		t.Fatalf("html: %v", err)
	}
	page := string(out)
	for _, want := range []string{
		`id="x-` + d.OperationID + `"`,
		`id="y-` + d.OperationID + `"`,
	} {
		if strings.Count(page, want) != 1 {
			t.Fatalf("expected %q exactly once in html", want)
		}
	}
}
