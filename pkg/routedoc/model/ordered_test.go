package model

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestOrderedMapKeepsFirstPositionOnOverwrite(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("404", "Missing")
	m.Set("200", "OK")
	m.Set("404", "Not found")

	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "404" || keys[1] != "200" {
		t.Fatalf("unexpected key order %v", keys)
	}
	if v, _ := m.Get("404"); v != "Not found" {
		t.Fatalf("expected last write to win, got %q", v)
	}
}

func TestOrderedMapMarshalJSONPreservesOrder(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("b", "2")
	m.Set("a", "1")

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"b":"2","a":"1"}` {
		t.Fatalf("unexpected json %s", raw)
	}

	empty, err := json.Marshal(NewOrderedMap[int]())
	if err != nil {
		t.Fatalf("marshal empty: %v", err)
	}
	if string(empty) != "{}" {
		t.Fatalf("expected {}, got %s", empty)
	}
}

func TestOrderedMapMarshalYAMLPreservesOrder(t *testing.T) {
	m := NewOrderedMap[string]()
	m.Set("500", "boom")
	m.Set("200", "fine")

	raw, err := yaml.Marshal(map[string]*OrderedMap[string]{"responses": m})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	out := string(raw)
	if strings.Index(out, `"500"`) > strings.Index(out, `"200"`) {
		t.Fatalf("expected 500 before 200:\n%s", out)
	}
}

func TestParseMethod(t *testing.T) {
	cases := map[string]Method{"get": MethodGet, "Post": MethodPost, "DELETE": MethodDelete, "head": MethodHead}
	for in, want := range cases {
		got, ok := ParseMethod(in)
		if !ok || got != want {
			t.Fatalf("ParseMethod(%q) = %q, %v", in, got, ok)
		}
	}
	for _, in := range []string{"all", "use", "route", ""} {
		if _, ok := ParseMethod(in); ok {
			t.Fatalf("expected %q to be rejected", in)
		}
	}
}

func TestDocFactAddTagDeduplicates(t *testing.T) {
	var d DocFact
	d.AddTag("users")
	d.AddTag("admin")
	d.AddTag("users")
	if len(d.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", d.Tags)
	}
}
