package confparse

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, text string) Node {
	t.Helper()
	n, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return n
}

func TestParseProvidersRoundTrip(t *testing.T) {
	text := `providers:
  - id: "runpod"
    enabled: true
    base_url: "https://api.example/pricing"
`
	root := mustParse(t, text)

	providersNode, ok := root.Get("providers")
	if !ok {
		t.Fatal("missing providers key")
	}
	list, err := providersNode.AsList()
	if err != nil {
		t.Fatalf("providers is not a sequence: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 provider, got %d", len(list))
	}

	item := list[0]
	if id, _ := mustGet(t, item, "id").AsString(); id != "runpod" {
		t.Errorf("expected id 'runpod', got %q", id)
	}
	if enabled, _ := mustGet(t, item, "enabled").AsBool(); !enabled {
		t.Error("expected enabled to coerce to true")
	}
	if u, _ := mustGet(t, item, "base_url").AsString(); u != "https://api.example/pricing" {
		t.Errorf("expected quotes stripped from base_url, got %q", u)
	}
}

func mustGet(t *testing.T, n Node, key string) Node {
	t.Helper()
	child, ok := n.Get(key)
	if !ok {
		t.Fatalf("missing key %q", key)
	}
	return child
}

func TestScalarCoercion(t *testing.T) {
	cases := []struct {
		raw  string
		want any
	}{
		{"true", true},
		{"Yes", true},
		{"false", false},
		{"NO", false},
		{"null", nil},
		{"None", nil},
		{"~", nil},
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"2.5", 2.5},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
		{`"true"`, "true"},
		{"plain text", "plain text"},
	}
	for _, tc := range cases {
		root := mustParse(t, "key: "+tc.raw+"\n")
		got, err := mustGet(t, root, "key").Value()
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("coerce %q: got %#v (%T), want %#v", tc.raw, got, got, tc.want)
		}
	}
}

func TestCommentsAndBlankLinesIgnored(t *testing.T) {
	text := `# leading comment

http:
  # nested comment
  timeout_s: 30

run:
  write_history: yes
`
	root := mustParse(t, text)
	httpNode := mustGet(t, root, "http")
	if v, _ := mustGet(t, httpNode, "timeout_s").AsInt(); v != 30 {
		t.Errorf("expected timeout_s 30, got %d", v)
	}
	runNode := mustGet(t, root, "run")
	if v, _ := mustGet(t, runNode, "write_history").AsBool(); !v {
		t.Error("expected write_history true")
	}
}

func TestNestedSequenceOfScalars(t *testing.T) {
	text := `tags:
  - alpha
  - 3
  - true
`
	root := mustParse(t, text)
	list, err := mustGet(t, root, "tags").AsList()
	if err != nil {
		t.Fatalf("tags is not a sequence: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(list))
	}
	if s, _ := list[0].AsString(); s != "alpha" {
		t.Errorf("element 0: got %q", s)
	}
	if i, _ := list[1].AsInt(); i != 3 {
		t.Errorf("element 1: got %d", i)
	}
	if b, _ := list[2].AsBool(); !b {
		t.Error("element 2: expected true")
	}
}

func TestSequenceItemNestedBlock(t *testing.T) {
	text := `sections:
  -
    title: Overview
    columns:
      - gpu
      - usd_per_hour
`
	root := mustParse(t, text)
	list, _ := mustGet(t, root, "sections").AsList()
	if len(list) != 1 {
		t.Fatalf("expected 1 section, got %d", len(list))
	}
	if title, _ := mustGet(t, list[0], "title").AsString(); title != "Overview" {
		t.Errorf("got title %q", title)
	}
	cols, err := mustGet(t, list[0], "columns").AsList()
	if err != nil || len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %d (err=%v)", len(cols), err)
	}
}

func TestLiteralBlockString(t *testing.T) {
	text := `intro: |
  Line one.
    Indented line two.
  Line three.
title: after
`
	root := mustParse(t, text)
	intro, err := mustGet(t, root, "intro").AsString()
	if err != nil {
		t.Fatalf("intro: %v", err)
	}
	want := "Line one.\n  Indented line two.\nLine three."
	if intro != want {
		t.Errorf("literal block mismatch:\ngot  %q\nwant %q", intro, want)
	}
	if title, _ := mustGet(t, root, "title").AsString(); title != "after" {
		t.Errorf("entry after literal block lost: got %q", title)
	}
}

func TestMappingOrderPreserved(t *testing.T) {
	text := "b: 1\na: 2\nc: 3\n"
	root := mustParse(t, text)
	got := root.Keys()
	want := []string{"b", "a", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key order %v, want %v", got, want)
		}
	}
}

func TestEmptyValueWithoutBlockIsNull(t *testing.T) {
	root := mustParse(t, "region:\nsku: x\n")
	if !mustGet(t, root, "region").IsNull() {
		t.Error("expected null for empty value with no nested block")
	}
}

func TestEmptyInputYieldsEmptyMapping(t *testing.T) {
	root := mustParse(t, "\n# only a comment\n\n")
	if root.Kind() != KindMapping || root.Len() != 0 {
		t.Errorf("expected empty mapping, got kind=%s len=%d", root.Kind(), root.Len())
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"mixed styles in mapping", "key: value\n- item\n"},
		{"mixed styles in sequence", "items:\n  - one\n  key: value\n"},
		{"top level sequence", "- a\n- b\n"},
		{"top level scalar", "just a scalar\n"},
		{"duplicate key", "a: 1\na: 2\n"},
		{"stray deep indent", "a: 1\n    b: 2\n"},
		{"tab indentation", "a:\n\tb: 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.text)
			if err == nil {
				t.Fatal("expected ParseError, got nil")
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if pe.Line <= 0 {
				t.Errorf("ParseError should carry a line number, got %d", pe.Line)
			}
		})
	}
}

func TestShallowerSiblingTerminatesBlock(t *testing.T) {
	text := `outer:
  inner: 1
next: 2
`
	root := mustParse(t, text)
	if _, ok := root.Get("next"); !ok {
		t.Fatal("sibling after nested block was not parsed")
	}
	outer := mustGet(t, root, "outer")
	if _, ok := outer.Get("next"); ok {
		t.Fatal("sibling leaked into nested block")
	}
}

func TestInterfaceConversion(t *testing.T) {
	root := mustParse(t, "a: 1\nb:\n  - x\n  - y\n")
	got := root.Interface().(map[string]any)
	if got["a"] != int64(1) {
		t.Errorf("a: got %#v", got["a"])
	}
	list := got["b"].([]any)
	if len(list) != 2 || list[0] != "x" {
		t.Errorf("b: got %#v", list)
	}
}

func TestValueWithColonNoSpaceIsScalar(t *testing.T) {
	root := mustParse(t, "urls:\n  - https://example.com/a\n")
	list, _ := mustGet(t, root, "urls").AsList()
	if len(list) != 1 {
		t.Fatalf("expected 1 element, got %d", len(list))
	}
	if s, err := list[0].AsString(); err != nil || !strings.HasPrefix(s, "https://") {
		t.Errorf("expected URL scalar, got %q (err=%v)", s, err)
	}
}
