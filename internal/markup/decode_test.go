package markup

import (
	"reflect"
	"strings"
	"testing"
)

func TestDecodeMarkup_RoundTrip(t *testing.T) {
	input := "table-citation: t1\n| a | b |\n|---|---|\n| 1 | 2 |\n\n" +
		"> quoted \"text\"\n\n" +
		"Table: Cap\n\n| x |\n|---|\n| y |\n\n" +
		"See [table-t1].\n\n" +
		`report: {"id":"r","title":"T"}`

	elements := ToElements(Parse(input))
	if len(elements) != 4 {
		t.Fatalf("elements=%d, want 4", len(elements))
	}

	decoded, err := DecodeMarkup(Serialize(elements))
	if err != nil {
		t.Fatalf("DecodeMarkup: %v", err)
	}
	if !reflect.DeepEqual(decoded, elements) {
		t.Fatalf("decoded=%#v, want %#v", decoded, elements)
	}
}

func TestDecodeMarkup_Children(t *testing.T) {
	decoded, err := DecodeMarkup(`<x-a k="v &quot;q&quot;">one<x-b></x-b>two</x-a>`)
	if err != nil {
		t.Fatalf("DecodeMarkup: %v", err)
	}

	want := []*Element{{
		Tag:        "x-a",
		Attributes: []Attr{{Key: "k", Value: `v "q"`}},
		Children:   []Node{Text("one"), &Element{Tag: "x-b"}, Text("two")},
	}}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("decoded=%#v, want %#v", decoded, want)
	}
}

func TestDecodeMarkup_Errors(t *testing.T) {
	for _, input := range []string{
		"<app-report>",
		"</app-report>",
		"<a></b>",
		"loose text",
	} {
		if _, err := DecodeMarkup(input); err == nil {
			t.Fatalf("DecodeMarkup(%q): expected error", input)
		}
	}

	decoded, err := DecodeMarkup("  \n")
	if err != nil {
		t.Fatalf("DecodeMarkup(blank): %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("decoded=%#v, want none", decoded)
	}
}

func TestDecodePayload_MissingAttribute(t *testing.T) {
	var v map[string]any
	err := DecodePayload(&Element{Tag: TagReport}, "data", &v)
	if err == nil || !strings.Contains(err.Error(), `no "data" attribute`) {
		t.Fatalf("err=%v, want missing data attribute", err)
	}
}
