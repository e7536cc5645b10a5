package markup

import (
	"encoding/json"
	"reflect"
	"testing"
)

// oneElement maps blocks to elements and requires exactly one.
func oneElement(t *testing.T, blocks []Block) *Element {
	t.Helper()
	elements := ToElements(blocks)
	if len(elements) != 1 {
		t.Fatalf("elements=%d, want 1: %#v", len(elements), elements)
	}
	return elements[0]
}

func TestToElements_Quote(t *testing.T) {
	el := oneElement(t, Parse("> Remember to review"))

	if el.Tag != TagQuote {
		t.Fatalf("tag=%q, want %q", el.Tag, TagQuote)
	}
	raw, ok := el.Attr("text")
	if !ok {
		t.Fatal("quote element has no text attribute")
	}
	if raw != "UmVtZW1iZXIgdG8gcmV2aWV3" {
		t.Fatalf("text=%q, want %q", raw, "UmVtZW1iZXIgdG8gcmV2aWV3")
	}
	text, err := DecodeBase64(raw)
	if err != nil {
		t.Fatalf("DecodeBase64: %v", err)
	}
	if text != "Remember to review" {
		t.Fatalf("decoded=%q, want %q", text, "Remember to review")
	}
}

func TestToElements_CitationTableMarkup(t *testing.T) {
	blocks := Parse("Table: Weekly Status\n\n| Task | Status |\n| --- | --- |\n| Build | Complete |")

	got := Serialize(ToElements(blocks))
	want := `<app-table-catation data="eyJoZWFkZXJzIjpbIlRhc2siLCJTdGF0dXMiXSwicm93cyI6W1siQnVpbGQiLCJDb21wbGV0ZSJdXX0=" name="V2Vla2x5IFN0YXR1cw=="></app-table-catation>`
	if got != want {
		t.Fatalf("markup=%q, want %q", got, want)
	}
}

func TestToElements_InlineTable(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		attrs []string
	}{
		{
			name:  "no caption",
			table: Table{Headers: []string{"a"}, Rows: [][]string{}, Presentation: PresentationInline},
			attrs: []string{"data"},
		},
		{
			name:  "caption",
			table: Table{Headers: []string{"a"}, Rows: [][]string{}, Presentation: PresentationInline, Caption: "c"},
			attrs: []string{"data", "caption"},
		},
		{
			name:  "citation",
			table: Table{Headers: []string{"a"}, Rows: [][]string{}, Presentation: PresentationCitation, Caption: "c"},
			attrs: []string{"data", "name"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := oneElement(t, []Block{tt.table})
			var keys []string
			for _, a := range el.Attributes {
				keys = append(keys, a.Key)
			}
			if !reflect.DeepEqual(keys, tt.attrs) {
				t.Fatalf("attributes=%q, want %q", keys, tt.attrs)
			}
		})
	}
}

func TestToElements_TableDataRoundTrip(t *testing.T) {
	input := "| a | b |\n|---|---|\n| 1 |\n| <x> & \"y\" | 2 | 3 |\n\nTable: T\n\n| h |\n|---|\n| v |"

	blocks := Parse(input)
	elements := ToElements(blocks)
	if len(elements) != 2 {
		t.Fatalf("elements=%d, want 2", len(elements))
	}

	var i int
	for _, b := range blocks {
		table, ok := b.(Table)
		if !ok {
			continue
		}
		var got TableData
		if err := DecodePayload(elements[i], "data", &got); err != nil {
			t.Fatalf("DecodePayload: %v", err)
		}
		if !reflect.DeepEqual(got, table.Data()) {
			t.Fatalf("table %d data=%#v, want %#v", i, got, table.Data())
		}
		i++
	}
	if i != 2 {
		t.Fatalf("tables=%d, want 2", i)
	}
}

func TestToElements_TableCitation(t *testing.T) {
	c := TableCitation{
		CitationID: "rev",
		TableData:  TableData{Headers: []string{"Q"}, Rows: [][]string{{"Q1"}}},
		Caption:    "Revenue",
	}

	el := oneElement(t, []Block{c})
	if el.Tag != TagTableCitation {
		t.Fatalf("tag=%q, want %q", el.Tag, TagTableCitation)
	}
	if first := el.Attributes[0]; first.Key != "citationId" || first.Value != "rev" {
		t.Fatalf("first attribute=%#v, want citationId=rev", first)
	}

	var data TableData
	if err := DecodePayload(el, "data", &data); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if !reflect.DeepEqual(data, c.TableData) {
		t.Fatalf("data=%#v, want %#v", data, c.TableData)
	}

	caption, ok := el.Attr("caption")
	if !ok || caption != EncodeBase64("Revenue") {
		t.Fatalf("caption=%q (present=%v), want %q", caption, ok, EncodeBase64("Revenue"))
	}
}

func TestToElements_Report(t *testing.T) {
	el := oneElement(t, Parse(`report: {"id":"r1","title":"Sales","description":"Q3","region":"eu"}`))
	if el.Tag != TagReport {
		t.Fatalf("tag=%q, want %q", el.Tag, TagReport)
	}

	var payload map[string]any
	if err := DecodePayload(el, "data", &payload); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	want := map[string]any{
		"reportId": "r1",
		"title":    "Sales",
		"summary":  "Q3",
		"metadata": map[string]any{"region": "eu"},
	}
	if !reflect.DeepEqual(payload, want) {
		t.Fatalf("payload=%#v, want %#v", payload, want)
	}
}

func TestToElements_StructuralBlocksProduceNothing(t *testing.T) {
	content := BuildContent("# Heading\n\nA paragraph.\n\n```\ncode\n```\n\n- item\n\n---")

	if len(content.Blocks) != 5 {
		t.Fatalf("blocks=%d, want 5", len(content.Blocks))
	}
	if len(content.Elements) != 0 || content.CustomMarkup != "" {
		t.Fatalf("elements=%#v markup=%q, want none", content.Elements, content.CustomMarkup)
	}
	if content.PlainText == "" {
		t.Fatal("plainText is empty")
	}
}

func TestSerialize_EscapesQuotesAndNestsChildren(t *testing.T) {
	el := &Element{
		Tag:        "x-box",
		Attributes: []Attr{{Key: "title", Value: `say "hi"`}, {Key: "n", Value: "1"}},
		Children:   []Node{Text("before "), &Element{Tag: "x-inner"}, Text(" after")},
	}

	tests := []struct {
		elements []*Element
		want     string
	}{
		{[]*Element{el}, `<x-box title="say &quot;hi&quot;" n="1">before <x-inner></x-inner> after</x-box>`},
		{[]*Element{{Tag: "x-empty"}}, "<x-empty></x-empty>"},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := Serialize(tt.elements); got != tt.want {
			t.Fatalf("Serialize=%q, want %q", got, tt.want)
		}
	}
}

func TestElement_MarshalJSON(t *testing.T) {
	el := &Element{
		Tag:        "app-table-citation",
		Attributes: []Attr{{Key: "citationId", Value: "b"}, {Key: "data", Value: "a"}},
		Children:   []Node{Text("t"), &Element{Tag: "x"}},
	}

	b, err := json.Marshal(el)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"tag":"app-table-citation","attributes":{"citationId":"b","data":"a"},"children":["t",{"tag":"x"}]}`
	if string(b) != want {
		t.Fatalf("json=%s, want %s", b, want)
	}
}
