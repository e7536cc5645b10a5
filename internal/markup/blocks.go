package markup

import (
	"bytes"
	"encoding/json"
)

// BlockKind identifies the type of a content block. Its value doubles as the
// "type" discriminant in JSON output.
type BlockKind string

const (
	KindHeading       BlockKind = "heading"
	KindParagraph     BlockKind = "paragraph"
	KindCode          BlockKind = "code"
	KindList          BlockKind = "list"
	KindQuote         BlockKind = "quote"
	KindDivider       BlockKind = "divider"
	KindTable         BlockKind = "table"
	KindReport        BlockKind = "report"
	KindTableCitation BlockKind = "table-citation"
)

// Block is one structurally classified unit of parsed text.
type Block interface {
	Kind() BlockKind
}

// Presentation controls how a table is rendered.
type Presentation string

const (
	PresentationInline   Presentation = "inline"
	PresentationCitation Presentation = "citation"
)

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type Paragraph struct {
	Text string `json:"text"`
}

// Code is a fenced code block. Language is empty when the fence had no info string.
type Code struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
}

type List struct {
	Ordered bool     `json:"ordered"`
	Items   []string `json:"items"`
}

type Quote struct {
	Text string `json:"text"`
}

type Divider struct{}

// TableData is the header/row payload shared by tables and table citations.
// Rows are not required to have as many cells as Headers.
type TableData struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Table is a pipe table. A table preceded by a "Table: ..." paragraph becomes
// a citation table and carries that paragraph's text as its caption.
type Table struct {
	Headers      []string     `json:"headers"`
	Rows         [][]string   `json:"rows"`
	Presentation Presentation `json:"presentation"`
	Caption      string       `json:"caption,omitempty"`
}

// Data returns the table's header/row payload.
func (t Table) Data() TableData {
	return TableData{Headers: t.Headers, Rows: t.Rows}
}

// Report is a structured object announced by a "report: {...}" paragraph.
type Report struct {
	ReportID string         `json:"reportId"`
	Title    string         `json:"title"`
	Summary  string         `json:"summary,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TableCitation expands an inline [table-<id>] marker into the table that was
// registered under that id.
type TableCitation struct {
	CitationID string    `json:"citationId"`
	TableData  TableData `json:"tableData"`
	Caption    string    `json:"caption,omitempty"`
}

func (Heading) Kind() BlockKind       { return KindHeading }
func (Paragraph) Kind() BlockKind     { return KindParagraph }
func (Code) Kind() BlockKind          { return KindCode }
func (List) Kind() BlockKind          { return KindList }
func (Quote) Kind() BlockKind         { return KindQuote }
func (Divider) Kind() BlockKind       { return KindDivider }
func (Table) Kind() BlockKind         { return KindTable }
func (Report) Kind() BlockKind        { return KindReport }
func (TableCitation) Kind() BlockKind { return KindTableCitation }

// The MarshalJSON methods below add the "type" discriminant so that HTTP
// clients receive a tagged union.

func (b Heading) MarshalJSON() ([]byte, error) {
	type alias Heading
	return marshalTagged(b.Kind(), alias(b))
}

func (b Paragraph) MarshalJSON() ([]byte, error) {
	type alias Paragraph
	return marshalTagged(b.Kind(), alias(b))
}

func (b Code) MarshalJSON() ([]byte, error) {
	type alias Code
	return marshalTagged(b.Kind(), alias(b))
}

func (b List) MarshalJSON() ([]byte, error) {
	type alias List
	return marshalTagged(b.Kind(), alias(b))
}

func (b Quote) MarshalJSON() ([]byte, error) {
	type alias Quote
	return marshalTagged(b.Kind(), alias(b))
}

func (b Divider) MarshalJSON() ([]byte, error) {
	type alias Divider
	return marshalTagged(b.Kind(), alias(b))
}

func (b Table) MarshalJSON() ([]byte, error) {
	type alias Table
	return marshalTagged(b.Kind(), alias(b))
}

func (b Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return marshalTagged(b.Kind(), alias(b))
}

func (b TableCitation) MarshalJSON() ([]byte, error) {
	type alias TableCitation
	return marshalTagged(b.Kind(), alias(b))
}

// marshalTagged prepends the "type" member to the object encoding of v.
func marshalTagged(kind BlockKind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(kind)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}
