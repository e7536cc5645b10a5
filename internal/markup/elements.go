package markup

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Custom element tags understood by the chat renderer. The "catation"
// spellings are part of the renderer contract and must not be corrected.
const (
	TagQuote         = "app-catation"
	TagInlineTable   = "app-inline-table"
	TagCitationTable = "app-table-catation"
	TagTableCitation = "app-table-citation"
	TagReport        = "app-report"
)

// Node is a child of an Element: either another *Element or Text.
type Node interface {
	node()
}

// Text is a raw string child. It is written to markup unescaped.
type Text string

// Attr is a single element attribute.
type Attr struct {
	Key   string
	Value string
}

// Element is a custom element node. Attributes keep the order in which they
// were added, which is the order they are serialized in.
type Element struct {
	Tag        string
	Attributes []Attr
	Children   []Node
}

func (*Element) node() {}
func (Text) node()     {}

// Attr returns the value of the named attribute.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

func (e *Element) setAttr(key, value string) {
	e.Attributes = append(e.Attributes, Attr{Key: key, Value: value})
}

// ToElements maps blocks to custom elements. Only quotes, tables, table
// citations and reports produce elements; every other block is dropped.
func ToElements(blocks []Block) []*Element {
	elements := []*Element{}
	for _, b := range blocks {
		if el := toElement(b); el != nil {
			elements = append(elements, el)
		}
	}
	return elements
}

func toElement(b Block) *Element {
	switch b := b.(type) {
	case Quote:
		el := &Element{Tag: TagQuote}
		el.setAttr("text", EncodeBase64(b.Text))
		return el

	case Table:
		el := &Element{Tag: TagInlineTable}
		captionAttr := "caption"
		if b.Presentation == PresentationCitation {
			el.Tag = TagCitationTable
			captionAttr = "name"
		}
		el.setAttr("data", encodePayload(b.Data()))
		if b.Caption != "" {
			el.setAttr(captionAttr, EncodeBase64(b.Caption))
		}
		return el

	case TableCitation:
		el := &Element{Tag: TagTableCitation}
		el.setAttr("citationId", b.CitationID)
		el.setAttr("data", encodePayload(b.TableData))
		if b.Caption != "" {
			el.setAttr("caption", EncodeBase64(b.Caption))
		}
		return el

	case Report:
		el := &Element{Tag: TagReport}
		el.setAttr("data", encodePayload(b))
		return el
	}
	return nil
}

// encodePayload base64-encodes the JSON form of v. Report values encode
// without their "type" member.
func encodePayload(v any) string {
	if r, ok := v.(Report); ok {
		type payload Report
		v = payload(r)
	}
	return EncodeBase64(string(marshalCompact(v)))
}

// marshalCompact encodes v like JSON.stringify would: no HTML escaping and no
// trailing newline.
func marshalCompact(v any) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		// Payloads hold only strings, slices and decoded JSON values.
		panic("markup: encode payload: " + err.Error())
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// Serialize renders elements as markup. Attribute values only have their
// double quotes escaped, and empty elements are written as an open/close pair.
func Serialize(elements []*Element) string {
	var sb strings.Builder
	for _, el := range elements {
		writeElement(&sb, el)
	}
	return sb.String()
}

func writeElement(sb *strings.Builder, el *Element) {
	sb.WriteByte('<')
	sb.WriteString(el.Tag)
	for _, a := range el.Attributes {
		sb.WriteByte(' ')
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(strings.ReplaceAll(a.Value, `"`, "&quot;"))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	for _, child := range el.Children {
		switch c := child.(type) {
		case *Element:
			writeElement(sb, c)
		case Text:
			sb.WriteString(string(c))
		}
	}
	sb.WriteString("</")
	sb.WriteString(el.Tag)
	sb.WriteByte('>')
}

// MarshalJSON encodes the element as {"tag", "attributes", "children"} with
// attributes as an object in insertion order.
func (e *Element) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"tag":`)
	buf.Write(marshalCompact(e.Tag))
	if len(e.Attributes) > 0 {
		buf.WriteString(`,"attributes":{`)
		for i, a := range e.Attributes {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(marshalCompact(a.Key))
			buf.WriteByte(':')
			buf.Write(marshalCompact(a.Value))
		}
		buf.WriteByte('}')
	}
	if len(e.Children) > 0 {
		buf.WriteString(`,"children":[`)
		for i, child := range e.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := json.Marshal(child)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
