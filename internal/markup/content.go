package markup

// Content is the rendered snapshot of a message: its blocks, their plain
// text, the custom elements and the serialized element markup.
type Content struct {
	Blocks       []Block    `json:"blocks"`
	PlainText    string     `json:"plainText"`
	Elements     []*Element `json:"elements"`
	CustomMarkup string     `json:"customMarkup"`
}

// BuildContent parses markdown and derives every view of it.
func BuildContent(markdown string, opts ...ParseOption) Content {
	blocks := Parse(markdown, opts...)
	elements := ToElements(blocks)
	return Content{
		Blocks:       blocks,
		PlainText:    PlainText(blocks),
		Elements:     elements,
		CustomMarkup: Serialize(elements),
	}
}
