package markup

import (
	"strings"
	"time"
)

// ParseOption configures Parse and BuildContent.
type ParseOption func(*parseConfig)

type parseConfig struct {
	now func() time.Time
}

// WithClock sets the clock used to generate ids for reports that do not
// carry one. The default is time.Now.
func WithClock(now func() time.Time) ParseOption {
	return func(c *parseConfig) {
		if now != nil {
			c.now = now
		}
	}
}

func newParseConfig(opts []ParseOption) *parseConfig {
	cfg := &parseConfig{now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Parse converts markdown into an ordered list of content blocks. It never
// fails: anything it does not recognize becomes a paragraph.
//
// Parsing is a single pass over the lines after a first pass that collects
// table-citation definitions. At each line the first matching rule wins, in
// this order: blank, table, code fence, heading, divider, quote, list item,
// paragraph.
func Parse(markdown string, opts ...ParseOption) []Block {
	p := &parser{
		cfg:   newParseConfig(opts),
		lines: splitLines(markdown),
	}
	p.cites, p.skip = collectCitations(p.lines)
	return p.run()
}

type parser struct {
	cfg    *parseConfig
	lines  []string
	cites  map[string]citation
	skip   map[int]bool
	blocks []Block
}

func (p *parser) run() []Block {
	p.blocks = []Block{}
	i := 0
	for i < len(p.lines) {
		line := p.lines[i]
		switch {
		case p.skip[i] || isBlank(line):
			i++
		case isTableStart(p.lines, i):
			i = p.table(i)
		case isFence(line):
			i = p.code(i)
		case isHeading(line):
			p.heading(line)
			i++
		case isDivider(line):
			p.blocks = append(p.blocks, Divider{})
			i++
		case isQuote(line):
			i = p.quote(i)
		case isListItem(line):
			i = p.list(i)
		default:
			i = p.paragraph(i)
		}
	}
	return p.blocks
}

func (p *parser) table(start int) int {
	data, next := readTable(p.lines, start)
	t := Table{
		Headers:      data.Headers,
		Rows:         data.Rows,
		Presentation: PresentationInline,
	}
	// A caption paragraph directly before the table turns it into a citation
	// table. Only the immediately preceding block is considered.
	if n := len(p.blocks); n > 0 {
		if para, ok := p.blocks[n-1].(Paragraph); ok {
			if caption, ok := captionText(para.Text); ok {
				p.blocks = p.blocks[:n-1]
				t.Presentation = PresentationCitation
				t.Caption = caption
			}
		}
	}
	p.blocks = append(p.blocks, t)
	return next
}

// code consumes a fenced block verbatim up to the closing fence. An unclosed
// fence runs to the end of the document.
func (p *parser) code(start int) int {
	open := strings.TrimSpace(p.lines[start])
	c := Code{Language: strings.TrimSpace(strings.TrimLeft(open, "`"))}

	i := start + 1
	var body []string
	for i < len(p.lines) && !isFence(p.lines[i]) {
		body = append(body, p.lines[i])
		i++
	}
	if i < len(p.lines) {
		i++
	}
	c.Code = strings.Join(body, "\n")
	p.blocks = append(p.blocks, c)
	return i
}

func (p *parser) heading(line string) {
	m := headingPattern.FindStringSubmatch(strings.TrimSpace(line))
	p.blocks = append(p.blocks, Heading{
		Level: len(m[1]),
		Text:  strings.TrimSpace(m[2]),
	})
}

func (p *parser) quote(start int) int {
	var parts []string
	i := start
	for i < len(p.lines) && !p.skip[i] && isQuote(p.lines[i]) {
		line := strings.TrimSpace(p.lines[i])[1:]
		parts = append(parts, strings.TrimPrefix(line, " "))
		i++
	}
	p.blocks = append(p.blocks, Quote{Text: strings.TrimSpace(strings.Join(parts, " "))})
	return i
}

// list consumes consecutive items of the same kind. Switching between
// ordered and unordered items starts a new list.
func (p *parser) list(start int) int {
	_, ordered, _ := listItem(p.lines[start])
	l := List{Ordered: ordered}
	i := start
	for i < len(p.lines) && !p.skip[i] {
		text, o, ok := listItem(p.lines[i])
		if !ok || o != ordered {
			break
		}
		l.Items = append(l.Items, text)
		i++
	}
	p.blocks = append(p.blocks, l)
	return i
}

func (p *parser) paragraph(start int) int {
	parts := []string{strings.TrimSpace(p.lines[start])}
	i := start + 1
	for i < len(p.lines) && !p.skip[i] && !isParagraphBoundary(p.lines[i]) {
		parts = append(parts, strings.TrimSpace(p.lines[i]))
		i++
	}
	text := strings.Join(parts, " ")

	if r, ok := parseReport(text, p.cfg); ok {
		p.blocks = append(p.blocks, r)
		return i
	}
	if expanded := expandCitations(text, p.cites); expanded != nil {
		p.blocks = append(p.blocks, expanded...)
		return i
	}
	p.blocks = append(p.blocks, Paragraph{Text: text})
	return i
}
