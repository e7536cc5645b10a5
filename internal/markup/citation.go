package markup

import "strings"

type citation struct {
	data    TableData
	caption string
}

// collectCitations scans the document for "table-citation: <id>" definitions.
// Each definition must be followed by a table (blank lines in between are
// allowed); an optional caption line may sit directly above the definition.
// It returns the registered tables keyed by id and the set of line indexes
// that belong to definitions and must not be emitted as blocks. The first
// definition of an id wins.
func collectCitations(lines []string) (map[string]citation, map[int]bool) {
	var (
		cites map[string]citation
		skip  map[int]bool
	)
	for i := 0; i < len(lines); i++ {
		m := citationDefPattern.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}
		j := i + 1
		for j < len(lines) && isBlank(lines[j]) {
			j++
		}
		if !isTableStart(lines, j) {
			continue
		}
		data, end := readTable(lines, j)

		if cites == nil {
			cites = make(map[string]citation)
			skip = make(map[int]bool)
		}
		c := citation{data: data}
		if i > 0 && !skip[i-1] {
			if caption, ok := captionText(lines[i-1]); ok {
				c.caption = caption
				skip[i-1] = true
			}
		}
		for k := i; k < end; k++ {
			skip[k] = true
		}
		if _, exists := cites[m[1]]; !exists {
			cites[m[1]] = c
		}
		i = end - 1
	}
	return cites, skip
}

// expandCitations splits paragraph text at [table-<id>] markers whose id was
// registered, returning the resulting paragraph and citation blocks. Markers
// with unknown ids stay in the text. It returns nil when no marker matched.
func expandCitations(text string, cites map[string]citation) []Block {
	if len(cites) == 0 {
		return nil
	}
	var (
		blocks  []Block
		last    int
		matched bool
	)
	for _, m := range citationRefPattern.FindAllStringSubmatchIndex(text, -1) {
		id := text[m[2]:m[3]]
		c, ok := cites[id]
		if !ok {
			continue
		}
		matched = true
		blocks = appendParagraph(blocks, text[last:m[0]])
		blocks = append(blocks, TableCitation{
			CitationID: id,
			TableData:  c.data,
			Caption:    c.caption,
		})
		last = m[1]
	}
	if !matched {
		return nil
	}
	return appendParagraph(blocks, text[last:])
}

func appendParagraph(blocks []Block, text string) []Block {
	text = strings.TrimSpace(text)
	if text == "" {
		return blocks
	}
	return append(blocks, Paragraph{Text: text})
}
