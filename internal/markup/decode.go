package markup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// The HTML tokenizer lower-cases attribute names; camel-cased attributes of
// the element vocabulary are restored through this table.
var canonicalAttrs = map[string]string{
	"citationid": "citationId",
}

// DecodeMarkup parses markup produced by Serialize back into elements.
func DecodeMarkup(markup string) ([]*Element, error) {
	z := html.NewTokenizer(strings.NewReader(markup))

	var roots, stack []*Element
	attach := func(el *Element) {
		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, el)
			return
		}
		roots = append(roots, el)
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("decode markup: %w", err)
			}
			if len(stack) > 0 {
				return nil, fmt.Errorf("decode markup: unclosed <%s>", stack[len(stack)-1].Tag)
			}
			return roots, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			el := &Element{Tag: tok.Data}
			for _, a := range tok.Attr {
				key := a.Key
				if canonical, ok := canonicalAttrs[key]; ok {
					key = canonical
				}
				el.setAttr(key, a.Val)
			}
			if tt == html.SelfClosingTagToken {
				attach(el)
				continue
			}
			stack = append(stack, el)

		case html.EndTagToken:
			tok := z.Token()
			if len(stack) == 0 || stack[len(stack)-1].Tag != tok.Data {
				return nil, fmt.Errorf("decode markup: unexpected </%s>", tok.Data)
			}
			el := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			attach(el)

		case html.TextToken:
			text := string(z.Text())
			if len(stack) == 0 {
				if strings.TrimSpace(text) != "" {
					return nil, fmt.Errorf("decode markup: text outside of an element")
				}
				continue
			}
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, Text(text))
		}
	}
}

// DecodePayload decodes a base64 JSON attribute of el into v.
func DecodePayload(el *Element, attr string, v any) error {
	raw, ok := el.Attr(attr)
	if !ok {
		return fmt.Errorf("<%s> has no %q attribute", el.Tag, attr)
	}
	text, err := DecodeBase64(raw)
	if err != nil {
		return fmt.Errorf("<%s> %s: %w", el.Tag, attr, err)
	}
	if err := json.Unmarshal([]byte(text), v); err != nil {
		return fmt.Errorf("<%s> %s: %w", el.Tag, attr, err)
	}
	return nil
}
