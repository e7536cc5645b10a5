// Package streaming renders chat messages while they are still arriving.
//
// A Session accumulates the text of one in-flight message and re-parses the
// whole of it on every chunk. Block boundaries can change retroactively (a
// table is only recognizable once its divider row arrives), so the full
// document is rebuilt instead of patching the previous result.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/docchat/chatmarkup/internal/markup"
)

// Chunk is one piece of a streamed message. CumulativeContent, when set
// (even to ""), replaces the accumulated text; otherwise Token is appended.
type Chunk struct {
	Token             *string `json:"token,omitempty"`
	CumulativeContent *string `json:"cumulativeContent,omitempty"`
}

// TokenChunk returns a chunk that appends s.
func TokenChunk(s string) Chunk {
	return Chunk{Token: &s}
}

// CumulativeChunk returns a chunk that replaces the message text with s.
func CumulativeChunk(s string) Chunk {
	return Chunk{CumulativeContent: &s}
}

// DecodeChunk decodes one JSON chunk object such as {"token":"Hel"} or
// {"cumulativeContent":"Hello"}.
func DecodeChunk(b []byte) (Chunk, error) {
	var c Chunk
	if err := json.Unmarshal(b, &c); err != nil {
		return Chunk{}, fmt.Errorf("decode chunk: %w", err)
	}
	return c, nil
}

// Session holds the accumulated text of one streamed message.
//
// A Session is not safe for concurrent use. Each message stream owns its own
// Session and the stream reader must serialize calls to it.
type Session struct {
	content   string
	parseOpts []markup.ParseOption
}

// NewSession creates an empty session. Parse options are applied on every
// rebuild.
func NewSession(opts ...markup.ParseOption) *Session {
	return &Session{parseOpts: opts}
}

// Append applies c to the accumulated text and returns the freshly parsed
// content of the whole message.
func (s *Session) Append(c Chunk) markup.Content {
	switch {
	case c.CumulativeContent != nil:
		s.content = *c.CumulativeContent
	case c.Token != nil:
		s.content += *c.Token
	}
	return s.Current()
}

// Reset clears the accumulated text.
func (s *Session) Reset() {
	s.content = ""
}

// Current parses the accumulated text without changing it.
func (s *Session) Current() markup.Content {
	return markup.BuildContent(s.content, s.parseOpts...)
}

// Content returns the accumulated raw text.
func (s *Session) Content() string {
	return s.content
}
