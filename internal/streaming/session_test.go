package streaming

import (
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/docchat/chatmarkup/internal/markup"
)

var fixedClock = markup.WithClock(func() time.Time { return time.UnixMilli(1700000000000) })

// parseFull parses input in one pass.
func parseFull(input string) markup.Content {
	return markup.BuildContent(input, fixedClock)
}

// parseChunked feeds input to a fresh session byte by byte.
func parseChunked(t *testing.T, input string) markup.Content {
	t.Helper()
	s := NewSession(fixedClock)
	var last markup.Content
	for i := 0; i < len(input); i++ {
		last = s.Append(TokenChunk(input[i : i+1]))
	}
	if s.Content() != input {
		t.Fatalf("accumulated %q, want %q", s.Content(), input)
	}
	return last
}

// parseRandomChunks feeds input to a fresh session in random sized tokens.
func parseRandomChunks(t *testing.T, input string, maxChunkSize int) markup.Content {
	t.Helper()
	s := NewSession(fixedClock)
	rng := rand.New(rand.NewSource(int64(len(input))))
	var last markup.Content
	pos := 0
	for pos < len(input) {
		size := rng.Intn(maxChunkSize) + 1
		if pos+size > len(input) {
			size = len(input) - pos
		}
		last = s.Append(TokenChunk(input[pos : pos+size]))
		pos += size
	}
	return last
}

// assertChunkingInvariant verifies that streamed parsing matches a direct parse.
func assertChunkingInvariant(t *testing.T, name, input string) {
	t.Helper()

	full := parseFull(input)
	if chunked := parseChunked(t, input); !reflect.DeepEqual(full, chunked) {
		t.Errorf("%s: byte-by-byte result differs\nInput: %q\nFull: %#v\nChunked: %#v", name, input, full, chunked)
	}
	if random := parseRandomChunks(t, input, 7); !reflect.DeepEqual(full, random) {
		t.Errorf("%s: random chunk result differs\nInput: %q\nFull: %#v\nChunked: %#v", name, input, full, random)
	}
}

func TestChunkingInvariant(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"heading", "# Hello World\n"},
		{"paragraph", "Line one.\nLine two.\n\nNext paragraph."},
		{"fenced code", "```go\nfmt.Println(\"hello\")\n```\n"},
		{"lists", "1. First\n2. Second\n\n- a\n- b\n"},
		{"quote", "> Line 1\n> Line 2\n\nAfter.\n"},
		{"divider", "above\n\n---\n\nbelow"},
		{"captioned table", "Table: Weekly Status\n\n| Task | Status |\n| --- | --- |\n| Build | Complete |"},
		{"report", `report: {"title":"Generated id"}`},
		{"citation", "table-citation: 1\n| a | b |\n|---|---|\n| 1 | 2 |\n\nSee [table-1] now."},
		{"hebrew", "טבלה: נתונים\n\n| שם | ערך |\n|---|---|\n| א | 1 |"},
		{"crlf", "# Title\r\n\r\n> quote\r\nmore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertChunkingInvariant(t, tt.name, tt.input)
		})
	}
}

func TestSession_TableAppearsWhenDividerArrives(t *testing.T) {
	s := NewSession()

	got := s.Append(TokenChunk("| a | b |\n"))
	if len(got.Blocks) != 1 || got.Blocks[0].Kind() != markup.KindParagraph {
		t.Fatalf("before divider: blocks=%#v, want one paragraph", got.Blocks)
	}
	if got.CustomMarkup != "" {
		t.Fatalf("before divider: markup=%q, want empty", got.CustomMarkup)
	}

	got = s.Append(TokenChunk("|---|---|"))
	if len(got.Blocks) != 1 || got.Blocks[0].Kind() != markup.KindTable {
		t.Fatalf("after divider: blocks=%#v, want one table", got.Blocks)
	}
	if !strings.HasPrefix(got.CustomMarkup, "<"+markup.TagInlineTable+" ") {
		t.Fatalf("after divider: markup=%q, want inline table", got.CustomMarkup)
	}
}

func TestSession_CumulativeOverride(t *testing.T) {
	s := NewSession()
	s.Append(TokenChunk("Hello "))

	got := s.Append(CumulativeChunk("Goodbye"))
	want := markup.BuildContent("Goodbye")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("content=%#v, want %#v", got, want)
	}
	if s.Content() != "Goodbye" {
		t.Fatalf("accumulated=%q, want %q", s.Content(), "Goodbye")
	}
}

func TestSession_EmptyCumulativeClears(t *testing.T) {
	s := NewSession()
	s.Append(TokenChunk("# Title"))

	got := s.Append(CumulativeChunk(""))
	if len(got.Blocks) != 0 || got.PlainText != "" {
		t.Fatalf("content=%#v, want empty", got)
	}
}

func TestSession_CumulativeWinsOverToken(t *testing.T) {
	s := NewSession()
	token, cumulative := "ignored", "kept"

	s.Append(Chunk{Token: &token, CumulativeContent: &cumulative})
	if s.Content() != "kept" {
		t.Fatalf("accumulated=%q, want %q", s.Content(), "kept")
	}
}

func TestSession_EmptyChunkReparses(t *testing.T) {
	s := NewSession()
	s.Append(TokenChunk("> hi"))

	got := s.Append(Chunk{})
	if got.PlainText != "hi" {
		t.Fatalf("plainText=%q, want %q", got.PlainText, "hi")
	}
}

func TestSession_ResetAndCurrent(t *testing.T) {
	s := NewSession()
	s.Append(TokenChunk("> quoted"))

	first := s.Current()
	second := s.Current()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Current is not idempotent: %#v vs %#v", first, second)
	}
	if s.Content() != "> quoted" {
		t.Fatalf("Current mutated content: %q", s.Content())
	}

	s.Reset()
	if s.Content() != "" {
		t.Fatalf("after Reset content=%q, want empty", s.Content())
	}
	if got := s.Current(); len(got.Blocks) != 0 || got.CustomMarkup != "" {
		t.Fatalf("after Reset content=%#v, want empty", got)
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	a, b := NewSession(), NewSession()
	a.Append(TokenChunk("> from a"))
	b.Append(TokenChunk("# from b"))

	if a.Current().PlainText != "from a" {
		t.Fatalf("a plainText=%q", a.Current().PlainText)
	}
	if b.Current().PlainText != "from b" {
		t.Fatalf("b plainText=%q", b.Current().PlainText)
	}
}

func TestDecodeChunk(t *testing.T) {
	c, err := DecodeChunk([]byte(`{"token":"Hel"}`))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if c.Token == nil || *c.Token != "Hel" || c.CumulativeContent != nil {
		t.Fatalf("chunk=%#v, want token %q", c, "Hel")
	}

	c, err = DecodeChunk([]byte(`{"cumulativeContent":""}`))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if c.CumulativeContent == nil || *c.CumulativeContent != "" {
		t.Fatalf("chunk=%#v, want empty cumulative content", c)
	}

	if _, err := DecodeChunk([]byte(`"just text"`)); err == nil {
		t.Fatal("expected error for non-object chunk")
	}
}
