package streaming

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/docchat/chatmarkup/internal/markup"
)

func TestWriter_ByteByByteMatchesDirectParse(t *testing.T) {
	input := "טבלה: מצב\n\n| משימה | סטטוס |\n| --- | --- |\n| בנייה | הושלם |\n\n> ✓ done"

	var updates []markup.Content
	w := NewWriter(NewSession(), WithUpdateFunc(func(c markup.Content) {
		updates = append(updates, c)
	}))
	for i := 0; i < len(input); i++ {
		if _, err := w.Write([]byte{input[i]}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := w.Session().Content(); got != input {
		t.Fatalf("accumulated %q, want %q", got, input)
	}
	if len(updates) != len([]rune(input)) {
		t.Fatalf("updates=%d, want one per rune (%d)", len(updates), len([]rune(input)))
	}
	if want := markup.BuildContent(input); !reflect.DeepEqual(updates[len(updates)-1], want) {
		t.Fatalf("final content differs\ngot:  %#v\nwant: %#v", updates[len(updates)-1], want)
	}
}

func TestWriter_HoldsBackPartialRune(t *testing.T) {
	w := NewWriter(NewSession())
	euro := []byte("€")

	w.Write(euro[:2])
	if got := w.Session().Content(); got != "" {
		t.Fatalf("partial rune leaked into session: %q", got)
	}
	w.Write(euro[2:])
	if got := w.Session().Content(); got != "€" {
		t.Fatalf("content=%q, want %q", got, "€")
	}
}

func TestWriter_FlushWritesIncompleteTail(t *testing.T) {
	w := NewWriter(NewSession())
	w.Write([]byte{'a', 0xe2})
	if got := w.Session().Content(); got != "a" {
		t.Fatalf("content=%q, want %q", got, "a")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := w.Session().Content(); got != "a\xe2" {
		t.Fatalf("content=%q, want %q", got, "a\xe2")
	}
}

func TestWriter_Copy(t *testing.T) {
	input := strings.Repeat("- item\n", 50)
	w := NewWriter(NewSession())

	if _, err := io.Copy(w, strings.NewReader(input)); err != nil {
		t.Fatalf("copy: %v", err)
	}
	got := w.Session().Current()
	if len(got.Blocks) != 1 {
		t.Fatalf("blocks=%d, want 1", len(got.Blocks))
	}
	list := got.Blocks[0].(markup.List)
	if len(list.Items) != 50 {
		t.Fatalf("items=%d, want 50", len(list.Items))
	}
}

func TestCompletePrefix(t *testing.T) {
	tests := []struct {
		in   []byte
		want int
	}{
		{nil, 0},
		{[]byte("abc"), 3},
		{[]byte("a€"), 4},
		{[]byte("a€")[:3], 1},
		{[]byte("a€")[:2], 1},
		{[]byte{0xff}, 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			if got := completePrefix(tt.in); got != tt.want {
				t.Fatalf("completePrefix(%q)=%d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
