package streaming

import (
	"unicode/utf8"

	"github.com/docchat/chatmarkup/internal/markup"
)

// Writer feeds raw bytes into a Session as tokens. It implements io.Writer,
// which makes it easy to pipe a model's output stream into a message.
//
// Bytes that end in the middle of a UTF-8 sequence are held back until the
// sequence completes so that every rebuild sees whole runes.
type Writer struct {
	session  *Session
	pending  []byte
	onUpdate func(markup.Content)
}

// NewWriter creates a Writer appending to s.
func NewWriter(s *Session, opts ...WriterOption) *Writer {
	w := &Writer{session: s}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Session returns the session the writer appends to.
func (w *Writer) Session() *Session {
	return w.session
}

// Write appends p to the session.
func (w *Writer) Write(p []byte) (int, error) {
	w.pending = append(w.pending, p...)
	n := completePrefix(w.pending)
	if n == 0 {
		return len(p), nil
	}
	w.emit(string(w.pending[:n]))
	w.pending = append(w.pending[:0], w.pending[n:]...)
	return len(p), nil
}

// Flush appends any held-back bytes, complete rune or not.
func (w *Writer) Flush() error {
	if len(w.pending) == 0 {
		return nil
	}
	w.emit(string(w.pending))
	w.pending = w.pending[:0]
	return nil
}

// Close flushes the writer.
func (w *Writer) Close() error {
	return w.Flush()
}

func (w *Writer) emit(token string) {
	content := w.session.Append(TokenChunk(token))
	if w.onUpdate != nil {
		w.onUpdate(content)
	}
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte rune.
func completePrefix(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}
