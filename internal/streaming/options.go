package streaming

import "github.com/docchat/chatmarkup/internal/markup"

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithUpdateFunc registers a callback that receives the rebuilt content after
// every write that changed the session.
func WithUpdateFunc(fn func(markup.Content)) WriterOption {
	return func(w *Writer) {
		w.onUpdate = fn
	}
}
