// Package markup turns assistant message text into structured content.
//
// Parse splits a markdown-like document into typed blocks (headings, lists,
// tables, quotes, code, report objects and table citations). ToElements maps
// the rich blocks onto a small vocabulary of custom elements whose attribute
// payloads are base64 encoded, and Serialize renders those elements to the
// markup string consumed by the chat renderer. BuildContent runs the whole
// pipeline and is safe to call again with a longer input at any time, which
// is how streaming messages are rendered.
//
// All functions in this package are pure and safe for concurrent use.
package markup
