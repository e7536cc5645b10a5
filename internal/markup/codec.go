package markup

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// EncodeBase64 encodes the UTF-8 bytes of s with the standard padded alphabet.
func EncodeBase64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// DecodeBase64 reverses EncodeBase64. The decoded bytes must be valid UTF-8.
func DecodeBase64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("decode base64: payload is not valid UTF-8")
	}
	return string(b), nil
}
