package jsonutil

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// MarshalNoEscape encodes v into JSON without escaping <, >, & into \u003c escapes.
// Generated source files are full of these characters.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	// Remove trailing newline from json.Encoder.Encode
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

var fenceMarker = regexp.MustCompile("```[a-zA-Z0-9_+-]*\\n?|\\n?```")

// StripCodeFences removes every markdown code fence marker from model output
// and trims surrounding whitespace. Use it for JSON replies only.
func StripCodeFences(s string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(s, ""))
}

// UnwrapCodeFence removes one fence wrapping the whole reply: a leading
// "```lang" line and a trailing "```". Fences inside the body are kept.
func UnwrapCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl < 0 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	if strings.ContainsAny(strings.TrimSpace(s[3:nl]), " `") {
		return s
	}
	s = s[nl+1:]
	if trimmed := strings.TrimRight(s, " \t\r\n"); strings.HasSuffix(trimmed, "```") {
		s = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(s)
}
