package llmclient

import "strings"

// CountTokens gives a rough token estimate for logging.
// It counts whitespace-delimited words and falls back to a character-based heuristic.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	if n := len(strings.Fields(text)); n > 1 {
		return n
	}
	n := len(text) / 4
	if n == 0 {
		n = 1
	}
	return n
}

// RequestTokens estimates the prompt size of a request.
func RequestTokens(req Request) int {
	total := 0
	for _, m := range req.Messages {
		total += CountTokens(m.Content)
	}
	return total
}
