package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role tags a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call: an ordered message list and an output token cap.
type Request struct {
	Messages  []Message
	MaxTokens int
}

// System returns the concatenated system instructions of the request.
func (r Request) System() string {
	var parts []string
	for _, m := range r.Messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// CompletionClient defines the interface for text completion providers.
// Complete returns best-effort text; callers treat an error or blank text as unusable.
type CompletionClient interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}

var (
	// ErrEmptyCompletion is returned when the provider answered without content.
	ErrEmptyCompletion = errors.New("llmclient: empty completion")
	// ErrNotConfigured is returned when credentials or endpoint are missing.
	ErrNotConfigured = errors.New("llmclient: completion service not configured")
)

// StatusError reports a non-2xx response from an HTTP provider.
type StatusError struct {
	Provider string
	Code     int
	Status   string
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %s: %s", e.Provider, e.Status, e.Body)
}
