package generator

import "unicode/utf8"

const (
	MinPromptLength = 10
	MaxPromptLength = 5000
)

// ValidationError carries a user-facing message for a rejected prompt.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ValidatePrompt checks the prompt length in characters.
func ValidatePrompt(prompt string) error {
	n := utf8.RuneCountInString(prompt)
	switch {
	case n < MinPromptLength:
		return &ValidationError{Message: "Please provide a detailed app description (at least 10 characters)"}
	case n > MaxPromptLength:
		return &ValidationError{Message: "Prompt too long (max 5000 characters)"}
	}
	return nil
}
