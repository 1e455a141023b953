// Package validate provides shared validation functions.
package validate

import (
	"errors"
	"strings"

	"github.com/hay-kot/criterio"
)

var (
	errPromptRequired = errors.New("Prompt is required.")  //nolint:staticcheck // user-facing message
	errUserIDRequired = errors.New("User ID is required.") //nolint:staticcheck // user-facing message
	errTitleRequired  = errors.New("title is required")
)

// Prompt validates a generation prompt is non-empty after trimming whitespace.
func Prompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errPromptRequired
	}
	return nil
}

// UserID validates a user identifier is present.
func UserID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errUserIDRequired
	}
	return nil
}

// Title validates a task or subtask title is non-empty after trimming whitespace.
func Title(title string) error {
	if strings.TrimSpace(title) == "" {
		return errTitleRequired
	}
	return nil
}

// PromptField returns a criterio validator for prompts.
func PromptField(field, prompt string) error {
	return criterio.Run(field, prompt, Prompt)
}

// UserIDField returns a criterio validator for user identifiers.
func UserIDField(field, id string) error {
	return criterio.Run(field, id, UserID)
}

// TitleField returns a criterio validator for titles.
func TitleField(field, title string) error {
	return criterio.Run(field, title, Title)
}

// Message returns the message of the first field error in err, falling back
// to err.Error() for errors that did not come from a field validator.
func Message(err error) string {
	var fieldErrs criterio.FieldErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fieldErrs[0].Err.Error()
	}
	return err.Error()
}
