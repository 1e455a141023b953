package validate

import (
	"errors"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid prompt", "finish math homework", false},
		{"surrounding spaces", "  call alice  ", false},
		{"empty string", "", true},
		{"only spaces", "   ", true},
		{"only newlines", "\n\t\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Prompt(tt.input)
			assert.Equal(t, tt.wantErr, err != nil, "Prompt(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		})
	}
}

func TestUserID(t *testing.T) {
	assert.NoError(t, UserID("5f0c7a4e-1b7d-4a8c-9d0f-1f2e3d4c5b6a"))
	assert.EqualError(t, UserID(""), "User ID is required.")
	assert.EqualError(t, UserID("  "), "User ID is required.")
}

func TestFields(t *testing.T) {
	err := criterio.ValidateStruct(
		PromptField("prompt", " "),
		UserIDField("user", ""),
		TitleField("title", "ok"),
	)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	require.Len(t, fieldErrs, 2)
	assert.Equal(t, "prompt", fieldErrs[0].Field)
	assert.Equal(t, "Prompt is required.", fieldErrs[0].Err.Error())
	assert.Equal(t, "user", fieldErrs[1].Field)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "title is required", Message(TitleField("title", "")))
	assert.Equal(t, "plain", Message(errors.New("plain")))
}
