package logutils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, closer, err := New("loud", "", FormatJSON)
	require.Error(t, err)
	closer()
}

func TestNew_FileFormats(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		check  func(t *testing.T, line string)
	}{
		{
			name:   "json",
			format: FormatJSON,
			check: func(t *testing.T, line string) {
				var m map[string]any
				require.NoError(t, json.Unmarshal([]byte(line), &m))
				assert.Equal(t, "hello", m["message"])
				assert.Equal(t, "info", m["level"])
			},
		},
		{
			name:   "console",
			format: FormatConsole,
			check: func(t *testing.T, line string) {
				assert.Contains(t, line, "hello")
				assert.Contains(t, line, "INF")
				assert.False(t, json.Valid([]byte(line)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "logs", "tasky.log")

			l, closer, err := New("info", file, tt.format)
			require.NoError(t, err)

			l.Debug().Msg("dropped")
			l.Info().Msg("hello")
			closer()

			b, err := os.ReadFile(file)
			require.NoError(t, err)

			lines := strings.Split(strings.TrimSpace(string(b)), "\n")
			require.Len(t, lines, 1)
			tt.check(t, lines[0])
		})
	}
}
