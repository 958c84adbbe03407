package clipboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "single url",
			content: "https://example.com/watch?v=abc123",
			want:    []string{"https://example.com/watch?v=abc123"},
		},
		{
			name:    "multiple urls across lines",
			content: "https://example.com/v/1\nhttps://example.com/v/2\n",
			want:    []string{"https://example.com/v/1", "https://example.com/v/2"},
		},
		{
			name:    "urls mixed with prose",
			content: "check this out https://example.com/v/1 amazing stuff",
			want:    []string{"https://example.com/v/1"},
		},
		{
			name:    "plain http allowed",
			content: "http://example.com/v/1",
			want:    []string{"http://example.com/v/1"},
		},
		{
			name:    "no urls",
			content: "just some text without links",
			want:    nil,
		},
		{
			name:    "scheme without host rejected",
			content: "https://",
			want:    nil,
		},
		{
			name:    "empty clipboard",
			content: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.content))
		})
	}
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, []string{"xclip", "-selection", "clipboard"}, parseCommand("xclip -selection clipboard"))
	assert.Equal(t, []string{"sh", "-c", "wl-paste --no-newline"}, parseCommand(`sh -c "wl-paste --no-newline"`))
	assert.Empty(t, parseCommand(""))
}

func TestNewServiceDefaults(t *testing.T) {
	service := NewService("", nil)
	assert.NotNil(t, service)
	assert.NotNil(t, service.logger)
}
