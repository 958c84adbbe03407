package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Classification
	}{
		{
			name:    "bot check",
			message: "ERROR: [youtube] dQw4w9WgXcQ: Sign in to confirm you're not a bot",
			want:    ClassFatalAuth,
		},
		{
			name:    "age gate",
			message: "Sign in to view this video",
			want:    ClassFatalAuth,
		},
		{
			name:    "stale cookies",
			message: "ERROR: The provided cookies have expired",
			want:    ClassFatalAuth,
		},
		{
			name:    "private video",
			message: "ERROR: This video is private",
			want:    ClassFatalAuth,
		},
		{
			name:    "forbidden",
			message: "HTTP Error 403: Forbidden",
			want:    ClassFatalAuth,
		},
		{
			name:    "timeout",
			message: "ERROR: Unable to download webpage: The read operation timed out",
			want:    ClassTransient,
		},
		{
			name:    "connection reset",
			message: "Connection reset by peer",
			want:    ClassTransient,
		},
		{
			name:    "rate limited",
			message: "HTTP Error 429: Too Many Requests",
			want:    ClassTransient,
		},
		{
			name:    "server error",
			message: "HTTP Error 503: Service Unavailable",
			want:    ClassTransient,
		},
		{
			name:    "unsupported url",
			message: "ERROR: Unsupported URL: https://example.com/nothing",
			want:    ClassUnknown,
		},
		{
			name:    "empty message",
			message: "",
			want:    ClassUnknown,
		},
		{
			name:    "auth wins over transient",
			message: "HTTP Error 403: Forbidden after connection reset",
			want:    ClassFatalAuth,
		},
		{
			name:    "case insensitive",
			message: "SIGN IN TO CONFIRM your age",
			want:    ClassFatalAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.message))
		})
	}
}

func TestClassificationString(t *testing.T) {
	assert.Equal(t, "fatal_auth", ClassFatalAuth.String())
	assert.Equal(t, "transient", ClassTransient.String())
	assert.Equal(t, "unknown", ClassUnknown.String())
}
