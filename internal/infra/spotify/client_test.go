package spotify

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestExtractArtistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:artist:4tZwfgrHOc3mvqYlEYSvVi",
			expected: "4tZwfgrHOc3mvqYlEYSvVi",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/artist/4tZwfgrHOc3mvqYlEYSvVi",
			expected: "4tZwfgrHOc3mvqYlEYSvVi",
		},
		{
			name:     "URL with query params",
			input:    "https://open.spotify.com/artist/4tZwfgrHOc3mvqYlEYSvVi?si=abc",
			expected: "4tZwfgrHOc3mvqYlEYSvVi",
		},
		{
			name:     "intl URL",
			input:    "https://open.spotify.com/intl-de/artist/abc123/",
			expected: "abc123",
		},
		{
			name:     "plain ID",
			input:    "4tZwfgrHOc3mvqYlEYSvVi",
			expected: "4tZwfgrHOc3mvqYlEYSvVi",
		},
		{
			name:     "surrounding whitespace",
			input:    "  spotify:artist:xyz  ",
			expected: "xyz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractArtistID(tt.input))
		})
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected FailureKind
	}{
		{"nil error", nil, FailureUnknown},
		{"plain error", errors.New("boom"), FailureUnknown},
		{"device resolution failure", errors.Wrap(ErrDeviceNotFound, "device \"kitchen\""), FailureDeviceNotFound},
		{"404", spotify.Error{Status: 404, Message: "Device not found"}, FailureDeviceNotFound},
		{"403", spotify.Error{Status: 403, Message: "Player command failed: Premium required"}, FailurePremiumRequired},
		{"429", spotify.Error{Status: 429, Message: "API rate limit exceeded"}, FailureRateLimited},
		{"401", spotify.Error{Status: 401, Message: "The access token expired"}, FailureAuthRequired},
		{"500", spotify.Error{Status: 500, Message: "Server error"}, FailureUnknown},
		{"wrapped spotify error", errors.Wrap(spotify.Error{Status: 404}, "failed to start playback"), FailureDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyFailure(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"rate limited", spotify.Error{Status: 429}, true},
		{"server error", spotify.Error{Status: 503}, true},
		{"not found", spotify.Error{Status: 404}, false},
		{"forbidden", spotify.Error{Status: 403}, false},
		{"plain rate limit text", errors.New("rate limit exceeded"), true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}
