package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Playable(t *testing.T) {
	trueVal := true
	falseVal := false

	tests := []struct {
		name     string
		track    *Track
		expected bool
	}{
		{
			name:     "nil track is never playable",
			track:    nil,
			expected: false,
		},
		{
			name:     "is_playable unset means playable",
			track:    &Track{URI: "spotify:track:a"},
			expected: true,
		},
		{
			name:     "is_playable true",
			track:    &Track{URI: "spotify:track:b", IsPlayable: &trueVal},
			expected: true,
		},
		{
			name:     "is_playable false",
			track:    &Track{URI: "spotify:track:c", IsPlayable: &falseVal},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.track.Playable())
		})
	}
}
