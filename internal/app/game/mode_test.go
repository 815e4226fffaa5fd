package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMode(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
		expected Mode
	}{
		{
			name:     "normal mode",
			settings: map[string]any{"rounds": 100, "interval_ms": 60000},
			expected: Mode{Rounds: 100, IntervalMs: 60000},
		},
		{
			name:     "test mode",
			settings: map[string]any{"rounds": 20, "interval_ms": 10000},
			expected: Mode{Rounds: 20, IntervalMs: 10000},
		},
		{
			name:     "empty settings use defaults",
			settings: map[string]any{},
			expected: Mode{Rounds: 100, IntervalMs: 60000},
		},
		{
			name:     "zero rounds rejected",
			settings: map[string]any{"rounds": 0, "interval_ms": 10000},
			wantErr:  true,
		},
		{
			name:     "explicit zero interval rejected",
			settings: map[string]any{"rounds": 20, "interval_ms": 0},
			wantErr:  true,
		},
		{
			name:     "partial settings keep defaults for the rest",
			settings: map[string]any{"rounds": 20},
			expected: Mode{Rounds: 20, IntervalMs: 60000},
		},
		{
			name:     "negative interval rejected",
			settings: map[string]any{"rounds": 20, "interval_ms": -1},
			wantErr:  true,
		},
		{
			name:     "rounds beyond program rejected",
			settings: map[string]any{"rounds": 101},
			wantErr:  true,
		},
		{
			name:     "non-numeric rounds rejected",
			settings: map[string]any{"rounds": "ten"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := DecodeMode(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}

func TestMode_SchedulerConfig(t *testing.T) {
	cfg := Mode{Rounds: 20, IntervalMs: 10000}.SchedulerConfig()
	assert.Equal(t, 20, cfg.Rounds)
	assert.Equal(t, 10*time.Second, cfg.Interval)
}
