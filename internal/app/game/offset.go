package game

import "time"

// Start-offset heuristics, in milliseconds. The track should start
// near its drop (~60% in) while leaving at least 45s of audio; the
// 10s clamp is a hard floor on what remains. The two thresholds are
// not interchangeable: durations between them behave differently.
const (
	minTailMs     = 45000 // primary heuristic: leave at least 45s playing
	hardMinTailMs = 10000 // safety clamp: never leave less than 10s
)

// StartOffset computes the playback start position for a track of the
// given duration. Pure and total: any non-negative duration yields an
// offset in [0, duration]; short tracks degenerate to 0 and play from
// the start rather than being skipped. Millisecond integer math keeps
// the result deterministic.
func StartOffset(duration time.Duration) time.Duration {
	ms := duration.Milliseconds()
	if ms <= 0 {
		return 0
	}

	raw := min(ms*6/10, ms-minTailMs)
	offset := max(0, min(raw, ms-hardMinTailMs))

	return time.Duration(offset) * time.Millisecond
}
