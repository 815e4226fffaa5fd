package game

import (
	"context"
	"time"

	"github.com/clubhundred/club100/internal/domain/track"
)

// PlaybackSink issues the actual playback side effect for a round's
// directive. Implementations talk to the Spotify player; the scheduler
// never waits on them, so call latency cannot perturb round timing.
type PlaybackSink interface {
	Play(ctx context.Context, deviceID, trackURI string, position time.Duration) error
}

// Directive is the playback instruction emitted for one round.
type Directive struct {
	ArtistIndex int
	TrackRank   int
	Track       *track.Track
	StartOffset time.Duration
}

// EventType represents a scheduler event type.
type EventType int

const (
	EventRoundAdvanced  EventType = iota // A new round began (directive may be nil)
	EventPhaseChanged                    // Pause/resume/reset
	EventFinished                        // Round overflow, scheduler stopped
	EventPlaybackFailed                  // The round's playback call failed (non-fatal)
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventRoundAdvanced:
		return "round_advanced"
	case EventPhaseChanged:
		return "phase_changed"
	case EventFinished:
		return "finished"
	case EventPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Event represents a scheduler event. For EventRoundAdvanced the
// Directive is nil when the round's slot is absent (the round still
// counts, just without audio). Err is set for EventPlaybackFailed.
type Event struct {
	Type      EventType
	Round     int
	Phase     Phase
	Directive *Directive
	Err       error
}
