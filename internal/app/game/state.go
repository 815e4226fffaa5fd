// Package game provides the round scheduler and drop-offset core of
// the Club 100 game.
package game

// Phase represents the scheduler lifecycle phase.
type Phase int

const (
	PhaseReady    Phase = iota // No clock running, round 1 pending
	PhaseRunning               // Clock active, rounds advancing
	PhasePaused                // Clock suspended, round preserved
	PhaseFinished              // Round overflow reached, clock stopped
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseRunning:
		return "running"
	case PhasePaused:
		return "paused"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}
