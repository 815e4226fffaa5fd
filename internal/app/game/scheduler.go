package game

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/clubhundred/club100/internal/domain/program"
)

// Errors
var (
	ErrInvalidConfig  = errors.New("invalid scheduler config")
	ErrAlreadyStarted = errors.New("scheduler already started")
	ErrNotRunning     = errors.New("scheduler is not running")
	ErrNotPaused      = errors.New("scheduler is not paused")
)

// Config holds the round clock parameters. Normal mode pairs 100
// rounds with a 60s interval, test mode 20 rounds with 10s, but the
// scheduler treats the two as independent.
type Config struct {
	Rounds   int
	Interval time.Duration
}

const (
	// maxWakeDelay bounds the sleep until the next wake-up so progress
	// stays responsive even when the next round boundary is far away.
	maxWakeDelay = time.Second
	// wallCheckTick is the wall-clock poll granularity of a pending
	// wake-up.
	wallCheckTick = 10 * time.Millisecond
)

// Scheduler drives round advancement over wall-clock time. Rounds are
// derived from a fixed epoch instant rather than accumulated per-tick
// deltas, so the clock cannot drift over a full 100-minute session.
// One logical timeline: commands and wake-ups are serialized on the
// same mutex, and a generation counter keeps a wake-up scheduled
// before a pause or reset from ever emitting after it.
type Scheduler struct {
	mu sync.Mutex

	phase    Phase
	config   Config
	program  *program.Program
	sink     PlaybackSink
	deviceID string

	epoch       time.Time // wall-clock zero point of the running clock
	round       int       // current round, 1-based
	lastEmitted int       // last round a RoundAdvanced was emitted for
	generation  uint64    // invalidates in-flight wake-ups and sink reports

	wakeCancel func()

	eventCh chan Event
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler in the Ready phase.
func NewScheduler() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		phase:   PhaseReady,
		round:   1,
		eventCh: make(chan Event, 32),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (s *Scheduler) Events() <-chan Event {
	return s.eventCh
}

// Start enters Running, immediately emits round 1's directive, and
// begins advancing. Fails with ErrInvalidConfig on non-positive rounds
// or interval and with ErrAlreadyStarted unless the phase is Ready.
func (s *Scheduler) Start(cfg Config, prog *program.Program, sink PlaybackSink, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseReady {
		return errors.Wrapf(ErrAlreadyStarted, "phase %s", s.phase)
	}
	if cfg.Rounds <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "rounds must be positive, got %d", cfg.Rounds)
	}
	if cfg.Rounds > program.Rounds {
		return errors.Wrapf(ErrInvalidConfig, "rounds must not exceed the %d-slot program, got %d", program.Rounds, cfg.Rounds)
	}
	if cfg.Interval <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "interval must be positive, got %v", cfg.Interval)
	}
	if prog == nil {
		return errors.Wrap(ErrInvalidConfig, "program is required")
	}
	if sink == nil {
		return errors.Wrap(ErrInvalidConfig, "playback sink is required")
	}

	s.config = cfg
	s.program = prog
	s.sink = sink
	s.deviceID = deviceID

	s.generation++
	s.epoch = wallNow()
	s.round = 1
	s.lastEmitted = 0
	s.phase = PhaseRunning

	zlog.Info().Msgf("game: starting: rounds=%d interval=%v device=%s", cfg.Rounds, cfg.Interval, deviceID)

	s.advanceLocked()
	return nil
}

// Pause suspends the clock. The current round is preserved; no
// directive is emitted while paused.
func (s *Scheduler) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseRunning {
		return errors.Wrapf(ErrNotRunning, "phase %s", s.phase)
	}

	s.cancelWakeLocked()
	s.generation++
	s.phase = PhasePaused

	zlog.Debug().Msgf("game: paused at round %d", s.round)
	s.sendEventLocked(Event{Type: EventPhaseChanged, Round: s.round, Phase: s.phase})
	return nil
}

// Resume re-enters Running. The epoch is recomputed as
// now - (round-1)*interval so the elapsed round history is preserved
// and the session does not lose time spent paused. The current round's
// directive is not re-fired.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePaused {
		return errors.Wrapf(ErrNotPaused, "phase %s", s.phase)
	}

	s.generation++
	s.phase = PhaseRunning
	s.epoch = wallNow().Add(-time.Duration(s.round-1) * s.config.Interval)

	zlog.Debug().Msgf("game: resumed at round %d", s.round)
	s.sendEventLocked(Event{Type: EventPhaseChanged, Round: s.round, Phase: s.phase})

	s.advanceLocked()
	return nil
}

// Reset cancels any pending wake-up and discards all run state,
// returning to Ready. A wake-up already in flight is invalidated by
// the generation bump and cannot emit afterward. Reset of a Ready
// scheduler is a no-op.
func (s *Scheduler) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseReady {
		return nil
	}

	s.cancelWakeLocked()
	s.generation++
	s.phase = PhaseReady
	s.round = 1
	s.lastEmitted = 0
	s.config = Config{}
	s.program = nil
	s.sink = nil
	s.deviceID = ""

	zlog.Debug().Msg("game: reset")
	s.sendEventLocked(Event{Type: EventPhaseChanged, Round: s.round, Phase: s.phase})
	return nil
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentRound returns the current round (1-based).
func (s *Scheduler) CurrentRound() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.round
}

// Current returns the active configuration (zero value when Ready).
func (s *Scheduler) Current() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Remaining returns the time until the next round boundary. It is the
// full interval when paused (the within-round position is re-anchored
// on resume) and zero when not started or finished.
func (s *Scheduler) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.phase {
	case PhaseRunning:
		elapsed := wallNow().Sub(s.epoch)
		rem := time.Duration(s.round)*s.config.Interval - elapsed
		if rem < 0 {
			return 0
		}
		return rem
	case PhasePaused:
		return s.config.Interval
	default:
		return 0
	}
}

// Close releases the scheduler and its event channel.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.cancelWakeLocked()
	s.generation++
	s.cancel()
	s.closed = true
	close(s.eventCh)
}

// wake is the timer callback. A stale generation means a pause or
// reset happened after this wake-up was scheduled; it must not act.
func (s *Scheduler) wake(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation || s.phase != PhaseRunning {
		return
	}
	s.advanceLocked()
}

// advanceLocked recomputes the round from the epoch, emits when the
// round changed, and schedules the next wake-up. Rounds skipped over
// by a late wake-up are dropped silently; only the latest fires.
// Must be called with the lock held, in Running phase.
func (s *Scheduler) advanceLocked() {
	now := wallNow()
	elapsed := now.Sub(s.epoch)
	round := int(elapsed/s.config.Interval) + 1

	if round > s.config.Rounds {
		s.cancelWakeLocked()
		s.phase = PhaseFinished
		zlog.Info().Msgf("game: finished after %d rounds", s.config.Rounds)
		s.sendEventLocked(Event{Type: EventFinished, Round: s.round, Phase: s.phase})
		return
	}

	if round != s.lastEmitted {
		if round > s.lastEmitted+1 && s.lastEmitted > 0 {
			zlog.Warn().Msgf("game: wake-up late, dropping rounds %d..%d", s.lastEmitted+1, round-1)
		}
		s.round = round
		s.lastEmitted = round
		s.emitLocked(round)
	}

	s.scheduleWakeLocked(time.Duration(round)*s.config.Interval - elapsed)
}

// emitLocked resolves the round's slot and emits its RoundAdvanced
// event. When the slot holds a track the playback call is issued
// fire-and-forget; an absent slot advances the round without audio.
func (s *Scheduler) emitLocked(round int) {
	ai, rank := program.SlotFor(round)
	t := s.program.TrackAt(ai, rank)

	var directive *Directive
	if t != nil {
		directive = &Directive{
			ArtistIndex: ai,
			TrackRank:   rank,
			Track:       t,
			StartOffset: StartOffset(t.Duration),
		}

		gen := s.generation
		sink, deviceID := s.sink, s.deviceID
		uri, offset := t.URI, directive.StartOffset
		go func() {
			if err := sink.Play(s.ctx, deviceID, uri, offset); err != nil {
				s.reportPlaybackFailure(gen, round, err)
			}
		}()

		zlog.Debug().Msgf("game: round %d -> artist=%d rank=%d track=%s offset=%v",
			round, ai, rank, t.Name, offset)
	} else {
		zlog.Debug().Msgf("game: round %d -> artist=%d rank=%d absent slot, skipping playback", round, ai, rank)
	}

	s.sendEventLocked(Event{
		Type:      EventRoundAdvanced,
		Round:     round,
		Phase:     s.phase,
		Directive: directive,
	})
}

// reportPlaybackFailure surfaces a failed playback call as a non-fatal
// event. The next round proceeds regardless; the failed round is not
// retried. Failures from before a pause or reset are dropped.
func (s *Scheduler) reportPlaybackFailure(gen uint64, round int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return
	}

	zlog.Warn().Err(err).Msgf("game: playback failed for round %d", round)
	s.sendEventLocked(Event{Type: EventPlaybackFailed, Round: round, Phase: s.phase, Err: err})
}

// scheduleWakeLocked arranges the next wake-up after delay, bounded to
// wake at least once per second. Any previously pending wake-up is
// cancelled first; exactly one is pending while Running.
func (s *Scheduler) scheduleWakeLocked(delay time.Duration) {
	s.cancelWakeLocked()

	if delay > maxWakeDelay {
		delay = maxWakeDelay
	}
	if delay < 0 {
		delay = 0
	}

	gen := s.generation
	ctx, cancel := context.WithCancel(s.ctx)
	s.wakeCancel = cancel

	// Poll the wall clock instead of trusting a single timer: the
	// monotonic clock can run slower than real time across suspends,
	// and round boundaries are defined in wall time.
	deadline := wallNow().Add(delay)
	go func() {
		defer cancel()
		ticker := time.NewTicker(wallCheckTick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !wallNow().Before(deadline) {
					s.wake(gen)
					return
				}
			}
		}
	}()
}

// cancelWakeLocked cancels the pending wake-up, if any.
func (s *Scheduler) cancelWakeLocked() {
	if s.wakeCancel != nil {
		s.wakeCancel()
		s.wakeCancel = nil
	}
}

// sendEventLocked sends an event without blocking. Must be called with
// the lock held.
func (s *Scheduler) sendEventLocked(e Event) {
	if s.closed {
		return
	}
	select {
	case s.eventCh <- e:
	default:
		// Channel full; drop rather than stall the clock.
	}
}

// wallNow returns the current time with the monotonic reading
// stripped, so differences are computed in wall-clock time.
func wallNow() time.Time {
	t := time.Now()
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
