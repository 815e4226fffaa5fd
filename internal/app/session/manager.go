// Package session owns the lifecycle of one party session: artist
// selection, program assembly, and the running game.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/clubhundred/club100/internal/app/game"
	"github.com/clubhundred/club100/internal/app/notification"
	"github.com/clubhundred/club100/internal/domain/artist"
	"github.com/clubhundred/club100/internal/domain/program"
	"github.com/clubhundred/club100/internal/domain/track"
	"github.com/clubhundred/club100/internal/infra/config"
	"github.com/clubhundred/club100/internal/infra/spotify"
)

var (
	// ErrGameActive is returned when an operation requires an idle game.
	ErrGameActive = errors.New("game is active")
	// ErrProgramNotBuilt is returned when starting without a program.
	ErrProgramNotBuilt = errors.New("program has not been built")
)

// MusicService is the subset of the Spotify client the session needs.
type MusicService interface {
	Market() string
	SearchArtists(ctx context.Context, query string, limit int) ([]artist.Artist, error)
	GetArtist(ctx context.Context, artistID string) (*artist.Artist, error)
	ArtistTopTracks(ctx context.Context, artistID string) ([]track.Track, error)
	Devices(ctx context.Context) ([]spotify.Device, error)
	ResolveDevice(ctx context.Context, nameOrID string, attempts int, delay time.Duration) (string, error)
	Play(ctx context.Context, deviceID, trackURI string, position time.Duration) error
}

// Status is a point-in-time snapshot of the session.
type Status struct {
	Phase          string                  `json:"phase"`
	Mode           string                  `json:"mode,omitempty"`
	Round          int                     `json:"round"`
	Rounds         int                     `json:"rounds"`
	RemainingMs    int64                   `json:"remaining_ms"`
	DeviceID       string                  `json:"device_id,omitempty"`
	SelectedCount  int                     `json:"selected_count"`
	ProgramBuilt   bool                    `json:"program_built"`
	CurrentTrack   *notification.TrackInfo `json:"current_track,omitempty"`
	SubscriberInfo int                     `json:"subscribers"`
}

// Manager coordinates selection, program assembly and the scheduler.
type Manager struct {
	mu        sync.Mutex
	cfg       *config.Config
	music     MusicService
	selection *artist.Selection
	program   *program.Program
	scheduler *game.Scheduler
	notifier  *notification.Notifier

	modeName string
	deviceID string

	forwardDone chan struct{}
}

// NewManager wires a session manager and starts its event forwarder.
func NewManager(cfg *config.Config, music MusicService) *Manager {
	m := &Manager{
		cfg:         cfg,
		music:       music,
		selection:   artist.NewSelection(),
		scheduler:   game.NewScheduler(),
		notifier:    notification.NewNotifier(),
		forwardDone: make(chan struct{}),
	}
	go m.forwardEvents()
	return m
}

// Notifier exposes the broadcaster for stream subscriptions.
func (m *Manager) Notifier() *notification.Notifier {
	return m.notifier
}

// Market returns the market the Spotify client queries with.
func (m *Manager) Market() string {
	return m.music.Market()
}

// SearchArtists searches Spotify for artists matching the query.
func (m *Manager) SearchArtists(ctx context.Context, query string, limit int) ([]artist.Artist, error) {
	return m.music.SearchArtists(ctx, query, limit)
}

// SelectArtist validates the artist against Spotify and adds it to the
// selection. Selection changes invalidate any built program.
func (m *Manager) SelectArtist(ctx context.Context, artistID string) (*artist.Artist, error) {
	a, err := m.music.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scheduler.Phase() != game.PhaseReady {
		return nil, ErrGameActive
	}
	if err := m.selection.Add(*a); err != nil {
		return nil, err
	}
	m.program = nil
	return a, nil
}

// RemoveArtist drops an artist from the selection.
func (m *Manager) RemoveArtist(artistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scheduler.Phase() != game.PhaseReady {
		return ErrGameActive
	}
	if err := m.selection.Remove(artistID); err != nil {
		return err
	}
	m.program = nil
	return nil
}

// Artists returns the current selection in insertion order.
func (m *Manager) Artists() []artist.Artist {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selection.Artists()
}

// BuildProgram fetches top tracks for every selected artist and
// assembles the round program. The selection must be complete.
func (m *Manager) BuildProgram(ctx context.Context) (*program.Program, error) {
	m.mu.Lock()
	if m.scheduler.Phase() != game.PhaseReady {
		m.mu.Unlock()
		return nil, ErrGameActive
	}
	selected, err := m.selection.Complete()
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}

	grid := make([][]*track.Track, len(selected))
	for i, a := range selected {
		tracks, err := m.music.ArtistTopTracks(ctx, a.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching top tracks for %s", a.Name)
		}
		grid[i] = buildRow(tracks)
	}

	prog, err := program.Build(selected, grid)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.program = prog
	m.mu.Unlock()

	zlog.Info().
		Int("artists", len(selected)).
		Int("tracks", prog.TrackCount()).
		Msg("program built")
	return prog, nil
}

// buildRow pads or truncates an artist's top tracks to a fixed-size
// rank row. Unplayable tracks become absent slots.
func buildRow(tracks []track.Track) []*track.Track {
	row := make([]*track.Track, program.TracksPerArtist)
	for i := 0; i < len(tracks) && i < program.TracksPerArtist; i++ {
		t := tracks[i]
		if t.Playable() {
			row[i] = &t
		}
	}
	return row
}

// Program returns the built program, or nil.
func (m *Manager) Program() *program.Program {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.program
}

// Devices lists the user's available playback devices.
func (m *Manager) Devices(ctx context.Context) ([]spotify.Device, error) {
	return m.music.Devices(ctx)
}

// StartGame resolves the mode and playback device, then starts the
// round scheduler. An empty modeName selects the configured default;
// an empty deviceName falls back to the configured device.
func (m *Manager) StartGame(ctx context.Context, modeName, deviceName string) error {
	mode, err := m.cfg.Mode(modeName)
	if err != nil {
		return err
	}
	if deviceName == "" {
		deviceName = m.cfg.Playback.Device
	}

	deviceID, err := m.music.ResolveDevice(ctx, deviceName,
		m.cfg.Playback.ResolveAttempts,
		time.Duration(m.cfg.Playback.ResolveDelayMs)*time.Millisecond)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.program == nil {
		return ErrProgramNotBuilt
	}
	if err := m.scheduler.Start(mode.SchedulerConfig(), m.program, m.music, deviceID); err != nil {
		return err
	}

	if modeName == "" {
		modeName = m.cfg.Game.DefaultMode
	}
	m.modeName = modeName
	m.deviceID = deviceID

	zlog.Info().
		Str("mode", modeName).
		Int("rounds", mode.Rounds).
		Int("interval_ms", mode.IntervalMs).
		Str("device_id", deviceID).
		Msg("game started")
	return nil
}

// Pause suspends round advancement.
func (m *Manager) Pause() error {
	return m.scheduler.Pause()
}

// Resume restarts round advancement at the paused round.
func (m *Manager) Resume() error {
	return m.scheduler.Resume()
}

// ResetGame stops the game and clears its progress. The selection and
// program survive so the same lineup can be replayed.
func (m *Manager) ResetGame() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.scheduler.Reset(); err != nil {
		return err
	}
	m.modeName = ""
	m.deviceID = ""
	return nil
}

// Status reports the current session state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		Phase:          m.scheduler.Phase().String(),
		Mode:           m.modeName,
		Round:          m.scheduler.CurrentRound(),
		Rounds:         m.scheduler.Current().Rounds,
		RemainingMs:    m.scheduler.Remaining().Milliseconds(),
		DeviceID:       m.deviceID,
		SelectedCount:  m.selection.Len(),
		ProgramBuilt:   m.program != nil,
		SubscriberInfo: m.notifier.SubscriberCount(),
	}
	if st.Round > 0 && m.program != nil {
		if t := m.program.TrackForRound(st.Round); t != nil {
			st.CurrentTrack = trackInfo(t, game.StartOffset(t.Duration))
		}
	}
	return st
}

// Snapshot builds the initial-state notification a new stream
// subscriber receives before live broadcasts.
func (m *Manager) Snapshot() *notification.Notification {
	st := m.Status()
	n := &notification.Notification{
		Type:       notification.TypeInitialState,
		SequenceNo: m.notifier.NextSequenceNo(),
		Phase:      st.Phase,
		Round:      st.Round,
		Rounds:     st.Rounds,
		Track:      st.CurrentTrack,
	}
	if st.Round > 0 {
		n.ArtistIndex, n.TrackRank = program.SlotFor(st.Round)
	}
	return n
}

// Close shuts down the scheduler, forwarder and broadcaster.
func (m *Manager) Close() {
	m.scheduler.Close()
	<-m.forwardDone
	m.notifier.Close()
}

// forwardEvents translates scheduler events into notifications and
// structured logs. Runs until the scheduler's event channel closes.
func (m *Manager) forwardEvents() {
	defer close(m.forwardDone)
	for e := range m.scheduler.Events() {
		switch e.Type {
		case game.EventRoundAdvanced:
			n := &notification.Notification{
				Type:   notification.TypeRoundAdvanced,
				Phase:  e.Phase.String(),
				Round:  e.Round,
				Rounds: m.scheduler.Current().Rounds,
			}
			n.ArtistIndex, n.TrackRank = program.SlotFor(e.Round)
			if e.Directive != nil {
				n.Track = trackInfo(e.Directive.Track, e.Directive.StartOffset)
				zlog.Info().
					Int("round", e.Round).
					Str("track", e.Directive.Track.Name).
					Str("artist", e.Directive.Track.ArtistName).
					Dur("offset", e.Directive.StartOffset).
					Msg("round advanced")
			} else {
				zlog.Info().Int("round", e.Round).Msg("round advanced, slot absent")
			}
			m.notifier.Broadcast(n)

		case game.EventPhaseChanged:
			zlog.Info().Str("phase", e.Phase.String()).Int("round", e.Round).Msg("phase changed")
			m.notifier.Broadcast(&notification.Notification{
				Type:  notification.TypePhaseChanged,
				Phase: e.Phase.String(),
				Round: e.Round,
			})

		case game.EventFinished:
			zlog.Info().Int("round", e.Round).Msg("game finished")
			m.notifier.Broadcast(&notification.Notification{
				Type:  notification.TypeFinished,
				Phase: e.Phase.String(),
				Round: e.Round,
			})

		case game.EventPlaybackFailed:
			kind := spotify.ClassifyFailure(e.Err)
			zlog.Warn().
				Err(e.Err).
				Int("round", e.Round).
				Str("kind", kind.String()).
				Msg("playback failed")
			m.notifier.Broadcast(&notification.Notification{
				Type:  notification.TypePlaybackError,
				Phase: e.Phase.String(),
				Round: e.Round,
				Error: kind.String(),
			})
		}
	}
}

func trackInfo(t *track.Track, offset time.Duration) *notification.TrackInfo {
	return &notification.TrackInfo{
		URI:         t.URI,
		Name:        t.Name,
		ArtistName:  t.ArtistName,
		AlbumArtURL: t.AlbumArtURL,
		DurationMs:  t.Duration.Milliseconds(),
		OffsetMs:    offset.Milliseconds(),
		Popularity:  t.Popularity,
	}
}
