package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubhundred/club100/internal/domain/artist"
	"github.com/clubhundred/club100/internal/domain/program"
	"github.com/clubhundred/club100/internal/domain/track"
	"github.com/clubhundred/club100/internal/infra/config"
	"github.com/clubhundred/club100/internal/infra/spotify"
)

type fakeMusic struct {
	mu         sync.Mutex
	plays      []string
	topTracks  map[string][]track.Track
	artistErr  error
	resolveErr error
}

func (f *fakeMusic) Market() string { return "US" }

func (f *fakeMusic) SearchArtists(_ context.Context, query string, limit int) ([]artist.Artist, error) {
	return []artist.Artist{{ID: "found", Name: query}}, nil
}

func (f *fakeMusic) GetArtist(_ context.Context, artistID string) (*artist.Artist, error) {
	if f.artistErr != nil {
		return nil, f.artistErr
	}
	return &artist.Artist{ID: artistID, Name: "artist " + artistID}, nil
}

func (f *fakeMusic) ArtistTopTracks(_ context.Context, artistID string) ([]track.Track, error) {
	if f.topTracks != nil {
		return f.topTracks[artistID], nil
	}
	tracks := make([]track.Track, 10)
	for i := range tracks {
		tracks[i] = track.Track{
			URI:        fmt.Sprintf("spotify:track:%s-%d", artistID, i),
			Name:       fmt.Sprintf("track %d", i),
			ArtistName: "artist " + artistID,
			Duration:   4 * time.Minute,
			Popularity: 100 - i*10,
		}
	}
	return tracks, nil
}

func (f *fakeMusic) Devices(context.Context) ([]spotify.Device, error) {
	return []spotify.Device{{ID: "dev-1", Name: "Living Room", Active: true}}, nil
}

func (f *fakeMusic) ResolveDevice(_ context.Context, nameOrID string, _ int, _ time.Duration) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "dev-1", nil
}

func (f *fakeMusic) Play(_ context.Context, deviceID, trackURI string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays = append(f.plays, trackURI)
	return nil
}

func (f *fakeMusic) playCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.plays)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Game.DefaultMode = "normal"
	cfg.Game.Modes = map[string]map[string]any{
		"normal": {"rounds": 100, "interval_ms": 60000},
		"quick":  {"rounds": 3, "interval_ms": 50},
	}
	cfg.Playback.ResolveAttempts = 1
	cfg.Playback.ResolveDelayMs = 100
	return cfg
}

func selectTen(t *testing.T, m *Manager) {
	t.Helper()
	for i := 0; i < artist.Required; i++ {
		_, err := m.SelectArtist(context.Background(), fmt.Sprintf("a%d", i))
		require.NoError(t, err)
	}
}

func TestSelectArtist(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	a, err := m.SelectArtist(context.Background(), "a0")
	require.NoError(t, err)
	assert.Equal(t, "a0", a.ID)
	assert.Len(t, m.Artists(), 1)

	_, err = m.SelectArtist(context.Background(), "a0")
	assert.ErrorIs(t, err, artist.ErrAlreadySelected)
}

func TestSelectArtistLookupFailure(t *testing.T) {
	music := &fakeMusic{artistErr: errors.New("not found")}
	m := NewManager(testConfig(t), music)
	defer m.Close()

	_, err := m.SelectArtist(context.Background(), "bogus")
	assert.Error(t, err)
	assert.Empty(t, m.Artists())
}

func TestBuildProgramRequiresCompleteSelection(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	_, err := m.BuildProgram(context.Background())
	assert.ErrorIs(t, err, artist.ErrIncomplete)
}

func TestBuildProgram(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	selectTen(t, m)
	prog, err := m.BuildProgram(context.Background())
	require.NoError(t, err)
	assert.Equal(t, program.Rounds, prog.TrackCount())
	assert.True(t, m.Status().ProgramBuilt)
}

func TestBuildProgramPadsShortRows(t *testing.T) {
	music := &fakeMusic{topTracks: map[string][]track.Track{}}
	for i := 0; i < artist.Required; i++ {
		id := fmt.Sprintf("a%d", i)
		music.topTracks[id] = []track.Track{
			{URI: "spotify:track:" + id, Name: "only hit", Duration: 3 * time.Minute},
		}
	}
	m := NewManager(testConfig(t), music)
	defer m.Close()

	selectTen(t, m)
	prog, err := m.BuildProgram(context.Background())
	require.NoError(t, err)
	assert.Equal(t, artist.Required, prog.TrackCount())
	assert.Nil(t, prog.TrackAt(0, 1))
	assert.NotNil(t, prog.TrackAt(0, 0))
}

func TestBuildProgramSkipsUnplayableTracks(t *testing.T) {
	unplayable := false
	music := &fakeMusic{topTracks: map[string][]track.Track{}}
	for i := 0; i < artist.Required; i++ {
		id := fmt.Sprintf("a%d", i)
		music.topTracks[id] = []track.Track{
			{URI: "spotify:track:" + id + "-0", Duration: 3 * time.Minute},
			{URI: "spotify:track:" + id + "-1", Duration: 3 * time.Minute, IsPlayable: &unplayable},
		}
	}
	m := NewManager(testConfig(t), music)
	defer m.Close()

	selectTen(t, m)
	prog, err := m.BuildProgram(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, prog.TrackAt(0, 0))
	assert.Nil(t, prog.TrackAt(0, 1))
}

func TestStartGameRequiresProgram(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	err := m.StartGame(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrProgramNotBuilt)
}

func TestStartGameUnknownMode(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	err := m.StartGame(context.Background(), "nonsense", "")
	assert.Error(t, err)
}

func TestStartGameDeviceResolutionFailure(t *testing.T) {
	music := &fakeMusic{resolveErr: spotify.ErrDeviceNotFound}
	m := NewManager(testConfig(t), music)
	defer m.Close()

	selectTen(t, m)
	_, err := m.BuildProgram(context.Background())
	require.NoError(t, err)

	err = m.StartGame(context.Background(), "", "")
	assert.ErrorIs(t, err, spotify.ErrDeviceNotFound)
}

func TestGameLifecycle(t *testing.T) {
	music := &fakeMusic{}
	m := NewManager(testConfig(t), music)
	defer m.Close()

	selectTen(t, m)
	_, err := m.BuildProgram(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.StartGame(context.Background(), "quick", ""))

	st := m.Status()
	assert.Equal(t, "running", st.Phase)
	assert.Equal(t, "quick", st.Mode)
	assert.Equal(t, 3, st.Rounds)
	assert.Equal(t, "dev-1", st.DeviceID)
	require.NotNil(t, st.CurrentTrack)
	assert.Equal(t, 100, st.CurrentTrack.Popularity)

	// Selection is frozen while the game runs.
	_, err = m.SelectArtist(context.Background(), "late")
	assert.ErrorIs(t, err, ErrGameActive)
	assert.ErrorIs(t, m.RemoveArtist("a0"), ErrGameActive)

	require.Eventually(t, func() bool {
		return m.Status().Phase == "finished"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return music.playCount() == 3
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, m.ResetGame())
	st = m.Status()
	assert.Equal(t, "ready", st.Phase)
	assert.Empty(t, st.Mode)
	assert.True(t, st.ProgramBuilt)
}

func TestSelectionChangeInvalidatesProgram(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	selectTen(t, m)
	_, err := m.BuildProgram(context.Background())
	require.NoError(t, err)
	require.True(t, m.Status().ProgramBuilt)

	require.NoError(t, m.RemoveArtist("a0"))
	assert.False(t, m.Status().ProgramBuilt)
}

func TestSnapshotBeforeStart(t *testing.T) {
	m := NewManager(testConfig(t), &fakeMusic{})
	defer m.Close()

	n := m.Snapshot()
	assert.Equal(t, "ready", n.Phase)
	assert.Zero(t, n.Round)
	assert.Nil(t, n.Track)
}
