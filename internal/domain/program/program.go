// Package program provides the immutable 10x10 game program and the
// round-to-slot mapping.
package program

import (
	"github.com/cockroachdb/errors"

	"github.com/clubhundred/club100/internal/domain/artist"
	"github.com/clubhundred/club100/internal/domain/track"
)

const (
	// Artists is the outer dimension of the program matrix.
	Artists = artist.Required
	// TracksPerArtist is the inner dimension (popularity rank 0..9).
	TracksPerArtist = 10
	// Rounds is the full program length.
	Rounds = Artists * TracksPerArtist
)

// ErrInvalidInput marks malformed builder input: wrong artist count or
// a track grid that is not exactly 10x10.
var ErrInvalidInput = errors.New("invalid program input")

// Program is the fixed artist-by-rank track matrix for one game
// session. Immutable after Build; rebuilt only by re-running selection.
type Program struct {
	artists []artist.Artist
	grid    [][]*track.Track
}

// Build validates and assembles the program matrix. The caller is
// responsible for padding artists with fewer than ten top tracks using
// nil slots; Build rejects any grid that is not exactly 10x10. Inputs
// are copied so later mutation cannot reach the program.
func Build(artists []artist.Artist, tracksByArtist [][]*track.Track) (*Program, error) {
	if len(artists) != Artists {
		return nil, errors.Wrapf(ErrInvalidInput, "expected %d artists, got %d", Artists, len(artists))
	}
	if len(tracksByArtist) != Artists {
		return nil, errors.Wrapf(ErrInvalidInput, "expected %d track rows, got %d", Artists, len(tracksByArtist))
	}

	grid := make([][]*track.Track, Artists)
	for i, row := range tracksByArtist {
		if len(row) != TracksPerArtist {
			return nil, errors.Wrapf(ErrInvalidInput, "artist %d: expected %d track slots, got %d", i, TracksPerArtist, len(row))
		}
		grid[i] = make([]*track.Track, TracksPerArtist)
		copy(grid[i], row)
	}

	as := make([]artist.Artist, Artists)
	copy(as, artists)

	return &Program{artists: as, grid: grid}, nil
}

// SlotFor maps a 1-indexed round to its (artistIndex, trackRank) pair.
// The mapping cycles artists fastest: round 1 -> (0,0), round 10 ->
// (9,0), round 11 -> (0,1), round 100 -> (9,9). It is a pure function
// of the round and identical in normal and test mode.
func SlotFor(round int) (artistIndex, trackRank int) {
	return (round - 1) % Artists, (round - 1) / Artists
}

// Artist returns the artist at the given index.
func (p *Program) Artist(i int) artist.Artist {
	return p.artists[i]
}

// Artists returns a copy of the program's artists in selection order.
func (p *Program) Artists() []artist.Artist {
	out := make([]artist.Artist, len(p.artists))
	copy(out, p.artists)
	return out
}

// TrackAt returns the track at (artistIndex, trackRank); nil means the
// slot is absent.
func (p *Program) TrackAt(artistIndex, trackRank int) *track.Track {
	return p.grid[artistIndex][trackRank]
}

// TrackForRound resolves the round's slot and returns its track, which
// may be nil for an absent slot.
func (p *Program) TrackForRound(round int) *track.Track {
	ai, rank := SlotFor(round)
	return p.grid[ai][rank]
}

// TrackCount returns the number of non-absent slots.
func (p *Program) TrackCount() int {
	n := 0
	for _, row := range p.grid {
		for _, t := range row {
			if t != nil {
				n++
			}
		}
	}
	return n
}
