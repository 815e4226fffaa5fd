// Package artist provides the Artist domain entity and the game's
// artist selection.
package artist

import "github.com/cockroachdb/errors"

// Required is the number of artists a program is built from.
const Required = 10

var (
	ErrSelectionFull   = errors.New("selection already has 10 artists")
	ErrAlreadySelected = errors.New("artist already selected")
	ErrNotSelected     = errors.New("artist not in selection")
	ErrIncomplete      = errors.New("selection requires exactly 10 artists")
)

// Artist represents a Spotify artist chosen for the game.
// Immutable once selected.
type Artist struct {
	ID       string // Spotify Artist ID
	Name     string // Display name
	ImageURL string // Artist image URL (optional)
}

// Selection holds the ordered set of chosen artists. Insertion order
// is the artist index used by the program's round mapping.
type Selection struct {
	artists []Artist
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{artists: make([]Artist, 0, Required)}
}

// Add appends an artist. Fails when the selection is full or the
// artist is already present.
func (s *Selection) Add(a Artist) error {
	if len(s.artists) >= Required {
		return ErrSelectionFull
	}
	for _, existing := range s.artists {
		if existing.ID == a.ID {
			return errors.Wrapf(ErrAlreadySelected, "artist %s (%s)", a.Name, a.ID)
		}
	}
	s.artists = append(s.artists, a)
	return nil
}

// Remove deletes an artist by ID, preserving the order of the rest.
func (s *Selection) Remove(id string) error {
	for i, a := range s.artists {
		if a.ID == id {
			s.artists = append(s.artists[:i], s.artists[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrNotSelected, "artist %s", id)
}

// Artists returns a copy of the selection in insertion order.
func (s *Selection) Artists() []Artist {
	out := make([]Artist, len(s.artists))
	copy(out, s.artists)
	return out
}

// Len returns the number of selected artists.
func (s *Selection) Len() int {
	return len(s.artists)
}

// Complete returns the selection when it holds exactly the required
// number of artists, ErrIncomplete otherwise.
func (s *Selection) Complete() ([]Artist, error) {
	if len(s.artists) != Required {
		return nil, errors.Wrapf(ErrIncomplete, "have %d", len(s.artists))
	}
	return s.Artists(), nil
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.artists = s.artists[:0]
}
