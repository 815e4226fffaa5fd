package artist

import (
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, s *Selection, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := s.Add(Artist{ID: fmt.Sprintf("artist-%d", i), Name: fmt.Sprintf("Artist %d", i)})
		require.NoError(t, err)
	}
}

func TestSelection_Add(t *testing.T) {
	s := NewSelection()
	fill(t, s, Required)

	assert.Equal(t, Required, s.Len())

	// Eleventh artist is rejected.
	err := s.Add(Artist{ID: "artist-10"})
	assert.ErrorIs(t, err, ErrSelectionFull)

	// Duplicates are rejected.
	s2 := NewSelection()
	require.NoError(t, s2.Add(Artist{ID: "dup"}))
	err = s2.Add(Artist{ID: "dup"})
	assert.True(t, errors.Is(err, ErrAlreadySelected))
}

func TestSelection_Remove(t *testing.T) {
	s := NewSelection()
	fill(t, s, 3)

	require.NoError(t, s.Remove("artist-1"))
	assert.Equal(t, 2, s.Len())

	got := s.Artists()
	assert.Equal(t, "artist-0", got[0].ID)
	assert.Equal(t, "artist-2", got[1].ID)

	err := s.Remove("artist-1")
	assert.True(t, errors.Is(err, ErrNotSelected))
}

func TestSelection_Complete(t *testing.T) {
	s := NewSelection()
	fill(t, s, 9)

	_, err := s.Complete()
	assert.True(t, errors.Is(err, ErrIncomplete))

	require.NoError(t, s.Add(Artist{ID: "artist-9"}))
	artists, err := s.Complete()
	require.NoError(t, err)
	assert.Len(t, artists, Required)

	// Returned slice is a copy; mutating it must not affect the selection.
	artists[0].ID = "mutated"
	assert.Equal(t, "artist-0", s.Artists()[0].ID)
}
