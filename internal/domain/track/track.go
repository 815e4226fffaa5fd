// Package track provides the Track domain entity.
package track

import "time"

// Track represents a playable Spotify track in the game program.
// A nil *Track is the absent-slot sentinel: an artist with fewer than
// ten top tracks has its remaining slots padded with nil.
type Track struct {
	URI         string        // Spotify URI (spotify:track:...)
	Name        string        // Track name
	ArtistName  string        // Owning artist's display name
	AlbumArtURL string        // Album art URL (optional)
	Duration    time.Duration // Track duration
	Popularity  int           // Popularity score (0-100)
	IsPlayable  *bool         // Playable in the requested market (nil if unknown)
}

// Playable reports whether the track can be played in the market the
// API was queried with. Spotify sets is_playable only when a market
// parameter was supplied (Track Relinking); absence of the flag means
// the restriction was never evaluated, which we treat as playable.
func (t *Track) Playable() bool {
	if t == nil {
		return false
	}
	if t.IsPlayable != nil {
		return *t.IsPlayable
	}
	return true
}
