// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/clubhundred/club100/internal/domain/artist"
	"github.com/clubhundred/club100/internal/domain/track"
)

// ErrDeviceNotFound is returned when device resolution gives up.
var ErrDeviceNotFound = errors.New("playback device not found")

// Client is a Spotify API client. The underlying oauth2 transport
// refreshes the access token before expiry, so callers never handle
// credentials directly.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
}

// Device is a Spotify Connect playback device.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

// New creates a new Spotify client from a refresh token.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(
			spotifyauth.ScopeStreaming,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserModifyPlaybackState,
			spotifyauth.ScopeUserReadPlaybackState,
		),
	)

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	httpClient := auth.Client(ctx, token)
	client := spotify.New(httpClient)

	market := cfg.Market
	if market == "" {
		market = "US"
	}

	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Market returns the configured market.
func (c *Client) Market() string {
	return c.market
}

// SearchArtists searches artists by name.
func (c *Client) SearchArtists(ctx context.Context, query string, limit int) ([]artist.Artist, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}

	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeArtist, spotify.Limit(limit))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to search artists")
	}

	if result.Artists == nil {
		return []artist.Artist{}, nil
	}

	artists := make([]artist.Artist, 0, len(result.Artists.Artists))
	for _, a := range result.Artists.Artists {
		artists = append(artists, convertArtist(&a))
	}
	return artists, nil
}

// GetArtist retrieves an artist by ID, URL, or URI.
func (c *Client) GetArtist(ctx context.Context, artistID string) (*artist.Artist, error) {
	id := extractArtistID(artistID)

	var result *spotify.FullArtist
	err := c.retry(func() error {
		a, err := c.client.GetArtist(ctx, spotify.ID(id))
		if err != nil {
			return err
		}
		result = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get artist")
	}

	a := convertArtist(result)
	return &a, nil
}

// ArtistTopTracks retrieves an artist's top tracks in the configured
// market, at most ten. Track relinking applies, so is_playable is set
// on each result.
func (c *Client) ArtistTopTracks(ctx context.Context, artistID string) ([]track.Track, error) {
	id := extractArtistID(artistID)

	var result []spotify.FullTrack
	err := c.retry(func() error {
		ts, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(id), c.market)
		if err != nil {
			return err
		}
		result = ts
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get artist top tracks")
	}

	if len(result) > 10 {
		result = result[:10]
	}

	tracks := make([]track.Track, 0, len(result))
	for _, t := range result {
		tracks = append(tracks, convertTrack(&t))
	}
	return tracks, nil
}

// Devices lists the user's Spotify Connect devices.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	var result []spotify.PlayerDevice
	err := c.retry(func() error {
		ds, err := c.client.PlayerDevices(ctx)
		if err != nil {
			return err
		}
		result = ds
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list devices")
	}

	devices := make([]Device, 0, len(result))
	for _, d := range result {
		devices = append(devices, Device{
			ID:     string(d.ID),
			Name:   d.Name,
			Type:   d.Type,
			Active: d.Active,
		})
	}
	return devices, nil
}

// ResolveDevice resolves a device name or ID to a device ID, polling
// the device registry with a fixed delay. A freshly opened Web
// Playback SDK player takes a few seconds to appear, so a miss is
// retried up to attempts times.
func (c *Client) ResolveDevice(ctx context.Context, nameOrID string, attempts int, delay time.Duration) (string, error) {
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			zlog.Debug().Msgf("spotify: device %q not registered yet, retrying in %v (%d/%d)", nameOrID, delay, i+1, attempts)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		devices, err := c.Devices(ctx)
		if err != nil {
			return "", err
		}
		for _, d := range devices {
			// An empty name means "whatever device is active".
			if nameOrID == "" && d.Active {
				return d.ID, nil
			}
			if d.ID == nameOrID || d.Name == nameOrID {
				return d.ID, nil
			}
		}
	}

	if nameOrID == "" {
		return "", errors.Wrapf(ErrDeviceNotFound, "no active device after %d attempts", attempts)
	}
	return "", errors.Wrapf(ErrDeviceNotFound, "device %q after %d attempts", nameOrID, attempts)
}

// Play starts playback of a single track on the given device at the
// given position. Rate-limit and server errors are retried with
// backoff; the caller treats any remaining failure as non-fatal.
func (c *Client) Play(ctx context.Context, deviceID, trackURI string, position time.Duration) error {
	id := spotify.ID(deviceID)
	opts := &spotify.PlayOptions{
		DeviceID:   &id,
		URIs:       []spotify.URI{spotify.URI(trackURI)},
		PositionMs: spotify.Numeric(position.Milliseconds()),
	}

	err := c.retry(func() error {
		return c.client.PlayOpt(ctx, opts)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to start playback of %s", trackURI)
	}
	return nil
}

// convertArtist converts a Spotify FullArtist to the domain entity.
func convertArtist(a *spotify.FullArtist) artist.Artist {
	var image string
	if len(a.Images) > 0 {
		image = a.Images[0].URL
	}
	return artist.Artist{
		ID:       string(a.ID),
		Name:     a.Name,
		ImageURL: image,
	}
}

// convertTrack converts a Spotify FullTrack to the domain entity.
func convertTrack(t *spotify.FullTrack) track.Track {
	var artistName string
	if len(t.Artists) > 0 {
		artistName = t.Artists[0].Name
	}

	var albumArt string
	if len(t.Album.Images) > 0 {
		albumArt = t.Album.Images[0].URL
	}

	return track.Track{
		URI:         string(t.URI),
		Name:        t.Name,
		ArtistName:  artistName,
		AlbumArtURL: albumArt,
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		Popularity:  int(t.Popularity),
		IsPlayable:  t.IsPlayable,
	}
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var spErr spotify.Error
	if errors.As(err, &spErr) {
		return spErr.Status == 429 || spErr.Status >= 500
	}
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503")
}

// extractArtistID extracts the artist ID from a Spotify artist URL or URI.
func extractArtistID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:artist:") {
		return strings.TrimPrefix(input, "spotify:artist:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/artist/") {
		parts := strings.Split(input, "/artist/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			id = strings.TrimRight(id, "/")
			return id
		}
	}

	return input
}
