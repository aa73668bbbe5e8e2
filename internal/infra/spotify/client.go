// Package spotify provides a track catalog backed by a Spotify playlist.
package spotify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/solobox/internal/domain/playlist"
	"github.com/osa030/solobox/internal/domain/track"
)

// Scopes are the OAuth scopes the catalog needs.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
}

// Client is a Spotify API client.
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

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// Create token from refresh token
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	// Get HTTP client with auto-refresh capability
	httpClient := auth.Client(ctx, token)

	market := cfg.Market
	if market == "" {
		market = "JP"
	}

	return &Client{
		client:     spotify.New(httpClient),
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Market returns the market used for availability checks.
func (c *Client) Market() string {
	return c.market
}

// GetPlaylist retrieves a playlist's name and all of its tracks.
// The returned set holds the IDs that are not playable in the client's market.
func (c *Client) GetPlaylist(ctx context.Context, playlistURL string) (playlist.Playlist, map[string]bool, error) {
	playlistID := extractPlaylistID(playlistURL)
	if playlistID == "" {
		return playlist.Playlist{}, nil, errors.New("invalid playlist URL")
	}

	var full *spotify.FullPlaylist
	err := c.retry(func() error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields("name"))
		if err != nil {
			return err
		}
		full = p
		return nil
	})
	if err != nil {
		return playlist.Playlist{}, nil, errors.Wrap(err, "failed to get playlist")
	}

	pl := playlist.Playlist{ID: playlistID, Name: full.Name}
	unplayable := make(map[string]bool)
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.retry(func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return playlist.Playlist{}, nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			// Only process tracks (exclude episodes)
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			t, playable := c.convertTrack(item.Track.Track)
			pl.Tracks = append(pl.Tracks, t)
			if !playable {
				unplayable[t.ID] = true
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return pl, unplayable, nil
}

// convertTrack converts a Spotify FullTrack to a domain Track and reports
// whether it is playable in the client's market.
func (c *Client) convertTrack(t *spotify.FullTrack) (track.Track, bool) {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	name := t.Name
	if len(artists) > 0 {
		name = strings.Join(artists, ", ") + " - " + t.Name
	}

	// Relinked requests (Market set) report playability directly.
	playable := t.IsPlayable == nil || *t.IsPlayable

	id := string(t.ID)
	tr := track.New(id, name, time.Duration(t.Duration)*time.Millisecond)
	return tr.WithHandle(GetTrackURL(id)), playable
}

// GetTrackURL returns the Spotify URL for a track.
func GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
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
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	return extractID(input, "playlist")
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	return extractID(input, "track")
}

// extractID accepts "spotify:<kind>:ID", an open.spotify.com URL (optionally
// with an intl-XX segment and query string), or a bare ID.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	if uriPrefix := "spotify:" + kind + ":"; strings.HasPrefix(input, uriPrefix) {
		return strings.TrimPrefix(input, uriPrefix)
	}

	segment := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, segment) {
		parts := strings.Split(input, segment)
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}
