package spotify

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/solobox/internal/domain/playlist"
	"github.com/osa030/solobox/internal/domain/track"
)

// ErrNotPlayable is returned for tracks that cannot be played in the market.
var ErrNotPlayable = errors.New("track is not playable in the configured market")

// PlaylistSource loads a playlist. *Client implements it.
type PlaylistSource interface {
	GetPlaylist(ctx context.Context, playlistURL string) (playlist.Playlist, map[string]bool, error)
}

// Catalog serves the tracks of one Spotify playlist. Handles are
// open.spotify.com track URLs.
type Catalog struct {
	source          PlaylistSource
	playlistURL     string
	defaultDuration time.Duration

	mu         sync.RWMutex
	tracks     playlist.Playlist
	unplayable map[string]bool
}

// NewCatalog creates a catalog and loads the playlist.
func NewCatalog(ctx context.Context, source PlaylistSource, playlistURL string, defaultDuration time.Duration) (*Catalog, error) {
	c := &Catalog{
		source:          source,
		playlistURL:     playlistURL,
		defaultDuration: track.ClampDuration(defaultDuration, track.DefaultDuration),
		unplayable:      make(map[string]bool),
	}
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload fetches the playlist again.
func (c *Catalog) Reload(ctx context.Context) error {
	pl, unplayable, err := c.source.GetPlaylist(ctx, c.playlistURL)
	if err != nil {
		return errors.Wrapf(err, "failed to load playlist %s", c.playlistURL)
	}
	pl.SortByDisplayName()

	c.mu.Lock()
	c.tracks = pl
	c.unplayable = unplayable
	c.mu.Unlock()

	zlog.Info().Msgf("spotify: loaded playlist name=%q tracks=%d unplayable=%d", pl.Name, len(pl.Tracks), len(unplayable))
	return nil
}

// ListTracks returns the playlist tracks sorted by display name.
func (c *Catalog) ListTracks(_ context.Context) ([]track.Track, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]track.Track, len(c.tracks.Tracks))
	copy(result, c.tracks.Tracks)
	return result, nil
}

// Lookup returns a track by ID, URL or URI.
func (c *Catalog) Lookup(id string) (track.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracks.Find(extractTrackID(id))
}

// Search returns tracks whose name or ID contains query.
func (c *Catalog) Search(query string) []track.Track {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tracks.Search(query)
}

// EstimatedDuration returns the duration reported by Spotify.
func (c *Catalog) EstimatedDuration(id string) time.Duration {
	if t, ok := c.Lookup(id); ok {
		return t.Duration
	}
	return c.defaultDuration
}

// ResolvePlayableHandle returns the track URL.
func (c *Catalog) ResolvePlayableHandle(id string) (string, error) {
	t, ok := c.Lookup(id)
	if !ok {
		return "", errors.Wrapf(track.ErrNotFound, "track %q", id)
	}

	c.mu.RLock()
	blocked := c.unplayable[t.ID]
	c.mu.RUnlock()
	if blocked {
		return "", errors.Wrapf(ErrNotPlayable, "track %q", t.ID)
	}
	return t.Handle, nil
}

// Lyrics is not supported by this catalog.
func (c *Catalog) Lyrics(id string) (string, error) {
	if _, ok := c.Lookup(id); !ok {
		return "", errors.Wrapf(track.ErrNotFound, "track %q", id)
	}
	return "", track.ErrNoLyrics
}

// Close is a no-op.
func (c *Catalog) Close() error {
	return nil
}
