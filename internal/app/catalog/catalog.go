// Package catalog selects and builds the track catalog.
package catalog

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/solobox/internal/domain/track"
	"github.com/osa030/solobox/internal/infra/config"
	"github.com/osa030/solobox/internal/infra/library"
	"github.com/osa030/solobox/internal/infra/spotify"
)

// Catalog supplies playable tracks.
type Catalog interface {
	// ListTracks returns all tracks in a stable order (sorted by display name).
	ListTracks(ctx context.Context) ([]track.Track, error)
	// EstimatedDuration returns the track length, or the default when unknown.
	EstimatedDuration(id string) time.Duration
	// ResolvePlayableHandle returns a locator the audio player can open.
	ResolvePlayableHandle(id string) (string, error)
	Lookup(id string) (track.Track, bool)
	Search(query string) []track.Track
	// Lyrics returns track.ErrNoLyrics when none are stored.
	Lyrics(id string) (string, error)
	Close() error
}

// Watcher is implemented by catalogs that can follow changes of their source.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// FileResolver is implemented by catalogs whose tracks are local files.
type FileResolver interface {
	FilePath(id string) (string, error)
}

var (
	_ Catalog      = (*library.Library)(nil)
	_ Watcher      = (*library.Library)(nil)
	_ FileResolver = (*library.Library)(nil)
	_ Catalog      = (*spotify.Catalog)(nil)
)

// NewFromConfig creates the catalog selected by cfg.Catalog.Type.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Catalog, error) {
	defaultDuration := cfg.Playback.DefaultDuration()

	zlog.Debug().Msgf("creating catalog: type=%s", cfg.Catalog.Type)
	switch cfg.Catalog.Type {
	case config.CatalogDirectory, "":
		d := cfg.Catalog.Directory
		lib, err := library.New(library.Config{
			Dir:             d.Path,
			Extensions:      d.Extensions,
			ReadDuration:    d.ReadDuration,
			HandleMode:      d.HandleMode,
			DefaultDuration: defaultDuration,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to open music directory")
		}
		zlog.Info().Msgf("catalog: directory dir=%s", lib.Dir())
		return lib, nil

	case config.CatalogSpotify:
		s := cfg.Catalog.Spotify
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RefreshToken: s.RefreshToken,
			Market:       s.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create spotify client")
		}
		cat, err := spotify.NewCatalog(ctx, client, s.PlaylistURL, defaultDuration)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load spotify playlist")
		}
		zlog.Info().Msgf("catalog: spotify playlist=%s market=%s", s.PlaylistURL, client.Market())
		return cat, nil

	default:
		return nil, errors.Newf("unsupported catalog type: %s", cfg.Catalog.Type)
	}
}
