package spotify

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/solobox/internal/domain/playlist"
	"github.com/osa030/solobox/internal/domain/track"
)

type fakeSource struct {
	playlist   playlist.Playlist
	unplayable map[string]bool
	err        error
	calls      int
}

func (f *fakeSource) GetPlaylist(_ context.Context, _ string) (playlist.Playlist, map[string]bool, error) {
	f.calls++
	if f.err != nil {
		return playlist.Playlist{}, nil, f.err
	}
	return f.playlist, f.unplayable, nil
}

func newFakeSource() *fakeSource {
	tracks := []track.Track{
		track.New("id-b", "Zeta - Blessed", 4*time.Minute).WithHandle(GetTrackURL("id-b")),
		track.New("id-a", "Alpha - Amazing", 3*time.Minute).WithHandle(GetTrackURL("id-a")),
		track.New("id-c", "Mid - Blocked", time.Minute).WithHandle(GetTrackURL("id-c")),
	}
	return &fakeSource{
		playlist:   playlist.Playlist{ID: "pl", Name: "Sunday", Tracks: tracks},
		unplayable: map[string]bool{"id-c": true},
	}
}

func TestNewCatalog_LoadError(t *testing.T) {
	_, err := NewCatalog(context.Background(), &fakeSource{err: errors.New("boom")}, "spotify:playlist:pl", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestCatalog_ListTracks(t *testing.T) {
	c, err := NewCatalog(context.Background(), newFakeSource(), "spotify:playlist:pl", 0)
	require.NoError(t, err)

	tracks, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, "id-a", tracks[0].ID)
	assert.Equal(t, "id-c", tracks[1].ID)
	assert.Equal(t, "id-b", tracks[2].ID)
}

func TestCatalog_ResolvePlayableHandle(t *testing.T) {
	c, err := NewCatalog(context.Background(), newFakeSource(), "spotify:playlist:pl", 0)
	require.NoError(t, err)

	tests := []struct {
		name       string
		id         string
		wantHandle string
		wantErr    error
	}{
		{name: "Plain ID", id: "id-a", wantHandle: "https://open.spotify.com/track/id-a"},
		{name: "URI", id: "spotify:track:id-b", wantHandle: "https://open.spotify.com/track/id-b"},
		{name: "Unplayable", id: "id-c", wantErr: ErrNotPlayable},
		{name: "Unknown", id: "id-z", wantErr: track.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handle, err := c.ResolvePlayableHandle(tt.id)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHandle, handle)
		})
	}
}

func TestCatalog_Durations(t *testing.T) {
	c, err := NewCatalog(context.Background(), newFakeSource(), "spotify:playlist:pl", 2*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Minute, c.EstimatedDuration("id-b"))
	assert.Equal(t, 2*time.Minute, c.EstimatedDuration("missing"))
}

func TestCatalog_SearchAndLyrics(t *testing.T) {
	c, err := NewCatalog(context.Background(), newFakeSource(), "spotify:playlist:pl", 0)
	require.NoError(t, err)

	found := c.Search("amaz")
	require.Len(t, found, 1)
	assert.Equal(t, "id-a", found[0].ID)

	_, err = c.Lyrics("id-a")
	assert.True(t, errors.Is(err, track.ErrNoLyrics))
	_, err = c.Lyrics("missing")
	assert.True(t, errors.Is(err, track.ErrNotFound))
}

func TestCatalog_Reload(t *testing.T) {
	source := newFakeSource()
	c, err := NewCatalog(context.Background(), source, "spotify:playlist:pl", 0)
	require.NoError(t, err)

	source.playlist.Tracks = source.playlist.Tracks[:1]
	source.unplayable = map[string]bool{}
	require.NoError(t, c.Reload(context.Background()))

	tracks, err := c.ListTracks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tracks, 1)
	assert.Equal(t, 2, source.calls)
}
