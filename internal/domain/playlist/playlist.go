// Package playlist provides the Playlist domain entity.
package playlist

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/osa030/solobox/internal/domain/track"
)

// Playlist is an ordered listing of catalog tracks.
type Playlist struct {
	ID     string        // Source identifier (directory path, Spotify playlist ID)
	Name   string        // Playlist name
	Tracks []track.Track // Tracks in listing order
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	return lo.Map(p.Tracks, func(t track.Track, _ int) string {
		return t.ID
	})
}

// TotalDuration returns the summed estimated duration of all tracks.
func (p *Playlist) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range p.Tracks {
		total += t.Duration
	}
	return total
}

// Find returns the track with the given ID.
func (p *Playlist) Find(id string) (track.Track, bool) {
	return lo.Find(p.Tracks, func(t track.Track) bool {
		return t.ID == id
	})
}

// Search returns the tracks whose display name or ID contains query,
// ignoring case. An empty query matches every track.
func (p *Playlist) Search(query string) []track.Track {
	q := strings.ToLower(strings.TrimSpace(query))
	return lo.Filter(p.Tracks, func(t track.Track, _ int) bool {
		return strings.Contains(strings.ToLower(t.DisplayName), q) ||
			strings.Contains(strings.ToLower(t.ID), q)
	})
}

// SortByDisplayName orders tracks case-insensitively by display name,
// using the ID to break ties so the order is stable across rescans.
func (p *Playlist) SortByDisplayName() {
	sort.SliceStable(p.Tracks, func(i, j int) bool {
		a := strings.ToLower(p.Tracks[i].DisplayName)
		b := strings.ToLower(p.Tracks[j].DisplayName)
		if a != b {
			return a < b
		}
		return p.Tracks[i].ID < p.Tracks[j].ID
	})
}
