// Package track provides the Track domain entity.
package track

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrNotFound = errors.New("track not found")
	ErrNoLyrics = errors.New("no lyrics available")
)

// DefaultDuration is assumed when a track's real length is unknown.
const DefaultDuration = 180 * time.Second

// Track represents a playable entry of the catalog.
// Tracks are immutable once created; the session only refers to them by ID.
type Track struct {
	ID          string        // Stable handle (file name, Spotify ID)
	DisplayName string        // Human readable name
	Duration    time.Duration // Estimated duration, never <= 0
	Handle      string        // Locator the host audio primitive can open

	// DurationUnknown marks Duration as a fallback, not the track's length.
	DurationUnknown bool
}

// New creates a track, clamping an unknown duration to DefaultDuration.
func New(id, displayName string, duration time.Duration) Track {
	if displayName == "" {
		displayName = id
	}
	return Track{
		ID:              id,
		DisplayName:     displayName,
		Duration:        ClampDuration(duration, DefaultDuration),
		DurationUnknown: duration <= 0,
	}
}

// WithFallbackDuration returns a copy whose unknown duration is replaced
// with fallback. Known durations are kept.
func (t Track) WithFallbackDuration(fallback time.Duration) Track {
	if t.DurationUnknown {
		t.Duration = ClampDuration(0, fallback)
	}
	return t
}

// WithHandle returns a copy of the track carrying the given handle.
func (t Track) WithHandle(handle string) Track {
	t.Handle = handle
	return t
}

// ClampDuration returns d, or fallback when d is zero or negative.
// A non-positive fallback is replaced with DefaultDuration.
func ClampDuration(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultDuration
}
