// Package playback provides the playback session: queue, history, completion
// detection and the autoplay state machine.
package playback

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // Nothing playing (initial, stopped, or nothing left to play)
	StateLoading              // A track is being started
	StatePlaying              // Track is playing
	StateEnded                // Track completed and no follow-up was started
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// IsActive returns true while a track is loading or playing.
func (s State) IsActive() bool {
	return s == StateLoading || s == StatePlaying
}
