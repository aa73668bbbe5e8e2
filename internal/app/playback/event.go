package playback

import "time"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted       EventType = iota // Track started; host should render Handle
	EventTrackEnded                          // Completion accepted for the current track
	EventNearEnd                             // Current track is about to end (prefetch hint)
	EventPlaybackEnded                       // Completion with autoplay off, nothing follows
	EventAutoplayQueueEmpty                  // Autoplay on but nothing to play
	EventTrackUnavailable                    // Handle could not be resolved
	EventModeChanged                         // Autoplay or replay toggled
	EventQueueChanged                        // Queue contents changed
	EventStopped                             // Playback stopped by command
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventNearEnd:
		return "near_end"
	case EventPlaybackEnded:
		return "playback_ended"
	case EventAutoplayQueueEmpty:
		return "autoplay_queue_empty"
	case EventTrackUnavailable:
		return "track_unavailable"
	case EventModeChanged:
		return "mode_changed"
	case EventQueueChanged:
		return "queue_changed"
	case EventStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	TrackID  string        // Track the event refers to (empty for some events)
	PlaySeq  uint64        // Play the event belongs to; echo it back with the ended report
	Handle   string        // Playable handle, set for EventTrackStarted
	Duration time.Duration // Estimated duration, set for EventTrackStarted
	State    State         // Session state after the event
	Autoplay bool
	Replay   bool
	Queue    []string // Queue snapshot after the event
	Err      error    // ErrTrackUnavailable / ErrEmptyQueueAutoplay
}
