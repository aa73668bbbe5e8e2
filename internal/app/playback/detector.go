package playback

import (
	"time"

	"github.com/osa030/solobox/internal/domain/track"
)

// DefaultEarlyMargin is how long before the estimated end the near-end signal fires.
const DefaultEarlyMargin = 10 * time.Second

// Signal is the outcome of a completion check.
type Signal int

const (
	SignalNone      Signal = iota // Nothing to report
	SignalNearEnd                 // Track is about to end; prepare the next one
	SignalCompleted               // Track finished; advance
)

// String returns the string representation of the signal.
func (s Signal) String() string {
	switch s {
	case SignalNone:
		return "none"
	case SignalNearEnd:
		return "near_end"
	case SignalCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Detector decides, at most once per play, that the current track has finished.
// Two sources feed it: Evaluate (elapsed-time heuristic) and Ended (a push
// "ended" event). Both share one latch, reset only by Arm.
// Detector is not safe for concurrent use; Session serializes access.
type Detector struct {
	defaultDuration time.Duration
	earlyMargin     time.Duration

	armed     bool
	playSeq   uint64 // Incremented by every Arm
	trackID   string
	startedAt time.Time
	duration  time.Duration

	nearEndSent bool
	handled     bool
}

// NewDetector creates a detector. Durations <= 0 fall back to track.DefaultDuration
// and DefaultEarlyMargin respectively.
func NewDetector(defaultDuration, earlyMargin time.Duration) *Detector {
	if defaultDuration <= 0 {
		defaultDuration = track.DefaultDuration
	}
	if earlyMargin <= 0 {
		earlyMargin = DefaultEarlyMargin
	}
	return &Detector{
		defaultDuration: defaultDuration,
		earlyMargin:     earlyMargin,
	}
}

// Arm starts watching a new play. startedAt should carry a monotonic reading
// (as returned by time.Now) so elapsed time is immune to wall clock changes.
func (d *Detector) Arm(trackID string, startedAt time.Time, duration time.Duration) {
	d.playSeq++
	d.armed = true
	d.trackID = trackID
	d.startedAt = startedAt
	d.duration = track.ClampDuration(duration, d.defaultDuration)
	d.nearEndSent = false
	d.handled = false
}

// Disarm stops watching. Any later signal is treated as stale.
func (d *Detector) Disarm() {
	d.armed = false
	d.trackID = ""
	d.startedAt = time.Time{}
	d.duration = 0
	d.nearEndSent = false
	d.handled = false
}

// Evaluate runs the heuristic against now.
// A now earlier than the start of the play comes from a tick captured before
// the play began and yields SignalNone.
func (d *Detector) Evaluate(now time.Time) Signal {
	if !d.armed || d.handled {
		return SignalNone
	}

	elapsed := now.Sub(d.startedAt)
	if elapsed < 0 {
		return SignalNone
	}

	if elapsed >= d.duration {
		d.handled = true
		return SignalCompleted
	}

	if !d.nearEndSent && d.earlyMargin < d.duration && elapsed >= d.duration-d.earlyMargin {
		d.nearEndSent = true
		return SignalNearEnd
	}

	return SignalNone
}

// Ended handles a push "ended" event for trackID.
// stale is true when trackID is not the armed track, or when playSeq is set
// and names an earlier play (the same id played again). A second completion
// for the armed play returns SignalNone with stale false.
func (d *Detector) Ended(trackID string, playSeq uint64) (sig Signal, stale bool) {
	if !d.armed || trackID != d.trackID {
		return SignalNone, true
	}
	if playSeq != 0 && playSeq != d.playSeq {
		return SignalNone, true
	}
	if d.handled {
		return SignalNone, false
	}
	d.handled = true
	return SignalCompleted, false
}

// Armed reports whether a play is being watched.
func (d *Detector) Armed() bool {
	return d.armed
}

// Handled reports whether completion was already reported for the armed play.
func (d *Detector) Handled() bool {
	return d.handled
}

// PlaySeq returns the sequence number of the latest Arm; 0 before the first play.
func (d *Detector) PlaySeq() uint64 {
	return d.playSeq
}

// TrackID returns the armed track id.
func (d *Detector) TrackID() string {
	return d.trackID
}

// StartedAt returns when the armed play started.
func (d *Detector) StartedAt() time.Time {
	return d.startedAt
}

// Duration returns the clamped duration of the armed play.
func (d *Detector) Duration() time.Duration {
	return d.duration
}

// EarlyMargin returns the configured near-end margin.
func (d *Detector) EarlyMargin() time.Duration {
	return d.earlyMargin
}

// Remaining returns the estimated time left at now, never negative.
func (d *Detector) Remaining(now time.Time) time.Duration {
	if !d.armed {
		return 0
	}
	elapsed := now.Sub(d.startedAt)
	if elapsed < 0 {
		return d.duration
	}
	remaining := d.duration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
