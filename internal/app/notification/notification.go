package notification

// Notification is the JSON payload pushed to subscribers.
type Notification struct {
	SequenceNo uint64   `json:"sequence_no"`
	Type       string   `json:"type"`
	TrackID    string   `json:"track_id,omitempty"`
	PlaySeq    uint64   `json:"play_seq,omitempty"`
	Handle     string   `json:"handle,omitempty"`
	DurationMs int64    `json:"duration_ms,omitempty"`
	State      string   `json:"state"`
	Queue      []string `json:"queue"`
	History    []string `json:"history"`
	Autoplay   bool     `json:"autoplay"`
	Replay     bool     `json:"replay"`
	Message    string   `json:"message,omitempty"`
}
