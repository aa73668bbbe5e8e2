// Package jukeboxv1 defines the jukebox.v1 PlayerService messages and the
// Connect handler and client for them. Messages travel as JSON.
package jukeboxv1

// TrackInfo describes a catalog track.
type TrackInfo struct {
	TrackID     string `json:"track_id"`
	DisplayName string `json:"display_name"`
	DurationMs  int64  `json:"duration_ms"`
	Handle      string `json:"handle,omitempty"`
}

// PlayerStatus is a snapshot of the player.
type PlayerStatus struct {
	SessionID         string       `json:"session_id"`
	State             string       `json:"state"`
	Current           *TrackInfo   `json:"current,omitempty"`
	PlaySeq           uint64       `json:"play_seq,omitempty"`
	StartedAt         string       `json:"started_at,omitempty"` // RFC3339, when the current track started
	ElapsedMs         int64        `json:"elapsed_ms"`
	RemainingMs       int64        `json:"remaining_ms"`
	Autoplay          bool         `json:"autoplay"`
	Replay            bool         `json:"replay"`
	Queue             []*TrackInfo `json:"queue"`
	History           []*TrackInfo `json:"history"`
	EmptyQueueWarned  bool         `json:"empty_queue_warned"`
	StaleDiscards     int32        `json:"stale_discards"`
	DuplicateDiscards int32        `json:"duplicate_discards"`
	Subscribers       int32        `json:"subscribers"`
	ServerStartedAt   string       `json:"server_started_at,omitempty"`
}

// StatusResponse is returned by commands that change the player.
type StatusResponse struct {
	Status *PlayerStatus `json:"status"`
}

type EnqueueRequest struct {
	TrackID string `json:"track_id"`
}

type EnqueueResponse struct {
	Added   bool   `json:"added"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type DequeueAtRequest struct {
	Index int32 `json:"index"`
}

type DequeueAtResponse struct {
	TrackID string `json:"track_id"`
}

type ClearQueueRequest struct{}

type PlayTrackRequest struct {
	TrackID string `json:"track_id"`
}

// PlayFromQueueRequest plays the entry at Index. Remove overrides the replay
// policy for this one play when set.
type PlayFromQueueRequest struct {
	Index  int32 `json:"index"`
	Remove *bool `json:"remove,omitempty"`
}

type NextRequest struct{}

type PreviousRequest struct{}

type StopRequest struct{}

type SetAutoplayRequest struct {
	Enabled bool `json:"enabled"`
}

type SetReplayRequest struct {
	Enabled bool `json:"enabled"`
}

// ReportEndedRequest reports that the audio player finished TrackID.
// PlaySeq echoes the play_seq of the track_started notification; 0 matches
// the current play by id only.
type ReportEndedRequest struct {
	TrackID string `json:"track_id"`
	PlaySeq uint64 `json:"play_seq,omitempty"`
}

type ReportEndedResponse struct {
	Accepted bool `json:"accepted"`
}

type GetStatusRequest struct{}

type ListTracksRequest struct {
	Query string `json:"query,omitempty"`
}

type ListTracksResponse struct {
	Tracks []*TrackInfo `json:"tracks"`
}

type GetLyricsRequest struct {
	TrackID string `json:"track_id"`
}

type GetLyricsResponse struct {
	Found   bool   `json:"found"`
	Lyrics  string `json:"lyrics,omitempty"`
	Message string `json:"message,omitempty"`
}
