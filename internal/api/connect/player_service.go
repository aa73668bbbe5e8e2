package connect

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	jukeboxv1 "github.com/osa030/solobox/internal/api/jukeboxv1"
	"github.com/osa030/solobox/internal/app/playback"
	"github.com/osa030/solobox/internal/app/session"
	"github.com/osa030/solobox/internal/domain/track"
	"github.com/osa030/solobox/internal/infra/config"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
	config  *config.Config
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager, cfg *config.Config) *PlayerService {
	return &PlayerService{
		session: session,
		config:  cfg,
	}
}

// Ensure PlayerService implements the interface.
var _ jukeboxv1.PlayerServiceHandler = (*PlayerService)(nil)

// Enqueue appends a track to the queue after the filter chain accepted it.
func (s *PlayerService) Enqueue(
	ctx context.Context,
	req *connect.Request[jukeboxv1.EnqueueRequest],
) (*connect.Response[jukeboxv1.EnqueueResponse], error) {
	added, code := s.session.Enqueue(ctx, req.Msg.TrackID)

	var message string
	if added {
		message = s.config.GetMessage("success")
	} else {
		message = s.config.GetMessage(code)
	}
	return connect.NewResponse(&jukeboxv1.EnqueueResponse{
		Added:   added,
		Code:    code,
		Message: message,
	}), nil
}

// DequeueAt removes a queue entry.
func (s *PlayerService) DequeueAt(
	ctx context.Context,
	req *connect.Request[jukeboxv1.DequeueAtRequest],
) (*connect.Response[jukeboxv1.DequeueAtResponse], error) {
	id, err := s.session.DequeueAt(int(req.Msg.Index))
	if err != nil {
		return nil, s.toConnectError(err, "")
	}
	return connect.NewResponse(&jukeboxv1.DequeueAtResponse{TrackID: id}), nil
}

// ClearQueue empties the queue.
func (s *PlayerService) ClearQueue(
	ctx context.Context,
	req *connect.Request[jukeboxv1.ClearQueueRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	s.session.ClearQueue()
	return s.statusResponse(), nil
}

// PlayTrack plays a track immediately.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[jukeboxv1.PlayTrackRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	if err := s.session.PlayTrack(req.Msg.TrackID); err != nil {
		return nil, s.toConnectError(err, req.Msg.TrackID)
	}
	return s.statusResponse(), nil
}

// PlayFromQueue plays a queue entry.
func (s *PlayerService) PlayFromQueue(
	ctx context.Context,
	req *connect.Request[jukeboxv1.PlayFromQueueRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	if err := s.session.PlayFromQueue(int(req.Msg.Index), req.Msg.Remove); err != nil {
		return nil, s.toConnectError(err, "")
	}
	return s.statusResponse(), nil
}

// Next skips to the head of the queue.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[jukeboxv1.NextRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	if err := s.session.Next(); err != nil {
		return nil, s.toConnectError(err, "")
	}
	return s.statusResponse(), nil
}

// Stop stops playback.
func (s *PlayerService) Stop(
	ctx context.Context,
	req *connect.Request[jukeboxv1.StopRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	s.session.Stop()
	return s.statusResponse(), nil
}

// SetAutoplay sets the autoplay flag.
func (s *PlayerService) SetAutoplay(
	ctx context.Context,
	req *connect.Request[jukeboxv1.SetAutoplayRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	s.session.SetAutoplay(req.Msg.Enabled)
	return s.statusResponse(), nil
}

// SetReplay sets the replay flag.
func (s *PlayerService) SetReplay(
	ctx context.Context,
	req *connect.Request[jukeboxv1.SetReplayRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	s.session.SetReplay(req.Msg.Enabled)
	return s.statusResponse(), nil
}

// Previous steps back through the play history.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[jukeboxv1.PreviousRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	if err := s.session.Previous(); err != nil {
		return nil, s.toConnectError(err, "")
	}
	return s.statusResponse(), nil
}

// ReportEnded forwards an "ended" event of the audio player.
func (s *PlayerService) ReportEnded(
	ctx context.Context,
	req *connect.Request[jukeboxv1.ReportEndedRequest],
) (*connect.Response[jukeboxv1.ReportEndedResponse], error) {
	accepted := s.session.ReportEnded(req.Msg.TrackID, req.Msg.PlaySeq)
	return connect.NewResponse(&jukeboxv1.ReportEndedResponse{Accepted: accepted}), nil
}

// GetStatus returns the current player status.
func (s *PlayerService) GetStatus(
	ctx context.Context,
	req *connect.Request[jukeboxv1.GetStatusRequest],
) (*connect.Response[jukeboxv1.StatusResponse], error) {
	return s.statusResponse(), nil
}

// ListTracks lists or searches the catalog.
func (s *PlayerService) ListTracks(
	ctx context.Context,
	req *connect.Request[jukeboxv1.ListTracksRequest],
) (*connect.Response[jukeboxv1.ListTracksResponse], error) {
	tracks, err := s.session.Tracks(ctx, req.Msg.Query)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&jukeboxv1.ListTracksResponse{
		Tracks: lo.Map(tracks, func(t track.Track, _ int) *jukeboxv1.TrackInfo {
			return toTrackInfo(t)
		}),
	}), nil
}

// GetLyrics returns the lyrics of a track. Missing lyrics are not an error.
func (s *PlayerService) GetLyrics(
	ctx context.Context,
	req *connect.Request[jukeboxv1.GetLyricsRequest],
) (*connect.Response[jukeboxv1.GetLyricsResponse], error) {
	lyrics, err := s.session.Lyrics(req.Msg.TrackID)
	switch {
	case errors.Is(err, track.ErrNoLyrics):
		return connect.NewResponse(&jukeboxv1.GetLyricsResponse{
			Found:   false,
			Message: s.config.GetMessage("no_lyrics"),
		}), nil
	case err != nil:
		return nil, s.toConnectError(err, req.Msg.TrackID)
	}
	return connect.NewResponse(&jukeboxv1.GetLyricsResponse{Found: true, Lyrics: lyrics}), nil
}

// toConnectError maps session errors to Connect codes. trackID names the
// requested track in unavailable errors.
func (s *PlayerService) toConnectError(err error, trackID string) error {
	switch {
	case errors.Is(err, playback.ErrIndexOutOfRange):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, playback.ErrQueueEmpty), errors.Is(err, playback.ErrNoPrevious):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, playback.ErrTrackUnavailable):
		name := trackID
		if t, ok := s.session.Lookup(trackID); ok {
			name = t.DisplayName
		}
		zlog.Warn().Msgf("api: track unavailable track=%s err=%v", trackID, err)
		return connect.NewError(connect.CodeNotFound,
			errors.Newf("%s (%s)", s.config.GetMessage("track_unavailable"), name))
	case errors.Is(err, track.ErrNotFound):
		return connect.NewError(connect.CodeNotFound,
			errors.Newf("%s (%s)", s.config.GetMessage("track_not_found"), trackID))
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func (s *PlayerService) statusResponse() *connect.Response[jukeboxv1.StatusResponse] {
	return connect.NewResponse(&jukeboxv1.StatusResponse{Status: s.buildStatus()})
}

func (s *PlayerService) buildStatus() *jukeboxv1.PlayerStatus {
	st := s.session.GetStatus()
	snap := st.Playback

	status := &jukeboxv1.PlayerStatus{
		SessionID:         st.SessionID,
		State:             snap.State.String(),
		ElapsedMs:         st.Elapsed.Milliseconds(),
		RemainingMs:       st.Remaining.Milliseconds(),
		Autoplay:          snap.Autoplay,
		Replay:            snap.Replay,
		Queue:             s.trackInfos(snap.Queue),
		History:           s.trackInfos(snap.History),
		EmptyQueueWarned:  snap.EmptyQueueWarned,
		StaleDiscards:     int32(snap.StaleDiscards),
		DuplicateDiscards: int32(snap.DuplicateDiscards),
		Subscribers:       int32(st.Subscribers),
		ServerStartedAt:   formatTime(st.StartedAt),
	}
	if snap.TrackID != "" {
		status.Current = s.trackInfo(snap.TrackID)
		status.PlaySeq = snap.PlaySeq
		status.Current.DurationMs = snap.Duration.Milliseconds()
		status.StartedAt = formatTime(snap.StartedAt)
	}
	return status
}

func (s *PlayerService) trackInfos(ids []string) []*jukeboxv1.TrackInfo {
	return lo.Map(ids, func(id string, _ int) *jukeboxv1.TrackInfo {
		return s.trackInfo(id)
	})
}

// trackInfo describes id; ids that left the catalog keep their id as name.
func (s *PlayerService) trackInfo(id string) *jukeboxv1.TrackInfo {
	if t, ok := s.session.Lookup(id); ok {
		return toTrackInfo(t)
	}
	return &jukeboxv1.TrackInfo{TrackID: id, DisplayName: id}
}

func toTrackInfo(t track.Track) *jukeboxv1.TrackInfo {
	return &jukeboxv1.TrackInfo{
		TrackID:     t.ID,
		DisplayName: t.DisplayName,
		DurationMs:  t.Duration.Milliseconds(),
		Handle:      t.Handle,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

