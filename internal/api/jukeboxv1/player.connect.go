package jukeboxv1

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// PlayerServiceName is the fully-qualified name of the PlayerService service.
const PlayerServiceName = "jukebox.v1.PlayerService"

// Procedure paths of PlayerService.
const (
	PlayerServiceEnqueueProcedure       = "/" + PlayerServiceName + "/Enqueue"
	PlayerServiceDequeueAtProcedure     = "/" + PlayerServiceName + "/DequeueAt"
	PlayerServiceClearQueueProcedure    = "/" + PlayerServiceName + "/ClearQueue"
	PlayerServicePlayTrackProcedure     = "/" + PlayerServiceName + "/PlayTrack"
	PlayerServicePlayFromQueueProcedure = "/" + PlayerServiceName + "/PlayFromQueue"
	PlayerServiceNextProcedure          = "/" + PlayerServiceName + "/Next"
	PlayerServicePreviousProcedure      = "/" + PlayerServiceName + "/Previous"
	PlayerServiceStopProcedure          = "/" + PlayerServiceName + "/Stop"
	PlayerServiceSetAutoplayProcedure   = "/" + PlayerServiceName + "/SetAutoplay"
	PlayerServiceSetReplayProcedure     = "/" + PlayerServiceName + "/SetReplay"
	PlayerServiceReportEndedProcedure   = "/" + PlayerServiceName + "/ReportEnded"
	PlayerServiceGetStatusProcedure     = "/" + PlayerServiceName + "/GetStatus"
	PlayerServiceListTracksProcedure    = "/" + PlayerServiceName + "/ListTracks"
	PlayerServiceGetLyricsProcedure     = "/" + PlayerServiceName + "/GetLyrics"
)

// PlayerServiceHandler is implemented by the server.
type PlayerServiceHandler interface {
	Enqueue(context.Context, *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error)
	DequeueAt(context.Context, *connect.Request[DequeueAtRequest]) (*connect.Response[DequeueAtResponse], error)
	ClearQueue(context.Context, *connect.Request[ClearQueueRequest]) (*connect.Response[StatusResponse], error)
	PlayTrack(context.Context, *connect.Request[PlayTrackRequest]) (*connect.Response[StatusResponse], error)
	PlayFromQueue(context.Context, *connect.Request[PlayFromQueueRequest]) (*connect.Response[StatusResponse], error)
	Next(context.Context, *connect.Request[NextRequest]) (*connect.Response[StatusResponse], error)
	Previous(context.Context, *connect.Request[PreviousRequest]) (*connect.Response[StatusResponse], error)
	Stop(context.Context, *connect.Request[StopRequest]) (*connect.Response[StatusResponse], error)
	SetAutoplay(context.Context, *connect.Request[SetAutoplayRequest]) (*connect.Response[StatusResponse], error)
	SetReplay(context.Context, *connect.Request[SetReplayRequest]) (*connect.Response[StatusResponse], error)
	ReportEnded(context.Context, *connect.Request[ReportEndedRequest]) (*connect.Response[ReportEndedResponse], error)
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[StatusResponse], error)
	ListTracks(context.Context, *connect.Request[ListTracksRequest]) (*connect.Response[ListTracksResponse], error)
	GetLyrics(context.Context, *connect.Request[GetLyricsRequest]) (*connect.Response[GetLyricsResponse], error)
}

// NewPlayerServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	handlers := map[string]http.Handler{
		PlayerServiceEnqueueProcedure:       connect.NewUnaryHandler(PlayerServiceEnqueueProcedure, svc.Enqueue, opts...),
		PlayerServiceDequeueAtProcedure:     connect.NewUnaryHandler(PlayerServiceDequeueAtProcedure, svc.DequeueAt, opts...),
		PlayerServiceClearQueueProcedure:    connect.NewUnaryHandler(PlayerServiceClearQueueProcedure, svc.ClearQueue, opts...),
		PlayerServicePlayTrackProcedure:     connect.NewUnaryHandler(PlayerServicePlayTrackProcedure, svc.PlayTrack, opts...),
		PlayerServicePlayFromQueueProcedure: connect.NewUnaryHandler(PlayerServicePlayFromQueueProcedure, svc.PlayFromQueue, opts...),
		PlayerServiceNextProcedure:          connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...),
		PlayerServicePreviousProcedure:      connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...),
		PlayerServiceStopProcedure:          connect.NewUnaryHandler(PlayerServiceStopProcedure, svc.Stop, opts...),
		PlayerServiceSetAutoplayProcedure:   connect.NewUnaryHandler(PlayerServiceSetAutoplayProcedure, svc.SetAutoplay, opts...),
		PlayerServiceSetReplayProcedure:     connect.NewUnaryHandler(PlayerServiceSetReplayProcedure, svc.SetReplay, opts...),
		PlayerServiceReportEndedProcedure:   connect.NewUnaryHandler(PlayerServiceReportEndedProcedure, svc.ReportEnded, opts...),
		PlayerServiceGetStatusProcedure:     connect.NewUnaryHandler(PlayerServiceGetStatusProcedure, svc.GetStatus, opts...),
		PlayerServiceListTracksProcedure:    connect.NewUnaryHandler(PlayerServiceListTracksProcedure, svc.ListTracks, opts...),
		PlayerServiceGetLyricsProcedure:     connect.NewUnaryHandler(PlayerServiceGetLyricsProcedure, svc.GetLyrics, opts...),
	}

	path := "/" + PlayerServiceName + "/"
	return path, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// PlayerServiceClient is a client for PlayerService.
type PlayerServiceClient interface {
	Enqueue(context.Context, *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error)
	DequeueAt(context.Context, *connect.Request[DequeueAtRequest]) (*connect.Response[DequeueAtResponse], error)
	ClearQueue(context.Context, *connect.Request[ClearQueueRequest]) (*connect.Response[StatusResponse], error)
	PlayTrack(context.Context, *connect.Request[PlayTrackRequest]) (*connect.Response[StatusResponse], error)
	PlayFromQueue(context.Context, *connect.Request[PlayFromQueueRequest]) (*connect.Response[StatusResponse], error)
	Next(context.Context, *connect.Request[NextRequest]) (*connect.Response[StatusResponse], error)
	Previous(context.Context, *connect.Request[PreviousRequest]) (*connect.Response[StatusResponse], error)
	Stop(context.Context, *connect.Request[StopRequest]) (*connect.Response[StatusResponse], error)
	SetAutoplay(context.Context, *connect.Request[SetAutoplayRequest]) (*connect.Response[StatusResponse], error)
	SetReplay(context.Context, *connect.Request[SetReplayRequest]) (*connect.Response[StatusResponse], error)
	ReportEnded(context.Context, *connect.Request[ReportEndedRequest]) (*connect.Response[ReportEndedResponse], error)
	GetStatus(context.Context, *connect.Request[GetStatusRequest]) (*connect.Response[StatusResponse], error)
	ListTracks(context.Context, *connect.Request[ListTracksRequest]) (*connect.Response[ListTracksResponse], error)
	GetLyrics(context.Context, *connect.Request[GetLyricsRequest]) (*connect.Response[GetLyricsResponse], error)
}

// NewPlayerServiceClient creates a client for the server at baseURL
// (e.g. http://localhost:8080).
func NewPlayerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PlayerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &playerServiceClient{
		enqueue:       connect.NewClient[EnqueueRequest, EnqueueResponse](httpClient, baseURL+PlayerServiceEnqueueProcedure, opts...),
		dequeueAt:     connect.NewClient[DequeueAtRequest, DequeueAtResponse](httpClient, baseURL+PlayerServiceDequeueAtProcedure, opts...),
		clearQueue:    connect.NewClient[ClearQueueRequest, StatusResponse](httpClient, baseURL+PlayerServiceClearQueueProcedure, opts...),
		playTrack:     connect.NewClient[PlayTrackRequest, StatusResponse](httpClient, baseURL+PlayerServicePlayTrackProcedure, opts...),
		playFromQueue: connect.NewClient[PlayFromQueueRequest, StatusResponse](httpClient, baseURL+PlayerServicePlayFromQueueProcedure, opts...),
		next:          connect.NewClient[NextRequest, StatusResponse](httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		previous:      connect.NewClient[PreviousRequest, StatusResponse](httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		stop:          connect.NewClient[StopRequest, StatusResponse](httpClient, baseURL+PlayerServiceStopProcedure, opts...),
		setAutoplay:   connect.NewClient[SetAutoplayRequest, StatusResponse](httpClient, baseURL+PlayerServiceSetAutoplayProcedure, opts...),
		setReplay:     connect.NewClient[SetReplayRequest, StatusResponse](httpClient, baseURL+PlayerServiceSetReplayProcedure, opts...),
		reportEnded:   connect.NewClient[ReportEndedRequest, ReportEndedResponse](httpClient, baseURL+PlayerServiceReportEndedProcedure, opts...),
		getStatus:     connect.NewClient[GetStatusRequest, StatusResponse](httpClient, baseURL+PlayerServiceGetStatusProcedure, opts...),
		listTracks:    connect.NewClient[ListTracksRequest, ListTracksResponse](httpClient, baseURL+PlayerServiceListTracksProcedure, opts...),
		getLyrics:     connect.NewClient[GetLyricsRequest, GetLyricsResponse](httpClient, baseURL+PlayerServiceGetLyricsProcedure, opts...),
	}
}

type playerServiceClient struct {
	enqueue       *connect.Client[EnqueueRequest, EnqueueResponse]
	dequeueAt     *connect.Client[DequeueAtRequest, DequeueAtResponse]
	clearQueue    *connect.Client[ClearQueueRequest, StatusResponse]
	playTrack     *connect.Client[PlayTrackRequest, StatusResponse]
	playFromQueue *connect.Client[PlayFromQueueRequest, StatusResponse]
	next          *connect.Client[NextRequest, StatusResponse]
	previous      *connect.Client[PreviousRequest, StatusResponse]
	stop          *connect.Client[StopRequest, StatusResponse]
	setAutoplay   *connect.Client[SetAutoplayRequest, StatusResponse]
	setReplay     *connect.Client[SetReplayRequest, StatusResponse]
	reportEnded   *connect.Client[ReportEndedRequest, ReportEndedResponse]
	getStatus     *connect.Client[GetStatusRequest, StatusResponse]
	listTracks    *connect.Client[ListTracksRequest, ListTracksResponse]
	getLyrics     *connect.Client[GetLyricsRequest, GetLyricsResponse]
}

func (c *playerServiceClient) Enqueue(ctx context.Context, req *connect.Request[EnqueueRequest]) (*connect.Response[EnqueueResponse], error) {
	return c.enqueue.CallUnary(ctx, req)
}

func (c *playerServiceClient) DequeueAt(ctx context.Context, req *connect.Request[DequeueAtRequest]) (*connect.Response[DequeueAtResponse], error) {
	return c.dequeueAt.CallUnary(ctx, req)
}

func (c *playerServiceClient) ClearQueue(ctx context.Context, req *connect.Request[ClearQueueRequest]) (*connect.Response[StatusResponse], error) {
	return c.clearQueue.CallUnary(ctx, req)
}

func (c *playerServiceClient) PlayTrack(ctx context.Context, req *connect.Request[PlayTrackRequest]) (*connect.Response[StatusResponse], error) {
	return c.playTrack.CallUnary(ctx, req)
}

func (c *playerServiceClient) PlayFromQueue(ctx context.Context, req *connect.Request[PlayFromQueueRequest]) (*connect.Response[StatusResponse], error) {
	return c.playFromQueue.CallUnary(ctx, req)
}

func (c *playerServiceClient) Next(ctx context.Context, req *connect.Request[NextRequest]) (*connect.Response[StatusResponse], error) {
	return c.next.CallUnary(ctx, req)
}

func (c *playerServiceClient) Previous(ctx context.Context, req *connect.Request[PreviousRequest]) (*connect.Response[StatusResponse], error) {
	return c.previous.CallUnary(ctx, req)
}

func (c *playerServiceClient) Stop(ctx context.Context, req *connect.Request[StopRequest]) (*connect.Response[StatusResponse], error) {
	return c.stop.CallUnary(ctx, req)
}

func (c *playerServiceClient) SetAutoplay(ctx context.Context, req *connect.Request[SetAutoplayRequest]) (*connect.Response[StatusResponse], error) {
	return c.setAutoplay.CallUnary(ctx, req)
}

func (c *playerServiceClient) SetReplay(ctx context.Context, req *connect.Request[SetReplayRequest]) (*connect.Response[StatusResponse], error) {
	return c.setReplay.CallUnary(ctx, req)
}

func (c *playerServiceClient) ReportEnded(ctx context.Context, req *connect.Request[ReportEndedRequest]) (*connect.Response[ReportEndedResponse], error) {
	return c.reportEnded.CallUnary(ctx, req)
}

func (c *playerServiceClient) GetStatus(ctx context.Context, req *connect.Request[GetStatusRequest]) (*connect.Response[StatusResponse], error) {
	return c.getStatus.CallUnary(ctx, req)
}

func (c *playerServiceClient) ListTracks(ctx context.Context, req *connect.Request[ListTracksRequest]) (*connect.Response[ListTracksResponse], error) {
	return c.listTracks.CallUnary(ctx, req)
}

func (c *playerServiceClient) GetLyrics(ctx context.Context, req *connect.Request[GetLyricsRequest]) (*connect.Response[GetLyricsResponse], error) {
	return c.getLyrics.CallUnary(ctx, req)
}
