package raffle

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
	"github.com/mcdev12/wheelraffle/go/internal/rpcutil"
	"github.com/mcdev12/wheelraffle/go/internal/winners"
)

const (
	RaffleServiceName = "wheelraffle.raffle.v1.RaffleService"

	StartRaffleProcedure = "/" + RaffleServiceName + "/StartRaffle"
	CloseRaffleProcedure = "/" + RaffleServiceName + "/CloseRaffle"
	GetRaffleProcedure   = "/" + RaffleServiceName + "/GetRaffle"
	ListWinnersProcedure = "/" + RaffleServiceName + "/ListWinners"
)

// RaffleApp defines what the service layer needs from the raffle application
type RaffleApp interface {
	StartRaffle(ctx context.Context, channelID string, duration float64) (*events.RaffleStartedPayload, error)
	CloseRaffle(ctx context.Context, channelID string) error
	SnapshotEvent(ctx context.Context, channelID string) (*events.Event, error)
	RecentWinners(ctx context.Context, channelID string, limit int) ([]models.Winner, error)
}

type StartRaffleRequest struct {
	ChannelID   string  `json:"channel_id"`
	DurationSec float64 `json:"duration_sec"`
}

type ChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

type ListWinnersRequest struct {
	ChannelID string `json:"channel_id"`
	Limit     int    `json:"limit"`
}

type StartRaffleResponse struct {
	Raffle *events.RaffleStartedPayload `json:"raffle"`
}

type ListWinnersResponse struct {
	Winners []models.Winner `json:"winners"`
}

// Service implements the RaffleService connect handlers
type Service struct {
	app RaffleApp
}

// NewService creates a new raffle connect service
func NewService(app RaffleApp) *Service {
	return &Service{
		app: app,
	}
}

// NewServiceHandler mounts every RaffleService procedure. Register the handler at the returned path.
func NewServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(StartRaffleProcedure, connect.NewUnaryHandler(StartRaffleProcedure, svc.StartRaffle, opts...))
	mux.Handle(CloseRaffleProcedure, connect.NewUnaryHandler(CloseRaffleProcedure, svc.CloseRaffle, opts...))
	mux.Handle(GetRaffleProcedure, connect.NewUnaryHandler(GetRaffleProcedure, svc.GetRaffle, opts...))
	mux.Handle(ListWinnersProcedure, connect.NewUnaryHandler(ListWinnersProcedure, svc.ListWinners, opts...))
	return "/" + RaffleServiceName + "/", mux
}

// StartRaffle opens the dialog and spins the wheel
func (s *Service) StartRaffle(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in StartRaffleRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	started, err := s.app.StartRaffle(ctx, in.ChannelID, in.DurationSec)
	if err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(StartRaffleResponse{Raffle: started})
}

// CloseRaffle closes the channel's dialog, cancelling a pending announcement
func (s *Service) CloseRaffle(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ChannelRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	if err := s.app.CloseRaffle(ctx, in.ChannelID); err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(map[string]bool{"success": true})
}

// GetRaffle returns the channel's current state as a RaffleSnapshot event
func (s *Service) GetRaffle(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ChannelRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}
	if in.ChannelID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrMissingChannel)
	}

	event, err := s.app.SnapshotEvent(ctx, in.ChannelID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(event)
}

// ListWinners returns the channel's recent winners, newest first
func (s *Service) ListWinners(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ListWinnersRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	list, err := s.app.RecentWinners(ctx, in.ChannelID, in.Limit)
	if err != nil {
		return nil, toConnectError(err)
	}
	if list == nil {
		list = []models.Winner{}
	}

	return rpcutil.Respond(ListWinnersResponse{Winners: list})
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrMissingChannel), errors.Is(err, ErrDurationTooShort), errors.Is(err, winners.ErrInvalidLimit):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrRaffleInProgress):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, ErrNoEligibleParticipants), errors.Is(err, ErrNoticeActive):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, ErrNoOpenRaffle):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrParticipantsUnavailable), errors.Is(err, ErrAppClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
