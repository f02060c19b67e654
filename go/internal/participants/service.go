package participants

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/rpcutil"
)

const (
	ParticipantServiceName = "wheelraffle.participant.v1.ParticipantService"

	ListParticipantsProcedure   = "/" + ParticipantServiceName + "/ListParticipants"
	GetParticipantProcedure     = "/" + ParticipantServiceName + "/GetParticipant"
	UpsertParticipantProcedure  = "/" + ParticipantServiceName + "/UpsertParticipant"
	SetEligibleProcedure        = "/" + ParticipantServiceName + "/SetEligible"
	SetAllEligibleProcedure     = "/" + ParticipantServiceName + "/SetAllEligible"
	DeleteParticipantProcedure  = "/" + ParticipantServiceName + "/DeleteParticipant"
	ImportParticipantsProcedure = "/" + ParticipantServiceName + "/ImportParticipants"
)

// ParticipantsApp defines what the service layer needs from the participants application
type ParticipantsApp interface {
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	ListEligible(ctx context.Context) ([]models.Participant, error)
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	UpsertParticipant(ctx context.Context, req UpsertParticipantRequest) (*models.Participant, error)
	SetEligible(ctx context.Context, id string, eligible bool) error
	SetAllEligible(ctx context.Context, eligible bool) (int64, error)
	DeleteParticipant(ctx context.Context, id string) error
	ImportParticipants(ctx context.Context, reqs []UpsertParticipantRequest) (int, error)
}

type ListParticipantsRequest struct {
	EligibleOnly bool `json:"eligible_only"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type SetEligibleRequest struct {
	ID       string `json:"id"`
	Eligible bool   `json:"eligible"`
}

type SetAllEligibleRequest struct {
	Eligible bool `json:"eligible"`
}

type ImportParticipantsRequest struct {
	Participants []UpsertParticipantRequest `json:"participants"`
}

type ListParticipantsResponse struct {
	Participants []models.Participant `json:"participants"`
}

type ParticipantResponse struct {
	Participant *models.Participant `json:"participant"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

// Service implements the ParticipantService connect handlers
type Service struct {
	app ParticipantsApp
}

// NewService creates a new participants connect service
func NewService(app ParticipantsApp) *Service {
	return &Service{
		app: app,
	}
}

// NewServiceHandler mounts every ParticipantService procedure
func NewServiceHandler(svc *Service, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(ListParticipantsProcedure, connect.NewUnaryHandler(ListParticipantsProcedure, svc.ListParticipants, opts...))
	mux.Handle(GetParticipantProcedure, connect.NewUnaryHandler(GetParticipantProcedure, svc.GetParticipant, opts...))
	mux.Handle(UpsertParticipantProcedure, connect.NewUnaryHandler(UpsertParticipantProcedure, svc.UpsertParticipant, opts...))
	mux.Handle(SetEligibleProcedure, connect.NewUnaryHandler(SetEligibleProcedure, svc.SetEligible, opts...))
	mux.Handle(SetAllEligibleProcedure, connect.NewUnaryHandler(SetAllEligibleProcedure, svc.SetAllEligible, opts...))
	mux.Handle(DeleteParticipantProcedure, connect.NewUnaryHandler(DeleteParticipantProcedure, svc.DeleteParticipant, opts...))
	mux.Handle(ImportParticipantsProcedure, connect.NewUnaryHandler(ImportParticipantsProcedure, svc.ImportParticipants, opts...))
	return "/" + ParticipantServiceName + "/", mux
}

// ListParticipants lists all participants, or only eligible ones
func (s *Service) ListParticipants(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ListParticipantsRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	var (
		list []models.Participant
		err  error
	)
	if in.EligibleOnly {
		list, err = s.app.ListEligible(ctx)
	} else {
		list, err = s.app.ListParticipants(ctx)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	if list == nil {
		list = []models.Participant{}
	}

	return rpcutil.Respond(ListParticipantsResponse{Participants: list})
}

// GetParticipant retrieves a participant by ID
func (s *Service) GetParticipant(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in IDRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	p, err := s.app.GetParticipant(ctx, in.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(ParticipantResponse{Participant: p})
}

// UpsertParticipant creates or replaces a participant
func (s *Service) UpsertParticipant(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in UpsertParticipantRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	p, err := s.app.UpsertParticipant(ctx, in)
	if err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(ParticipantResponse{Participant: p})
}

// SetEligible toggles one participant's eligibility
func (s *Service) SetEligible(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in SetEligibleRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	if err := s.app.SetEligible(ctx, in.ID, in.Eligible); err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(map[string]bool{"success": true})
}

// SetAllEligible sets eligibility for every participant
func (s *Service) SetAllEligible(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in SetAllEligibleRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	n, err := s.app.SetAllEligible(ctx, in.Eligible)
	if err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(CountResponse{Count: n})
}

// DeleteParticipant deletes a participant by ID
func (s *Service) DeleteParticipant(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in IDRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	if err := s.app.DeleteParticipant(ctx, in.ID); err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(map[string]bool{"success": true})
}

// ImportParticipants upserts a batch of participants atomically
func (s *Service) ImportParticipants(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
	var in ImportParticipantsRequest
	if err := rpcutil.Bind(req, &in); err != nil {
		return nil, err
	}

	n, err := s.app.ImportParticipants(ctx, in.Participants)
	if err != nil {
		return nil, toConnectError(err)
	}

	return rpcutil.Respond(CountResponse{Count: int64(n)})
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidParticipant):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ErrParticipantNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
