package participants

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/wheelraffle/go/internal/models"
)

// ParticipantsRepository defines what the app layer needs from the repository
type ParticipantsRepository interface {
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	GetParticipant(ctx context.Context, id string) (*models.Participant, error)
	UpsertParticipant(ctx context.Context, req UpsertParticipantRequest) (*models.Participant, error)
	SetEligible(ctx context.Context, id string, eligible bool) error
	SetAllEligible(ctx context.Context, eligible bool) (int64, error)
	DeleteParticipant(ctx context.Context, id string) error
	ImportParticipants(ctx context.Context, reqs []UpsertParticipantRequest) (int, error)
}

// App handles participant business logic
type App struct {
	repo     ParticipantsRepository
	validate *validator.Validate
}

// NewApp creates a new participants App
func NewApp(repo ParticipantsRepository) *App {
	return &App{
		repo:     repo,
		validate: validator.New(),
	}
}

// ListParticipants returns the full snapshot. The raffle reads its pool through this.
func (a *App) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	all, err := a.repo.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return all, nil
}

// ListEligible returns only participants that may currently be drawn
func (a *App) ListEligible(ctx context.Context) ([]models.Participant, error) {
	all, err := a.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterEligible(all), nil
}

// GetParticipant retrieves a participant by ID
func (a *App) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	p, err := a.repo.GetParticipant(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// UpsertParticipant creates or replaces a participant with validation
func (a *App) UpsertParticipant(ctx context.Context, req UpsertParticipantRequest) (*models.Participant, error) {
	if err := a.validateUpsert(req); err != nil {
		return nil, err
	}

	p, err := a.repo.UpsertParticipant(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}

	log.Info().Str("participant_id", p.ID).Bool("eligible", p.IsEligible).Msg("upserted participant")
	return p, nil
}

// SetEligible marks one participant eligible or not
func (a *App) SetEligible(ctx context.Context, id string, eligible bool) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidParticipant)
	}
	if err := a.repo.SetEligible(ctx, id, eligible); err != nil {
		return fmt.Errorf("failed to set eligibility: %w", err)
	}
	log.Info().Str("participant_id", id).Bool("eligible", eligible).Msg("participant eligibility changed")
	return nil
}

// SetAllEligible resets eligibility for every participant, e.g. between streams
func (a *App) SetAllEligible(ctx context.Context, eligible bool) (int64, error) {
	n, err := a.repo.SetAllEligible(ctx, eligible)
	if err != nil {
		return 0, fmt.Errorf("failed to set eligibility: %w", err)
	}
	log.Info().Int64("count", n).Bool("eligible", eligible).Msg("eligibility reset for all participants")
	return n, nil
}

// DeleteParticipant deletes a participant by ID
func (a *App) DeleteParticipant(ctx context.Context, id string) error {
	if err := a.repo.DeleteParticipant(ctx, id); err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	log.Info().Str("participant_id", id).Msg("deleted participant")
	return nil
}

// ImportParticipants validates every request first, then upserts them all together
func (a *App) ImportParticipants(ctx context.Context, reqs []UpsertParticipantRequest) (int, error) {
	seen := make(map[string]struct{}, len(reqs))
	for i, req := range reqs {
		if err := a.validateUpsert(req); err != nil {
			return 0, fmt.Errorf("entry %d: %w", i, err)
		}
		if _, dup := seen[req.ID]; dup {
			return 0, fmt.Errorf("entry %d: %w: duplicate id %s", i, ErrInvalidParticipant, req.ID)
		}
		seen[req.ID] = struct{}{}
	}

	n, err := a.repo.ImportParticipants(ctx, reqs)
	if err != nil {
		return 0, fmt.Errorf("failed to import participants: %w", err)
	}
	log.Info().Int("count", n).Msg("imported participants")
	return n, nil
}

func (a *App) validateUpsert(req UpsertParticipantRequest) error {
	if err := a.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParticipant, err)
	}
	return nil
}
