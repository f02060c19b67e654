package participants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/participants/db"
	"github.com/mcdev12/wheelraffle/go/internal/sqlutil"
)

// Querier defines what the repository needs from the database layer
type Querier interface {
	ListParticipants(ctx context.Context) ([]db.Participant, error)
	GetParticipant(ctx context.Context, id string) (db.Participant, error)
	UpsertParticipant(ctx context.Context, arg db.UpsertParticipantParams) (db.Participant, error)
	SetParticipantEligible(ctx context.Context, arg db.SetParticipantEligibleParams) (int64, error)
	SetAllParticipantsEligible(ctx context.Context, isEligible bool) (int64, error)
	DeleteParticipant(ctx context.Context, id string) (int64, error)
}

// Repository implements participant data access operations
type Repository struct {
	queries Querier
	db      *sql.DB
}

// NewRepository creates a new participants repository. database is used for bulk imports.
func NewRepository(querier Querier, database *sql.DB) *Repository {
	return &Repository{
		queries: querier,
		db:      database,
	}
}

// ListParticipants returns every participant, eligible or not
func (r *Repository) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	rows, err := r.queries.ListParticipants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	result := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		result = append(result, *r.dbParticipantToModel(row))
	}
	return result, nil
}

// GetParticipant retrieves a participant by ID
func (r *Repository) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	row, err := r.queries.GetParticipant(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return r.dbParticipantToModel(row), nil
}

// UpsertParticipant inserts or replaces a participant
func (r *Repository) UpsertParticipant(ctx context.Context, req UpsertParticipantRequest) (*models.Participant, error) {
	row, err := r.queries.UpsertParticipant(ctx, upsertParams(req))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}
	return r.dbParticipantToModel(row), nil
}

// SetEligible flips one participant's eligibility
func (r *Repository) SetEligible(ctx context.Context, id string, eligible bool) error {
	n, err := r.queries.SetParticipantEligible(ctx, db.SetParticipantEligibleParams{
		ID:         id,
		IsEligible: eligible,
	})
	if err != nil {
		return fmt.Errorf("failed to set participant eligibility: %w", err)
	}
	if n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// SetAllEligible sets eligibility for every participant and returns how many rows changed
func (r *Repository) SetAllEligible(ctx context.Context, eligible bool) (int64, error) {
	n, err := r.queries.SetAllParticipantsEligible(ctx, eligible)
	if err != nil {
		return 0, fmt.Errorf("failed to set eligibility for all participants: %w", err)
	}
	return n, nil
}

// DeleteParticipant deletes a participant by ID
func (r *Repository) DeleteParticipant(ctx context.Context, id string) error {
	n, err := r.queries.DeleteParticipant(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	if n == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

// ImportParticipants upserts all requests in a single transaction
func (r *Repository) ImportParticipants(ctx context.Context, reqs []UpsertParticipantRequest) (int, error) {
	err := sqlutil.Run(ctx, r.db, func(tx *sql.Tx) *db.Queries {
		return db.New(tx)
	}, func(q *db.Queries) error {
		for _, req := range reqs {
			if _, err := q.UpsertParticipant(ctx, upsertParams(req)); err != nil {
				return fmt.Errorf("upsert %s: %w", req.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import participants: %w", err)
	}
	return len(reqs), nil
}

func upsertParams(req UpsertParticipantRequest) db.UpsertParticipantParams {
	return db.UpsertParticipantParams{
		ID:         req.ID,
		Title:      req.Title,
		ImageUrl:   sqlutil.ToSqlString(req.ImageURL),
		IsEligible: req.IsEligible,
	}
}

// dbParticipantToModel converts a database participant to domain model
func (r *Repository) dbParticipantToModel(row db.Participant) *models.Participant {
	return &models.Participant{
		ID:         row.ID,
		Title:      row.Title,
		ImageURL:   sqlutil.FromSqlString(row.ImageUrl, ""),
		IsEligible: row.IsEligible,
		UpdatedAt:  row.UpdatedAt,
	}
}
