package winners

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/sqlutil"
	"github.com/mcdev12/wheelraffle/go/internal/winners/db"
)

// ErrInvalidLimit is returned when a history page size is not positive.
var ErrInvalidLimit = errors.New("winners: limit must be positive")

// Querier defines what the repository needs from the database layer
type Querier interface {
	CreateWinner(ctx context.Context, arg db.CreateWinnerParams) (db.RaffleWinner, error)
	ListRecentWinners(ctx context.Context, arg db.ListRecentWinnersParams) ([]db.RaffleWinner, error)
}

// Repository stores announced winners in raffle_winners
type Repository struct {
	queries Querier
}

// NewRepository creates a new winners repository
func NewRepository(querier Querier) *Repository {
	return &Repository{
		queries: querier,
	}
}

// Record inserts a winner. A zero ID is replaced with a fresh UUID.
func (r *Repository) Record(ctx context.Context, w models.Winner) (*models.Winner, error) {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}

	row, err := r.queries.CreateWinner(ctx, db.CreateWinnerParams{
		ID:              w.ID,
		ChannelID:       w.ChannelID,
		SessionID:       w.SessionID,
		ParticipantID:   w.ParticipantID,
		Title:           w.Title,
		ImageUrl:        sqlutil.ToSqlString(w.ImageURL),
		DurationSeconds: w.DurationSeconds,
		Details:         sqlutil.ToNullRawMessage(w.Details),
		WonAt:           w.WonAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record winner: %w", err)
	}
	return r.dbWinnerToModel(row), nil
}

// ListRecent returns the newest winners for a channel, newest first
func (r *Repository) ListRecent(ctx context.Context, channelID string, limit int) ([]models.Winner, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := r.queries.ListRecentWinners(ctx, db.ListRecentWinnersParams{
		ChannelID: channelID,
		Limit:     int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}

	result := make([]models.Winner, 0, len(rows))
	for _, row := range rows {
		result = append(result, *r.dbWinnerToModel(row))
	}
	return result, nil
}

// dbWinnerToModel converts a database winner to domain model
func (r *Repository) dbWinnerToModel(row db.RaffleWinner) *models.Winner {
	return &models.Winner{
		ID:              row.ID,
		ChannelID:       row.ChannelID,
		SessionID:       row.SessionID,
		ParticipantID:   row.ParticipantID,
		Title:           row.Title,
		ImageURL:        sqlutil.FromSqlString(row.ImageUrl, ""),
		DurationSeconds: row.DurationSeconds,
		Details:         sqlutil.FromNullRawMessage(row.Details),
		WonAt:           row.WonAt,
	}
}
