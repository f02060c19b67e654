// source: winners.sql

package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const createWinner = `-- name: CreateWinner :one
INSERT INTO raffle_winners (id, channel_id, session_id, participant_id, title, image_url, duration_seconds, details, won_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id, channel_id, session_id, participant_id, title, image_url, duration_seconds, details, won_at
`

type CreateWinnerParams struct {
	ID              uuid.UUID
	ChannelID       string
	SessionID       uuid.UUID
	ParticipantID   string
	Title           string
	ImageUrl        sql.NullString
	DurationSeconds float64
	Details         pqtype.NullRawMessage
	WonAt           time.Time
}

func (q *Queries) CreateWinner(ctx context.Context, arg CreateWinnerParams) (RaffleWinner, error) {
	row := q.db.QueryRowContext(ctx, createWinner,
		arg.ID,
		arg.ChannelID,
		arg.SessionID,
		arg.ParticipantID,
		arg.Title,
		arg.ImageUrl,
		arg.DurationSeconds,
		arg.Details,
		arg.WonAt,
	)
	var i RaffleWinner
	err := row.Scan(
		&i.ID,
		&i.ChannelID,
		&i.SessionID,
		&i.ParticipantID,
		&i.Title,
		&i.ImageUrl,
		&i.DurationSeconds,
		&i.Details,
		&i.WonAt,
	)
	return i, err
}

const listRecentWinners = `-- name: ListRecentWinners :many
SELECT id, channel_id, session_id, participant_id, title, image_url, duration_seconds, details, won_at
FROM raffle_winners
WHERE channel_id = $1
ORDER BY won_at DESC
LIMIT $2
`

type ListRecentWinnersParams struct {
	ChannelID string
	Limit     int32
}

func (q *Queries) ListRecentWinners(ctx context.Context, arg ListRecentWinnersParams) ([]RaffleWinner, error) {
	rows, err := q.db.QueryContext(ctx, listRecentWinners, arg.ChannelID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RaffleWinner
	for rows.Next() {
		var i RaffleWinner
		if err := rows.Scan(
			&i.ID,
			&i.ChannelID,
			&i.SessionID,
			&i.ParticipantID,
			&i.Title,
			&i.ImageUrl,
			&i.DurationSeconds,
			&i.Details,
			&i.WonAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
