// source: participants.sql

package db

import (
	"context"
	"database/sql"
)

const deleteParticipant = `-- name: DeleteParticipant :execrows
DELETE FROM participants
WHERE id = $1
`

func (q *Queries) DeleteParticipant(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteParticipant, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getParticipant = `-- name: GetParticipant :one
SELECT id, title, image_url, is_eligible, updated_at
FROM participants
WHERE id = $1
`

func (q *Queries) GetParticipant(ctx context.Context, id string) (Participant, error) {
	row := q.db.QueryRowContext(ctx, getParticipant, id)
	var i Participant
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.ImageUrl,
		&i.IsEligible,
		&i.UpdatedAt,
	)
	return i, err
}

const listParticipants = `-- name: ListParticipants :many
SELECT id, title, image_url, is_eligible, updated_at
FROM participants
ORDER BY title, id
`

func (q *Queries) ListParticipants(ctx context.Context) ([]Participant, error) {
	rows, err := q.db.QueryContext(ctx, listParticipants)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Participant
	for rows.Next() {
		var i Participant
		if err := rows.Scan(
			&i.ID,
			&i.Title,
			&i.ImageUrl,
			&i.IsEligible,
			&i.UpdatedAt,
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

const setAllParticipantsEligible = `-- name: SetAllParticipantsEligible :execrows
UPDATE participants
SET is_eligible = $1, updated_at = NOW()
`

func (q *Queries) SetAllParticipantsEligible(ctx context.Context, isEligible bool) (int64, error) {
	result, err := q.db.ExecContext(ctx, setAllParticipantsEligible, isEligible)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setParticipantEligible = `-- name: SetParticipantEligible :execrows
UPDATE participants
SET is_eligible = $2, updated_at = NOW()
WHERE id = $1
`

type SetParticipantEligibleParams struct {
	ID         string
	IsEligible bool
}

func (q *Queries) SetParticipantEligible(ctx context.Context, arg SetParticipantEligibleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, setParticipantEligible, arg.ID, arg.IsEligible)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertParticipant = `-- name: UpsertParticipant :one
INSERT INTO participants (id, title, image_url, is_eligible, updated_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (id) DO UPDATE
SET title = EXCLUDED.title,
    image_url = EXCLUDED.image_url,
    is_eligible = EXCLUDED.is_eligible,
    updated_at = NOW()
RETURNING id, title, image_url, is_eligible, updated_at
`

type UpsertParticipantParams struct {
	ID         string
	Title      string
	ImageUrl   sql.NullString
	IsEligible bool
}

func (q *Queries) UpsertParticipant(ctx context.Context, arg UpsertParticipantParams) (Participant, error) {
	row := q.db.QueryRowContext(ctx, upsertParticipant,
		arg.ID,
		arg.Title,
		arg.ImageUrl,
		arg.IsEligible,
	)
	var i Participant
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.ImageUrl,
		&i.IsEligible,
		&i.UpdatedAt,
	)
	return i, err
}
