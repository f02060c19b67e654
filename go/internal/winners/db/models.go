package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type RaffleWinner struct {
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
