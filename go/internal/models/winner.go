package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Winner is a history record of one announced raffle result.
type Winner struct {
	ID              uuid.UUID       `json:"id"`
	ChannelID       string          `json:"channel_id"`
	SessionID       uuid.UUID       `json:"session_id"`
	ParticipantID   string          `json:"participant_id"`
	Title           string          `json:"title"`
	ImageURL        string          `json:"image_url"`
	DurationSeconds float64         `json:"duration_seconds"`
	Details         json.RawMessage `json:"details,omitempty"` // display sequence and rotation snapshot
	WonAt           time.Time       `json:"won_at"`
}
