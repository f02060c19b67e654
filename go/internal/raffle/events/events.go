package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/wheelraffle/go/internal/models"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/selector"
)

// Event is the envelope pushed to overlays and onto the bus.
type Event struct {
	ID        string          `json:"id"`         // Event UUID
	ChannelID string          `json:"channel_id"` // Stream channel the raffle belongs to
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// EventType represents the type of raffle event
type EventType string

const (
	EventTypeRaffleStarted          EventType = "RaffleStarted"
	EventTypeRaffleWon              EventType = "RaffleWon"
	EventTypeRaffleClosed           EventType = "RaffleClosed"
	EventTypeNoEligibleParticipants EventType = "NoEligibleParticipants"
	EventTypeRaffleSnapshot         EventType = "RaffleSnapshot"
)

// Close reasons reported in RaffleClosedPayload.
const (
	CloseReasonCancelled = "cancelled"
	CloseReasonCompleted = "completed"
)

// RaffleStartedPayload carries everything the overlay needs to animate the wheel.
type RaffleStartedPayload struct {
	SessionID             string               `json:"session_id"`
	DisplaySequence       []models.Participant `json:"display_sequence"`
	WinnerIndex           int                  `json:"winner_index"`
	RotationTargetDegrees int                  `json:"rotation_target_degrees"`
	DurationSec           float64              `json:"duration_sec"`
	SpinMillis            int64                `json:"spin_ms"`
	RevealDelayMillis     int64                `json:"reveal_delay_ms"`
	WheelLayout           []selector.WheelSlot `json:"wheel_layout"`
	StartedAt             time.Time            `json:"started_at"`
	AnnounceAt            time.Time            `json:"announce_at"`
}

// RaffleWonPayload announces the winner once the spin has visually finished.
type RaffleWonPayload struct {
	SessionID string             `json:"session_id"`
	Winner    models.Participant `json:"winner"`
	WonAt     time.Time          `json:"won_at"`
}

// RaffleClosedPayload is sent when the dialog is torn down.
type RaffleClosedPayload struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	ClosedAt  time.Time `json:"closed_at"`
}

// NoEligibleParticipantsPayload tells the host there is nobody to draw.
type NoEligibleParticipantsPayload struct {
	NoticeUntil time.Time `json:"notice_until"`
}

// RaffleSnapshotPayload is sent to an overlay when it (re)connects.
type RaffleSnapshotPayload struct {
	Open        bool                  `json:"open"`
	Started     *RaffleStartedPayload `json:"started,omitempty"`
	Winner      *models.Participant   `json:"winner,omitempty"`
	NoticeUntil *time.Time            `json:"notice_until,omitempty"`
}

// New builds an envelope around payload.
func New(channelID string, eventType EventType, at time.Time, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		ChannelID: channelID,
		Type:      eventType,
		Timestamp: at,
		Data:      data,
	}, nil
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(event *Event) (interface{}, error) {
	switch event.Type {
	case EventTypeRaffleStarted:
		var payload RaffleStartedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRaffleWon:
		var payload RaffleWonPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRaffleClosed:
		var payload RaffleClosedPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeNoEligibleParticipants:
		var payload NoEligibleParticipantsPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case EventTypeRaffleSnapshot:
		var payload RaffleSnapshotPayload
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", event.Type)
	}
}
