package participants

import "errors"

var (
	// ErrParticipantNotFound is returned when no participant has the requested id.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrInvalidParticipant wraps request validation failures.
	ErrInvalidParticipant = errors.New("invalid participant")
)

// UpsertParticipantRequest creates a participant or replaces an existing one with the same id
type UpsertParticipantRequest struct {
	ID         string `json:"id" validate:"required,max=128"`
	Title      string `json:"title" validate:"required,max=256"`
	ImageURL   string `json:"image_url" validate:"omitempty,url"`
	IsEligible bool   `json:"is_eligible"`
}
