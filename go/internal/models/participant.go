package models

import (
	"time"
)

// Participant represents a viewer who can be drawn on the raffle wheel.
// Records are owned by the participant store; the raffle core only reads snapshots.
type Participant struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"image_url"`
	IsEligible bool      `json:"is_eligible"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FilterEligible returns the participants flagged as eligible, preserving order.
func FilterEligible(all []Participant) []Participant {
	eligible := make([]Participant, 0, len(all))
	for _, p := range all {
		if p.IsEligible {
			eligible = append(eligible, p)
		}
	}
	return eligible
}
