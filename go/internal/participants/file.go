package participants

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadFile reads a JSON array of participants, the format used by seeding and imports.
func LoadFile(path string) ([]UpsertParticipantRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read participants file: %w", err)
	}
	var reqs []UpsertParticipantRequest
	if err := json.Unmarshal(data, &reqs); err != nil {
		return nil, fmt.Errorf("parse participants file: %w", err)
	}
	return reqs, nil
}
