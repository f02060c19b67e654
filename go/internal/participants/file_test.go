package participants

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "participants.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"id": "v1", "title": "First Viewer", "image_url": "https://cdn.example.com/1.png", "is_eligible": true},
		{"id": "v2", "title": "Second Viewer"}
	]`), 0o600))

	reqs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, UpsertParticipantRequest{ID: "v1", Title: "First Viewer", ImageURL: "https://cdn.example.com/1.png", IsEligible: true}, reqs[0])
	assert.False(t, reqs[1].IsEligible)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": "not an array"}`), 0o600))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
