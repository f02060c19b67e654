package participants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApp_UpsertValidation(t *testing.T) {
	ctx := context.Background()
	app := NewApp(NewMemoryStore(nil))

	tests := []struct {
		name    string
		req     UpsertParticipantRequest
		wantErr bool
	}{
		{"valid", UpsertParticipantRequest{ID: "v1", Title: "Viewer", ImageURL: "https://cdn.example.com/a.png"}, false},
		{"valid without image", UpsertParticipantRequest{ID: "v2", Title: "Viewer"}, false},
		{"missing id", UpsertParticipantRequest{Title: "Viewer"}, true},
		{"missing title", UpsertParticipantRequest{ID: "v3"}, true},
		{"bad image url", UpsertParticipantRequest{ID: "v4", Title: "Viewer", ImageURL: "not a url"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.UpsertParticipant(ctx, tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidParticipant)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApp_ListEligible(t *testing.T) {
	ctx := context.Background()
	app := NewApp(NewMemoryStore(nil))

	_, err := app.ImportParticipants(ctx, []UpsertParticipantRequest{
		{ID: "a", Title: "A", IsEligible: true},
		{ID: "b", Title: "B", IsEligible: false},
		{ID: "c", Title: "C", IsEligible: true},
	})
	require.NoError(t, err)

	all, err := app.ListParticipants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	eligible, err := app.ListEligible(ctx)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, "a", eligible[0].ID)
	assert.Equal(t, "c", eligible[1].ID)

	require.NoError(t, app.SetEligible(ctx, "b", true))
	eligible, err = app.ListEligible(ctx)
	require.NoError(t, err)
	assert.Len(t, eligible, 3)
}

func TestApp_ImportRejectsBadBatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(nil)
	app := NewApp(store)

	_, err := app.ImportParticipants(ctx, []UpsertParticipantRequest{
		{ID: "a", Title: "A"},
		{ID: "a", Title: "A again"},
	})
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	_, err = app.ImportParticipants(ctx, []UpsertParticipantRequest{
		{ID: "a", Title: "A"},
		{ID: "b"},
	})
	assert.ErrorIs(t, err, ErrInvalidParticipant)

	all, err := store.ListParticipants(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestApp_NotFoundPassesThrough(t *testing.T) {
	ctx := context.Background()
	app := NewApp(NewMemoryStore(nil))

	_, err := app.GetParticipant(ctx, "nope")
	assert.ErrorIs(t, err, ErrParticipantNotFound)
	assert.ErrorIs(t, app.SetEligible(ctx, "nope", true), ErrParticipantNotFound)
	assert.ErrorIs(t, app.DeleteParticipant(ctx, "nope"), ErrParticipantNotFound)
	assert.ErrorIs(t, app.SetEligible(ctx, "", true), ErrInvalidParticipant)
}
