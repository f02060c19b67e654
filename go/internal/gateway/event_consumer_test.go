package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
)

func TestDecodeEvent(t *testing.T) {
	ev, err := events.New("chan-1", events.EventTypeRaffleWon, time.Now(), events.RaffleWonPayload{SessionID: "s"})
	require.NoError(t, err)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := decodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "chan-1", decoded.ChannelID)
	assert.Equal(t, events.EventTypeRaffleWon, decoded.Type)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"missing channel", `{"id":"x","type":"RaffleWon"}`},
		{"missing type", `{"id":"x","channel_id":"c"}`},
		{"missing id", `{"channel_id":"c","type":"RaffleWon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEvent([]byte(tt.data))
			assert.ErrorIs(t, err, errMalformedEvent)
		})
	}
}

func TestRelayEvent_QueuesForOverlays(t *testing.T) {
	config := DefaultConnectionConfig()
	config.BroadcastBuffer = 1
	cm := NewConnectionManager(config, nil)

	data := []byte(`{"id":"e1","channel_id":"chan-1","type":"RaffleClosed","data":{}}`)
	require.NoError(t, relayEvent(context.Background(), cm, data))
	assert.ErrorIs(t, relayEvent(context.Background(), cm, data), ErrBroadcastQueueFull)

	queued := <-cm.broadcastCh
	assert.Equal(t, "e1", queued.ID)
}
