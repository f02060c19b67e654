package raffle_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/wheelraffle/go/internal/raffle"
	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
	"github.com/mcdev12/wheelraffle/go/internal/rpcutil"
)

type rpcFixture struct {
	*fixture
	srv *httptest.Server
}

func newRPCFixture(t *testing.T) *rpcFixture {
	t.Helper()
	f := newFixture(t)
	mux := http.NewServeMux()
	mux.Handle(raffle.NewServiceHandler(raffle.NewService(f.app)))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &rpcFixture{fixture: f, srv: srv}
}

func (f *rpcFixture) call(t *testing.T, procedure string, body interface{}) (*structpb.Struct, error) {
	t.Helper()
	client := connect.NewClient[structpb.Struct, structpb.Struct](f.srv.Client(), f.srv.URL+procedure)
	msg, err := rpcutil.ToStruct(body)
	require.NoError(t, err)
	resp, err := client.CallUnary(context.Background(), connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestService_StartAndClose(t *testing.T) {
	f := newRPCFixture(t)

	msg, err := f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{ChannelID: "chan-1", DurationSec: 5})
	require.NoError(t, err)

	var started raffle.StartRaffleResponse
	require.NoError(t, rpcutil.FromStruct(msg, &started))
	require.NotNil(t, started.Raffle)
	assert.Len(t, started.Raffle.DisplaySequence, 10)
	assert.Equal(t, float64(5), started.Raffle.DurationSec)

	_, err = f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{ChannelID: "chan-1"})
	assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))

	_, err = f.call(t, raffle.CloseRaffleProcedure, raffle.ChannelRequest{ChannelID: "chan-1"})
	require.NoError(t, err)
	f.sink.waitFor(t, events.EventTypeRaffleClosed, 1)

	_, err = f.call(t, raffle.CloseRaffleProcedure, raffle.ChannelRequest{ChannelID: "chan-1"})
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestService_ErrorCodes(t *testing.T) {
	f := newRPCFixture(t)

	_, err := f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{ChannelID: "chan-1", DurationSec: 0.5})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	f.source.set()
	_, err = f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{ChannelID: "chan-2"})
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	_, err = f.call(t, raffle.GetRaffleProcedure, raffle.ChannelRequest{})
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestService_ListWinners(t *testing.T) {
	f := newRPCFixture(t)

	_, err := f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{ChannelID: "chan-1", DurationSec: 1})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Second)
	f.sink.waitFor(t, events.EventTypeRaffleWon, 1)

	require.Eventually(t, func() bool {
		msg, err := f.call(t, raffle.ListWinnersProcedure, raffle.ListWinnersRequest{ChannelID: "chan-1"})
		if err != nil {
			return false
		}
		var resp raffle.ListWinnersResponse
		require.NoError(t, rpcutil.FromStruct(msg, &resp))
		return len(resp.Winners) == 1 && resp.Winners[0].ChannelID == "chan-1"
	}, 2*time.Second, 10*time.Millisecond)

	msg, err := f.call(t, raffle.ListWinnersProcedure, raffle.ListWinnersRequest{ChannelID: "chan-2"})
	require.NoError(t, err)
	var empty raffle.ListWinnersResponse
	require.NoError(t, rpcutil.FromStruct(msg, &empty))
	assert.Empty(t, empty.Winners)
}

func TestSnapshotClient(t *testing.T) {
	f := newRPCFixture(t)

	_, err := f.call(t, raffle.StartRaffleProcedure, raffle.StartRaffleRequest{ChannelID: "chan-1"})
	require.NoError(t, err)

	client := raffle.NewSnapshotClient(f.srv.Client(), f.srv.URL+"/")
	ev, err := client.SnapshotEvent(context.Background(), "chan-1")
	require.NoError(t, err)
	assert.Equal(t, events.EventTypeRaffleSnapshot, ev.Type)
	assert.Equal(t, "chan-1", ev.ChannelID)

	payload, err := events.ParsePayload(ev)
	require.NoError(t, err)
	snap := payload.(events.RaffleSnapshotPayload)
	assert.True(t, snap.Open)
	require.NotNil(t, snap.Started)
	assert.Len(t, snap.Started.DisplaySequence, 10)

	idle, err := client.SnapshotEvent(context.Background(), "chan-9")
	require.NoError(t, err)
	payload, err = events.ParsePayload(idle)
	require.NoError(t, err)
	assert.False(t, payload.(events.RaffleSnapshotPayload).Open)
}
