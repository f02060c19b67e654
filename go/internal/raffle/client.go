package raffle

import (
	"context"
	"fmt"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mcdev12/wheelraffle/go/internal/raffle/events"
	"github.com/mcdev12/wheelraffle/go/internal/rpcutil"
)

// SnapshotClient fetches snapshots from a remote RaffleService. A standalone
// gateway uses it to greet overlays that connect mid-raffle.
type SnapshotClient struct {
	getRaffle *connect.Client[structpb.Struct, structpb.Struct]
}

// NewSnapshotClient targets the RaffleService served at baseURL.
func NewSnapshotClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SnapshotClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &SnapshotClient{
		getRaffle: connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+GetRaffleProcedure, opts...),
	}
}

// SnapshotEvent calls GetRaffle for channelID.
func (c *SnapshotClient) SnapshotEvent(ctx context.Context, channelID string) (*events.Event, error) {
	msg, err := rpcutil.ToStruct(ChannelRequest{ChannelID: channelID})
	if err != nil {
		return nil, err
	}

	resp, err := c.getRaffle.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("get raffle snapshot: %w", err)
	}

	var event events.Event
	if err := rpcutil.FromStruct(resp.Msg, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
