package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/models"
)

type recordingBroadcaster struct {
	mu      sync.Mutex
	clients int
	frames  [][]byte
}

func (b *recordingBroadcaster) Broadcast(message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, message)
}

func (b *recordingBroadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clients
}

func (b *recordingBroadcaster) setClients(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients = n
}

func (b *recordingBroadcaster) frameCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.frames)
}

func (b *recordingBroadcaster) lastFrame() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.frames) == 0 {
		return nil
	}
	return b.frames[len(b.frames)-1]
}

// activeCallsGateway serves one active call on the expected endpoint.
type activeCallsGateway struct {
	mu    sync.Mutex
	calls int
}

func (g *activeCallsGateway) Authenticate(context.Context, string, string) (string, error) {
	return "", models.ErrUpstreamFailure
}

func (g *activeCallsGateway) Call(_ context.Context, endpoint, _ string, _ interface{}) (*clients.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if endpoint != "/origination_active_calls" {
		return nil, models.ErrUpstreamFailure
	}
	data := json.RawMessage(`{"data":[{
		"id":"call-1",
		"type":"active-calls",
		"attributes":{
			"src_number":"33123456789",
			"dst_number":"4915112345678",
			"duration":42,
			"destination_next_rate":0.012,
			"country_name":"Germany"
		}
	}]}`)
	return &clients.Result{Data: data, Status: 200}, nil
}

func (g *activeCallsGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func TestLiveFeedPausesWithoutClients(t *testing.T) {
	gw := &activeCallsGateway{}
	b := &recordingBroadcaster{}
	feed := NewLiveCallFeed(gw, b, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)
	defer feed.Stop()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, gw.callCount(), "the poller must not hit the switch while nobody is watching")

	b.setClients(1)
	require.Eventually(t, func() bool { return b.frameCount() > 0 }, time.Second, 10*time.Millisecond)
}

func TestLiveFeedBroadcastsNormalizedCalls(t *testing.T) {
	gw := &activeCallsGateway{}
	b := &recordingBroadcaster{}
	b.setClients(1)
	feed := NewLiveCallFeed(gw, b, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go feed.Run(ctx)
	defer feed.Stop()

	require.Eventually(t, func() bool { return b.frameCount() > 0 }, time.Second, 10*time.Millisecond)

	var calls []models.LiveCall
	require.NoError(t, json.Unmarshal(b.lastFrame(), &calls))
	require.Len(t, calls, 1)
	assert.Equal(t, "call-1", calls[0].ID)
	assert.Equal(t, "33123456789", calls[0].SrcNumber)
	assert.Equal(t, "4915112345678", calls[0].DstNumber)
	assert.Equal(t, 42, calls[0].Duration)
	assert.InDelta(t, 0.012, calls[0].DestRate, 1e-9)
	assert.Equal(t, "Germany", calls[0].CountryName)
}

func TestDecodeLiveCallsFallsBackToRoutingPrefixes(t *testing.T) {
	raw := json.RawMessage(`{"data":[{
		"id":"call-2",
		"type":"active-calls",
		"attributes":{
			"src_prefix_routing":"3319988",
			"dst_prefix_routing":"4915",
			"duration":5,
			"destination_initial_rate":0.05
		}
	}]}`)

	calls, err := decodeLiveCalls(raw)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "3319988", calls[0].SrcNumber)
	assert.Equal(t, "4915", calls[0].DstNumber)
	assert.InDelta(t, 0.05, calls[0].DestRate, 1e-9)
}
