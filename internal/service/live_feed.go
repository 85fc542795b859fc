package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"portal-server/internal/clients"
	"portal-server/internal/models"
)

// activeCallsEndpoint is the softswitch resource listing calls in flight.
const activeCallsEndpoint = "/origination_active_calls"

// Broadcaster fans a payload out to connected WebSocket clients. The
// feed only polls the switch while ClientCount is above zero.
type Broadcaster interface {
	Broadcast(message []byte)
	ClientCount() int
}

// LiveCallFeed polls the softswitch for active calls and pushes the
// result to WebSocket subscribers. One poller serves all connections so
// the switch sees a constant load regardless of how many browser tabs
// are watching.
type LiveCallFeed struct {
	gateway     clients.Gateway
	broadcaster Broadcaster
	period      time.Duration
	logger      *zap.Logger
	stop        chan struct{}
}

// NewLiveCallFeed creates the active-calls poller.
func NewLiveCallFeed(gateway clients.Gateway, broadcaster Broadcaster, period time.Duration, logger *zap.Logger) *LiveCallFeed {
	return &LiveCallFeed{
		gateway:     gateway,
		broadcaster: broadcaster,
		period:      period,
		logger:      logger.Named("LiveCallFeed"),
		stop:        make(chan struct{}),
	}
}

// Run polls until Stop is called or the context is cancelled. Intended
// to run as a goroutine from main.
func (f *LiveCallFeed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	f.logger.Info("Live call feed started", zap.Duration("period", f.period))
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		case <-ticker.C:
			if f.broadcaster.ClientCount() == 0 {
				continue
			}
			f.poll(ctx)
		}
	}
}

// Stop terminates the poll loop.
func (f *LiveCallFeed) Stop() {
	close(f.stop)
}

func (f *LiveCallFeed) poll(ctx context.Context) {
	res, err := f.gateway.Call(ctx, activeCallsEndpoint, http.MethodGet, nil)
	if err != nil {
		// No session or a flaky switch; subscribers keep the last frame.
		f.logger.Debug("Active calls poll failed", zap.Error(err))
		return
	}
	if res.Data == nil {
		f.logger.Debug("Active calls poll returned no data", zap.Int("status", res.Status))
		return
	}

	calls, err := decodeLiveCalls(res.Data)
	if err != nil {
		f.logger.Warn("Failed to decode active calls", zap.Error(err))
		return
	}

	payload, err := json.Marshal(calls)
	if err != nil {
		f.logger.Warn("Failed to marshal live calls", zap.Error(err))
		return
	}
	f.broadcaster.Broadcast(payload)
}

// decodeLiveCalls flattens the JSON:API resource list into the wire
// model the frontend renders.
func decodeLiveCalls(data json.RawMessage) ([]models.LiveCall, error) {
	resources, err := clients.DecodeResources(data)
	if err != nil {
		return nil, err
	}

	calls := make([]models.LiveCall, 0, len(resources))
	for _, res := range resources {
		attrs := res.Attributes
		call := models.LiveCall{
			ID:          res.ID,
			SrcNumber:   attrString(attrs, "src_number"),
			DstNumber:   attrString(attrs, "dst_number"),
			Duration:    int(attrFloat(attrs, "duration")),
			DestRate:    attrFloat(attrs, "destination_next_rate"),
			CountryName: attrString(attrs, "country_name"),
		}
		if call.SrcNumber == "" {
			call.SrcNumber = attrString(attrs, "src_prefix_routing")
		}
		if call.DstNumber == "" {
			call.DstNumber = attrString(attrs, "dst_prefix_routing")
		}
		if call.DestRate == 0 {
			call.DestRate = attrFloat(attrs, "destination_initial_rate")
		}
		calls = append(calls, call)
	}
	return calls, nil
}
