package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"portal-server/internal/clients"
	"portal-server/internal/models"
)

// AccountCache is the read-through cache for the dashboard aggregate.
// Concurrent readers share a single upstream fetch (singleflight) and a
// snapshot younger than the TTL is served without any network call. A
// background warmer keeps the cache populated while the session lives.
type AccountCache struct {
	gateway clients.Gateway
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	snapshot *models.AccountSnapshot

	stopWarmer chan struct{}
	warmerOnce sync.Once
}

// NewAccountCache creates the snapshot cache with the given TTL.
func NewAccountCache(gateway clients.Gateway, ttl time.Duration, logger *zap.Logger) *AccountCache {
	return &AccountCache{
		gateway:    gateway,
		ttl:        ttl,
		logger:     logger.Named("AccountCache"),
		now:        time.Now,
		stopWarmer: make(chan struct{}),
	}
}

// Get returns the account snapshot. Without forceRefresh a snapshot
// younger than the TTL is returned as-is; otherwise a fetch is started,
// deduplicated across concurrent callers.
func (c *AccountCache) Get(ctx context.Context, forceRefresh bool) (*models.AccountSnapshot, error) {
	if !forceRefresh {
		c.mu.Lock()
		if s := c.snapshot; s != nil && c.now().Sub(s.FetchedAt) < c.ttl {
			c.mu.Unlock()
			cached := *s
			return &cached, nil
		}
		c.mu.Unlock()
	}

	// Forced refreshes fly under their own key so they never join a
	// regular fetch that is already in progress.
	flightKey := "account-snapshot"
	if forceRefresh {
		flightKey = "account-snapshot-forced"
	}
	v, err, shared := c.group.Do(flightKey, func() (interface{}, error) {
		// The fetch is detached from the initiating request; a caller
		// that cancels must not fail the sharers that joined the flight.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		snap, err := c.fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.snapshot = snap
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("Snapshot fetch shared with concurrent caller")
	}
	snap := *(v.(*models.AccountSnapshot))
	return &snap, nil
}

// StartWarmer launches the background refresh loop. It re-fetches a
// forced snapshot every TTL period regardless of consumer activity.
func (c *AccountCache) StartWarmer() {
	go func() {
		ticker := time.NewTicker(c.ttl)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopWarmer:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if _, err := c.Get(ctx, true); err != nil {
					// Expected while nobody is logged in.
					c.logger.Debug("Warm refresh skipped", zap.Error(err))
				}
				cancel()
			}
		}
	}()
	c.logger.Info("Snapshot warmer started", zap.Duration("period", c.ttl))
}

// StopWarmer stops the background refresh loop.
func (c *AccountCache) StopWarmer() {
	c.warmerOnce.Do(func() { close(c.stopWarmer) })
}

// fetch builds the snapshot from three upstream calls. Balance is
// mandatory; CDR and gateway counters degrade to zero values when their
// endpoints fail, so a partial outage never blanks the whole dashboard.
func (c *AccountCache) fetch(ctx context.Context) (*models.AccountSnapshot, error) {
	snap := &models.AccountSnapshot{
		Currency:      "EUR",
		TotalDuration: "0h 0m",
		FetchedAt:     c.now(),
	}

	res, err := c.gateway.Call(ctx, "/account", "GET", nil)
	if err != nil {
		return nil, err
	}
	if res.Data != nil {
		attrs := decodeAttributes(res.Data)
		snap.Balance = attrFloat(attrs, "balance")
		if cur := attrString(attrs, "balance_currency"); cur != "" {
			snap.Currency = cur
		}
	}

	now := c.now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	cdrEndpoint := fmt.Sprintf("/cdrs?filter[time_start_gteq]=%s&filter[time_start_lteq]=%s&page[size]=1000",
		startOfMonth.Format("2006-01-02"), now.Format("2006-01-02"))

	if res, err := c.gateway.Call(ctx, cdrEndpoint, "GET", nil); err != nil {
		c.logger.Warn("Could not fetch CDRs for snapshot", zap.Error(err))
	} else if res.Data != nil {
		cdrs, err := clients.DecodeResources(res.Data)
		if err != nil {
			c.logger.Warn("Could not decode CDR payload", zap.Error(err))
		} else {
			snap.CallsThisMonth = len(cdrs)
			var totalSeconds int
			for _, cdr := range cdrs {
				totalSeconds += int(attrFloat(cdr.Attributes, "duration"))
			}
			snap.TotalDuration = formatDuration(totalSeconds)
		}
	}

	if res, err := c.gateway.Call(ctx, "/origination-gateways", "GET", nil); err != nil {
		c.logger.Warn("Could not fetch origination gateways for snapshot", zap.Error(err))
	} else if res.Data != nil {
		if gws, err := clients.DecodeResources(res.Data); err == nil {
			snap.ActiveGateways = len(gws)
		}
	}

	c.logger.Debug("Snapshot fetched",
		zap.Float64("balance", snap.Balance),
		zap.Int("calls", snap.CallsThisMonth),
		zap.Int("gateways", snap.ActiveGateways),
	)
	return snap, nil
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%dh %dm", seconds/3600, (seconds%3600)/60)
}

// decodeAttributes flattens a single-resource payload to its attribute
// map. Accepts a bare object, a JSON:API resource or a {data: ...}
// envelope.
func decodeAttributes(raw json.RawMessage) map[string]interface{} {
	var env clients.Envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Data != nil {
		raw = env.Data
	}
	var res clients.Resource
	if err := json.Unmarshal(raw, &res); err == nil && len(res.Attributes) > 0 {
		return res.Attributes
	}
	var plain map[string]interface{}
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	return nil
}

func attrString(attrs map[string]interface{}, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}

// attrFloat reads a numeric attribute that the upstream may send either
// as a number or as a decimal string.
func attrFloat(attrs map[string]interface{}, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
