package solbc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

func TestRPCPoolRotation(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := newRPCPool([]string{"http://a", "http://b", "http://c"}, time.Minute)
	p.now = func() time.Time { return now }

	var got []string
	for i := 0; i < 4; i++ {
		got = append(got, p.next().url)
	}
	assert.Equal(t, []string{"http://a", "http://b", "http://c", "http://a"}, got)

	// b cools down and is skipped until the cooldown passes.
	p.markDown(p.endpoints[1])
	assert.Equal(t, 2, p.healthy())
	assert.Equal(t, "http://c", p.next().url)
	assert.Equal(t, "http://a", p.next().url)
	assert.Equal(t, "http://c", p.next().url)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 3, p.healthy())
	assert.Equal(t, "http://a", p.next().url)
	assert.Equal(t, "http://b", p.next().url)
}

func TestRPCPoolAllDown(t *testing.T) {
	p := newRPCPool([]string{"http://a", "http://b"}, time.Minute)
	for _, ep := range p.endpoints {
		p.markDown(ep)
	}
	assert.Zero(t, p.healthy())
	first, second := p.next(), p.next()
	assert.NotEqual(t, first.url, second.url)
}

// rpcServer answers every JSON-RPC call with respond(id).
func rpcServer(t *testing.T, hits *atomic.Int32, respond func(id json.RawMessage) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		var req struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(req.ID)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPooledClientFailover(t *testing.T) {
	hash := solana.HashFromBytes(make([]byte, 32))
	var unhealthyHits, healthyHits atomic.Int32

	unhealthy := rpcServer(t, &unhealthyHits, func(id json.RawMessage) string {
		return `{"jsonrpc":"2.0","id":` + string(id) + `,"error":{"code":-32005,"message":"Node is behind"}}`
	})
	healthy := rpcServer(t, &healthyHits, func(id json.RawMessage) string {
		return `{"jsonrpc":"2.0","id":` + string(id) + `,"result":{"context":{"slot":1},"value":{"blockhash":"` + hash.String() + `","lastValidBlockHeight":100}}}`
	})

	c := NewPooledClient([]string{unhealthy.URL, healthy.URL}, time.Second, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := c.GetRecentBlockhash(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
	assert.Equal(t, 1, c.HealthyEndpoints())

	for i := 0; i < 3; i++ {
		got, err := c.GetRecentBlockhash(ctx)
		require.NoError(t, err)
		assert.Equal(t, hash, got)
	}
	assert.Equal(t, int32(1), unhealthyHits.Load())
	assert.Equal(t, int32(3), healthyHits.Load())
}

func TestPooledClientCallerCancelKeepsEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := rpcServer(t, &hits, func(id json.RawMessage) string {
		return `{"jsonrpc":"2.0","id":` + string(id) + `,"result":null}`
	})
	c := NewPooledClient([]string{srv.URL}, time.Second, time.Minute, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetRecentBlockhash(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, c.HealthyEndpoints())
}
