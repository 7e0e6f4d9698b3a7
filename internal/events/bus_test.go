package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func shutdown(t *testing.T, b *Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.Shutdown(ctx))
}

func TestBus_PublishDelivers(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), nil, 8)
	defer shutdown(t, b)

	got := make(chan Event, 1)
	b.SubscribeFunc(TradeSettled, func(_ context.Context, e Event) error {
		got <- e
		return nil
	})

	require.NoError(t, b.Publish(NewTradeSettled(domain.TradeSettlement{Signature: "sig"})))
	select {
	case e := <-got:
		assert.Equal(t, TradeSettled, e.Type())
		assert.Equal(t, "sig", e.(*TradeSettledEvent).Trade.Signature)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_HandlerErrorsStayInside(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), nil, 8)
	defer shutdown(t, b)

	b.SubscribeFunc(ClaimSettled, func(context.Context, Event) error {
		return errors.New("sink down")
	})
	assert.NoError(t, b.Publish(NewClaimSettled(domain.ClaimSettlement{Signature: "s"}, true)))

	err := b.Dispatch(context.Background(), NewClaimSettled(domain.ClaimSettlement{Signature: "s"}, true))
	assert.Error(t, err)
}

func TestBus_FullChannelDrops(t *testing.T) {
	// no workers, so the queue stays full
	reg := prometheus.NewRegistry()
	b := newBus(zaptest.NewLogger(t), metrics.NewCollector(reg), 1, 0)
	defer shutdown(t, b)

	ev := NewLaunchEvent(&domain.WorkflowState{StateID: "id", Status: domain.StatusCompleted})
	require.NoError(t, b.Publish(ev))
	assert.ErrorIs(t, b.Publish(ev), ErrBusFull)
	stats := b.Stats()
	assert.Equal(t, 1, stats["pending_events"])
	assert.Equal(t, int64(1), stats["dropped"])

	n, err := testutil.GatherAndCount(reg, "settlement_events_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBus_DeliversInSubscriptionOrder(t *testing.T) {
	b := newBus(zaptest.NewLogger(t), nil, 8, 1)

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		b.SubscribeFunc(TradeSettled, func(context.Context, Event) error {
			order = append(order, name)
			if name == "second" {
				return errors.New("boom")
			}
			return nil
		})
	}
	require.NoError(t, b.Publish(NewTradeSettled(domain.TradeSettlement{Signature: "a"})))
	shutdown(t, b)

	assert.Equal(t, []string{"first", "second", "third"}, order)
	stats := b.Stats()
	assert.Equal(t, int64(1), stats["published"])
	assert.Equal(t, int64(2), stats["delivered"])
	assert.Equal(t, int64(1), stats["handler_failures"])
}

func TestBus_ShutdownDrainsQueue(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), nil, 32)

	var calls atomic.Int32
	b.SubscribeFunc(ClaimSettled, func(context.Context, Event) error {
		calls.Add(1)
		return nil
	})
	for i := 0; i < 20; i++ {
		require.NoError(t, b.Publish(NewClaimSettled(domain.ClaimSettlement{Signature: "s"}, false)))
	}
	shutdown(t, b)
	assert.Equal(t, int32(20), calls.Load())
	assert.NoError(t, b.Shutdown(context.Background()))
}

func TestBus_ShutdownTimeoutCancelsHandlers(t *testing.T) {
	b := newBus(zaptest.NewLogger(t), nil, 4, 1)

	started := make(chan struct{})
	b.SubscribeFunc(LaunchCompleted, func(ctx context.Context, _ Event) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, b.Publish(NewLaunchEvent(&domain.WorkflowState{Status: domain.StatusCompleted})))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.Shutdown(ctx), context.DeadlineExceeded)
}

func TestBus_UnsubscribeAndClose(t *testing.T) {
	b := NewBus(zaptest.NewLogger(t), nil, 8)

	var calls atomic.Int32
	sub := b.SubscribeFunc(LaunchFailed, func(context.Context, Event) error {
		calls.Add(1)
		return nil
	})
	sub.Unsubscribe()
	require.NoError(t, b.Dispatch(context.Background(), NewLaunchEvent(&domain.WorkflowState{Status: domain.StatusFailed})))
	assert.Zero(t, calls.Load())

	shutdown(t, b)
	assert.ErrorIs(t, b.Publish(NewTradeSettled(domain.TradeSettlement{})), ErrBusClosed)
}

func TestNewLaunchEvent(t *testing.T) {
	state := &domain.WorkflowState{StateID: "id", Status: domain.StatusFailed, CompletedSteps: []string{"a"}}
	ev := NewLaunchEvent(state)
	assert.Equal(t, LaunchFailed, ev.Type())
	state.CompletedSteps[0] = "mutated"
	assert.Equal(t, "a", ev.State.CompletedSteps[0])
}
