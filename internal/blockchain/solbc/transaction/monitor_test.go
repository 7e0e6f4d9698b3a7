package transaction

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// fakeClient answers GetTransaction from a scripted sequence of results.
type fakeClient struct {
	blockchain.Client
	calls   atomic.Int32
	results []func() (*rpc.GetTransactionResult, error)

	statusCalls atomic.Int32
	statuses    []*rpc.SignatureStatusesResult // nil entries mean unknown signature
	statusErr   error
	sent    []*solana.Transaction
	sendErr error
}

func (f *fakeClient) GetTransaction(_ context.Context, _ solana.Signature) (*rpc.GetTransactionResult, error) {
	i := int(f.calls.Add(1)) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]()
}

func (f *fakeClient) GetSignatureStatuses(_ context.Context, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	i := int(f.statusCalls.Add(1)) - 1
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{f.statuses[i]}}, nil
}

func (f *fakeClient) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ blockchain.TransactionOptions) (solana.Signature, error) {
	f.calls.Add(1)
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func fastConfig() Config {
	return Config{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func notFound() (*rpc.GetTransactionResult, error) {
	return nil, &wrapped{domain.ErrLedgerRejected}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "rpc: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestMonitor_AwaitFinalized_EventuallyVisible(t *testing.T) {
	found := &rpc.GetTransactionResult{Slot: 42, Meta: &rpc.TransactionMeta{Fee: 5000}}
	client := &fakeClient{results: []func() (*rpc.GetTransactionResult, error){
		notFound,
		func() (*rpc.GetTransactionResult, error) { return found, nil },
	}}

	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())
	res, err := m.AwaitFinalized(context.Background(), solana.Signature{1})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), res.Slot)
	assert.Equal(t, int32(2), client.calls.Load())
}

func TestMonitor_AwaitFinalized_BoundedTries(t *testing.T) {
	client := &fakeClient{results: []func() (*rpc.GetTransactionResult, error){notFound}}

	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())
	_, err := m.AwaitFinalized(context.Background(), solana.Signature{2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotVisible)
	assert.Equal(t, int32(3), client.calls.Load())
}

func TestMonitor_AwaitFinalized_Unavailable(t *testing.T) {
	client := &fakeClient{results: []func() (*rpc.GetTransactionResult, error){
		func() (*rpc.GetTransactionResult, error) { return nil, &wrapped{domain.ErrLedgerUnavailable} },
	}}

	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())
	_, err := m.AwaitFinalized(context.Background(), solana.Signature{3})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
	assert.NotErrorIs(t, err, ErrNotVisible)
}

func TestMonitor_AwaitFinalized_WaitsOnStatus(t *testing.T) {
	found := &rpc.GetTransactionResult{Slot: 7, Meta: &rpc.TransactionMeta{}}
	client := &fakeClient{
		results: []func() (*rpc.GetTransactionResult, error){
			func() (*rpc.GetTransactionResult, error) { return found, nil },
		},
		statuses: []*rpc.SignatureStatusesResult{
			{Slot: 7, ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
			{Slot: 7, ConfirmationStatus: rpc.ConfirmationStatusFinalized},
		},
	}

	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())
	res, err := m.AwaitFinalized(context.Background(), solana.Signature{3})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.Slot)
	assert.Equal(t, int32(2), client.statusCalls.Load())
	assert.Equal(t, int32(1), client.calls.Load(), "getTransaction only after finality")
}

func TestMonitor_AwaitFinalized_StatusNeverFinal(t *testing.T) {
	client := &fakeClient{
		results: []func() (*rpc.GetTransactionResult, error){notFound},
		statuses: []*rpc.SignatureStatusesResult{
			{Slot: 7, ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		},
	}

	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())
	_, err := m.AwaitFinalized(context.Background(), solana.Signature{4})
	assert.ErrorIs(t, err, ErrNotVisible)
	assert.Zero(t, client.calls.Load())
}

func TestMonitor_AwaitFinalized_StatusErrorFallsBack(t *testing.T) {
	found := &rpc.GetTransactionResult{Slot: 9, Meta: &rpc.TransactionMeta{}}
	client := &fakeClient{
		results:   []func() (*rpc.GetTransactionResult, error){func() (*rpc.GetTransactionResult, error) { return found, nil }},
		statusErr: &wrapped{domain.ErrLedgerUnavailable},
	}

	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())
	res, err := m.AwaitFinalized(context.Background(), solana.Signature{5})
	require.NoError(t, err)
	assert.Equal(t, uint64(9), res.Slot)
}

func TestMonitor_GetStatus(t *testing.T) {
	client := &fakeClient{statuses: []*rpc.SignatureStatusesResult{{Slot: 11, ConfirmationStatus: rpc.ConfirmationStatusFinalized}}}
	m := NewMonitor(client, zaptest.NewLogger(t), fastConfig())

	st, err := m.GetStatus(context.Background(), solana.Signature{6})
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, uint64(11), st.Slot)

	client.statusErr = &wrapped{domain.ErrLedgerUnavailable}
	_, err = m.GetStatus(context.Background(), solana.Signature{6})
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}
