package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// fakeClient is an in-memory blockchain.Client.
type fakeClient struct {
	mu              sync.Mutex
	accounts        map[solana.PublicKey]*rpc.Account
	programAccounts rpc.GetProgramAccountsResult
	txs             map[solana.Signature]*rpc.GetTransactionResult
	accountErr      error
	txErr           error
	blockhash       solana.Hash
	sent            []*solana.Transaction
	txCalls         int
	batches         []int // sizes of GetMultipleAccounts requests
}

var _ blockchain.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		accounts:  make(map[solana.PublicKey]*rpc.Account),
		txs:       make(map[solana.Signature]*rpc.GetTransactionResult),
		blockhash: solana.HashFromBytes([]byte("blockhash-blockhash-blockhash-32")),
	}
}

func (f *fakeClient) setAccount(addr, owner solana.PublicKey, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[addr] = &rpc.Account{Owner: owner, Data: rpc.DataBytesOrJSONFromBytes(data)}
}

func (f *fakeClient) GetRecentBlockhash(context.Context) (solana.Hash, error) {
	return f.blockhash, nil
}

func (f *fakeClient) GetAccountInfo(_ context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	acc, ok := f.accounts[pubkey]
	if !ok {
		return nil, fmt.Errorf("%w: not found", domain.ErrLedgerRejected)
	}
	return &rpc.GetAccountInfoResult{Value: acc}, nil
}

func (f *fakeClient) GetMultipleAccounts(_ context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, len(pubkeys))
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	out := &rpc.GetMultipleAccountsResult{Value: make([]*rpc.Account, len(pubkeys))}
	for i, k := range pubkeys {
		out.Value[i] = f.accounts[k]
	}
	return out, nil
}

func (f *fakeClient) GetProgramAccountsWithOpts(context.Context, solana.PublicKey, *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.programAccounts, nil
}

func (f *fakeClient) GetSignatureStatuses(context.Context, ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return &rpc.GetSignatureStatusesResult{}, nil
}

func (f *fakeClient) GetTransaction(_ context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCalls++
	if f.txErr != nil {
		return nil, f.txErr
	}
	res, ok := f.txs[sig]
	if !ok {
		return nil, fmt.Errorf("%w: transaction not found", domain.ErrLedgerRejected)
	}
	return res, nil
}

func (f *fakeClient) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ blockchain.TransactionOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func newTestGateway(t *testing.T, client *fakeClient) *SolanaGateway {
	t.Helper()
	opts := DefaultOptions()
	opts.Curve.FeeRecipient = solana.NewWallet().PublicKey()
	opts.Curve.VenueConfig = solana.NewWallet().PublicKey()
	opts.Tx = transaction.Config{MaxTries: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
	g, err := NewSolanaGateway(client, zaptest.NewLogger(t), opts)
	require.NoError(t, err)
	return g
}

// putCurve stores a bonding curve for mint and returns its address.
func putCurve(t *testing.T, client *fakeClient, g *SolanaGateway, curve *pumpfun.BondingCurve) solana.PublicKey {
	t.Helper()
	addr, err := pumpfun.DeriveBondingCurve(g.opts.Curve.ProgramID, curve.Mint)
	require.NoError(t, err)
	data, err := curve.Encode()
	require.NoError(t, err)
	client.setAccount(addr, g.opts.Curve.ProgramID, data)
	return addr
}

// txResult wraps tx into a finalized getTransaction result with the given meta.
func txResult(t *testing.T, tx *solana.Transaction, meta *rpc.TransactionMeta) *rpc.GetTransactionResult {
	t.Helper()
	if len(tx.Signatures) == 0 {
		tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	}
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	var env rpc.TransactionResultEnvelope
	payload, err := json.Marshal([]string{base64.StdEncoding.EncodeToString(raw), "base64"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(payload, &env))

	return &rpc.GetTransactionResult{Slot: 42, Transaction: &env, Meta: meta}
}

func decodeOperation(t *testing.T, op *PreparedOperation) *solana.Transaction {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(op.Transaction)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

func kindsOf(t *testing.T, g *SolanaGateway, tx *solana.Transaction) []OperationKind {
	t.Helper()
	classify := g.classifier()
	var out []OperationKind
	for _, ix := range tx.Message.Instructions {
		if k, ok := classify(tx.Message.AccountKeys[ix.ProgramIDIndex], ix.Data); ok {
			out = append(out, k)
		}
	}
	return out
}
