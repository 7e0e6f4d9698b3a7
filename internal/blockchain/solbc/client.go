// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// DefaultTimeout bounds every RPC call made through the client.
const DefaultTimeout = 5 * time.Second

// Client is a thin adapter over solana-go RPC. Each call picks the next healthy
// endpoint, runs under a fixed timeout and returns errors classified by Classify.
type Client struct {
	pool    *rpcPool
	logger  *zap.Logger
	timeout time.Duration
}

var _ blockchain.Client = (*Client)(nil)

// NewClient creates a client for a single endpoint.
func NewClient(rpcURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return NewPooledClient([]string{rpcURL}, timeout, 0, logger)
}

// NewPooledClient spreads calls over several RPC endpoints. An endpoint that fails
// with a transient error is skipped for cooldown.
func NewPooledClient(rpcURLs []string, timeout, cooldown time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		pool:    newRPCPool(rpcURLs, cooldown),
		logger:  logger.Named("solbc-client"),
		timeout: timeout,
	}
}

// HealthyEndpoints reports how many endpoints are currently in rotation.
func (c *Client) HealthyEndpoints() int {
	return c.pool.healthy()
}

// call runs fn against the next endpoint. A transient failure takes that endpoint
// out of rotation unless the caller's own context ended it.
func call[T any](ctx context.Context, c *Client, method string, fn func(context.Context, *rpc.Client) (T, error), fields ...zap.Field) (T, error) {
	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ep := c.pool.next()
	out, err := fn(cctx, ep.rpc)
	if err == nil {
		return out, nil
	}

	classified := Classify(method, err)
	log := c.logger.With(zap.String("method", method), zap.String("endpoint", ep.url))
	if ctx.Err() == nil && errors.Is(classified, domain.ErrLedgerUnavailable) {
		c.pool.markDown(ep)
		log.Warn("RPC endpoint cooling down", append(fields, zap.Error(err))...)
	} else {
		log.Debug("RPC call failed", append(fields, zap.Error(err))...)
	}
	var zero T
	return zero, classified
}

// GetRecentBlockhash returns the latest finalized blockhash.
func (c *Client) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	return call(ctx, c, "getLatestBlockhash", func(ctx context.Context, r *rpc.Client) (solana.Hash, error) {
		res, err := r.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
		if err != nil {
			return solana.Hash{}, err
		}
		return res.Value.Blockhash, nil
	})
}

func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	return call(ctx, c, "getAccountInfo", func(ctx context.Context, r *rpc.Client) (*rpc.GetAccountInfoResult, error) {
		return r.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		})
	}, zap.Stringer("pubkey", pubkey))
}

// GetMultipleAccounts reads several accounts in one request.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if len(pubkeys) == 0 {
		return &rpc.GetMultipleAccountsResult{}, nil
	}
	return call(ctx, c, "getMultipleAccounts", func(ctx context.Context, r *rpc.Client) (*rpc.GetMultipleAccountsResult, error) {
		return r.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
			Commitment: rpc.CommitmentConfirmed,
			Encoding:   solana.EncodingBase64,
		})
	}, zap.Int("count", len(pubkeys)))
}

func (c *Client) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	return call(ctx, c, "getProgramAccounts", func(ctx context.Context, r *rpc.Client) (rpc.GetProgramAccountsResult, error) {
		return r.GetProgramAccountsWithOpts(ctx, programID, opts)
	}, zap.Stringer("program_id", programID))
}

func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	return call(ctx, c, "getSignatureStatuses", func(ctx context.Context, r *rpc.Client) (*rpc.GetSignatureStatusesResult, error) {
		return r.GetSignatureStatuses(ctx, false, signatures...)
	}, zap.Int("count", len(signatures)))
}

// GetTransaction fetches a finalized transaction together with its balance metadata.
func (c *Client) GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	maxVersion := uint64(0)
	return call(ctx, c, "getTransaction", func(ctx context.Context, r *rpc.Client) (*rpc.GetTransactionResult, error) {
		return r.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     rpc.CommitmentFinalized,
			MaxSupportedTransactionVersion: &maxVersion,
		})
	}, zap.Stringer("signature", signature))
}

// SendTransactionWithOpts submits a signed transaction.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	return call(ctx, c, "sendTransaction", func(ctx context.Context, r *rpc.Client) (solana.Signature, error) {
		return r.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       opts.SkipPreflight,
			PreflightCommitment: opts.PreflightCommitment,
		})
	})
}
