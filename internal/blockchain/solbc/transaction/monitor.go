// internal/blockchain/solbc/transaction/monitor.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// Monitor fetches finalized transactions, polling a bounded number of times while the
// transaction is not yet visible.
type Monitor struct {
	client blockchain.Client
	logger *zap.Logger
	config Config
}

func NewMonitor(client blockchain.Client, logger *zap.Logger, config Config) *Monitor {
	def := DefaultConfig()
	if config.MaxTries == 0 {
		config.MaxTries = def.MaxTries
	}
	if config.InitialInterval <= 0 {
		config.InitialInterval = def.InitialInterval
	}
	if config.MaxInterval <= 0 {
		config.MaxInterval = def.MaxInterval
	}
	return &Monitor{
		client: client,
		logger: logger.Named("tx-monitor"),
		config: config,
	}
}

// AwaitFinalized returns the finalized transaction. Each attempt asks for the signature
// status first and skips getTransaction while the cluster reports a lower commitment.
// When the transaction never shows up the error wraps ErrNotVisible; when every attempt
// failed at the transport level the last ledger-unavailable error is returned.
func (m *Monitor) AwaitFinalized(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = m.config.InitialInterval
	policy.MaxInterval = m.config.MaxInterval

	notify := func(err error, d time.Duration) {
		m.logger.Debug("Transaction not finalized yet, retrying",
			zap.String("signature", signature.String()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (*rpc.GetTransactionResult, error) {
		status, err := m.GetStatus(ctx, signature)
		switch {
		case err != nil:
			m.logger.Debug("Signature status unavailable, reading transaction",
				zap.String("signature", signature.String()),
				zap.Error(err))
		case status != nil && status.ConfirmationStatus != rpc.ConfirmationStatusFinalized:
			return nil, fmt.Errorf("%w: %s is %s", ErrNotVisible, signature, status.ConfirmationStatus)
		}

		res, err := m.client.GetTransaction(ctx, signature)
		if err != nil {
			if errors.Is(err, domain.ErrLedgerRejected) {
				// null result: not finalized (or unknown) yet
				return nil, fmt.Errorf("%w: %s", ErrNotVisible, signature)
			}
			return nil, err
		}
		if res == nil || res.Meta == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotVisible, signature)
		}
		return res, nil
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(m.config.MaxTries),
		backoff.WithNotify(notify))
	if err != nil {
		return nil, err
	}
	return res, nil
}

// GetStatus returns the signature status without history search. A nil status means
// the signature is unknown to the cluster or too old for the status cache.
func (m *Monitor) GetStatus(ctx context.Context, signature solana.Signature) (*rpc.SignatureStatusesResult, error) {
	response, err := m.client.GetSignatureStatuses(ctx, signature)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction status: %w", err)
	}
	if response == nil || len(response.Value) == 0 {
		return nil, nil
	}
	return response.Value[0], nil
}
