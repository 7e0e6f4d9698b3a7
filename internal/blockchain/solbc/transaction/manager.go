// internal/blockchain/solbc/transaction/manager.go
package transaction

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// Manager relays client-signed transactions to the cluster. It never signs.
type Manager struct {
	client    blockchain.Client
	logger    *zap.Logger
	config    Config
	validator *Validator
}

func NewManager(client blockchain.Client, logger *zap.Logger, config Config) *Manager {
	if config.MaxTries == 0 {
		config.MaxTries = DefaultConfig().MaxTries
	}
	return &Manager{
		client:    client,
		logger:    logger.Named("tx-manager"),
		config:    config,
		validator: NewValidator(logger),
	}
}

// Validator exposes the validator used for prepared operations.
func (tm *Manager) Validator() *Validator {
	return tm.validator
}

// Send validates and submits a signed transaction. Transient failures are retried a
// bounded number of times; rejections are returned immediately.
func (tm *Manager) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := tm.validator.ValidateSigned(tx); err != nil {
		tm.logger.Error("Transaction validation failed", zap.Error(err))
		return solana.Signature{}, err
	}

	operation := func() (solana.Signature, error) {
		sig, err := tm.client.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
			SkipPreflight:       tm.config.SkipPreflight,
			PreflightCommitment: tm.config.Commitment,
		})
		if err != nil {
			if errors.Is(err, domain.ErrLedgerRejected) {
				return solana.Signature{}, backoff.Permanent(err)
			}
			tm.logger.Warn("Retrying transaction send", zap.Error(err))
			return solana.Signature{}, err
		}
		return sig, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(tm.config.MaxTries))
}
