// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
)

var (
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrInvalidFeePayer    = errors.New("invalid fee payer")

	// ErrNotVisible means the transaction never appeared at finalized commitment
	// within the polling budget.
	ErrNotVisible = errors.New("transaction not visible at finalized commitment")
)

// Config bounds polling and submission retries.
type Config struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	SkipPreflight   bool
	Commitment      rpc.CommitmentType
}

// DefaultConfig returns the polling budget used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxTries:        4,
		InitialInterval: 400 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Commitment:      rpc.CommitmentConfirmed,
	}
}
