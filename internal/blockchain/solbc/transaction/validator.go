// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Validator checks operations before they leave the server (unsigned) or reach
// the cluster (signed).
type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateUnsigned checks a prepared operation: the expected wallet pays the fee,
// the blockhash is set and there is at least one instruction.
func (v *Validator) ValidateUnsigned(tx *solana.Transaction, feePayer solana.PublicKey) error {
	if err := v.ValidateFeePayer(tx, feePayer); err != nil {
		return err
	}
	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}
	return v.ValidateInstructions(tx.Message.Instructions)
}

// ValidateSigned checks a client-signed transaction before relaying it.
func (v *Validator) ValidateSigned(tx *solana.Transaction) error {
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}
	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}
	return v.ValidateInstructions(tx.Message.Instructions)
}

func (v *Validator) ValidateFeePayer(tx *solana.Transaction, feePayer solana.PublicKey) error {
	if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(feePayer) {
		v.logger.Warn("Fee payer mismatch", zap.String("expected", feePayer.String()))
		return fmt.Errorf("%w: expected %s", ErrInvalidFeePayer, feePayer)
	}
	return nil
}

func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) == 0 || len(tx.Signatures) < required {
		return ErrInvalidSignature
	}
	for i := 0; i < required; i++ {
		if tx.Signatures[i].IsZero() {
			return fmt.Errorf("%w: signature %d is empty", ErrInvalidSignature, i)
		}
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}
