// internal/ledger/outcome.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc"
	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// SPL token instruction tags that destroy supply.
const (
	tokenInstructionBurn        = 8
	tokenInstructionBurnChecked = 15
)

// GetTransactionOutcome polls for the finalized transaction a bounded number of times.
// A transaction that never appears yields Finalized=false without an error; transport
// failures on every try yield domain.ErrLedgerUnavailable.
func (g *SolanaGateway) GetTransactionOutcome(ctx context.Context, signature solana.Signature) (out *TxOutcome, err error) {
	defer g.observe("GetTransactionOutcome", time.Now(), &err)

	res, err := g.monitor.AwaitFinalized(ctx, signature)
	if err != nil {
		if errors.Is(err, transaction.ErrNotVisible) {
			g.logger.Info("Transaction not finalized within polling budget",
				zap.String("signature", signature.String()))
			return &TxOutcome{Signature: signature}, nil
		}
		if !errors.Is(err, domain.ErrLedgerUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		return nil, fmt.Errorf("transaction outcome %s: %w", signature, err)
	}
	return ParseOutcome(signature, res, g.classifier())
}

// GetTransactionOutcomes fetches outcomes concurrently. Results keep input order and
// one failing lookup never cancels the others.
func (g *SolanaGateway) GetTransactionOutcomes(ctx context.Context, signatures []solana.Signature) []OutcomeResult {
	results := make([]OutcomeResult, len(signatures))

	var eg errgroup.Group
	eg.SetLimit(g.opts.OutcomeConcurrency)
	for i, sig := range signatures {
		eg.Go(func() error {
			outcome, err := g.GetTransactionOutcome(ctx, sig)
			results[i] = OutcomeResult{Signature: sig, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// Classifier maps a top-level instruction onto an OperationKind.
type Classifier func(programID solana.PublicKey, data []byte) (OperationKind, bool)

func (g *SolanaGateway) classifier() Classifier {
	return NewClassifier(g.opts.Curve.ProgramID, g.opts.Amm.ProgramID)
}

// NewClassifier recognises bonding-curve, AMM and SPL token burn instructions.
func NewClassifier(curveProgram, ammProgram solana.PublicKey) Classifier {
	return func(programID solana.PublicKey, data []byte) (OperationKind, bool) {
		switch {
		case programID.Equals(curveProgram):
			switch pumpfun.ClassifyInstruction(data) {
			case pumpfun.InstructionClaimTradingFee:
				return OpClaimTradingFee, true
			case pumpfun.InstructionWithdrawMigrationFee:
				return OpWithdrawMigrationFee, true
			case pumpfun.InstructionCreate:
				return OpLaunch, true
			case pumpfun.InstructionBuy:
				return OpBuy, true
			case pumpfun.InstructionSell:
				return OpSell, true
			}
		case programID.Equals(ammProgram):
			switch pumpswap.ClassifyInstruction(data) {
			case pumpswap.InstructionClaimPositionFee:
				return OpClaimPoolFee, true
			case pumpswap.InstructionBuy:
				return OpBuy, true
			case pumpswap.InstructionSell:
				return OpSell, true
			}
		case programID.Equals(solana.TokenProgramID):
			if len(data) > 0 && (data[0] == tokenInstructionBurn || data[0] == tokenInstructionBurnChecked) {
				return OpBurn, true
			}
		}
		return "", false
	}
}

// ParseOutcome turns a finalized getTransaction result into a TxOutcome.
func ParseOutcome(signature solana.Signature, res *rpc.GetTransactionResult, classify Classifier) (*TxOutcome, error) {
	if res == nil || res.Meta == nil || res.Transaction == nil {
		return nil, fmt.Errorf("%w: empty transaction result for %s", domain.ErrLedgerRejected, signature)
	}
	tx, err := res.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("%w: decode transaction %s: %v", domain.ErrLedgerRejected, signature, err)
	}

	meta := res.Meta
	keys := make([]solana.PublicKey, 0, len(tx.Message.AccountKeys)+len(meta.LoadedAddresses.Writable)+len(meta.LoadedAddresses.ReadOnly))
	keys = append(keys, tx.Message.AccountKeys...)
	keys = append(keys, meta.LoadedAddresses.Writable...)
	keys = append(keys, meta.LoadedAddresses.ReadOnly...)
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: transaction %s has no accounts", domain.ErrLedgerRejected, signature)
	}

	out := &TxOutcome{
		Signature:    signature,
		Finalized:    true,
		Err:          solbc.DescribeTransactionError(meta.Err),
		Signer:       keys[0],
		Fee:          meta.Fee,
		Slot:         res.Slot,
		NativeDeltas: make(map[solana.PublicKey]int64),
		TokenDeltas:  make(map[TokenKey]int64),
	}
	if res.BlockTime != nil {
		out.BlockTime = res.BlockTime.Time()
	}

	for i := 0; i < len(keys) && i < len(meta.PreBalances) && i < len(meta.PostBalances); i++ {
		if d := int64(meta.PostBalances[i]) - int64(meta.PreBalances[i]); d != 0 {
			out.NativeDeltas[keys[i]] += d
		}
	}

	seen := make(map[solana.PublicKey]struct{})
	addToken := func(balances []rpc.TokenBalance, sign int64) error {
		for _, b := range balances {
			if _, ok := seen[b.Mint]; !ok {
				seen[b.Mint] = struct{}{}
				out.InvolvedAssets = append(out.InvolvedAssets, b.Mint)
			}
			owner, ok := tokenOwner(b, keys)
			if !ok || b.UiTokenAmount == nil {
				continue
			}
			amount, err := strconv.ParseInt(b.UiTokenAmount.Amount, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: token amount %q: %v", domain.ErrLedgerRejected, b.UiTokenAmount.Amount, err)
			}
			out.TokenDeltas[TokenKey{Owner: owner, Mint: b.Mint}] += sign * amount
		}
		return nil
	}
	if err := addToken(meta.PreTokenBalances, -1); err != nil {
		return nil, err
	}
	if err := addToken(meta.PostTokenBalances, 1); err != nil {
		return nil, err
	}

	if classify != nil {
		kinds := make(map[OperationKind]struct{})
		for _, ix := range tx.Message.Instructions {
			if int(ix.ProgramIDIndex) >= len(keys) {
				continue
			}
			kind, ok := classify(keys[ix.ProgramIDIndex], ix.Data)
			if !ok {
				continue
			}
			if _, dup := kinds[kind]; !dup {
				kinds[kind] = struct{}{}
				out.Kinds = append(out.Kinds, kind)
			}
		}
	}
	return out, nil
}

func tokenOwner(b rpc.TokenBalance, keys []solana.PublicKey) (solana.PublicKey, bool) {
	if b.Owner != nil {
		return *b.Owner, true
	}
	if int(b.AccountIndex) < len(keys) {
		return keys[b.AccountIndex], true
	}
	return solana.PublicKey{}, false
}
