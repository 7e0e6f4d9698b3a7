// internal/ledger/operations.go
package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/token"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpfun"
	"github.com/rovshanmuradov/launchpad-settlement/internal/dex/pumpswap"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// BuildOperation prepares one unsigned transaction of the given kind paid by
// params.FeePayer. Launch operations come back partially signed by a fresh mint key.
func (g *SolanaGateway) BuildOperation(ctx context.Context, kind OperationKind, params OperationParams) (op *PreparedOperation, err error) {
	defer g.observe("BuildOperation", time.Now(), &err)

	if params.FeePayer.IsZero() {
		return nil, fmt.Errorf("%w: fee payer is required", domain.ErrInvalidRequest)
	}

	var (
		instructions []solana.Instruction
		signers      []solana.PrivateKey
	)
	op = &PreparedOperation{
		Kind:           kind,
		FeePayer:       params.FeePayer.String(),
		AmountLamports: params.Amount,
		Mint:           params.Asset.String(),
	}
	if t, ok := kind.FeeType(); ok {
		op.FeeType = t
	}

	switch kind {
	case OpClaimTradingFee, OpWithdrawMigrationFee:
		instructions, err = g.claimCurveInstructions(kind, params)
	case OpClaimPoolFee:
		instructions, err = g.claimPoolInstructions(ctx, params)
	case OpLaunch:
		var mint solana.PrivateKey
		instructions, mint, err = g.launchInstructions(params)
		if err == nil {
			signers = append(signers, mint)
			op.Mint = mint.PublicKey().String()
		}
	case OpBuy:
		var tokens uint64
		instructions, tokens, err = g.buyInstructions(ctx, params)
		op.TokenAmount = tokens
	case OpBurn:
		instructions, err = g.burnInstructions(params)
		op.AmountLamports = 0
		op.TokenAmount = params.Amount
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}

	tx, blockhash, err := g.compile(ctx, params.FeePayer, instructions, signers)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	encoded, err := encodeTransaction(tx)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", kind, err)
	}
	op.Transaction = encoded
	op.Blockhash = blockhash.String()

	g.logger.Debug("Operation prepared",
		zap.String("kind", string(kind)),
		zap.String("fee_payer", op.FeePayer),
		zap.String("mint", op.Mint),
		zap.Int("instructions", len(instructions)))
	return op, nil
}

// Submit relays a client-signed base64 transaction.
func (g *SolanaGateway) Submit(ctx context.Context, signedTx string) (sig solana.Signature, err error) {
	defer g.observe("Submit", time.Now(), &err)

	raw, err := base64.StdEncoding.DecodeString(signedTx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: transaction is not base64: %v", domain.ErrInvalidRequest, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: decode transaction: %v", domain.ErrInvalidRequest, err)
	}
	if err := g.manager.Validator().ValidateSigned(tx); err != nil {
		return solana.Signature{}, fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return g.manager.Send(ctx, tx)
}

// budgetInstructions returns the compute budget prefix shared by every operation.
func (g *SolanaGateway) budgetInstructions() []solana.Instruction {
	out := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(g.opts.ComputeUnitLimit).Build(),
	}
	if g.opts.PriorityFeeMicro > 0 {
		out = append(out, computebudget.NewSetComputeUnitPriceInstruction(g.opts.PriorityFeeMicro).Build())
	}
	return out
}

func (g *SolanaGateway) claimCurveInstructions(kind OperationKind, params OperationParams) ([]solana.Instruction, error) {
	curve := params.Position
	if curve.IsZero() {
		var err error
		if curve, err = g.curveAddress(params.Asset); err != nil {
			return nil, err
		}
	}
	accounts := pumpfun.ClaimAccounts{
		Claimant:     params.FeePayer,
		Mint:         params.Asset,
		BondingCurve: curve,
	}

	var (
		ix  solana.Instruction
		err error
	)
	if kind == OpClaimTradingFee {
		ix, err = pumpfun.ClaimTradingFee(g.opts.Curve, accounts)
	} else {
		ix, err = pumpfun.WithdrawMigrationFee(g.opts.Curve, accounts)
	}
	if err != nil {
		return nil, err
	}
	return append(g.budgetInstructions(), ix), nil
}

func (g *SolanaGateway) claimPoolInstructions(ctx context.Context, params OperationParams) ([]solana.Instruction, error) {
	if len(params.LiquidityPositions) == 0 {
		return nil, fmt.Errorf("%w: no liquidity positions to claim", domain.ErrInvalidRequest)
	}
	poolAddr := params.AmmPool
	if poolAddr.IsZero() {
		var err error
		if poolAddr, err = g.poolAddress(params.Asset); err != nil {
			return nil, err
		}
	}
	pool, err := g.fetchPool(ctx, poolAddr)
	if err != nil {
		return nil, err
	}

	instructions := g.budgetInstructions()
	instructions = append(instructions,
		createATAIdempotent(params.FeePayer, params.FeePayer, pool.BaseMint),
		createATAIdempotent(params.FeePayer, params.FeePayer, pool.QuoteMint),
	)
	for _, position := range params.LiquidityPositions {
		ix, err := pumpswap.ClaimPositionFee(g.opts.Amm, pumpswap.ClaimPositionFeeParams{
			Pool:      poolAddr,
			PoolState: pool,
			Position:  position,
			Owner:     params.FeePayer,
		})
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, ix)
	}
	return instructions, nil
}

func (g *SolanaGateway) launchInstructions(params OperationParams) ([]solana.Instruction, solana.PrivateKey, error) {
	if params.Launch == nil {
		return nil, nil, fmt.Errorf("%w: launch parameters are required", domain.ErrInvalidRequest)
	}
	mint, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("generate mint key: %w", err)
	}
	ix, err := pumpfun.Create(g.opts.Curve,
		pumpfun.CreateAccounts{Mint: mint.PublicKey(), Creator: params.FeePayer},
		pumpfun.CreateArgs{
			Name:           params.Launch.Name,
			Symbol:         params.Launch.Symbol,
			URI:            params.Launch.MetadataURI,
			Creator:        params.FeePayer,
			TaggedClaimant: params.Launch.TaggedClaimant,
		})
	if err != nil {
		return nil, nil, err
	}
	return append(g.budgetInstructions(), ix), mint, nil
}

// buyInstructions quotes a buy of params.Amount lamports against a fresh curve.
func (g *SolanaGateway) buyInstructions(ctx context.Context, params OperationParams) ([]solana.Instruction, uint64, error) {
	if params.Amount == 0 {
		return nil, 0, fmt.Errorf("%w: buy amount must be positive", domain.ErrInvalidRequest)
	}
	global, err := g.curveGlobal(ctx)
	if err != nil {
		return nil, 0, err
	}
	tokens, err := global.InitialBuyQuote(params.Amount)
	if err != nil {
		return nil, 0, err
	}
	if tokens == 0 {
		return nil, 0, fmt.Errorf("%w: buy of %d lamports yields no tokens", domain.ErrInvalidRequest, params.Amount)
	}
	maxCost := params.Amount + params.Amount*g.opts.PreBuySlippageBps/10_000

	cfg := *g.opts.Curve
	if cfg.FeeRecipient.IsZero() {
		cfg.FeeRecipient = global.FeeRecipient
	}
	ix, err := pumpfun.Buy(&cfg, params.FeePayer, params.Asset, pumpfun.BuyArgs{Amount: tokens, MaxSolCost: maxCost})
	if err != nil {
		return nil, 0, err
	}

	instructions := g.budgetInstructions()
	instructions = append(instructions,
		createATAIdempotent(params.FeePayer, params.FeePayer, params.Asset),
		ix,
	)
	return instructions, tokens, nil
}

func (g *SolanaGateway) burnInstructions(params OperationParams) ([]solana.Instruction, error) {
	if params.Amount == 0 {
		return nil, fmt.Errorf("%w: burn amount must be positive", domain.ErrInvalidRequest)
	}
	source, _, err := solana.FindAssociatedTokenAddress(params.FeePayer, params.Asset)
	if err != nil {
		return nil, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	ix := token.NewBurnInstruction(params.Amount, source, params.Asset, params.FeePayer, nil).Build()
	return append(g.budgetInstructions(), ix), nil
}

// compile assembles and validates the transaction, adding extra signatures where
// the server holds the key.
func (g *SolanaGateway) compile(ctx context.Context, feePayer solana.PublicKey, instructions []solana.Instruction, signers []solana.PrivateKey) (*solana.Transaction, solana.Hash, error) {
	blockhash, err := g.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, solana.Hash{}, err
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(feePayer))
	if err != nil {
		return nil, solana.Hash{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := g.manager.Validator().ValidateUnsigned(tx, feePayer); err != nil {
		return nil, solana.Hash{}, err
	}

	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	if len(signers) > 0 {
		if err := partialSign(tx, signers); err != nil {
			return nil, solana.Hash{}, err
		}
	}
	return tx, blockhash, nil
}

// partialSign fills the signature slots of the given keys and leaves the rest empty
// for the client wallet.
func partialSign(tx *solana.Transaction, signers []solana.PrivateKey) error {
	message, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to serialize message: %w", err)
	}
	for _, key := range signers {
		slot := -1
		for i := 0; i < len(tx.Signatures) && i < len(tx.Message.AccountKeys); i++ {
			if tx.Message.AccountKeys[i].Equals(key.PublicKey()) {
				slot = i
				break
			}
		}
		if slot < 0 {
			return fmt.Errorf("%w: %s is not a required signer", transaction.ErrInvalidSignature, key.PublicKey())
		}
		sig, err := key.Sign(message)
		if err != nil {
			return fmt.Errorf("failed to sign transaction: %w", err)
		}
		tx.Signatures[slot] = sig
	}
	return nil
}

func encodeTransaction(tx *solana.Transaction) (string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// createATAIdempotent creates owner's associated token account for mint unless it exists.
func createATAIdempotent(payer, owner, mint solana.PublicKey) solana.Instruction {
	ata, _, _ := solana.FindAssociatedTokenAddress(owner, mint)
	metas := []*solana.AccountMeta{
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(ata, true, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	// tag 1 is CreateIdempotent
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, []byte{1})
}
