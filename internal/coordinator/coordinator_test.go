package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad-settlement/internal/claim"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/entitlement"
	"github.com/rovshanmuradov/launchpad-settlement/internal/events"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger/ledgertest"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage/memory"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

type fixture struct {
	gw     *ledgertest.Gateway
	store  *memory.Store
	events *recorder
	coord  *Coordinator
}

func newFixture(t *testing.T, workflows storage.WorkflowStore) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	gw := ledgertest.New()
	store := memory.New()
	if workflows == nil {
		workflows = store
	}
	rec := &recorder{}
	calc := entitlement.NewCalculator(gw, logger, entitlement.DefaultConfig())
	coord, err := New(Deps{
		Gateway:     gw,
		Calculator:  calc,
		Builder:     claim.NewBuilder(gw, logger, nil, calc.MinClaimFloor()),
		Verifier:    verify.NewVerifier(gw, store, logger, nil, verify.DefaultTradeTolerance),
		Settlements: store,
		Workflows:   workflows,
		Events:      rec,
		VenueConfig: solana.NewWallet().PublicKey(),
	}, logger)
	require.NoError(t, err)
	return &fixture{gw: gw, store: store, events: rec, coord: coord}
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Deps{}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestTradingFeeClaim_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	creator := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()
	f.gw.AddPosition(domain.Position{Asset: asset, Creator: creator, AccumulatedTradingFee: 50_000_000})

	preview, err := f.coord.Entitlement(ctx, asset, creator, domain.RoleCreator)
	require.NoError(t, err)
	assert.Equal(t, map[domain.FeeType]uint64{domain.FeeTrading: 50_000_000}, preview.Entitlement.Fees)
	assert.Equal(t, "0.05", preview.Entitlement.Display()[domain.FeeTrading].String())
	assert.Equal(t, []domain.FeeType{domain.FeeTrading}, preview.Eligible)

	res, err := f.coord.BuildClaim(ctx, domain.ClaimRequest{Wallet: creator, Asset: asset, Role: domain.RoleCreator})
	require.NoError(t, err)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, ledger.OpClaimTradingFee, res.Operations[0].Kind)

	sig := ledgertest.RandomSignature()
	out := ledgertest.Succeeded(sig, creator, ledger.OpClaimTradingFee)
	out.NativeDeltas[creator] = 1_049_995_000 - 1_000_000_000
	f.gw.SetOutcome(out)

	checks, err := f.coord.VerifyClaim(ctx, verify.ClaimReport{
		Wallet: creator, Asset: asset, Role: domain.RoleCreator, Signatures: []string{sig.String()},
	})
	require.NoError(t, err)
	require.Len(t, checks, 1)
	assert.True(t, checks[0].Success)

	history, err := f.coord.ClaimHistory(ctx, creator.String(), asset.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.FeeTrading, history[0].FeeType)
	assert.Equal(t, "0.05", domain.LamportsToSOL(history[0].AmountLamports).String())

	require.Equal(t, []events.EventType{events.ClaimSettled}, f.events.types())
	ev := f.events.events[0].(*events.ClaimSettledEvent)
	assert.True(t, ev.Recorded)
	assert.Equal(t, sig.String(), ev.Claim.Signature)
}

func TestBuildClaim_UnknownAsset(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.coord.BuildClaim(context.Background(), domain.ClaimRequest{
		Wallet: solana.NewWallet().PublicKey(),
		Asset:  solana.NewWallet().PublicKey(),
		Role:   domain.RoleCreator,
	})
	assert.ErrorIs(t, err, domain.ErrNoClaimableEntitlement)
}

func TestBuildClaim_RoleCheckedAgainstPosition(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	creator := solana.NewWallet().PublicKey()
	tagged := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()
	f.gw.AddPosition(domain.Position{
		Asset: asset, Creator: creator, TaggedClaimant: tagged,
		Migrated: true, AccumulatedTradingFee: 50_000_000,
	})

	for _, wallet := range []solana.PublicKey{tagged, solana.NewWallet().PublicKey()} {
		_, err := f.coord.BuildClaim(ctx, domain.ClaimRequest{Wallet: wallet, Asset: asset, Role: domain.RoleCreator})
		assert.ErrorIs(t, err, domain.ErrNoClaimableEntitlement, wallet.String())
	}
	assert.Empty(t, f.gw.BuiltKinds)

	res, err := f.coord.BuildClaim(ctx, domain.ClaimRequest{Wallet: tagged, Asset: asset, Role: domain.RoleTagged})
	require.NoError(t, err)
	require.Len(t, res.Operations, 1)
	assert.Equal(t, ledger.OpClaimTradingFee, res.Operations[0].Kind)

	res, err = f.coord.BuildClaim(ctx, domain.ClaimRequest{Wallet: creator, Asset: asset, Role: domain.RoleCreator})
	require.NoError(t, err)
	require.Len(t, res.Operations, 2)
	assert.Equal(t, ledger.OpWithdrawMigrationFee, res.Operations[1].Kind)

	preview, err := f.coord.Entitlement(ctx, asset, tagged, domain.RoleCreator)
	require.NoError(t, err)
	assert.Contains(t, preview.Entitlement.Fees, domain.FeeMigration, "previews still show every present fee")
	assert.Empty(t, preview.Eligible)
}

func TestEntitlements_Batch(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	creator := solana.NewWallet().PublicKey()
	first := solana.NewWallet().PublicKey()
	second := solana.NewWallet().PublicKey()
	unknown := solana.NewWallet().PublicKey()
	f.gw.AddPosition(domain.Position{Asset: first, Creator: creator, AccumulatedTradingFee: 50_000_000})
	f.gw.AddPosition(domain.Position{Asset: second, Creator: creator, Migrated: true})

	results, err := f.coord.Entitlements(ctx, []solana.PublicKey{first, second, unknown}, creator, domain.RoleCreator)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, first, results[0].Asset)
	assert.Equal(t, []domain.FeeType{domain.FeeTrading}, results[0].Preview.Eligible)
	assert.Equal(t, []domain.FeeType{domain.FeeMigration}, results[1].Preview.Eligible)
	assert.False(t, results[2].Preview.Entitlement.Found)
	assert.Empty(t, results[2].Preview.Eligible)
	assert.Equal(t, 1, f.gw.PositionBatches)

	_, err = f.coord.Entitlements(ctx, nil, creator, domain.RoleCreator)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = f.coord.Entitlements(ctx, make([]solana.PublicKey, MaxPreviewAssets+1), creator, domain.RoleCreator)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	f.gw.PositionErr = fmt.Errorf("%w: timeout", domain.ErrLedgerUnavailable)
	results, err = f.coord.Entitlements(ctx, []solana.PublicKey{first}, creator, domain.RoleCreator)
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, domain.ErrLedgerUnavailable)
	assert.Nil(t, results[0].Preview)
}

func TestBuildClaim_LedgerUnavailable(t *testing.T) {
	f := newFixture(t, nil)
	f.gw.PositionErr = fmt.Errorf("%w: timeout", domain.ErrLedgerUnavailable)
	_, err := f.coord.BuildClaim(context.Background(), domain.ClaimRequest{
		Wallet: solana.NewWallet().PublicKey(),
		Asset:  solana.NewWallet().PublicKey(),
	})
	assert.ErrorIs(t, err, domain.ErrLedgerUnavailable)
}

func TestVerifyTrade_PublishesSettlement(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	wallet := solana.NewWallet().PublicKey()
	asset := solana.NewWallet().PublicKey()

	sig := ledgertest.RandomSignature()
	out := ledgertest.Succeeded(sig, wallet, ledger.OpSell)
	out.NativeDeltas[wallet] = 1_000_000_000
	out.InvolvedAssets = []solana.PublicKey{asset}
	f.gw.SetOutcome(out)

	res, err := f.coord.VerifyTrade(ctx, verify.TradeReport{
		Wallet: wallet, Asset: asset, Direction: domain.DirectionSell,
		ClaimedAmount: domain.LamportsToSOL(900_000_000), Signature: sig.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "1", res.SettledAmount.String())
	assert.Equal(t, []events.EventType{events.TradeSettled}, f.events.types())

	trades, err := f.coord.TradeHistory(ctx, wallet.String(), 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	_, err = f.coord.VerifyTrade(ctx, verify.TradeReport{
		Wallet: wallet, Asset: asset, Direction: domain.DirectionSell,
		ClaimedAmount: domain.LamportsToSOL(900_000_000), Signature: sig.String(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateSignature)
	assert.Len(t, f.events.types(), 1)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, nil)
	f.events.err = events.ErrBusFull
	wallet := solana.NewWallet().PublicKey()

	sig := ledgertest.RandomSignature()
	out := ledgertest.Succeeded(sig, wallet, ledger.OpClaimPoolFee)
	out.NativeDeltas[wallet] = 20_000_000
	f.gw.SetOutcome(out)

	checks, err := f.coord.VerifyClaim(context.Background(), verify.ClaimReport{
		Wallet: wallet, Asset: solana.NewWallet().PublicKey(), Signatures: []string{sig.String()},
	})
	require.NoError(t, err)
	assert.True(t, checks[0].Success)
}

// brokenClaims fails every claim insert.
type brokenClaims struct {
	*memory.Store
}

func (b *brokenClaims) InsertClaim(context.Context, *domain.ClaimSettlement) error {
	return errors.New("connection reset")
}

func TestVerifyClaim_EventsOnlyForSettledFees(t *testing.T) {
	logger := zaptest.NewLogger(t)
	gw := ledgertest.New()
	store := &brokenClaims{Store: memory.New()}
	rec := &recorder{}
	calc := entitlement.NewCalculator(gw, logger, entitlement.DefaultConfig())
	coord, err := New(Deps{
		Gateway:     gw,
		Calculator:  calc,
		Builder:     claim.NewBuilder(gw, logger, nil, calc.MinClaimFloor()),
		Verifier:    verify.NewVerifier(gw, store, logger, nil, verify.DefaultTradeTolerance),
		Settlements: store,
		Workflows:   store,
		Events:      rec,
	}, logger)
	require.NoError(t, err)
	wallet := solana.NewWallet().PublicKey()

	noClaim := ledgertest.RandomSignature()
	gw.SetOutcome(ledgertest.Succeeded(noClaim, wallet, ledger.OpBuy))
	unrecorded := ledgertest.RandomSignature()
	out := ledgertest.Succeeded(unrecorded, wallet, ledger.OpClaimTradingFee)
	out.NativeDeltas[wallet] = 50_000_000
	gw.SetOutcome(out)

	report := verify.ClaimReport{
		Wallet: wallet, Asset: solana.NewWallet().PublicKey(),
		Signatures: []string{noClaim.String(), unrecorded.String()},
	}
	for i := 0; i < 3; i++ {
		checks, err := coord.VerifyClaim(context.Background(), report)
		require.NoError(t, err)
		require.Len(t, checks, 2)
		assert.True(t, checks[0].Success)
		assert.Empty(t, checks[0].FeeType)
		assert.True(t, checks[1].Success)
		assert.Nil(t, checks[1].Settlement)
	}

	require.Equal(t, []events.EventType{events.ClaimSettled}, rec.types())
	ev := rec.events[0].(*events.ClaimSettledEvent)
	assert.Equal(t, unrecorded.String(), ev.Claim.Signature)
	assert.Equal(t, domain.FeeTrading, ev.Claim.FeeType)
	assert.False(t, ev.Recorded)
}

func TestVerifyClaim_RequiresSignatures(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.coord.VerifyClaim(context.Background(), verify.ClaimReport{Wallet: solana.NewWallet().PublicKey()})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSubmit(t *testing.T) {
	f := newFixture(t, nil)
	sig, err := f.coord.Submit(context.Background(), "c2lnbmVk")
	require.NoError(t, err)
	assert.NotEmpty(t, sig)
	assert.Equal(t, []string{"c2lnbmVk"}, f.gw.Submitted)

	f.gw.SubmitErr = errors.New("rpc down")
	_, err = f.coord.Submit(context.Background(), "c2lnbmVk")
	assert.Error(t, err)
}

func TestHistory_RequiresWallet(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.coord.ClaimHistory(context.Background(), "", "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	_, err = f.coord.TradeHistory(context.Background(), "", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}
