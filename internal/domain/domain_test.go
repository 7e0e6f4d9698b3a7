package domain

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleCreator, false},
		{"creator", RoleCreator, false},
		{"TAGGED", RoleTagged, false},
		{"admin", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFeeTypeAndDirection(t *testing.T) {
	for _, ft := range ClaimOrder {
		got, err := ParseFeeType(string(ft))
		require.NoError(t, err)
		assert.Equal(t, ft, got)
	}
	_, err := ParseFeeType("referral")
	assert.Error(t, err)

	d, err := ParseDirection("Sell")
	require.NoError(t, err)
	assert.Equal(t, DirectionSell, d)
	_, err = ParseDirection("")
	assert.Error(t, err)
}

func TestRoleEligible(t *testing.T) {
	assert.True(t, RoleCreator.Eligible(FeeMigration))
	assert.False(t, RoleTagged.Eligible(FeeMigration))
	for _, ft := range []FeeType{FeeTrading, FeePool} {
		assert.True(t, RoleCreator.Eligible(ft))
		assert.True(t, RoleTagged.Eligible(ft))
	}
}

func TestAmounts(t *testing.T) {
	assert.True(t, LamportsToSOL(50_000_000).Equal(decimal.RequireFromString("0.05")))
	assert.True(t, SignedLamportsToSOL(-1_250_000_000).Equal(decimal.RequireFromString("-1.25")))
	assert.Equal(t, uint64(1_250_000_000), SOLToLamports(decimal.RequireFromString("1.25")))
	assert.Equal(t, uint64(1), SOLToLamports(decimal.RequireFromString("0.0000000019")), "sub-lamport precision truncates")
	assert.Zero(t, SOLToLamports(decimal.RequireFromString("-3")))
	assert.True(t, TokenAmountToDecimal(1_500_000, 6).Equal(decimal.RequireFromString("1.5")))

	// Lamport values beyond int64 survive the round trip.
	huge := uint64(1<<63 + 7)
	assert.Equal(t, huge, SOLToLamports(LamportsToSOL(huge)))
}

func TestEntitlement(t *testing.T) {
	var nilEnt *Entitlement
	assert.True(t, nilEnt.Empty())
	_, ok := nilEnt.Amount(FeeTrading)
	assert.False(t, ok)

	ent := NewEntitlement(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	assert.True(t, ent.Empty())
	ent.Fees[FeeTrading] = 50_000_000

	amount, ok := ent.Amount(FeeTrading)
	assert.True(t, ok)
	assert.Equal(t, uint64(50_000_000), amount)
	_, ok = ent.Amount(FeePool)
	assert.False(t, ok)

	display := ent.Display()
	require.Len(t, display, 1)
	assert.True(t, display[FeeTrading].Equal(decimal.RequireFromString("0.05")))
}

func TestEntitlement_HeldBy(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	tagged := solana.NewWallet().PublicKey()
	ent := NewEntitlement(solana.NewWallet().PublicKey(), creator)
	ent.Creator = creator

	assert.True(t, ent.HeldBy(creator, RoleCreator))
	assert.False(t, ent.HeldBy(creator, RoleTagged), "no tagged claimant set")
	assert.False(t, ent.HeldBy(tagged, RoleTagged))

	ent.TaggedClaimant = tagged
	assert.True(t, ent.HeldBy(tagged, RoleTagged))
	assert.False(t, ent.HeldBy(tagged, RoleCreator))
	assert.False(t, ent.HeldBy(solana.PublicKey{}, RoleCreator))

	unknown := NewEntitlement(solana.NewWallet().PublicKey(), solana.PublicKey{})
	assert.False(t, unknown.HeldBy(solana.PublicKey{}, RoleCreator), "zero wallet never matches a zero creator")
	var nilEnt *Entitlement
	assert.False(t, nilEnt.HeldBy(creator, RoleCreator))
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("rpc: %w", ErrLedgerUnavailable), "ledger_unavailable"},
		{fmt.Errorf("claim: %w", ErrNoClaimableEntitlement), "no_claimable_entitlement"},
		{ErrCommitFailed, "commit_failed"},
		{ErrBuildFailed, "build_failed"},
		{ErrDuplicateSignature, "duplicate_signature"},
		{fmt.Errorf("%w: limit", ErrInvalidRequest), "invalid_request"},
		{fmt.Errorf("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestWorkflowState(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusProcessing.Terminal())
	assert.False(t, StatusPending.Terminal())

	assert.Equal(t, []string{"mint-creation", "pool-initialization"}, StepNames(StepMintCreation, StepPoolInitialization))
	assert.Empty(t, StepNames())

	var nilState *WorkflowState
	assert.Nil(t, nilState.Clone())

	orig := &WorkflowState{
		StateID:        "s1",
		Status:         StatusProcessing,
		PreparedSteps:  StepNames(StepMintCreation),
		CompletedSteps: StepNames(StepMetadataUpload),
	}
	c := orig.Clone()
	c.PreparedSteps[0] = "changed"
	c.CompletedSteps = append(c.CompletedSteps, "extra")
	assert.Equal(t, []string{"mint-creation"}, orig.PreparedSteps)
	assert.Equal(t, []string{"metadata-upload"}, orig.CompletedSteps)
	assert.NotNil(t, c.FailedSteps)
	assert.Nil(t, c.Signatures)
}
