package binary

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Owner  solana.PublicKey
	Amount uint64
	Flag   bool
}

func TestAccountRoundTrip(t *testing.T) {
	d := AccountDiscriminator("Sample")
	in := sample{Owner: solana.NewWallet().PublicKey(), Amount: 42, Flag: true}

	data, err := EncodeAccount(d, in)
	require.NoError(t, err)
	assert.Len(t, data, 8+32+8+1)
	assert.True(t, HasDiscriminator(data, d))

	var out sample
	require.NoError(t, DecodeAccount(data, d, &out))
	assert.Equal(t, in, out)
}

func TestDecodeAccount_Rejects(t *testing.T) {
	var out sample
	assert.Error(t, DecodeAccount([]byte{1, 2, 3}, AccountDiscriminator("Sample"), &out))

	data, err := EncodeAccount(AccountDiscriminator("Other"), sample{})
	require.NoError(t, err)
	assert.Error(t, DecodeAccount(data, AccountDiscriminator("Sample"), &out))
}

func TestInstructionDiscriminator_Distinct(t *testing.T) {
	a := InstructionDiscriminator("claim_trading_fee")
	b := InstructionDiscriminator("withdraw_migration_fee")
	assert.NotEqual(t, a, b)

	data, err := EncodeInstruction(a, struct{ Max uint64 }{Max: 7})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), ReadUint64LittleEndian(data, 8))
}
