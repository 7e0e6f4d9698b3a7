// internal/domain/amount.go
package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the number of decimals of the reference asset (SOL).
const NativeDecimals = 9

// LamportsPerSOL is the number of smallest units in one display unit.
const LamportsPerSOL uint64 = 1_000_000_000

// LamportsToSOL converts smallest units into display units.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), -NativeDecimals)
}

// SignedLamportsToSOL converts a signed balance delta into display units.
func SignedLamportsToSOL(lamports int64) decimal.Decimal {
	return decimal.New(lamports, -NativeDecimals)
}

// SOLToLamports converts display units into smallest units, truncating sub-lamport
// precision. Negative values return 0.
func SOLToLamports(sol decimal.Decimal) uint64 {
	if sol.IsNegative() {
		return 0
	}
	return sol.Shift(NativeDecimals).Truncate(0).BigInt().Uint64()
}

// TokenAmountToDecimal converts a raw token amount into display units.
func TokenAmountToDecimal(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}
