// internal/dex/pumpfun/token_calc.go
package pumpfun

import (
	"fmt"
	"math/big"
)

// BuyQuote returns the tokens received for spending lamports against the given
// virtual reserves, after the venue fee (basis points) is taken from the input.
//
//	tokens = vt - (vs * vt) / (vs + sol)
func BuyQuote(virtualSol, virtualToken, lamports, feeBasisPoints uint64) (uint64, error) {
	if virtualSol == 0 || virtualToken == 0 {
		return 0, fmt.Errorf("bonding curve has zero reserves")
	}
	if feeBasisPoints >= 10_000 {
		return 0, fmt.Errorf("invalid fee basis points %d", feeBasisPoints)
	}

	sol := new(big.Int).SetUint64(lamports)
	sol.Mul(sol, big.NewInt(int64(10_000-feeBasisPoints)))
	sol.Quo(sol, big.NewInt(10_000))

	vs := new(big.Int).SetUint64(virtualSol)
	vt := new(big.Int).SetUint64(virtualToken)

	k := new(big.Int).Mul(vs, vt)
	newVs := new(big.Int).Add(vs, sol)
	newVt := new(big.Int).Quo(k, newVs)
	// round in the pool's favour
	if new(big.Int).Mul(newVt, newVs).Cmp(k) < 0 {
		newVt.Add(newVt, big.NewInt(1))
	}

	out := new(big.Int).Sub(vt, newVt)
	if out.Sign() <= 0 {
		return 0, nil
	}
	return out.Uint64(), nil
}

// InitialBuyQuote quotes a buy against a fresh curve defined by the global account.
func (g *GlobalAccount) InitialBuyQuote(lamports uint64) (uint64, error) {
	out, err := BuyQuote(g.InitialVirtualSolReserves, g.InitialVirtualTokenReserves, lamports, g.FeeBasisPoints)
	if err != nil {
		return 0, err
	}
	if out > g.InitialRealTokenReserves {
		out = g.InitialRealTokenReserves
	}
	return out, nil
}
