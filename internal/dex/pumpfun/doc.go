// Package pumpfun describes the bonding-curve venue on Solana.
//
// It owns the on-chain layouts (GlobalAccount, BondingCurve), PDA derivation
// and the unsigned instruction builders the settlement service hands to
// clients for signing:
//
//   - ClaimTradingFee: creator or tagged claimant sweeps accrued trading fees.
//   - WithdrawMigrationFee: creator withdraws the one-time migration fee.
//   - Create: mints a new asset and initialises its bonding curve.
//   - Buy: exact-token buy with a SOL cost ceiling, used for the launch pre-buy.
//
// Nothing in this package performs RPC calls on its own; fetching goes through
// blockchain.Client in the ledger package.
//
// Usage example:
//
//	cfg := pumpfun.DefaultConfig()
//	curve, err := pumpfun.DeriveBondingCurve(cfg.ProgramID, mint)
//	if err != nil {
//	    return err
//	}
//	ix, err := pumpfun.ClaimTradingFee(cfg, pumpfun.ClaimAccounts{
//	    Claimant:     wallet,
//	    Mint:         mint,
//	    BondingCurve: curve,
//	})
package pumpfun
