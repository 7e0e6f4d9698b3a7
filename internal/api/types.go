package api

import (
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad-settlement/internal/claim"
	"github.com/rovshanmuradov/launchpad-settlement/internal/coordinator"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
)

type entitlementQuery struct {
	Asset  string `json:"asset" validate:"required,pubkey"`
	Wallet string `json:"wallet" validate:"omitempty,pubkey"`
	Role   string `json:"role" validate:"omitempty,oneof=creator tagged"`
}

type entitlementResponse struct {
	Asset     string           `json:"asset"`
	Wallet    string           `json:"wallet"`
	Role      domain.Role      `json:"role"`
	Found     bool             `json:"found"`
	Migrated  bool             `json:"migrated"`
	Trading   *decimal.Decimal `json:"trading,omitempty"`
	Migration *decimal.Decimal `json:"migration,omitempty"`
	Pool      *decimal.Decimal `json:"pool,omitempty"`
	Eligible  []domain.FeeType `json:"eligible"`
}

func newEntitlementResponse(preview *coordinator.Preview) entitlementResponse {
	ent := preview.Entitlement
	resp := entitlementResponse{
		Asset:    ent.Asset.String(),
		Wallet:   ent.Wallet.String(),
		Role:     preview.Role,
		Found:    ent.Found,
		Migrated: ent.Migrated,
		Eligible: preview.Eligible,
	}
	if resp.Eligible == nil {
		resp.Eligible = []domain.FeeType{}
	}
	for t, amount := range ent.Display() {
		switch t {
		case domain.FeeTrading:
			resp.Trading = &amount
		case domain.FeeMigration:
			resp.Migration = &amount
		case domain.FeePool:
			resp.Pool = &amount
		}
	}
	return resp
}

type batchEntitlementQuery struct {
	Assets []string `json:"assets" validate:"required,min=1,max=50,dive,pubkey"`
	Wallet string   `json:"wallet" validate:"omitempty,pubkey"`
	Role   string   `json:"role" validate:"omitempty,oneof=creator tagged"`
}

// batchEntitlementItem carries either the entitlement or the error of one asset.
type batchEntitlementItem struct {
	Asset       string               `json:"asset"`
	Entitlement *entitlementResponse `json:"entitlement,omitempty"`
	Error       *errorResponse       `json:"error,omitempty"`
}

type batchEntitlementResponse struct {
	Entitlements []batchEntitlementItem `json:"entitlements"`
}

type claimRequest struct {
	Wallet string `json:"wallet" validate:"required,pubkey"`
	Asset  string `json:"asset" validate:"required,pubkey"`
	Role   string `json:"role" validate:"omitempty,oneof=creator tagged"`
}

type buildFailure struct {
	FeeType domain.FeeType `json:"feeType"`
	errorResponse
}

type buildClaimResponse struct {
	Operations []*ledger.PreparedOperation `json:"operations"`
	Partial    bool                        `json:"partial"`
	Failures   []buildFailure              `json:"failures,omitempty"`
}

func newBuildClaimResponse(res *claim.Result) buildClaimResponse {
	out := buildClaimResponse{Operations: res.Operations, Partial: res.Partial()}
	if out.Operations == nil {
		out.Operations = []*ledger.PreparedOperation{}
	}
	for _, f := range res.Failures {
		out.Failures = append(out.Failures, buildFailure{FeeType: f.FeeType, errorResponse: *errorBody(f.Err)})
	}
	return out
}

type verifyClaimRequest struct {
	claimRequest
	Signatures []string `json:"signatures" validate:"required,min=1,max=16,dive,required"`
}

type claimResult struct {
	Signature string           `json:"signature"`
	Success   bool             `json:"success"`
	FeeType   domain.FeeType   `json:"feeType,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Recorded  bool             `json:"recorded"`
	Error     *errorResponse   `json:"error,omitempty"`
}

type verifyClaimResponse struct {
	Results []claimResult `json:"results"`
}

type verifyTradeRequest struct {
	Wallet        string `json:"wallet" validate:"required,pubkey"`
	Asset         string `json:"asset" validate:"required,pubkey"`
	ClaimedAmount string `json:"claimedAmount" validate:"required,amount"`
	Direction     string `json:"direction" validate:"required,oneof=buy sell"`
	Signature     string `json:"signature" validate:"required,signature"`
}

type verifyTradeResponse struct {
	Accepted      bool                    `json:"accepted"`
	SettledAmount decimal.Decimal         `json:"settledAmount"`
	Settlement    *domain.TradeSettlement `json:"settlement"`
}

type prepareLaunchRequest struct {
	Creator        string `json:"creator" validate:"required,pubkey"`
	Name           string `json:"name" validate:"required,max=32"`
	Symbol         string `json:"symbol" validate:"required,max=10"`
	MetadataURL    string `json:"metadataUrl" validate:"required,url"`
	ImageURL       string `json:"imageUrl" validate:"omitempty,url"`
	TaggedClaimant string `json:"taggedClaimant" validate:"omitempty,pubkey"`
	PreBuyLamports uint64 `json:"preBuyLamports"`
	BurnTokens     uint64 `json:"burnTokens"`
}

type prepareLaunchResponse struct {
	StateID            string                      `json:"stateId"`
	UnsignedOperations []*ledger.PreparedOperation `json:"unsignedOperations"`
	State              *domain.WorkflowState       `json:"state"`
}

type completeLaunchRequest struct {
	StateID    string   `json:"stateId" validate:"required"`
	Signatures []string `json:"signatures" validate:"required,min=1,max=16,dive,required"`
}

type submitRequest struct {
	Transaction string `json:"transaction" validate:"required,base64"`
}

type submitResponse struct {
	Signature string `json:"signature"`
}

type historyQuery struct {
	Wallet string `json:"wallet" validate:"required,pubkey"`
	Asset  string `json:"asset" validate:"omitempty,pubkey"`
	Limit  int    `json:"limit" validate:"gte=0,lte=1000"`
}

type claimHistoryResponse struct {
	Claims []domain.ClaimSettlement `json:"claims"`
}

type tradeHistoryResponse struct {
	Trades []domain.TradeSettlement `json:"trades"`
}
