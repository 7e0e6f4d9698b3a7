package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad-settlement/internal/coordinator"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

func (s *Server) handleEntitlement(w http.ResponseWriter, r *http.Request) {
	q := entitlementQuery{
		Asset:  r.URL.Query().Get("asset"),
		Wallet: r.URL.Query().Get("wallet"),
		Role:   r.URL.Query().Get("role"),
	}
	if !s.check(w, q) {
		return
	}
	role, _ := domain.ParseRole(q.Role)

	preview, err := s.service.Entitlement(r.Context(), solana.MustPublicKeyFromBase58(q.Asset), optionalKey(q.Wallet), role)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newEntitlementResponse(preview))
}

func (s *Server) handleEntitlementBatch(w http.ResponseWriter, r *http.Request) {
	q := batchEntitlementQuery{
		Wallet: r.URL.Query().Get("wallet"),
		Role:   r.URL.Query().Get("role"),
	}
	if raw := r.URL.Query().Get("assets"); raw != "" {
		q.Assets = strings.Split(raw, ",")
	}
	if !s.check(w, q) {
		return
	}
	role, _ := domain.ParseRole(q.Role)
	assets := make([]solana.PublicKey, len(q.Assets))
	for i, a := range q.Assets {
		assets[i] = solana.MustPublicKeyFromBase58(a)
	}

	results, err := s.service.Entitlements(r.Context(), assets, optionalKey(q.Wallet), role)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	resp := batchEntitlementResponse{Entitlements: make([]batchEntitlementItem, 0, len(results))}
	for _, res := range results {
		item := batchEntitlementItem{Asset: res.Asset.String()}
		if res.Err != nil {
			item.Error = errorBody(res.Err)
		} else {
			ent := newEntitlementResponse(res.Preview)
			item.Entitlement = &ent
		}
		resp.Entitlements = append(resp.Entitlements, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBuildClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if !s.decode(w, r, &req) {
		return
	}
	role, _ := domain.ParseRole(req.Role)

	res, err := s.service.BuildClaim(r.Context(), domain.ClaimRequest{
		Wallet: solana.MustPublicKeyFromBase58(req.Wallet),
		Asset:  solana.MustPublicKeyFromBase58(req.Asset),
		Role:   role,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, newBuildClaimResponse(res))
}

func (s *Server) handleVerifyClaim(w http.ResponseWriter, r *http.Request) {
	var req verifyClaimRequest
	if !s.decode(w, r, &req) {
		return
	}
	role, _ := domain.ParseRole(req.Role)

	checks, err := s.service.VerifyClaim(r.Context(), verify.ClaimReport{
		Wallet:     solana.MustPublicKeyFromBase58(req.Wallet),
		Asset:      solana.MustPublicKeyFromBase58(req.Asset),
		Role:       role,
		Signatures: req.Signatures,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}

	resp := verifyClaimResponse{Results: make([]claimResult, 0, len(checks))}
	for _, c := range checks {
		res := claimResult{Signature: c.Signature, Success: c.Success, Recorded: c.Settlement != nil}
		if c.Success {
			res.FeeType = c.FeeType
			amount := domain.LamportsToSOL(c.AmountLamports)
			res.Amount = &amount
		}
		if c.Err != nil {
			res.Error = errorBody(c.Err)
		}
		resp.Results = append(resp.Results, res)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyTrade(w http.ResponseWriter, r *http.Request) {
	var req verifyTradeRequest
	if !s.decode(w, r, &req) {
		return
	}
	direction, _ := domain.ParseDirection(req.Direction)

	res, err := s.service.VerifyTrade(r.Context(), verify.TradeReport{
		Wallet:        solana.MustPublicKeyFromBase58(req.Wallet),
		Asset:         solana.MustPublicKeyFromBase58(req.Asset),
		ClaimedAmount: decimal.RequireFromString(req.ClaimedAmount),
		Direction:     direction,
		Signature:     req.Signature,
	})
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, verifyTradeResponse{
		Accepted:      true,
		SettledAmount: res.SettledAmount,
		Settlement:    res.Settlement,
	})
}

func (s *Server) handlePrepareLaunch(w http.ResponseWriter, r *http.Request) {
	var req prepareLaunchRequest
	if !s.decode(w, r, &req) {
		return
	}

	prep, err := s.service.PrepareLaunch(r.Context(), coordinator.LaunchRequest{
		Creator:        solana.MustPublicKeyFromBase58(req.Creator),
		Name:           req.Name,
		Symbol:         req.Symbol,
		MetadataURL:    req.MetadataURL,
		ImageURL:       req.ImageURL,
		TaggedClaimant: optionalKey(req.TaggedClaimant),
		PreBuyLamports: req.PreBuyLamports,
		BurnTokens:     req.BurnTokens,
	})
	if err != nil {
		var extra map[string]string
		if prep != nil && prep.State != nil {
			extra = map[string]string{"stateId": prep.State.StateID}
		}
		s.writeError(w, r, err, extra)
		return
	}
	writeJSON(w, http.StatusOK, prepareLaunchResponse{
		StateID:            prep.State.StateID,
		UnsignedOperations: prep.Operations,
		State:              prep.State,
	})
}

func (s *Server) handleLaunchStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.LaunchStatus(r.Context(), r.PathValue("stateId"))
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleCompleteLaunch(w http.ResponseWriter, r *http.Request) {
	var req completeLaunchRequest
	if !s.decode(w, r, &req) {
		return
	}
	state, err := s.service.CompleteLaunch(r.Context(), req.StateID, req.Signatures)
	if err != nil {
		s.writeError(w, r, err, map[string]string{"stateId": req.StateID})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	sig, err := s.service.Submit(r.Context(), req.Transaction)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{Signature: sig})
}

func (s *Server) historyQuery(w http.ResponseWriter, r *http.Request) (historyQuery, bool) {
	q := historyQuery{
		Wallet: r.URL.Query().Get("wallet"),
		Asset:  r.URL.Query().Get("asset"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, errors.Join(domain.ErrInvalidRequest, err), nil)
			return q, false
		}
		q.Limit = limit
	}
	return q, s.check(w, q)
}

func (s *Server) handleClaimHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := s.historyQuery(w, r)
	if !ok {
		return
	}
	claims, err := s.service.ClaimHistory(r.Context(), q.Wallet, q.Asset, q.Limit)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if claims == nil {
		claims = []domain.ClaimSettlement{}
	}
	writeJSON(w, http.StatusOK, claimHistoryResponse{Claims: claims})
}

func (s *Server) handleTradeHistory(w http.ResponseWriter, r *http.Request) {
	q, ok := s.historyQuery(w, r)
	if !ok {
		return
	}
	trades, err := s.service.TradeHistory(r.Context(), q.Wallet, q.Limit)
	if err != nil {
		s.writeError(w, r, err, nil)
		return
	}
	if trades == nil {
		trades = []domain.TradeSettlement{}
	}
	writeJSON(w, http.StatusOK, tradeHistoryResponse{Trades: trades})
}
