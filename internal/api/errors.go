package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

var statusByKind = map[string]int{
	"invalid_request":          http.StatusBadRequest,
	"signer_mismatch":          http.StatusUnprocessableEntity,
	"asset_mismatch":           http.StatusUnprocessableEntity,
	"amount_out_of_tolerance":  http.StatusUnprocessableEntity,
	"onchain_failure":          http.StatusUnprocessableEntity,
	"not_finalized":            http.StatusUnprocessableEntity,
	"duplicate_signature":      http.StatusConflict,
	"no_claimable_entitlement": http.StatusNotFound,
	"not_found":                http.StatusNotFound,
	"ledger_rejected":          http.StatusNotFound,
	"ledger_unavailable":       http.StatusServiceUnavailable,
	"commit_failed":            http.StatusServiceUnavailable,
	"build_failed":             http.StatusBadGateway,
}

// statusFor maps an error onto its taxonomy kind and HTTP status.
func statusFor(err error) (string, int) {
	kind := domain.Kind(err)
	if status, ok := statusByKind[kind]; ok {
		return kind, status
	}
	return kind, http.StatusInternalServerError
}

// errorBody renders err without writing it, for per-item results.
func errorBody(err error) *errorResponse {
	kind, _ := statusFor(err)
	body := &errorResponse{Error: kind, Message: err.Error()}
	var rej *verify.RejectionError
	if errors.As(err, &rej) {
		if d := rej.Details(); len(d) > 0 {
			body.Details = d
		}
	}
	return body
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, extra map[string]string) {
	kind, status := statusFor(err)
	body := errorBody(err)
	for k, v := range extra {
		if body.Details == nil {
			body.Details = make(map[string]string, len(extra))
		}
		body.Details[k] = v
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("kind", kind),
			zap.Error(err))
	} else {
		s.logger.Debug("Request rejected",
			zap.String("path", r.URL.Path),
			zap.String("kind", kind),
			zap.Error(err))
	}
	writeJSON(w, status, body)
}

// writeValidationError reports struct validation failures field by field.
func (s *Server) writeValidationError(w http.ResponseWriter, err error) {
	body := &errorResponse{Error: domain.Kind(domain.ErrInvalidRequest), Message: "request validation failed"}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			body.Details[fe.Field()] = fe.Tag()
		}
	} else {
		body.Message = err.Error()
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
}
