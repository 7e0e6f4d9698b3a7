// Package api exposes the settlement flows over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/claim"
	"github.com/rovshanmuradov/launchpad-settlement/internal/coordinator"
	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/utils/metrics"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

// Service is the settlement surface served over HTTP; *coordinator.Coordinator
// implements it.
type Service interface {
	Entitlement(ctx context.Context, asset, wallet solana.PublicKey, role domain.Role) (*coordinator.Preview, error)
	Entitlements(ctx context.Context, assets []solana.PublicKey, wallet solana.PublicKey, role domain.Role) ([]coordinator.PreviewResult, error)
	BuildClaim(ctx context.Context, req domain.ClaimRequest) (*claim.Result, error)
	VerifyClaim(ctx context.Context, report verify.ClaimReport) ([]verify.ClaimCheck, error)
	VerifyTrade(ctx context.Context, report verify.TradeReport) (*verify.TradeResult, error)
	PrepareLaunch(ctx context.Context, req coordinator.LaunchRequest) (*coordinator.LaunchPreparation, error)
	LaunchStatus(ctx context.Context, stateID string) (*domain.WorkflowState, error)
	CompleteLaunch(ctx context.Context, stateID string, signatures []string) (*domain.WorkflowState, error)
	ClaimHistory(ctx context.Context, wallet, asset string, limit int) ([]domain.ClaimSettlement, error)
	TradeHistory(ctx context.Context, wallet string, limit int) ([]domain.TradeSettlement, error)
	Submit(ctx context.Context, signedTx string) (string, error)
}

var _ Service = (*coordinator.Coordinator)(nil)

const maxBodyBytes = 1 << 20

// Options configures optional parts of the server.
type Options struct {
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Health contributes extra fields to /healthz.
	Health func() map[string]interface{}
}

type Server struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
	metrics  *metrics.Collector
	opts     Options
	mux      *http.ServeMux
}

func NewServer(service Service, logger *zap.Logger, collector *metrics.Collector, opts Options) *Server {
	s := &Server{
		service:  service,
		validate: newValidator(),
		logger:   logger.Named("api"),
		metrics:  collector,
		opts:     opts,
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.handle("GET /v1/entitlements", s.handleEntitlement)
	s.handle("GET /v1/entitlements/batch", s.handleEntitlementBatch)
	s.handle("POST /v1/claims/build", s.handleBuildClaim)
	s.handle("POST /v1/claims/verify", s.handleVerifyClaim)
	s.handle("GET /v1/claims/history", s.handleClaimHistory)
	s.handle("POST /v1/trades/verify", s.handleVerifyTrade)
	s.handle("GET /v1/trades/history", s.handleTradeHistory)
	s.handle("POST /v1/launch/prepare", s.handlePrepareLaunch)
	s.handle("GET /v1/launch/status/{stateId}", s.handleLaunchStatus)
	s.handle("POST /v1/launch/complete", s.handleCompleteLaunch)
	s.handle("POST /v1/operations/submit", s.handleSubmit)
	s.handle("GET /healthz", s.handleHealth)
	if s.opts.Gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// handle registers fn under pattern with latency metrics and panic recovery.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("Handler panic",
					zap.String("route", pattern),
					zap.Any("panic", p),
					zap.Stack("stack"))
				if !rec.wrote {
					writeJSON(rec, http.StatusInternalServerError, &errorResponse{Error: "internal", Message: "internal error"})
				}
			}
			s.metrics.RecordHTTP(pattern, strconv.Itoa(rec.status), time.Since(start))
		}()
		r.Body = http.MaxBytesReader(rec, r.Body, maxBodyBytes)
		fn(rec, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wrote {
		r.status = code
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wrote = true
	return r.ResponseWriter.Write(b)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// decode reads a JSON body into dst and validates it. It writes the error response
// itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: malformed body: %v", domain.ErrInvalidRequest, err), nil)
		return false
	}
	return s.check(w, dst)
}

func (s *Server) check(w http.ResponseWriter, v interface{}) bool {
	if err := s.validate.Struct(v); err != nil {
		s.writeValidationError(w, err)
		return false
	}
	return true
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("pubkey", func(fl validator.FieldLevel) bool {
		_, err := solana.PublicKeyFromBase58(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("signature", func(fl validator.FieldLevel) bool {
		_, err := solana.SignatureFromBase58(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	return v
}

// optionalKey parses an address that already passed validation.
func optionalKey(s string) solana.PublicKey {
	if s == "" {
		return solana.PublicKey{}
	}
	return solana.MustPublicKeyFromBase58(s)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if s.opts.Health != nil {
		for k, v := range s.opts.Health() {
			body[k] = v
		}
	}
	writeJSON(w, http.StatusOK, body)
}
