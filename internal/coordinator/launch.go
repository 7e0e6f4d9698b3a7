package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
	"github.com/rovshanmuradov/launchpad-settlement/internal/events"
	"github.com/rovshanmuradov/launchpad-settlement/internal/ledger"
	"github.com/rovshanmuradov/launchpad-settlement/internal/storage"
	"github.com/rovshanmuradov/launchpad-settlement/internal/verify"
)

// LaunchRequest holds the parameters of a new token launch.
type LaunchRequest struct {
	Creator        solana.PublicKey
	Name           string
	Symbol         string
	MetadataURL    string
	ImageURL       string
	TaggedClaimant solana.PublicKey

	// PreBuyLamports is spent on an initial buy when positive.
	PreBuyLamports uint64
	// BurnTokens are burnt from the pre-bought balance; requires a pre-buy.
	BurnTokens uint64
}

func (r LaunchRequest) validate() error {
	switch {
	case r.Creator.IsZero():
		return fmt.Errorf("%w: creator is required", domain.ErrInvalidRequest)
	case r.Name == "" || r.Symbol == "":
		return fmt.Errorf("%w: name and symbol are required", domain.ErrInvalidRequest)
	case r.BurnTokens > 0 && r.PreBuyLamports == 0:
		return fmt.Errorf("%w: burn requires a pre-buy", domain.ErrInvalidRequest)
	}
	if err := validURL(r.MetadataURL); err != nil {
		return fmt.Errorf("%w: metadata url: %v", domain.ErrInvalidRequest, err)
	}
	if r.ImageURL != "" {
		if err := validURL(r.ImageURL); err != nil {
			return fmt.Errorf("%w: image url: %v", domain.ErrInvalidRequest, err)
		}
	}
	return nil
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "https" && u.Scheme != "http" && u.Scheme != "ipfs") || u.Host == "" {
		return fmt.Errorf("unsupported url %q", raw)
	}
	return nil
}

// LaunchPreparation is returned by PrepareLaunch: the unsigned operations in submit
// order and the state that tracks them.
type LaunchPreparation struct {
	State      *domain.WorkflowState
	Operations []*ledger.PreparedOperation
}

type launchStep struct {
	steps []domain.LaunchStep
	kind  ledger.OperationKind
}

// PrepareLaunch records a new launch and prepares its operations for client signing.
// A build failure moves the state to failed and is returned together with the state.
func (c *Coordinator) PrepareLaunch(ctx context.Context, req LaunchRequest) (*LaunchPreparation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	state := &domain.WorkflowState{
		StateID:        c.newID(),
		Status:         domain.StatusPending,
		Creator:        req.Creator.String(),
		ConfigAddress:  c.configAddress(),
		MetadataURL:    req.MetadataURL,
		ImageURL:       req.ImageURL,
		PreparedSteps:  []string{},
		CompletedSteps: []string{},
		FailedSteps:    []string{},
	}
	if err := c.workflows.CreateWorkflow(ctx, state); err != nil {
		return nil, fmt.Errorf("create launch state: %w", err)
	}
	logger := c.logger.With(zap.String("state_id", state.StateID), zap.String("creator", state.Creator))

	// Metadata is hosted by the caller; recording the urls completes the step.
	next := state.Clone()
	next.Status = domain.StatusProcessing
	next.CompletedSteps = domain.StepNames(domain.StepMetadataUpload)
	state, err := c.workflows.UpdateWorkflow(ctx, next, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("start launch: %w", err)
	}

	plan := []launchStep{{
		steps: []domain.LaunchStep{domain.StepMintCreation, domain.StepPoolInitialization},
		kind:  ledger.OpLaunch,
	}}
	if req.PreBuyLamports > 0 {
		plan = append(plan, launchStep{steps: []domain.LaunchStep{domain.StepPreBuy}, kind: ledger.OpBuy})
	}
	if req.BurnTokens > 0 {
		plan = append(plan, launchStep{steps: []domain.LaunchStep{domain.StepBurn}, kind: ledger.OpBurn})
	}

	var (
		ops      []*ledger.PreparedOperation
		prepared []string
		mint     solana.PublicKey
		bought   uint64
	)
	for _, step := range plan {
		params := ledger.OperationParams{FeePayer: req.Creator, Asset: mint}
		switch step.kind {
		case ledger.OpLaunch:
			params.Launch = &ledger.LaunchParams{
				Name:           req.Name,
				Symbol:         req.Symbol,
				MetadataURI:    req.MetadataURL,
				TaggedClaimant: req.TaggedClaimant,
			}
		case ledger.OpBuy:
			params.Amount = req.PreBuyLamports
		case ledger.OpBurn:
			params.Amount = req.BurnTokens
		}

		op, err := c.buildStep(ctx, step, params, bought)
		if err != nil {
			logger.Error("Failed to prepare launch step",
				zap.Strings("steps", domain.StepNames(step.steps...)),
				zap.Error(err))
			failed, ferr := c.failPrepare(ctx, state, step, err)
			if ferr != nil {
				return nil, errors.Join(err, ferr)
			}
			c.publish(events.NewLaunchEvent(failed))
			return &LaunchPreparation{State: failed}, err
		}

		op.Step = string(step.steps[0])
		switch step.kind {
		case ledger.OpLaunch:
			mint, err = solana.PublicKeyFromBase58(op.Mint)
			if err != nil {
				return nil, fmt.Errorf("launch operation returned bad mint %q: %w", op.Mint, err)
			}
			state.MintAddress = op.Mint
		case ledger.OpBuy:
			bought = op.TokenAmount
		}
		ops = append(ops, op)
		prepared = append(prepared, domain.StepNames(step.steps...)...)
	}

	next = state.Clone()
	next.PreparedSteps = prepared
	state, err = c.workflows.UpdateWorkflow(ctx, next, domain.StatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("record prepared launch: %w", err)
	}
	logger.Info("Launch prepared",
		zap.String("mint", state.MintAddress),
		zap.Strings("prepared_steps", state.PreparedSteps))
	return &LaunchPreparation{State: state, Operations: ops}, nil
}

func (c *Coordinator) buildStep(ctx context.Context, step launchStep, params ledger.OperationParams, bought uint64) (*ledger.PreparedOperation, error) {
	if step.kind == ledger.OpBurn && params.Amount > bought {
		return nil, fmt.Errorf("%w: burn of %d tokens exceeds pre-buy of %d", domain.ErrInvalidRequest, params.Amount, bought)
	}
	return c.gateway.BuildOperation(ctx, step.kind, params)
}

func (c *Coordinator) failPrepare(ctx context.Context, state *domain.WorkflowState, step launchStep, cause error) (*domain.WorkflowState, error) {
	next := state.Clone()
	next.Status = domain.StatusFailed
	next.FailedSteps = append(next.FailedSteps, domain.StepNames(step.steps...)...)
	next.PreparedSteps = []string{}
	next.Error = cause.Error()
	return c.workflows.UpdateWorkflow(ctx, next, domain.StatusProcessing)
}

// LaunchStatus returns the current state snapshot. It never mutates state.
func (c *Coordinator) LaunchStatus(ctx context.Context, stateID string) (*domain.WorkflowState, error) {
	state, err := c.workflows.GetWorkflow(ctx, stateID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: launch %s", domain.ErrNotFound, stateID)
		}
		return nil, fmt.Errorf("get launch state: %w", err)
	}
	return state, nil
}

// CompleteLaunch verifies the signatures reported for a prepared launch and moves it
// to completed or failed. Every signature must be the creator's and one of them must
// have created the recorded mint. Completing a terminal launch returns its snapshot
// unchanged. Ledger outages leave the state processing and are returned for retry.
func (c *Coordinator) CompleteLaunch(ctx context.Context, stateID string, signatures []string) (*domain.WorkflowState, error) {
	state, err := c.LaunchStatus(ctx, stateID)
	if err != nil {
		return nil, err
	}
	logger := c.logger.With(zap.String("state_id", stateID))

	switch {
	case state.Status.Terminal():
		logger.Debug("Launch already terminal", zap.String("status", string(state.Status)))
		return state, nil
	case state.Status == domain.StatusPending || len(state.PreparedSteps) == 0:
		return nil, fmt.Errorf("%w: launch %s has no prepared operations", domain.ErrInvalidRequest, stateID)
	}

	report := verify.LaunchReport{Signatures: signatures}
	if report.Creator, err = solana.PublicKeyFromBase58(state.Creator); err != nil {
		return nil, fmt.Errorf("launch %s has malformed creator %q: %w", stateID, state.Creator, err)
	}
	if state.MintAddress != "" {
		if report.Mint, err = solana.PublicKeyFromBase58(state.MintAddress); err != nil {
			return nil, fmt.Errorf("launch %s has malformed mint %q: %w", stateID, state.MintAddress, err)
		}
	}

	checks, verr := c.verifier.VerifyLaunch(ctx, report)
	if verr != nil && checks == nil {
		return nil, verr
	}
	for _, chk := range checks {
		if errors.Is(chk.Err, domain.ErrLedgerUnavailable) {
			return nil, verr
		}
	}

	next := state.Clone()
	next.Signatures = append([]string{}, signatures...)
	if verr == nil {
		next.Status = domain.StatusCompleted
		next.CompletedSteps = append(next.CompletedSteps, next.PreparedSteps...)
		next.PreparedSteps = []string{}
		next.Error = ""
	} else {
		next.Status = domain.StatusFailed
		next.FailedSteps = append(next.FailedSteps, next.PreparedSteps...)
		next.PreparedSteps = []string{}
		next.Error = verr.Error()
	}

	updated, err := c.workflows.UpdateWorkflow(ctx, next, domain.StatusProcessing)
	if errors.Is(err, storage.ErrStateConflict) {
		return c.resolveConflict(ctx, stateID, verr)
	}
	if err != nil {
		return nil, fmt.Errorf("record launch outcome: %w", err)
	}

	logger.Info("Launch finished",
		zap.String("status", string(updated.Status)),
		zap.Strings("completed_steps", updated.CompletedSteps),
		zap.Strings("failed_steps", updated.FailedSteps))
	c.publish(events.NewLaunchEvent(updated))
	return updated, nil
}

// resolveConflict handles a completion that lost the race to another report.
// The first terminal write stands; a failed outcome adds its error text to a
// state that already failed.
func (c *Coordinator) resolveConflict(ctx context.Context, stateID string, verr error) (*domain.WorkflowState, error) {
	if verr != nil {
		state, err := c.workflows.AppendWorkflowError(ctx, stateID, verr.Error())
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, storage.ErrStateConflict) {
			return nil, fmt.Errorf("append launch error: %w", err)
		}
	}
	return c.LaunchStatus(ctx, stateID)
}

func (c *Coordinator) configAddress() string {
	if c.venueConfig.IsZero() {
		return ""
	}
	return c.venueConfig.String()
}
