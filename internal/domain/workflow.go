// internal/domain/workflow.go
package domain

import "time"

// WorkflowStatus is the lifecycle state of a launch saga.
type WorkflowStatus string

const (
	StatusPending    WorkflowStatus = "pending"
	StatusProcessing WorkflowStatus = "processing"
	StatusCompleted  WorkflowStatus = "completed"
	StatusFailed     WorkflowStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s WorkflowStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// LaunchStep names one step of the launch saga.
type LaunchStep string

const (
	StepMetadataUpload     LaunchStep = "metadata-upload"
	StepMintCreation       LaunchStep = "mint-creation"
	StepPoolInitialization LaunchStep = "pool-initialization"
	StepPreBuy             LaunchStep = "pre-buy"
	StepBurn               LaunchStep = "burn"
)

// WorkflowState is the persisted state of one launch request.
type WorkflowState struct {
	StateID        string         `json:"stateId"`
	Status         WorkflowStatus `json:"status"`
	Creator        string         `json:"creator"`
	MintAddress    string         `json:"mintAddress,omitempty"`
	ConfigAddress  string         `json:"configAddress,omitempty"`
	MetadataURL    string         `json:"metadataUrl,omitempty"`
	ImageURL       string         `json:"imageUrl,omitempty"`
	Error          string         `json:"error,omitempty"`
	PreparedSteps  []string       `json:"preparedSteps"`
	CompletedSteps []string       `json:"completedSteps"`
	FailedSteps    []string       `json:"failedSteps"`
	Signatures     []string       `json:"signatures,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand out of a store.
func (w *WorkflowState) Clone() *WorkflowState {
	if w == nil {
		return nil
	}
	c := *w
	c.PreparedSteps = append([]string{}, w.PreparedSteps...)
	c.CompletedSteps = append([]string{}, w.CompletedSteps...)
	c.FailedSteps = append([]string{}, w.FailedSteps...)
	if w.Signatures != nil {
		c.Signatures = append([]string{}, w.Signatures...)
	}
	return &c
}

// StepNames converts steps into their persisted identifiers.
func StepNames(steps ...LaunchStep) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, string(s))
	}
	return out
}
