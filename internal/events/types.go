// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/launchpad-settlement/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	ClaimSettled    EventType = "claim.settled"
	TradeSettled    EventType = "trade.settled"
	LaunchCompleted EventType = "launch.completed"
	LaunchFailed    EventType = "launch.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType `json:"type"`
	EventTime time.Time `json:"time"`
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC()}
}

// ClaimSettledEvent is emitted for every finalized claim signature.
type ClaimSettledEvent struct {
	BaseEvent
	Claim domain.ClaimSettlement `json:"claim"`
	// Recorded is false when the settlement row could not be written.
	Recorded bool `json:"recorded"`
}

func NewClaimSettled(claim domain.ClaimSettlement, recorded bool) *ClaimSettledEvent {
	return &ClaimSettledEvent{BaseEvent: newBase(ClaimSettled), Claim: claim, Recorded: recorded}
}

// TradeSettledEvent is emitted when a reported trade is accepted.
type TradeSettledEvent struct {
	BaseEvent
	Trade domain.TradeSettlement `json:"trade"`
}

func NewTradeSettled(trade domain.TradeSettlement) *TradeSettledEvent {
	return &TradeSettledEvent{BaseEvent: newBase(TradeSettled), Trade: trade}
}

// LaunchEvent is emitted when a launch saga reaches a terminal state.
type LaunchEvent struct {
	BaseEvent
	State *domain.WorkflowState `json:"state"`
}

func NewLaunchEvent(state *domain.WorkflowState) *LaunchEvent {
	t := LaunchCompleted
	if state.Status == domain.StatusFailed {
		t = LaunchFailed
	}
	return &LaunchEvent{BaseEvent: newBase(t), State: state.Clone()}
}
