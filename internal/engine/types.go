package engine

import (
	"time"

	"github.com/rahul/tukda/internal/classify"
	"github.com/rahul/tukda/internal/store"
)

// Transport-agnostic request/response shapes. Gateways build these; the
// engine never sees framing.

type SplitRequest struct {
	TaskID      string
	Description string
	// ExplicitMinutes is the user's own estimate; 0 means none given.
	ExplicitMinutes int
	Energy          string
}

type SplitResponse struct {
	Scope classify.Scope
	Steps []*store.Step
	// Message carries the "do directly" note for atomic tasks and the
	// phase suggestion for projects.
	Message string
}

type ListStepsResponse struct {
	Steps []*store.Step
	Stats store.TaskStats
}

type CompleteResponse struct {
	Status        string
	ActualMinutes int
	CompletedAt   time.Time
	XPEarned      int
}

type DecomposeResponse struct {
	Children []*store.Step
	Count    int
}
