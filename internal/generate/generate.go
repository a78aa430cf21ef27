package generate

import (
	"context"
	"errors"
	"strings"

	"github.com/rahul/tukda/internal/classify"
	"github.com/rahul/tukda/internal/store"
)

// ErrUnavailable means both generator paths failed. With the rule-based
// path always able to answer this should never escape the coordinator.
var ErrUnavailable = errors.New("step generation unavailable")

// EnergyLevel is the caller's signal for how many steps to aim for.
type EnergyLevel string

const (
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// ParseEnergy maps free-form input onto an energy level, defaulting to
// medium.
func ParseEnergy(s string) EnergyLevel {
	switch EnergyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case EnergyLow:
		return EnergyLow
	case EnergyHigh:
		return EnergyHigh
	default:
		return EnergyMedium
	}
}

// TargetRange returns the step-count band for an energy level.
func TargetRange(e EnergyLevel) (min int, max int) {
	switch e {
	case EnergyLow:
		return 3, 4
	case EnergyHigh:
		return 7, 8
	default:
		return 5, 6
	}
}

// StepDraft is a generated step before it is persisted.
type StepDraft struct {
	Description      string
	ShortLabel       string
	EstimatedMinutes int
	ExecutionMode    store.ExecutionMode
}

// Request carries everything a strategy needs to propose steps.
type Request struct {
	TaskID      string
	Description string
	Scope       classify.Scope
	Energy      EnergyLevel
	// Refine is set when decomposing an existing step rather than
	// splitting a fresh task.
	Refine bool
}

// Strategy proposes an ordered list of micro-steps for a composite task.
// Implementations must return 3-8 drafts, each 2-5 minutes.
type Strategy interface {
	Generate(ctx context.Context, req Request) ([]StepDraft, error)
}

// Generated lists must stay inside these bounds.
const (
	minSteps   = 3
	maxSteps   = 8
	minMinutes = 2
	maxMinutes = 5
)

func clampMinutes(m int) int {
	if m < minMinutes {
		return minMinutes
	}
	if m > maxMinutes {
		return maxMinutes
	}
	return m
}
