package store

import (
	"errors"
	"time"
)

// DecompositionState tracks where a step is in its refinement lifecycle.
type DecompositionState string

const (
	StateStub        DecompositionState = "stub"
	StateAtomic      DecompositionState = "atomic"
	StateDecomposing DecompositionState = "decomposing"
	StateDecomposed  DecompositionState = "decomposed"
)

// ExecutionMode says whether a step can be done by software or needs a person.
type ExecutionMode string

const (
	ModeDigital ExecutionMode = "digital"
	ModeHuman   ExecutionMode = "human"
)

// Shared error vocabulary for the decomposition core. The store is the
// lowest layer, so the packages above it can wrap these without cycles.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyAtomic   = errors.New("step cannot be decomposed further")
	ErrNotALeaf        = errors.New("step is not a leaf")
	ErrInvalidDuration = errors.New("duration out of bounds")
)

// Step is one record in the decomposition arena. Identity, task ownership
// and level never change after creation; parent links always point upward,
// so the hierarchy is acyclic by construction.
type Step struct {
	ID               string
	TaskID           string
	ParentStepID     string // empty for top-level steps
	StepNumber       int
	Description      string
	ShortLabel       string
	EstimatedMinutes int
	ExecutionMode    ExecutionMode
	DelegationMode   string
	Level            int
	IsLeaf           bool
	State            DecompositionState
	Completed        bool
	CompletedAt      *time.Time
	ActualMinutes    int
}

// Task is the external owner of a step set. Only the fields the
// decomposition core needs are persisted here.
type Task struct {
	ID          string
	Description string
	CreatedAt   time.Time
}

// TaskStats summarizes completion over a task's leaf steps.
type TaskStats struct {
	Total                 int
	Completed             int
	Percent               float64
	TotalEstimatedMinutes int
	TotalActualMinutes    int
}
