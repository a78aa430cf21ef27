package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rahul/tukda/internal/classify"
	"github.com/rahul/tukda/internal/generate"
	"github.com/rahul/tukda/internal/observability"
	"github.com/rahul/tukda/internal/store"
	"github.com/rahul/tukda/internal/tracker"
)

const (
	// Steps at or under this estimate are already micro-steps; refusing to
	// split them further is what keeps recursion finite.
	decomposeThresholdMinutes = 5

	// A user estimate beyond this is nonsense, not a project.
	maxExplicitMinutes = 480

	defaultMaxDepth = 3
)

const (
	msgDoDirectly = "This is small enough to do directly. No split needed - just start."
	msgProject    = "This looks like a project, not a single task. Break it into phases first (plan, build, review), then split each phase on its own."
)

// Engine is the one entry point for decomposition. It composes the
// classifier, the generation coordinator, the step arena and the
// completion tracker.
type Engine struct {
	Store      *store.StepStore
	Classifier *classify.Classifier
	Generator  generate.Strategy
	Tracker    *tracker.CompletionTracker
	Logger     *observability.Logger
	MaxDepth   int
}

func New(st *store.StepStore, cl *classify.Classifier, gen generate.Strategy, tr *tracker.CompletionTracker, logger *observability.Logger, maxDepth int) *Engine {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &Engine{
		Store:      st,
		Classifier: cl,
		Generator:  gen,
		Tracker:    tr,
		Logger:     logger,
		MaxDepth:   maxDepth,
	}
}

// Split classifies the task and, for composite tasks, generates and stores
// the initial level-0 steps. Splitting stops at one level; anything deeper
// is opt-in through DecomposeStep.
func (e *Engine) Split(ctx context.Context, req SplitRequest) (*SplitResponse, error) {
	if req.Description == "" {
		return nil, fmt.Errorf("task description is required")
	}
	if req.ExplicitMinutes < 0 || req.ExplicitMinutes > maxExplicitMinutes {
		return nil, fmt.Errorf("explicit_minutes %d: %w", req.ExplicitMinutes, store.ErrInvalidDuration)
	}

	scope := e.Classifier.Classify(req.Description, req.ExplicitMinutes)
	if e.Logger != nil {
		e.Logger.LogClassify(req.TaskID, string(scope), req.ExplicitMinutes)
	}

	switch scope {
	case classify.ScopeAtomic:
		return &SplitResponse{Scope: scope, Message: msgDoDirectly}, nil
	case classify.ScopeProject:
		return &SplitResponse{Scope: scope, Message: msgProject}, nil
	}

	observability.SetStatus(observability.PhaseSplitting, req.Description)
	defer observability.SetStatus(observability.PhaseIdle, "")

	if err := e.Store.UpsertTask(req.TaskID, req.Description); err != nil {
		return nil, err
	}

	// A task is split once; a repeat call returns the existing steps
	// instead of generating a conflicting second batch.
	if existing, err := e.Store.TopLevel(req.TaskID); err != nil {
		return nil, err
	} else if len(existing) > 0 {
		return &SplitResponse{Scope: scope, Steps: existing}, nil
	}

	drafts, err := e.Generator.Generate(ctx, generate.Request{
		TaskID:      req.TaskID,
		Description: req.Description,
		Scope:       scope,
		Energy:      generate.ParseEnergy(req.Energy),
	})
	if err != nil {
		return nil, fmt.Errorf("split %s: %w", req.TaskID, err)
	}

	steps := draftsToSteps(req.TaskID, "", 0, drafts)
	if err := e.Store.InsertTopLevel(steps); err != nil {
		return nil, err
	}

	return &SplitResponse{Scope: scope, Steps: steps}, nil
}

// ListSteps returns a task's top-level steps with completion stats over its
// leaves.
func (e *Engine) ListSteps(taskID string) (*ListStepsResponse, error) {
	if _, err := e.Store.GetTask(taskID); err != nil {
		return nil, err
	}
	steps, err := e.Store.TopLevel(taskID)
	if err != nil {
		return nil, err
	}
	stats, err := e.Tracker.TaskStats(taskID)
	if err != nil {
		return nil, err
	}
	return &ListStepsResponse{Steps: steps, Stats: stats}, nil
}

// CompleteStep marks a leaf done and reports the XP earned.
func (e *Engine) CompleteStep(stepID string, actualMinutes int) (*CompleteResponse, error) {
	comp, err := e.Tracker.Complete(stepID, actualMinutes)
	if err != nil {
		return nil, err
	}
	if e.Logger != nil {
		e.Logger.LogComplete(comp.Step.TaskID, stepID, actualMinutes, comp.XPEarned)
	}
	return &CompleteResponse{
		Status:        "completed",
		ActualMinutes: actualMinutes,
		CompletedAt:   comp.CompletedAt,
		XPEarned:      comp.XPEarned,
	}, nil
}

// GetChildren returns a step's direct children, ordered.
func (e *Engine) GetChildren(stepID string) ([]*store.Step, error) {
	if _, err := e.Store.GetStep(stepID); err != nil {
		return nil, err
	}
	return e.Store.Children(stepID)
}

// DecomposeStep refines one leaf step into children. The DECOMPOSING
// check-and-set makes concurrent calls on the same step single-winner, and
// the child batch lands in one transaction or not at all.
func (e *Engine) DecomposeStep(ctx context.Context, stepID string, energy string) (*DecomposeResponse, error) {
	step, err := e.Store.GetStep(stepID)
	if err != nil {
		return nil, err
	}
	if !step.IsLeaf || step.State == store.StateDecomposed {
		return nil, fmt.Errorf("step %s is already decomposed: %w", stepID, store.ErrAlreadyAtomic)
	}
	if step.EstimatedMinutes <= decomposeThresholdMinutes {
		return nil, fmt.Errorf("step %s is already a %d minute action: %w", stepID, step.EstimatedMinutes, store.ErrAlreadyAtomic)
	}
	if step.Level+1 >= e.MaxDepth {
		return nil, fmt.Errorf("step %s is at the refinement depth limit: %w", stepID, store.ErrAlreadyAtomic)
	}

	ok, err := e.Store.BeginDecomposition(stepID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("step %s is being decomposed: %w", stepID, store.ErrAlreadyAtomic)
	}

	observability.SetStatus(observability.PhaseRefining, step.Description)
	defer observability.SetStatus(observability.PhaseIdle, "")

	drafts, err := e.Generator.Generate(ctx, generate.Request{
		TaskID:      step.TaskID,
		Description: step.Description,
		Scope:       classify.ScopeComposite,
		Energy:      generate.ParseEnergy(energy),
		Refine:      true,
	})
	if err != nil {
		// Leave no trace of the failed attempt.
		if abortErr := e.Store.AbortDecomposition(stepID); abortErr != nil {
			return nil, fmt.Errorf("decompose %s: %v (revert failed: %v)", stepID, err, abortErr)
		}
		return nil, fmt.Errorf("decompose %s: %w", stepID, err)
	}

	children := draftsToSteps(step.TaskID, step.ID, step.Level+1, drafts)
	if err := e.Store.InsertChildren(step.ID, children); err != nil {
		if abortErr := e.Store.AbortDecomposition(stepID); abortErr != nil {
			return nil, fmt.Errorf("decompose %s: %v (revert failed: %v)", stepID, err, abortErr)
		}
		return nil, err
	}

	if e.Logger != nil {
		e.Logger.LogDecompose(step.TaskID, stepID, len(children))
	}
	return &DecomposeResponse{Children: children, Count: len(children)}, nil
}

// draftsToSteps materializes generated drafts as sibling records, numbered
// from 1.
func draftsToSteps(taskID, parentID string, level int, drafts []generate.StepDraft) []*store.Step {
	steps := make([]*store.Step, 0, len(drafts))
	for i, d := range drafts {
		steps = append(steps, &store.Step{
			ID:               uuid.NewString(),
			TaskID:           taskID,
			ParentStepID:     parentID,
			StepNumber:       i + 1,
			Description:      d.Description,
			ShortLabel:       d.ShortLabel,
			EstimatedMinutes: d.EstimatedMinutes,
			ExecutionMode:    d.ExecutionMode,
			Level:            level,
			IsLeaf:           true,
			State:            store.StateAtomic,
		})
	}
	return steps
}
