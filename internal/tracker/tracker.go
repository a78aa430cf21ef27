package tracker

import (
	"fmt"
	"time"

	"github.com/rahul/tukda/internal/store"
)

const (
	baseXP       = 10
	speedBonusXP = 5

	minActualMinutes = 1
	maxActualMinutes = 480
)

// CompletionTracker marks leaves done and computes the per-step reward.
// Streak and session bonuses live in the gamification service, not here.
type CompletionTracker struct {
	Store *store.StepStore
}

func NewCompletionTracker(s *store.StepStore) *CompletionTracker {
	return &CompletionTracker{Store: s}
}

// Completion is the result of marking one leaf step done.
type Completion struct {
	Step        *store.Step
	CompletedAt time.Time
	XPEarned    int
}

// Complete marks a leaf step done. Decomposed steps derive their completion
// from descendants and are rejected with ErrNotALeaf.
func (t *CompletionTracker) Complete(stepID string, actualMinutes int) (*Completion, error) {
	if actualMinutes < minActualMinutes || actualMinutes > maxActualMinutes {
		return nil, fmt.Errorf("actual_minutes %d: %w", actualMinutes, store.ErrInvalidDuration)
	}

	step, err := t.Store.GetStep(stepID)
	if err != nil {
		return nil, err
	}
	if !step.IsLeaf {
		return nil, fmt.Errorf("step %s: %w", stepID, store.ErrNotALeaf)
	}

	now := time.Now().UTC()
	if err := t.Store.MarkCompleted(stepID, actualMinutes, now); err != nil {
		return nil, err
	}

	step.Completed = true
	step.CompletedAt = &now
	step.ActualMinutes = actualMinutes

	return &Completion{
		Step:        step,
		CompletedAt: now,
		XPEarned:    Reward(step.EstimatedMinutes, actualMinutes),
	}, nil
}

// Reward is the per-step XP: a flat base plus a speed bonus when the step
// came in under its estimate.
func Reward(estimatedMinutes, actualMinutes int) int {
	xp := baseXP
	if actualMinutes < estimatedMinutes {
		xp += speedBonusXP
	}
	return xp
}

// TaskStats aggregates completion over a task's leaves.
func (t *CompletionTracker) TaskStats(taskID string) (store.TaskStats, error) {
	return t.Store.Stats(taskID)
}

// SubtreePercent is the completion percentage of the leaves under one step
// (the step itself included when it is a leaf).
func (t *CompletionTracker) SubtreePercent(stepID string) (float64, error) {
	total, completed, err := t.Store.SubtreeLeafCounts(stepID)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 0, nil
	}
	return 100 * float64(completed) / float64(total), nil
}
