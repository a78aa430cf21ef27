package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/tukda/internal/classify"
	"github.com/rahul/tukda/internal/generate"
	"github.com/rahul/tukda/internal/store"
	"github.com/rahul/tukda/internal/tracker"
)

// fakeStrategy plays the coordinator: it returns the low end of the energy
// band, or a fixed error.
type fakeStrategy struct {
	err   error
	calls int
	last  generate.Request
}

func (f *fakeStrategy) Generate(ctx context.Context, req generate.Request) ([]generate.StepDraft, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	n, _ := generate.TargetRange(req.Energy)
	drafts := make([]generate.StepDraft, 0, n)
	for i := 0; i < n; i++ {
		drafts = append(drafts, generate.StepDraft{
			Description:      "do a small piece of the work",
			ShortLabel:       "Piece",
			EstimatedMinutes: 2 + i%4,
			ExecutionMode:    store.ModeHuman,
		})
	}
	return drafts, nil
}

func newTestEngine(t *testing.T, strat generate.Strategy, maxDepth int) (*Engine, *store.StepStore) {
	t.Helper()
	s, err := store.NewStepStore(filepath.Join(t.TempDir(), "steps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	eng := New(s, classify.NewClassifier(), strat, tracker.NewCompletionTracker(s), nil, maxDepth)
	return eng, s
}

// seedLongStep plants a leaf whose estimate came from the external task
// editor, making it eligible for decomposition.
func seedLongStep(t *testing.T, s *store.StepStore, id string, minutes, level int) *store.Step {
	t.Helper()
	require.NoError(t, s.UpsertTask("t1", "seeded"))
	st := &store.Step{
		ID:               id,
		TaskID:           "t1",
		StepNumber:       1,
		Description:      "a chunky step",
		ShortLabel:       "Chunky",
		EstimatedMinutes: minutes,
		ExecutionMode:    store.ModeHuman,
		Level:            level,
		IsLeaf:           true,
		State:            store.StateAtomic,
	}
	require.NoError(t, s.InsertTopLevel([]*store.Step{st}))
	return st
}

func TestSplit_AtomicTask(t *testing.T) {
	strat := &fakeStrategy{}
	eng, _ := newTestEngine(t, strat, 0)

	resp, err := eng.Split(context.Background(), SplitRequest{
		TaskID:          "t1",
		Description:     "Email the quarterly report to finance",
		ExplicitMinutes: 7,
	})
	require.NoError(t, err)
	assert.Equal(t, classify.ScopeAtomic, resp.Scope)
	assert.Empty(t, resp.Steps)
	assert.NotEmpty(t, resp.Message)
	assert.Zero(t, strat.calls, "atomic tasks never reach the generator")
}

func TestSplit_CompositeTask(t *testing.T) {
	strat := &fakeStrategy{}
	eng, _ := newTestEngine(t, strat, 0)

	resp, err := eng.Split(context.Background(), SplitRequest{
		TaskID:          "t1",
		Description:     "Plan and execute the team offsite",
		ExplicitMinutes: 45,
		Energy:          "medium",
	})
	require.NoError(t, err)
	assert.Equal(t, classify.ScopeComposite, resp.Scope)
	require.GreaterOrEqual(t, len(resp.Steps), 5)
	require.LessOrEqual(t, len(resp.Steps), 6)

	for i, st := range resp.Steps {
		assert.Equal(t, i+1, st.StepNumber)
		assert.Equal(t, 0, st.Level)
		assert.Empty(t, st.ParentStepID)
		assert.True(t, st.IsLeaf)
		assert.Equal(t, store.StateAtomic, st.State)
		assert.GreaterOrEqual(t, st.EstimatedMinutes, 2)
		assert.LessOrEqual(t, st.EstimatedMinutes, 5)
	}
	assert.Equal(t, generate.EnergyMedium, strat.last.Energy)
}

func TestSplit_ProjectTask(t *testing.T) {
	strat := &fakeStrategy{}
	eng, _ := newTestEngine(t, strat, 0)

	resp, err := eng.Split(context.Background(), SplitRequest{
		TaskID:          "t1",
		Description:     "Redesign the onboarding funnel",
		ExplicitMinutes: 180,
	})
	require.NoError(t, err)
	assert.Equal(t, classify.ScopeProject, resp.Scope)
	assert.Empty(t, resp.Steps)
	assert.NotEmpty(t, resp.Message, "projects get a phase-level suggestion")
	assert.Zero(t, strat.calls)
}

func TestSplit_InvalidMinutes(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeStrategy{}, 0)

	_, err := eng.Split(context.Background(), SplitRequest{TaskID: "t1", Description: "x", ExplicitMinutes: -1})
	assert.ErrorIs(t, err, store.ErrInvalidDuration)

	_, err = eng.Split(context.Background(), SplitRequest{TaskID: "t1", Description: "x", ExplicitMinutes: 481})
	assert.ErrorIs(t, err, store.ErrInvalidDuration)
}

func TestSplit_RepeatReturnsExistingSteps(t *testing.T) {
	strat := &fakeStrategy{}
	eng, _ := newTestEngine(t, strat, 0)

	req := SplitRequest{TaskID: "t1", Description: "Plan the offsite", ExplicitMinutes: 30}
	first, err := eng.Split(context.Background(), req)
	require.NoError(t, err)

	second, err := eng.Split(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, second.Steps, len(first.Steps))
	assert.Equal(t, first.Steps[0].ID, second.Steps[0].ID)
	assert.Equal(t, 1, strat.calls, "a repeat split must not regenerate")
}

func TestListSteps(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeStrategy{}, 0)

	_, err := eng.Split(context.Background(), SplitRequest{TaskID: "t1", Description: "Plan the offsite", ExplicitMinutes: 30, Energy: "low"})
	require.NoError(t, err)

	resp, err := eng.ListSteps("t1")
	require.NoError(t, err)
	require.Len(t, resp.Steps, 3)
	assert.Equal(t, 3, resp.Stats.Total)
	assert.Zero(t, resp.Stats.Completed)

	_, err = eng.CompleteStep(resp.Steps[0].ID, 2)
	require.NoError(t, err)

	resp, err = eng.ListSteps("t1")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Stats.Completed)
	assert.InDelta(t, 100.0/3, resp.Stats.Percent, 0.001)
	assert.Equal(t, 2, resp.Stats.TotalActualMinutes)

	_, err = eng.ListSteps("unknown")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCompleteStep_XP(t *testing.T) {
	eng, s := newTestEngine(t, &fakeStrategy{}, 0)
	seedLongStep(t, s, "s1", 5, 0)

	resp, err := eng.CompleteStep("s1", 2)
	require.NoError(t, err)
	assert.Equal(t, "completed", resp.Status)
	assert.Equal(t, 15, resp.XPEarned)
	assert.False(t, resp.CompletedAt.IsZero())

	eng2, s2 := newTestEngine(t, &fakeStrategy{}, 0)
	seedLongStep(t, s2, "s2", 5, 0)
	resp, err = eng2.CompleteStep("s2", 6)
	require.NoError(t, err)
	assert.Equal(t, 10, resp.XPEarned)
}

func TestDecomposeStep(t *testing.T) {
	strat := &fakeStrategy{}
	eng, s := newTestEngine(t, strat, 3)
	seedLongStep(t, s, "s1", 10, 0)

	resp, err := eng.DecomposeStep(context.Background(), "s1", "low")
	require.NoError(t, err)
	require.Equal(t, resp.Count, len(resp.Children))
	require.GreaterOrEqual(t, resp.Count, 3)

	for i, c := range resp.Children {
		assert.Equal(t, i+1, c.StepNumber, "child numbering restarts at 1")
		assert.Equal(t, 1, c.Level, "child level is parent level + 1")
		assert.Equal(t, "s1", c.ParentStepID)
		assert.True(t, c.IsLeaf)
	}

	parent, err := s.GetStep("s1")
	require.NoError(t, err)
	assert.False(t, parent.IsLeaf)
	assert.Equal(t, store.StateDecomposed, parent.State)
	assert.True(t, strat.last.Refine)

	children, err := eng.GetChildren("s1")
	require.NoError(t, err)
	assert.Len(t, children, resp.Count)
}

func TestDecomposeStep_ShortStepIsAtomic(t *testing.T) {
	eng, s := newTestEngine(t, &fakeStrategy{}, 3)
	seedLongStep(t, s, "s1", 3, 0)

	_, err := eng.DecomposeStep(context.Background(), "s1", "")
	assert.ErrorIs(t, err, store.ErrAlreadyAtomic)
}

func TestDecomposeStep_Idempotence(t *testing.T) {
	eng, s := newTestEngine(t, &fakeStrategy{}, 3)
	seedLongStep(t, s, "s1", 10, 0)

	_, err := eng.DecomposeStep(context.Background(), "s1", "low")
	require.NoError(t, err)

	before, err := s.CountSteps("t1")
	require.NoError(t, err)

	_, err = eng.DecomposeStep(context.Background(), "s1", "low")
	assert.ErrorIs(t, err, store.ErrAlreadyAtomic)

	after, err := s.CountSteps("t1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "a losing decompose inserts zero rows")
}

func TestDecomposeStep_DepthLimit(t *testing.T) {
	eng, s := newTestEngine(t, &fakeStrategy{}, 1)
	seedLongStep(t, s, "s1", 10, 0)

	_, err := eng.DecomposeStep(context.Background(), "s1", "")
	assert.ErrorIs(t, err, store.ErrAlreadyAtomic)
}

// A total generation failure must revert the parent and write nothing.
func TestDecomposeStep_GenerationFailureReverts(t *testing.T) {
	strat := &fakeStrategy{err: errors.New("all paths down")}
	eng, s := newTestEngine(t, strat, 3)
	seedLongStep(t, s, "s1", 10, 0)

	_, err := eng.DecomposeStep(context.Background(), "s1", "")
	require.Error(t, err)

	parent, err := s.GetStep("s1")
	require.NoError(t, err)
	assert.Equal(t, store.StateAtomic, parent.State)
	assert.True(t, parent.IsLeaf)

	children, err := s.Children("s1")
	require.NoError(t, err)
	assert.Empty(t, children)
}

func TestDecomposeStep_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeStrategy{}, 3)

	_, err := eng.DecomposeStep(context.Background(), "missing", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetChildren_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t, &fakeStrategy{}, 3)

	_, err := eng.GetChildren("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
