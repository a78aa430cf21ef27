package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_ExplicitEstimate(t *testing.T) {
	c := NewClassifier()

	cases := []struct {
		minutes int
		want    Scope
	}{
		{2, ScopeAtomic},
		{7, ScopeAtomic},
		{14, ScopeAtomic},
		{15, ScopeComposite},
		{45, ScopeComposite},
		{60, ScopeComposite},
		{61, ScopeProject},
		{180, ScopeProject},
	}

	for _, tc := range cases {
		got := c.Classify("anything at all", tc.minutes)
		assert.Equal(t, tc.want, got, "minutes=%d", tc.minutes)
	}
}

func TestClassify_ExplicitEstimateOverridesHeuristic(t *testing.T) {
	c := NewClassifier()

	// Long multi-action description, but the user says 10 minutes.
	desc := "Plan the agenda, book the room, invite everyone and then prepare the slides for the kickoff"
	assert.Equal(t, ScopeAtomic, c.Classify(desc, 10))
}

func TestClassify_Heuristic(t *testing.T) {
	c := NewClassifier()

	assert.Equal(t, ScopeAtomic, c.Classify("Water the plants", 0))
	assert.Equal(t, ScopeComposite, c.Classify("Tidy the desk and sort the mail", 0))
	assert.Equal(t, ScopeProject, c.Classify(
		"Research venues, compare prices, book the location, plan the agenda, "+
			"invite all the speakers, organise catering, and then set up the "+
			"registration page for the annual conference", 0))
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewClassifier()

	first := c.Classify("Sort the inbox and archive old threads", 0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify("Sort the inbox and archive old threads", 0))
	}
}
