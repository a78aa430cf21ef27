package classify

import (
	"regexp"
	"strings"
)

// Scope is the coarse size class that decides whether a task is split.
type Scope string

const (
	// ScopeAtomic tasks are done directly, no split.
	ScopeAtomic Scope = "atomic"
	// ScopeComposite tasks are split into 3-8 micro-steps.
	ScopeComposite Scope = "composite"
	// ScopeProject tasks are too big for micro-steps; suggest phases.
	ScopeProject Scope = "project"
)

// Explicit-estimate thresholds, in minutes.
const (
	atomicBelow   = 15
	compositeUpTo = 60
)

// Classifier decides a task's scope. It is a pure evaluator: no side
// effects, same answer for the same input.
type Classifier struct {
	conjunctions []*regexp.Regexp
}

// Multi-action markers: each hit suggests the description packs more than
// one action.
var defaultConjunctions = []string{
	`\band\b`,
	`\bthen\b`,
	`\bafter\b`,
	`\bfollowed by\b`,
	`[,;]`,
}

func NewClassifier() *Classifier {
	c := &Classifier{}
	for _, p := range defaultConjunctions {
		c.conjunctions = append(c.conjunctions, regexp.MustCompile(p))
	}
	return c
}

// Classify maps a task onto a scope. An explicit minute estimate always
// wins; the description heuristic only substitutes when none is given.
func (c *Classifier) Classify(description string, explicitMinutes int) Scope {
	if explicitMinutes > 0 {
		switch {
		case explicitMinutes < atomicBelow:
			return ScopeAtomic
		case explicitMinutes <= compositeUpTo:
			return ScopeComposite
		default:
			return ScopeProject
		}
	}
	return c.classifyByDescription(description)
}

func (c *Classifier) classifyByDescription(description string) Scope {
	desc := strings.ToLower(strings.TrimSpace(description))
	words := len(strings.Fields(desc))

	hits := 0
	for _, re := range c.conjunctions {
		hits += len(re.FindAllString(desc, -1))
	}

	switch {
	case words > 25 || hits >= 3:
		return ScopeProject
	case words >= 8 || hits >= 1:
		return ScopeComposite
	default:
		return ScopeAtomic
	}
}
