package generate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rahul/tukda/internal/observability"
)

// Coordinator is the single place the fallback policy lives: try the model
// path under a bounded timeout, and on any failure take the rule-based path
// exactly once. Because the rule path always answers, Generate is total.
type Coordinator struct {
	Primary  Strategy
	Fallback Strategy
	Timeout  time.Duration
	Logger   *observability.Logger
}

func NewCoordinator(primary, fallback Strategy, timeout time.Duration, logger *observability.Logger) *Coordinator {
	return &Coordinator{
		Primary:  primary,
		Fallback: fallback,
		Timeout:  timeout,
		Logger:   logger,
	}
}

func (c *Coordinator) Generate(ctx context.Context, req Request) ([]StepDraft, error) {
	if c.Primary != nil {
		tctx, cancel := context.WithTimeout(ctx, c.Timeout)
		drafts, err := c.Primary.Generate(tctx, req)
		cancel()
		if err == nil {
			if c.Logger != nil {
				c.Logger.LogGenerate(req.TaskID, "", "model", len(drafts))
			}
			return drafts, nil
		}
		log.Printf("Model generation failed, falling back to templates: %v", err)
		if c.Logger != nil {
			c.Logger.LogFallback(req.TaskID, err.Error())
		}
	}

	drafts, err := c.Fallback.Generate(ctx, req)
	if err != nil {
		// Should be unreachable: the rule generator cannot fail.
		return nil, fmt.Errorf("fallback generation failed: %v: %w", err, ErrUnavailable)
	}
	if c.Logger != nil {
		c.Logger.LogGenerate(req.TaskID, "", "rules", len(drafts))
	}
	return drafts, nil
}
