package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/rahul/tukda/internal/observability"
	"github.com/rahul/tukda/internal/store"
	"github.com/tmc/langchaingo/llms"
)

const defaultSplitterPrompt = `You are a task coach for people who struggle to start big tasks.
Break the task into small concrete actions of 2 to 5 minutes each.
Each action must be something one person can physically start right now.
Always answer by calling the propose_steps function. Never answer in prose.`

const defaultRefinePrompt = `You are a task coach. The user is stuck on one step of a larger task.
Break that single step into smaller concrete actions of 2 to 5 minutes each.
Always answer by calling the propose_steps function. Never answer in prose.`

// ModelGenerator asks the LLM for steps through a propose_steps function
// call and parses the structured arguments. Anything malformed is rejected
// outright so the coordinator can fall back.
type ModelGenerator struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewModelGenerator(model llms.Model, prompts *PromptManager, logger *observability.Logger) *ModelGenerator {
	return &ModelGenerator{
		Model:   model,
		Prompts: prompts,
		Logger:  logger,
	}
}

// proposedStep mirrors the propose_steps JSON schema. Unmarshal is the
// first validation gate: wrong types fail the whole proposal.
type proposedStep struct {
	Description      string `json:"description"`
	ShortLabel       string `json:"short_label"`
	EstimatedMinutes int    `json:"estimated_minutes"`
	ExecutionMode    string `json:"execution_mode"`
}

func (g *ModelGenerator) Generate(ctx context.Context, req Request) ([]StepDraft, error) {
	systemPrompt := g.systemPrompt(req)
	lo, hi := TargetRange(req.Energy)

	userPrompt := fmt.Sprintf(
		"TASK: %s\nSCOPE: %s\nENERGY: %s\n\nPropose between %d and %d steps of 2-5 minutes each.",
		req.Description, req.Scope, req.Energy, lo, hi)

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	resp, err := g.Model.GenerateContent(ctx, messages, llms.WithTools(proposeStepsTools))
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}
	choice := resp.Choices[0]

	if g.Logger != nil {
		g.Logger.LogLLM(req.TaskID, userPrompt, choice.Content, choice.ToolCalls)
	}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall.Name != "propose_steps" {
			continue
		}
		var payload struct {
			Steps []proposedStep `json:"steps"`
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &payload); err != nil {
			return nil, fmt.Errorf("failed to parse propose_steps arguments: %v", err)
		}
		return validateProposal(payload.Steps)
	}

	return nil, fmt.Errorf("model did not call propose_steps")
}

func (g *ModelGenerator) systemPrompt(req Request) string {
	if g.Prompts == nil {
		if req.Refine {
			return defaultRefinePrompt
		}
		return defaultSplitterPrompt
	}

	var prompt string
	var err error
	if req.Refine {
		prompt, err = g.Prompts.GetRefinePrompt()
	} else {
		prompt, err = g.Prompts.GetSplitterPrompt()
	}
	if err != nil {
		log.Printf("Warning: Failed to load generation prompt: %v", err)
		if req.Refine {
			return defaultRefinePrompt
		}
		return defaultSplitterPrompt
	}
	return prompt
}

// validateProposal is strict: an out-of-band step count, a missing field or
// a nonsense duration rejects the whole proposal. Valid durations are then
// clamped into the 2-5 minute window.
func validateProposal(steps []proposedStep) ([]StepDraft, error) {
	if len(steps) < minSteps || len(steps) > maxSteps {
		return nil, fmt.Errorf("model proposed %d steps, want %d-%d", len(steps), minSteps, maxSteps)
	}

	drafts := make([]StepDraft, 0, len(steps))
	for i, s := range steps {
		if s.Description == "" || s.ShortLabel == "" {
			return nil, fmt.Errorf("step %d is missing description or short_label", i+1)
		}
		if s.EstimatedMinutes < 1 || s.EstimatedMinutes > 60 {
			return nil, fmt.Errorf("step %d has estimated_minutes %d, want 1-60", i+1, s.EstimatedMinutes)
		}
		mode := store.ExecutionMode(s.ExecutionMode)
		if mode != store.ModeDigital && mode != store.ModeHuman {
			return nil, fmt.Errorf("step %d has unknown execution_mode %q", i+1, s.ExecutionMode)
		}
		drafts = append(drafts, StepDraft{
			Description:      s.Description,
			ShortLabel:       s.ShortLabel,
			EstimatedMinutes: clampMinutes(s.EstimatedMinutes),
			ExecutionMode:    mode,
		})
	}
	return drafts, nil
}

// proposeStepsTools is the single function the model is allowed to call.
var proposeStepsTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "propose_steps",
			Description: "Submit an ordered list of 2-5 minute micro-steps for the task.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"steps": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"description": map[string]any{
									"type": "string",
								},
								"short_label": map[string]any{
									"type": "string",
								},
								"estimated_minutes": map[string]any{
									"type": "integer",
								},
								"execution_mode": map[string]any{
									"type": "string",
									"enum": []string{"digital", "human"},
								},
							},
							"required": []string{"description", "short_label", "estimated_minutes", "execution_mode"},
						},
					},
				},
				"required": []string{"steps"},
			},
		},
	},
}
