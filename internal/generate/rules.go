package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rahul/tukda/internal/store"
)

// RuleGenerator is the deterministic template path. It never fails: if no
// keyword matches it falls back to the generic start/execute/wrap-up
// template, which makes the overall pipeline total.
type RuleGenerator struct{}

func NewRuleGenerator() *RuleGenerator {
	return &RuleGenerator{}
}

type template struct {
	keywords []string
	steps    []StepDraft
}

// The template library is package-level and never mutated; Generate hands
// out copies.
var templates = []template{
	{
		keywords: []string{"email", "mail", "reply"},
		steps: []StepDraft{
			{Description: "Open your email client and start a new message", ShortLabel: "Compose", EstimatedMinutes: 2, ExecutionMode: store.ModeDigital},
			{Description: "Write the body of the email", ShortLabel: "Write body", EstimatedMinutes: 5, ExecutionMode: store.ModeDigital},
			{Description: "Re-read once, add recipients and send", ShortLabel: "Send", EstimatedMinutes: 2, ExecutionMode: store.ModeDigital},
		},
	},
	{
		keywords: []string{"buy", "shop", "purchase", "order"},
		steps: []StepDraft{
			{Description: "List the items you need", ShortLabel: "List items", EstimatedMinutes: 3, ExecutionMode: store.ModeHuman},
			{Description: "Add the items to your cart and go to checkout", ShortLabel: "Checkout", EstimatedMinutes: 4, ExecutionMode: store.ModeDigital},
			{Description: "Confirm the order and pay", ShortLabel: "Pay", EstimatedMinutes: 2, ExecutionMode: store.ModeDigital},
		},
	},
	{
		keywords: []string{"call", "phone", "ring"},
		steps: []StepDraft{
			{Description: "Find the number and note what you want to say", ShortLabel: "Prepare", EstimatedMinutes: 3, ExecutionMode: store.ModeHuman},
			{Description: "Make the call", ShortLabel: "Call", EstimatedMinutes: 5, ExecutionMode: store.ModeHuman},
			{Description: "Write down the outcome and any follow-ups", ShortLabel: "Note outcome", EstimatedMinutes: 2, ExecutionMode: store.ModeHuman},
		},
	},
	{
		keywords: []string{"write", "draft", "document"},
		steps: []StepDraft{
			{Description: "Jot down a rough outline of the main points", ShortLabel: "Outline", EstimatedMinutes: 4, ExecutionMode: store.ModeDigital},
			{Description: "Write a first draft without editing", ShortLabel: "Draft", EstimatedMinutes: 5, ExecutionMode: store.ModeDigital},
			{Description: "Read it back once and fix the rough spots", ShortLabel: "Revise", EstimatedMinutes: 4, ExecutionMode: store.ModeDigital},
		},
	},
	{
		keywords: []string{"clean", "tidy", "organize", "organise"},
		steps: []StepDraft{
			{Description: "Gather what you need (bag, cloth, box)", ShortLabel: "Gather", EstimatedMinutes: 2, ExecutionMode: store.ModeHuman},
			{Description: "Clear one surface or one small area", ShortLabel: "Clear area", EstimatedMinutes: 5, ExecutionMode: store.ModeHuman},
			{Description: "Put everything back where it belongs", ShortLabel: "Put away", EstimatedMinutes: 4, ExecutionMode: store.ModeHuman},
			{Description: "Do a last quick look and throw out the trash", ShortLabel: "Final pass", EstimatedMinutes: 2, ExecutionMode: store.ModeHuman},
		},
	},
}

// genericSteps builds the guaranteed last-resort template. Always 3 steps.
func genericSteps(description string) []StepDraft {
	return []StepDraft{
		{Description: fmt.Sprintf("Get set up to start on: %s", description), ShortLabel: "Start", EstimatedMinutes: 3, ExecutionMode: store.ModeHuman},
		{Description: "Do the main part of the work", ShortLabel: "Execute", EstimatedMinutes: 5, ExecutionMode: store.ModeHuman},
		{Description: "Finish off and tidy up loose ends", ShortLabel: "Wrap up", EstimatedMinutes: 3, ExecutionMode: store.ModeHuman},
	}
}

func (g *RuleGenerator) Generate(ctx context.Context, req Request) ([]StepDraft, error) {
	desc := strings.ToLower(req.Description)

	for _, t := range templates {
		for _, kw := range t.keywords {
			if strings.Contains(desc, kw) {
				out := make([]StepDraft, len(t.steps))
				copy(out, t.steps)
				return out, nil
			}
		}
	}

	return genericSteps(req.Description), nil
}
