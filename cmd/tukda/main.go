package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rahul/tukda/internal/classify"
	"github.com/rahul/tukda/internal/engine"
	"github.com/rahul/tukda/internal/gateway"
	"github.com/rahul/tukda/internal/generate"
	"github.com/rahul/tukda/internal/observability"
	"github.com/rahul/tukda/internal/store"
	"github.com/rahul/tukda/internal/tracker"
	"github.com/rahul/tukda/pkg/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

func main() {
	observability.PrintBanner()
	observability.InitializeTerminal()

	// Route all log output through the terminal mutex so it never
	// interrupts the dashboard's cursor save/restore sequence.
	log.SetOutput(observability.NewTermWriter())

	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg := config.LoadConfig(cfgPath)

	steps, err := store.NewStepStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer steps.Close()

	logger := observability.NewLogger()
	prompts := generate.NewPromptManager(cfg.App.PromptsDir)
	classifier := classify.NewClassifier()

	// Initialize LLM (using default enabled provider). The engine stays
	// usable without one: the rule-based templates carry generation alone.
	var model llms.Model
	pName, pCfg := cfg.GetDefaultProvider()
	switch pName {
	case "":
		log.Printf("Warning: no enabled provider in config, running on templates only")
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		model, err = openai.New(opts...)
		if err != nil {
			log.Fatal(err)
		}
	default:
		log.Fatalf("Provider %s not yet implemented in main", pName)
	}

	var primary generate.Strategy
	if model != nil {
		primary = generate.NewModelGenerator(model, prompts, logger)
	}
	coordinator := generate.NewCoordinator(
		primary,
		generate.NewRuleGenerator(),
		time.Duration(cfg.Engine.GenerationTimeoutSeconds)*time.Second,
		logger,
	)

	completions := tracker.NewCompletionTracker(steps)
	eng := engine.New(steps, classifier, coordinator, completions, logger, cfg.Engine.MaxDepth)

	var console gateway.Surface = gateway.NewConsole(eng, cfg.Engine.DefaultEnergy, os.Stdin, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start Live Resource Dashboard (1-second updates)
	go func() {
		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.PrintLiveStatus()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				observability.Heartbeat()
				logger.LogHeartbeat()
			}
		}
	}()

	go func() {
		if err := console.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("\033[91m[ FAIL ] CONSOLE ERROR: %v\033[0m", err)
		}
		stop()
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	// Reset terminal aesthetics
	observability.CleanupTerminal()

	// Give a short time for final logs/syncs
	time.Sleep(500 * time.Millisecond)
	log.Println("\033[95m[ EXIT ] TUKDA SHUT DOWN. GOODBYE.\033[0m")
}
