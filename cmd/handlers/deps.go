package handlers

import (
	"context"
	"fmt"

	"mythos/internal/config"
	"mythos/internal/fallback"
	"mythos/internal/llm"
	"mythos/internal/metrics"
	"mythos/internal/services"
	"mythos/internal/store"
)

// newTextGenerator returns the Gemini client, or the offline endpoint when
// ai.offline is set. The returned func releases the client.
func newTextGenerator(ctx context.Context, cfg *config.Config) (services.TextGenerator, func(), error) {
	if cfg.AI.Offline {
		return llm.Offline{Reason: "offline mode enabled in configuration"}, func() {}, nil
	}

	client, err := llm.NewClient(ctx, llm.Config{
		APIKey:            cfg.AI.Gemini.APIKey,
		Model:             cfg.AI.Gemini.Model,
		Timeout:           cfg.AI.Gemini.TimeoutDuration(),
		MaxTokens:         cfg.AI.Gemini.MaxTokens,
		Temperature:       cfg.AI.Gemini.Temperature,
		RequestsPerMinute: cfg.AI.Gemini.RequestsPerMinute,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// newGenerationService wires the retry policy, deadline and metrics from cfg.
// rec may be nil.
func newGenerationService(gen services.TextGenerator, cfg *config.Config, rec *metrics.Recorder) *services.GenerationService {
	opts := []services.Option{
		services.WithPolicy(cfg.AI.Retry.RetryPolicy()),
		services.WithDeadline(cfg.AI.Retry.DeadlineDuration()),
	}
	if rec != nil {
		opts = append(opts, services.WithMetrics(rec))
	}
	return services.NewGenerationService(gen, fallback.New(), opts...)
}

func openStore(cfg *config.Config) (*store.Store, error) {
	st, err := store.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open story store at %s: %w", cfg.Database.Path, err)
	}
	return st, nil
}
