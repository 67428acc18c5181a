package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mythos/internal/core"
	"mythos/internal/logger"
	"mythos/internal/metrics"
	"mythos/internal/parser"
	"mythos/internal/retry"
)

// Generation outcomes as logged and counted.
const (
	outcomeSuccess  = "success"
	outcomeFallback = "fallback"
	outcomeError    = "error"
)

// GenerationService builds prompts, calls the endpoint through the retrying
// invoker and parses the answer, substituting fallback content when the
// endpoint is exhausted. It holds no per-call state and is safe for concurrent use.
type GenerationService struct {
	gen      TextGenerator
	fallback Fallback
	invoker  *retry.Invoker
	policy   retry.Policy
	parser   *parser.Parser
	deadline time.Duration
	metrics  *metrics.Recorder
	log      zerolog.Logger
}

// Option configures a GenerationService.
type Option func(*GenerationService)

// WithPolicy sets the retry policy applied to every call.
func WithPolicy(p retry.Policy) Option {
	return func(s *GenerationService) { s.policy = p }
}

// WithInvoker replaces the default invoker.
func WithInvoker(inv *retry.Invoker) Option {
	return func(s *GenerationService) { s.invoker = inv }
}

// WithParser replaces the default response parser.
func WithParser(p *parser.Parser) Option {
	return func(s *GenerationService) { s.parser = p }
}

// WithDeadline bounds each call, retries and backoff included. Zero disables it.
func WithDeadline(d time.Duration) Option {
	return func(s *GenerationService) { s.deadline = d }
}

// WithMetrics records outcomes, attempts and parse strategies.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *GenerationService) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *GenerationService) { s.log = l }
}

// NewGenerationService creates a service over gen with fb as the fallback source.
func NewGenerationService(gen TextGenerator, fb Fallback, opts ...Option) *GenerationService {
	s := &GenerationService{
		gen:      gen,
		fallback: fb,
		policy:   retry.DefaultPolicy(),
		log:      logger.For("generation"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.invoker == nil {
		invOpts := []retry.Option{retry.WithLogger(s.log)}
		if s.metrics != nil {
			invOpts = append(invOpts, retry.WithObserver(s.metrics))
		}
		s.invoker = retry.NewInvoker(invOpts...)
	}
	if s.parser == nil {
		var parserOpts []parser.Option
		if s.metrics != nil {
			parserOpts = append(parserOpts, parser.WithObserver(s.metrics))
		}
		s.parser = parser.NewParser(parserOpts...)
	}
	return s
}

// run drives one call through the invoker. It reports fellBack when the
// endpoint was exhausted and the caller should use fallback content.
func (s *GenerationService) run(ctx context.Context, intent core.Intent, prompt string) (text string, fellBack bool, err error) {
	log := s.log.With().
		Str("request_id", uuid.NewString()).
		Str("intent", intent.String()).
		Logger()

	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deadline)
		defer cancel()
	}

	start := time.Now()
	log.Debug().Int("prompt_len", len(prompt)).Msg("Invoking generation endpoint")

	out := s.invoker.Invoke(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.gen.GenerateText(ctx, prompt)
	})
	elapsed := time.Since(start)

	switch out.Kind {
	case retry.Success:
		log.Debug().Int("attempts", out.Attempts).Dur("elapsed", elapsed).Msg("Generation succeeded")
		s.metrics.ObserveGeneration(intent.String(), outcomeSuccess, "", elapsed)
		return out.Text, false, nil
	case retry.Exhausted:
		log.Warn().
			Err(out.LastErr).
			Str("reason", string(out.Reason)).
			Int("attempts", out.Attempts).
			Dur("elapsed", elapsed).
			Msg("Generation endpoint exhausted, using fallback content")
		s.metrics.ObserveGeneration(intent.String(), outcomeFallback, string(out.Reason), elapsed)
		return "", true, nil
	default:
		log.Error().Err(out.Err).Int("attempts", out.Attempts).Dur("elapsed", elapsed).Msg("Generation failed")
		s.metrics.ObserveGeneration(intent.String(), outcomeError, "", elapsed)
		return "", false, out.Err
	}
}

// generate runs the call and either parses the answer or takes the fallback.
func generate[T any](ctx context.Context, s *GenerationService, intent core.Intent, prompt string, parse func(text string) (T, error), fallback func() T) (T, error) {
	text, fellBack, err := s.run(ctx, intent, prompt)
	if err != nil {
		var zero T
		return zero, err
	}
	if fellBack {
		return fallback(), nil
	}
	return parse(text)
}

// decodeRecord parses text against schema into a typed result.
func decodeRecord[T any](p *parser.Parser, text string, schema parser.Schema) (T, error) {
	var out T
	if err := p.Parse(text, schema).Decode(&out); err != nil {
		return out, fmt.Errorf("failed to decode %s result: %w", schema.Name, err)
	}
	return out, nil
}

// ContinueStory writes the next 2-3 paragraphs of a story.
func (s *GenerationService) ContinueStory(ctx context.Context, storyContent, direction string, existing core.StoryContext) (core.Continuation, error) {
	fallback := func() core.Continuation { return s.fallback.ContinueStory(storyContent, direction) }
	return generate(ctx, s, core.IntentContinueStory, continueStoryPrompt(storyContent, direction, existing),
		func(text string) (core.Continuation, error) {
			text = strings.TrimSpace(text)
			if text == "" {
				return fallback(), nil
			}
			return core.Continuation{Text: text}, nil
		}, fallback)
}

// DevelopCharacter expands a named character into a profile.
func (s *GenerationService) DevelopCharacter(ctx context.Context, name, currentTraits, storyContext string) (core.CharacterProfile, error) {
	return generate(ctx, s, core.IntentDevelopCharacter, developCharacterPrompt(name, currentTraits, storyContext),
		func(text string) (core.CharacterProfile, error) {
			return decodeRecord[core.CharacterProfile](s.parser, text, characterProfileSchema(name))
		},
		func() core.CharacterProfile { return s.fallback.DevelopCharacter(name, currentTraits, storyContext) })
}

// GeneratePlotTwist invents a plot twist, optionally for a genre.
func (s *GenerationService) GeneratePlotTwist(ctx context.Context, storyContext, genre string) (core.PlotTwist, error) {
	return generate(ctx, s, core.IntentPlotTwist, plotTwistPrompt(storyContext, genre),
		func(text string) (core.PlotTwist, error) {
			return decodeRecord[core.PlotTwist](s.parser, text, plotTwistSchema)
		},
		func() core.PlotTwist { return s.fallback.PlotTwist(storyContext, genre) })
}

// GenerateStorySuggestions proposes story ideas.
func (s *GenerationService) GenerateStorySuggestions(ctx context.Context, genre, theme string) (core.StorySuggestions, error) {
	return generate(ctx, s, core.IntentStorySuggestions, storySuggestionsPrompt(genre, theme),
		func(text string) (core.StorySuggestions, error) {
			records, ok := s.parser.ParseList(text, storySuggestionSchema)
			if !ok {
				return core.StorySuggestions{Items: []core.StorySuggestion{defaultSuggestion}}, nil
			}
			items := make([]core.StorySuggestion, 0, len(records))
			for _, rec := range records {
				var item core.StorySuggestion
				if err := rec.Decode(&item); err != nil {
					return core.StorySuggestions{}, fmt.Errorf("failed to decode story suggestion: %w", err)
				}
				items = append(items, item)
			}
			return core.StorySuggestions{Items: items}, nil
		},
		func() core.StorySuggestions { return s.fallback.StorySuggestions(genre, theme) })
}

// GenerateCharacterFromStory creates a character that fits the story.
func (s *GenerationService) GenerateCharacterFromStory(ctx context.Context, storyContent, name string) (core.Character, error) {
	name = strings.TrimSpace(name)
	return generate(ctx, s, core.IntentCharacterFromStory, characterFromStoryPrompt(storyContent, name),
		func(text string) (core.Character, error) {
			return decodeRecord[core.Character](s.parser, text, characterSchema(name))
		},
		func() core.Character { return s.fallback.CharacterFromStory(storyContent, name) })
}

// GeneratePlotFromStory outlines a plot structure for the story.
func (s *GenerationService) GeneratePlotFromStory(ctx context.Context, storyContent, plotType string) (core.Plot, error) {
	plotType = orDefault(strings.TrimSpace(plotType), defaultPlotType)
	return generate(ctx, s, core.IntentPlotFromStory, plotFromStoryPrompt(storyContent, plotType),
		func(text string) (core.Plot, error) {
			return decodeRecord[core.Plot](s.parser, text, plotSchema(plotType))
		},
		func() core.Plot { return s.fallback.PlotFromStory(storyContent, plotType) })
}

// WritingAssistance helps with a dialogue, description, action, emotion or general task.
func (s *GenerationService) WritingAssistance(ctx context.Context, prompt, writingContext, assistType string) (core.Assistance, error) {
	assistType = orDefault(strings.TrimSpace(assistType), AssistGeneral)
	fallback := func() core.Assistance { return s.fallback.WritingAssistance(prompt, assistType) }
	return generate(ctx, s, core.IntentWritingAssistance, writingAssistancePrompt(prompt, writingContext, assistType),
		func(text string) (core.Assistance, error) {
			text = strings.TrimSpace(text)
			if text == "" {
				return fallback(), nil
			}
			return core.Assistance{Text: text, Type: assistType}, nil
		}, fallback)
}

// AnalyzeStory gives constructive feedback on a story.
func (s *GenerationService) AnalyzeStory(ctx context.Context, storyContent, focus string) (core.Analysis, error) {
	focus = strings.TrimSpace(focus)
	resultFocus := orDefault(focus, AssistGeneral)
	fallback := func() core.Analysis { return s.fallback.AnalyzeStory(storyContent, resultFocus) }
	return generate(ctx, s, core.IntentAnalyzeStory, analyzeStoryPrompt(storyContent, focus),
		func(text string) (core.Analysis, error) {
			text = strings.TrimSpace(text)
			if text == "" {
				return fallback(), nil
			}
			return core.Analysis{Text: text, Focus: resultFocus}, nil
		}, fallback)
}

// GenerateWritingPrompts returns up to five creative writing prompts.
func (s *GenerationService) GenerateWritingPrompts(ctx context.Context, genre, theme, difficulty string) (core.WritingPrompts, error) {
	fallback := func() core.WritingPrompts { return s.fallback.WritingPrompts(genre, theme, difficulty) }
	return generate(ctx, s, core.IntentWritingPrompts, writingPromptsPrompt(genre, theme, difficulty),
		func(text string) (core.WritingPrompts, error) {
			if records, ok := s.parser.ParseList(text, writingPromptSchema); ok {
				items := make([]core.WritingPrompt, 0, len(records))
				for _, rec := range records {
					var item core.WritingPrompt
					if err := rec.Decode(&item); err != nil {
						return core.WritingPrompts{}, fmt.Errorf("failed to decode writing prompt: %w", err)
					}
					items = append(items, item)
				}
				return core.WritingPrompts{Items: items}, nil
			}

			lines := parser.NumberedLines(text, writingPromptsLimit)
			if len(lines) == 0 {
				return fallback(), nil
			}
			items := make([]core.WritingPrompt, len(lines))
			for i, line := range lines {
				items[i] = core.WritingPrompt{Prompt: line, Description: fmt.Sprintf("Creative writing prompt %d", i+1)}
			}
			return core.WritingPrompts{Items: items}, nil
		}, fallback)
}

// Generate dispatches a request to the typed method for its intent.
// It does not validate parameters; callers run req.Validate first.
func (s *GenerationService) Generate(ctx context.Context, req core.Request) (core.Result, error) {
	p := req.Param
	switch req.Intent {
	case core.IntentContinueStory:
		return s.ContinueStory(ctx, p(core.ParamStoryContent), p(core.ParamDirection), req.StoryContext)
	case core.IntentDevelopCharacter:
		return s.DevelopCharacter(ctx, p(core.ParamCharacterName), p(core.ParamCurrentTraits), p(core.ParamStoryContext))
	case core.IntentPlotTwist:
		return s.GeneratePlotTwist(ctx, p(core.ParamStoryContext), p(core.ParamGenre))
	case core.IntentStorySuggestions:
		return s.GenerateStorySuggestions(ctx, p(core.ParamGenre), p(core.ParamTheme))
	case core.IntentCharacterFromStory:
		return s.GenerateCharacterFromStory(ctx, p(core.ParamStoryContent), p(core.ParamCharacterName))
	case core.IntentPlotFromStory:
		return s.GeneratePlotFromStory(ctx, p(core.ParamStoryContent), p(core.ParamPlotType))
	case core.IntentWritingAssistance:
		return s.WritingAssistance(ctx, p(core.ParamPrompt), p(core.ParamContext), p(core.ParamType))
	case core.IntentAnalyzeStory:
		return s.AnalyzeStory(ctx, p(core.ParamStoryContent), p(core.ParamFocus))
	case core.IntentWritingPrompts:
		return s.GenerateWritingPrompts(ctx, p(core.ParamGenre), p(core.ParamTheme), p(core.ParamDifficulty))
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownIntent, req.Intent)
	}
}

// Retryable reports whether a fatal generation error is worth retrying later:
// an overload that escaped the invoker or a cancelled or expired call.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return retry.IsOverloaded(err) ||
		errors.Is(err, retry.ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
