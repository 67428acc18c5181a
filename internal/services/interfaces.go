package services

import (
	"context"

	"mythos/internal/core"
)

// TextGenerator is the external generation endpoint.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Fallback produces static content for every intent when the endpoint is exhausted.
type Fallback interface {
	PlotTwist(storyContext, genre string) core.PlotTwist
	DevelopCharacter(name, currentTraits, storyContext string) core.CharacterProfile
	ContinueStory(storyContent, direction string) core.Continuation
	StorySuggestions(genre, theme string) core.StorySuggestions
	CharacterFromStory(storyContent, name string) core.Character
	PlotFromStory(storyContent, plotType string) core.Plot
	WritingAssistance(prompt, assistType string) core.Assistance
	AnalyzeStory(storyContent, focus string) core.Analysis
	WritingPrompts(genre, theme, difficulty string) core.WritingPrompts
}

// StoryGenerator is the generation API consumed by the HTTP and CLI surfaces.
type StoryGenerator interface {
	ContinueStory(ctx context.Context, storyContent, direction string, existing core.StoryContext) (core.Continuation, error)
	DevelopCharacter(ctx context.Context, name, currentTraits, storyContext string) (core.CharacterProfile, error)
	GeneratePlotTwist(ctx context.Context, storyContext, genre string) (core.PlotTwist, error)
	GenerateStorySuggestions(ctx context.Context, genre, theme string) (core.StorySuggestions, error)
	GenerateCharacterFromStory(ctx context.Context, storyContent, name string) (core.Character, error)
	GeneratePlotFromStory(ctx context.Context, storyContent, plotType string) (core.Plot, error)
	WritingAssistance(ctx context.Context, prompt, writingContext, assistType string) (core.Assistance, error)
	AnalyzeStory(ctx context.Context, storyContent, focus string) (core.Analysis, error)
	GenerateWritingPrompts(ctx context.Context, genre, theme, difficulty string) (core.WritingPrompts, error)
	Generate(ctx context.Context, req core.Request) (core.Result, error)
	Health(ctx context.Context) HealthReport
}

var _ StoryGenerator = (*GenerationService)(nil)
