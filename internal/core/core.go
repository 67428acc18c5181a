package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrUnknownIntent is returned when a caller names an intent that does not exist.
	ErrUnknownIntent = errors.New("unknown generation intent")
	// ErrMissingParameter is returned by Request.Validate when a required parameter is empty.
	ErrMissingParameter = errors.New("missing required parameter")
)

// Intent selects the prompt template and the expected result shape of a generation request.
type Intent string

const (
	IntentContinueStory      Intent = "continue-story"
	IntentDevelopCharacter   Intent = "develop-character"
	IntentPlotTwist          Intent = "plot-twist"
	IntentStorySuggestions   Intent = "story-suggestions"
	IntentCharacterFromStory Intent = "character-from-story"
	IntentPlotFromStory      Intent = "plot-from-story"
	IntentWritingAssistance  Intent = "writing-assistance"
	IntentAnalyzeStory       Intent = "analyze-story"
	IntentWritingPrompts     Intent = "writing-prompts"
)

// Intents lists every supported intent in a stable order.
var Intents = []Intent{
	IntentContinueStory,
	IntentDevelopCharacter,
	IntentPlotTwist,
	IntentStorySuggestions,
	IntentCharacterFromStory,
	IntentPlotFromStory,
	IntentWritingAssistance,
	IntentAnalyzeStory,
	IntentWritingPrompts,
}

// Valid reports whether i is one of the supported intents.
func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

func (i Intent) String() string { return string(i) }

// ParseIntent converts a user supplied name into an Intent.
func ParseIntent(name string) (Intent, error) {
	intent := Intent(strings.ToLower(strings.TrimSpace(name)))
	if !intent.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownIntent, name)
	}
	return intent, nil
}

// Parameter names understood by the generation service.
const (
	ParamStoryContent  = "storyContent"
	ParamStoryContext  = "storyContext"
	ParamDirection     = "direction"
	ParamGenre         = "genre"
	ParamTheme         = "theme"
	ParamCharacterName = "characterName"
	ParamCurrentTraits = "currentTraits"
	ParamPlotType      = "plotType"
	ParamPrompt        = "prompt"
	ParamContext       = "context"
	ParamType          = "type"
	ParamFocus         = "focus"
	ParamDifficulty    = "difficulty"
)

// requiredParams maps an intent to the parameters a caller must supply.
var requiredParams = map[Intent][]string{
	IntentContinueStory:      {ParamStoryContent},
	IntentDevelopCharacter:   {ParamCharacterName},
	IntentCharacterFromStory: {ParamStoryContent},
	IntentPlotFromStory:      {ParamStoryContent},
	IntentWritingAssistance:  {ParamPrompt},
	IntentAnalyzeStory:       {ParamStoryContent},
}

// RequiredParams returns the parameter names the intent cannot do without.
func RequiredParams(intent Intent) []string {
	return append([]string(nil), requiredParams[intent]...)
}

// Request is a single generation request. All parameters are optional unless
// RequiredParams lists them for the intent.
type Request struct {
	Intent Intent            `json:"intent"`
	Params map[string]string `json:"params,omitempty"`
	StoryContext
}

// StoryContext is the existing material of a story. Only continue-story uses it.
type StoryContext struct {
	Characters []CharacterContext `json:"characters,omitempty"`
	Plots      []PlotContext      `json:"plots,omitempty"`
	Twists     []TwistContext     `json:"twists,omitempty"`
}

// Empty reports whether there is no existing material at all.
func (c StoryContext) Empty() bool {
	return len(c.Characters) == 0 && len(c.Plots) == 0 && len(c.Twists) == 0
}

// NewRequest builds a request for intent with the given parameters.
func NewRequest(intent Intent, params map[string]string) Request {
	if params == nil {
		params = map[string]string{}
	}
	return Request{Intent: intent, Params: params}
}

// Param returns the trimmed value of a named parameter, or "" when absent.
func (r Request) Param(name string) string {
	return strings.TrimSpace(r.Params[name])
}

// Validate checks that the intent is known and every required parameter is present.
func (r Request) Validate() error {
	if !r.Intent.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownIntent, r.Intent)
	}
	for _, name := range requiredParams[r.Intent] {
		if r.Param(name) == "" {
			return fmt.Errorf("%w: %s", ErrMissingParameter, name)
		}
	}
	return nil
}

// Story is a story owned by the application. Generated characters, plots and
// twists may be attached to it.
type Story struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Genre     string    `json:"genre"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CharacterContext summarises an existing character for prompt context.
type CharacterContext struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Traits      string `json:"traits,omitempty"`
	Motivation  string `json:"motivation,omitempty"`
}

// PlotContext summarises an existing plot structure for prompt context.
type PlotContext struct {
	Title string `json:"title"`
	Acts  string `json:"acts,omitempty"`
}

// TwistContext summarises an existing plot twist for prompt context.
type TwistContext struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
