package core

// Result is the output of one generation request. Concrete types are keyed by intent.
type Result interface {
	Intent() Intent
}

// PlotTwist is a single generated plot twist.
type PlotTwist struct {
	Title       string `json:"title" mapstructure:"title"`
	Description string `json:"description" mapstructure:"description"`
	Category    string `json:"category" mapstructure:"category"` // Character, Plot, Setting or Theme
	Impact      string `json:"impact" mapstructure:"impact"`     // Low, Medium or High
	Icon        string `json:"icon" mapstructure:"icon"`         // Short text symbol, never an emoji
}

func (PlotTwist) Intent() Intent { return IntentPlotTwist }

// CharacterProfile is the result of developing an existing, named character.
type CharacterProfile struct {
	Description string `json:"description" mapstructure:"description"`
	Traits      string `json:"traits" mapstructure:"traits"`
	Background  string `json:"background" mapstructure:"background"`
	Motivations string `json:"motivations" mapstructure:"motivations"`
}

func (CharacterProfile) Intent() Intent { return IntentDevelopCharacter }

// Character is a complete character generated to fit a story.
type Character struct {
	Name          string `json:"name" mapstructure:"name"`
	Role          string `json:"role" mapstructure:"role"`
	Age           string `json:"age" mapstructure:"age"`
	Origin        string `json:"origin" mapstructure:"origin"`
	Motivation    string `json:"motivation" mapstructure:"motivation"`
	Description   string `json:"description" mapstructure:"description"`
	Backstory     string `json:"backstory" mapstructure:"backstory"`
	Traits        string `json:"traits" mapstructure:"traits"`
	Relationships string `json:"relationships" mapstructure:"relationships"`
}

func (Character) Intent() Intent { return IntentCharacterFromStory }

// Plot is a generated plot structure.
type Plot struct {
	Title         string `json:"title" mapstructure:"title"`
	StructureType string `json:"structure_type" mapstructure:"structure_type"`
	Acts          string `json:"acts" mapstructure:"acts"`
	Branches      string `json:"branches" mapstructure:"branches"`
}

func (Plot) Intent() Intent { return IntentPlotFromStory }

// StorySuggestion is one story idea.
type StorySuggestion struct {
	Title      string `json:"title" mapstructure:"title"`
	Synopsis   string `json:"synopsis" mapstructure:"synopsis"`
	Characters string `json:"characters" mapstructure:"characters"`
	PlotPoints string `json:"plotPoints" mapstructure:"plotPoints"`
}

// StorySuggestions is the result of the story-suggestions intent.
type StorySuggestions struct {
	Items []StorySuggestion `json:"suggestions"`
}

func (StorySuggestions) Intent() Intent { return IntentStorySuggestions }

// WritingPrompt is one creative writing prompt.
type WritingPrompt struct {
	Prompt      string `json:"prompt" mapstructure:"prompt"`
	Description string `json:"description" mapstructure:"description"`
}

// WritingPrompts is the result of the writing-prompts intent.
type WritingPrompts struct {
	Items []WritingPrompt `json:"prompts"`
}

func (WritingPrompts) Intent() Intent { return IntentWritingPrompts }

// Continuation is generated story text that follows on from the supplied content.
type Continuation struct {
	Text string `json:"continuation"`
}

func (Continuation) Intent() Intent { return IntentContinueStory }

// Assistance is free-form help for a writing task.
type Assistance struct {
	Text string `json:"assistance"`
	Type string `json:"type"`
}

func (Assistance) Intent() Intent { return IntentWritingAssistance }

// Analysis is constructive feedback on a story.
type Analysis struct {
	Text  string `json:"analysis"`
	Focus string `json:"focus"`
}

func (Analysis) Intent() Intent { return IntentAnalyzeStory }
