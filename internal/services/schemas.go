package services

import (
	"mythos/internal/core"
	"mythos/internal/parser"
)

// Placeholders used when a model response leaves a field out.
const (
	defaultCharacterName = "New Character"
	defaultPlotType      = "three-act"
	writingPromptsLimit  = 5
)

var plotTwistSchema = parser.Schema{
	Name: string(core.IntentPlotTwist),
	Fields: []parser.Field{
		{Key: "title", Default: "Unexpected Twist"},
		{Key: "description", Default: "A surprising turn of events that changes everything."},
		{Key: "category", Default: "Plot"},
		{Key: "impact", Default: "Medium"},
		{Key: "icon", Default: "~"},
	},
}

func characterProfileSchema(name string) parser.Schema {
	return parser.Schema{
		Name: string(core.IntentDevelopCharacter),
		Fields: []parser.Field{
			{Key: "description", Default: "A compelling character named " + name},
			{Key: "traits", Aliases: []string{"personality"}, Default: "Complex and multi-dimensional"},
			{Key: "background", Aliases: []string{"backstory"}, Default: "Rich backstory with depth"},
			{Key: "motivations", Aliases: []string{"motivation", "goals"}, Default: "Driven by personal goals and desires"},
		},
	}
}

func characterSchema(name string) parser.Schema {
	return parser.Schema{
		Name: string(core.IntentCharacterFromStory),
		Fields: []parser.Field{
			{Key: "name", Default: orDefault(name, defaultCharacterName)},
			{Key: "role", Default: "Supporting"},
			{Key: "age", Default: "Unknown"},
			{Key: "origin", Default: "Unknown"},
			{Key: "motivation", Aliases: []string{"motivations"}, Default: "To be determined"},
			{Key: "description", Default: "A character that fits the story"},
			{Key: "backstory", Aliases: []string{"background"}, Default: "Background to be developed"},
			{Key: "traits", Default: "Complex and interesting"},
			{Key: "relationships", Default: "Connections to be explored"},
		},
	}
}

func plotSchema(plotType string) parser.Schema {
	return parser.Schema{
		Name: string(core.IntentPlotFromStory),
		Fields: []parser.Field{
			{Key: "title", Default: "Story Plot Structure"},
			{Key: "structure_type", Aliases: []string{"structureType", "structure type", "type"}, Default: plotType},
			{Key: "acts", Default: "Act 1: Setup, Act 2: Confrontation, Act 3: Resolution"},
			{Key: "branches", Aliases: []string{"subplots"}, Default: "Main plot with potential subplots"},
		},
	}
}

var storySuggestionSchema = parser.Schema{
	Name: string(core.IntentStorySuggestions),
	Fields: []parser.Field{
		{Key: "title", Default: "Untitled Story"},
		{Key: "synopsis", Aliases: []string{"summary"}, Default: "An adventure story with unexpected twists"},
		{Key: "characters", Default: "Protagonist, Mentor, Antagonist"},
		{Key: "plotPoints", Aliases: []string{"plot_points", "plot points"}, Default: "Call to adventure, Rising action, Climax"},
	},
}

// defaultSuggestion is returned when the model answers without a JSON array.
var defaultSuggestion = core.StorySuggestion{
	Title:      "The Mysterious Journey",
	Synopsis:   "An adventure story with unexpected twists",
	Characters: "Protagonist, Mentor, Antagonist",
	PlotPoints: "Call to adventure, Rising action, Climax",
}

var writingPromptSchema = parser.Schema{
	Name: string(core.IntentWritingPrompts),
	Fields: []parser.Field{
		{Key: "prompt", Aliases: []string{"text", "title"}, Default: "Write a scene where a character makes an irreversible choice."},
		{Key: "description", Default: "Creative writing prompt"},
	},
}
