// Package fallback produces static creative content used when the generation
// endpoint is overloaded or offline. Every method is total and never blocks.
package fallback

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"mythos/internal/core"
)

const (
	defaultCharacterName  = "the character"
	newCharacterName      = "New Character"
	defaultAssistanceType = "general"
	defaultAnalysisFocus  = "general"
)

// Picker returns a value in [0, n). n is always positive.
type Picker func(n int) int

// Generator draws from the read-only content pools.
type Generator struct {
	pick Picker
}

// Option configures a Generator.
type Option func(*Generator)

// WithPicker replaces the random source, mainly for tests.
func WithPicker(p Picker) Option {
	return func(g *Generator) {
		if p != nil {
			g.pick = p
		}
	}
}

// New creates a Generator backed by math/rand/v2.
func New(opts ...Option) *Generator {
	g := &Generator{pick: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// index clamps the picker result into range.
func (g *Generator) index(n int) int {
	i := g.pick(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}

// PlotTwist picks a twist, preferring the themes of the first genre group
// whose keyword appears in genre.
func (g *Generator) PlotTwist(storyContext, genre string) core.PlotTwist {
	candidates := plotTwists
	if themes := themesForGenre(genre); len(themes) > 0 {
		var matched []taggedTwist
		for _, t := range plotTwists {
			if t.hasAny(themes) {
				matched = append(matched, t)
			}
		}
		if len(matched) > 0 {
			candidates = matched
		}
	}
	return candidates[g.index(len(candidates))].twist
}

// ThemesFor returns the themes of the twist titled title, or nil.
func ThemesFor(title string) []string {
	for _, t := range plotTwists {
		if t.twist.Title == title {
			return append([]string(nil), t.themes...)
		}
	}
	return nil
}

func themesForGenre(genre string) []string {
	genre = strings.ToLower(strings.TrimSpace(genre))
	if genre == "" {
		return nil
	}
	for _, group := range genreGroups {
		for _, kw := range group.keywords {
			if strings.Contains(genre, kw) {
				return group.themes
			}
		}
	}
	return nil
}

// DevelopCharacter fills a random archetype with the character's name.
func (g *Generator) DevelopCharacter(name, currentTraits, storyContext string) core.CharacterProfile {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultCharacterName
	}
	t := characterTemplates[g.index(len(characterTemplates))]
	return core.CharacterProfile{
		Description: capitalize(fmt.Sprintf(t.description, name)),
		Traits:      t.traits,
		Background:  capitalize(fmt.Sprintf(t.background, name)),
		Motivations: t.motivations,
	}
}

// ContinueStory returns a random tone-neutral paragraph. The story is ignored.
func (g *Generator) ContinueStory(storyContent, direction string) core.Continuation {
	return core.Continuation{Text: continuations[g.index(len(continuations))]}
}

// StorySuggestions returns the whole suggestion pool.
func (g *Generator) StorySuggestions(genre, theme string) core.StorySuggestions {
	items := make([]core.StorySuggestion, len(storySuggestions))
	copy(items, storySuggestions)
	return core.StorySuggestions{Items: items}
}

// CharacterFromStory maps a random archetype onto a full character.
func (g *Generator) CharacterFromStory(storyContent, name string) core.Character {
	name = strings.TrimSpace(name)
	if name == "" {
		name = newCharacterName
	}
	t := characterTemplates[g.index(len(characterTemplates))]
	return core.Character{
		Name:          name,
		Role:          "Supporting",
		Age:           "Unknown",
		Origin:        "Unknown",
		Motivation:    t.motivations,
		Description:   capitalize(fmt.Sprintf(t.description, name)),
		Backstory:     capitalize(fmt.Sprintf(t.background, name)),
		Traits:        t.traits,
		Relationships: "Connections to be explored",
	}
}

// PlotFromStory returns the fixed three-act outline.
func (g *Generator) PlotFromStory(storyContent, plotType string) core.Plot {
	plotType = strings.TrimSpace(plotType)
	if plotType == "" {
		plotType = defaultPlotType
	}
	return core.Plot{
		Title:         fallbackPlotTitle,
		StructureType: plotType,
		Acts:          fallbackPlotActs,
		Branches:      fallbackPlotBranches,
	}
}

// WritingAssistance reports that the service is degraded.
func (g *Generator) WritingAssistance(prompt, assistType string) core.Assistance {
	return core.Assistance{Text: ServiceDegraded, Type: orDefault(assistType, defaultAssistanceType)}
}

// AnalyzeStory reports that the service is degraded.
func (g *Generator) AnalyzeStory(storyContent, focus string) core.Analysis {
	return core.Analysis{Text: ServiceDegraded, Focus: orDefault(focus, defaultAnalysisFocus)}
}

// WritingPrompts returns the whole prompt pool.
func (g *Generator) WritingPrompts(genre, theme, difficulty string) core.WritingPrompts {
	items := make([]core.WritingPrompt, len(writingPrompts))
	copy(items, writingPrompts)
	return core.WritingPrompts{Items: items}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
