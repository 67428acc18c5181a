package fallback

import "mythos/internal/core"

// Theme tags attached to pool twists.
const (
	ThemeIdentity    = "identity"
	ThemeHiddenTruth = "hidden-truth"
	ThemeReality     = "reality"
	ThemeAlliance    = "alliance"
	ThemeBetrayal    = "betrayal"
)

type taggedTwist struct {
	twist  core.PlotTwist
	themes []string
}

func (t taggedTwist) hasAny(themes []string) bool {
	for _, want := range themes {
		for _, have := range t.themes {
			if have == want {
				return true
			}
		}
	}
	return false
}

// genreGroup maps genre keywords onto the themes preferred for them.
type genreGroup struct {
	keywords []string
	themes   []string
}

var genreGroups = []genreGroup{
	{keywords: []string{"mystery", "thriller"}, themes: []string{ThemeIdentity, ThemeHiddenTruth}},
	{keywords: []string{"sci-fi", "science fiction", "fantasy"}, themes: []string{ThemeReality}},
}

var plotTwists = []taggedTwist{
	{
		twist: core.PlotTwist{
			Title:       "The Hidden Truth",
			Description: "A character discovers that everything they believed about their past is a carefully constructed lie.",
			Category:    "Character",
			Impact:      "High",
			Icon:        "?",
		},
		themes: []string{ThemeHiddenTruth},
	},
	{
		twist: core.PlotTwist{
			Title:       "Unexpected Ally",
			Description: "The main antagonist turns out to be working against an even greater threat.",
			Category:    "Plot",
			Impact:      "Medium",
			Icon:        "&",
		},
		themes: []string{ThemeAlliance},
	},
	{
		twist: core.PlotTwist{
			Title:       "Time Loop Reveal",
			Description: "The protagonist realizes they've been repeating the same events multiple times.",
			Category:    "Plot",
			Impact:      "High",
			Icon:        "O",
		},
		themes: []string{ThemeReality},
	},
	{
		twist: core.PlotTwist{
			Title:       "Mirror World",
			Description: "The setting is revealed to be a parallel universe or simulation.",
			Category:    "Setting",
			Impact:      "High",
			Icon:        "=",
		},
		themes: []string{ThemeReality},
	},
	{
		twist: core.PlotTwist{
			Title:       "Identity Swap",
			Description: "Two characters have secretly switched places or identities.",
			Category:    "Character",
			Impact:      "Medium",
			Icon:        "~",
		},
		themes: []string{ThemeIdentity},
	},
	{
		twist: core.PlotTwist{
			Title:       "The Trusted Betrayer",
			Description: "The mentor guiding the protagonist has been steering them toward ruin from the start.",
			Category:    "Character",
			Impact:      "High",
			Icon:        "!",
		},
		themes: []string{ThemeBetrayal, ThemeHiddenTruth},
	},
	{
		twist: core.PlotTwist{
			Title:       "The Unreliable Narrator",
			Description: "The story's narrator has been misremembering key events, and the reader learns it with the hero.",
			Category:    "Narrative",
			Impact:      "High",
			Icon:        "*",
		},
		themes: []string{ThemeIdentity, ThemeHiddenTruth},
	},
}

var continuations = []string{
	"The tension in the room was palpable as everyone waited for the next move. Shadows danced on the walls, and the air seemed to thicken with anticipation. Something was about to change, and they all knew it.",
	"A sudden realization hit like a thunderbolt. Everything that had happened before now made sense in a way that was both terrifying and liberating. The truth had been there all along, hidden in plain sight.",
	"The world around them seemed to shift and blur, as if reality itself was questioning what was real and what was merely a construct of their imagination. Nothing would ever be the same again.",
	"In the distance, a sound echoed that sent chills down their spine. It was a sound they had heard before, but this time it carried a different meaning, a different threat. Time was running out.",
	"The choice before them was impossible, but they had to make it. Every option led to consequences they couldn't fully predict, but standing still was no longer an option. The moment of decision had arrived.",
}

// characterTemplate sentences take the character name through %s.
type characterTemplate struct {
	description string
	traits      string
	background  string
	motivations string
}

var characterTemplates = []characterTemplate{
	{
		description: "%s is a complex individual with hidden depths and conflicting motivations.",
		traits:      "Determined, conflicted, resourceful, haunted by past mistakes",
		background:  "%s carries a troubled past that shaped their current path, with secrets they keep hidden.",
		motivations: "Driven by a desire for redemption and the need to protect what matters most",
	},
	{
		description: "%s is a charismatic leader who may not be what they seem on the surface.",
		traits:      "Charming, manipulative, intelligent, ambitious",
		background:  "%s rose from humble beginnings through cunning and determination.",
		motivations: "Seeks power and control, but has a hidden agenda that drives their actions",
	},
	{
		description: "%s is an ordinary person thrust into extraordinary circumstances.",
		traits:      "Reluctant hero, practical, loyal, growing in confidence",
		background:  "%s lived a normal life until events forced them to take action.",
		motivations: "Protecting loved ones and doing what's right, even when it's difficult",
	},
}

var storySuggestions = []core.StorySuggestion{
	{
		Title:      "The Last Library",
		Synopsis:   "In a world where books are forbidden, a librarian discovers a hidden collection that could change everything.",
		Characters: "The librarian, the enforcer, the rebel",
		PlotPoints: "Preserving knowledge vs. maintaining control",
	},
	{
		Title:      "Echoes of Tomorrow",
		Synopsis:   "A scientist receives messages from their future self, warning of an impending disaster.",
		Characters: "The scientist, the future self, the government agent",
		PlotPoints: "Changing the future vs. accepting fate",
	},
	{
		Title:      "The Memory Garden",
		Synopsis:   "A gardener discovers plants that can store and replay human memories.",
		Characters: "The gardener, the memory thief, the lost soul",
		PlotPoints: "Preserving memories vs. letting go",
	},
}

var writingPrompts = []core.WritingPrompt{
	{Prompt: "A lighthouse keeper finds a letter addressed to them, dated fifty years in the future.", Description: "Creative writing prompt 1"},
	{Prompt: "Two rivals are the only survivors of a shipwreck and must cross an island that rearranges itself each night.", Description: "Creative writing prompt 2"},
	{Prompt: "A city wakes up to find every clock has stopped at the same minute, except one.", Description: "Creative writing prompt 3"},
	{Prompt: "A retired hero is asked to train the villain's child.", Description: "Creative writing prompt 4"},
	{Prompt: "Write a conversation between a ghost and the family who just moved into its house, where neither side wants the other to leave.", Description: "Creative writing prompt 5"},
}

// Plot returned for every plot-from-story fallback.
const (
	fallbackPlotTitle    = "Story Plot Structure"
	fallbackPlotActs     = "Act 1: Setup, Act 2: Confrontation, Act 3: Resolution"
	fallbackPlotBranches = "Main plot with potential subplots"
	defaultPlotType      = "three-act"
)

// ServiceDegraded is returned for free-text intents that have no meaningful offline content.
const ServiceDegraded = "I'm sorry, but I'm currently experiencing technical difficulties. Please try again later."
