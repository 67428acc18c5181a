package fallback

import (
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixed returns a picker that always answers i.
func fixed(i int) Picker {
	return func(n int) int { return i }
}

func hasTheme(title string, themes ...string) bool {
	for _, th := range ThemesFor(title) {
		if slices.Contains(themes, th) {
			return true
		}
	}
	return false
}

func TestPlotTwistPoolSize(t *testing.T) {
	assert.GreaterOrEqual(t, len(plotTwists), 5)
	for _, tw := range plotTwists {
		assert.NotEmpty(t, tw.themes, "twist %q has no themes", tw.twist.Title)
	}
}

func TestPlotTwistGenreMatching(t *testing.T) {
	tests := []struct {
		genre  string
		themes []string
	}{
		{genre: "mystery", themes: []string{ThemeIdentity, ThemeHiddenTruth}},
		{genre: "Psychological Thriller", themes: []string{ThemeIdentity, ThemeHiddenTruth}},
		{genre: "sci-fi", themes: []string{ThemeReality}},
		{genre: "Science Fiction", themes: []string{ThemeReality}},
		{genre: "high fantasy", themes: []string{ThemeReality}},
	}

	for _, tt := range tests {
		t.Run(tt.genre, func(t *testing.T) {
			// Every index the picker can return must land on a matching twist.
			for i := 0; i < len(plotTwists); i++ {
				g := New(WithPicker(fixed(i)))
				twist := g.PlotTwist("", tt.genre)
				assert.True(t, hasTheme(twist.Title, tt.themes...),
					"genre %q picked %q with themes %v", tt.genre, twist.Title, ThemesFor(twist.Title))
			}
		})
	}
}

func TestPlotTwistUniformOverMatches(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < len(plotTwists); i++ {
		seen[New(WithPicker(fixed(i))).PlotTwist("", "mystery").Title] = true
	}
	// Hidden Truth, Identity Swap, Trusted Betrayer and Unreliable Narrator.
	assert.Len(t, seen, 4)
}

func TestPlotTwistUnknownGenreUsesWholePool(t *testing.T) {
	var n int
	g := New(WithPicker(func(size int) int {
		n = size
		return size - 1
	}))

	twist := g.PlotTwist("", "romance")

	assert.Equal(t, len(plotTwists), n)
	assert.Equal(t, plotTwists[len(plotTwists)-1].twist, twist)

	g.PlotTwist("", "")
	assert.Equal(t, len(plotTwists), n)
}

func TestPickerOutOfRangeIsClamped(t *testing.T) {
	g := New(WithPicker(fixed(99)))
	assert.Equal(t, plotTwists[0].twist, g.PlotTwist("", ""))
	assert.Equal(t, continuations[0], g.ContinueStory("", "").Text)
}

func TestDevelopCharacterInterpolatesName(t *testing.T) {
	g := New(WithPicker(fixed(1)))

	got := g.DevelopCharacter("Mara", "", "")

	assert.Equal(t, "Mara is a charismatic leader who may not be what they seem on the surface.", got.Description)
	assert.Equal(t, "Mara rose from humble beginnings through cunning and determination.", got.Background)
	assert.Equal(t, "Charming, manipulative, intelligent, ambitious", got.Traits)
	assert.NotEmpty(t, got.Motivations)
}

func TestDevelopCharacterWithoutName(t *testing.T) {
	got := New(WithPicker(fixed(0))).DevelopCharacter("  ", "", "")
	assert.True(t, strings.HasPrefix(got.Description, "The character is"), got.Description)
}

func TestContinueStoryIgnoresInput(t *testing.T) {
	g := New(WithPicker(fixed(2)))
	a := g.ContinueStory("Once upon a time", "darker")
	b := g.ContinueStory("", "")
	assert.Equal(t, a, b)
	assert.Equal(t, continuations[2], a.Text)
}

func TestStorySuggestionsReturnsCopy(t *testing.T) {
	g := New()
	first := g.StorySuggestions("", "")
	require.Len(t, first.Items, 3)
	assert.Equal(t, "The Last Library", first.Items[0].Title)

	first.Items[0].Title = "Tampered"
	second := g.StorySuggestions("", "")
	assert.Equal(t, "The Last Library", second.Items[0].Title)
}

func TestCharacterFromStory(t *testing.T) {
	g := New(WithPicker(fixed(2)))

	named := g.CharacterFromStory("", "Tomas")
	assert.Equal(t, "Tomas", named.Name)
	assert.Equal(t, "Supporting", named.Role)
	assert.Equal(t, "Tomas is an ordinary person thrust into extraordinary circumstances.", named.Description)

	unnamed := g.CharacterFromStory("", "")
	assert.Equal(t, "New Character", unnamed.Name)
	assert.Equal(t, "Connections to be explored", unnamed.Relationships)
}

func TestPlotFromStory(t *testing.T) {
	g := New()

	plot := g.PlotFromStory("", "")
	assert.Equal(t, "Story Plot Structure", plot.Title)
	assert.Equal(t, "three-act", plot.StructureType)
	assert.Equal(t, "Act 1: Setup, Act 2: Confrontation, Act 3: Resolution", plot.Acts)
	assert.Equal(t, "Main plot with potential subplots", plot.Branches)

	assert.Equal(t, "hero-journey", g.PlotFromStory("", "hero-journey").StructureType)
}

func TestDegradedTextIntents(t *testing.T) {
	g := New()

	assist := g.WritingAssistance("help", "")
	assert.Equal(t, ServiceDegraded, assist.Text)
	assert.Equal(t, "general", assist.Type)
	assert.Equal(t, "dialogue", g.WritingAssistance("help", "dialogue").Type)

	analysis := g.AnalyzeStory("story", "")
	assert.Equal(t, ServiceDegraded, analysis.Text)
	assert.Equal(t, "general", analysis.Focus)
}

func TestWritingPromptsReturnsCopy(t *testing.T) {
	g := New()
	got := g.WritingPrompts("", "", "")
	require.Len(t, got.Items, 5)
	got.Items[0].Prompt = ""
	assert.NotEmpty(t, g.WritingPrompts("", "", "").Items[0].Prompt)
}

func TestConcurrentUse(t *testing.T) {
	g := New()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			twist := g.PlotTwist("", "fantasy")
			assert.True(t, hasTheme(twist.Title, ThemeReality))
			assert.NotEmpty(t, g.DevelopCharacter("Ines", "", "").Description)
		}()
	}
	wg.Wait()
}
