package services

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"mythos/internal/core"
	"mythos/internal/fallback"
	"mythos/internal/metrics"
	"mythos/internal/retry"
)

// scriptedGenerator returns errs in order and then text, recording prompts.
type scriptedGenerator struct {
	mu      sync.Mutex
	text    string
	errs    []error
	always  error
	calls   int
	prompts []string
}

func (g *scriptedGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	if g.always != nil {
		return "", g.always
	}
	if g.calls <= len(g.errs) {
		return "", g.errs[g.calls-1]
	}
	return g.text, nil
}

func (g *scriptedGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func newTestService(gen TextGenerator, opts ...Option) (*GenerationService, *recordedSleeps) {
	sleeps := &recordedSleeps{}
	inv := retry.NewInvoker(retry.WithSleeper(sleeps.sleep), retry.WithLogger(zerolog.Nop()))
	all := append([]Option{WithInvoker(inv), WithLogger(zerolog.Nop())}, opts...)
	return NewGenerationService(gen, fallback.New(), all...), sleeps
}

var overloaded = &googleapi.Error{Code: 503, Message: "The model is overloaded. Please try again later."}

func TestContinueStoryRecoversAfterTwoOverloads(t *testing.T) {
	gen := &scriptedGenerator{text: "The hero pressed on.", errs: []error{overloaded, overloaded}}
	svc, sleeps := newTestService(gen)

	res, err := svc.Generate(context.Background(), core.NewRequest(core.IntentContinueStory, map[string]string{
		core.ParamStoryContent: "Once upon a time",
	}))

	require.NoError(t, err)
	assert.Equal(t, core.Continuation{Text: "The hero pressed on."}, res)
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.delays)
}

func TestPlotTwistPermanentOverloadUsesGenreFallback(t *testing.T) {
	gen := &scriptedGenerator{always: overloaded}
	svc, sleeps := newTestService(gen)

	twist, err := svc.GeneratePlotTwist(context.Background(), "", "sci-fi")

	require.NoError(t, err)
	assert.Contains(t, fallback.ThemesFor(twist.Title), fallback.ThemeReality)
	assert.Equal(t, 4, gen.calls)
	assert.Len(t, sleeps.delays, 3)
}

func TestFatalErrorIsPropagatedUnchanged(t *testing.T) {
	authErr := &googleapi.Error{Code: 403, Message: "API key not valid"}
	gen := &scriptedGenerator{always: authErr}
	svc, sleeps := newTestService(gen)

	_, err := svc.DevelopCharacter(context.Background(), "Mara", "", "")

	require.Error(t, err)
	var gerr *googleapi.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, 403, gerr.Code)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, sleeps.delays)
	assert.False(t, Retryable(err))
}

func TestUnavailableEndpointFallsBackWithoutRetries(t *testing.T) {
	gen := &scriptedGenerator{always: retry.ErrServiceUnavailable}
	svc, sleeps := newTestService(gen)

	plot, err := svc.GeneratePlotFromStory(context.Background(), "A story", "")

	require.NoError(t, err)
	assert.Equal(t, "Story Plot Structure", plot.Title)
	assert.Equal(t, "three-act", plot.StructureType)
	assert.Equal(t, 1, gen.calls)
	assert.Empty(t, sleeps.delays)
}

func TestPlotTwistParsesJSONFromProse(t *testing.T) {
	gen := &scriptedGenerator{text: "Here you go!\n" +
		`{"title": "The Clockwork Heir", "description": "The prince is an automaton.", "category": "Character", "impact": "High", "icon": "#"}` +
		"\nHope that helps."}
	svc, _ := newTestService(gen)

	twist, err := svc.GeneratePlotTwist(context.Background(), "A royal court", "fantasy")

	require.NoError(t, err)
	assert.Equal(t, core.PlotTwist{
		Title:       "The Clockwork Heir",
		Description: "The prince is an automaton.",
		Category:    "Character",
		Impact:      "High",
		Icon:        "#",
	}, twist)
}

func TestPlotTwistHeuristicAndDefaults(t *testing.T) {
	gen := &scriptedGenerator{text: "Title: X\nDescription: The map was the territory."}
	svc, _ := newTestService(gen)

	twist, err := svc.GeneratePlotTwist(context.Background(), "", "")

	require.NoError(t, err)
	assert.Equal(t, "X", twist.Title)
	assert.Equal(t, "The map was the territory.", twist.Description)
	assert.Equal(t, "Plot", twist.Category)
	assert.Equal(t, "Medium", twist.Impact)
	assert.Equal(t, "~", twist.Icon)
}

func TestPlotTwistTruncatedJSONUsesDefaults(t *testing.T) {
	gen := &scriptedGenerator{text: `{"title": "Ember Crown", "description": "The queen was the dragon all along", "category": "Char`}
	svc, _ := newTestService(gen)

	twist, err := svc.GeneratePlotTwist(context.Background(), "", "fantasy")

	require.NoError(t, err)
	assert.Equal(t, core.PlotTwist{
		Title:       "Unexpected Twist",
		Description: "A surprising turn of events that changes everything.",
		Category:    "Plot",
		Impact:      "Medium",
		Icon:        "~",
	}, twist)
}

func TestCharacterFromStoryDefaultsNameOnUnstructuredText(t *testing.T) {
	gen := &scriptedGenerator{text: "I could not think of anyone."}
	svc, _ := newTestService(gen)

	ch, err := svc.GenerateCharacterFromStory(context.Background(), "A story", "")

	require.NoError(t, err)
	assert.Equal(t, "New Character", ch.Name)
	assert.Equal(t, "Connections to be explored", ch.Relationships)
}

func TestCharacterFromStoryJoinsArrays(t *testing.T) {
	gen := &scriptedGenerator{text: `{"name": "Ines", "age": 34, "traits": ["wry", "patient"]}`}
	svc, _ := newTestService(gen)

	ch, err := svc.GenerateCharacterFromStory(context.Background(), "A story", "")

	require.NoError(t, err)
	assert.Equal(t, "Ines", ch.Name)
	assert.Equal(t, "34", ch.Age)
	assert.Equal(t, "wry, patient", ch.Traits)
}

// jsonKeys returns the sorted JSON field names of v.
func jsonKeys(t *testing.T, v any) []string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	keys := make([]string, 0, len(m))
	for k, val := range m {
		if s, ok := val.(string); ok {
			assert.NotEmpty(t, s, "field %s is empty", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestFallbackAndSuccessShareFieldSet(t *testing.T) {
	successText := `{"title": "T", "description": "D", "category": "Plot", "impact": "Low", "icon": "^",
		"traits": "x", "background": "y", "motivations": "z", "name": "N", "role": "R", "age": "1",
		"origin": "O", "motivation": "M", "backstory": "B", "relationships": "Q",
		"structure_type": "three-act", "acts": "A", "branches": "Br"}`

	intents := []core.Request{
		core.NewRequest(core.IntentPlotTwist, nil),
		core.NewRequest(core.IntentDevelopCharacter, map[string]string{core.ParamCharacterName: "Mara"}),
		core.NewRequest(core.IntentCharacterFromStory, map[string]string{core.ParamStoryContent: "s"}),
		core.NewRequest(core.IntentPlotFromStory, map[string]string{core.ParamStoryContent: "s"}),
		core.NewRequest(core.IntentContinueStory, map[string]string{core.ParamStoryContent: "s"}),
		core.NewRequest(core.IntentWritingAssistance, map[string]string{core.ParamPrompt: "p"}),
		core.NewRequest(core.IntentAnalyzeStory, map[string]string{core.ParamStoryContent: "s"}),
	}

	for _, req := range intents {
		t.Run(req.Intent.String(), func(t *testing.T) {
			ok, _ := newTestService(&scriptedGenerator{text: successText})
			degraded, _ := newTestService(&scriptedGenerator{always: overloaded})

			okRes, err := ok.Generate(context.Background(), req)
			require.NoError(t, err)
			fbRes, err := degraded.Generate(context.Background(), req)
			require.NoError(t, err)

			assert.Equal(t, reflect.TypeOf(okRes), reflect.TypeOf(fbRes))
			assert.Equal(t, jsonKeys(t, okRes), jsonKeys(t, fbRes))
		})
	}
}

func TestStorySuggestions(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		gen := &scriptedGenerator{text: `[{"title": "Glass Harbor", "synopsis": "s", "characters": ["a", "b"], "plotPoints": ["p1", "p2"]}]`}
		svc, _ := newTestService(gen)

		res, err := svc.GenerateStorySuggestions(context.Background(), "fantasy", "")
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "a, b", res.Items[0].Characters)
		assert.Equal(t, "p1, p2", res.Items[0].PlotPoints)
	})

	t.Run("no array", func(t *testing.T) {
		svc, _ := newTestService(&scriptedGenerator{text: "Some ideas without structure."})

		res, err := svc.GenerateStorySuggestions(context.Background(), "", "")
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "The Mysterious Journey", res.Items[0].Title)
	})

	t.Run("exhausted", func(t *testing.T) {
		svc, _ := newTestService(&scriptedGenerator{always: overloaded})

		res, err := svc.GenerateStorySuggestions(context.Background(), "", "")
		require.NoError(t, err)
		assert.Len(t, res.Items, 3)
	})
}

func TestWritingPrompts(t *testing.T) {
	t.Run("json array", func(t *testing.T) {
		svc, _ := newTestService(&scriptedGenerator{text: `[{"prompt": "A", "description": "first"}, {"prompt": "B"}]`})

		res, err := svc.GenerateWritingPrompts(context.Background(), "", "", "")
		require.NoError(t, err)
		require.Len(t, res.Items, 2)
		assert.Equal(t, "Creative writing prompt", res.Items[1].Description)
	})

	t.Run("numbered lines", func(t *testing.T) {
		text := "1. One\n2. Two\n3. Three\n4. Four\n5. Five\n6. Six"
		svc, _ := newTestService(&scriptedGenerator{text: text})

		res, err := svc.GenerateWritingPrompts(context.Background(), "horror", "", "")
		require.NoError(t, err)
		require.Len(t, res.Items, 5)
		assert.Equal(t, core.WritingPrompt{Prompt: "One", Description: "Creative writing prompt 1"}, res.Items[0])
		assert.Equal(t, "Five", res.Items[4].Prompt)
	})

	t.Run("exhausted", func(t *testing.T) {
		svc, _ := newTestService(&scriptedGenerator{always: overloaded})

		res, err := svc.GenerateWritingPrompts(context.Background(), "", "", "")
		require.NoError(t, err)
		assert.Len(t, res.Items, 5)
	})
}

func TestWritingAssistanceTypes(t *testing.T) {
	tests := []struct {
		assistType string
		wantType   string
		wantPrompt string
	}{
		{assistType: "dialogue", wantType: "dialogue", wantPrompt: "Write engaging dialogue for this scenario: a duel"},
		{assistType: "description", wantType: "description", wantPrompt: "Write a vivid description for: a duel"},
		{assistType: "action", wantType: "action", wantPrompt: "Write an action scene for: a duel"},
		{assistType: "emotion", wantType: "emotion", wantPrompt: "Write about this emotional moment: a duel"},
		{assistType: "", wantType: "general", wantPrompt: "Help with writing: a duel"},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			gen := &scriptedGenerator{text: "  Steel rang.  "}
			svc, _ := newTestService(gen)

			res, err := svc.WritingAssistance(context.Background(), "a duel", "", tt.assistType)
			require.NoError(t, err)
			assert.Equal(t, core.Assistance{Text: "Steel rang.", Type: tt.wantType}, res)
			assert.True(t, strings.HasPrefix(gen.lastPrompt(), tt.wantPrompt), gen.lastPrompt())
			assert.Contains(t, gen.lastPrompt(), "Context: No specific context provided")
		})
	}
}

func TestAnalyzeStoryFocus(t *testing.T) {
	gen := &scriptedGenerator{text: "Strong opening."}
	svc, _ := newTestService(gen)

	res, err := svc.AnalyzeStory(context.Background(), "A story", "pacing")
	require.NoError(t, err)
	assert.Equal(t, core.Analysis{Text: "Strong opening.", Focus: "pacing"}, res)
	assert.Contains(t, gen.lastPrompt(), "Focus on: pacing")

	res, err = svc.AnalyzeStory(context.Background(), "A story", "")
	require.NoError(t, err)
	assert.Equal(t, "general", res.Focus)
	assert.NotContains(t, gen.lastPrompt(), "Focus on:")
}

func TestEveryPromptForbidsEmojis(t *testing.T) {
	gen := &scriptedGenerator{text: "ok"}
	svc, _ := newTestService(gen)

	for _, intent := range core.Intents {
		params := map[string]string{}
		for _, name := range core.RequiredParams(intent) {
			params[name] = "value"
		}
		_, err := svc.Generate(context.Background(), core.NewRequest(intent, params))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(gen.lastPrompt(), noEmojiSuffix), "intent %s", intent)
	}
}

func TestContinueStoryContextSections(t *testing.T) {
	gen := &scriptedGenerator{text: "Next."}
	svc, _ := newTestService(gen)

	existing := core.StoryContext{
		Characters: []core.CharacterContext{{Name: "Mara", Traits: "stubborn"}},
		Twists:     []core.TwistContext{{Title: "Mirror World", Description: "It was a simulation."}},
	}
	_, err := svc.ContinueStory(context.Background(), "Once", "", existing)
	require.NoError(t, err)

	prompt := gen.lastPrompt()
	assert.Contains(t, prompt, "EXISTING CHARACTERS:\n- Mara: No description\n  Traits: stubborn\n")
	assert.Contains(t, prompt, "EXISTING PLOT TWISTS:\n- Mirror World: It was a simulation.\n")
	assert.NotContains(t, prompt, "EXISTING PLOT ELEMENTS:")
	assert.NotContains(t, prompt, "Direction:")

	_, err = svc.ContinueStory(context.Background(), "Once", "darker", core.StoryContext{})
	require.NoError(t, err)
	assert.NotContains(t, gen.lastPrompt(), "EXISTING")
	assert.Contains(t, gen.lastPrompt(), "Direction: darker")
}

func TestDeadlineBoundsTheRetryLoop(t *testing.T) {
	gen := &scriptedGenerator{always: overloaded}
	inv := retry.NewInvoker(retry.WithLogger(zerolog.Nop()))
	svc := NewGenerationService(gen, fallback.New(),
		WithInvoker(inv),
		WithLogger(zerolog.Nop()),
		WithPolicy(retry.Policy{MaxRetries: 3, BaseDelay: time.Minute, Multiplier: 2}),
		WithDeadline(20*time.Millisecond),
	)

	start := time.Now()
	_, err := svc.ContinueStory(context.Background(), "Once", "", core.StoryContext{})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, retry.ErrCancelled)
	assert.True(t, Retryable(err))
}

func TestGenerateUnknownIntent(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{text: "ok"})

	_, err := svc.Generate(context.Background(), core.Request{Intent: "summon-dragon"})
	assert.ErrorIs(t, err, core.ErrUnknownIntent)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		gen    *scriptedGenerator
		status string
	}{
		{name: "healthy", gen: &scriptedGenerator{text: " OK "}, status: HealthHealthy},
		{name: "overloaded", gen: &scriptedGenerator{always: overloaded}, status: HealthOverloaded},
		{name: "fatal", gen: &scriptedGenerator{always: errors.New("dial tcp: refused")}, status: HealthUnhealthy},
		{name: "offline", gen: &scriptedGenerator{always: retry.ErrServiceUnavailable}, status: HealthUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sleeps := newTestService(tt.gen)

			report := svc.Health(context.Background())

			assert.Equal(t, tt.status, report.Status)
			assert.Equal(t, 1, tt.gen.calls)
			assert.Empty(t, sleeps.delays)
			if report.Healthy() {
				assert.Equal(t, "OK", report.Response)
			} else {
				assert.Equal(t, "Fallback service available", report.Fallback)
			}
		})
	}
}

func TestMetricsAreRecorded(t *testing.T) {
	rec := metrics.New(prometheus.NewRegistry())
	gen := &scriptedGenerator{text: `{"title": "x"}`, errs: []error{overloaded}}
	svc := NewGenerationService(gen, fallback.New(),
		WithLogger(zerolog.Nop()),
		WithMetrics(rec),
		WithPolicy(retry.Policy{MaxRetries: 1, BaseDelay: time.Millisecond, Multiplier: 2}),
	)

	_, err := svc.GeneratePlotTwist(context.Background(), "", "")
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.GenerationsTotal.WithLabelValues("plot-twist", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.AttemptsTotal.WithLabelValues("overloaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.ParseTotal.WithLabelValues("plot-twist", "json")))
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	svc, _ := newTestService(&scriptedGenerator{always: overloaded})

	var wg sync.WaitGroup
	errs := make([]error, 12)
	titles := make([]string, 12)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tw, err := svc.GeneratePlotTwist(context.Background(), "", "mystery")
			titles[i], errs[i] = tw.Title, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err)
		themes := fallback.ThemesFor(titles[i])
		assert.True(t, slices.Contains(themes, fallback.ThemeIdentity) || slices.Contains(themes, fallback.ThemeHiddenTruth))
	}
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(overloaded))
	assert.True(t, Retryable(context.Canceled))
	assert.True(t, Retryable(retry.ErrCancelled))
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(errors.New("boom")))
}
