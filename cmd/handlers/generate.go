package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mythos/internal/config"
	"mythos/internal/core"
	"mythos/internal/logger"
	"mythos/internal/store"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	itemStyle    = lipgloss.NewStyle().PaddingLeft(2).BorderLeft(true).BorderStyle(lipgloss.NormalBorder())
)

// NewGenerateCmd creates the generate command for one-off generation requests
func NewGenerateCmd() *cobra.Command {
	var (
		params  map[string]string
		storyID string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "generate <intent>",
		Short: "Run a single generation request",
		Long: fmt.Sprintf(`Run a single generation request and print the result.

Intents: %s

Overloaded calls are retried with backoff and then answered from fallback
content, exactly as the HTTP API does.

Examples:
  mythos generate plot-twist --param genre=mystery
  mythos generate continue-story --param storyContent="Once upon a time" --story-id <id>
  mythos generate writing-prompts --param genre=horror --json`, intentNames()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), args[0], params, storyID, asJSON)
		},
	}

	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "request parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&storyID, "story-id", "", "story to load context from and save generated content to")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

func intentNames() string {
	names := make([]string, len(core.Intents))
	for i, intent := range core.Intents {
		names[i] = intent.String()
	}
	return strings.Join(names, ", ")
}

func runGenerate(ctx context.Context, out io.Writer, intentName string, params map[string]string, storyID string, asJSON bool) error {
	log := logger.For("generate")

	intent, err := core.ParseIntent(intentName)
	if err != nil {
		return fmt.Errorf("%w (valid intents: %s)", err, intentNames())
	}

	req := core.NewRequest(intent, params)
	if err := req.Validate(); err != nil {
		return err
	}

	cfg := config.Get()

	var st *store.Store
	if storyID != "" {
		st, err = openStore(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if intent == core.IntentContinueStory {
			sc, err := st.StoryContext(ctx, storyID)
			if err != nil {
				log.Warn().Err(err).Str("story_id", storyID).Msg("Failed to fetch existing story content")
			} else {
				req.StoryContext = sc
			}
		}
	}

	gen, closeGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()

	svc := newGenerationService(gen, cfg, nil)
	res, err := svc.Generate(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to generate %s: %w", intent, err)
	}

	savedID := ""
	if st != nil {
		savedID, err = saveResult(ctx, st, storyID, res)
		if err != nil {
			log.Error().Err(err).Str("story_id", storyID).Msg("Failed to save generated content")
		}
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	rendered, err := renderResult(intent, res)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, rendered)
	if savedID != "" {
		fmt.Fprintln(out, okStyle.Render("Saved as "+savedID))
	}
	return nil
}

// saveResult attaches characters, plots and twists to the story. Other
// results are not persisted and yield an empty ID.
func saveResult(ctx context.Context, st *store.Store, storyID string, res core.Result) (string, error) {
	switch v := res.(type) {
	case core.Character:
		return st.SaveCharacter(ctx, storyID, v)
	case core.Plot:
		return st.SavePlot(ctx, storyID, v)
	case core.PlotTwist:
		return st.SaveTwist(ctx, storyID, v)
	default:
		return "", nil
	}
}

// renderResult prints every field of a result as a labelled block. List
// results are printed one item per block.
func renderResult(intent core.Intent, res core.Result) (string, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("failed to decode result: %w", err)
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render(intent.String()))
	b.WriteString("\n\n")
	writeFields(&b, fields)
	return strings.TrimRight(b.String(), "\n"), nil
}

func writeFields(b *strings.Builder, fields map[string]any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := fields[k].(type) {
		case []any:
			for i, item := range v {
				b.WriteString(mutedStyle.Render(fmt.Sprintf("%s #%d", k, i+1)))
				b.WriteString("\n")
				var inner strings.Builder
				if m, ok := item.(map[string]any); ok {
					writeFields(&inner, m)
				} else {
					fmt.Fprintf(&inner, "%v\n", item)
				}
				b.WriteString(itemStyle.Render(strings.TrimRight(inner.String(), "\n")))
				b.WriteString("\n\n")
			}
		default:
			fmt.Fprintf(b, "%s %v\n", labelStyle.Render(k+":"), v)
		}
	}
}
