package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mythos/internal/config"
)

// NewStoryCmd creates the story command group
func NewStoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "story",
		Short: "Manage stories in the local store",
		Long: `Create and inspect stories. Generated characters, plots and twists can be
attached to a story with 'mythos generate --story-id', and continue-story uses
them as context.`,
	}

	cmd.AddCommand(newStoryCreateCmd())
	cmd.AddCommand(newStoryShowCmd())
	cmd.AddCommand(newStoryListCmd())

	return cmd
}

func newStoryCreateCmd() *cobra.Command {
	var (
		title    string
		content  string
		genre    string
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a story",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromFile != "" {
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("failed to read story file: %w", err)
				}
				content = string(data)
			}
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			return runStoryCreate(cmd.Context(), cmd.OutOrStdout(), title, content, genre)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "story title")
	cmd.Flags().StringVar(&content, "content", "", "story text")
	cmd.Flags().StringVar(&genre, "genre", "", "story genre")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "read story text from a file")

	return cmd
}

func runStoryCreate(ctx context.Context, out io.Writer, title, content, genre string) error {
	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	story, err := st.CreateStory(ctx, title, content, genre)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", okStyle.Render("Created story"), story.ID)
	return nil
}

func newStoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a story and the content attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStoryShow(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}
}

func runStoryShow(ctx context.Context, out io.Writer, id string) error {
	st, err := openStore(config.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	story, err := st.GetStory(ctx, id)
	if err != nil {
		return err
	}
	sc, err := st.StoryContext(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, headingStyle.Render(story.Title))
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%s  %s  updated %s", story.ID, orNone(story.Genre), story.UpdatedAt.Format("2006-01-02 15:04"))))
	if story.Content != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, story.Content)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, labelStyle.Render(fmt.Sprintf("Characters (%d)", len(sc.Characters))))
	for _, c := range sc.Characters {
		fmt.Fprintf(out, "  - %s: %s\n", c.Name, orNone(c.Description))
	}
	fmt.Fprintln(out, labelStyle.Render(fmt.Sprintf("Plots (%d)", len(sc.Plots))))
	for _, p := range sc.Plots {
		fmt.Fprintf(out, "  - %s\n", p.Title)
	}
	fmt.Fprintln(out, labelStyle.Render(fmt.Sprintf("Twists (%d)", len(sc.Twists))))
	for _, t := range sc.Twists {
		fmt.Fprintf(out, "  - %s: %s\n", t.Title, orNone(t.Description))
	}
	return nil
}

func newStoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stories",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(config.Get())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			stories, err := st.ListStories(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(stories) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("No stories yet. Create one with 'mythos story create --title ...'"))
				return nil
			}
			for _, s := range stories {
				fmt.Fprintf(out, "%s  %s  %s\n", s.ID, labelStyle.Render(s.Title), mutedStyle.Render(orNone(s.Genre)))
			}
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
