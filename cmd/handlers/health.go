package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mythos/internal/config"
	"mythos/internal/services"
	"mythos/internal/store"
)

// NewHealthCmd creates the health command that probes Gemini and the story store
func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the generation endpoint and the story store",
		Long: `Send a single probe prompt to Gemini (no retries) and check the local
story store at the same time. Exits non-zero if either check fails.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runHealth(ctx context.Context, out io.Writer) error {
	cfg := config.Get()

	var (
		report   services.HealthReport
		stats    *store.Stats
		storeErr error
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		gen, closeGen, err := newTextGenerator(gctx, cfg)
		if err != nil {
			return err
		}
		defer closeGen()
		report = newGenerationService(gen, cfg, nil).Health(gctx)
		return nil
	})

	// Store failures are reported, not returned, so the endpoint probe is not cancelled
	g.Go(func() error {
		st, err := openStore(cfg)
		if err != nil {
			storeErr = err
			return nil
		}
		defer func() { _ = st.Close() }()
		if err := st.Ping(gctx); err != nil {
			storeErr = err
			return nil
		}
		stats, storeErr = st.GetStats(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	fmt.Fprintln(out, headingStyle.Render("Health"))
	fmt.Fprintln(out)

	statusStyle := okStyle
	switch report.Status {
	case services.HealthOverloaded:
		statusStyle = warnStyle
	case services.HealthUnhealthy:
		statusStyle = errorStyle
	}
	fmt.Fprintf(out, "%s %s (%s)\n", labelStyle.Render(report.Service+":"), statusStyle.Render(report.Status), modelLabel(cfg))
	if report.Error != "" {
		fmt.Fprintf(out, "  %s\n", mutedStyle.Render(report.Error))
	}
	if report.Fallback != "" {
		fmt.Fprintf(out, "  %s\n", mutedStyle.Render(report.Fallback))
	}

	if storeErr != nil {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render("Story store:"), errorStyle.Render(storeErr.Error()))
	} else {
		fmt.Fprintf(out, "%s %s (%d stories, %d characters, %d plots, %d twists, %d bytes)\n",
			labelStyle.Render("Story store:"), okStyle.Render("ok"),
			stats.StoryCount, stats.CharacterCount, stats.PlotCount, stats.TwistCount, stats.Size)
	}

	var errs []error
	if !report.Healthy() {
		errs = append(errs, fmt.Errorf("generation endpoint is %s", report.Status))
	}
	if storeErr != nil {
		errs = append(errs, fmt.Errorf("story store: %w", storeErr))
	}
	return errors.Join(errs...)
}

func modelLabel(cfg *config.Config) string {
	if cfg.AI.Offline {
		return "offline"
	}
	return cfg.AI.Gemini.Model
}
