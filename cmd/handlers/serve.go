package handlers

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mythos/internal/config"
	"mythos/internal/logger"
	"mythos/internal/metrics"
	"mythos/internal/server"
)

// NewServeCmd creates the serve command for starting the HTTP server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the mythos HTTP API used by the storytelling web client.

The server provides:
  • /api/ai/* generation endpoints with retry and fallback
  • /api/stories for attaching generated content to a story
  • /health and /metrics for operations

Examples:
  # Start server on the configured port (default 5000)
  mythos serve

  # Start on custom port
  mythos serve --port 3001

  # Serve fallback content only, without calling Gemini
  MYTHOS_OFFLINE=true mythos serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, host)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 5000)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 0.0.0.0)")

	return cmd
}

func runServe(ctx context.Context, port int, host string) error {
	log := logger.For("serve")

	cfg := config.Get()

	// Override server config from flags if provided
	serverCfg := cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	gen, closeGen, err := newTextGenerator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeGen()
	if cfg.AI.Offline {
		log.Warn().Msg("Offline mode: every request is served from fallback content")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	svc := newGenerationService(gen, cfg, rec)
	srv := server.New(svc, st, serverCfg, server.WithMetrics(rec, reg))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msgf("Server listening on http://%s:%d", serverCfg.Host, serverCfg.Port)
		log.Info().Msg("Press Ctrl+C to stop")
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Server shutdown initiated")

		// Create shutdown context with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Server stopped successfully")
	return nil
}
