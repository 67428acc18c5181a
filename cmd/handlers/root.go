package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mythos/internal/config"
	"mythos/internal/logger"
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mythos",
		Short: "Mythos generates story content with Gemini and degrades gracefully when it is overloaded.",
		Long: `Mythos is the AI generation layer of a collaborative storytelling app.

It continues stories, develops characters, proposes plot twists and writing
prompts using Google Gemini. Overloaded calls are retried with exponential
backoff and, once retries are exhausted, answered with curated fallback
content so callers always get a complete result.

Run 'mythos serve' for the HTTP API or 'mythos generate' for one-off requests.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mythos.yaml)")

	// Add subcommands
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewGenerateCmd())
	rootCmd.AddCommand(NewHealthCmd())
	rootCmd.AddCommand(NewStoryCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	// Load configuration using the centralized config module
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger.Configure(cfg.Logging.Level, cfg.Logging.Format)

	// Show which config file is being used (if any)
	if cfg.App.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", cfg.App.ConfigFile)
	}
	return nil
}
