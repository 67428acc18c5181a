package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"mythos/internal/retry"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logging  Logging  `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	ConfigFile string `mapstructure:"config_file"`
}

// AI holds generation service configuration
type AI struct {
	// Offline skips the Gemini client entirely; every request is served by the fallback generator.
	Offline bool         `mapstructure:"offline"`
	Gemini  GeminiConfig `mapstructure:"gemini"`
	Retry   RetryConfig  `mapstructure:"retry"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	Model             string  `mapstructure:"model"`
	Timeout           string  `mapstructure:"timeout"`
	MaxTokens         int32   `mapstructure:"max_tokens"`
	Temperature       float32 `mapstructure:"temperature"`
	RequestsPerMinute int     `mapstructure:"requests_per_minute"`
}

// RetryConfig holds the backoff policy applied to overloaded generation calls
type RetryConfig struct {
	MaxRetries int     `mapstructure:"max_retries"`
	BaseDelay  string  `mapstructure:"base_delay"`
	Multiplier float64 `mapstructure:"multiplier"`
	MaxDelay   string  `mapstructure:"max_delay"`
	// Deadline bounds the whole retry loop; empty or "0s" disables it.
	Deadline string `mapstructure:"deadline"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings for the web client
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Database holds the story store configuration
type Database struct {
	Path    string `mapstructure:"path"`
	Timeout string `mapstructure:"timeout"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".mythos")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".mythos")

	viper.SetDefault("ai.offline", false)
	viper.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	viper.SetDefault("ai.gemini.timeout", "30s")
	viper.SetDefault("ai.gemini.max_tokens", 2048)
	viper.SetDefault("ai.gemini.temperature", 0.9)
	viper.SetDefault("ai.gemini.requests_per_minute", 60)

	viper.SetDefault("ai.retry.max_retries", 3)
	viper.SetDefault("ai.retry.base_delay", "1s")
	viper.SetDefault("ai.retry.multiplier", 2.0)
	viper.SetDefault("ai.retry.max_delay", "30s")
	viper.SetDefault("ai.retry.deadline", "60s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "90s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})

	viper.SetDefault("database.path", "")
	viper.SetDefault("database.timeout", "5s")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	// Gemini API key - support multiple formats
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.gemini.model", []string{
		"GEMINI_MODEL",
	})

	bindEnvKeys("ai.offline", []string{
		"MYTHOS_OFFLINE",
		"AI_OFFLINE",
	})

	bindEnvKeys("database.path", []string{
		"MYTHOS_DB_PATH",
		"DATABASE_PATH",
	})

	bindEnvKeys("server.port", []string{
		"PORT",
		"MYTHOS_PORT",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"MYTHOS_DEBUG",
	})

	bindEnvKeys("logging.level", []string{
		"LOG_LEVEL",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Database.Path == "" {
		config.Database.Path = filepath.Join(config.App.DataDir, "mythos.db")
	} else {
		config.Database.Path = expandPath(config.Database.Path)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"ai.gemini.timeout":   config.AI.Gemini.Timeout,
		"ai.retry.base_delay": config.AI.Retry.BaseDelay,
		"ai.retry.max_delay":  config.AI.Retry.MaxDelay,
		"ai.retry.deadline":   config.AI.Retry.Deadline,
		"database.timeout":    config.Database.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures required configuration is present
func validateConfig(config *Config) error {
	var errors []string

	// Gemini API key is required unless every request should be served offline
	if !config.AI.Offline && !isValidAPIKey(config.AI.Gemini.APIKey) {
		errors = append(errors, "Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file, or set MYTHOS_OFFLINE=true to serve fallback content only.\nGet your API key from: https://makersuite.google.com/app/apikey")
	}

	if config.AI.Retry.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("ai.retry.max_retries must not be negative, got %d", config.AI.Retry.MaxRetries))
	}
	if config.AI.Retry.Multiplier != 0 && config.AI.Retry.Multiplier < 1 {
		errors = append(errors, fmt.Sprintf("ai.retry.multiplier must be at least 1, got %g", config.AI.Retry.Multiplier))
	}
	if config.AI.Gemini.RequestsPerMinute < 0 {
		errors = append(errors, "ai.gemini.requests_per_minute must not be negative")
	}
	if config.Server.Port < 0 || config.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port out of range: %d", config.Server.Port))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// RetryPolicy converts the retry section into an invoker policy.
// Durations were validated during Load.
func (c RetryConfig) RetryPolicy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxRetries = c.MaxRetries
	if d, err := time.ParseDuration(c.BaseDelay); err == nil {
		policy.BaseDelay = d
	}
	if d, err := time.ParseDuration(c.MaxDelay); err == nil && d > 0 {
		policy.MaxDelay = d
	}
	if c.Multiplier > 0 {
		policy.Multiplier = c.Multiplier
	}
	return policy
}

// DeadlineDuration returns the overall retry deadline, or 0 when disabled.
func (c RetryConfig) DeadlineDuration() time.Duration {
	d, err := time.ParseDuration(c.Deadline)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// TimeoutDuration returns the per-call Gemini timeout, or 0 when unset.
func (c GeminiConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-gemini-api-key", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
