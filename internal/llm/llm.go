package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"mythos/internal/logger"
)

const (
	// DefaultModel is the Gemini model used when none is configured.
	DefaultModel = "gemini-1.5-flash"
	// DefaultTimeout bounds a single GenerateContent call.
	DefaultTimeout = 30 * time.Second
	// DefaultRequestsPerMinute is the client-side request budget.
	DefaultRequestsPerMinute = 60
	defaultBurst             = 5
)

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrBlocked is returned when the prompt or the answer was blocked by safety filters.
	ErrBlocked = errors.New("content blocked by safety filters")
)

// Config configures a Gemini client.
type Config struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	MaxTokens         int32
	Temperature       float32
	RequestsPerMinute int
}

// TextGenerationOptions overrides the client defaults for one call.
type TextGenerationOptions struct {
	MaxTokens   int32   // Maximum number of tokens to generate
	Temperature float32 // Temperature for randomness (0.0 to 1.0)
	Model       string  // Model to use (optional, defaults to client's model)
}

// Client talks to the Gemini API. It is safe for concurrent use.
type Client struct {
	modelName   string
	timeout     time.Duration
	maxTokens   int32
	temperature float32
	gClient     *genai.Client
	limiter     *rate.Limiter
	log         zerolog.Logger
}

// NewClient creates a Gemini client from cfg.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file.\nGet your API key from: https://makersuite.google.com/app/apikey")
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = DefaultRequestsPerMinute
	}

	gClient, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		modelName:   modelName,
		timeout:     timeout,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		gClient:     gClient,
		limiter:     rate.NewLimiter(rate.Limit(float64(rpm)/60.0), defaultBurst),
		log:         logger.For("llm"),
	}, nil
}

// GenerateText sends prompt with the client's default options.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.GenerateTextWithOptions(ctx, prompt, TextGenerationOptions{})
}

// GenerateTextWithOptions sends prompt and returns the concatenated text of the first candidate.
// API errors are wrapped with %w so their status codes stay inspectable.
func (c *Client) GenerateTextWithOptions(ctx context.Context, prompt string, options TextGenerationOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	modelName := c.modelName
	if options.Model != "" {
		modelName = options.Model
	}
	model := c.gClient.GenerativeModel(modelName)
	if maxTokens := pick(options.MaxTokens, c.maxTokens); maxTokens > 0 {
		model.SetMaxOutputTokens(maxTokens)
	}
	if temperature := pick(options.Temperature, c.temperature); temperature > 0 {
		model.SetTemperature(temperature)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			return "", fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	c.log.Debug().
		Str("model", modelName).
		Int("prompt_len", len(prompt)).
		Int("response_len", len(text)).
		Dur("latency", time.Since(start)).
		Msg("Gemini response")
	return text, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrBlocked
	}
	if candidate.Content == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

func pick[T int32 | float32](override, fallback T) T {
	if override > 0 {
		return override
	}
	return fallback
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.gClient.Close()
}

// ModelName returns the model name used by this client.
func (c *Client) ModelName() string {
	return c.modelName
}
