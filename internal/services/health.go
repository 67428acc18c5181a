package services

import (
	"context"
	"strings"
	"time"

	"mythos/internal/retry"
)

// Health statuses reported by Health.
const (
	HealthHealthy    = "healthy"
	HealthOverloaded = "overloaded"
	HealthUnhealthy  = "unhealthy"
)

const (
	serviceName       = "Gemini AI"
	fallbackAvailable = "Fallback service available"
)

// HealthReport is the result of probing the generation endpoint.
type HealthReport struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Fallback  string    `json:"fallback,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Healthy reports whether the endpoint answered the probe.
func (h HealthReport) Healthy() bool {
	return h.Status == HealthHealthy
}

// Health sends a single probe prompt with no retries.
func (s *GenerationService) Health(ctx context.Context) HealthReport {
	out := s.invoker.Invoke(ctx, retry.Policy{MaxRetries: 0}, func(ctx context.Context) (string, error) {
		return s.gen.GenerateText(ctx, HealthPrompt)
	})

	report := HealthReport{Service: serviceName, Timestamp: time.Now().UTC()}
	switch {
	case out.Kind == retry.Success:
		report.Status = HealthHealthy
		report.Response = strings.TrimSpace(out.Text)
	case out.Kind == retry.Exhausted && out.Reason == retry.ReasonOverloaded:
		report.Status = HealthOverloaded
		report.Error = "Service is currently overloaded"
		report.Fallback = fallbackAvailable
	default:
		report.Status = HealthUnhealthy
		report.Error = "Service is not responding"
		report.Fallback = fallbackAvailable
	}

	s.log.Info().Str("status", report.Status).Err(out.LastErr).Msg("Generation endpoint health probe")
	return report
}
