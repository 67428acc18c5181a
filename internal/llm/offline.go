package llm

import (
	"context"
	"fmt"

	"mythos/internal/retry"
)

// Offline is a generation endpoint that never started. Every call fails with
// retry.ErrServiceUnavailable so callers go straight to fallback content.
type Offline struct {
	Reason string
}

// GenerateText always reports the endpoint as unavailable.
func (o Offline) GenerateText(ctx context.Context, prompt string) (string, error) {
	reason := o.Reason
	if reason == "" {
		reason = "offline mode"
	}
	return "", fmt.Errorf("%s: %w", reason, retry.ErrServiceUnavailable)
}

// ModelName identifies the offline endpoint in logs and health output.
func (o Offline) ModelName() string {
	return "offline"
}
