// Package retry wraps a single generation call with bounded exponential
// backoff. Overload failures never surface as errors: once the policy is spent
// the invoker reports Exhausted so the caller can substitute fallback content.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"mythos/internal/logger"
)

// Policy is the backoff policy for one call.
type Policy struct {
	MaxRetries int           // Retries after the first attempt
	BaseDelay  time.Duration // Delay before the first retry
	Multiplier float64       // Growth factor applied per attempt
	MaxDelay   time.Duration // Upper bound on a single delay; zero means DefaultMaxDelay
}

// DefaultMaxDelay caps a single backoff sleep when the policy sets no bound.
const DefaultMaxDelay = 30 * time.Second

// DefaultPolicy returns 3 retries starting at one second and doubling.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, BaseDelay: time.Second, Multiplier: 2, MaxDelay: DefaultMaxDelay}
}

func (p Policy) normalized() Policy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	return p
}

// Delay returns the sleep before the retry that follows the zero-indexed attempt,
// never more than MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if math.IsNaN(d) || d >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Kind is the terminal state of an invocation.
type Kind int

const (
	Success Kind = iota
	Exhausted
	Fatal
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Exhausted:
		return "exhausted"
	default:
		return "fatal"
	}
}

// Reason explains an Exhausted outcome. Callers treat both reasons the same.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonOverloaded  Reason = "overloaded"
	ReasonUnavailable Reason = "unavailable"
)

// Outcome is the result of Invoke.
type Outcome struct {
	Kind     Kind
	Text     string // Set when Kind is Success
	Err      error  // Set when Kind is Fatal
	Reason   Reason // Set when Kind is Exhausted
	LastErr  error  // Last failure seen, including absorbed ones
	Attempts int
}

// Operation is one attempt at the external call.
type Operation func(ctx context.Context) (string, error)

// Sleeper blocks for d or until ctx ends, returning ctx.Err() in the latter case.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer is notified of every attempt and backoff. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveAttempt(class Class, err error)
	ObserveBackoff(d time.Duration)
}

// Invoker runs operations under a Policy. It holds no per-call state and is
// safe for concurrent use.
type Invoker struct {
	classifier Classifier
	sleep      Sleeper
	observer   Observer
	log        zerolog.Logger
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithClassifier replaces DefaultClassifier.
func WithClassifier(c Classifier) Option {
	return func(i *Invoker) {
		if c != nil {
			i.classifier = c
		}
	}
}

// WithSleeper replaces the timer-based sleep, mainly for tests.
func WithSleeper(s Sleeper) Option {
	return func(i *Invoker) {
		if s != nil {
			i.sleep = s
		}
	}
}

// WithObserver attaches an attempt observer such as a metrics recorder.
func WithObserver(o Observer) Option {
	return func(i *Invoker) { i.observer = o }
}

// WithLogger sets the logger used for attempt diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(i *Invoker) { i.log = l }
}

// NewInvoker creates an Invoker with the default classifier and a timer sleep.
func NewInvoker(opts ...Option) *Invoker {
	i := &Invoker{
		classifier: DefaultClassifier,
		sleep:      timerSleep,
		log:        logger.For("retry"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Invoke executes op, retrying overload failures according to policy.
func (i *Invoker) Invoke(ctx context.Context, policy Policy, op Operation) Outcome {
	policy = policy.normalized()

	var lastErr error
	for attempt := 0; ; attempt++ {
		text, err := op(ctx)
		if err == nil {
			return Outcome{Kind: Success, Text: text, LastErr: lastErr, Attempts: attempt + 1}
		}
		lastErr = err

		class := i.classifier.Classify(err)
		if i.observer != nil {
			i.observer.ObserveAttempt(class, err)
		}

		switch class {
		case ClassUnavailable:
			i.log.Warn().Err(err).Int("attempt", attempt+1).Msg("Generation endpoint unavailable, skipping retries")
			return Outcome{Kind: Exhausted, Reason: ReasonUnavailable, LastErr: err, Attempts: attempt + 1}
		case ClassOverloaded:
			if attempt >= policy.MaxRetries {
				i.log.Warn().Err(err).Int("attempts", attempt+1).Msg("All retries exhausted")
				return Outcome{Kind: Exhausted, Reason: ReasonOverloaded, LastErr: err, Attempts: attempt + 1}
			}
		default:
			return Outcome{Kind: Fatal, Err: err, LastErr: err, Attempts: attempt + 1}
		}

		delay := policy.Delay(attempt)
		i.log.Info().
			Int("attempt", attempt+1).
			Int("max_attempts", policy.MaxRetries+1).
			Dur("delay", delay).
			Msg("Generation API overloaded, retrying")
		if i.observer != nil {
			i.observer.ObserveBackoff(delay)
		}

		if serr := i.sleep(ctx, delay); serr != nil {
			cerr := fmt.Errorf("%w: %w", ErrCancelled, serr)
			return Outcome{Kind: Fatal, Err: cerr, LastErr: err, Attempts: attempt + 1}
		}
	}
}

func timerSleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
