package retry

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

var (
	// ErrCancelled is returned inside a Fatal outcome when the context ends during a backoff sleep.
	ErrCancelled = errors.New("generation cancelled")
	// ErrServiceUnavailable marks an endpoint that is not running at all, as opposed
	// to one that is running but overloaded. It is never retried.
	ErrServiceUnavailable = errors.New("generation service unavailable")
)

// Class is the retry classification of a failed attempt.
type Class int

const (
	// ClassFatal errors are returned to the caller on first occurrence.
	ClassFatal Class = iota
	// ClassOverloaded errors are retried with backoff and end in exhaustion.
	ClassOverloaded
	// ClassUnavailable errors end in exhaustion without any retry.
	ClassUnavailable
)

func (c Class) String() string {
	switch c {
	case ClassOverloaded:
		return "overloaded"
	case ClassUnavailable:
		return "unavailable"
	default:
		return "fatal"
	}
}

// Classifier decides how the invoker treats a failed attempt. Alternate
// generation backends supply their own to change what counts as transient.
type Classifier interface {
	Classify(err error) Class
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(err error) Class

func (f ClassifierFunc) Classify(err error) Class { return f(err) }

// Message fragments the hosted Gemini API uses for a saturated model.
var overloadSignatures = []string{
	"503 Service Unavailable",
	"model is overloaded",
}

const overloadCode = 503

// StatusError carries a numeric status code from a generation backend.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("generation backend returned status %d", e.Code)
	}
	return fmt.Sprintf("generation backend returned status %d: %s", e.Code, e.Message)
}

// DefaultClassifier recognises Gemini overload conditions by message and by
// status code. It checks *googleapi.Error, any error exposing HTTPCode() (gax
// apierror) and *StatusError.
var DefaultClassifier Classifier = ClassifierFunc(classifyDefault)

func classifyDefault(err error) Class {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, ErrServiceUnavailable) {
		return ClassUnavailable
	}
	if IsOverloaded(err) {
		return ClassOverloaded
	}
	return ClassFatal
}

// IsOverloaded reports whether err carries a 503/overloaded signature.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	if statusCode(err) == overloadCode {
		return true
	}
	msg := err.Error()
	for _, sig := range overloadSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

func statusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	var serr *StatusError
	if errors.As(err, &serr) {
		return serr.Code
	}
	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return coded.HTTPCode()
	}
	return 0
}
