package retry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

type httpCodeErr struct{ code int }

func (e httpCodeErr) Error() string { return "rpc error" }
func (e httpCodeErr) HTTPCode() int { return e.code }

func TestDefaultClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{name: "service unavailable message", err: errors.New("[GoogleGenerativeAI Error]: 503 Service Unavailable"), want: ClassOverloaded},
		{name: "model overloaded message", err: errors.New("The model is overloaded. Please try again later."), want: ClassOverloaded},
		{name: "googleapi 503", err: &googleapi.Error{Code: 503}, want: ClassOverloaded},
		{name: "wrapped googleapi 503", err: fmt.Errorf("failed to generate content: %w", &googleapi.Error{Code: 503}), want: ClassOverloaded},
		{name: "HTTPCode 503", err: httpCodeErr{code: 503}, want: ClassOverloaded},
		{name: "status error 503", err: &StatusError{Code: 503}, want: ClassOverloaded},
		{name: "googleapi 500", err: &googleapi.Error{Code: 500, Message: "internal"}, want: ClassFatal},
		{name: "googleapi 429", err: &googleapi.Error{Code: 429}, want: ClassFatal},
		{name: "lowercase service unavailable is not an exact match", err: errors.New("503 service unavailable"), want: ClassFatal},
		{name: "network error", err: errors.New("dial tcp: connection refused"), want: ClassFatal},
		{name: "unavailable sentinel", err: fmt.Errorf("no api key: %w", ErrServiceUnavailable), want: ClassUnavailable},
		{name: "nil", err: nil, want: ClassFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultClassifier.Classify(tt.err))
		})
	}
}

func TestIsOverloaded(t *testing.T) {
	assert.True(t, IsOverloaded(&StatusError{Code: 503, Message: "busy"}))
	assert.False(t, IsOverloaded(&StatusError{Code: 502}))
	assert.False(t, IsOverloaded(nil))
}

func TestStatusErrorMessage(t *testing.T) {
	assert.Equal(t, "generation backend returned status 503", (&StatusError{Code: 503}).Error())
	assert.Equal(t, "generation backend returned status 503: busy", (&StatusError{Code: 503, Message: "busy"}).Error())
}

func TestKindAndClassStrings(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "fatal", Fatal.String())
	assert.Equal(t, "overloaded", ClassOverloaded.String())
	assert.Equal(t, "unavailable", ClassUnavailable.String())
	assert.Equal(t, "fatal", ClassFatal.String())
}
