package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"mythos/internal/services"
	"mythos/internal/store"
)

const (
	maxBodyBytes = 1 << 20

	overloadedMessage = "AI service is currently overloaded. Please try again in a few moments."
)

// HealthResponse is the process liveness response
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

var serverStartTime = time.Now()

// handleHealth handles the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"process": "ok"}

	// Check database connection
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			checks["database"] = "error"
			s.respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Uptime: time.Since(serverStartTime).String(),
				Checks: checks,
			})
			return
		}
		checks["database"] = "ok"
	}

	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Uptime: time.Since(serverStartTime).String(),
		Checks: checks,
	})
}

// handleAIHealth handles GET /api/ai/health
func (s *Server) handleAIHealth(w http.ResponseWriter, r *http.Request) {
	report := s.gen.Health(r.Context())

	status := http.StatusOK
	switch report.Status {
	case services.HealthHealthy:
	case services.HealthOverloaded:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	s.respondJSON(w, status, report)
}

// decode reads a JSON body into dst and validates it. It writes the 400
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		s.respondError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

// fieldMessages names the fields a caller can omit by mistake.
var fieldMessages = map[string]string{
	"StoryContent":  "Story content is required",
	"CharacterName": "Character name is required",
	"Prompt":        "Prompt is required",
	"Title":         "Title is required",
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := fieldMessages[verrs[0].StructField()]; ok {
			return msg
		}
		return fmt.Sprintf("%s is invalid", verrs[0].Field())
	}
	return "Invalid request"
}

// respondGenerationError maps a fatal generation error to a status code.
// Overload and cancellation signatures are retryable 503s, everything else is a 500.
func (s *Server) respondGenerationError(w http.ResponseWriter, r *http.Request, err error, failure string) {
	s.log.Error().
		Err(err).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg(failure)

	if services.Retryable(err) {
		s.respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: overloadedMessage, Retryable: true})
		return
	}
	s.respondError(w, http.StatusInternalServerError, failure)
}

// respondStoreError maps store failures to a status code.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, failure string) {
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "Story not found")
		return
	}
	s.log.Error().Err(err).Msg(failure)
	s.respondError(w, http.StatusInternalServerError, failure)
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// respondError writes a JSON error response
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
