package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CreateStoryRequest is the body of POST /api/stories
type CreateStoryRequest struct {
	Title   string `json:"title" validate:"notblank,max=200"`
	Content string `json:"content"`
	Genre   string `json:"genre" validate:"max=50"`
}

// handleCreateStory handles POST /api/stories
func (s *Server) handleCreateStory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Story storage is not configured")
		return
	}

	var req CreateStoryRequest
	if !s.decode(w, r, &req) {
		return
	}

	story, err := s.store.CreateStory(r.Context(), req.Title, req.Content, req.Genre)
	if err != nil {
		s.respondStoreError(w, err, "Failed to create story")
		return
	}
	s.respondJSON(w, http.StatusCreated, story)
}

// handleGetStory handles GET /api/stories/{id}
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Story storage is not configured")
		return
	}

	story, err := s.store.GetStory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStoreError(w, err, "Failed to fetch story")
		return
	}
	s.respondJSON(w, http.StatusOK, story)
}
