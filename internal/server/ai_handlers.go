package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"mythos/internal/core"
)

// ContinueStoryRequest is the body of POST /api/ai/continue-story
type ContinueStoryRequest struct {
	StoryContent string `json:"storyContent" validate:"notblank"`
	Direction    string `json:"direction"`
	StoryID      string `json:"storyId"`
}

// SuggestionsRequest is the body of POST /api/ai/story-suggestions
type SuggestionsRequest struct {
	Genre string `json:"genre"`
	Theme string `json:"theme"`
}

// DevelopCharacterRequest is the body of POST /api/ai/develop-character
type DevelopCharacterRequest struct {
	CharacterName string `json:"characterName" validate:"notblank"`
	CurrentTraits string `json:"currentTraits"`
	StoryContext  string `json:"storyContext"`
}

// PlotTwistRequest is the body of POST /api/ai/plot-twist
type PlotTwistRequest struct {
	StoryContext string `json:"storyContext"`
	Genre        string `json:"genre"`
	StoryID      string `json:"storyId"`
}

// WritingAssistantRequest is the body of POST /api/ai/writing-assistant
type WritingAssistantRequest struct {
	Prompt  string `json:"prompt" validate:"notblank"`
	Context string `json:"context"`
	Type    string `json:"type"`
}

// AnalyzeStoryRequest is the body of POST /api/ai/analyze-story
type AnalyzeStoryRequest struct {
	StoryContent string `json:"storyContent" validate:"notblank"`
	Focus        string `json:"focus"`
}

// WritingPromptsRequest is the body of POST /api/ai/writing-prompts
type WritingPromptsRequest struct {
	Genre      string `json:"genre"`
	Theme      string `json:"theme"`
	Difficulty string `json:"difficulty"`
}

// CharacterFromStoryRequest is the body of POST /api/ai/generate-character-from-story
type CharacterFromStoryRequest struct {
	StoryContent  string `json:"storyContent" validate:"notblank"`
	CharacterName string `json:"characterName"`
	StoryID       string `json:"storyId"`
}

// PlotFromStoryRequest is the body of POST /api/ai/generate-plot-from-story
type PlotFromStoryRequest struct {
	StoryContent string `json:"storyContent" validate:"notblank"`
	PlotType     string `json:"plotType"`
	StoryID      string `json:"storyId"`
}

// Persisted results carry the stored ID when a storyId was supplied.
// Saved stays absent when nothing was attempted.

// CharacterResponse is a generated character, optionally saved
type CharacterResponse struct {
	core.Character
	ID    string `json:"id,omitempty"`
	Saved *bool  `json:"saved,omitempty"`
}

// PlotResponse is a generated plot, optionally saved
type PlotResponse struct {
	core.Plot
	ID    string `json:"id,omitempty"`
	Saved *bool  `json:"saved,omitempty"`
}

// PlotTwistResponse is a generated plot twist, optionally saved
type PlotTwistResponse struct {
	core.PlotTwist
	ID    string `json:"id,omitempty"`
	Saved *bool  `json:"saved,omitempty"`
}

// handleContinueStory handles POST /api/ai/continue-story
func (s *Server) handleContinueStory(w http.ResponseWriter, r *http.Request) {
	var req ContinueStoryRequest
	if !s.decode(w, r, &req) {
		return
	}

	existing := s.storyContext(r, req.StoryID)

	res, err := s.gen.ContinueStory(r.Context(), req.StoryContent, req.Direction, existing)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to continue story")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// storyContext loads the existing material of a story. A lookup failure only
// costs the prompt some context, so it is logged and otherwise ignored.
func (s *Server) storyContext(r *http.Request, storyID string) core.StoryContext {
	if storyID == "" || s.store == nil {
		return core.StoryContext{}
	}
	sc, err := s.store.StoryContext(r.Context(), storyID)
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("story_id", storyID).
			Msg("Failed to fetch existing story content")
		return core.StoryContext{}
	}
	return sc
}

// handleStorySuggestions handles POST /api/ai/story-suggestions
func (s *Server) handleStorySuggestions(w http.ResponseWriter, r *http.Request) {
	var req SuggestionsRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.gen.GenerateStorySuggestions(r.Context(), req.Genre, req.Theme)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to generate story suggestions")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleDevelopCharacter handles POST /api/ai/develop-character
func (s *Server) handleDevelopCharacter(w http.ResponseWriter, r *http.Request) {
	var req DevelopCharacterRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.gen.DevelopCharacter(r.Context(), req.CharacterName, req.CurrentTraits, req.StoryContext)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to develop character")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handlePlotTwist handles POST /api/ai/plot-twist
func (s *Server) handlePlotTwist(w http.ResponseWriter, r *http.Request) {
	var req PlotTwistRequest
	if !s.decode(w, r, &req) {
		return
	}

	twist, err := s.gen.GeneratePlotTwist(r.Context(), req.StoryContext, req.Genre)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to generate plot twist")
		return
	}

	resp := PlotTwistResponse{PlotTwist: twist}
	resp.ID, resp.Saved = s.save(r, req.StoryID, "twist", func(ctx context.Context) (string, error) {
		return s.store.SaveTwist(ctx, req.StoryID, twist)
	})
	s.respondJSON(w, http.StatusOK, resp)
}

// handleWritingAssistant handles POST /api/ai/writing-assistant
func (s *Server) handleWritingAssistant(w http.ResponseWriter, r *http.Request) {
	var req WritingAssistantRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.gen.WritingAssistance(r.Context(), req.Prompt, req.Context, req.Type)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to get writing assistance")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleAnalyzeStory handles POST /api/ai/analyze-story
func (s *Server) handleAnalyzeStory(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeStoryRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.gen.AnalyzeStory(r.Context(), req.StoryContent, req.Focus)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to analyze story")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleWritingPrompts handles POST /api/ai/writing-prompts
func (s *Server) handleWritingPrompts(w http.ResponseWriter, r *http.Request) {
	var req WritingPromptsRequest
	if !s.decode(w, r, &req) {
		return
	}

	res, err := s.gen.GenerateWritingPrompts(r.Context(), req.Genre, req.Theme, req.Difficulty)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to generate writing prompts")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

// handleCharacterFromStory handles POST /api/ai/generate-character-from-story
func (s *Server) handleCharacterFromStory(w http.ResponseWriter, r *http.Request) {
	var req CharacterFromStoryRequest
	if !s.decode(w, r, &req) {
		return
	}

	character, err := s.gen.GenerateCharacterFromStory(r.Context(), req.StoryContent, req.CharacterName)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to generate character")
		return
	}

	resp := CharacterResponse{Character: character}
	resp.ID, resp.Saved = s.save(r, req.StoryID, "character", func(ctx context.Context) (string, error) {
		return s.store.SaveCharacter(ctx, req.StoryID, character)
	})
	s.respondJSON(w, http.StatusOK, resp)
}

// handlePlotFromStory handles POST /api/ai/generate-plot-from-story
func (s *Server) handlePlotFromStory(w http.ResponseWriter, r *http.Request) {
	var req PlotFromStoryRequest
	if !s.decode(w, r, &req) {
		return
	}

	plot, err := s.gen.GeneratePlotFromStory(r.Context(), req.StoryContent, req.PlotType)
	if err != nil {
		s.respondGenerationError(w, r, err, "Failed to generate plot")
		return
	}

	resp := PlotResponse{Plot: plot}
	resp.ID, resp.Saved = s.save(r, req.StoryID, "plot", func(ctx context.Context) (string, error) {
		return s.store.SavePlot(ctx, req.StoryID, plot)
	})
	s.respondJSON(w, http.StatusOK, resp)
}

// save persists a generated record when storyID is set. The generated
// content is returned either way; saved reports whether it was stored.
func (s *Server) save(r *http.Request, storyID, kind string, persist func(ctx context.Context) (string, error)) (string, *bool) {
	if storyID == "" || s.store == nil {
		return "", nil
	}

	saved := false
	id, err := persist(r.Context())
	if err != nil {
		s.log.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("story_id", storyID).
			Str("kind", kind).
			Msg("Failed to save generated content")
		return "", &saved
	}
	saved = true
	return id, &saved
}
