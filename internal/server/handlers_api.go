package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/models"
)

func (s *Server) handleAPIPosts(w http.ResponseWriter, r *http.Request) {
	var posts []models.Post
	var err error
	if category := r.URL.Query().Get("category"); category != "" {
		posts, err = s.store.ListPostsByCategory(r.Context(), category)
	} else {
		posts, err = s.store.ListPosts(r.Context())
	}
	if err != nil {
		apiError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"posts": posts})
}

func (s *Server) handleAPIPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		apiError(w, err)
		return
	}
	jsonResponse(w, post)
}

func (s *Server) handleAPIRandomPost(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.RandomPostID(r.Context())
	if errors.Is(err, apperr.ErrEmptyCollection) {
		jsonError(w, apperr.MsgEmpty, http.StatusNotFound)
		return
	}
	if err != nil {
		apiError(w, err)
		return
	}

	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		apiError(w, err)
		return
	}
	jsonResponse(w, post)
}

func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	post, err := s.gen.Generate(r.Context(), r.FormValue("source"))
	if err != nil {
		apiError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/posts/"+post.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(post)
}

func (s *Server) handleAPICategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		apiError(w, err)
		return
	}
	jsonResponse(w, map[string]any{"categories": categories})
}

func (s *Server) handleAPISources(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{"sources": s.sources})
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// apiError writes the user-facing message and status for err.
func apiError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.Error("API: request failed", "kind", apperr.Kind(err), "error", err)
	}
	jsonError(w, apperr.Message(err), status)
}
