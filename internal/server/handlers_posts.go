package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/models"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	var posts []models.Post
	var err error
	if category != "" {
		posts, err = s.store.ListPostsByCategory(r.Context(), category)
	} else {
		posts, err = s.store.ListPosts(r.Context())
	}
	if err != nil {
		s.renderError(w, err)
		return
	}

	categories, err := s.store.ListCategories(r.Context())
	if err != nil {
		slog.Error("Failed to list categories", "error", err)
	}

	s.render(w, http.StatusOK, "home", map[string]any{
		"Page":       "home",
		"Posts":      posts,
		"Categories": categories,
		"Category":   category,
		"Empty":      apperr.MsgEmpty,
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		s.renderError(w, err)
		return
	}

	var related []models.Post
	if s.sim != nil {
		all, err := s.store.ListPosts(r.Context())
		if err != nil {
			slog.Error("Failed to load posts for related list", "error", err)
		} else {
			related = s.sim.Related(post, all, s.cfg.Similarity.RelatedLimit)
		}
	}

	s.render(w, http.StatusOK, "post", map[string]any{
		"Page":        "post",
		"Title":       post.Title + " | Blogzin",
		"Description": excerpt(post.Content, 160),
		"Post":        post,
		"Related":     related,
		"SourceName":  s.sourceName(post.Source),
	})
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	id, err := s.store.RandomPostID(r.Context())
	if errors.Is(err, apperr.ErrEmptyCollection) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.renderError(w, err)
		return
	}
	http.Redirect(w, r, "/posts/"+id, http.StatusSeeOther)
}

func (s *Server) handleGeneratePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "generate", map[string]any{
		"Page":    "generate",
		"Title":   "Gerar curiosidade | Blogzin",
		"Sources": s.sources,
	})
}

func (s *Server) handleGenerateSubmit(w http.ResponseWriter, r *http.Request) {
	source := r.FormValue("source")

	post, err := s.gen.Generate(r.Context(), source)
	if err != nil {
		s.render(w, apperr.Status(err), "generate", map[string]any{
			"Page":      "generate",
			"Title":     "Gerar curiosidade | Blogzin",
			"Sources":   s.sources,
			"Selected":  source,
			"Error":     apperr.Message(err),
			"Retryable": apperr.Retryable(err),
		})
		return
	}

	http.Redirect(w, r, "/posts/"+post.ID, http.StatusSeeOther)
}

// renderError shows the user-facing message for err. The detail was
// already logged where it happened; unclassified errors are logged here.
func (s *Server) renderError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "kind", apperr.Kind(err), "error", err)
	}
	s.render(w, status, "error", map[string]any{
		"Page":    "error",
		"Status":  status,
		"Message": apperr.Message(err),
	})
}

func (s *Server) sourceName(id string) string {
	for _, src := range s.sources {
		if src.ID == id {
			return src.Name
		}
	}
	return id
}
