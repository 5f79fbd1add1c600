package server

import (
	"log/slog"
	"net/http"
)

func (s *Server) handleStatsPage(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		slog.Error("Failed to get stats", "error", err)
		s.renderError(w, err)
		return
	}

	recent, err := s.store.RecentGenerations(r.Context(), 20)
	if err != nil {
		slog.Error("Failed to get recent generations", "error", err)
	}

	s.render(w, http.StatusOK, "stats", map[string]any{
		"Page":   "stats",
		"Title":  "Estatísticas | Blogzin",
		"Stats":  stats,
		"Recent": recent,
	})
}
