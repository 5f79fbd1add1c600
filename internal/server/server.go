package server

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	blogzin "github.com/thinkscotty/blogzin"
	"github.com/thinkscotty/blogzin/internal/config"
	"github.com/thinkscotty/blogzin/internal/facts"
	"github.com/thinkscotty/blogzin/internal/models"
	"github.com/thinkscotty/blogzin/internal/similarity"
)

// Store is the read side of the post repository.
type Store interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListPostsByCategory(ctx context.Context, category string) ([]models.Post, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	RandomPostID(ctx context.Context) (string, error)
	RecentGenerations(ctx context.Context, limit int) ([]models.GenerationLog, error)
	Stats(ctx context.Context) (models.Stats, error)
}

// Generator runs one post generation.
type Generator interface {
	Generate(ctx context.Context, sourceID string) (models.Post, error)
}

type Server struct {
	cfg     config.Config
	store   Store
	gen     Generator
	sources []facts.Source
	sim     *similarity.Checker
	version string
	pages   map[string]*template.Template
	httpSrv *http.Server
}

func New(cfg config.Config, store Store, gen Generator, sources []facts.Source, sim *similarity.Checker, version string) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		gen:     gen,
		sources: sources,
		sim:     sim,
		version: version,
	}
}

// Handler loads templates and returns the full middleware-wrapped router.
func (s *Server) Handler() (http.Handler, error) {
	if err := s.loadTemplates(); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	mux := http.NewServeMux()
	s.routes(mux)

	return recoveryMiddleware(loggingMiddleware(mux)), nil
}

// Start sets up routes and starts the HTTP server.
func (s *Server) Start() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	slog.Info("Starting server", "addr", addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes(mux *http.ServeMux) {
	staticFS, _ := fs.Sub(blogzin.StaticFS, "web/static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /posts/{id}", s.handlePost)
	mux.HandleFunc("GET /random", s.handleRandom)
	mux.HandleFunc("GET /gerar", s.handleGeneratePage)
	mux.HandleFunc("POST /gerar", s.handleGenerateSubmit)
	mux.HandleFunc("GET /stats", s.handleStatsPage)

	mux.HandleFunc("GET /api/v1/posts", s.handleAPIPosts)
	mux.HandleFunc("GET /api/v1/posts/random", s.handleAPIRandomPost)
	mux.HandleFunc("GET /api/v1/posts/{id}", s.handleAPIPost)
	mux.HandleFunc("POST /api/v1/posts", s.handleAPIGenerate)
	mux.HandleFunc("GET /api/v1/categories", s.handleAPICategories)
	mux.HandleFunc("GET /api/v1/sources", s.handleAPISources)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, map[string]string{"status": "ok"})
	})
}

var monthsPT = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

func (s *Server) loadTemplates() error {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			return fmt.Sprintf("%d de %s de %d", t.Day(), monthsPT[t.Month()-1], t.Year())
		},
		"timeAgo": func(t time.Time) string {
			d := time.Since(t)
			switch {
			case d < time.Minute:
				return "agora mesmo"
			case d < time.Hour:
				return fmt.Sprintf("há %d min", int(d.Minutes()))
			case d < 24*time.Hour:
				return fmt.Sprintf("há %d h", int(d.Hours()))
			default:
				return fmt.Sprintf("há %d dias", int(d.Hours()/24))
			}
		},
		"excerpt": excerpt,
	}

	s.pages = make(map[string]*template.Template)

	pageNames := []string{"home", "post", "generate", "stats", "error"}
	for _, page := range pageNames {
		t, err := template.New("base.html").Funcs(funcMap).ParseFS(blogzin.TemplateFS,
			"web/templates/layouts/base.html",
			"web/templates/partials/*.html",
			"web/templates/pages/"+page+".html",
		)
		if err != nil {
			return fmt.Errorf("parse template %s: %w", page, err)
		}
		s.pages[page] = t
	}

	return nil
}

// excerpt cuts s to at most n runes, adding an ellipsis when cut.
func excerpt(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}

// render executes a full page template with the given status.
func (s *Server) render(w http.ResponseWriter, status int, page string, data map[string]any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}

	data["Version"] = s.version
	if _, exists := data["Title"]; !exists {
		data["Title"] = "Blogzin"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		slog.Error("Template execution error", "page", page, "error", err)
	}
}
