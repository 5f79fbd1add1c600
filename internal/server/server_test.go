package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/config"
	"github.com/thinkscotty/blogzin/internal/database"
	"github.com/thinkscotty/blogzin/internal/database/sqlite"
	"github.com/thinkscotty/blogzin/internal/facts"
	"github.com/thinkscotty/blogzin/internal/models"
	"github.com/thinkscotty/blogzin/internal/server"
	"github.com/thinkscotty/blogzin/internal/similarity"
	"github.com/thinkscotty/blogzin/internal/testsupport"
)

// fakeGenerator inserts a fixed fact into the store, or fails with err.
type fakeGenerator struct {
	store   *sqlite.DB
	fact    string
	err     error
	sources []string
}

func (g *fakeGenerator) Generate(ctx context.Context, sourceID string) (models.Post, error) {
	g.sources = append(g.sources, sourceID)
	if g.err != nil {
		return models.Post{}, g.err
	}
	return g.store.InsertPost(ctx, models.NewPost{
		Title:        "Gerado",
		Content:      "Post gerado a partir de " + g.fact,
		OriginalText: g.fact,
		Source:       "uselessfacts",
		Category:     "Ciência",
	})
}

var testSources = []facts.Source{
	{ID: "uselessfacts", Name: "Useless Facts", Kind: facts.KindText},
	{ID: "numbers", Name: "Numbers API", Kind: facts.KindNumber},
}

func newTestServer(c *qt.C, gen *fakeGenerator) (*httptest.Server, *sqlite.DB) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := testsupport.MustOpenStore(c, database.Options{Now: testsupport.Clock(start, time.Minute)})
	if gen == nil {
		gen = &fakeGenerator{}
	}
	gen.store = store

	cfg := config.DefaultConfig()
	srv := server.New(cfg, store, gen, testSources, similarity.New(cfg.Similarity.Threshold, cfg.Similarity.NGramSize), "1.2.3")
	handler, err := srv.Handler()
	c.Assert(err, qt.IsNil)

	ts := httptest.NewServer(handler)
	c.Cleanup(ts.Close)
	return ts, store
}

// noRedirect returns a client that hands back redirect responses as-is.
func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func get(c *qt.C, rawURL string) (*http.Response, string) {
	resp, err := noRedirect().Get(rawURL)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp, string(body)
}

func postForm(c *qt.C, rawURL string, form url.Values) (*http.Response, string) {
	resp, err := noRedirect().PostForm(rawURL, form)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	return resp, string(body)
}

func TestHomeEmpty(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, nil)

	resp, body := get(c, ts.URL+"/")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(resp.Header.Get("Content-Type"), qt.Equals, "text/html; charset=utf-8")
	c.Assert(body, qt.Contains, "Ainda não há nenhuma curiosidade por aqui!")
	c.Assert(body, qt.Contains, "v1.2.3")
}

func TestHomeListsNewestFirstAndFilters(t *testing.T) {
	c := qt.New(t)
	ts, store := newTestServer(c, nil)

	testsupport.MustInsertPost(c, store, "Octopuses have three hearts.", "Animais")
	testsupport.MustInsertPost(c, store, "Honey never spoils.", "Comida")

	_, body := get(c, ts.URL+"/")
	honey := strings.Index(body, "Título: Honey never spoils.")
	octopus := strings.Index(body, "Título: Octopuses have three hearts.")
	c.Assert(honey, qt.Not(qt.Equals), -1)
	c.Assert(octopus, qt.Not(qt.Equals), -1)
	// The category bar lists names only, so the first title hit is the card.
	c.Assert(honey < octopus, qt.IsTrue)

	_, body = get(c, ts.URL+"/?category=Animais")
	c.Assert(body, qt.Contains, "Título: Octopuses have three hearts.")
	c.Assert(body, qt.Not(qt.Contains), "Título: Honey never spoils.")
}

func TestPostPage(t *testing.T) {
	c := qt.New(t)
	ts, store := newTestServer(c, nil)

	post := testsupport.MustInsertPost(c, store, "Bananas are berries.", "Ciência")
	testsupport.MustInsertPost(c, store, "Strawberries are not berries.", "Ciência")

	resp, body := get(c, ts.URL+"/posts/"+post.ID)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, "Título: Bananas are berries.")
	c.Assert(body, qt.Contains, "Useless Facts")
	c.Assert(body, qt.Contains, "Veja também")
	c.Assert(body, qt.Contains, "Título: Strawberries are not berries.")
}

func TestPostPageNotFound(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, nil)

	resp, body := get(c, ts.URL+"/posts/does-not-exist")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(body, qt.Contains, apperr.MsgNotFound)
}

func TestRandomRedirects(t *testing.T) {
	c := qt.New(t)
	ts, store := newTestServer(c, nil)

	resp, _ := get(c, ts.URL+"/random")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusSeeOther)
	c.Assert(resp.Header.Get("Location"), qt.Equals, "/")

	post := testsupport.MustInsertPost(c, store, "Sloths can hold their breath.", "Animais")
	resp, _ = get(c, ts.URL+"/random")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusSeeOther)
	c.Assert(resp.Header.Get("Location"), qt.Equals, "/posts/"+post.ID)
}

func TestGeneratePage(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, nil)

	resp, body := get(c, ts.URL+"/gerar")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, `value="uselessfacts"`)
	c.Assert(body, qt.Contains, "Numbers API")
}

func TestGenerateSubmitRedirectsToPost(t *testing.T) {
	c := qt.New(t)
	gen := &fakeGenerator{fact: "Cats sleep 70% of their lives."}
	ts, store := newTestServer(c, gen)

	resp, _ := postForm(c, ts.URL+"/gerar", url.Values{"source": {"numbers"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusSeeOther)
	c.Assert(gen.sources, qt.DeepEquals, []string{"numbers"})

	posts, err := store.ListPosts(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(posts, qt.HasLen, 1)
	c.Assert(resp.Header.Get("Location"), qt.Equals, "/posts/"+posts[0].ID)
}

func TestGenerateSubmitErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{{
		name:    "duplicate",
		err:     apperr.Wrap(apperr.ErrDuplicateFact, "insert post", fmt.Errorf("unique")),
		status:  http.StatusConflict,
		message: "Este fato já foi processado! Tente gerar outro.",
	}, {
		name:    "fact source down",
		err:     apperr.Wrap(apperr.ErrFactFetch, "fetch", fmt.Errorf("timeout")),
		status:  http.StatusBadGateway,
		message: apperr.MsgFactFetch,
	}, {
		name:    "unclassified",
		err:     fmt.Errorf("boom"),
		status:  http.StatusInternalServerError,
		message: apperr.MsgGeneric,
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			ts, _ := newTestServer(c, &fakeGenerator{err: test.err})

			resp, body := postForm(c, ts.URL+"/gerar", url.Values{"source": {"numbers"}})
			c.Assert(resp.StatusCode, qt.Equals, test.status)
			c.Assert(body, qt.Contains, test.message)
			c.Assert(body, qt.Not(qt.Contains), "boom")
		})
	}
}

func TestStatsPage(t *testing.T) {
	c := qt.New(t)
	ts, store := newTestServer(c, nil)

	testsupport.MustInsertPost(c, store, "Venus spins backwards.", "Espaço")
	err := store.LogGeneration(context.Background(), models.GenerationLog{
		SourceID:   "uselessfacts",
		AIProvider: "gemini",
		AIModel:    "gemini-2.5-flash",
		TokensUsed: 42,
		Outcome:    models.OutcomeCreated,
	})
	c.Assert(err, qt.IsNil)

	resp, body := get(c, ts.URL+"/stats")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, "Espaço")
	c.Assert(body, qt.Contains, "gemini-2.5-flash")
}

func TestAPIPosts(t *testing.T) {
	c := qt.New(t)
	ts, store := newTestServer(c, nil)

	first := testsupport.MustInsertPost(c, store, "Wombat poop is cube-shaped.", "Animais")
	second := testsupport.MustInsertPost(c, store, "The Eiffel Tower grows in summer.", "Lugares")

	resp, body := get(c, ts.URL+"/api/v1/posts")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(resp.Header.Get("Content-Type"), qt.Equals, "application/json")

	var list struct {
		Posts []models.Post `json:"posts"`
	}
	c.Assert(json.Unmarshal([]byte(body), &list), qt.IsNil)
	c.Assert(list.Posts, qt.HasLen, 2)
	c.Assert(list.Posts[0].ID, qt.Equals, second.ID)
	c.Assert(list.Posts[1].ID, qt.Equals, first.ID)

	_, body = get(c, ts.URL+"/api/v1/posts?category=Animais")
	c.Assert(json.Unmarshal([]byte(body), &list), qt.IsNil)
	c.Assert(list.Posts, qt.HasLen, 1)
	c.Assert(list.Posts[0].ID, qt.Equals, first.ID)

	resp, body = get(c, ts.URL+"/api/v1/posts/"+first.ID)
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var got models.Post
	c.Assert(json.Unmarshal([]byte(body), &got), qt.IsNil)
	c.Assert(got, qt.DeepEquals, first)

	var categories struct {
		Categories []string `json:"categories"`
	}
	_, body = get(c, ts.URL+"/api/v1/categories")
	c.Assert(json.Unmarshal([]byte(body), &categories), qt.IsNil)
	c.Assert(categories.Categories, qt.DeepEquals, []string{"Animais", "Lugares"})
}

func TestAPIErrors(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, nil)

	var apiErr struct {
		Error string `json:"error"`
	}

	resp, body := get(c, ts.URL+"/api/v1/posts/missing")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(json.Unmarshal([]byte(body), &apiErr), qt.IsNil)
	c.Assert(apiErr.Error, qt.Equals, apperr.MsgNotFound)

	resp, body = get(c, ts.URL+"/api/v1/posts/random")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(json.Unmarshal([]byte(body), &apiErr), qt.IsNil)
	c.Assert(apiErr.Error, qt.Equals, apperr.MsgEmpty)
}

func TestAPIGenerate(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, &fakeGenerator{fact: "A group of flamingos is a flamboyance."})

	resp, body := postForm(c, ts.URL+"/api/v1/posts", url.Values{"source": {"uselessfacts"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)

	var post models.Post
	c.Assert(json.Unmarshal([]byte(body), &post), qt.IsNil)
	c.Assert(post.OriginalText, qt.Equals, "A group of flamingos is a flamboyance.")
	c.Assert(resp.Header.Get("Location"), qt.Equals, "/api/v1/posts/"+post.ID)

	resp, body = get(c, ts.URL+"/api/v1/posts/random")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, post.ID)
}

func TestAPISourcesHideURLs(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, nil)

	_, body := get(c, ts.URL+"/api/v1/sources")
	var got struct {
		Sources []map[string]any `json:"sources"`
	}
	c.Assert(json.Unmarshal([]byte(body), &got), qt.IsNil)
	c.Assert(got.Sources, qt.HasLen, 2)
	c.Assert(got.Sources[0]["id"], qt.Equals, "uselessfacts")
	_, hasURL := got.Sources[0]["url"]
	c.Assert(hasURL, qt.IsFalse)
}

func TestHealthzAndStatic(t *testing.T) {
	c := qt.New(t)
	ts, _ := newTestServer(c, nil)

	resp, body := get(c, ts.URL+"/healthz")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(strings.TrimSpace(body), qt.Equals, `{"status":"ok"}`)

	resp, body = get(c, ts.URL+"/static/style.css")
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(body, qt.Contains, ".card")
}
