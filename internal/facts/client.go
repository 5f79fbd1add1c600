// Package facts fetches raw trivia facts from public HTTP endpoints.
package facts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/thinkscotty/blogzin/internal/apperr"
)

// Response kinds understood by the client.
const (
	KindText    = "text"    // {"text": "..."}
	KindNumber  = "number"  // {"number": 42, "type": "trivia", "text": "..."}
	KindSummary = "summary" // {"title": "...", "extract": "..."}
)

const userAgent = "Blogzin/1.0 (trivia blog; +https://github.com/thinkscotty/blogzin)"

// Source is one configured fact endpoint.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"-"`
	Kind string `json:"kind"`
}

// Fact is a single raw fact as returned by a source.
type Fact struct {
	Text     string
	SourceID string
}

// FetchError reports a failed fetch from a fact source.
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch fact from %s: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == apperr.ErrFactFetch }

// Client fetches facts from a fixed set of sources.
type Client struct {
	httpClient *http.Client
	sources    []Source
}

// New creates a client over the given sources. The first source is the
// default. A zero timeout means 15 seconds.
func New(sources []Source, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		sources:    sources,
	}
}

// Sources returns the configured sources in order.
func (c *Client) Sources() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// Source looks up a source by id. An empty id selects the default source.
func (c *Client) Source(id string) (Source, bool) {
	if id == "" {
		if len(c.sources) == 0 {
			return Source{}, false
		}
		return c.sources[0], true
	}
	for _, s := range c.sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// Fetch issues one GET to the selected source and returns its fact text.
// Every failure is a *FetchError. There are no retries.
func (c *Client) Fetch(ctx context.Context, sourceID string) (Fact, error) {
	src, ok := c.Source(sourceID)
	if !ok {
		return Fact{}, &FetchError{SourceID: sourceID, Err: errors.New("unknown source")}
	}

	text, err := c.fetch(ctx, src)
	if err != nil {
		return Fact{}, &FetchError{SourceID: src.ID, Err: err}
	}
	return Fact{Text: text, SourceID: src.ID}, nil
}

func (c *Client) fetch(ctx context.Context, src Source) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	text, err := normalize(src.Kind, body)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty fact text")
	}
	return text, nil
}

// normalize turns one of the known response shapes into plain text.
func normalize(kind string, body []byte) (string, error) {
	switch kind {
	case KindText, "":
		var r struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return r.Text, nil

	case KindNumber:
		var r struct {
			Number json.Number `json:"number"`
			Type   string      `json:"type"`
			Text   string      `json:"text"`
		}
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if r.Number == "" || r.Type == "" {
			return "", errors.New("number fact missing number or type")
		}
		return fmt.Sprintf("%s is %s", r.Number, r.Type), nil

	case KindSummary:
		var r struct {
			Title   string `json:"title"`
			Extract string `json:"extract"`
		}
		if err := json.Unmarshal(body, &r); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		return r.Extract, nil

	default:
		return "", fmt.Errorf("unknown response kind %q", kind)
	}
}
