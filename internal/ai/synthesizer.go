package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/thinkscotty/blogzin/internal/apperr"
)

// Post is the structured payload the model must return.
type Post struct {
	Title    string
	Content  string
	Category string
}

// Synthesis is a parsed post plus the usage data for the generation log.
type Synthesis struct {
	Post
	Provider   string
	Model      string
	TokensUsed int
}

// SynthesisError reports a failed synthesis. Kind is one of
// apperr.ErrSynthesisUpstream, apperr.ErrSynthesisParse or
// apperr.ErrSynthesisValidation.
type SynthesisError struct {
	Kind     error
	Provider string
	Missing  []string // validation failures only
	Err      error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("%v from %s: %v", e.Kind, e.Provider, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func (e *SynthesisError) Is(target error) bool { return target == e.Kind }

// Options tune the request sent for every post.
type Options struct {
	Locale      string
	Temperature float64
	MaxTokens   int
}

// Synthesizer turns raw facts into posts through a Provider.
type Synthesizer struct {
	provider Provider
	opts     Options
}

func NewSynthesizer(p Provider, opts Options) *Synthesizer {
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.9
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1024
	}
	return &Synthesizer{provider: p, opts: opts}
}

// ProviderName returns the backing provider's name.
func (s *Synthesizer) ProviderName() string { return s.provider.Name() }

// Synthesize sends the fact to the model and parses the reply.
// Usage fields are filled in even when parsing fails.
func (s *Synthesizer) Synthesize(ctx context.Context, fact string) (Synthesis, error) {
	out := Synthesis{Provider: s.provider.Name()}

	resp, err := s.provider.Chat(ctx, ChatRequest{
		Messages:    []Message{{Role: "user", Content: BuildPostPrompt(fact, s.opts.Locale)}},
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return out, &SynthesisError{Kind: apperr.ErrSynthesisUpstream, Provider: out.Provider, Err: err}
	}
	out.Model = resp.Model
	out.TokensUsed = resp.TokensUsed

	if strings.TrimSpace(resp.Content) == "" {
		return out, &SynthesisError{Kind: apperr.ErrSynthesisUpstream, Provider: out.Provider, Err: errors.New("empty completion")}
	}

	post, err := ParsePost(resp.Content)
	if err != nil {
		var se *SynthesisError
		if errors.As(err, &se) {
			se.Provider = out.Provider
		}
		return out, err
	}
	out.Post = post
	return out, nil
}

var requiredKeys = []string{"title", "content", "category"}

// ParsePost parses a model reply into a Post. Surrounding code fences are
// stripped; the rest must be exactly one JSON object. Values are returned
// as-is, but blank values count as missing.
func ParsePost(raw string) (Post, error) {
	cleaned := stripFence(raw)

	dec := json.NewDecoder(strings.NewReader(cleaned))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return Post{}, &SynthesisError{Kind: apperr.ErrSynthesisParse, Err: fmt.Errorf("decode post json: %w", err)}
	}
	if fields == nil {
		return Post{}, &SynthesisError{Kind: apperr.ErrSynthesisParse, Err: errors.New("post json is not an object")}
	}
	if _, err := dec.Token(); err != io.EOF {
		return Post{}, &SynthesisError{Kind: apperr.ErrSynthesisParse, Err: errors.New("trailing data after post json")}
	}

	values := make(map[string]string, len(requiredKeys))
	var missing []string
	for _, key := range requiredKeys {
		raw, ok := fields[key]
		var v string
		if !ok || json.Unmarshal(raw, &v) != nil || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
			continue
		}
		values[key] = v
	}
	if len(missing) > 0 {
		return Post{}, &SynthesisError{
			Kind:    apperr.ErrSynthesisValidation,
			Missing: missing,
			Err:     fmt.Errorf("missing or blank keys: %s", strings.Join(missing, ", ")),
		}
	}

	return Post{
		Title:    values["title"],
		Content:  values["content"],
		Category: values["category"],
	}, nil
}

// stripFence removes one surrounding markdown fence. The opening line may
// carry any info string (```json, ```JSON); a fence opened
// on the same line as the payload is removed on its own.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	body, ok := strings.CutPrefix(s, "```")
	if !ok {
		return s
	}
	if info, rest, found := strings.Cut(body, "\n"); found && isInfoString(info) {
		body = rest
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func isInfoString(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '+' {
			return false
		}
	}
	return true
}
