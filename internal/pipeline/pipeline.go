// Package pipeline turns one fetched fact into one stored post.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/thinkscotty/blogzin/internal/ai"
	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/facts"
	"github.com/thinkscotty/blogzin/internal/models"
)

type FactFetcher interface {
	Fetch(ctx context.Context, sourceID string) (facts.Fact, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, fact string) (ai.Synthesis, error)
}

// PostStore is the slice of the repository the pipeline writes to.
type PostStore interface {
	InsertPost(ctx context.Context, p models.NewPost) (models.Post, error)
	LogGeneration(ctx context.Context, entry models.GenerationLog) error
}

type Pipeline struct {
	facts FactFetcher
	synth Synthesizer
	store PostStore
	now   func() time.Time
}

func New(f FactFetcher, s Synthesizer, store PostStore) *Pipeline {
	return &Pipeline{facts: f, synth: s, store: store, now: time.Now}
}

// Generate runs fetch, synthesize, validate and persist in order. Only the
// last stage writes; a failure before it leaves no post behind. Nothing is
// retried. Errors carry an apperr kind.
func (p *Pipeline) Generate(ctx context.Context, sourceID string) (models.Post, error) {
	start := p.now()
	entry := models.GenerationLog{SourceID: sourceID}

	post, err := p.run(ctx, sourceID, &entry)

	entry.DurationMs = p.now().Sub(start).Milliseconds()
	switch {
	case err == nil:
		entry.Outcome = models.OutcomeCreated
		entry.PostID = post.ID
		slog.Info("Generated post", "post", post.ID, "source", entry.SourceID,
			"category", post.CategoryName(), "tokens", entry.TokensUsed, "duration_ms", entry.DurationMs)
	case errors.Is(err, apperr.ErrDuplicateFact):
		entry.Outcome = models.OutcomeDuplicate
		slog.Warn("Fact already processed", "source", entry.SourceID, "error", err)
	default:
		entry.Outcome = models.OutcomeFailed
		slog.Error("Failed to generate post", "source", entry.SourceID, "kind", apperr.Kind(err), "error", err)
	}
	if err != nil {
		entry.ErrorKind = apperr.Kind(err)
		entry.ErrorMessage = err.Error()
	}

	// Record the run even when the request context is already cancelled.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if lerr := p.store.LogGeneration(logCtx, entry); lerr != nil {
		slog.Error("Failed to record generation", "error", lerr)
	}

	return post, err
}

func (p *Pipeline) run(ctx context.Context, sourceID string, entry *models.GenerationLog) (models.Post, error) {
	fact, err := p.facts.Fetch(ctx, sourceID)
	if err != nil {
		var fe *facts.FetchError
		if errors.As(err, &fe) && fe.SourceID != "" {
			entry.SourceID = fe.SourceID
		}
		return models.Post{}, err
	}
	entry.SourceID = fact.SourceID
	slog.Debug("Fetched fact", "source", fact.SourceID, "chars", len(fact.Text))

	syn, err := p.synth.Synthesize(ctx, fact.Text)
	entry.AIProvider = syn.Provider
	entry.AIModel = syn.Model
	entry.TokensUsed = syn.TokensUsed
	if err != nil {
		return models.Post{}, err
	}

	if missing := missingFields(syn.Post); len(missing) > 0 {
		return models.Post{}, apperr.Wrap(apperr.ErrSynthesisValidation,
			"blank fields: "+strings.Join(missing, ", "), nil)
	}

	return p.store.InsertPost(ctx, models.NewPost{
		Title:        syn.Title,
		Content:      syn.Content,
		OriginalText: fact.Text,
		Source:       fact.SourceID,
		Category:     syn.Category,
	})
}

func missingFields(post ai.Post) []string {
	var missing []string
	if strings.TrimSpace(post.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(post.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(post.Category) == "" {
		missing = append(missing, "category")
	}
	return missing
}
