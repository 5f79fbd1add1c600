// Package scheduler runs the generation pipeline on a fixed interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/thinkscotty/blogzin/internal/models"
)

// ErrBusy is returned by RunNow while another generation is in progress.
var ErrBusy = errors.New("a generation is already running")

type Generator interface {
	Generate(ctx context.Context, sourceID string) (models.Post, error)
}

// Scheduler generates one post per tick. Runs never overlap: a tick that
// fires while the previous run is still going is skipped.
type Scheduler struct {
	gen      Generator
	interval time.Duration
	sourceID string
	mu       sync.Mutex
}

func New(gen Generator, interval time.Duration, sourceID string) *Scheduler {
	return &Scheduler{gen: gen, interval: interval, sourceID: sourceID}
}

// Enabled reports whether Run will do anything.
func (s *Scheduler) Enabled() bool { return s.interval > 0 }

// Run starts the scheduler loop and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.Enabled() {
		slog.Info("Scheduler disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", s.interval, "source", s.sourceID)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			_, err := s.RunNow(ctx)
			switch {
			case errors.Is(err, ErrBusy):
				slog.Debug("Generation already running, skipping tick")
			case err != nil:
				slog.Debug("Scheduled generation did not create a post", "error", err)
			}
		}
	}
}

// RunNow generates a single post immediately unless a run is in progress.
func (s *Scheduler) RunNow(ctx context.Context) (post models.Post, err error) {
	if !s.mu.TryLock() {
		return models.Post{}, ErrBusy
	}
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in scheduled generation", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.gen.Generate(ctx, s.sourceID)
}
