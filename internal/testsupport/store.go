package testsupport

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/thinkscotty/blogzin/internal/database"
	"github.com/thinkscotty/blogzin/internal/database/sqlite"
	"github.com/thinkscotty/blogzin/internal/models"
)

// MustOpenStore opens a sqlite store in a temp dir and registers cleanup.
func MustOpenStore(t testing.TB, opts database.Options) *sqlite.DB {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "blogzin.db"), opts)
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustInsertPost inserts a post built from the given fact and category.
func MustInsertPost(t testing.TB, store database.Store, fact, category string) models.Post {
	t.Helper()

	post, err := store.InsertPost(context.Background(), models.NewPost{
		Title:        "Título: " + fact,
		Content:      "Conteúdo sobre " + fact,
		OriginalText: fact,
		Source:       "uselessfacts",
		Category:     category,
	})
	if err != nil {
		t.Fatalf("store.InsertPost: %v", err)
	}
	return post
}

// Clock returns a clock that starts at start and advances by step on every call.
func Clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}
