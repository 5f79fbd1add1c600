// Package database defines the post repository contract shared by the
// sqlite and postgres backends.
package database

import (
	"context"
	"encoding/hex"
	"math/rand/v2"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/models"
)

// Store is the post repository. Posts are immutable once inserted.
type Store interface {
	InsertPost(ctx context.Context, p models.NewPost) (models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	ListPostsByCategory(ctx context.Context, category string) ([]models.Post, error)
	ListCategories(ctx context.Context) ([]string, error)
	GetPost(ctx context.Context, id string) (models.Post, error)
	RandomPostID(ctx context.Context) (string, error)

	LogGeneration(ctx context.Context, entry models.GenerationLog) error
	RecentGenerations(ctx context.Context, limit int) ([]models.GenerationLog, error)
	Stats(ctx context.Context) (models.Stats, error)

	Close() error
}

// Options lets tests pin the clock and the random source.
type Options struct {
	Now  func() time.Time
	IntN func(n int) int
}

// WithDefaults fills unset fields.
func (o Options) WithDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.IntN == nil {
		o.IntN = rand.IntN
	}
	return o
}

// TimeLayout is the fixed-width UTC text format used for stored timestamps.
// Fixed width keeps lexical order equal to chronological order.
const TimeLayout = "2006-01-02 15:04:05.000000000"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}

// DedupKey returns the uniqueness key for a fact: the hex BLAKE2b-256 digest
// of its NFC-normalized, case-folded text with whitespace runs collapsed.
func DedupKey(fact string) string {
	s := norm.NFC.String(fact)
	s = cases.Fold().String(s)
	s = strings.Join(strings.Fields(s), " ")
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// PickRandomID picks one id uniformly using intN.
func PickRandomID(ids []string, intN func(n int) int) (string, error) {
	if len(ids) == 0 {
		return "", apperr.ErrEmptyCollection
	}
	return ids[intN(len(ids))], nil
}

// NullString maps "" to a NULL column value.
func NullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
