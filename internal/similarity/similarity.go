// Package similarity scores posts against each other with character n-gram
// Jaccard similarity.
package similarity

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/thinkscotty/blogzin/internal/models"
)

type Checker struct {
	threshold float64
	ngramSize int
}

func New(threshold float64, ngramSize int) *Checker {
	if ngramSize <= 0 {
		ngramSize = 3
	}
	return &Checker{threshold: threshold, ngramSize: ngramSize}
}

// normalize lowercases, removes punctuation, and collapses whitespace.
func (c *Checker) normalize(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevSpace = false
		} else if !prevSpace {
			sb.WriteRune(' ')
			prevSpace = true
		}
	}
	return strings.TrimSpace(sb.String())
}

// Trigrams extracts all character n-grams from the text.
func (c *Checker) Trigrams(text string) map[string]struct{} {
	runes := []rune(c.normalize(text))
	set := make(map[string]struct{})
	for i := 0; i <= len(runes)-c.ngramSize; i++ {
		set[string(runes[i:i+c.ngramSize])] = struct{}{}
	}
	return set
}

// JaccardSimilarity computes |A intersection B| / |A union B|.
func (c *Checker) JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// Similarity compares two texts directly.
func (c *Checker) Similarity(a, b string) float64 {
	return c.JaccardSimilarity(c.Trigrams(a), c.Trigrams(b))
}

func postText(p models.Post) string {
	return p.Title + " " + p.Content
}

// Related picks up to limit posts related to target. Posts scoring at or
// above the threshold come first, best match first; remaining slots go to
// posts in the same category in the order given. target itself is skipped.
func (c *Checker) Related(target models.Post, candidates []models.Post, limit int) []models.Post {
	if limit <= 0 {
		return nil
	}

	type scored struct {
		post  models.Post
		score float64
	}

	targetSet := c.Trigrams(postText(target))
	var similar, sameCategory []scored
	for _, p := range candidates {
		if p.ID == target.ID {
			continue
		}
		s := scored{post: p, score: c.JaccardSimilarity(targetSet, c.Trigrams(postText(p)))}
		switch {
		case s.score >= c.threshold:
			similar = append(similar, s)
		case target.Category != nil && p.CategoryName() == *target.Category:
			sameCategory = append(sameCategory, s)
		}
	}

	slices.SortStableFunc(similar, func(a, b scored) int {
		return cmp.Compare(b.score, a.score)
	})

	out := make([]models.Post, 0, limit)
	for _, group := range [][]scored{similar, sameCategory} {
		for _, s := range group {
			if len(out) == limit {
				return out
			}
			out = append(out, s.post)
		}
	}
	return out
}
