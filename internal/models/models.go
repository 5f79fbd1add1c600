// Package models holds the records shared by the store, pipeline and server.
package models

import "time"

type Post struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	OriginalText string    `json:"original_text"`
	Source       string    `json:"source"`
	Category     *string   `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryName returns the category or "" for older posts without one.
func (p Post) CategoryName() string {
	if p.Category == nil {
		return ""
	}
	return *p.Category
}

// NewPost holds the fields the pipeline supplies on insert. ID and CreatedAt
// are assigned by the store.
type NewPost struct {
	Title        string
	Content      string
	OriginalText string
	Source       string
	Category     string
}

// Generation outcomes recorded in the generation log.
const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)

type GenerationLog struct {
	ID           string    `json:"id"`
	SourceID     string    `json:"source_id"`
	AIProvider   string    `json:"ai_provider"`
	AIModel      string    `json:"ai_model"`
	TokensUsed   int       `json:"tokens_used"`
	Outcome      string    `json:"outcome"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	PostID       string    `json:"post_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Posts    int    `json:"posts"`
}

type Stats struct {
	TotalPosts           int             `json:"total_posts"`
	Categories           []CategoryCount `json:"categories"`
	GenerationAttempts   int             `json:"generation_attempts"`
	GenerationsCreated   int             `json:"generations_created"`
	GenerationDuplicates int             `json:"generation_duplicates"`
	GenerationsFailed    int             `json:"generations_failed"`
	TotalTokensUsed      int             `json:"total_tokens_used"`
}
