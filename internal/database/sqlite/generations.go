package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/thinkscotty/blogzin/internal/database"
	"github.com/thinkscotty/blogzin/internal/models"
)

// LogGeneration records one pipeline run.
func (db *DB) LogGeneration(ctx context.Context, entry models.GenerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = db.opts.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO generation_log (id, source_id, ai_provider, ai_model, tokens_used, outcome,
		                            error_kind, error_message, duration_ms, post_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.SourceID, entry.AIProvider, entry.AIModel, entry.TokensUsed, entry.Outcome,
		entry.ErrorKind, entry.ErrorMessage, entry.DurationMs, database.NullString(entry.PostID),
		database.FormatTime(entry.CreatedAt))
	if err != nil {
		return fmt.Errorf("log generation: %w", err)
	}
	return nil
}

// RecentGenerations returns the N most recent generation log entries.
func (db *DB) RecentGenerations(ctx context.Context, limit int) ([]models.GenerationLog, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, source_id, ai_provider, ai_model, tokens_used, outcome,
		       error_kind, error_message, duration_ms, post_id, created_at
		FROM generation_log
		ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent generations: %w", err)
	}
	defer rows.Close()

	var logs []models.GenerationLog
	for rows.Next() {
		var entry models.GenerationLog
		var postID sql.NullString
		var createdAt string
		if err := rows.Scan(&entry.ID, &entry.SourceID, &entry.AIProvider, &entry.AIModel,
			&entry.TokensUsed, &entry.Outcome, &entry.ErrorKind, &entry.ErrorMessage,
			&entry.DurationMs, &postID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		entry.PostID = postID.String
		entry.CreatedAt, _ = database.ParseTime(createdAt)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (db *DB) Stats(ctx context.Context) (models.Stats, error) {
	var s models.Stats

	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&s.TotalPosts); err != nil {
		return s, fmt.Errorf("count posts: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM posts
		WHERE category IS NOT NULL
		GROUP BY category
		ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return s, fmt.Errorf("count categories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cc models.CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Posts); err != nil {
			return s, fmt.Errorf("scan category count: %w", err)
		}
		s.Categories = append(s.Categories, cc)
	}
	if err := rows.Err(); err != nil {
		return s, err
	}

	err = db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN outcome = 'created' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'duplicate' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(tokens_used), 0)
		FROM generation_log`).Scan(
		&s.GenerationAttempts, &s.GenerationsCreated, &s.GenerationDuplicates,
		&s.GenerationsFailed, &s.TotalTokensUsed)
	if err != nil {
		return s, fmt.Errorf("count generations: %w", err)
	}

	return s, nil
}
