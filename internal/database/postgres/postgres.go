// Package postgres is the networked post store, backed by a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/database"
	"github.com/thinkscotty/blogzin/internal/models"
)

const uniqueViolation = "23505"

type DB struct {
	pool *pgxpool.Pool
	opts database.Options
}

var _ database.Store = (*DB)(nil)

// New connects to dsn and creates the schema if needed. maxConns <= 0 keeps
// the pgx default.
func New(ctx context.Context, dsn string, maxConns int, opts database.Options) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &DB{pool: pool, opts: opts.WithDefaults()}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS posts (
			seq           BIGINT GENERATED ALWAYS AS IDENTITY,
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL,
			content       TEXT NOT NULL,
			original_text TEXT NOT NULL,
			source        TEXT NOT NULL,
			category      TEXT,
			dedup_key     TEXT NOT NULL UNIQUE,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC, seq DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_posts_category ON posts(category)`,
		`CREATE TABLE IF NOT EXISTS generation_log (
			seq           BIGINT GENERATED ALWAYS AS IDENTITY,
			id            TEXT PRIMARY KEY,
			source_id     TEXT    NOT NULL DEFAULT '',
			ai_provider   TEXT    NOT NULL DEFAULT '',
			ai_model      TEXT    NOT NULL DEFAULT '',
			tokens_used   INTEGER NOT NULL DEFAULT 0,
			outcome       TEXT    NOT NULL,
			error_kind    TEXT    NOT NULL DEFAULT '',
			error_message TEXT    NOT NULL DEFAULT '',
			duration_ms   BIGINT  NOT NULL DEFAULT 0,
			post_id       TEXT,
			created_at    TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}

// now truncates to the microsecond precision of TIMESTAMPTZ.
func (db *DB) now() time.Time {
	return db.opts.Now().UTC().Truncate(time.Microsecond)
}

const postColumns = `id, title, content, original_text, source, category, created_at`

func (db *DB) InsertPost(ctx context.Context, p models.NewPost) (models.Post, error) {
	post := models.Post{
		ID:           uuid.NewString(),
		Title:        p.Title,
		Content:      p.Content,
		OriginalText: p.OriginalText,
		Source:       p.Source,
		Category:     database.NullString(p.Category),
		CreatedAt:    db.now(),
	}

	_, err := db.pool.Exec(ctx, `
		INSERT INTO posts (id, title, content, original_text, source, category, dedup_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		post.ID, post.Title, post.Content, post.OriginalText, post.Source, post.Category,
		database.DedupKey(p.OriginalText), post.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.Post{}, apperr.Wrap(apperr.ErrDuplicateFact, "insert post", err)
		}
		return models.Post{}, apperr.Wrap(apperr.ErrRepository, "insert post", err)
	}
	return post, nil
}

func (db *DB) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list posts", err)
	}
	return collectPosts(rows)
}

func (db *DB) ListPostsByCategory(ctx context.Context, category string) ([]models.Post, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE category = $1
		ORDER BY created_at DESC, seq DESC`, category)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list posts by category", err)
	}
	return collectPosts(rows)
}

func (db *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT DISTINCT category FROM posts
		WHERE category IS NOT NULL
		ORDER BY category`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list categories", err)
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list categories", err)
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (db *DB) GetPost(ctx context.Context, id string) (models.Post, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Post{}, apperr.Wrap(apperr.ErrNotFound, "get post "+id, nil)
	}
	if err != nil {
		return models.Post{}, apperr.Wrap(apperr.ErrRepository, "get post", err)
	}
	return p, nil
}

func (db *DB) RandomPostID(ctx context.Context) (string, error) {
	rows, err := db.pool.Query(ctx, `SELECT id FROM posts`)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrRepository, "list post ids", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return "", apperr.Wrap(apperr.ErrRepository, "list post ids", err)
	}
	return database.PickRandomID(ids, db.opts.IntN)
}

func scanPost(row pgx.Row) (models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.OriginalText, &p.Source, &p.Category, &p.CreatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	return p, err
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	posts, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.Post, error) {
		return scanPost(r)
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "scan posts", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// LogGeneration records one pipeline run.
func (db *DB) LogGeneration(ctx context.Context, entry models.GenerationLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = db.now()
	}
	_, err := db.pool.Exec(ctx, `
		INSERT INTO generation_log (id, source_id, ai_provider, ai_model, tokens_used, outcome,
		                            error_kind, error_message, duration_ms, post_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.SourceID, entry.AIProvider, entry.AIModel, entry.TokensUsed, entry.Outcome,
		entry.ErrorKind, entry.ErrorMessage, entry.DurationMs, database.NullString(entry.PostID),
		entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("log generation: %w", err)
	}
	return nil
}

// RecentGenerations returns the N most recent generation log entries.
func (db *DB) RecentGenerations(ctx context.Context, limit int) ([]models.GenerationLog, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, source_id, ai_provider, ai_model, tokens_used, outcome,
		       error_kind, error_message, duration_ms, COALESCE(post_id, ''), created_at
		FROM generation_log
		ORDER BY created_at DESC, seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent generations: %w", err)
	}
	logs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.GenerationLog, error) {
		var e models.GenerationLog
		err := r.Scan(&e.ID, &e.SourceID, &e.AIProvider, &e.AIModel, &e.TokensUsed, &e.Outcome,
			&e.ErrorKind, &e.ErrorMessage, &e.DurationMs, &e.PostID, &e.CreatedAt)
		e.CreatedAt = e.CreatedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan generations: %w", err)
	}
	return logs, nil
}

func (db *DB) Stats(ctx context.Context) (models.Stats, error) {
	var s models.Stats

	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&s.TotalPosts); err != nil {
		return s, fmt.Errorf("count posts: %w", err)
	}

	rows, err := db.pool.Query(ctx, `
		SELECT category, COUNT(*) FROM posts
		WHERE category IS NOT NULL
		GROUP BY category
		ORDER BY COUNT(*) DESC, category`)
	if err != nil {
		return s, fmt.Errorf("count categories: %w", err)
	}
	s.Categories, err = pgx.CollectRows(rows, func(r pgx.CollectableRow) (models.CategoryCount, error) {
		var cc models.CategoryCount
		err := r.Scan(&cc.Category, &cc.Posts)
		return cc, err
	})
	if err != nil {
		return s, fmt.Errorf("scan category counts: %w", err)
	}

	err = db.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE outcome = 'created'),
		       COUNT(*) FILTER (WHERE outcome = 'duplicate'),
		       COUNT(*) FILTER (WHERE outcome = 'failed'),
		       COALESCE(SUM(tokens_used), 0)
		FROM generation_log`).Scan(
		&s.GenerationAttempts, &s.GenerationsCreated, &s.GenerationDuplicates,
		&s.GenerationsFailed, &s.TotalTokensUsed)
	if err != nil {
		return s, fmt.Errorf("count generations: %w", err)
	}
	return s, nil
}
