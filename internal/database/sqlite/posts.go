package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/thinkscotty/blogzin/internal/apperr"
	"github.com/thinkscotty/blogzin/internal/database"
	"github.com/thinkscotty/blogzin/internal/models"
)

const postColumns = `id, title, content, original_text, source, category, created_at`

func (db *DB) InsertPost(ctx context.Context, p models.NewPost) (models.Post, error) {
	post := models.Post{
		ID:           uuid.NewString(),
		Title:        p.Title,
		Content:      p.Content,
		OriginalText: p.OriginalText,
		Source:       p.Source,
		Category:     database.NullString(p.Category),
		CreatedAt:    db.opts.Now().UTC().Round(0),
	}

	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO posts (id, title, content, original_text, source, category, dedup_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Title, post.Content, post.OriginalText, post.Source, post.Category,
		database.DedupKey(p.OriginalText), database.FormatTime(post.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return models.Post{}, apperr.Wrap(apperr.ErrDuplicateFact, "insert post", err)
		}
		return models.Post{}, apperr.Wrap(apperr.ErrRepository, "insert post", err)
	}
	return post, nil
}

func (db *DB) ListPosts(ctx context.Context) ([]models.Post, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list posts", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (db *DB) ListPostsByCategory(ctx context.Context, category string) ([]models.Post, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE category = ?
		ORDER BY created_at DESC, rowid DESC`, category)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list posts by category", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (db *DB) ListCategories(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT category FROM posts
		WHERE category IS NOT NULL
		ORDER BY category`)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list categories", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, apperr.Wrap(apperr.ErrRepository, "scan category", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "list categories", err)
	}
	return categories, nil
}

func (db *DB) GetPost(ctx context.Context, id string) (models.Post, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Post{}, apperr.Wrap(apperr.ErrNotFound, "get post "+id, nil)
	}
	if err != nil {
		return models.Post{}, apperr.Wrap(apperr.ErrRepository, "get post", err)
	}
	return p, nil
}

func (db *DB) RandomPostID(ctx context.Context) (string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM posts`)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrRepository, "list post ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", apperr.Wrap(apperr.ErrRepository, "scan post id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", apperr.Wrap(apperr.ErrRepository, "list post ids", err)
	}

	return database.PickRandomID(ids, db.opts.IntN)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (models.Post, error) {
	var p models.Post
	var category sql.NullString
	var createdAt string
	if err := s.Scan(&p.ID, &p.Title, &p.Content, &p.OriginalText, &p.Source, &category, &createdAt); err != nil {
		return p, err
	}
	if category.Valid {
		p.Category = &category.String
	}
	t, err := database.ParseTime(createdAt)
	if err != nil {
		return p, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	p.CreatedAt = t
	return p, nil
}

func scanPosts(rows *sql.Rows) ([]models.Post, error) {
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrRepository, "scan post", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.ErrRepository, "scan posts", err)
	}
	return posts, nil
}
