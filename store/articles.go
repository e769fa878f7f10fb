package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"article_canvas/generator"
)

const articleColumns = `id, title, content, excerpt, status, tags, published_url, annotations, created_at, updated_at`

// CreateArticle inserts a, filling in the id, timestamps, status and
// placeholder title when they are unset.
func (s *Store) CreateArticle(ctx context.Context, a generator.Article) (generator.Article, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Title == "" {
		a.Title = generator.DefaultTitle
	}
	if a.Status == "" {
		a.Status = generator.StatusDraft
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now

	tags, annotations, err := encodeArticleLists(a)
	if err != nil {
		return generator.Article{}, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Title, a.Content, a.Excerpt, string(a.Status), tags, a.PublishedURL, annotations,
			millis(a.CreatedAt), millis(a.UpdatedAt))
		if err != nil {
			return err
		}
		return insertOutline(ctx, tx, a.ID, 0, a.Outline)
	})
	if err != nil {
		return generator.Article{}, fmt.Errorf("creating article: %w", err)
	}
	return s.GetArticle(ctx, a.ID)
}

// GetArticle loads one article with its outline.
func (s *Store) GetArticle(ctx context.Context, id string) (generator.Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return generator.Article{}, fmt.Errorf("article %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return generator.Article{}, fmt.Errorf("scanning article: %w", err)
	}
	a.Outline, err = s.Outline(ctx, id)
	if err != nil {
		return generator.Article{}, err
	}
	return a, nil
}

// ListArticles returns articles most recently updated first. An empty status
// lists every article. Outlines are not loaded.
func (s *Store) ListArticles(ctx context.Context, status generator.Status) ([]generator.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	articles := []generator.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// UpdateArticle writes every article field except the outline, which has
// its own operations.
func (s *Store) UpdateArticle(ctx context.Context, a generator.Article) error {
	tags, annotations, err := encodeArticleLists(a)
	if err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = generator.StatusDraft
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET
			title = ?, content = ?, excerpt = ?, status = ?, tags = ?,
			published_url = ?, annotations = ?, updated_at = ?
		WHERE id = ?
	`, a.Title, a.Content, a.Excerpt, string(a.Status), tags, a.PublishedURL, annotations,
		millis(s.now()), a.ID)
	if err != nil {
		return fmt.Errorf("updating article: %w", err)
	}
	return affected(res, "article "+a.ID)
}

// DeleteArticle removes the article along with its outline, transcript and
// charts. Ideas linked to it are kept and unlinked.
func (s *Store) DeleteArticle(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
	}
	return affected(res, "article "+id)
}

func scanArticle(row scanner) (generator.Article, error) {
	var (
		a                   generator.Article
		status              string
		tags, annotations   string
		createdAt, updateAt int64
	)
	if err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Excerpt, &status, &tags,
		&a.PublishedURL, &annotations, &createdAt, &updateAt); err != nil {
		return generator.Article{}, err
	}
	a.Status = generator.Status(status)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updateAt)

	var err error
	if a.Tags, err = decodeJSON[string](tags); err != nil {
		return generator.Article{}, fmt.Errorf("decoding tags: %w", err)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Annotations, err = decodeJSON[generator.Annotation](annotations); err != nil {
		return generator.Article{}, fmt.Errorf("decoding annotations: %w", err)
	}
	return a, nil
}

func encodeArticleLists(a generator.Article) (tags, annotations string, err error) {
	if tags, err = encodeJSON(a.Tags); err != nil {
		return "", "", fmt.Errorf("encoding tags: %w", err)
	}
	if annotations, err = encodeJSON(a.Annotations); err != nil {
		return "", "", fmt.Errorf("encoding annotations: %w", err)
	}
	return tags, annotations, nil
}
