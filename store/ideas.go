package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"article_canvas/generator"
)

// AddIdea saves a captured idea. An empty ArticleID leaves it unlinked.
func (s *Store) AddIdea(ctx context.Context, idea generator.Idea) (generator.Idea, error) {
	idea.Content = strings.TrimSpace(idea.Content)
	if idea.Content == "" {
		return generator.Idea{}, fmt.Errorf("idea content is empty")
	}
	if idea.ID == "" {
		idea.ID = uuid.NewString()
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ideas (id, content, article_id, created_at) VALUES (?, ?, ?, ?)`,
		idea.ID, idea.Content, nullString(idea.ArticleID), millis(idea.CreatedAt))
	if err != nil {
		return generator.Idea{}, fmt.Errorf("adding idea: %w", err)
	}
	return idea, nil
}

// ListIdeas returns ideas newest first.
func (s *Store) ListIdeas(ctx context.Context) ([]generator.Idea, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, article_id, created_at FROM ideas ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing ideas: %w", err)
	}
	defer rows.Close()

	ideas := []generator.Idea{}
	for rows.Next() {
		var (
			idea      generator.Idea
			articleID sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&idea.ID, &idea.Content, &articleID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning idea: %w", err)
		}
		idea.ArticleID = articleID.String
		idea.CreatedAt = fromMillis(createdAt)
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

func (s *Store) DeleteIdea(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ideas WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting idea: %w", err)
	}
	return affected(res, "idea "+id)
}
