package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"article_canvas/generator"
	"article_canvas/planning"
)

var _ generator.ArticleStore = (*Store)(nil)

// AppendTurn adds a turn to the end of an article's planning transcript.
// The animation flag is display state and is not stored.
func (s *Store) AppendTurn(ctx context.Context, articleID string, turn planning.Turn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}
	choices, err := encodeJSON(turn.Choices)
	if err != nil {
		return fmt.Errorf("encoding choices: %w", err)
	}
	steps, err := encodeJSON(turn.ThinkingSteps)
	if err != nil {
		return fmt.Errorf("encoding thinking steps: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chat_turns (id, article_id, role, content, choices, thinking_steps, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, turn.ID, articleID, string(turn.Role), turn.Content, choices, steps, millis(turn.CreatedAt))
	if err != nil {
		return fmt.Errorf("appending turn: %w", err)
	}
	return nil
}

// Transcript returns an article's turns in the order they were appended.
func (s *Store) Transcript(ctx context.Context, articleID string) (planning.Transcript, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, choices, thinking_steps, created_at
		FROM chat_turns WHERE article_id = ? ORDER BY seq
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	tr := planning.Transcript{}
	for rows.Next() {
		var (
			t              planning.Turn
			role           string
			choices, steps string
			createdAt      int64
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &choices, &steps, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		t.Role = planning.Role(role)
		t.CreatedAt = fromMillis(createdAt)
		if t.Choices, err = decodeJSON[planning.Choice](choices); err != nil {
			return nil, fmt.Errorf("decoding choices: %w", err)
		}
		if t.ThinkingSteps, err = decodeJSON[string](steps); err != nil {
			return nil, fmt.Errorf("decoding thinking steps: %w", err)
		}
		tr = append(tr, t)
	}
	return tr, rows.Err()
}

// ClearTranscript drops every turn for the article.
func (s *Store) ClearTranscript(ctx context.Context, articleID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_turns WHERE article_id = ?`, articleID); err != nil {
		return fmt.Errorf("clearing transcript: %w", err)
	}
	return nil
}
