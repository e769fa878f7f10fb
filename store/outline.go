package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"article_canvas/planning"
)

// Outline returns an article's outline items in order.
func (s *Store) Outline(ctx context.Context, articleID string) ([]planning.OutlineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, completed, sub_items
		FROM outline_items WHERE article_id = ? ORDER BY position
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("listing outline: %w", err)
	}
	defer rows.Close()

	var items []planning.OutlineItem
	for rows.Next() {
		var (
			it   planning.OutlineItem
			done int
			subs string
		)
		if err := rows.Scan(&it.ID, &it.Title, &it.Description, &done, &subs); err != nil {
			return nil, fmt.Errorf("scanning outline item: %w", err)
		}
		it.Completed = done != 0
		if it.SubItems, err = decodeJSON[planning.OutlineSubItem](subs); err != nil {
			return nil, fmt.Errorf("decoding sub items: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ReplaceOutline swaps the whole outline for items.
func (s *Store) ReplaceOutline(ctx context.Context, articleID string, items []planning.OutlineItem) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := articleExists(ctx, tx, articleID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM outline_items WHERE article_id = ?`, articleID); err != nil {
			return fmt.Errorf("clearing outline: %w", err)
		}
		return insertOutline(ctx, tx, articleID, 0, items)
	})
}

// AppendOutline adds items after the existing ones.
func (s *Store) AppendOutline(ctx context.Context, articleID string, items []planning.OutlineItem) error {
	if len(items) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := articleExists(ctx, tx, articleID); err != nil {
			return err
		}
		var next int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM outline_items WHERE article_id = ?`, articleID).Scan(&next)
		if err != nil {
			return fmt.Errorf("reading outline position: %w", err)
		}
		return insertOutline(ctx, tx, articleID, next, items)
	})
}

// ToggleOutlineItem flips an item's completed flag.
func (s *Store) ToggleOutlineItem(ctx context.Context, articleID, itemID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outline_items SET completed = 1 - completed
		WHERE article_id = ? AND id = ?
	`, articleID, itemID)
	if err != nil {
		return fmt.Errorf("toggling outline item: %w", err)
	}
	return affected(res, "outline item "+itemID)
}

// RenameOutlineItem sets an item's title and description.
func (s *Store) RenameOutlineItem(ctx context.Context, articleID, itemID, title, description string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outline_items SET title = ?, description = ?
		WHERE article_id = ? AND id = ?
	`, title, description, articleID, itemID)
	if err != nil {
		return fmt.Errorf("renaming outline item: %w", err)
	}
	return affected(res, "outline item "+itemID)
}

func (s *Store) DeleteOutlineItem(ctx context.Context, articleID, itemID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM outline_items WHERE article_id = ? AND id = ?`, articleID, itemID)
	if err != nil {
		return fmt.Errorf("deleting outline item: %w", err)
	}
	return affected(res, "outline item "+itemID)
}

func insertOutline(ctx context.Context, tx *sql.Tx, articleID string, start int, items []planning.OutlineItem) error {
	for i, it := range items {
		id, err := freeOutlineID(ctx, tx, articleID, it.ID)
		if err != nil {
			return err
		}
		it.ID = id
		subs, err := encodeJSON(it.SubItems)
		if err != nil {
			return fmt.Errorf("encoding sub items: %w", err)
		}
		done := 0
		if it.Completed {
			done = 1
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outline_items (id, article_id, position, title, description, completed, sub_items)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, it.ID, articleID, start+i, it.Title, it.Description, done, subs)
		if err != nil {
			return fmt.Errorf("inserting outline item: %w", err)
		}
	}
	return nil
}

// freeOutlineID returns id, or id with a random suffix when the article
// already has an item with that id. Replies parsed in the same millisecond
// produce the same ids.
func freeOutlineID(ctx context.Context, tx *sql.Tx, articleID, id string) (string, error) {
	if id == "" {
		return uuid.NewString(), nil
	}
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM outline_items WHERE article_id = ? AND id = ?`, articleID, id).Scan(&n)
	if err != nil {
		return "", fmt.Errorf("checking outline id: %w", err)
	}
	if n == 0 {
		return id, nil
	}
	return id + "-" + uuid.NewString()[:8], nil
}

func articleExists(ctx context.Context, tx *sql.Tx, articleID string) error {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles WHERE id = ?`, articleID).Scan(&n); err != nil {
		return fmt.Errorf("checking article: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("article %s: %w", articleID, ErrNotFound)
	}
	return nil
}
