package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"article_canvas/charts"
)

// SaveChart inserts or replaces a chart.
func (s *Store) SaveChart(ctx context.Context, c charts.Chart) error {
	labels, err := encodeJSON(c.Labels)
	if err != nil {
		return fmt.Errorf("encoding labels: %w", err)
	}
	datasets, err := json.Marshal(c.Datasets)
	if err != nil {
		return fmt.Errorf("encoding datasets: %w", err)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO charts (id, article_id, title, type, labels, datasets, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			article_id = excluded.article_id,
			title = excluded.title,
			type = excluded.type,
			labels = excluded.labels,
			datasets = excluded.datasets
	`, c.ID, nullString(c.ArticleID), c.Title, string(c.Type), labels, string(datasets), millis(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("saving chart: %w", err)
	}
	return nil
}

const chartColumns = `id, article_id, title, type, labels, datasets, created_at`

// GetChart returns one chart by id.
func (s *Store) GetChart(ctx context.Context, id string) (charts.Chart, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chartColumns+` FROM charts WHERE id = ?`, id)
	c, err := scanChart(row)
	if errors.Is(err, sql.ErrNoRows) {
		return charts.Chart{}, fmt.Errorf("chart %s: %w", id, ErrNotFound)
	}
	return c, err
}

// ListCharts returns charts oldest first, limited to one article when
// articleID is set.
func (s *Store) ListCharts(ctx context.Context, articleID string) ([]charts.Chart, error) {
	query := `SELECT ` + chartColumns + ` FROM charts`
	var args []any
	if articleID != "" {
		query += ` WHERE article_id = ?`
		args = append(args, articleID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing charts: %w", err)
	}
	defer rows.Close()

	out := []charts.Chart{}
	for rows.Next() {
		c, err := scanChart(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanChart(row scanner) (charts.Chart, error) {
	var (
		c                     charts.Chart
		article               sql.NullString
		typ, labels, datasets string
		createdAt             int64
	)
	if err := row.Scan(&c.ID, &article, &c.Title, &typ, &labels, &datasets, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, err
		}
		return c, fmt.Errorf("scanning chart: %w", err)
	}
	c.ArticleID = article.String
	c.Type = charts.Type(typ)
	c.CreatedAt = fromMillis(createdAt)
	var err error
	if c.Labels, err = decodeJSON[string](labels); err != nil {
		return c, fmt.Errorf("decoding labels: %w", err)
	}
	if err := json.Unmarshal([]byte(datasets), &c.Datasets); err != nil {
		return c, fmt.Errorf("decoding datasets: %w", err)
	}
	return c, nil
}

func (s *Store) DeleteChart(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM charts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting chart: %w", err)
	}
	return affected(res, "chart "+id)
}
