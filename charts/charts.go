// Package charts builds the small data charts attached to articles.
package charts

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeLine     Type = "line"
	TypeBar      Type = "bar"
	TypePie      Type = "pie"
	TypeDoughnut Type = "doughnut"
)

// Valid reports whether t is a chart type the renderer knows.
func (t Type) Valid() bool {
	switch t {
	case TypeLine, TypeBar, TypePie, TypeDoughnut:
		return true
	}
	return false
}

const (
	DefaultTitle        = "Untitled Chart"
	DefaultDatasetLabel = "Data"

	lineFill    = "rgba(14, 165, 233, 0.2)"
	borderColor = "rgba(14, 165, 233, 1)"
)

// palette colours bars and slices in order.
var palette = []string{
	"rgba(14, 165, 233, 0.7)",
	"rgba(168, 85, 247, 0.7)",
	"rgba(34, 197, 94, 0.7)",
	"rgba(249, 115, 22, 0.7)",
	"rgba(239, 68, 68, 0.7)",
	"rgba(236, 72, 153, 0.7)",
}

var (
	ErrUnknownType = errors.New("unknown chart type")
	ErrNoLabels    = errors.New("chart needs at least one label")
	ErrNoData      = errors.New("chart needs at least one value")
	ErrNotANumber  = errors.New("is not a number")
)

type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor []string  `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
}

type Chart struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Type      Type      `json:"type"`
	Labels    []string  `json:"labels"`
	Datasets  []Dataset `json:"datasets"`
	ArticleID string    `json:"article_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Form is the raw chart input: comma separated labels and values.
type Form struct {
	Title        string `json:"title"`
	Type         string `json:"type"`
	DatasetLabel string `json:"dataset_label"`
	Labels       string `json:"labels"`
	Data         string `json:"data"`
	ArticleID    string `json:"article_id,omitempty"`
}

// NewChart validates f and builds a single-dataset chart from it.
func NewChart(f Form) (Chart, error) {
	typ := Type(strings.ToLower(strings.TrimSpace(f.Type)))
	if typ == "" {
		typ = TypeBar
	}
	if !typ.Valid() {
		return Chart{}, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}

	labels := splitList(f.Labels)
	if len(labels) == 0 {
		return Chart{}, ErrNoLabels
	}
	raw := splitList(f.Data)
	if len(raw) == 0 {
		return Chart{}, ErrNoData
	}
	data := make([]float64, 0, len(raw))
	for _, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Chart{}, fmt.Errorf("value %q %w", s, ErrNotANumber)
		}
		data = append(data, v)
	}

	title := strings.TrimSpace(f.Title)
	if title == "" {
		title = DefaultTitle
	}
	label := strings.TrimSpace(f.DatasetLabel)
	if label == "" {
		label = DefaultDatasetLabel
	}

	ds := Dataset{Label: label, Data: data, BorderColor: borderColor}
	if typ == TypeLine {
		ds.BackgroundColor = []string{lineFill}
	} else {
		ds.BackgroundColor = append([]string(nil), palette...)
	}

	return Chart{
		ID:        uuid.NewString(),
		Title:     title,
		Type:      typ,
		Labels:    labels,
		Datasets:  []Dataset{ds},
		ArticleID: strings.TrimSpace(f.ArticleID),
		CreatedAt: time.Now(),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var whitespace = regexp.MustCompile(`\s+`)

// Slug is the download file name stem for a chart title.
func Slug(title string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
}

// Placeholder is the html block inserted into an article where a chart of
// type t will go.
func Placeholder(t Type) string {
	name := string(t)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf(`<div class="chart-placeholder" data-chart-type="%s">
  <p>📊 %s Chart</p>
  <p>Click to edit chart data in the Charts panel</p>
</div>`, html.EscapeString(string(t)), html.EscapeString(name))
}
