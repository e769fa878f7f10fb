package generator

import (
	"time"

	"article_canvas/planning"
)

// DefaultTitle is given to articles created before a topic is chosen.
const DefaultTitle = "New Topic Idea"

// TopicPrefix starts the user turn sent when a suggested topic is picked.
const TopicPrefix = "Help me write an article about:"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

type AnnotationType string

const (
	AnnotationGood            AnnotationType = "good"
	AnnotationNeedsWork       AnnotationType = "needs-work"
	AnnotationNeedsReplanning AnnotationType = "needs-replanning"
	AnnotationSummary         AnnotationType = "summary"
)

// Annotation marks a span of the article text with editorial feedback.
type Annotation struct {
	ID      string         `json:"id"`
	Type    AnnotationType `json:"type"`
	Text    string         `json:"text"`
	Summary string         `json:"summary,omitempty"`
	From    int            `json:"from"`
	To      int            `json:"to"`
}

// Article is a document being planned and written. Content is HTML.
type Article struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Content      string                 `json:"content"`
	Excerpt      string                 `json:"excerpt"`
	Status       Status                 `json:"status"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
	Tags         []string               `json:"tags"`
	PublishedURL string                 `json:"published_url,omitempty"`
	Outline      []planning.OutlineItem `json:"outline,omitempty"`
	Annotations  []Annotation           `json:"annotations,omitempty"`
}

// HasContent reports whether the article has left the planning stage:
// it carries visible text and no longer has the placeholder title.
func (a Article) HasContent() bool {
	return a.Title != DefaultTitle && HTMLToText(a.Content) != ""
}

// Idea is a saved brainstorm result.
type Idea struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	ArticleID string    `json:"article_id,omitempty"`
}
