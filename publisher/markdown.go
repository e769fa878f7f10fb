package publisher

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Title string   `yaml:"title"`
	Date  string   `yaml:"date"`
	Tags  []string `yaml:"tags,flow"`
}

// ConvertToMarkdown prefixes content with a Jekyll front matter block.
func ConvertToMarkdown(title, content string, tags []string, date time.Time) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(frontMatter{Title: title, Date: date.Format("2006-01-02"), Tags: tags}); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding front matter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(content)
	return buf.String(), nil
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases title and joins its alphanumeric runs with dashes.
func Slug(title string) string {
	s := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if s == "" {
		return "untitled"
	}
	return s
}

// PostPath is where a post lands in a Jekyll repo.
func PostPath(title string, date time.Time) string {
	return fmt.Sprintf("_posts/%s-%s.md", date.Format("2006-01-02"), Slug(title))
}

// HTMLToMarkdown converts the editor's html into CommonMark. Links,
// emphasis and nested lists keep their structure.
func HTMLToMarkdown(s string) (string, error) {
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	return strings.TrimSpace(md), nil
}

// PostMarkdown is a publishable post: front matter over the Markdown form
// of the html content.
func PostMarkdown(title, content string, tags []string, date time.Time) (string, error) {
	body, err := HTMLToMarkdown(content)
	if err != nil {
		return "", err
	}
	return ConvertToMarkdown(title, body, tags, date)
}
