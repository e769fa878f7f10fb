// Package topics suggests article ideas: trending news headlines refined by
// a model, mixed with broader brainstormed themes.
package topics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strings"

	"article_canvas/generator"
)

// Topic is one suggested idea.
type Topic struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

const (
	newsSelection  = 8
	newsInMix      = 6
	brainstormMix  = 4
	mixLimit       = 10
	defaultsLimit  = 8
	brainstormName = "Brainstorm"
)

// Service gathers topics. Models are tried in order until one answers.
type Service struct {
	feeds   []Feed
	models  []generator.LLMClient
	client  *http.Client
	shuffle func(n int, swap func(i, j int))
	verbose bool
	logger  *log.Logger
}

type Option func(*Service)

func WithFeeds(feeds []Feed) Option {
	return func(s *Service) { s.feeds = feeds }
}

// WithModels sets the models used to refine and brainstorm, in preference order.
func WithModels(models ...generator.LLMClient) Option {
	return func(s *Service) { s.models = models }
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithShuffle replaces the random shuffle, for deterministic output.
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(s *Service) { s.shuffle = fn }
}

func WithLogger(logger *log.Logger, verbose bool) Option {
	return func(s *Service) {
		s.logger = logger
		s.verbose = verbose
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		feeds:   DefaultFeeds,
		client:  defaultHTTPClient(),
		shuffle: rand.Shuffle,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) infof(format string, args ...interface{}) {
	if !s.verbose {
		return
	}
	s.logger.Printf("[INFO] "+format, args...)
}

// Mixed returns up to ten topics: refined headlines and brainstormed themes
// shuffled together. It never returns an empty list.
func (s *Service) Mixed(ctx context.Context) []Topic {
	news := s.shuffled(s.FetchNews(ctx))
	news = news[:min(len(news), newsSelection)]

	refined := news
	if len(news) > 0 {
		if r, err := s.Refine(ctx, news); err != nil {
			s.infof("topic refinement unavailable, using original titles: %v", err)
		} else {
			refined = r
		}
	}

	ideas, err := s.Brainstorm(ctx)
	if err != nil || len(ideas) == 0 {
		s.infof("brainstorm unavailable, using fallback topics: %v", err)
		ideas = s.shuffled(BroadTopics())
	}

	mixed := append([]Topic{}, refined[:min(len(refined), newsInMix)]...)
	mixed = append(mixed, ideas[:min(len(ideas), brainstormMix)]...)
	mixed = s.shuffled(mixed)
	if len(mixed) == 0 {
		return s.Defaults()
	}
	return mixed[:min(len(mixed), mixLimit)]
}

// Defaults is a shuffled selection of broad themes.
func (s *Service) Defaults() []Topic {
	all := s.shuffled(BroadTopics())
	return all[:min(len(all), defaultsLimit)]
}

func (s *Service) shuffled(in []Topic) []Topic {
	out := append([]Topic(nil), in...)
	s.shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

type topicList struct {
	Topics []topicEntry `json:"topics"`
}

type topicEntry struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

var topicSchema = generator.ResponseSchema{
	Name:   "topics",
	Schema: generator.GenerateSchema[topicList](),
}

// Refine asks a model to turn headlines into broader article topics. Links
// and sources carry over by position.
func (s *Service) Refine(ctx context.Context, news []Topic) ([]Topic, error) {
	var lines []string
	for i, n := range news {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, n.Title))
	}
	prompt := generator.Prompt{
		System:    "You refine news headlines into compelling article topics. For each headline, create a broader, more engaging article topic title and a brief 1-sentence summary describing the angle. Respond in JSON only.",
		User:      "Refine these headlines into article topics:\n" + strings.Join(lines, "\n"),
		MaxTokens: 1000,
		Schema:    &topicSchema,
	}
	entries, err := s.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}

	out := make([]Topic, 0, len(entries))
	for i, e := range entries {
		t := Topic{Title: e.Title, Summary: e.Summary, Link: "#", Source: "News"}
		if i < len(news) {
			t.Link, t.Source = news[i].Link, news[i].Source
			if strings.TrimSpace(t.Title) == "" {
				t.Title = news[i].Title
			}
		}
		out = append(out, t)
	}
	return out, nil
}

// Brainstorm asks a model for broad article themes not tied to the news.
func (s *Service) Brainstorm(ctx context.Context) ([]Topic, error) {
	prompt := generator.Prompt{
		System:    "Generate diverse, thought-provoking article topic ideas. Mix business, technology, society, economics, and culture themes. Topics should be broad enough to explore from multiple angles, relevant to current trends but not tied to specific daily news. Respond in JSON only.",
		User:      "Generate 6 unique article topic ideas with brief summaries.",
		MaxTokens: 800,
		Schema:    &topicSchema,
	}
	entries, err := s.ask(ctx, prompt)
	if err != nil {
		return nil, err
	}
	out := make([]Topic, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		out = append(out, Topic{Title: e.Title, Summary: e.Summary, Link: "#", Source: brainstormName})
	}
	return out, nil
}

var errNoModel = errors.New("no topic model configured")

// ask tries each model in turn and returns the first decodable answer.
func (s *Service) ask(ctx context.Context, prompt generator.Prompt) ([]topicEntry, error) {
	var errs []error
	for _, m := range s.models {
		raw, err := m.Complete(ctx, prompt)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries, err := decodeTopics(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return entries, nil
	}
	if len(errs) == 0 {
		return nil, errNoModel
	}
	return nil, errors.Join(errs...)
}

// decodeTopics accepts {"topics":[...]} or a bare array, possibly wrapped
// in other text such as a reasoning preamble.
func decodeTopics(raw string) ([]topicEntry, error) {
	raw = strings.TrimSpace(raw)
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		var list topicList
		if err := json.Unmarshal([]byte(raw[i:j+1]), &list); err == nil && len(list.Topics) > 0 {
			return list.Topics, nil
		}
	}
	if i, j := strings.Index(raw, "["), strings.LastIndex(raw, "]"); i >= 0 && j > i {
		var entries []topicEntry
		if err := json.Unmarshal([]byte(raw[i:j+1]), &entries); err == nil && len(entries) > 0 {
			return entries, nil
		}
	}
	return nil, fmt.Errorf("could not decode topics from model reply")
}

var headlinePrefix = regexp.MustCompile(`(?i)^(breaking|update):`)

// CleanHeadline turns a news headline into a topic line.
func CleanHeadline(title string) string {
	return strings.TrimSpace(headlinePrefix.ReplaceAllString(title, ""))
}

// BroadTopics are evergreen themes used when no model or feed is available.
func BroadTopics() []Topic {
	themes := [][2]string{
		{"The Future of Remote Work and Its Economic Impact", "How flexible work arrangements are reshaping real estate, cities, and productivity"},
		{"Generational Wealth Transfer and Investment Patterns", "How millennials and Gen Z are approaching money differently"},
		{"The Rise of the Creator Economy", "How individual creators are building businesses and challenging traditional media"},
		{"Climate Change and Business Adaptation Strategies", "How companies are preparing for and profiting from climate shifts"},
		{"The Changing Nature of Consumer Loyalty", "Why brand switching is accelerating and what it means for businesses"},
		{"Healthcare Innovation and Accessibility", "The tension between cutting-edge medicine and equitable access"},
		{"The Reshoring Movement in Manufacturing", "Why companies are bringing production back and what it means for jobs"},
		{"Privacy vs Personalization in the Digital Age", "The tradeoffs consumers make between convenience and data protection"},
		{"The Evolution of Higher Education's Value Proposition", "Is college still worth it? Alternative paths to career success"},
		{"Small Business Resilience in Uncertain Times", "Strategies that help local businesses thrive amid economic volatility"},
		{"The Psychology of Financial Decision-Making", "How emotions and biases shape our money choices"},
		{"Automation's Impact on Middle-Skill Jobs", "Which careers are at risk and how workers can adapt"},
	}
	out := make([]Topic, len(themes))
	for i, t := range themes {
		out[i] = Topic{Title: t[0], Summary: t[1], Link: "#", Source: brainstormName}
	}
	return out
}
