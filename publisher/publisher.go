// Package publisher commits finished articles as Markdown posts to a GitHub
// repository through the contents API.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 60 * time.Second

	// requestRate keeps well under the authenticated 5000 requests an hour.
	requestRate = 1.2
)

var (
	ErrMissingConfig = errors.New("GitHub token and repo are required")
	ErrInvalidRepo   = errors.New("invalid repo format, use owner/repo-name")
)

// Config holds the GitHub destination.
type Config struct {
	Token  string
	Repo   string // owner/name
	Branch string
	// BaseURL overrides the API root, for GitHub Enterprise.
	BaseURL string
}

// PublishParams describes the article to publish.
type PublishParams struct {
	Title string
	// Content is the article html.
	Content string
	Tags    []string
	Date    time.Time
	// Message is the commit message; empty means "Add article: <title>".
	Message string
}

// Result is where the post ended up.
type Result struct {
	Path    string
	URL     string
	Created bool
}

// Publisher orchestrates conversion and upload to GitHub.
type Publisher struct {
	gh      *github.Client
	owner   string
	repo    string
	branch  string
	limiter *rate.Limiter
	verbose bool
	logger  *log.Logger
}

// New validates cfg and builds an authenticated client. An http.Client
// stored in ctx under oauth2.HTTPClient is used as the base transport.
func New(ctx context.Context, cfg Config, verbose bool, logger *log.Logger) (*Publisher, error) {
	if cfg.Token == "" || cfg.Repo == "" {
		return nil, ErrMissingConfig
	}
	owner, repo, err := SplitRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}

	tc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	tc.Timeout = defaultTimeout
	client := github.NewClient(tc)
	if cfg.BaseURL != "" {
		base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid github base url: %w", err)
		}
		client.BaseURL = base
	}

	return &Publisher{
		gh:      client,
		owner:   owner,
		repo:    repo,
		branch:  cfg.Branch,
		limiter: rate.NewLimiter(rate.Limit(requestRate), 1),
		verbose: verbose,
		logger:  logger,
	}, nil
}

// SplitRepo parses "owner/name".
func SplitRepo(full string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(full), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", ErrInvalidRepo
	}
	return owner, repo, nil
}

func (p *Publisher) infof(format string, args ...interface{}) {
	if !p.verbose {
		return
	}
	p.logger.Printf("[INFO] "+format, args...)
}

// Publish converts the article to Markdown and creates or updates its post.
func (p *Publisher) Publish(ctx context.Context, params PublishParams) (Result, error) {
	if strings.TrimSpace(params.Title) == "" {
		return Result{}, errors.New("article title is required")
	}
	date := params.Date
	if date.IsZero() {
		date = time.Now()
	}
	path := PostPath(params.Title, date)

	md, err := PostMarkdown(params.Title, params.Content, params.Tags, date)
	if err != nil {
		return Result{}, err
	}
	p.infof("Converted %q to Markdown (%d bytes)", params.Title, len(md))

	sha, err := p.existingSHA(ctx, path)
	if err != nil {
		return Result{}, err
	}

	msg := params.Message
	if msg == "" {
		msg = "Add article: " + params.Title
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(msg),
		Content: []byte(md),
	}
	if p.branch != "" {
		opts.Branch = github.Ptr(p.branch)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit wait: %w", err)
	}
	var res *github.RepositoryContentResponse
	if sha == "" {
		res, _, err = p.gh.Repositories.CreateFile(ctx, p.owner, p.repo, path, opts)
	} else {
		opts.SHA = github.Ptr(sha)
		res, _, err = p.gh.Repositories.UpdateFile(ctx, p.owner, p.repo, path, opts)
	}
	if err != nil {
		return Result{}, wrapError(err, "publish "+path)
	}

	out := Result{Path: path, Created: sha == ""}
	if res != nil && res.Content != nil {
		out.URL = res.Content.GetHTMLURL()
	}
	p.infof("Published %s -> %s", path, out.URL)
	return out, nil
}

// existingSHA returns the blob sha of path, or "" when it does not exist yet.
func (p *Publisher) existingSHA(ctx context.Context, path string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	var opts *github.RepositoryContentGetOptions
	if p.branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: p.branch}
	}
	file, _, resp, err := p.gh.Repositories.GetContents(ctx, p.owner, p.repo, path, opts)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", wrapError(err, "look up "+path)
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory", path)
	}
	return file.GetSHA(), nil
}

// wrapError surfaces the API's own message when there is one.
func wrapError(err error, op string) error {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Message != "" {
		return fmt.Errorf("%s: %s: %w", op, ghErr.Message, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
