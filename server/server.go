// Package server exposes the article canvas over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"article_canvas/charts"
	"article_canvas/config"
	"article_canvas/generator"
	"article_canvas/publisher"
	"article_canvas/store"
	"article_canvas/topics"
)

const modelTimeout = 90 * time.Second

// Deps are the collaborators the server routes to.
type Deps struct {
	Store  *store.Store
	LLM    *generator.ClientHolder
	Topics *topics.Service
	GitHub config.GitHubConfig
	// HTTPClient is used for GitHub calls; nil means http.DefaultClient.
	HTTPClient *http.Client
	Logger     *log.Logger
	Verbose    bool
}

type Server struct {
	store    *store.Store
	llm      *generator.ClientHolder
	agent    *generator.Agent
	sessions *sessionStore
	client   *http.Client
	logger   *log.Logger
	verbose  bool

	mu     sync.RWMutex
	github config.GitHubConfig
	topics *topics.Service
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*generator.Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*generator.Session)}
}

func (s *sessionStore) lookup(articleID string) (*generator.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[articleID]
	return sess, ok
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// get returns the session for articleID, creating it on first use.
func (s *sessionStore) get(articleID string, create func() *generator.Session) *generator.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[articleID]
	if !ok {
		sess = create()
		s.sessions[articleID] = sess
	}
	return sess
}

func (s *sessionStore) drop(articleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, articleID)
}

func New(d Deps) (*Server, error) {
	if d.Store == nil {
		return nil, errors.New("store required")
	}
	if d.LLM == nil {
		return nil, errors.New("llm holder required")
	}
	agent, err := generator.NewAgent(d.LLM)
	if err != nil {
		return nil, err
	}
	if d.Topics == nil {
		d.Topics = topics.New(topics.WithModels(d.LLM))
	}
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	return &Server{
		store:    d.Store,
		llm:      d.LLM,
		agent:    agent,
		topics:   d.Topics,
		sessions: newSessionStore(),
		client:   d.HTTPClient,
		logger:   d.Logger,
		verbose:  d.Verbose,
		github:   d.GitHub,
	}, nil
}

// SetGitHub replaces the publishing destination, used on config reload.
func (s *Server) SetGitHub(cfg config.GitHubConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.github = cfg
}

func (s *Server) gitHub() config.GitHubConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.github
}

// SetTopics replaces the topic service, used when feeds or the topic model
// change on config reload.
func (s *Server) SetTopics(svc *topics.Service) {
	if svc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = svc
}

func (s *Server) topicService() *topics.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.topics
}

func (s *Server) infof(format string, args ...interface{}) {
	if !s.verbose {
		return
	}
	s.logger.Printf("[INFO] "+format, args...)
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/status", s.handleStatus)

	mux.HandleFunc("POST /api/articles", s.handleArticleCreate)
	mux.HandleFunc("GET /api/articles", s.handleArticleList)
	mux.HandleFunc("GET /api/articles/{id}", s.handleArticleGet)
	mux.HandleFunc("PATCH /api/articles/{id}", s.handleArticleUpdate)
	mux.HandleFunc("DELETE /api/articles/{id}", s.handleArticleDelete)

	mux.HandleFunc("GET /api/articles/{id}/chat", s.handleChatGet)
	mux.HandleFunc("POST /api/articles/{id}/chat", s.handleChatSend)
	mux.HandleFunc("DELETE /api/articles/{id}/chat", s.handleChatClear)
	mux.HandleFunc("POST /api/articles/{id}/choices", s.handleChoice)
	mux.HandleFunc("GET /api/articles/{id}/phase", s.handlePhase)

	mux.HandleFunc("POST /api/articles/{id}/outline", s.handleOutlineAdd)
	mux.HandleFunc("PATCH /api/articles/{id}/outline/{itemID}", s.handleOutlineUpdate)
	mux.HandleFunc("DELETE /api/articles/{id}/outline/{itemID}", s.handleOutlineDelete)
	mux.HandleFunc("POST /api/articles/{id}/write", s.handleWrite)
	mux.HandleFunc("POST /api/articles/{id}/publish", s.handlePublish)
	mux.HandleFunc("POST /api/articles/{id}/improve", s.handleImprove)

	mux.HandleFunc("GET /api/topics", s.handleTopics)
	mux.HandleFunc("POST /api/brainstorm", s.handleBrainstorm)
	mux.HandleFunc("GET /api/ideas", s.handleIdeaList)
	mux.HandleFunc("POST /api/ideas", s.handleIdeaCreate)
	mux.HandleFunc("DELETE /api/ideas/{id}", s.handleIdeaDelete)
	mux.HandleFunc("GET /api/charts", s.handleChartList)
	mux.HandleFunc("POST /api/charts", s.handleChartCreate)
	mux.HandleFunc("GET /api/charts/{id}/download", s.handleChartDownload)
	mux.HandleFunc("DELETE /api/charts/{id}", s.handleChartDelete)

	mux.HandleFunc("POST /api/parse", s.handleParse)

	return s.logMiddleware(gzhttp.GzipHandler(mux))
}

// session returns the cached session for an existing article. Unknown ids
// fail with store.ErrNotFound and are never cached.
func (s *Server) session(ctx context.Context, articleID string) (*generator.Session, error) {
	if sess, ok := s.sessions.lookup(articleID); ok {
		return sess, nil
	}
	if _, err := s.store.GetArticle(ctx, articleID); err != nil {
		return nil, err
	}
	return s.sessions.get(articleID, func() *generator.Session {
		return generator.NewSession(articleID, s.agent, s.store, s.logger)
	}), nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	gh := s.gitHub()
	writeJSON(w, http.StatusOK, map[string]any{
		"llm_configured":    s.llm.Configured(),
		"github_configured": gh.Token != "" && gh.Repo != "",
		"database":          s.store.Path(),
	})
}

// --- Helpers ---

func modelContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), modelTimeout)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResp struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResp{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP status codes. Anything unknown
// during a model or GitHub call is treated as an upstream failure.
func statusFor(err error, upstream bool) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, generator.ErrEmptyInput),
		errors.Is(err, generator.ErrChoiceNotFound),
		errors.Is(err, generator.ErrNoOutline),
		errors.Is(err, generator.ErrNoCredentials),
		errors.Is(err, charts.ErrUnknownType),
		errors.Is(err, charts.ErrNoLabels),
		errors.Is(err, charts.ErrNoData),
		errors.Is(err, charts.ErrNotANumber),
		errors.Is(err, publisher.ErrMissingConfig),
		errors.Is(err, publisher.ErrInvalidRepo),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case upstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if rec.status >= http.StatusInternalServerError {
			s.logger.Printf("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
			return
		}
		s.infof("[http] %s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Millisecond))
	})
}
