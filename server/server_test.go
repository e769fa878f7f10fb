package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"article_canvas/charts"
	"article_canvas/config"
	"article_canvas/generator"
	"article_canvas/planning"
	"article_canvas/store"
	"article_canvas/topics"
)

type failingLLM struct{}

func (failingLLM) Complete(context.Context, generator.Prompt) (string, error) {
	return "", errors.New("upstream timeout")
}

type testServer struct {
	srv     *Server
	handler http.Handler
	store   *store.Store
}

func setupTestServer(t *testing.T, llm generator.LLMClient) *testServer {
	t.Helper()
	st, err := store.NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, st.Close()) })

	holder := generator.NewClientHolder(llm)
	srv, err := New(Deps{
		Store:  st,
		LLM:    holder,
		Topics: topics.New(topics.WithFeeds(nil), topics.WithModels(holder)),
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)
	return &testServer{srv: srv, handler: srv.Routes(), store: st}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (ts *testServer) createArticle(t *testing.T, body articleCreateReq) articleResp {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/api/articles", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[articleResp](t, rec)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.Error(t, err)
}

func TestArticles_Lifecycle(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	created := ts.createArticle(t, articleCreateReq{Title: "Rent", Tags: []string{"housing"}})
	id := created.Article.ID
	assert.Equal(t, "Rent", created.Article.Title)
	assert.Equal(t, generator.StatusDraft, created.Article.Status)
	assert.Nil(t, created.Turn)

	rec := ts.do(t, http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]generator.Article](t, rec), 1)

	rec = ts.do(t, http.MethodPatch, "/api/articles/"+id, map[string]any{"content": "<p>Hello <b>world</b></p>"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	art := decode[generator.Article](t, rec)
	assert.Equal(t, "Hello world", art.Excerpt)
	assert.Equal(t, []string{"housing"}, art.Tags)

	rec = ts.do(t, http.MethodPatch, "/api/articles/"+id, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/articles?status=published", nil)
	assert.Empty(t, decode[[]generator.Article](t, rec))

	rec = ts.do(t, http.MethodDelete, "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResp](t, rec).Error, "not found")
}

func TestPlanning_ThroughAPI(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	created := ts.createArticle(t, articleCreateReq{Topic: "housing"})
	id := created.Article.ID
	require.NotNil(t, created.Turn)
	assert.Equal(t, "Draft Title", created.Article.Title)
	require.Len(t, created.Turn.Choices, 2)
	assert.Contains(t, created.Turn.HTML, "<p>")

	rec := ts.do(t, http.MethodGet, "/api/articles/"+id+"/phase", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decode[chatResp](t, rec)
	assert.Equal(t, planning.PhaseThesis, state.Phase)
	assert.Equal(t, 2, state.RoundsLeft)
	assert.Empty(t, state.Transcript)

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/choices", choiceReq{TurnID: created.Turn.ID, ChoiceID: created.Turn.Choices[0].ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, planning.PhaseOutline, decode[sendResp](t, rec).Phase)

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/chat", chatReq{Message: "outline please"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reply := decode[sendResp](t, rec)
	require.Len(t, reply.Article.Outline, 3)
	assert.Equal(t, "Introduction", reply.Article.Outline[0].Title)

	rec = ts.do(t, http.MethodGet, "/api/articles/"+id+"/chat", nil)
	state = decode[chatResp](t, rec)
	assert.Len(t, state.Transcript, 6)
	assert.Equal(t, 0, state.RoundsLeft)
	for _, step := range state.Steps {
		assert.True(t, step.Done, step.Label)
	}

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/write", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[generator.Article](t, rec).HasContent())

	rec = ts.do(t, http.MethodGet, "/api/articles/"+id+"/phase", nil)
	assert.Equal(t, planning.PhaseWriting, decode[chatResp](t, rec).Phase)

	rec = ts.do(t, http.MethodDelete, "/api/articles/"+id+"/chat", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodGet, "/api/articles/"+id+"/chat", nil)
	assert.Empty(t, decode[chatResp](t, rec).Transcript)
}

func TestChat_Errors(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})
	id := ts.createArticle(t, articleCreateReq{}).Article.ID

	rec := ts.do(t, http.MethodPost, "/api/articles/"+id+"/chat", chatReq{Message: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/articles/missing/chat", chatReq{Message: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/choices", choiceReq{TurnID: "nope", ChoiceID: "choice-0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/write", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/articles/"+id+"/chat", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessions_UnknownArticlesAreNotCached(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	for _, path := range []string{"/chat", "/phase"} {
		rec := ts.do(t, http.MethodGet, "/api/articles/ghost"+path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
	rec := ts.do(t, http.MethodPost, "/api/articles/ghost/chat", chatReq{Message: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/articles/ghost/chat", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/articles/ghost/write", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, ts.srv.sessions.len())

	id := ts.createArticle(t, articleCreateReq{}).Article.ID
	rec = ts.do(t, http.MethodGet, "/api/articles/"+id+"/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ts.srv.sessions.len())

	rec = ts.do(t, http.MethodDelete, "/api/articles/"+id, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, ts.srv.sessions.len())
}

func TestChat_ModelFailureKeepsErrorTurn(t *testing.T) {
	ts := setupTestServer(t, failingLLM{})
	id := ts.createArticle(t, articleCreateReq{}).Article.ID

	rec := ts.do(t, http.MethodPost, "/api/articles/"+id+"/chat", chatReq{Message: "hello"})
	require.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decode[sendResp](t, rec)
	assert.Contains(t, resp.Error, "upstream timeout")
	assert.True(t, strings.HasPrefix(resp.Turn.Content, "❌ Error: "))

	tr, err := ts.store.Transcript(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, tr, 2)
}

func TestNoCredentials(t *testing.T) {
	ts := setupTestServer(t, nil)
	id := ts.createArticle(t, articleCreateReq{}).Article.ID

	rec := ts.do(t, http.MethodPost, "/api/articles/"+id+"/chat", chatReq{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, generator.NoCredentialsMessage, decode[sendResp](t, rec).Turn.Content)

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/improve", improveReq{Text: "fix me"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/status", nil)
	status := decode[map[string]any](t, rec)
	assert.Equal(t, false, status["llm_configured"])
}

func TestOutline_Endpoints(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})
	id := ts.createArticle(t, articleCreateReq{Title: "Rates"}).Article.ID
	base := "/api/articles/" + id + "/outline"

	rec := ts.do(t, http.MethodPost, base, outlineAddReq{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, base, outlineAddReq{Title: "Why rates matter"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	art := decode[generator.Article](t, rec)
	require.Len(t, art.Outline, 1)
	itemID := art.Outline[0].ID

	rec = ts.do(t, http.MethodPatch, base+"/"+itemID, map[string]any{"toggle": true, "description": "context"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	art = decode[generator.Article](t, rec)
	assert.True(t, art.Outline[0].Completed)
	assert.Equal(t, "Why rates matter", art.Outline[0].Title)
	assert.Equal(t, "context", art.Outline[0].Description)

	rec = ts.do(t, http.MethodPatch, base+"/missing", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodDelete, base+"/"+itemID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[generator.Article](t, rec).Outline)

	rec = ts.do(t, http.MethodPost, base, outlineAddReq{Generate: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	art = decode[generator.Article](t, rec)
	require.Len(t, art.Outline, 4)
	assert.Equal(t, "Introduction", art.Outline[0].Title)
	assert.Contains(t, art.Content, "<h1>Rates</h1>")
	assert.Contains(t, art.Content, "Introduction")
}

func TestImprove(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})
	id := ts.createArticle(t, articleCreateReq{}).Article.ID

	rec := ts.do(t, http.MethodPost, "/api/articles/"+id+"/improve", improveReq{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/improve", improveReq{Text: "a rough sentence"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[improveResp](t, rec).Text)
}

func TestArticleCreate_OutlineFirst(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	created := ts.createArticle(t, articleCreateReq{Topic: "Housing costs", Outline: true})
	assert.Nil(t, created.Turn)
	assert.Equal(t, "Housing costs", created.Article.Title)
	assert.True(t, strings.HasPrefix(created.Article.Content, "<h2>Outline</h2>"), created.Article.Content)
	assert.Contains(t, created.Article.Content, "<li>Introduction</li>")
	assert.Contains(t, created.Article.Excerpt, "Introduction")

	tr, err := ts.store.Transcript(context.Background(), created.Article.ID)
	require.NoError(t, err)
	assert.Empty(t, tr)

	// Without a model the article is still created, just empty.
	offline := setupTestServer(t, nil)
	created = offline.createArticle(t, articleCreateReq{Topic: "Housing costs", Outline: true})
	assert.Equal(t, "Housing costs", created.Article.Title)
	assert.Empty(t, created.Article.Content)
}

func TestSetTopics_SwapsService(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	titles := func() []string {
		rec := ts.do(t, http.MethodGet, "/api/topics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out []string
		for _, tv := range decode[topicsResp](t, rec).Topics {
			out = append(out, tv.Title)
		}
		return out
	}

	assert.Contains(t, strings.Join(titles(), "|"), "Mock topic")

	ts.srv.SetTopics(topics.New(topics.WithFeeds(nil)))
	got := titles()
	assert.NotEmpty(t, got)
	assert.NotContains(t, strings.Join(got, "|"), "Mock topic")

	ts.srv.SetTopics(nil)
	assert.NotEmpty(t, titles())
}

func TestTopicsBrainstormAndIdeas(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	rec := ts.do(t, http.MethodGet, "/api/topics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[topicsResp](t, rec).Topics)

	rec = ts.do(t, http.MethodPost, "/api/brainstorm", brainstormReq{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/brainstorm", brainstormReq{Topic: "remote work", Save: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bs := decode[brainstormResp](t, rec)
	assert.Contains(t, bs.HTML, "<strong>Angle one</strong>")
	require.NotNil(t, bs.Idea)

	rec = ts.do(t, http.MethodPost, "/api/ideas", generator.Idea{Content: "A second idea"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/ideas", nil)
	ideas := decode[[]generator.Idea](t, rec)
	require.Len(t, ideas, 2)

	rec = ts.do(t, http.MethodDelete, "/api/ideas/"+bs.Idea.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/ideas/"+bs.Idea.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCharts_Endpoints(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	rec := ts.do(t, http.MethodPost, "/api/charts", map[string]string{"labels": "a,b", "data": "1,x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/charts", map[string]string{"type": "pie", "labels": "a,b", "data": "1,2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[chartResp](t, rec)
	assert.Contains(t, created.Placeholder, `data-chart-type="pie"`)

	rec = ts.do(t, http.MethodGet, "/api/charts", nil)
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = ts.do(t, http.MethodDelete, "/api/charts/"+created.Chart.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCharts_Download(t *testing.T) {
	ts := setupTestServer(t, generator.MockLLM{})

	rec := ts.do(t, http.MethodPost, "/api/charts", charts.Form{Title: "Q4  Revenue Growth", Type: "bar", Labels: "a,b", Data: "1,2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[chartResp](t, rec)

	rec = ts.do(t, http.MethodGet, "/api/charts/"+created.Chart.ID+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "attachment", disposition)
	assert.Equal(t, "q4-revenue-growth.json", params["filename"])
	assert.Equal(t, created.Chart.ID, decode[charts.Chart](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/api/charts/missing/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChartFileName_Untitled(t *testing.T) {
	assert.Equal(t, "chart.json", chartFileName(charts.Chart{Title: "   "}))
}

func TestParse(t *testing.T) {
	ts := setupTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/parse", parseReq{Text: "[TITLE]\nT\n[/TITLE]\nBody"})
	require.Equal(t, http.StatusOK, rec.Code)
	parsed := decode[planning.ParsedResponse](t, rec)
	assert.Equal(t, "Body", parsed.Body)
	require.NotNil(t, parsed.SuggestedTitle)
	assert.Equal(t, "T", *parsed.SuggestedTitle)
}

func TestPublish(t *testing.T) {
	var puts atomic.Int32
	gh := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := strings.TrimPrefix(r.URL.Path, "/repos/octo/blog/contents/")
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		case http.MethodPut:
			puts.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"content": map[string]any{"path": path, "html_url": "https://github.com/octo/blog/blob/main/" + path},
			})
		}
	}))
	defer gh.Close()

	ts := setupTestServer(t, generator.MockLLM{})
	id := ts.createArticle(t, articleCreateReq{Title: "Rates", Content: "<p>Body text</p>"}).Article.ID

	rec := ts.do(t, http.MethodPost, "/api/articles/"+id+"/publish", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ts.srv.SetGitHub(config.GitHubConfig{Token: "tok", Repo: "octo/blog", Branch: "main", BaseURL: gh.URL})
	rec = ts.do(t, http.MethodPost, "/api/articles/"+id+"/publish", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[publishResp](t, rec)
	assert.True(t, resp.Created)
	assert.EqualValues(t, 1, puts.Load())
	assert.Equal(t, generator.StatusPublished, resp.Article.Status)
	assert.Equal(t, resp.URL, resp.Article.PublishedURL)
	assert.True(t, strings.HasSuffix(resp.Path, "-rates.md"))
}

func TestRoutes_Gzip(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.createArticle(t, articleCreateReq{Title: "Long", Content: "<p>" + strings.Repeat("words ", 2000) + "</p>"})

	req := httptest.NewRequest(http.MethodGet, "/api/articles", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}
