package server

import (
	"mime"
	"net/http"
	"strings"

	"article_canvas/charts"
	"article_canvas/generator"
	"article_canvas/planning"
)

type topicsResp struct {
	Topics []topicView `json:"topics"`
}

type topicView struct {
	Title   string `json:"title"`
	Link    string `json:"link,omitempty"`
	Summary string `json:"summary"`
	Source  string `json:"source"`
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := modelContext(r)
	defer cancel()
	list := s.topicService().Mixed(ctx)
	out := make([]topicView, 0, len(list))
	for _, t := range list {
		out = append(out, topicView(t))
	}
	writeJSON(w, http.StatusOK, topicsResp{Topics: out})
}

type brainstormReq struct {
	Topic string `json:"topic"`
	// Save keeps the result as an idea.
	Save      bool   `json:"save"`
	ArticleID string `json:"article_id"`
}

type brainstormResp struct {
	Ideas string          `json:"ideas"`
	HTML  string          `json:"html"`
	Idea  *generator.Idea `json:"idea,omitempty"`
}

func (s *Server) handleBrainstorm(w http.ResponseWriter, r *http.Request) {
	var req brainstormReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, generator.ErrEmptyInput)
		return
	}
	ctx, cancel := modelContext(r)
	defer cancel()
	text, err := s.agent.Brainstorm(ctx, req.Topic)
	if err != nil {
		writeError(w, statusFor(err, true), err)
		return
	}
	html, err := generator.RenderMarkdown(text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	resp := brainstormResp{Ideas: text, HTML: html}
	if req.Save {
		idea, err := s.store.AddIdea(r.Context(), generator.Idea{Content: text, ArticleID: req.ArticleID})
		if err != nil {
			writeError(w, statusFor(err, false), err)
			return
		}
		resp.Idea = &idea
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIdeaList(w http.ResponseWriter, r *http.Request) {
	ideas, err := s.store.ListIdeas(r.Context())
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (s *Server) handleIdeaCreate(w http.ResponseWriter, r *http.Request) {
	var idea generator.Idea
	if err := decodeJSON(r, &idea); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(idea.Content) == "" {
		writeError(w, http.StatusBadRequest, generator.ErrEmptyInput)
		return
	}
	idea, err := s.store.AddIdea(r.Context(), idea)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

func (s *Server) handleIdeaDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteIdea(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chartResp struct {
	Chart       charts.Chart `json:"chart"`
	Placeholder string       `json:"placeholder"`
}

func (s *Server) handleChartList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCharts(r.Context(), r.URL.Query().Get("article_id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleChartCreate(w http.ResponseWriter, r *http.Request) {
	var form charts.Form
	if err := decodeJSON(r, &form); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	c, err := charts.NewChart(form)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if err := s.store.SaveChart(r.Context(), c); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusCreated, chartResp{Chart: c, Placeholder: charts.Placeholder(c.Type)})
}

// handleChartDownload serves a chart's config as a json attachment named
// after its title.
func (s *Server) handleChartDownload(w http.ResponseWriter, r *http.Request) {
	c, err := s.store.GetChart(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": chartFileName(c),
	}))
	writeJSON(w, http.StatusOK, c)
}

func chartFileName(c charts.Chart) string {
	stem := charts.Slug(c.Title)
	if stem == "" {
		stem = "chart"
	}
	return stem + ".json"
}

func (s *Server) handleChartDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteChart(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type parseReq struct {
	Text string `json:"text"`
}

// handleParse runs the reply parser on raw model text.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req parseReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, planning.Parse(req.Text))
}
