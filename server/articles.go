package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"article_canvas/generator"
	"article_canvas/planning"
	"article_canvas/publisher"
	"article_canvas/store"
)

type articleCreateReq struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	// Topic starts the planning conversation about a suggested topic.
	Topic string `json:"topic"`
	// Outline drafts an outline for Topic into the content instead.
	Outline bool `json:"outline"`
}

type articleUpdateReq struct {
	Title       *string                 `json:"title"`
	Content     *string                 `json:"content"`
	Tags        *[]string               `json:"tags"`
	Status      *generator.Status       `json:"status"`
	Annotations *[]generator.Annotation `json:"annotations"`
}

type articleResp struct {
	Article generator.Article `json:"article"`
	Turn    *turnView         `json:"turn,omitempty"`
}

// turnView is a turn plus its body rendered for display.
type turnView struct {
	planning.Turn
	HTML string `json:"html,omitempty"`
}

type chatResp struct {
	Phase      planning.Phase  `json:"phase"`
	PhaseLabel string          `json:"phase_label"`
	RoundsLeft int             `json:"rounds_left"`
	Steps      []planning.Step `json:"steps"`
	Transcript []turnView      `json:"transcript"`
}

type chatReq struct {
	Message string `json:"message"`
}

type choiceReq struct {
	TurnID   string `json:"turn_id"`
	ChoiceID string `json:"choice_id"`
}

type sendResp struct {
	Turn    turnView          `json:"turn"`
	Article generator.Article `json:"article"`
	Phase   planning.Phase    `json:"phase"`
	Error   string            `json:"error,omitempty"`
}

func (s *Server) handleArticleCreate(w http.ResponseWriter, r *http.Request) {
	var req articleCreateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	topic := strings.TrimSpace(req.Topic)
	art := generator.Article{Title: strings.TrimSpace(req.Title), Content: req.Content, Tags: req.Tags}

	ctx, cancel := modelContext(r)
	defer cancel()
	if topic != "" && req.Outline {
		if art.Title == "" {
			art.Title = topic
		}
		if art.Content == "" {
			art.Content = s.outlineContent(ctx, topic)
		}
	}

	art.Excerpt = generator.Excerpt(generator.HTMLToText(art.Content))
	art, err := s.store.CreateArticle(r.Context(), art)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	s.infof("created article %s", art.ID)

	if topic == "" || req.Outline {
		writeJSON(w, http.StatusCreated, articleResp{Article: art})
		return
	}

	sess, err := s.session(r.Context(), art.ID)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	turn, sendErr := sess.Send(ctx, generator.TopicPrefix+" "+topic)
	art, err = s.store.GetArticle(r.Context(), art.ID)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if sendErr != nil {
		s.logger.Printf("[http] article %s: first reply failed: %v", art.ID, sendErr)
	}
	view := renderTurn(turn)
	writeJSON(w, http.StatusCreated, articleResp{Article: art, Turn: &view})
}

// outlineContent is the starting html for an article drafted from an
// outline. The article still starts empty when the model is unavailable.
func (s *Server) outlineContent(ctx context.Context, topic string) string {
	outline, err := s.agent.Outline(ctx, topic)
	if err != nil {
		s.logger.Printf("[http] outline for %q failed: %v", topic, err)
		return ""
	}
	content, err := generator.OutlineHTML(outline)
	if err != nil {
		s.logger.Printf("[http] rendering outline for %q failed: %v", topic, err)
		return ""
	}
	return content
}

func (s *Server) handleArticleList(w http.ResponseWriter, r *http.Request) {
	status := generator.Status(r.URL.Query().Get("status"))
	arts, err := s.store.ListArticles(r.Context(), status)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, arts)
}

func (s *Server) handleArticleGet(w http.ResponseWriter, r *http.Request) {
	art, err := s.store.GetArticle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (s *Server) handleArticleUpdate(w http.ResponseWriter, r *http.Request) {
	var req articleUpdateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	art, err := s.store.GetArticle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if req.Title != nil {
		art.Title = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		art.Content = *req.Content
		art.Excerpt = generator.Excerpt(generator.HTMLToText(art.Content))
	}
	if req.Tags != nil {
		art.Tags = *req.Tags
	}
	if req.Status != nil {
		if *req.Status != generator.StatusDraft && *req.Status != generator.StatusPublished {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: unknown status %q", errBadRequest, *req.Status))
			return
		}
		art.Status = *req.Status
	}
	if req.Annotations != nil {
		art.Annotations = *req.Annotations
	}
	if err := s.store.UpdateArticle(r.Context(), art); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	s.respondArticle(w, r, art.ID)
}

func (s *Server) handleArticleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteArticle(r.Context(), id); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	s.sessions.drop(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondArticle(w http.ResponseWriter, r *http.Request, id string) {
	art, err := s.store.GetArticle(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// --- Planning chat ---

func (s *Server) chatState(ctx context.Context, articleID string) (chatResp, error) {
	art, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return chatResp{}, err
	}
	sess, err := s.session(ctx, articleID)
	if err != nil {
		return chatResp{}, err
	}
	phase, tr, err := sess.Phase(ctx)
	if err != nil {
		return chatResp{}, err
	}
	views := make([]turnView, 0, len(tr))
	for _, t := range tr {
		views = append(views, renderTurn(t))
	}
	return chatResp{
		Phase:      phase,
		PhaseLabel: phase.Label(),
		RoundsLeft: planning.RoundsRemaining(tr),
		Steps:      planning.Progress(tr, len(art.Outline)),
		Transcript: views,
	}, nil
}

func (s *Server) handleChatGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.chatState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handlePhase(w http.ResponseWriter, r *http.Request) {
	state, err := s.chatState(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	state.Transcript = nil
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	var req chatReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")
	ctx, cancel := modelContext(r)
	defer cancel()
	sess, err := s.session(ctx, id)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	turn, err := sess.Send(ctx, req.Message)
	s.respondSend(w, r, sess, turn, err)
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")
	ctx, cancel := modelContext(r)
	defer cancel()
	sess, err := s.session(ctx, id)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	turn, err := sess.SelectChoice(ctx, req.TurnID, req.ChoiceID)
	s.respondSend(w, r, sess, turn, err)
}

// respondSend reports a reply. A failed model call still recorded an error
// turn, which is returned alongside the error.
func (s *Server) respondSend(w http.ResponseWriter, r *http.Request, sess *generator.Session, turn planning.Turn, err error) {
	if err != nil && turn.ID == "" {
		writeError(w, statusFor(err, true), err)
		return
	}
	art, getErr := s.store.GetArticle(r.Context(), sess.ArticleID)
	if getErr != nil {
		writeError(w, statusFor(getErr, false), getErr)
		return
	}
	phase, _, phaseErr := sess.Phase(r.Context())
	if phaseErr != nil {
		writeError(w, statusFor(phaseErr, false), phaseErr)
		return
	}
	resp := sendResp{Turn: renderTurn(turn), Article: art, Phase: phase}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = statusFor(err, true)
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleChatClear(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if err := sess.Clear(r.Context()); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func renderTurn(t planning.Turn) turnView {
	v := turnView{Turn: t}
	if t.Role == planning.RoleAssistant && t.Content != "" {
		if html, err := generator.RenderMarkdown(t.Content); err == nil {
			v.HTML = html
		}
	}
	return v
}

// --- Outline ---

type outlineAddReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	// Generate asks the model for an outline of Topic, or of the title.
	Generate bool   `json:"generate"`
	Topic    string `json:"topic"`
}

type outlineUpdateReq struct {
	Toggle      bool    `json:"toggle"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (s *Server) handleOutlineAdd(w http.ResponseWriter, r *http.Request) {
	var req outlineAddReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id := r.PathValue("id")
	if req.Generate {
		s.generateOutline(w, r, id, req.Topic)
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: outline item needs a title", errBadRequest))
		return
	}
	item := planning.OutlineItem{ID: "outline-" + uuid.NewString(), Title: title, Description: strings.TrimSpace(req.Description)}
	if err := s.store.AppendOutline(r.Context(), id, []planning.OutlineItem{item}); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	s.respondArticle(w, r, id)
}

// generateOutline appends model outline items and seeds placeholder
// sections when the article has no real content yet.
func (s *Server) generateOutline(w http.ResponseWriter, r *http.Request, id, topic string) {
	art, err := s.store.GetArticle(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = art.Title
	}

	ctx, cancel := modelContext(r)
	defer cancel()
	items, err := s.agent.GenerateOutline(ctx, topic)
	if err != nil {
		writeError(w, statusFor(err, true), err)
		return
	}
	if len(items) == 0 {
		s.respondArticle(w, r, id)
		return
	}
	if err := s.store.AppendOutline(r.Context(), id, items); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if generator.NeedsPlaceholders(art.Content) {
		art, err = s.store.GetArticle(r.Context(), id)
		if err != nil {
			writeError(w, statusFor(err, false), err)
			return
		}
		art.Content = generator.PlaceholderContent(art.Title, art.Outline)
		art.Excerpt = generator.Excerpt(generator.HTMLToText(art.Content))
		if err := s.store.UpdateArticle(r.Context(), art); err != nil {
			writeError(w, statusFor(err, false), err)
			return
		}
	}
	s.infof("article %s: generated %d outline items", id, len(items))
	s.respondArticle(w, r, id)
}

func (s *Server) handleOutlineUpdate(w http.ResponseWriter, r *http.Request) {
	var req outlineUpdateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, itemID := r.PathValue("id"), r.PathValue("itemID")
	if req.Toggle {
		if err := s.store.ToggleOutlineItem(r.Context(), id, itemID); err != nil {
			writeError(w, statusFor(err, false), err)
			return
		}
	}
	if req.Title != nil || req.Description != nil {
		if err := s.renameOutlineItem(r.Context(), id, itemID, req.Title, req.Description); err != nil {
			writeError(w, statusFor(err, false), err)
			return
		}
	}
	s.respondArticle(w, r, id)
}

func (s *Server) renameOutlineItem(ctx context.Context, articleID, itemID string, title, description *string) error {
	items, err := s.store.Outline(ctx, articleID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ID != itemID {
			continue
		}
		if title != nil {
			it.Title = strings.TrimSpace(*title)
		}
		if description != nil {
			it.Description = strings.TrimSpace(*description)
		}
		if it.Title == "" {
			return fmt.Errorf("%w: outline item needs a title", errBadRequest)
		}
		return s.store.RenameOutlineItem(ctx, articleID, itemID, it.Title, it.Description)
	}
	return fmt.Errorf("outline item %s: %w", itemID, store.ErrNotFound)
}

func (s *Server) handleOutlineDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.DeleteOutlineItem(r.Context(), id, r.PathValue("itemID")); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	s.respondArticle(w, r, id)
}

func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	art, err := sess.StartWriting(r.Context())
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

// --- Editing and publishing ---

type improveReq struct {
	Text string `json:"text"`
}

type improveResp struct {
	Text string `json:"text"`
}

func (s *Server) handleImprove(w http.ResponseWriter, r *http.Request) {
	var req improveReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.store.GetArticle(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, generator.ErrEmptyInput)
		return
	}
	ctx, cancel := modelContext(r)
	defer cancel()
	out, err := s.agent.Improve(ctx, req.Text)
	if err != nil {
		writeError(w, statusFor(err, true), err)
		return
	}
	writeJSON(w, http.StatusOK, improveResp{Text: out})
}

type publishReq struct {
	Message string `json:"message"`
}

type publishResp struct {
	Article generator.Article `json:"article"`
	Path    string            `json:"path"`
	URL     string            `json:"url"`
	Created bool              `json:"created"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	art, err := s.store.GetArticle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	if !art.HasContent() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: article has no content to publish", errBadRequest))
		return
	}

	ctx := r.Context()
	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}
	gh := s.gitHub()
	pub, err := publisher.New(ctx, publisher.Config{
		Token:   gh.Token,
		Repo:    gh.Repo,
		Branch:  gh.Branch,
		BaseURL: gh.BaseURL,
	}, s.verbose, s.logger)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	res, err := pub.Publish(ctx, publisher.PublishParams{
		Title:   art.Title,
		Content: art.Content,
		Tags:    art.Tags,
		Date:    time.Now(),
		Message: req.Message,
	})
	if err != nil {
		writeError(w, statusFor(err, true), err)
		return
	}

	art.Status = generator.StatusPublished
	art.PublishedURL = res.URL
	if err := s.store.UpdateArticle(r.Context(), art); err != nil {
		writeError(w, statusFor(err, false), fmt.Errorf("published but not saved: %w", err))
		return
	}
	art, err = s.store.GetArticle(r.Context(), art.ID)
	if err != nil {
		writeError(w, statusFor(err, false), err)
		return
	}
	s.logger.Printf("[http] article %s published to %s", art.ID, res.URL)
	writeJSON(w, http.StatusOK, publishResp{Article: art, Path: res.Path, URL: res.URL, Created: res.Created})
}
