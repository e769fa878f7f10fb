package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"article_canvas/planning"
)

// NoCredentialsMessage is shown instead of a model reply when no api key is set.
const NoCredentialsMessage = "⚠️ Please add your OpenAI API key in settings to use AI assistance."

var (
	ErrEmptyInput     = errors.New("message is empty")
	ErrChoiceNotFound = errors.New("choice not found")
	ErrNoOutline      = errors.New("article has no outline yet")
)

// ArticleStore is the persistence a Session needs.
type ArticleStore interface {
	GetArticle(ctx context.Context, id string) (Article, error)
	UpdateArticle(ctx context.Context, a Article) error
	AppendOutline(ctx context.Context, articleID string, items []planning.OutlineItem) error
	AppendTurn(ctx context.Context, articleID string, turn planning.Turn) error
	Transcript(ctx context.Context, articleID string) (planning.Transcript, error)
	ClearTranscript(ctx context.Context, articleID string) error
}

// Session is the planning conversation for one article.
// Sends are serialized so turns land in the order they were issued.
type Session struct {
	ArticleID string

	mu     sync.Mutex
	agent  *Agent
	store  ArticleStore
	logger *log.Logger
	now    func() time.Time
}

// NewSession binds a conversation to one stored article.
func NewSession(articleID string, agent *Agent, store ArticleStore, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.Default()
	}
	return &Session{
		ArticleID: articleID,
		agent:     agent,
		store:     store,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Session) newTurn(role planning.Role, content string) planning.Turn {
	return planning.Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
}

// Transcript returns the stored conversation.
func (s *Session) Transcript(ctx context.Context) (planning.Transcript, error) {
	return s.store.Transcript(ctx, s.ArticleID)
}

// Phase is the session's current phase, including the writing promotion.
func (s *Session) Phase(ctx context.Context) (planning.Phase, planning.Transcript, error) {
	art, err := s.store.GetArticle(ctx, s.ArticleID)
	if err != nil {
		return "", nil, err
	}
	tr, err := s.store.Transcript(ctx, s.ArticleID)
	if err != nil {
		return "", nil, err
	}
	return planning.SessionPhase(tr, art.HasContent()), tr, nil
}

// Clear empties the conversation, which restarts planning at the angle round.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ClearTranscript(ctx, s.ArticleID)
}

// Send records the user's input, asks the model, records the reply, and
// applies any suggested title and outline to the article. The returned turn
// is the assistant reply. A missing api key yields a warning turn and no
// error; a model failure yields an error turn and the error.
func (s *Session) Send(ctx context.Context, input string) (planning.Turn, error) {
	if strings.TrimSpace(input) == "" {
		return planning.Turn{}, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	art, err := s.store.GetArticle(ctx, s.ArticleID)
	if err != nil {
		return planning.Turn{}, err
	}
	history, err := s.store.Transcript(ctx, s.ArticleID)
	if err != nil {
		return planning.Turn{}, err
	}

	if err := s.store.AppendTurn(ctx, s.ArticleID, s.newTurn(planning.RoleUser, input)); err != nil {
		return planning.Turn{}, err
	}

	res, err := s.agent.Respond(ctx, RespondInput{Input: input, Article: &art, History: history})
	if errors.Is(err, ErrNoCredentials) {
		turn := s.newTurn(planning.RoleAssistant, NoCredentialsMessage)
		turn.Animating = true
		return turn, s.store.AppendTurn(ctx, s.ArticleID, turn)
	}
	if err != nil {
		s.logger.Printf("[session] article=%s model call failed: %v", s.ArticleID, err)
		turn := s.newTurn(planning.RoleAssistant, "❌ Error: "+err.Error())
		turn.Animating = true
		if appendErr := s.store.AppendTurn(ctx, s.ArticleID, turn); appendErr != nil {
			return turn, errors.Join(err, appendErr)
		}
		return turn, err
	}

	turn := s.newTurn(planning.RoleAssistant, res.Body)
	turn.Animating = true
	turn.Choices = res.Choices
	turn.ThinkingSteps = res.ThinkingSteps
	if err := s.store.AppendTurn(ctx, s.ArticleID, turn); err != nil {
		return turn, err
	}

	if err := s.apply(ctx, art, history, res); err != nil {
		return turn, fmt.Errorf("apply reply to article: %w", err)
	}
	return turn, nil
}

// apply writes the suggested title and outline items onto the article.
func (s *Session) apply(ctx context.Context, art Article, history planning.Transcript, res planning.ParsedResponse) error {
	if title, ok := res.Title(); ok && ShouldRetitle(art.Title, planning.AssistantTurns(history) == 0) {
		art.Title = title
		if err := s.store.UpdateArticle(ctx, art); err != nil {
			return err
		}
	}
	if len(res.OutlineItems) > 0 {
		if err := s.store.AppendOutline(ctx, s.ArticleID, res.OutlineItems); err != nil {
			return err
		}
	}
	return nil
}

// ShouldRetitle reports whether a suggested title may replace current: on the
// first reply, or while the title is still a placeholder.
func ShouldRetitle(current string, firstResponse bool) bool {
	return firstResponse || current == DefaultTitle || strings.HasPrefix(current, TopicPrefix)
}

// SelectChoice replays a choice's value as the next user turn.
func (s *Session) SelectChoice(ctx context.Context, turnID, choiceID string) (planning.Turn, error) {
	tr, err := s.store.Transcript(ctx, s.ArticleID)
	if err != nil {
		return planning.Turn{}, err
	}
	turn, ok := tr.Find(turnID)
	if !ok {
		return planning.Turn{}, fmt.Errorf("turn %s: %w", turnID, ErrChoiceNotFound)
	}
	choice, ok := turn.FindChoice(choiceID)
	if !ok {
		return planning.Turn{}, fmt.Errorf("choice %s: %w", choiceID, ErrChoiceNotFound)
	}
	return s.Send(ctx, choice.Value)
}

// StartWriting moves the article into the writing phase by seeding its
// content from the outline.
func (s *Session) StartWriting(ctx context.Context) (Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	art, err := s.store.GetArticle(ctx, s.ArticleID)
	if err != nil {
		return Article{}, err
	}
	if len(art.Outline) == 0 {
		return Article{}, ErrNoOutline
	}
	art.Content = StartWritingContent(art.Outline)
	art.Excerpt = Excerpt(HTMLToText(art.Content))
	if err := s.store.UpdateArticle(ctx, art); err != nil {
		return Article{}, err
	}
	return art, nil
}
