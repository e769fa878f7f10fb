package generator

import (
	"context"
	"errors"
	"sync"
)

// ErrNoCredentials is returned when no model client has been configured.
var ErrNoCredentials = errors.New("no language model configured; add an api key in settings")

// LLMClient is anything that turns a Prompt into one text reply.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings configures a concrete client.
type LLMSettings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ClientHolder is the one reconfigurable handle to the current model client.
// It is passed explicitly to whoever needs it and swapped when credentials
// change.
type ClientHolder struct {
	mu  sync.RWMutex
	llm LLMClient
}

// NewClientHolder wraps llm, which may be nil until credentials arrive.
func NewClientHolder(llm LLMClient) *ClientHolder {
	return &ClientHolder{llm: llm}
}

// Swap replaces the current client. A nil client clears it.
func (h *ClientHolder) Swap(llm LLMClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.llm = llm
}

// Current returns the configured client or ErrNoCredentials.
func (h *ClientHolder) Current() (LLMClient, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.llm == nil {
		return nil, ErrNoCredentials
	}
	return h.llm, nil
}

// Configured reports whether a client is set.
func (h *ClientHolder) Configured() bool {
	_, err := h.Current()
	return err == nil
}

// Complete forwards to the current client.
func (h *ClientHolder) Complete(ctx context.Context, prompt Prompt) (string, error) {
	llm, err := h.Current()
	if err != nil {
		return "", err
	}
	return llm.Complete(ctx, prompt)
}
