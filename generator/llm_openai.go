package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAILLM implements LLMClient over chat completions. Any OpenAI-compatible
// endpoint works through BaseURL (DeepSeek, a local Ollama, gateways).
type OpenAILLM struct {
	Model string
	Opts  []option.RequestOption
}

// retryWaits is how long to back off before each retry of a rate-limited or
// failed request.
var retryWaits = []time.Duration{2 * time.Second, 10 * time.Second}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, ErrNoCredentials
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAILLM{Model: cfg.Model, Opts: opts}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client := openai.NewClient(o.Opts...)

	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	if prompt.Context != "" {
		msgs = append(msgs, openai.SystemMessage("Current article context:\n"+prompt.Context))
	}
	for _, h := range prompt.History {
		switch h.Role {
		case "assistant":
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	}
	if prompt.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(prompt.MaxTokens))
	}
	if prompt.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   prompt.Schema.Name,
					Schema: prompt.Schema.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := completeWithRetry(ctx, &client, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func completeWithRetry(ctx context.Context, client *openai.Client, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	for attempt := 0; ; attempt++ {
		resp, err := client.Chat.Completions.New(ctx, params)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) || attempt >= len(retryWaits) {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryWaits[attempt]):
		}
	}
}

func isRetryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "server_error")
}
