package config

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go/option"

	"article_canvas/generator"
)

const ollamaBaseURL = "http://localhost:11434/v1"

// BuildLLM turns provider settings into a client. Missing credentials give
// generator.ErrNoCredentials so callers can start without a model.
func BuildLLM(l LLMConfig) (generator.LLMClient, error) {
	settings := &generator.LLMSettings{
		Provider: l.Provider,
		Model:    l.Model,
		APIKey:   l.APIKey,
		BaseURL:  l.BaseURL,
	}
	switch l.Provider {
	case "":
		return nil, generator.ErrNoCredentials
	case "mock":
		return generator.MockLLM{}, nil
	case "openai":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek speaks the OpenAI protocol behind its own base_url.
		if l.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	case "ollama":
		if settings.BaseURL == "" {
			settings.BaseURL = ollamaBaseURL
		}
		if settings.APIKey == "" {
			settings.APIKey = "ollama"
		}
		return generator.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", l.Provider)
	}
}

// TopicModels lists the clients topic suggestions try, in order: the
// optional topic model (without client retries, so an absent local server
// fails fast), then the main model holder.
func TopicModels(cfg Config, main *generator.ClientHolder) ([]generator.LLMClient, error) {
	var models []generator.LLMClient
	if cfg.TopicModel != nil {
		llm, err := BuildLLM(*cfg.TopicModel)
		switch {
		case errors.Is(err, generator.ErrNoCredentials):
		case err != nil:
			return nil, fmt.Errorf("topic model: %w", err)
		default:
			if o, ok := llm.(*generator.OpenAILLM); ok {
				o.Opts = append(o.Opts, option.WithMaxRetries(0))
			}
			models = append(models, llm)
		}
	}
	if main != nil {
		models = append(models, main)
	}
	return models, nil
}

// ApplyLLM swaps holder to the client described by cfg. Missing credentials
// clear it.
func ApplyLLM(cfg Config, holder *generator.ClientHolder) error {
	llm, err := BuildLLM(cfg.LLM)
	if errors.Is(err, generator.ErrNoCredentials) {
		holder.Swap(nil)
		return nil
	}
	if err != nil {
		return err
	}
	holder.Swap(llm)
	return nil
}
