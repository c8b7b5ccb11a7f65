package llm

import (
	"context"
	"fmt"

	"github.com/lazypower/echocloset/internal/config"
	"github.com/lazypower/echocloset/internal/tagger"
)

// Client is the interface for LLM providers.
type Client interface {
	Complete(ctx context.Context, prompt string) (*Response, error)
}

// Response holds the result of an LLM completion.
type Response struct {
	Content    string
	Provider   string
	TokensUsed int
}

// NewClient creates an LLM client based on the classifier provider setting.
func NewClient(cfg config.ClassifierConfig) (Client, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		return NewAnthropic(cfg.AnthropicKey, model), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAI(cfg.OpenAIKey, model, ""), nil
	case "ollama":
		url := cfg.OllamaURL
		if url == "" {
			url = "http://localhost:11434"
		}
		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}
		return NewOllama(url, model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
}

// NewClassifier builds the sentiment classifier for cfg.Provider. It returns
// nil, nil for "none", which leaves tagging to the lexicon.
func NewClassifier(cfg config.ClassifierConfig) (tagger.Classifier, error) {
	switch cfg.Provider {
	case "", "none":
		return nil, nil
	case "huggingface":
		return NewHuggingFace(cfg.HFToken, cfg.Model, ""), nil
	default:
		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return NewSentimentClassifier(client), nil
	}
}
