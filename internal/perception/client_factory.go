package perception

import (
	"context"
	"fmt"
	"time"
)

// ClientOptions selects and configures a provider.
type ClientOptions struct {
	Provider string // openai, gemini
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewClient builds the Client for the configured provider.
func NewClient(ctx context.Context, opts ClientOptions) (Client, error) {
	switch opts.Provider {
	case "openai", "":
		cfg := DefaultOpenAIConfig(opts.APIKey)
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		return NewOpenAIClientWithConfig(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (valid: openai, gemini)", opts.Provider)
	}
}
