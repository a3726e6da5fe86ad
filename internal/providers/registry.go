package providers

import (
	"fmt"
	"log/slog"
	"strings"
)

// Options selects and configures a provider. Selection happens once at
// pipeline start; stages only ever see the Provider interface.
type Options struct {
	Provider     string // "gemini", "openai", or "" / "auto" to infer from model
	Model        string
	GeminiAPIKey string
	OpenAIAPIKey string
	Logger       *slog.Logger
}

// DetectProvider infers the provider from a model identifier. Unknown
// patterns default to gemini.
func DetectProvider(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "gemini"):
		return GeminiName
	case strings.HasPrefix(m, "gpt"), strings.HasPrefix(m, "o1"):
		return OpenAIName
	default:
		return GeminiName
	}
}

// New builds the configured provider.
func New(opts Options) (Provider, error) {
	name := opts.Provider
	if name == "" || name == "auto" {
		if opts.Model != "" {
			name = DetectProvider(opts.Model)
		} else {
			name = GeminiName
		}
	}

	switch name {
	case GeminiName:
		if opts.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		return NewGeminiClient(GeminiConfig{
			APIKey: opts.GeminiAPIKey,
			Model:  opts.Model,
			Logger: opts.Logger,
		}), nil
	case OpenAIName:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey: opts.OpenAIAPIKey,
			Model:  opts.Model,
			Logger: opts.Logger,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
