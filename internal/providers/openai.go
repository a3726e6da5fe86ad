package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	openAIDefaultModel = "gpt-4.1"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	BaseURL    string       // Optional (tests)
	HTTPClient *http.Client // Optional (tests)
	Logger     *slog.Logger
}

// OpenAIClient implements Provider using the official OpenAI SDK.
type OpenAIClient struct {
	model  string
	client openai.Client
	logger *slog.Logger
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	model := cfg.Model
	if model == "" {
		model = openAIDefaultModel
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// The SDK retries on its own; the shared policy in withRetry owns
		// retry behavior so both providers degrade identically.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		model:  model,
		client: openai.NewClient(opts...),
		logger: logger.With("provider", OpenAIName, "model", model),
	}
}

// Name returns "openai".
func (c *OpenAIClient) Name() string { return OpenAIName }

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends a chat completion request with the shared retry policy.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	return withRetry(ctx, func() (string, error) {
		return c.doRequest(ctx, prompt, image)
	})
}

func (c *OpenAIClient) doRequest(ctx context.Context, prompt string, image []byte) (string, error) {
	var msg openai.ChatCompletionMessageParamUnion
	if len(image) > 0 {
		dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image)
		msg = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		})
	} else {
		msg = openai.UserMessage(prompt)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{msg},
	})
	if err != nil {
		var oaErr *openai.Error
		if errors.As(err, &oaErr) {
			return "", &apiError{status: oaErr.StatusCode, message: oaErr.Message}
		}
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoContent
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Provider = (*OpenAIClient)(nil)
