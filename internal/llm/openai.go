package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/sashabaranov/go-openai"
)

// openAIClient implements Completer with the go-openai SDK.
type openAIClient struct {
	client *openai.Client
	model  string
}

// newOpenAIClient creates a new OpenAI API client.
func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &openAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

func (c *openAIClient) Name() string {
	return "openai:" + c.model
}

// Complete sends one chat completion request.
func (c *openAIClient) Complete(ctx context.Context, prompt Prompt, opts Options) (Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.System},
			{Role: openai.ChatMessageRoleUser, Content: prompt.User},
		},
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Completion{}, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return Completion{Model: resp.Model}, nil
	}

	return Completion{Text: resp.Choices[0].Message.Content, Model: resp.Model}, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError("openai", apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		status := reqErr.HTTPStatusCode
		if status == 0 {
			status = http.StatusBadGateway
		}
		return statusError("openai", status, reqErr.Error())
	}

	return transportError("openai", err)
}
