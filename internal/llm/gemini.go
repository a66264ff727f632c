package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/local-guide/internal/common"
	"google.golang.org/genai"
)

// geminiClient implements Completer with the official genai SDK.
type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(ctx context.Context, cfg Config) (*geminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiClient{client: client, model: model}, nil
}

func (c *geminiClient) Name() string {
	return "gemini:" + c.model
}

// Complete sends one GenerateContent request.
func (c *geminiClient) Complete(ctx context.Context, prompt Prompt, opts Options) (Completion, error) {
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxTokens), //nolint:gosec // bounded by config validation
	}
	if prompt.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.User), genCfg)
	if err != nil {
		return Completion{}, classifyGeminiError(err)
	}

	return Completion{Text: resp.Text(), Model: c.model}, nil
}

func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return statusError("gemini", apiErr.Code, apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return statusError("gemini", apiErrPtr.Code, apiErrPtr.Message)
	}
	return transportError("gemini", err)
}
