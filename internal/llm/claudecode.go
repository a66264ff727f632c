package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
)

const claudeCodeDefaultTimeout = 30 * time.Second

// claudeCodeClient implements Completer using the Claude Code CLI.
type claudeCodeClient struct {
	model    string
	cliPath  string
	maxTurns int
}

// newClaudeCodeClient creates a new Claude Code CLI client.
func newClaudeCodeClient(cfg Config) (*claudeCodeClient, error) {
	cliPath := cfg.ClaudeCodePath
	if cliPath == "" {
		cliPath = "claude"
	}

	if _, err := exec.LookPath(cliPath); err != nil {
		return nil, fmt.Errorf("%w: claude CLI not found at %s", common.ErrMissingConfig, cliPath)
	}

	model := cfg.Model
	if model == "" {
		model = "sonnet"
	}

	return &claudeCodeClient{
		model:    model,
		cliPath:  cliPath,
		maxTurns: 1,
	}, nil
}

func (c *claudeCodeClient) Name() string {
	return "claudecode:" + c.model
}

// Complete runs one non-interactive CLI turn.
func (c *claudeCodeClient) Complete(ctx context.Context, prompt Prompt, opts Options) (Completion, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = claudeCodeDefaultTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = withTimeout(ctx, timeout)
		defer cancel()
	}

	args := []string{
		"-p", prompt.User,
		"--output-format", "json",
		"--model", c.model,
		"--max-turns", strconv.Itoa(c.maxTurns),
	}
	if prompt.System != "" {
		args = append(args, "--system-prompt", prompt.System)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cliPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Completion{}, fmt.Errorf("claude code interrupted: %w", ctxErr)
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return Completion{}, &common.RetryableError{
			Err:       fmt.Errorf("%w: claude code error: %s", common.ErrCompletionUnavailable, detail),
			Retryable: true,
		}
	}

	var response claudeCodeResponse
	if err := json.Unmarshal(stdout.Bytes(), &response); err != nil {
		return Completion{Text: strings.TrimSpace(stdout.String()), Model: c.model}, nil
	}

	if response.IsError {
		return Completion{}, &common.RetryableError{
			Err:       fmt.Errorf("%w: claude code reported an error: %s", common.ErrCompletionUnavailable, response.Result),
			Retryable: false,
		}
	}

	return Completion{Text: strings.TrimSpace(response.Result), Model: c.model}, nil
}

// claudeCodeResponse represents the JSON response from Claude Code CLI.
type claudeCodeResponse struct {
	Result    string  `json:"result"`
	Type      string  `json:"type"`
	SessionID string  `json:"session_id"`
	IsError   bool    `json:"is_error"`
	TotalCost float64 `json:"total_cost_usd"`
}
