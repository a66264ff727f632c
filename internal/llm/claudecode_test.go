package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClaude writes an executable script that stands in for the claude CLI.
func fakeClaude(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o700))
	return path
}

func TestNewClaudeCodeClient(t *testing.T) {
	t.Run("missing binary", func(t *testing.T) {
		_, err := newClaudeCodeClient(Config{ClaudeCodePath: filepath.Join(t.TempDir(), "nope")})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("defaults", func(t *testing.T) {
		client, err := newClaudeCodeClient(Config{ClaudeCodePath: fakeClaude(t, "exit 0\n")})
		require.NoError(t, err)
		assert.Equal(t, "claudecode:sonnet", client.Name())
	})
}

func TestClaudeCodeComplete(t *testing.T) {
	tests := []struct {
		name      string
		script    string
		wantText  string
		wantErr   error
		retryable bool
	}{
		{
			name:     "json result",
			script:   `echo '{"result":"  Try the Jigarthanda.  ","type":"result","is_error":false}'` + "\n",
			wantText: "Try the Jigarthanda.",
		},
		{
			name:     "plain text output",
			script:   "echo 'plain answer'\n",
			wantText: "plain answer",
		},
		{
			name:    "error flag in response",
			script:  `echo '{"result":"quota","is_error":true}'` + "\n",
			wantErr: common.ErrCompletionUnavailable,
		},
		{
			name:      "non-zero exit",
			script:    "echo 'boom' >&2\nexit 3\n",
			wantErr:   common.ErrCompletionUnavailable,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newClaudeCodeClient(Config{ClaudeCodePath: fakeClaude(t, tt.script)})
			require.NoError(t, err)

			got, err := client.Complete(context.Background(), Prompt{System: "sys", User: "user"}, Options{})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.retryable, common.IsRetryable(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Text)
		})
	}
}

func TestClaudeCodeComplete_Canceled(t *testing.T) {
	client, err := newClaudeCodeClient(Config{ClaudeCodePath: fakeClaude(t, "sleep 5\n")})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = client.Complete(ctx, Prompt{User: "hi"}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
