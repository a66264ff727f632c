package testutil

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/Veraticus/local-guide/internal/llm"
	"github.com/Veraticus/local-guide/internal/model"
)

// CompleterFunc adapts a function to llm.Completer.
type CompleterFunc func(ctx context.Context, prompt llm.Prompt, opts llm.Options) (llm.Completion, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt llm.Prompt, opts llm.Options) (llm.Completion, error) {
	return f(ctx, prompt, opts)
}

// Name identifies the fake.
func (f CompleterFunc) Name() string {
	return "func"
}

// StaticCompleter always returns Text, recording every prompt it sees.
type StaticCompleter struct {
	Err     error
	Text    string
	prompts []llm.Prompt
	mu      sync.Mutex
}

// Complete records prompt and returns the canned result.
func (s *StaticCompleter) Complete(ctx context.Context, prompt llm.Prompt, _ llm.Options) (llm.Completion, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return llm.Completion{}, err
	}
	if s.Err != nil {
		return llm.Completion{}, s.Err
	}
	return llm.Completion{Text: s.Text, Model: "static"}, nil
}

// Name identifies the fake.
func (s *StaticCompleter) Name() string {
	return "static"
}

// Calls is the number of Complete invocations.
func (s *StaticCompleter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a copy of every prompt seen.
func (s *StaticCompleter) Prompts() []llm.Prompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Prompt, len(s.prompts))
	copy(out, s.prompts)
	return out
}

// ExtractiveCompleter answers by quoting the single context sentence that
// best matches the question, and declines with a refusal phrase when no
// sentence matches. It behaves like a perfectly obedient model.
type ExtractiveCompleter struct {
	calls int
	mu    sync.Mutex
}

var (
	contextMarker  = regexp.MustCompile(`(?m)^LOCAL CONTEXT \(([^)]*)\):\n`)
	questionMarker = regexp.MustCompile(`(?m)^Question about [^:]+: (.*)$`)
	sentenceSplit  = regexp.MustCompile(`(?:[.!?])\s+|\n+`)
	extractWords   = regexp.MustCompile(`[a-z]+`)
)

var extractStopwords = map[string]bool{
	"what": true, "where": true, "when": true, "which": true, "does": true, "with": true,
	"that": true, "this": true, "there": true, "have": true, "from": true, "about": true,
	"should": true, "would": true, "could": true, "best": true, "good": true, "tell": true,
}

// Complete implements llm.Completer.
func (e *ExtractiveCompleter) Complete(ctx context.Context, prompt llm.Prompt, _ llm.Options) (llm.Completion, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return llm.Completion{}, err
	}

	loc := contextMarker.FindStringSubmatchIndex(prompt.System)
	q := questionMarker.FindStringSubmatch(prompt.User)
	if loc == nil || q == nil {
		return llm.Completion{Text: string(model.RefusalNotEnoughData), Model: "extractive"}, nil
	}
	city := strings.ToLower(prompt.System[loc[2]:loc[3]])
	knowledgeText := prompt.System[loc[1]:]

	queryWords := map[string]bool{}
	for _, w := range extractWords.FindAllString(strings.ToLower(q[1]), -1) {
		if len(w) >= 4 && !extractStopwords[w] && w != city {
			queryWords[w] = true
		}
	}

	best, bestScore := "", 0
	for _, sentence := range sentenceSplit.Split(knowledgeText, -1) {
		sentence = strings.TrimRight(strings.TrimSpace(sentence), ".!?")
		if sentence == "" || strings.HasPrefix(sentence, "#") {
			continue
		}
		score := 0
		for _, w := range extractWords.FindAllString(strings.ToLower(sentence), -1) {
			if queryWords[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = sentence, score
		}
	}

	if bestScore == 0 {
		return llm.Completion{Text: string(model.RefusalNotEnoughData), Model: "extractive"}, nil
	}
	return llm.Completion{Text: best + ".", Model: "extractive"}, nil
}

// Name identifies the fake.
func (e *ExtractiveCompleter) Name() string {
	return "extractive"
}

// Calls is the number of Complete invocations.
func (e *ExtractiveCompleter) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
