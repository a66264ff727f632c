// Package llm provides the completion capability used by the answer
// generator. It supports OpenAI, Anthropic, Gemini and the Claude Code CLI
// behind a single Completer interface, with optional client-side rate
// limiting.
package llm
