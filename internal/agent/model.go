// Package agent runs the tool-mediated investigation loop: it brokers between
// the language model, the tool contract, and the corpus adapter, and enforces
// the evidence discipline the model cannot be trusted to keep on its own.
package agent

import "context"

// ToolInvocation is one raw tool call as the model issued it, before
// validation.
type ToolInvocation struct {
	Name string
	Args map[string]any
}

// Turn is one model reply: tool calls, final text, or both. A turn with no
// calls is treated as an answer attempt.
type Turn struct {
	Text  string
	Calls []ToolInvocation
}

// ToolResult carries one tool's rendered output (or rejection) back to the
// model.
type ToolResult struct {
	Name    string
	Output  string
	IsError bool
}

// Conversation is one multi-turn exchange with the model.
type Conversation interface {
	// Send delivers a user message and returns the model's turn.
	Send(ctx context.Context, text string) (*Turn, error)
	// SendToolResults delivers tool outputs and returns the model's next turn.
	SendToolResults(ctx context.Context, results []ToolResult) (*Turn, error)
}

// ModelClient opens tool-enabled conversations and answers one-shot prompts.
// The loop and the verifier depend on this interface, never on a concrete
// SDK, so tests can script the model.
type ModelClient interface {
	StartConversation(ctx context.Context, systemPrompt string) (Conversation, error)
	// Generate answers a single prompt with no tools, used for independent
	// evaluation during verification.
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
