package llm

import "context"

// Message is one chat turn handed to the model.
type Message struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Client is the black-box LLM: system prompt plus messages in, text out.
// CompleteStructured constrains the model to emit a single JSON object.
type Client interface {
	Complete(ctx context.Context, system string, messages []Message) (string, error)
	CompleteStructured(ctx context.Context, system string, messages []Message) (string, error)
}
