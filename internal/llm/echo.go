package llm

import (
	"context"
	"strings"
)

// EchoClient is an offline Client for development without an API key. It
// replays the final user turn, which for response generation is the
// instruction carrying the action confirmation.
type EchoClient struct{}

func NewEchoClient() *EchoClient {
	return &EchoClient{}
}

func (c *EchoClient) Complete(ctx context.Context, system string, messages []Message) (string, error) {
	return lastUserContent(messages), nil
}

func (c *EchoClient) CompleteStructured(ctx context.Context, system string, messages []Message) (string, error) {
	return lastUserContent(messages), nil
}

func lastUserContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return ""
}
