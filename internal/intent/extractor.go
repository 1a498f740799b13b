package intent

import (
	"context"
	"fmt"

	"github.com/mrfrench/backend/internal/llm"
	"github.com/mrfrench/backend/internal/models"
	"go.uber.org/zap"
)

// Extractor classifies one message into an intent Record, given recent
// channel history and a rendered task context.
type Extractor interface {
	Analyze(ctx context.Context, input string, channel models.Channel, history []models.Message, taskContext string) (Record, error)
}

// LLMExtractor runs the observer prompt against a real model. Decode
// failures are not errors: they come back as a KindNoTask record. Only a
// failed model call returns a non-nil error.
type LLMExtractor struct {
	client llm.Client
	logger *zap.Logger
}

func NewLLMExtractor(client llm.Client, logger *zap.Logger) *LLMExtractor {
	return &LLMExtractor{client: client, logger: logger}
}

func (e *LLMExtractor) Analyze(ctx context.Context, input string, channel models.Channel, history []models.Message, taskContext string) (Record, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	for _, msg := range history {
		role := llm.RoleUser
		if msg.Sender == models.SpeakerMediator {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: input})

	raw, err := e.client.CompleteStructured(ctx, ObserverPrompt(taskContext), messages)
	if err != nil {
		return NoTask("", err.Error()), fmt.Errorf("intent analysis: %w", err)
	}

	rec := Decode(raw)
	if rec.ParseError != "" {
		e.logger.Warn("intent parse failed, falling back to NO_TASK_IDENTIFIED",
			zap.String("channel", string(channel)),
			zap.String("reason", rec.ParseError),
			zap.String("raw", raw))
	}
	return rec, nil
}
