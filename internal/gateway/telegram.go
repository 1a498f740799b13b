// Package gateway exposes the conversation pipeline over Telegram. Each
// configured chat is bound to one household member: messages from the
// parent chat run as Parent turns, messages from Timmy's chat as Timmy
// turns, and the pipeline's reply goes back to the same chat.
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mrfrench/backend/internal/models"
	"github.com/mrfrench/backend/internal/orchestrator"
	"github.com/mrfrench/backend/internal/storage"
	"github.com/mrfrench/backend/internal/tasks"
	"go.uber.org/zap"
)

type Bot struct {
	api          *tgbotapi.BotAPI
	orch         *orchestrator.Orchestrator
	store        storage.TaskStore
	parentChatID int64
	childChatID  int64
	logger       *zap.Logger
}

func New(token string, parentChatID, childChatID int64, orch *orchestrator.Orchestrator, store storage.TaskStore, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:          api,
		orch:         orch,
		store:        store,
		parentChatID: parentChatID,
		childChatID:  childChatID,
		logger:       logger,
	}, nil
}

// Start consumes updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	speaker, ok := b.speakerFor(message.Chat.ID)
	if !ok {
		b.logger.Warn("message from unconfigured chat", zap.Int64("chat_id", message.Chat.ID))
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	reply, err := b.orch.Handle(ctx, orchestrator.Turn{
		Channel: b.channelFor(speaker, content),
		Speaker: speaker,
		Text:    content,
	})
	if err != nil {
		b.logger.Error("Failed to process turn",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't process that message. Please try again.")
		return
	}
	if reply == nil {
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, reply.Text)
	msg.ReplyToMessageID = message.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) speakerFor(chatID int64) (models.Speaker, bool) {
	switch chatID {
	case b.parentChatID:
		return models.SpeakerParent, true
	case b.childChatID:
		return models.SpeakerChild, true
	}
	return "", false
}

// channelFor mirrors the HTTP surface's routing: a "mr. french" mention
// from the parent goes to the mediator channel, anything else from the
// parent addresses Timmy, and Timmy's chat always talks to the mediator.
func (b *Bot) channelFor(speaker models.Speaker, content string) models.Channel {
	if speaker == models.SpeakerChild {
		return models.ChannelChildMediator
	}
	if strings.Contains(strings.ToLower(content), "mr. french") {
		return models.ChannelParentMediator
	}
	return models.ChannelParentChild
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "tasks":
		b.handleTasks(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Hello! I'm Mr. French, your household assistant.

Just talk to me normally: I keep track of Timmy's tasks, deadlines, and rewards.
Use /tasks to see the current list, or /help for all commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Introduce the assistant
/help - Show this help message
/tasks - Show the current task list

Anything else you send is treated as conversation:
- Parents can assign, update, or remove Timmy's tasks
- Timmy can report progress or ask what's due
- Mention "Mr. French" to talk to me directly`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleTasks(ctx context.Context, message *tgbotapi.Message) {
	all, err := b.store.List(ctx, "")
	if err != nil {
		b.logger.Error("Failed to list tasks",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve the task list.")
		return
	}
	b.sendMessage(message.Chat.ID, tasks.FormatTaskList(all, time.Now()))
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
