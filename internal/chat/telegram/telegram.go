// Package telegram provides Telegram Bot API delivery using the
// go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"tunecard/internal/chat"
	"tunecard/internal/flood"
)

const (
	chatTypeGroup      = "group"
	chatTypeSuperGroup = "supergroup"

	defaultFloodLimitPerMinute = 6
)

// Config holds Telegram-specific configuration
type Config struct {
	BotToken            string
	GroupID             int64 // Chat ID of the group to monitor; 0 listens everywhere
	Enabled             bool
	FloodLimitPerMinute int
}

// Frontend implements the chat.Frontend interface for Telegram
type Frontend struct {
	config    *Config
	logger    *zap.Logger
	bot       *bot.Bot
	floodgate *flood.Gate

	messageHandler func(*chat.Message)
}

// NewFrontend creates a new Telegram frontend
func NewFrontend(config *Config, logger *zap.Logger) *Frontend {
	limit := config.FloodLimitPerMinute
	if limit <= 0 {
		limit = defaultFloodLimitPerMinute
	}

	return &Frontend{
		config:    config,
		logger:    logger,
		floodgate: flood.New(limit),
	}
}

// Start initializes the Telegram bot
func (f *Frontend) Start(ctx context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("Telegram frontend is disabled, skipping initialization")
		return nil
	}

	f.logger.Info("Starting Telegram frontend",
		zap.Int64("group_id", f.config.GroupID))

	b, err := bot.New(f.config.BotToken, bot.WithDefaultHandler(f.handleUpdate))
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	f.bot = b

	if f.config.GroupID != 0 {
		if _, err := b.GetChat(ctx, &bot.GetChatParams{ChatID: f.config.GroupID}); err != nil {
			return fmt.Errorf("failed to verify group access: %w", err)
		}
	}

	f.logger.Info("Telegram frontend started successfully")
	return nil
}

// Listen starts listening for messages and calls the handler for each message
func (f *Frontend) Listen(ctx context.Context, handler func(*chat.Message)) error {
	if !f.config.Enabled {
		return nil
	}

	f.messageHandler = handler
	f.bot.Start(ctx)
	return nil
}

// Stop releases frontend resources, stopping the flood gate's sweeper.
func (f *Frontend) Stop() {
	f.floodgate.Stop()
}

// SendCard delivers a summary card, as a photo with caption when the
// card carries artwork and as a plain markdown message otherwise.
func (f *Frontend) SendCard(ctx context.Context, chatID, replyToID string, card *chat.Card) (string, error) {
	if !f.config.Enabled {
		return "", fmt.Errorf("telegram frontend is disabled")
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	var reply *models.ReplyParameters
	if replyToID != "" {
		messageID, parseErr := strconv.Atoi(replyToID)
		if parseErr != nil {
			return "", fmt.Errorf("invalid reply message ID: %w", parseErr)
		}
		reply = &models.ReplyParameters{MessageID: messageID}
	}

	text := card.Text()

	if card.ThumbnailURL != "" {
		msg, sendErr := f.bot.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:          chatIDInt,
			Photo:           &models.InputFileString{Data: card.ThumbnailURL},
			Caption:         text,
			ParseMode:       models.ParseModeMarkdown,
			ReplyParameters: reply,
		})
		if sendErr == nil {
			return strconv.Itoa(msg.ID), nil
		}
		// A rejected photo URL should not lose the card.
		f.logger.Debug("Failed to send card as photo, retrying as text",
			zap.Error(sendErr))
	}

	disabled := true
	msg, err := f.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatIDInt,
		Text:      text,
		ParseMode: models.ParseModeMarkdown,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disabled,
		},
		ReplyParameters: reply,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send card: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// handleUpdate processes incoming Telegram updates
func (f *Frontend) handleUpdate(_ context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message != nil {
		f.handleMessage(update.Message)
	}
}

// handleMessage converts and forwards messages from the configured group
func (f *Frontend) handleMessage(msg *models.Message) {
	if f.config.GroupID != 0 && msg.Chat.ID != f.config.GroupID {
		return
	}
	if msg.From == nil || msg.From.IsBot {
		return
	}

	message := toMessage(msg)
	if !f.floodgate.Allow(message.ChatID, message.SenderID) {
		f.logger.Debug("Dropping message, user exceeded flood limit",
			zap.String("chat_id", message.ChatID),
			zap.String("sender_id", message.SenderID))
		return
	}
	if f.messageHandler != nil {
		f.messageHandler(message)
	}
}

// toMessage converts a Telegram message to the unified format
func toMessage(msg *models.Message) *chat.Message {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	return &chat.Message{
		ID:         strconv.Itoa(msg.ID),
		ChatID:     strconv.FormatInt(msg.Chat.ID, 10),
		SenderID:   strconv.FormatInt(msg.From.ID, 10),
		SenderName: displayName(msg.From),
		Text:       text,
		IsGroup:    msg.Chat.Type == chatTypeGroup || msg.Chat.Type == chatTypeSuperGroup,
		Raw:        msg,
	}
}

// displayName builds a human-readable name for a Telegram user
func displayName(user *models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
