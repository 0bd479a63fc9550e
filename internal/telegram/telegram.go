// Package telegram implements the conversational intake state machine
// that turns chat messages and button presses into confirmed
// transactions.
package telegram

import (
	"context"
	"os"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/pocketbudget/backend/internal/llm"
	"github.com/pocketbudget/backend/internal/models"
	"github.com/pocketbudget/backend/internal/types"
	"gorm.io/gorm"
)

// Assistant is the language-model collaborator used by the intake flow.
// *llm.Client implements it.
type Assistant interface {
	ParseTransactions(ctx context.Context, text string, categories []string, referenceDate types.Day) (llm.ParseResult, error)
	ApplyEdits(ctx context.Context, instruction string, drafts []models.Draft, categories []string, referenceDate types.Day) (llm.EditResult, error)
	SuggestCategories(ctx context.Context, profileText string) ([]string, error)
}

// Sender is the outbound messaging channel.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) error
	AnswerCallback(ctx context.Context, callbackQueryID string, text string) error
}

// BotSender sends messages through the Telegram Bot API.
type BotSender struct {
	api *bot.Bot
}

// NewBotSender creates a sender for the given bot token.
func NewBotSender(token string) (*BotSender, error) {
	// The default handler is never invoked since updates arrive via
	// webhook, not long polling
	api, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}

	return &BotSender{api: api}, nil
}

// NewBotSenderFromEnv creates a sender from TELEGRAM_BOT_TOKEN.
func NewBotSenderFromEnv() (*BotSender, error) {
	return NewBotSender(os.Getenv("TELEGRAM_BOT_TOKEN"))
}

func (s *BotSender) SendMessage(ctx context.Context, chatID int64, text string, markup tgmodels.ReplyMarkup) error {
	_, err := s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
		ParseMode:   tgmodels.ParseModeHTML,
	})
	return err
}

func (s *BotSender) AnswerCallback(ctx context.Context, callbackQueryID string, text string) error {
	_, err := s.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackQueryID,
		Text:            text,
	})
	return err
}

// Handler drives the intake state machine for inbound webhook updates.
type Handler struct {
	db        *gorm.DB
	assistant Assistant
	sender    Sender
}

// NewHandler creates a webhook handler with its collaborators.
func NewHandler(db *gorm.DB, assistant Assistant, sender Sender) *Handler {
	return &Handler{db: db, assistant: assistant, sender: sender}
}
