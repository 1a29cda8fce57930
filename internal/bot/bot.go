// Package bot provides the Telegram bot initialization and handlers.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/gastos-bot/internal/archive"
	"gitlab.com/yelinaung/gastos-bot/internal/chart"
	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/ledger"
	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/ocr"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
	"gitlab.com/yelinaung/gastos-bot/internal/telemetry"
)

// Deps are the collaborators the handlers drive.
type Deps struct {
	Sessions *session.Store
	Ledger   ledger.Ledger
	// Recognizer may be nil, which disables the photo flow.
	Recognizer ocr.Recognizer
	Archiver   archive.Archiver
	// Renderer may be nil, which sends summaries without a chart.
	Renderer   chart.Renderer
	Metrics    *telemetry.Metrics
	HTTPClient *http.Client
}

// Bot wraps the Telegram bot with application dependencies.
type Bot struct {
	bot        *bot.Bot
	cfg        *config.Config
	sessions   *session.Store
	ledger     ledger.Ledger
	recognizer ocr.Recognizer
	archiver   archive.Archiver
	renderer   chart.Renderer
	metrics    *telemetry.Metrics
	httpClient *http.Client
	categories []models.Category
	loc        *time.Location
	now        func() time.Time

	background sync.WaitGroup
}

// New creates a new Bot instance.
func New(cfg *config.Config, deps Deps) (*Bot, error) {
	b := newBot(cfg, deps)

	opts := []bot.Option{
		bot.WithMiddlewares(b.whitelistMiddleware),
		bot.WithDefaultHandler(b.defaultHandler),
	}

	telegramBot, err := bot.New(cfg.TelegramBotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b.bot = telegramBot
	b.registerHandlers()

	return b, nil
}

func newBot(cfg *config.Config, deps Deps) *Bot {
	b := &Bot{
		cfg:        cfg,
		sessions:   deps.Sessions,
		ledger:     deps.Ledger,
		recognizer: deps.Recognizer,
		archiver:   deps.Archiver,
		renderer:   deps.Renderer,
		metrics:    deps.Metrics,
		httpClient: deps.HTTPClient,
		categories: cfg.Categories,
		loc:        cfg.Location,
		now:        time.Now,
	}

	if b.sessions == nil {
		b.sessions = session.NewStore(cfg.PendingTTL)
	}
	if b.archiver == nil {
		b.archiver = archive.Disabled{}
	}
	if b.httpClient == nil {
		b.httpClient = ocr.DefaultHTTPClient
	}
	if len(b.categories) == 0 {
		b.categories, _ = models.CategorySetByName(models.CategorySetV2)
	}
	if b.loc == nil {
		b.loc = time.Local
	}
	return b
}

// Start begins polling for updates.
func (b *Bot) Start(ctx context.Context) {
	logger.Log.Info().Msg("Bot started polling")
	b.bot.Start(ctx)
}

// Wait blocks until background receipt archival has finished.
func (b *Bot) Wait() {
	b.background.Wait()
}

// Sessions exposes the pending-expense store to the scheduler sweep.
func (b *Bot) Sessions() *session.Store {
	return b.sessions
}

// registerHandlers sets up command and callback handlers.
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/ayuda", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/categorias", bot.MatchTypePrefix, b.handleCategories)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancelar", bot.MatchTypePrefix, b.handleCancel)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/resumen", bot.MatchTypePrefix, b.handleSummary)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/exportar", bot.MatchTypePrefix, b.handleExport)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, categoryPrefix, bot.MatchTypePrefix, b.handleCategoryCallback)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, receiptPrefix, bot.MatchTypePrefix, b.handleReceiptCallback)
}

// whitelistMiddleware checks if the user is whitelisted before processing.
func (b *Bot) whitelistMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
		b.filterUpdate(ctx, tgBot, update, func(ctx context.Context, update *tgmodels.Update) {
			next(ctx, tgBot, update)
		})
	}
}

// filterUpdate drops updates without a sender and rejects users outside the
// access list with a notice.
func (b *Bot) filterUpdate(
	ctx context.Context,
	tg TelegramAPI,
	update *tgmodels.Update,
	next func(context.Context, *tgmodels.Update),
) {
	userID := extractUserID(update)
	if userID == 0 {
		return
	}

	username := extractUsername(update)
	logUserAction(userID, update)

	if !b.cfg.IsUserWhitelisted(userID, username) {
		logger.Log.Warn().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Blocked non-whitelisted user")

		switch {
		case update.Message != nil:
			_, _ = tg.SendMessage(ctx, &bot.SendMessageParams{
				ChatID: update.Message.Chat.ID,
				Text:   msgUnauthorized,
			})
		case update.CallbackQuery != nil:
			_, _ = tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
				CallbackQueryID: update.CallbackQuery.ID,
				Text:            msgUnauthorized,
				ShowAlert:       true,
			})
		}
		return
	}

	next(ctx, update)
}

// logUserAction logs the user's input without exposing identities or content.
func logUserAction(userID int64, update *tgmodels.Update) {
	switch {
	case update.Message != nil:
		msg := update.Message
		event := logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("chat_hash", logger.HashChatID(msg.Chat.ID))

		switch {
		case len(msg.Photo) > 0:
			event = event.Str("type", "photo")
		case isCommand(msg.Text):
			event = event.Str("type", "command").Str("command", commandName(msg.Text))
		default:
			event = event.Str("type", "text").Str("text", logger.SanitizeText(msg.Text))
		}

		event.Msg("User input")

	case update.CallbackQuery != nil:
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("data", update.CallbackQuery.Data).
			Msg("Callback query")
	}
}

// extractUsername gets the username from the update.
func extractUsername(update *tgmodels.Update) string {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.Username
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.Username
	}
	return ""
}

// extractUserID gets the user ID from various update types.
func extractUserID(update *tgmodels.Update) int64 {
	if update.Message != nil && update.Message.From != nil {
		return update.Message.From.ID
	}
	if update.CallbackQuery != nil {
		return update.CallbackQuery.From.ID
	}
	return 0
}

// defaultHandler routes photos to the receipt flow and any other text to the
// expense parser. Stray callbacks are only acknowledged.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.defaultHandlerCore(ctx, tgBot, update)
}

func (b *Bot) defaultHandlerCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if cq := update.CallbackQuery; cq != nil {
		logger.Log.Warn().Str("data", cq.Data).Msg("Unhandled callback query")
		b.answerCallback(ctx, tg, cq.ID)
		return
	}
	if update.Message == nil {
		return
	}

	switch {
	case len(update.Message.Photo) > 0:
		b.handlePhotoCore(ctx, tg, update)
	case isCommand(update.Message.Text):
		b.reply(ctx, tg, update.Message.Chat.ID, msgUnknownCommand)
	case update.Message.Text != "":
		b.handleTextCore(ctx, tg, update)
	}
}

// reply sends a plain text message and logs delivery failures.
func (b *Bot) reply(ctx context.Context, tg TelegramAPI, chatID int64, text string) {
	b.send(ctx, tg, &bot.SendMessageParams{ChatID: chatID, Text: text})
}

func (b *Bot) send(ctx context.Context, tg TelegramAPI, params *bot.SendMessageParams) {
	if _, err := tg.SendMessage(ctx, params); err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send message")
	}
}

// editOrReply edits the message a button belongs to, falling back to a new
// message when the original cannot be edited.
func (b *Bot) editOrReply(
	ctx context.Context,
	tg TelegramAPI,
	chatID int64,
	messageID int,
	text string,
	markup tgmodels.ReplyMarkup,
) {
	if messageID != 0 {
		_, err := tg.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ReplyMarkup: markup,
		})
		if err == nil {
			return
		}
		logger.Log.Warn().Err(err).Msg("Failed to edit message, sending a new one")
	}
	b.send(ctx, tg, &bot.SendMessageParams{ChatID: chatID, Text: text, ReplyMarkup: markup})
}
