package bot

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
)

// handleTextCore handles a free-text message. A user waiting to describe a
// receipt gets the text recorded as the concept; anyone else starts a new
// pending expense from "<amount> <description>".
func (b *Bot) handleTextCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	unlock := b.sessions.Lock(userID)
	defer unlock()

	if pending, ok := b.sessions.Get(userID); ok && pending.AwaitingDescription() {
		b.recordDescription(ctx, tg, pending, text)
		return
	}

	parsed, err := ParseExpenseInput(text)
	if err != nil {
		if !errors.Is(err, ErrMalformedInput) {
			logger.Log.Error().Err(err).Msg("Unexpected parser error")
		}
		b.reply(ctx, tg, chatID, msgFormatHint)
		return
	}

	stored := b.sessions.Set(session.PendingExpense{
		UserID:          userID,
		ChatID:          chatID,
		Amount:          parsed.Amount,
		Description:     parsed.Description,
		SourceReference: models.SourceManual,
		State:           session.StateAwaitingCategory,
	})

	logger.Log.Debug().
		Str("user_hash", logger.HashUserID(userID)).
		Str("description", logger.SanitizeDescription(parsed.Description)).
		Uint64("version", stored.Version).
		Msg("Pending expense created")

	b.send(ctx, tg, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        categoryPromptText(stored.Amount),
		ReplyMarkup: buildCategoryKeyboard(b.categories, stored.Version),
	})
}

// recordDescription stores the concept of a receipt expense and moves it on
// to the category prompt. The caller holds the user lock.
func (b *Bot) recordDescription(ctx context.Context, tg TelegramAPI, pending session.PendingExpense, text string) {
	description := strings.Join(strings.Fields(text), " ")

	updated, err := b.sessions.Update(pending.UserID, pending.Version, func(p *session.PendingExpense) {
		p.Description = description
		p.State = session.StateAwaitingCategory
	})
	if err != nil {
		b.reply(ctx, tg, pending.ChatID, msgExpired)
		return
	}

	b.send(ctx, tg, &bot.SendMessageParams{
		ChatID:      updated.ChatID,
		Text:        categoryPromptText(updated.Amount),
		ReplyMarkup: buildCategoryKeyboard(b.categories, updated.Version),
	})
}
