package bot

import (
	"context"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
	"gitlab.com/yelinaung/gastos-bot/internal/telemetry"
)

// handleCategoryCallback handles the category keyboard.
func (b *Bot) handleCategoryCallback(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCategoryCallbackCore(ctx, tgBot, update)
}

// handleCategoryCallbackCore commits the pending expense under the chosen
// category, or cancels it. A button only acts on the entry version it was
// issued for. The callback is answered exactly once.
func (b *Bot) handleCategoryCallbackCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	defer b.answerCallback(ctx, tg, cq.ID)

	code, version, ok := parseCategoryCallback(cq.Data)
	if !ok {
		logger.Log.Warn().Str("data", cq.Data).Msg("Malformed category callback")
		return
	}

	chatID, messageID := callbackMessage(cq)

	if code == models.CancelCode {
		b.cancelPending(ctx, tg, cq.From.ID, chatID, messageID, version)
		return
	}

	category, known := b.lookupCategory(code)
	if !known {
		logger.Log.Warn().
			Str("user_hash", logger.HashUserID(cq.From.ID)).
			Str("code", code).
			Msg("Unknown category in callback")
		b.reply(ctx, tg, chatID, msgExpired)
		return
	}

	b.commit(ctx, tg, cq.From.ID, chatID, messageID, version, category.Code)
}

// lookupCategory finds code in the active set, then in the built-in sets so
// keyboards sent before a configuration change still work.
func (b *Bot) lookupCategory(code string) (models.Category, bool) {
	sets := [][]models.Category{b.categories}
	for _, name := range []string{models.CategorySetV2, models.CategorySetV1} {
		if cats, ok := models.CategorySetByName(name); ok {
			sets = append(sets, cats)
		}
	}

	for _, cats := range sets {
		for _, c := range cats {
			if c.Code == code {
				return c, true
			}
		}
	}
	return models.Category{}, false
}

// cancelPending drops the entry the keyboard was issued for, in any state.
func (b *Bot) cancelPending(ctx context.Context, tg TelegramAPI, userID, chatID int64, messageID int, version uint64) {
	unlock := b.sessions.Lock(userID)
	defer unlock()

	pending, ok := b.sessions.Get(userID)
	if !ok || pending.Version != version {
		b.reply(ctx, tg, chatID, msgExpired)
		return
	}

	b.sessions.Delete(userID)
	logger.Log.Debug().
		Str("user_hash", logger.HashUserID(userID)).
		Uint64("version", version).
		Msg("Pending expense cancelled")

	b.editOrReply(ctx, tg, chatID, messageID, msgCancelled, nil)
}

// commit writes the pending expense to the ledger and only then removes it.
// A failed write leaves the entry in place so the user can pick the category
// again.
func (b *Bot) commit(
	ctx context.Context,
	tg TelegramAPI,
	userID, chatID int64,
	messageID int,
	version uint64,
	category string,
) {
	unlock := b.sessions.Lock(userID)
	defer unlock()

	pending, ok := b.sessions.Get(userID)
	if !ok || pending.Version != version {
		b.reply(ctx, tg, chatID, msgExpired)
		return
	}

	switch pending.State {
	case session.StateAwaitingCategory:
	case session.StateAwaitingDescription:
		b.reply(ctx, tg, chatID, msgDescribeFirst)
		return
	default:
		b.reply(ctx, tg, chatID, msgConfirmFirst)
		return
	}

	record := models.ExpenseRecord{
		Timestamp:       b.now().In(b.loc),
		Amount:          pending.Amount,
		Description:     pending.Description,
		Category:        category,
		SourceReference: pending.SourceReference,
	}
	if record.SourceReference == models.SourcePending {
		record.SourceReference = models.SourceUnavailable
	}

	ctx, span := telemetry.Tracer().Start(ctx, "bot.commit")
	defer span.End()
	span.SetAttributes(attribute.String("category", category))

	err := b.ledger.LoadSchema(ctx)
	if err == nil {
		err = b.ledger.AppendRow(ctx, record)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger write failed")
		b.metrics.LedgerFailure(ctx, "append")
		logger.Log.Error().Err(err).
			Str("component", "ledger").
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Failed to save expense")
		b.reply(ctx, tg, chatID, saveFailedText(b.cfg.LedgerBackend))
		return
	}

	b.sessions.Delete(userID)
	b.metrics.ExpenseCommitted(ctx, category, pending.SourceReference != models.SourceManual)

	logger.Log.Info().
		Str("user_hash", logger.HashUserID(userID)).
		Str("category", category).
		Str("description", logger.SanitizeDescription(pending.Description)).
		Msg("Expense committed")

	b.editOrReply(ctx, tg, chatID, messageID, committedText(pending.Amount, pending.Description, category), nil)
}
