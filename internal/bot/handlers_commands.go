package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel/codes"

	"gitlab.com/yelinaung/gastos-bot/internal/export"
	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/summary"
	"gitlab.com/yelinaung/gastos-bot/internal/telemetry"
)

// handleStart handles the /start command.
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleStartCore(ctx, tgBot, update)
}

func (b *Bot) handleStartCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	firstName := ""
	if update.Message.From != nil {
		firstName = update.Message.From.FirstName
	}
	b.reply(ctx, tg, update.Message.Chat.ID, welcomeText(firstName))
}

// handleHelp handles the /ayuda command.
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	b.reply(ctx, tgBot, update.Message.Chat.ID, helpText)
}

// handleCategories handles the /categorias command.
func (b *Bot) handleCategories(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCategoriesCore(ctx, tgBot, update)
}

func (b *Bot) handleCategoriesCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}
	b.reply(ctx, tg, update.Message.Chat.ID, categoriesText(b.categories))
}

// handleCancel handles the /cancelar command.
func (b *Bot) handleCancel(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleCancelCore(ctx, tgBot, update)
}

func (b *Bot) handleCancelCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}

	unlock := b.sessions.Lock(msg.From.ID)
	deleted := b.sessions.Delete(msg.From.ID)
	unlock()

	if !deleted {
		b.reply(ctx, tg, msg.Chat.ID, msgNothingPending)
		return
	}
	b.reply(ctx, tg, msg.Chat.ID, msgCancelled)
}

// handleSummary handles the /resumen command.
func (b *Bot) handleSummary(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleSummaryCore(ctx, tgBot, update)
}

func (b *Bot) handleSummaryCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	b.reply(ctx, tg, chatID, msgSummaryStart)

	if err := b.sendSummary(ctx, tg, chatID); err != nil {
		b.reply(ctx, tg, chatID, msgSummaryFailed)
	}
}

// SendMonthlySummary pushes the current month's summary to chatID. It is
// used by the scheduled summary job.
func (b *Bot) SendMonthlySummary(ctx context.Context, chatID int64) error {
	return b.sendSummary(ctx, b.bot, chatID)
}

// sendSummary replies with the month's per-category totals followed by a
// chart. Only a failure to read the ledger is returned; a chart failure
// leaves the text summary in place.
func (b *Bot) sendSummary(ctx context.Context, tg TelegramAPI, chatID int64) error {
	ctx, span := telemetry.Tracer().Start(ctx, "bot.summary")
	defer span.End()

	rows, err := b.readLedger(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger read failed")
		return err
	}

	s := summary.Aggregate(rows, b.now(), b.loc)
	if s.Skipped > 0 {
		logger.Log.Warn().Int("skipped", s.Skipped).Msg("Ledger rows skipped while summarizing")
	}

	if s.Empty() {
		b.reply(ctx, tg, chatID, msgSummaryEmpty)
		return nil
	}

	b.send(ctx, tg, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      summary.FormatMessage(s, b.cfg.Currency),
		ParseMode: tgmodels.ParseModeMarkdownV1,
	})

	b.sendChart(ctx, tg, chatID, s)
	return nil
}

func (b *Bot) sendChart(ctx context.Context, tg TelegramAPI, chatID int64, s summary.Summary) {
	if b.renderer == nil {
		return
	}

	spec := summary.ChartSpec(s)
	img, err := b.renderer.Render(ctx, spec)
	if err != nil {
		logger.Log.Warn().Err(err).Str("component", "chart").Msg("Failed to render chart")
		return
	}

	params := &bot.SendPhotoParams{ChatID: chatID, Caption: spec.Title}
	if img.URL != "" {
		params.Photo = &tgmodels.InputFileString{Data: img.URL}
	} else {
		params.Photo = &tgmodels.InputFileUpload{Filename: img.Filename, Data: bytes.NewReader(img.PNG)}
	}

	if _, err := tg.SendPhoto(ctx, params); err != nil {
		logger.Log.Warn().Err(err).Str("component", "chart").Msg("Failed to send chart")
	}
}

// readLedger loads the schema and returns every ledger row.
func (b *Bot) readLedger(ctx context.Context) ([]models.LedgerRow, error) {
	err := b.ledger.LoadSchema(ctx)
	if err == nil {
		var rows []models.LedgerRow
		rows, err = b.ledger.ReadAllRows(ctx)
		if err == nil {
			return rows, nil
		}
	}

	b.metrics.LedgerFailure(ctx, "read")
	logger.Log.Error().Err(err).Str("component", "ledger").Msg("Failed to read ledger")
	return nil, fmt.Errorf("reading ledger: %w", err)
}

// handleExport handles the /exportar command.
func (b *Bot) handleExport(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleExportCore(ctx, tgBot, update)
}

// handleExportCore sends the current month's rows as a CSV or XLSX document.
func (b *Bot) handleExportCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID

	format, err := export.ParseFormat(commandArgs(update.Message.Text))
	if err != nil {
		if !errors.Is(err, export.ErrUnknownFormat) {
			logger.Log.Error().Err(err).Msg("Unexpected export format error")
		}
		b.reply(ctx, tg, chatID, msgExportUsage)
		return
	}

	rows, err := b.readLedger(ctx)
	if err != nil {
		b.reply(ctx, tg, chatID, msgExportFailed)
		return
	}

	now := b.now().In(b.loc)
	rows = summary.FilterMonth(rows, now, b.loc)
	if len(rows) == 0 {
		b.reply(ctx, tg, chatID, msgSummaryEmpty)
		return
	}

	title := fmt.Sprintf("Gastos de %s %d", summary.MonthName(now.Month()), now.Year())
	data, err := export.Render(format, rows, title)
	if err != nil {
		logger.Log.Error().Err(err).Str("format", format).Msg("Failed to render export")
		b.reply(ctx, tg, chatID, msgExportFailed)
		return
	}

	_, err = tg.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:   chatID,
		Document: &tgmodels.InputFileUpload{Filename: export.Filename(format, now), Data: bytes.NewReader(data)},
		Caption:  fmt.Sprintf("📎 %s (%d movimientos)", title, len(rows)),
	})
	if err != nil {
		logger.Log.Error().Err(err).Msg("Failed to send export")
		b.reply(ctx, tg, chatID, msgExportFailed)
	}
}
