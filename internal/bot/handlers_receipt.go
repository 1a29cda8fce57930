package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"go.opentelemetry.io/otel/codes"

	"gitlab.com/yelinaung/gastos-bot/internal/archive"
	"gitlab.com/yelinaung/gastos-bot/internal/logger"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/ocr"
	"gitlab.com/yelinaung/gastos-bot/internal/receipt"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
	"gitlab.com/yelinaung/gastos-bot/internal/telemetry"
)

// handlePhotoCore reads the total and merchant off a receipt photo and asks
// the user to confirm them. Nothing is stored when no amount is found.
func (b *Bot) handlePhotoCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || len(msg.Photo) == 0 {
		return
	}

	chatID := msg.Chat.ID
	userID := msg.From.ID

	if b.recognizer == nil {
		b.reply(ctx, tg, chatID, msgOCRDisabled)
		return
	}

	ctx, span := telemetry.Tracer().Start(ctx, "bot.receipt")
	defer span.End()

	b.metrics.ReceiptProcessed(ctx)
	b.reply(ctx, tg, chatID, msgProcessingReceipt)

	// Anything stored for this user after this point is newer than the receipt.
	baseline := b.sessions.Version(userID)
	largest := msg.Photo[len(msg.Photo)-1]

	imageURL, err := b.downloadLink(ctx, tg, largest.FileID)
	if err != nil {
		span.RecordError(err)
		logger.Log.Error().Err(err).
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Failed to resolve photo")
		b.reply(ctx, tg, chatID, msgDownloadFailed)
		return
	}

	text, err := b.recognize(ctx, imageURL)
	if err != nil {
		reason, notice := "error", msgOCRFailed
		switch {
		case errors.Is(err, ocr.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			reason, notice = "timeout", msgOCRTimeout
		case errors.Is(err, ocr.ErrNoText):
			reason = "no_text"
		}
		b.metrics.OCRFailure(ctx, reason)
		span.RecordError(err)
		logger.Log.Warn().Err(err).
			Str("user_hash", logger.HashUserID(userID)).
			Str("reason", reason).
			Msg("Receipt recognition failed")
		b.reply(ctx, tg, chatID, notice)
		return
	}

	result := receipt.Analyze(text)
	if !result.HasAmount {
		b.metrics.OCRFailure(ctx, "no_amount")
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Str("text", logger.SanitizeText(text)).
			Msg("No amount found on receipt")
		b.reply(ctx, tg, chatID, msgNoAmount)
		return
	}

	stored, ok := b.storeReceipt(userID, chatID, baseline, result)
	if !ok {
		span.AddEvent("superseded")
		logger.Log.Info().
			Str("user_hash", logger.HashUserID(userID)).
			Msg("Receipt result discarded, a newer expense is pending")
		b.reply(ctx, tg, chatID, msgReceiptSuperseded)
		return
	}

	b.send(ctx, tg, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        receiptConfirmText(stored.Amount, result.Merchant, result.MerchantInferred),
		ReplyMarkup: buildReceiptKeyboard(stored.Version),
	})

	if b.archivalEnabled() {
		b.archiveInBackground(ctx, stored, imageURL, "recibo_"+largest.FileUniqueID+".jpg")
	}
}

// downloadLink resolves a Telegram file id to a URL the OCR backend can fetch.
func (b *Bot) downloadLink(ctx context.Context, tg TelegramAPI, fileID string) (string, error) {
	file, err := tg.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", err)
	}

	link := tg.FileDownloadLink(file)
	if link == "" {
		return "", errors.New("empty file download link")
	}
	return link, nil
}

func (b *Bot) recognize(ctx context.Context, imageURL string) (string, error) {
	if b.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.OCRTimeout)
		defer cancel()
	}
	return b.recognizer.RecognizeText(ctx, imageURL, b.cfg.OCRLanguages)
}

// storeReceipt creates the pending expense for a recognized receipt unless
// the user started another expense while recognition was running.
func (b *Bot) storeReceipt(
	userID, chatID int64,
	baseline uint64,
	result receipt.Result,
) (session.PendingExpense, bool) {
	unlock := b.sessions.Lock(userID)
	defer unlock()

	if current := b.sessions.Version(userID); current != 0 && current != baseline {
		return session.PendingExpense{}, false
	}

	description := ""
	if result.MerchantInferred {
		description = result.Merchant
	}

	source := models.SourceNone
	if b.archivalEnabled() {
		source = models.SourcePending
	}

	return b.sessions.Set(session.PendingExpense{
		UserID:          userID,
		ChatID:          chatID,
		Amount:          result.Amount,
		Description:     description,
		SourceReference: source,
		State:           session.StateAwaitingConfirmation,
	}), true
}

func (b *Bot) archivalEnabled() bool {
	_, disabled := b.archiver.(archive.Disabled)
	return !disabled
}

// archiveInBackground uploads the receipt image without holding up the
// conversation, then attaches the link to the entry it was taken for.
func (b *Bot) archiveInBackground(ctx context.Context, pending session.PendingExpense, imageURL, filename string) {
	ctx = context.WithoutCancel(ctx)

	b.background.Add(1)
	go func() {
		defer b.background.Done()

		ref := b.archiveReceipt(ctx, imageURL, filename)
		b.attachReference(pending, ref)
	}()
}

// archiveReceipt returns the archived link, or the unavailable sentinel when
// the download or upload fails.
func (b *Bot) archiveReceipt(ctx context.Context, imageURL, filename string) string {
	if b.cfg.ArchiveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.ArchiveTimeout)
		defer cancel()
	}

	ctx, span := telemetry.Tracer().Start(ctx, "bot.archive")
	defer span.End()

	data, contentType, err := ocr.Download(ctx, b.httpClient, imageURL)
	if err == nil {
		var link string
		link, err = b.archiver.Store(ctx, bytes.NewReader(data), filename, contentType)
		if err == nil {
			return link
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "archive failed")
	b.metrics.ArchiveFailure(ctx)
	logger.Log.Warn().Err(err).Str("component", "archive").Msg("Receipt archival failed")
	return models.SourceUnavailable
}

// attachReference writes ref into the pending entry if it is still the one
// the receipt produced and has not been given a reference yet.
func (b *Bot) attachReference(pending session.PendingExpense, ref string) {
	unlock := b.sessions.Lock(pending.UserID)
	defer unlock()

	_, err := b.sessions.Update(pending.UserID, pending.Version, func(p *session.PendingExpense) {
		if p.SourceReference == models.SourcePending {
			p.SourceReference = ref
		}
	})
	if err != nil {
		logger.Log.Debug().Err(err).
			Str("user_hash", logger.HashUserID(pending.UserID)).
			Msg("Discarded late archive result")
	}
}

// handleReceiptCallback handles the receipt confirmation buttons.
func (b *Bot) handleReceiptCallback(ctx context.Context, tgBot *bot.Bot, update *tgmodels.Update) {
	b.handleReceiptCallbackCore(ctx, tgBot, update)
}

// handleReceiptCallbackCore confirms or rejects the amount read from a
// receipt. The button only acts on the entry version it was issued for.
func (b *Bot) handleReceiptCallbackCore(ctx context.Context, tg TelegramAPI, update *tgmodels.Update) {
	cq := update.CallbackQuery
	if cq == nil {
		return
	}
	defer b.answerCallback(ctx, tg, cq.ID)

	chatID, messageID := callbackMessage(cq)
	userID := cq.From.ID

	action, version, ok := parseReceiptCallback(cq.Data)
	if !ok {
		logger.Log.Warn().Str("data", cq.Data).Msg("Malformed receipt callback")
		return
	}

	unlock := b.sessions.Lock(userID)
	defer unlock()

	pending, found := b.sessions.Get(userID)
	if !found || pending.Version != version || pending.State != session.StateAwaitingConfirmation {
		b.reply(ctx, tg, chatID, msgExpired)
		return
	}

	if action == receiptReject {
		b.sessions.Delete(userID)
		b.editOrReply(ctx, tg, chatID, messageID, msgCancelled, nil)
		return
	}

	next := session.StateAwaitingCategory
	if pending.Description == "" {
		next = session.StateAwaitingDescription
	}

	updated, err := b.sessions.Update(userID, version, func(p *session.PendingExpense) {
		p.State = next
	})
	if err != nil {
		b.reply(ctx, tg, chatID, msgExpired)
		return
	}

	if next == session.StateAwaitingDescription {
		b.editOrReply(ctx, tg, chatID, messageID, descriptionPromptText(updated.Amount), nil)
		return
	}
	b.editOrReply(ctx, tg, chatID, messageID, categoryPromptText(updated.Amount), buildCategoryKeyboard(b.categories, updated.Version))
}

// answerCallback stops the client's loading indicator.
func (b *Bot) answerCallback(ctx context.Context, tg TelegramAPI, callbackID string) {
	if _, err := tg.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}); err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to answer callback query")
	}
}

// callbackMessage returns the chat and message a button belongs to. Buttons
// on messages too old to be delivered fall back to the private chat.
func callbackMessage(cq *tgmodels.CallbackQuery) (int64, int) {
	if m := cq.Message.Message; m != nil {
		return m.Chat.ID, m.ID
	}
	return cq.From.ID, 0
}
