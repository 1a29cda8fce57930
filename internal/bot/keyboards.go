package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
)

const (
	categoryPrefix = "cat_"
	receiptPrefix  = "rcpt_"

	receiptConfirm = "ok"
	receiptReject  = "no"

	categoriesPerRow = 2
)

// buildCategoryKeyboard lays the categories out two per row and appends the
// cancel button on its own row. Every button carries the pending entry version.
func buildCategoryKeyboard(categories []models.Category, version uint64) *tgmodels.InlineKeyboardMarkup {
	rows := make([][]tgmodels.InlineKeyboardButton, 0, len(categories)/categoriesPerRow+2)

	var row []tgmodels.InlineKeyboardButton
	for _, c := range categories {
		row = append(row, tgmodels.InlineKeyboardButton{
			Text:         c.Label,
			CallbackData: categoryCallbackData(c.Code, version),
		})
		if len(row) == categoriesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, []tgmodels.InlineKeyboardButton{
		{Text: "❌ Cancelar", CallbackData: categoryCallbackData(models.CancelCode, version)},
	})

	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func categoryCallbackData(code string, version uint64) string {
	return fmt.Sprintf("%s%s_%d", categoryPrefix, code, version)
}

// parseCategoryCallback splits "cat_<code>_<version>". Codes may contain
// underscores; the version is the last field.
func parseCategoryCallback(data string) (code string, version uint64, ok bool) {
	rest, found := strings.CutPrefix(data, categoryPrefix)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.ParseUint(rest[idx+1:], 10, 64)
	if err != nil || version == 0 {
		return "", 0, false
	}
	return rest[:idx], version, true
}

// buildReceiptKeyboard asks the user to confirm the amount read from a
// receipt. Both buttons carry the pending entry version.
func buildReceiptKeyboard(version uint64) *tgmodels.InlineKeyboardMarkup {
	return &tgmodels.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgmodels.InlineKeyboardButton{
			{
				{Text: "✅ Confirmar", CallbackData: fmt.Sprintf("%s%s_%d", receiptPrefix, receiptConfirm, version)},
				{Text: "❌ Cancelar", CallbackData: fmt.Sprintf("%s%s_%d", receiptPrefix, receiptReject, version)},
			},
		},
	}
}

// parseReceiptCallback splits "rcpt_<action>_<version>".
func parseReceiptCallback(data string) (action string, version uint64, ok bool) {
	rest, found := strings.CutPrefix(data, receiptPrefix)
	if !found {
		return "", 0, false
	}
	action, raw, found := strings.Cut(rest, "_")
	if !found || (action != receiptConfirm && action != receiptReject) {
		return "", 0, false
	}
	version, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || version == 0 {
		return "", 0, false
	}
	return action, version, true
}

// isCommand reports whether text is a bot command.
func isCommand(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/")
}

// commandName returns the command without its slash, bot suffix or arguments.
func commandName(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	name := strings.TrimPrefix(fields[0], "/")
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name)
}

// commandArgs returns everything after the command itself.
func commandArgs(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}
