package bot

import (
	"context"
	"fmt"
	"testing"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gitlab.com/yelinaung/gastos-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/session"
)

func TestHandleTextCreatesPendingExpense(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t, Deps{})
	mockBot := mocks.NewMockBot()

	b.handleTextCore(context.Background(), mockBot, mocks.MessageUpdate(testChatID, testUserID, "1500,50 Almuerzo con Juan"))

	p := requirePending(t, b)
	require.Equal(t, session.StateAwaitingCategory, p.State)
	require.True(t, p.Amount.Equal(decimal.RequireFromString("1500.50")))
	require.Equal(t, "Almuerzo con Juan", p.Description)
	require.Equal(t, models.SourceManual, p.SourceReference)
	require.Equal(t, testChatID, p.ChatID)

	last := mockBot.LastSentMessage()
	require.NotNil(t, last)
	require.Equal(t, "¿En qué categoría guardamos los $1500.50?", last.Text)

	keyboard, ok := last.ReplyMarkup.(*tgmodels.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 4)
	require.Equal(t, fmt.Sprintf("cat_cancel_%d", p.Version), keyboard.InlineKeyboard[3][0].CallbackData)
	require.Equal(t, fmt.Sprintf("cat_Supermercado_%d", p.Version), keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestHandleTextMalformedLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()

	inputs := []string{"hola", "1500", "Almuerzo 1500", "1,5,0 x", "abc def", "-10 x", "0 x", "10,505 Café"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			t.Run("without entry", func(t *testing.T) {
				b, _ := newTestBot(t, Deps{})
				mockBot := mocks.NewMockBot()

				b.handleTextCore(context.Background(), mockBot, mocks.MessageUpdate(testChatID, testUserID, input))

				requireNoPending(t, b)
				require.Equal(t, []string{msgFormatHint}, mockBot.SentTexts())
			})

			t.Run("with entry", func(t *testing.T) {
				b, _ := newTestBot(t, Deps{})
				mockBot := mocks.NewMockBot()
				before := setPending(t, b, session.PendingExpense{
					Amount:      decimal.NewFromInt(80),
					Description: "Taxi",
					State:       session.StateAwaitingCategory,
				})

				b.handleTextCore(context.Background(), mockBot, mocks.MessageUpdate(testChatID, testUserID, input))

				after := requirePending(t, b)
				require.Equal(t, before.Version, after.Version)
				require.Equal(t, "Taxi", after.Description)
				require.Equal(t, []string{msgFormatHint}, mockBot.SentTexts())
			})
		})
	}
}

func TestFormatHintStatesAmountRules(t *testing.T) {
	t.Parallel()

	require.Contains(t, msgFormatHint, "mayor a 0")
	require.Contains(t, msgFormatHint, "hasta 2 decimales")
}

func TestHandleTextNewExpenseReplacesPending(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t, Deps{})
	mockBot := mocks.NewMockBot()
	ctx := context.Background()

	b.handleTextCore(ctx, mockBot, mocks.MessageUpdate(testChatID, testUserID, "100 Café"))
	first := requirePending(t, b)

	b.handleTextCore(ctx, mockBot, mocks.MessageUpdate(testChatID, testUserID, "2500 Farmacia"))
	second := requirePending(t, b)

	require.Greater(t, second.Version, first.Version)
	require.Equal(t, "Farmacia", second.Description)
	require.Equal(t, 1, b.sessions.Len())
}

func TestHandleTextRecordsDescription(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t, Deps{})
	mockBot := mocks.NewMockBot()
	before := setPending(t, b, session.PendingExpense{
		Amount:          decimal.RequireFromString("3350.5"),
		SourceReference: models.SourceNone,
		State:           session.StateAwaitingDescription,
	})

	b.handleTextCore(context.Background(), mockBot, mocks.MessageUpdate(testChatID, testUserID, "  Verdulería   del barrio "))

	after := requirePending(t, b)
	require.Equal(t, before.Version, after.Version)
	require.Equal(t, session.StateAwaitingCategory, after.State)
	require.Equal(t, "Verdulería del barrio", after.Description)
	require.True(t, after.Amount.Equal(before.Amount))

	last := mockBot.LastSentMessage()
	require.Equal(t, "¿En qué categoría guardamos los $3350.50?", last.Text)
	require.NotNil(t, last.ReplyMarkup)
}

func TestHandleTextDescriptionAcceptsNumbers(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t, Deps{})
	setPending(t, b, session.PendingExpense{
		Amount: decimal.NewFromInt(900),
		State:  session.StateAwaitingDescription,
	})

	b.handleTextCore(context.Background(), mocks.NewMockBot(), mocks.MessageUpdate(testChatID, testUserID, "2 kilos de pan"))

	p := requirePending(t, b)
	require.Equal(t, "2 kilos de pan", p.Description)
	require.True(t, p.Amount.Equal(decimal.NewFromInt(900)))
}

func TestHandleTextIgnoresIncompleteUpdates(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t, Deps{})
	mockBot := mocks.NewMockBot()
	ctx := context.Background()

	b.handleTextCore(ctx, mockBot, &tgmodels.Update{})
	b.handleTextCore(ctx, mockBot, &tgmodels.Update{Message: &tgmodels.Message{Text: "100 x"}})
	b.handleTextCore(ctx, mockBot, mocks.MessageUpdate(testChatID, testUserID, "   "))

	require.Zero(t, mockBot.SentMessageCount())
	require.Zero(t, b.sessions.Len())
}

// TestHandleTextDecimalSeparatorsAgree checks that comma and dot decimals
// produce the same pending amount.
func TestHandleTextDecimalSeparatorsAgree(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		whole := rapid.Int64Range(1, 9_999_999).Draw(rt, "whole")
		cents := rapid.IntRange(0, 99).Draw(rt, "cents")
		amount := decimal.New(whole*100+int64(cents), -2)

		dot := amount.StringFixed(2)
		comma := dot[:len(dot)-3] + "," + dot[len(dot)-2:]

		got := make([]decimal.Decimal, 0, 2)
		for _, text := range []string{dot + " Gasto", comma + " Gasto"} {
			b, _ := newTestBot(t, Deps{})
			b.handleTextCore(context.Background(), mocks.NewMockBot(), mocks.MessageUpdate(testChatID, testUserID, text))
			p, ok := b.sessions.Get(testUserID)
			if !ok {
				rt.Fatalf("no pending expense for %q", text)
			}
			got = append(got, p.Amount)
		}

		if !got[0].Equal(got[1]) || !got[0].Equal(amount) {
			rt.Fatalf("amounts differ: %s vs %s (want %s)", got[0], got[1], amount)
		}
	})
}
