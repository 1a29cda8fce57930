package bot

import (
	"context"
	"testing"
	"time"

	tgmodels "github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/gastos-bot/internal/archive"
	"gitlab.com/yelinaung/gastos-bot/internal/bot/mocks"
	"gitlab.com/yelinaung/gastos-bot/internal/config"
	"gitlab.com/yelinaung/gastos-bot/internal/models"
	"gitlab.com/yelinaung/gastos-bot/internal/ocr"
)

func TestExtractUserID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update *tgmodels.Update
		want   int64
	}{
		{"message", mocks.MessageUpdate(1, 77, "hola"), 77},
		{"callback", mocks.CallbackQueryUpdate(1, 88, 5, "cat_Ocio"), 88},
		{"message without sender", &tgmodels.Update{Message: &tgmodels.Message{Text: "x"}}, 0},
		{"empty update", &tgmodels.Update{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, extractUserID(tt.update))
		})
	}
}

func TestExtractUsername(t *testing.T) {
	t.Parallel()

	msg := mocks.NewUpdateBuilder().WithMessage(1, 2, "hola").WithUsername("lucia").Build()
	require.Equal(t, "lucia", extractUsername(msg))
	require.Equal(t, "anaperez", extractUsername(mocks.CallbackQueryUpdate(1, 2, 3, "cat_x")))
	require.Empty(t, extractUsername(&tgmodels.Update{}))
}

func TestFilterUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ids         []int64
		usernames   []string
		update      *tgmodels.Update
		wantNext    bool
		wantNotice  bool
		wantAnswers int
	}{
		{
			name:     "open bot",
			update:   mocks.MessageUpdate(testChatID, testUserID, "100 x"),
			wantNext: true,
		},
		{
			name:     "listed id",
			ids:      []int64{testUserID},
			update:   mocks.MessageUpdate(testChatID, testUserID, "100 x"),
			wantNext: true,
		},
		{
			name:      "listed username ignores case",
			usernames: []string{"AnaPerez"},
			update:    mocks.MessageUpdate(testChatID, testUserID, "100 x"),
			wantNext:  true,
		},
		{
			name:       "unlisted message",
			ids:        []int64{1},
			update:     mocks.MessageUpdate(testChatID, testUserID, "100 x"),
			wantNotice: true,
		},
		{
			name:        "unlisted callback",
			ids:         []int64{1},
			update:      mocks.CallbackQueryUpdate(testChatID, testUserID, testMsgID, "cat_Ocio"),
			wantAnswers: 1,
		},
		{
			name:   "no sender",
			update: &tgmodels.Update{Message: &tgmodels.Message{Text: "100 x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, _ := newTestBot(t, Deps{})
			b.cfg.WhitelistedUserIDs = tt.ids
			b.cfg.WhitelistedUsernames = tt.usernames
			mockBot := mocks.NewMockBot()

			called := false
			b.filterUpdate(context.Background(), mockBot, tt.update, func(context.Context, *tgmodels.Update) {
				called = true
			})

			require.Equal(t, tt.wantNext, called)
			if tt.wantNotice {
				require.Equal(t, []string{msgUnauthorized}, mockBot.SentTexts())
			} else {
				require.Zero(t, mockBot.SentMessageCount())
			}
			require.Equal(t, tt.wantAnswers, mockBot.AnsweredCallbackCount())
			if tt.wantAnswers > 0 {
				answer := mockBot.AnsweredCallbacks[0]
				require.Equal(t, msgUnauthorized, answer.Text)
				require.True(t, answer.ShowAlert)
			}
		})
	}
}

func TestDefaultHandlerRouting(t *testing.T) {
	t.Parallel()

	t.Run("expense text", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBot(t, Deps{})
		mockBot := mocks.NewMockBot()

		b.defaultHandlerCore(context.Background(), mockBot, mocks.MessageUpdate(testChatID, testUserID, "250 Colectivo"))

		require.Equal(t, "Colectivo", requirePending(t, b).Description)
	})

	t.Run("unknown command", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBot(t, Deps{})
		mockBot := mocks.NewMockBot()

		b.defaultHandlerCore(context.Background(), mockBot, mocks.CommandUpdate(testChatID, testUserID, "/borrar"))

		require.Equal(t, []string{msgUnknownCommand}, mockBot.SentTexts())
		requireNoPending(t, b)
	})

	t.Run("photo without recognizer", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBot(t, Deps{})
		mockBot := mocks.NewMockBot()

		b.defaultHandlerCore(context.Background(), mockBot, mocks.PhotoUpdate(testChatID, testUserID, "photo1"))

		require.Equal(t, []string{msgOCRDisabled}, mockBot.SentTexts())
	})

	t.Run("unrouted callback is answered", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBot(t, Deps{})
		mockBot := mocks.NewMockBot()

		b.defaultHandlerCore(context.Background(), mockBot, mocks.CallbackQueryUpdate(testChatID, testUserID, testMsgID, "old_button"))

		require.Zero(t, mockBot.SentMessageCount())
		require.Equal(t, 1, mockBot.AnsweredCallbackCount())
		require.Equal(t, "callback-query-id", mockBot.AnsweredCallbacks[0].CallbackQueryID)
	})

	t.Run("empty update", func(t *testing.T) {
		t.Parallel()

		b, _ := newTestBot(t, Deps{})
		mockBot := mocks.NewMockBot()

		b.defaultHandlerCore(context.Background(), mockBot, &tgmodels.Update{})

		require.Zero(t, mockBot.SentMessageCount())
		require.Zero(t, mockBot.AnsweredCallbackCount())
	})
}

func TestNewBotDefaults(t *testing.T) {
	t.Parallel()

	b := newBot(&config.Config{PendingTTL: time.Minute}, Deps{Ledger: &fakeLedger{}})

	require.NotNil(t, b.sessions)
	require.Equal(t, archive.Disabled{}, b.archiver)
	require.False(t, b.archivalEnabled())
	require.Same(t, ocr.DefaultHTTPClient, b.httpClient)
	require.Equal(t, time.Local, b.loc)
	require.Nil(t, b.renderer)

	v2, _ := models.CategorySetByName(models.CategorySetV2)
	require.Equal(t, v2, b.categories)
}

func TestEditOrReply(t *testing.T) {
	t.Parallel()

	b, _ := newTestBot(t, Deps{})
	ctx := context.Background()

	mockBot := mocks.NewMockBot()
	b.editOrReply(ctx, mockBot, testChatID, testMsgID, "editado", nil)
	require.Equal(t, "editado", mockBot.LastEditedMessage().Text)
	require.Zero(t, mockBot.SentMessageCount())

	mockBot = mocks.NewMockBot()
	b.editOrReply(ctx, mockBot, testChatID, 0, "nuevo", nil)
	require.Empty(t, mockBot.EditedMessages)
	require.Equal(t, []string{"nuevo"}, mockBot.SentTexts())
}
