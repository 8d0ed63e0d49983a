package botapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

func message(text string) *tgbotapi.Message {
	return &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 10}, Text: text}
}

func TestEventFromUpdate(t *testing.T) {
	ev, ok := eventFromUpdate(tgbotapi.Update{Message: message("/revoke 89991234567 5")})
	require.True(t, ok)
	assert.Equal(t, domain.EventCommand, ev.Kind)
	assert.Equal(t, "revoke", ev.Command)
	assert.Equal(t, []string{"89991234567", "5"}, ev.Args)

	ev, ok = eventFromUpdate(tgbotapi.Update{Message: message("где домофон?")})
	require.True(t, ok)
	assert.Equal(t, domain.EventText, ev.Kind)

	contact := message("")
	contact.Contact = &tgbotapi.Contact{PhoneNumber: "89991234567"}
	ev, ok = eventFromUpdate(tgbotapi.Update{Message: contact})
	require.True(t, ok)
	assert.Equal(t, domain.Event{Kind: domain.EventContact, ChatID: 10, Phone: "89991234567"}, ev)

	ev, ok = eventFromUpdate(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Message: message(""),
		Data:    "snapshot_7",
	}})
	require.True(t, ok)
	assert.Equal(t, domain.Event{Kind: domain.EventCallback, ChatID: 10, CallbackID: "cb-1", Payload: "snapshot_7"}, ev)
}

func TestEventFromUpdate_Skipped(t *testing.T) {
	for name, upd := range map[string]tgbotapi.Update{
		"empty":            {},
		"no text":          {Message: message("")},
		"no chat":          {Message: &tgbotapi.Message{Text: "/start"}},
		"inline no msg":    {CallbackQuery: &tgbotapi.CallbackQuery{ID: "1", Data: "open_5"}},
		"callback no data": {CallbackQuery: &tgbotapi.CallbackQuery{ID: "1", Message: message("")}},
	} {
		_, ok := eventFromUpdate(upd)
		assert.False(t, ok, name)
	}
}

func TestBuildMessage_PhotoWithButton(t *testing.T) {
	c := buildMessage(10, domain.Reply{
		Text:   "Звонок",
		Photo:  []byte("jpeg"),
		Inline: [][]domain.Button{{{Text: "Открыть", Data: "open_5"}}},
	})

	photo, ok := c.(tgbotapi.PhotoConfig)
	require.True(t, ok)
	assert.Equal(t, int64(10), photo.ChatID)
	assert.Equal(t, "Звонок", photo.Caption)
	assert.Equal(t, tgbotapi.FileBytes{Name: snapshotFile, Bytes: []byte("jpeg")}, photo.File)

	markup, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, "Открыть", btn.Text)
	require.NotNil(t, btn.CallbackData)
	assert.Equal(t, "open_5", *btn.CallbackData)
}

func TestBuildMessage_TextVariants(t *testing.T) {
	msg, ok := buildMessage(10, domain.Reply{Text: "*help*", Markdown: true}).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.ModeMarkdown, msg.ParseMode)
	assert.Nil(t, msg.ReplyMarkup)

	msg, ok = buildMessage(10, domain.Reply{Text: "start", RequestContact: "Поделиться"}).(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Empty(t, msg.ParseMode)
	kb, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, kb.OneTimeKeyboard)
	assert.True(t, kb.Keyboard[0][0].RequestContact)
	assert.Equal(t, "Поделиться", kb.Keyboard[0][0].Text)
}

func newTestBot(t *testing.T) *Bot {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Домофон","username":"domofon_bot"}}`))
			return
		}
		time.Sleep(10 * time.Millisecond)
		_, _ = w.Write([]byte(`{"ok":true,"result":[]}`))
	}))
	t.Cleanup(srv.Close)

	api, err := tgbotapi.NewBotAPIWithAPIEndpoint("123:abc", srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	return newBot(api, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCloseAfterListenCancelled(t *testing.T) {
	b := newTestBot(t)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := b.Listen(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed after cancel")
	}

	assert.NotPanics(t, b.Close)
	assert.NotPanics(t, b.Close)
}
