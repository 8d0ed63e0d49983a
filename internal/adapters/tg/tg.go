package tg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/zelenin/go-tdlib/client"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

var ErrRateLimited = errors.New("tdlib: too many requests")

// Bot реализует ports.Messenger через TDLib, авторизованный токеном бота.
type Bot struct {
	client     *client.Client
	logger     *slog.Logger
	uploadsDir string

	// временные файлы фото по id ещё не отправленного сообщения
	uploads sync.Map // int64 -> string
}

func New(cfg Config, log *slog.Logger) (*Bot, error) {
	log = log.With("component", "tdlib")

	for _, dir := range []string{cfg.databaseDir(), cfg.filesDir(), cfg.uploadsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	}); err != nil {
		log.Error("TDLib SetLogVerbosityLevel", "error", err)
	}

	checkConnectivity(log, cfg.Proxy)

	authorizer := client.BotAuthorizer(cfg.ToTdParams(), cfg.Token)
	tdCli, err := client.NewClient(authorizer, cfg.proxyOptions()...)
	if err != nil {
		log.Error("TDLib NewClient error", "proxy", cfg.Proxy.String(), "error", err)
		return nil, err
	}

	me, err := tdCli.GetMe()
	if err != nil {
		log.Error("GetMe failed", "error", err)
		tdCli.Close()
		return nil, err
	}
	log.Info("TDLib bot authorized", "self_id", me.Id)

	return &Bot{
		client:     tdCli,
		logger:     log,
		uploadsDir: cfg.uploadsDir(),
	}, nil
}

func (b *Bot) Close() {
	if _, err := b.client.Close(); err != nil {
		b.logger.Warn("TDLib close", "error", err)
	}
}

// Listen возвращает канал доменных событий из обновлений TDLib.
func (b *Bot) Listen(ctx context.Context) (<-chan domain.Event, error) {
	out := make(chan domain.Event)
	listener := b.client.GetListener()

	go func() {
		defer close(out)
		defer listener.Close()

		for {
			var update client.Type
			select {
			case <-ctx.Done():
				return
			case u, ok := <-listener.Updates:
				if !ok {
					return
				}
				update = u
			}

			switch upd := update.(type) {
			case *client.UpdateMessageSendSucceeded:
				b.dropUpload(upd.OldMessageId)
				continue
			case *client.UpdateMessageSendFailed:
				b.logger.Warn("message send failed", "chat_id", upd.Message.ChatId, "old_message_id", upd.OldMessageId)
				b.dropUpload(upd.OldMessageId)
				continue
			}

			ev, ok := eventFromUpdate(update)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// eventFromUpdate переводит обновление TDLib в доменное событие.
func eventFromUpdate(update client.Type) (domain.Event, bool) {
	switch upd := update.(type) {
	case *client.UpdateNewMessage:
		if upd.Message == nil || upd.Message.IsOutgoing {
			return domain.Event{}, false
		}
		return eventFromMessage(upd.Message)

	case *client.UpdateNewCallbackQuery:
		data, ok := upd.Payload.(*client.CallbackQueryPayloadData)
		if !ok {
			return domain.Event{}, false
		}
		return domain.Event{
			Kind:       domain.EventCallback,
			ChatID:     upd.ChatId,
			CallbackID: strconv.FormatInt(int64(upd.Id), 10),
			Payload:    string(data.Data),
		}, true
	}
	return domain.Event{}, false
}

func eventFromMessage(msg *client.Message) (domain.Event, bool) {
	switch content := msg.Content.(type) {
	case *client.MessageText:
		if content.Text == nil {
			return domain.Event{}, false
		}
		text := content.Text.Text
		if cmd, args, ok := domain.ParseCommand(text); ok {
			return domain.Event{Kind: domain.EventCommand, ChatID: msg.ChatId, Command: cmd, Args: args, Text: text}, true
		}
		return domain.Event{Kind: domain.EventText, ChatID: msg.ChatId, Text: text}, true

	case *client.MessageContact:
		if content.Contact == nil || content.Contact.PhoneNumber == "" {
			return domain.Event{}, false
		}
		return domain.Event{Kind: domain.EventContact, ChatID: msg.ChatId, Phone: content.Contact.PhoneNumber}, true
	}
	return domain.Event{}, false
}

// Send отправляет ответ: фото с подписью или текст, с клавиатурой если она есть.
func (b *Bot) Send(_ context.Context, chatID int64, reply domain.Reply) error {
	text, err := formatText(reply)
	if err != nil {
		return err
	}

	req := &client.SendMessageRequest{
		ChatId:      chatID,
		ReplyMarkup: replyMarkup(reply),
	}

	var upload string
	if reply.HasPhoto() {
		upload, err = b.writeUpload(reply.Photo)
		if err != nil {
			return err
		}
		req.InputMessageContent = &client.InputMessagePhoto{
			Photo:   &client.InputFileLocal{Path: upload},
			Caption: text,
		}
	} else {
		req.InputMessageContent = &client.InputMessageText{
			Text:       text,
			ClearDraft: true,
		}
	}

	msg, err := b.client.SendMessage(req)
	if err != nil {
		if upload != "" {
			_ = os.Remove(upload)
		}
		if isTooManyRequests(err) {
			b.logger.Error("SendMessage rate-limited", "chat_id", chatID, "error", err)
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
		b.logger.Error("SendMessage failed", "chat_id", chatID, "error", err)
		return err
	}
	if upload != "" {
		b.uploads.Store(msg.Id, upload)
	}
	return nil
}

func (b *Bot) AnswerCallback(_ context.Context, callbackID string) error {
	id, err := strconv.ParseInt(callbackID, 10, 64)
	if err != nil {
		return fmt.Errorf("bad callback id %q: %w", callbackID, err)
	}
	_, err = b.client.AnswerCallbackQuery(&client.AnswerCallbackQueryRequest{
		CallbackQueryId: client.JsonInt64(id),
	})
	return err
}

// writeUpload кладёт фото во временный файл: TDLib отправляет только файлы с диска.
func (b *Bot) writeUpload(photo []byte) (string, error) {
	f, err := os.CreateTemp(b.uploadsDir, "snapshot-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := f.Write(photo); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close upload: %w", err)
	}
	return f.Name(), nil
}

func (b *Bot) dropUpload(oldMessageID int64) {
	path, ok := b.uploads.LoadAndDelete(oldMessageID)
	if !ok {
		return
	}
	if err := os.Remove(path.(string)); err != nil && !errors.Is(err, os.ErrNotExist) {
		b.logger.Warn("remove upload", "path", path, "error", err)
	}
}

func formatText(reply domain.Reply) (*client.FormattedText, error) {
	if !reply.Markdown {
		return &client.FormattedText{Text: reply.Text}, nil
	}
	text, err := client.ParseTextEntities(&client.ParseTextEntitiesRequest{
		Text:      reply.Text,
		ParseMode: &client.TextParseModeMarkdown{Version: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("parse markdown: %w", err)
	}
	return text, nil
}

// replyMarkup: inline-кнопки важнее запроса контакта.
func replyMarkup(reply domain.Reply) client.ReplyMarkup {
	if len(reply.Inline) > 0 {
		rows := make([][]*client.InlineKeyboardButton, 0, len(reply.Inline))
		for _, row := range reply.Inline {
			buttons := make([]*client.InlineKeyboardButton, 0, len(row))
			for _, btn := range row {
				buttons = append(buttons, &client.InlineKeyboardButton{
					Text: btn.Text,
					Type: &client.InlineKeyboardButtonTypeCallback{Data: []byte(btn.Data)},
				})
			}
			rows = append(rows, buttons)
		}
		return &client.ReplyMarkupInlineKeyboard{Rows: rows}
	}

	if reply.RequestContact != "" {
		return &client.ReplyMarkupShowKeyboard{
			Rows: [][]*client.KeyboardButton{{{
				Text: reply.RequestContact,
				Type: &client.KeyboardButtonTypeRequestPhoneNumber{},
			}}},
			ResizeKeyboard: true,
			OneTime:        true,
		}
	}
	return nil
}

// TDLib отдаёт лимит как "429: Too Many Requests: retry after N"
func isTooManyRequests(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "too many requests") || strings.HasPrefix(msg, "429")
}
