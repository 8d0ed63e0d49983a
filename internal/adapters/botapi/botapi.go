package botapi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

const (
	pollTimeout   = 30
	snapshotFile  = "snapshot.jpg"
	emptyCallback = ""
)

// Bot реализует ports.Messenger через Telegram Bot API (long polling).
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger

	// StopReceivingUpdates закрывает канал внутри tgbotapi: повторный вызов паникует
	stopOnce sync.Once
}

func New(token string, log *slog.Logger) (*Bot, error) {
	log = log.With("component", "botapi")

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Error("create bot failed", "error", err)
		return nil, fmt.Errorf("bot api: %w", err)
	}
	return newBot(api, log), nil
}

func newBot(api *tgbotapi.BotAPI, log *slog.Logger) *Bot {
	log.Info("bot authorized", "username", api.Self.UserName, "self_id", api.Self.ID)
	return &Bot{api: api, logger: log}
}

// Listen запускает long polling; канал закрывается при отмене ctx.
func (b *Bot) Listen(ctx context.Context) (<-chan domain.Event, error) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(cfg)

	out := make(chan domain.Event)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				b.stop()
				return
			case update, ok := <-updates:
				if !ok {
					b.logger.Info("updates channel closed")
					return
				}
				ev, ok := eventFromUpdate(update)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					b.stop()
					return
				}
			}
		}
	}()

	return out, nil
}

func (b *Bot) Send(_ context.Context, chatID int64, reply domain.Reply) error {
	if _, err := b.api.Send(buildMessage(chatID, reply)); err != nil {
		b.logger.Error("send failed", "chat_id", chatID, "photo", reply.HasPhoto(), "error", err)
		return err
	}
	return nil
}

func (b *Bot) AnswerCallback(_ context.Context, callbackID string) error {
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, emptyCallback))
	return err
}

func (b *Bot) Close() {
	b.stop()
}

func (b *Bot) stop() {
	b.stopOnce.Do(func() {
		b.logger.Info("stop polling")
		b.api.StopReceivingUpdates()
	})
}

func eventFromUpdate(update tgbotapi.Update) (domain.Event, bool) {
	if q := update.CallbackQuery; q != nil {
		if q.Message == nil || q.Message.Chat == nil || q.Data == "" {
			return domain.Event{}, false
		}
		return domain.Event{
			Kind:       domain.EventCallback,
			ChatID:     q.Message.Chat.ID,
			CallbackID: q.ID,
			Payload:    q.Data,
		}, true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return domain.Event{}, false
	}
	if msg.Contact != nil {
		if msg.Contact.PhoneNumber == "" {
			return domain.Event{}, false
		}
		return domain.Event{Kind: domain.EventContact, ChatID: msg.Chat.ID, Phone: msg.Contact.PhoneNumber}, true
	}
	if msg.Text == "" {
		return domain.Event{}, false
	}
	if cmd, args, ok := domain.ParseCommand(msg.Text); ok {
		return domain.Event{Kind: domain.EventCommand, ChatID: msg.Chat.ID, Command: cmd, Args: args, Text: msg.Text}, true
	}
	return domain.Event{Kind: domain.EventText, ChatID: msg.Chat.ID, Text: msg.Text}, true
}

// buildMessage: фото с подписью или текст; inline-кнопки важнее запроса контакта.
func buildMessage(chatID int64, reply domain.Reply) tgbotapi.Chattable {
	markup := replyMarkup(reply)
	parseMode := ""
	if reply.Markdown {
		parseMode = tgbotapi.ModeMarkdown
	}

	if reply.HasPhoto() {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: snapshotFile, Bytes: reply.Photo})
		photo.Caption = reply.Text
		photo.ParseMode = parseMode
		photo.ReplyMarkup = markup
		return photo
	}

	msg := tgbotapi.NewMessage(chatID, reply.Text)
	msg.ParseMode = parseMode
	msg.ReplyMarkup = markup
	return msg
}

func replyMarkup(reply domain.Reply) any {
	if len(reply.Inline) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(reply.Inline))
		for _, row := range reply.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, btn := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	if reply.RequestContact != "" {
		kb := tgbotapi.NewOneTimeReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(reply.RequestContact)),
		)
		kb.ResizeKeyboard = true
		return kb
	}
	return nil
}
