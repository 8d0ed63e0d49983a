package ports

import (
	"context"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

// Messenger определяет интерфейс для работы с Telegram.
// Реализуется конкретными адаптерами (TDLib, Bot API).
type Messenger interface {
	// Listen возвращает канал входящих событий; канал закрывается при остановке ctx.
	Listen(ctx context.Context) (<-chan domain.Event, error)
	// Send отправляет текст или фото с клавиатурой в чат
	Send(ctx context.Context, chatID int64, reply domain.Reply) error
	// AnswerCallback снимает "часики" с нажатой кнопки
	AnswerCallback(ctx context.Context, callbackID string) error
	Close()
}
