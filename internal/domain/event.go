package domain

import "fmt"

type EventKind int

const (
	EventCommand EventKind = iota
	EventContact
	EventCallback
	EventText
	EventIncomingCall
)

func (k EventKind) String() string {
	switch k {
	case EventCommand:
		return "command"
	case EventContact:
		return "contact"
	case EventCallback:
		return "callback"
	case EventText:
		return "text"
	case EventIncomingCall:
		return "incoming_call"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// IncomingCall — звонок в домофон, пришедший через вебхук.
type IncomingCall struct {
	DeviceID string
	Tenant   Tenant
}

// Event — входящее событие одного чата. Какие поля заполнены, зависит от Kind.
type Event struct {
	ID     string
	Kind   EventKind
	ChatID int64

	Command string   // без "/" и без "@botname"
	Args    []string // аргументы команды
	Text    string

	Phone string // EventContact

	CallbackID string // EventCallback
	Payload    string

	Call *IncomingCall // EventIncomingCall
}
