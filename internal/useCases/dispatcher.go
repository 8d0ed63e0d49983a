package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/larriantoniy/domofon_bot/internal/domain"
	"github.com/larriantoniy/domofon_bot/internal/ports"
)

// Dispatcher — конечный автомат чата: команды, контакты, нажатия кнопок и
// входящие звонки превращаются в вызовы провайдера и ответы в Telegram.
type Dispatcher struct {
	log      *slog.Logger
	provider ports.Provider
	sessions ports.SessionStore
	chat     ports.Messenger
}

func NewDispatcher(
	log *slog.Logger,
	provider ports.Provider,
	sessions ports.SessionStore,
	chat ports.Messenger,
) *Dispatcher {
	return &Dispatcher{
		log:      log.With("component", "dispatcher"),
		provider: provider,
		sessions: sessions,
		chat:     chat,
	}
}

// Handle обрабатывает одно событие. Ошибка возвращается только если
// не удалось доставить ответ в чат (domain.ErrDelivery).
func (d *Dispatcher) Handle(ctx context.Context, ev domain.Event) error {
	log := d.log.With("event_id", ev.ID, "chat_id", ev.ChatID, "kind", ev.Kind.String())

	switch ev.Kind {
	case domain.EventCommand:
		return d.handleCommand(ctx, log, ev)
	case domain.EventContact:
		return d.handleContact(ctx, log, ev)
	case domain.EventCallback:
		return d.handleCallback(ctx, log, ev)
	case domain.EventText:
		return d.handleText(ctx, ev)
	case domain.EventIncomingCall:
		return d.handleIncomingCall(ctx, log, ev)
	default:
		log.Warn("unsupported event")
		return nil
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	log.Info("command received", "command", ev.Command, "args", len(ev.Args))

	switch ev.Command {
	case "start":
		return d.send(ctx, ev.ChatID, domain.Reply{
			Text:           textStart,
			RequestContact: textShareContactButton,
		})
	case "help":
		text := textHelp
		if sess, ok := d.sessions.Get(ev.ChatID); ok && sess.Tenant.IsSuperUser {
			text += textAdminHelp
		}
		return d.send(ctx, ev.ChatID, domain.Reply{Text: text, Markdown: true})
	case "domofons":
		return d.showDevices(ctx, log, ev.ChatID)
	case "grant":
		return d.changeAccess(ctx, log, ev, true)
	case "revoke":
		return d.changeAccess(ctx, log, ev, false)
	default:
		return d.handleText(ctx, ev)
	}
}

func (d *Dispatcher) handleText(ctx context.Context, ev domain.Event) error {
	if _, ok := d.sessions.Get(ev.ChatID); !ok {
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textNotAuthed})
	}
	return d.send(ctx, ev.ChatID, domain.Reply{Text: textUnknown})
}

func (d *Dispatcher) handleContact(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	phone := domain.NormalizeContactPhone(ev.Phone)
	log.Info("contact received", "phone", domain.MaskPhone(phone))

	tenant, err := d.provider.ResolveTenant(ctx, phone)
	if err != nil {
		log.Warn("authorization failed", "phone", domain.MaskPhone(phone), "error", err)
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textAuthFailed})
	}

	if _, err := d.sessions.Authenticate(ev.ChatID, tenant); err != nil {
		log.Error("store session failed", "error", err)
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textAuthFailed})
	}
	return d.send(ctx, ev.ChatID, domain.Reply{Text: textAuthOK})
}

func (d *Dispatcher) showDevices(ctx context.Context, log *slog.Logger, chatID int64) error {
	sess, ok := d.sessions.Get(chatID)
	if !ok {
		return d.send(ctx, chatID, domain.Reply{Text: textNotAuthed})
	}

	devices, err := d.provider.ListDevices(ctx, sess.Tenant.TenantID)
	if err != nil {
		log.Warn("list devices failed", "tenant_id", sess.Tenant.TenantID, "error", err)
		return d.send(ctx, chatID, domain.Reply{Text: textListFailed})
	}
	if len(devices) == 0 {
		return d.send(ctx, chatID, domain.Reply{Text: textNoDevices})
	}

	rows := make([][]domain.Button, 0, len(devices))
	for _, dev := range selectedFirst(devices, sess.DeviceID) {
		snapshot, err := domain.EncodeCallback(domain.CallbackAction{Kind: domain.ActionSnapshot, DeviceID: dev.ID})
		if err != nil {
			log.Warn("skip device with unusable id", "device_id", dev.ID, "error", err)
			continue
		}
		open := domain.MustEncodeCallback(domain.ActionOpen, dev.ID)
		rows = append(rows, []domain.Button{
			{Text: "📷 " + dev.Name, Data: snapshot},
			{Text: textOpenBtn, Data: open},
		})
	}
	if len(rows) == 0 {
		return d.send(ctx, chatID, domain.Reply{Text: textNoDevices})
	}

	log.Info("devices listed", "count", len(rows))
	return d.send(ctx, chatID, domain.Reply{Text: textChooseAction, Inline: rows})
}

// selectedFirst поднимает последний выбранный домофон в начало списка.
func selectedFirst(devices []domain.Device, selected string) []domain.Device {
	if selected == "" {
		return devices
	}
	out := make([]domain.Device, 0, len(devices))
	for _, dev := range devices {
		if dev.ID == selected {
			out = append(out, dev)
		}
	}
	for _, dev := range devices {
		if dev.ID != selected {
			out = append(out, dev)
		}
	}
	return out
}

// handleCallback всегда подтверждает нажатие ровно один раз, чем бы ни кончилась обработка.
func (d *Dispatcher) handleCallback(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	defer func() {
		if err := d.chat.AnswerCallback(ctx, ev.CallbackID); err != nil {
			log.Warn("answer callback failed", "callback_id", ev.CallbackID, "error", err)
		}
	}()

	action, err := domain.DecodeCallback(ev.Payload)
	if err != nil {
		log.Warn("malformed callback", "payload", ev.Payload, "error", err)
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textBadAction})
	}

	sess, ok := d.sessions.Get(ev.ChatID)
	if !ok {
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textNotAuthed})
	}
	if err := d.sessions.SelectDevice(ev.ChatID, action.DeviceID); err != nil {
		log.Warn("select device failed", "device_id", action.DeviceID, "error", err)
	}

	log = log.With("action", string(action.Kind), "device_id", action.DeviceID)

	switch action.Kind {
	case domain.ActionSnapshot:
		photo, err := d.provider.FetchSnapshot(ctx, sess.Tenant, action.DeviceID)
		if err != nil {
			log.Warn("snapshot unavailable", "error", err)
			return d.send(ctx, ev.ChatID, domain.Reply{Text: textSnapshotFailed})
		}
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textSnapshotCaption, Photo: photo})

	case domain.ActionOpen:
		msg, err := d.provider.OpenDoor(ctx, sess.Tenant, action.DeviceID)
		if err != nil {
			log.Warn("open door failed", "error", err)
			return d.send(ctx, ev.ChatID, domain.Reply{Text: textDoorFailed})
		}
		if msg == "" {
			msg = textDoorOpened
		}
		log.Info("door opened")
		return d.send(ctx, ev.ChatID, domain.Reply{Text: msg})
	}
	return nil
}

func (d *Dispatcher) changeAccess(ctx context.Context, log *slog.Logger, ev domain.Event, grant bool) error {
	sess, ok := d.sessions.Get(ev.ChatID)
	if !ok {
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textNotAuthed})
	}
	if !sess.Tenant.IsSuperUser {
		log.Warn("access change denied", "phone", domain.MaskPhone(sess.Tenant.Phone))
		return d.send(ctx, ev.ChatID, domain.Reply{Text: textAdminsOnly})
	}

	usage, okText, failText := textGrantUsage, textGrantOK, textGrantFailed
	call := d.provider.GrantAccess
	if !grant {
		usage, okText, failText = textRevokeUsage, textRevokeOK, textRevokeFailed
		call = d.provider.RevokeAccess
	}

	if len(ev.Args) != 2 || domain.DigitsOnly(ev.Args[0]) == "" || ev.Args[1] == "" {
		return d.send(ctx, ev.ChatID, domain.Reply{Text: usage})
	}
	phone, deviceID := domain.NormalizeContactPhone(ev.Args[0]), ev.Args[1]

	if err := call(ctx, phone, deviceID); err != nil {
		log.Warn("access change failed", "grant", grant, "phone", domain.MaskPhone(phone), "device_id", deviceID, "error", err)
		return d.send(ctx, ev.ChatID, domain.Reply{Text: failText})
	}
	log.Info("access changed", "grant", grant, "phone", domain.MaskPhone(phone), "device_id", deviceID)
	return d.send(ctx, ev.ChatID, domain.Reply{Text: okText})
}

// handleIncomingCall шлёт уведомление о звонке: фото, если снимок есть, иначе текст.
func (d *Dispatcher) handleIncomingCall(ctx context.Context, log *slog.Logger, ev domain.Event) error {
	if ev.Call == nil {
		return errors.New("incoming call event without call data")
	}
	open, err := domain.EncodeCallback(domain.CallbackAction{Kind: domain.ActionOpen, DeviceID: ev.Call.DeviceID})
	if err != nil {
		return err
	}

	reply := domain.Reply{
		Text:   textIncomingCall,
		Inline: [][]domain.Button{{{Text: textOpenDoorBtn, Data: open}}},
	}
	photo, err := d.provider.FetchSnapshot(ctx, ev.Call.Tenant, ev.Call.DeviceID)
	if err != nil {
		log.Info("no snapshot for incoming call, sending text", "device_id", ev.Call.DeviceID, "error", err)
	} else {
		reply.Photo = photo
	}

	log.Info("notifying incoming call", "device_id", ev.Call.DeviceID, "with_photo", reply.HasPhoto())
	return d.send(ctx, ev.ChatID, reply)
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, reply domain.Reply) error {
	if err := d.chat.Send(ctx, chatID, reply); err != nil {
		d.log.Error("send to chat failed", "chat_id", chatID, "error", err)
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}
	return nil
}
