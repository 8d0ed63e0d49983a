package domain

import (
	"fmt"
	"strings"
)

type ActionKind string

const (
	ActionSnapshot ActionKind = "snapshot"
	ActionOpen     ActionKind = "open"
)

const (
	callbackSeparator = "_"
	// Telegram ограничивает callback_data 64 байтами.
	maxCallbackData = 64
)

// CallbackAction — намерение, зашитое в инлайн-кнопку.
type CallbackAction struct {
	Kind     ActionKind
	DeviceID string
}

func (k ActionKind) valid() bool {
	return k == ActionSnapshot || k == ActionOpen
}

// EncodeCallback собирает строку "<kind>_<device_id>".
func EncodeCallback(a CallbackAction) (string, error) {
	if !a.Kind.valid() {
		return "", fmt.Errorf("%w: unknown action %q", ErrMalformedCallback, a.Kind)
	}
	if a.DeviceID == "" {
		return "", fmt.Errorf("%w: empty device id", ErrMalformedCallback)
	}
	data := string(a.Kind) + callbackSeparator + a.DeviceID
	if len(data) > maxCallbackData {
		return "", fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformedCallback, maxCallbackData)
	}
	return data, nil
}

// MustEncodeCallback для кнопок, у которых id заведомо корректный.
func MustEncodeCallback(kind ActionKind, deviceID string) string {
	data, err := EncodeCallback(CallbackAction{Kind: kind, DeviceID: deviceID})
	if err != nil {
		panic(err)
	}
	return data
}

// DecodeCallback разбирает payload кнопки. Режем только по первому
// разделителю: kind его не содержит, а в id он допустим.
func DecodeCallback(data string) (CallbackAction, error) {
	kind, id, ok := strings.Cut(data, callbackSeparator)
	if !ok {
		return CallbackAction{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	a := CallbackAction{Kind: ActionKind(kind), DeviceID: id}
	if !a.Kind.valid() || a.DeviceID == "" {
		return CallbackAction{}, fmt.Errorf("%w: %q", ErrMalformedCallback, data)
	}
	return a, nil
}
