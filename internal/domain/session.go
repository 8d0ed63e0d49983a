package domain

import "time"

// Session связывает один чат Telegram с авторизованным жильцом.
type Session struct {
	ChatID          int64
	Tenant          Tenant
	DeviceID        string // последний выбранный домофон, может быть пустым
	AuthenticatedAt time.Time
}
