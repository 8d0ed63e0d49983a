package ports

import "github.com/larriantoniy/domofon_bot/internal/domain"

// SessionStore — единственный владелец сессий чатов.
type SessionStore interface {
	Get(chatID int64) (domain.Session, bool)
	// Authenticate создаёт или перезаписывает сессию чата
	Authenticate(chatID int64, tenant domain.Tenant) (domain.Session, error)
	// SelectDevice запоминает последний выбранный домофон
	SelectDevice(chatID int64, deviceID string) error
	FindByTenant(tenantID string) (domain.Session, bool)
	FindByPhone(phone string) (domain.Session, bool)
}
