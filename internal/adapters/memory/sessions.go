package memory

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

const (
	sessionTable = "session"
	indexID      = "id"
	indexTenant  = "tenant"
	indexPhone   = "phone"
)

func sessionSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			sessionTable: {
				Name: sessionTable,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ChatID"},
					},
					// у суперпользователя tenant_id нет
					indexTenant: {
						Name:         indexTenant,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "TenantID"},
					},
					indexPhone: {
						Name:         indexPhone,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "Phone"},
					},
				},
			},
		},
	}
}

// record — плоское представление сессии для индексов memdb.
// После вставки не изменяется.
type record struct {
	ChatID          int64
	TenantID        string
	Phone           string
	IsSuperUser     bool
	DeviceID        string
	AuthenticatedAt time.Time
}

func (r *record) session() domain.Session {
	return domain.Session{
		ChatID: r.ChatID,
		Tenant: domain.Tenant{
			TenantID:    r.TenantID,
			Phone:       r.Phone,
			IsSuperUser: r.IsSuperUser,
		},
		DeviceID:        r.DeviceID,
		AuthenticatedAt: r.AuthenticatedAt,
	}
}

// SessionStore хранит сессии чатов в памяти процесса. Безопасен для
// конкурентного использования: чтения идут по снимкам memdb.
type SessionStore struct {
	db     *memdb.MemDB
	logger *slog.Logger
	now    func() time.Time
}

func NewSessionStore(logger *slog.Logger) (*SessionStore, error) {
	db, err := memdb.NewMemDB(sessionSchema())
	if err != nil {
		return nil, fmt.Errorf("memdb: %w", err)
	}
	return &SessionStore{
		db:     db,
		logger: logger.With("component", "sessions"),
		now:    time.Now,
	}, nil
}

func (s *SessionStore) Get(chatID int64) (domain.Session, bool) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	rec, ok := s.first(txn, indexID, chatID)
	if !ok {
		return domain.Session{}, false
	}
	return rec.session(), true
}

// Authenticate перезаписывает сессию чата; выбранный домофон сбрасывается.
func (s *SessionStore) Authenticate(chatID int64, tenant domain.Tenant) (domain.Session, error) {
	rec := &record{
		ChatID:          chatID,
		TenantID:        tenant.TenantID,
		Phone:           tenant.Phone,
		IsSuperUser:     tenant.IsSuperUser,
		AuthenticatedAt: s.now(),
	}

	txn := s.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(sessionTable, rec); err != nil {
		return domain.Session{}, fmt.Errorf("insert session %d: %w", chatID, err)
	}
	txn.Commit()

	s.logger.Info("session authenticated",
		"chat_id", chatID,
		"tenant_id", tenant.TenantID,
		"phone", domain.MaskPhone(tenant.Phone),
		"super_user", tenant.IsSuperUser,
	)
	return rec.session(), nil
}

func (s *SessionStore) SelectDevice(chatID int64, deviceID string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	cur, ok := s.first(txn, indexID, chatID)
	if !ok {
		return domain.ErrNotAuthenticated
	}
	next := *cur
	next.DeviceID = deviceID
	if err := txn.Insert(sessionTable, &next); err != nil {
		return fmt.Errorf("update session %d: %w", chatID, err)
	}
	txn.Commit()
	return nil
}

// FindByTenant ищет чат жильца. Если чатов несколько, берётся последний авторизованный.
func (s *SessionStore) FindByTenant(tenantID string) (domain.Session, bool) {
	if tenantID == "" {
		return domain.Session{}, false
	}
	return s.latest(indexTenant, tenantID)
}

func (s *SessionStore) FindByPhone(phone string) (domain.Session, bool) {
	phone = domain.DigitsOnly(phone)
	if phone == "" {
		return domain.Session{}, false
	}
	return s.latest(indexPhone, phone)
}

func (s *SessionStore) latest(index string, value string) (domain.Session, bool) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(sessionTable, index, value)
	if err != nil {
		s.logger.Error("session lookup failed", "index", index, "error", err)
		return domain.Session{}, false
	}

	var best *record
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rec := raw.(*record)
		if best == nil || rec.AuthenticatedAt.After(best.AuthenticatedAt) {
			best = rec
		}
	}
	if best == nil {
		return domain.Session{}, false
	}
	return best.session(), true
}

func (s *SessionStore) first(txn *memdb.Txn, index string, args ...any) (*record, bool) {
	raw, err := txn.First(sessionTable, index, args...)
	if err != nil {
		s.logger.Error("session lookup failed", "index", index, "error", err)
		return nil, false
	}
	if raw == nil {
		return nil, false
	}
	return raw.(*record), true
}
