package useCases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/larriantoniy/domofon_bot/internal/adapters/memory"
	"github.com/larriantoniy/domofon_bot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sent struct {
	ChatID int64
	Reply  domain.Reply
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sent
	answered []string
	sendErr  error
}

func (m *fakeMessenger) Listen(ctx context.Context) (<-chan domain.Event, error) {
	return nil, errors.New("not used")
}

func (m *fakeMessenger) Send(_ context.Context, chatID int64, r domain.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sent{ChatID: chatID, Reply: r})
	return nil
}

func (m *fakeMessenger) AnswerCallback(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answered = append(m.answered, id)
	return nil
}

func (m *fakeMessenger) Close() {}

func (m *fakeMessenger) Sent() []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sent(nil), m.sent...)
}

func (m *fakeMessenger) Answered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.answered...)
}

func (m *fakeMessenger) last() domain.Reply {
	s := m.Sent()
	if len(s) == 0 {
		return domain.Reply{}
	}
	return s[len(s)-1].Reply
}

type accessCall struct {
	Grant    bool
	Phone    string
	DeviceID string
}

type fakeProvider struct {
	mu sync.Mutex

	tenants    map[string]domain.Tenant // по нормализованному номеру
	devices    []domain.Device
	devicesErr error
	snapshot   []byte
	openMsg    string
	openErr    error
	accessErr  error

	resolved []string
	opened   []string
	snaps    []string
	access   []accessCall
}

func (p *fakeProvider) ResolveTenant(_ context.Context, phone string) (domain.Tenant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	phone = domain.DigitsOnly(phone)
	p.resolved = append(p.resolved, phone)
	t, ok := p.tenants[phone]
	if !ok {
		return domain.Tenant{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (p *fakeProvider) ListDevices(_ context.Context, _ string) ([]domain.Device, error) {
	if p.devicesErr != nil {
		return []domain.Device{}, p.devicesErr
	}
	return p.devices, nil
}

func (p *fakeProvider) FetchSnapshot(_ context.Context, _ domain.Tenant, deviceID string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snaps = append(p.snaps, deviceID)
	if p.snapshot == nil {
		return nil, errors.New("no snapshot")
	}
	return p.snapshot, nil
}

func (p *fakeProvider) OpenDoor(_ context.Context, _ domain.Tenant, deviceID string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opened = append(p.opened, deviceID)
	if p.openErr != nil {
		return "", p.openErr
	}
	return p.openMsg, nil
}

func (p *fakeProvider) GrantAccess(_ context.Context, phone, deviceID string) error {
	return p.recordAccess(true, phone, deviceID)
}

func (p *fakeProvider) RevokeAccess(_ context.Context, phone, deviceID string) error {
	return p.recordAccess(false, phone, deviceID)
}

func (p *fakeProvider) recordAccess(grant bool, phone, deviceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.access = append(p.access, accessCall{Grant: grant, Phone: phone, DeviceID: deviceID})
	return p.accessErr
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.resolved) + len(p.opened) + len(p.snaps) + len(p.access)
}

func newSessions() *memory.SessionStore {
	s, err := memory.NewSessionStore(discardLogger())
	if err != nil {
		panic(err)
	}
	return s
}
