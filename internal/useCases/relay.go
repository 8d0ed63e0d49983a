package useCases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/larriantoniy/domofon_bot/internal/domain"
	"github.com/larriantoniy/domofon_bot/internal/ports"
)

// CallDispatcher доставляет событие в очередь чата и ждёт результата.
type CallDispatcher interface {
	Do(ctx context.Context, ev domain.Event) error
}

// Relay пересылает вебхук о звонке в домофон в чат жильца.
type Relay struct {
	log      *slog.Logger
	provider ports.Provider
	sessions ports.SessionStore
	calls    CallDispatcher
}

func NewRelay(log *slog.Logger, provider ports.Provider, sessions ports.SessionStore, calls CallDispatcher) *Relay {
	return &Relay{
		log:      log.With("component", "relay"),
		provider: provider,
		sessions: sessions,
		calls:    calls,
	}
}

// Notify обрабатывает вызов домофона deviceID для жильца tenantRef.
// Ошибки: domain.ErrMissingFields / domain.ErrMalformedCallback — плохой запрос,
// domain.ErrChatNotFound — некому слать, остальное — сбой доставки.
func (r *Relay) Notify(ctx context.Context, deviceID, tenantRef string) error {
	deviceID, tenantRef = strings.TrimSpace(deviceID), strings.TrimSpace(tenantRef)
	if deviceID == "" || tenantRef == "" {
		return domain.ErrMissingFields
	}
	// кнопка "открыть" должна собраться до любых внешних вызовов
	if _, err := domain.EncodeCallback(domain.CallbackAction{Kind: domain.ActionOpen, DeviceID: deviceID}); err != nil {
		return err
	}

	// номер в tenant_id приводим к тому же виду, что и номер из контакта
	if domain.DigitsOnly(tenantRef) == tenantRef && len(tenantRef) == 11 {
		tenantRef = domain.NormalizeContactPhone(tenantRef)
	}

	log := r.log.With("device_id", deviceID)

	tenant, err := r.provider.ResolveTenant(ctx, tenantRef)
	if err != nil {
		log.Warn("tenant not resolved", "error", err)
		return fmt.Errorf("%w: %w", domain.ErrChatNotFound, err)
	}

	sess, ok := r.sessions.FindByTenant(tenant.TenantID)
	if !ok {
		sess, ok = r.sessions.FindByPhone(tenant.Phone)
	}
	if !ok {
		log.Warn("no chat for tenant", "tenant_id", tenant.TenantID, "phone", domain.MaskPhone(tenant.Phone))
		return domain.ErrChatNotFound
	}

	ev := domain.Event{
		ID:     uuid.NewString(),
		Kind:   domain.EventIncomingCall,
		ChatID: sess.ChatID,
		Call:   &domain.IncomingCall{DeviceID: deviceID, Tenant: sess.Tenant},
	}
	log = log.With("event_id", ev.ID, "chat_id", sess.ChatID)

	if err := r.calls.Do(ctx, ev); err != nil {
		log.Error("incoming call not delivered", "error", err)
		if errors.Is(err, domain.ErrDelivery) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrDelivery, err)
	}

	log.Info("incoming call delivered")
	return nil
}
