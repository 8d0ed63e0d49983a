package ports

import (
	"context"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

// Provider — API провайдера домофонов. Ошибка никогда не сопровождается
// частичным результатом: при err != nil значение пустое.
type Provider interface {
	ResolveTenant(ctx context.Context, phone string) (domain.Tenant, error)
	ListDevices(ctx context.Context, tenantID string) ([]domain.Device, error)
	FetchSnapshot(ctx context.Context, tenant domain.Tenant, deviceID string) ([]byte, error)
	OpenDoor(ctx context.Context, tenant domain.Tenant, deviceID string) (string, error)
	GrantAccess(ctx context.Context, phone, deviceID string) error
	RevokeAccess(ctx context.Context, phone, deviceID string) error
}
