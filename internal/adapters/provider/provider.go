package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/larriantoniy/domofon_bot/internal/domain"
)

// DefaultSuperUserPhone — номер администратора, которого не проверяем у провайдера.
const DefaultSuperUserPhone = "79953828610"

const (
	apiKeyHeader = "x-api-key"
	openDoorID   = 1
	mediaJPEG    = "JPEG"
	maxErrBody   = 512
)

// StatusError — провайдер ответил не 200.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return domain.ErrUnexpectedStatus
}

// Client реализует ports.Provider поверх HTTP API домофонов.
type Client struct {
	client         *http.Client
	logger         *slog.Logger
	baseURL        string // https://domofon.example/api
	apiKey         string
	superUserPhone string
}

type Option func(*Client)

// WithHTTPClient подменяет http.Client (тесты, прокси).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithSuperUserPhone переопределяет номер администратора.
func WithSuperUserPhone(phone string) Option {
	return func(cl *Client) {
		if p := domain.DigitsOnly(phone); p != "" {
			cl.superUserPhone = p
		}
	}
}

func New(baseURL, apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		client:         &http.Client{},
		logger:         logger.With("component", "provider"),
		baseURL:        strings.TrimRight(baseURL, "/"),
		apiKey:         apiKey,
		superUserPhone: DefaultSuperUserPhone,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type checkTenantRequest struct {
	Phone json.Number `json:"phone"`
}

type checkTenantResponse struct {
	TenantID domain.FlexString `json:"tenant_id"`
}

// ResolveTenant проверяет жильца по номеру телефона.
func (c *Client) ResolveTenant(ctx context.Context, phone string) (domain.Tenant, error) {
	phone = domain.DigitsOnly(phone)
	if phone == "" {
		return domain.Tenant{}, fmt.Errorf("%w: empty phone", domain.ErrTenantNotFound)
	}
	if phone == c.superUserPhone {
		c.logger.Info("super user resolved locally", "phone", domain.MaskPhone(phone))
		return domain.Tenant{Phone: phone, IsSuperUser: true}, nil
	}

	var resp checkTenantResponse
	err := c.doJSON(ctx, "check tenant", http.MethodPost, "/check-tenant", nil,
		checkTenantRequest{Phone: json.Number(phone)}, &resp)
	if err != nil {
		c.logger.Warn("check tenant failed", "phone", domain.MaskPhone(phone), "error", err)
		return domain.Tenant{}, fmt.Errorf("%w: %w", domain.ErrTenantNotFound, err)
	}
	if resp.TenantID == "" {
		return domain.Tenant{}, fmt.Errorf("%w: empty tenant_id", domain.ErrTenantNotFound)
	}

	return domain.Tenant{TenantID: string(resp.TenantID), Phone: phone}, nil
}

type apartment struct {
	ID domain.FlexString `json:"id"`
}

type domofon struct {
	ID       domain.FlexString `json:"id"`
	Location struct {
		ReadableAddress string            `json:"readable_address"`
		Porch           domain.FlexString `json:"porch"`
	} `json:"location"`
}

// ListDevices собирает домофоны по всем квартирам жильца.
// При ошибке возвращает пустой (не nil) список.
func (c *Client) ListDevices(ctx context.Context, tenantID string) ([]domain.Device, error) {
	devices := []domain.Device{}
	q := tenantQuery(tenantID)

	var apartments []apartment
	if err := c.doJSON(ctx, "list apartments", http.MethodGet, "/domo.apartment", q, nil, &apartments); err != nil {
		c.logger.Warn("list apartments failed", "tenant_id", tenantID, "error", err)
		return devices, err
	}

	for _, ap := range apartments {
		if ap.ID == "" {
			continue
		}
		var list []domofon
		path := "/domo.apartment/" + url.PathEscape(string(ap.ID)) + "/domofon"
		if err := c.doJSON(ctx, "list domofons", http.MethodGet, path, q, nil, &list); err != nil {
			// квартиру без доступных домофонов пропускаем
			c.logger.Warn("list domofons failed", "apartment_id", ap.ID, "error", err)
			continue
		}
		for _, d := range list {
			if d.ID == "" {
				continue
			}
			devices = append(devices, domain.Device{
				ID:       string(d.ID),
				Name:     deviceName(d),
				TenantID: tenantID,
			})
		}
	}

	return devices, nil
}

func deviceName(d domofon) string {
	addr := strings.TrimSpace(d.Location.ReadableAddress)
	if addr == "" {
		return "Домофон #" + string(d.ID)
	}
	if d.Location.Porch != "" {
		return fmt.Sprintf("%s (подъезд %s)", addr, d.Location.Porch)
	}
	return addr
}

type urlsOnTypeRequest struct {
	IntercomsID []int    `json:"intercoms_id"`
	MediaType   []string `json:"media_type"`
}

type mediaURL struct {
	JPEG string `json:"jpeg"`
}

// FetchSnapshot запрашивает ссылку на JPEG и скачивает сам снимок.
func (c *Client) FetchSnapshot(ctx context.Context, tenant domain.Tenant, deviceID string) ([]byte, error) {
	id, err := strconv.Atoi(deviceID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: bad device id %q: %w", deviceID, err)
	}

	var urls []mediaURL
	body := urlsOnTypeRequest{IntercomsID: []int{id}, MediaType: []string{mediaJPEG}}
	if err := c.doJSON(ctx, "snapshot urls", http.MethodPost, "/domo.domofon/urlsOnType", tenantQuery(tenant.TenantID), body, &urls); err != nil {
		c.logger.Warn("snapshot urls failed", "device_id", deviceID, "error", err)
		return nil, err
	}
	if len(urls) == 0 || urls[0].JPEG == "" {
		return nil, fmt.Errorf("snapshot: no jpeg url for device %s", deviceID)
	}

	// ссылка может вести на чужой хост — ключ API туда не отправляем
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urls[0].JPEG, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: new request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request for snapshot failed", "device_id", deviceID, "error", err)
		return nil, fmt.Errorf("snapshot: %w: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("download snapshot", resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("snapshot: empty image")
	}
	return data, nil
}

type openDoorRequest struct {
	DoorID int `json:"door_id"`
}

type openDoorResponse struct {
	Msg string `json:"msg"`
}

// OpenDoor открывает дверь; успех только при 200. Возвращает msg провайдера.
func (c *Client) OpenDoor(ctx context.Context, tenant domain.Tenant, deviceID string) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("open door: empty device id")
	}
	path := "/domo.domofon/" + url.PathEscape(deviceID) + "/open"

	raw, err := c.do(ctx, "open door", http.MethodPost, path, tenantQuery(tenant.TenantID), openDoorRequest{DoorID: openDoorID})
	if err != nil {
		c.logger.Warn("open door failed", "device_id", deviceID, "error", err)
		return "", err
	}

	// тело ответа не обязательно: 200 уже значит "открыто"
	var resp openDoorResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Debug("open door: unparsed body", "body", string(raw))
	}
	c.logger.Info("door opened", "device_id", deviceID, "tenant_id", tenant.TenantID)
	return resp.Msg, nil
}

// GrantAccess выдаёт доступ к домофону. Права вызывающего не проверяются.
func (c *Client) GrantAccess(ctx context.Context, phone, deviceID string) error {
	return c.accessCall(ctx, "grant access", "/grant-access", phone, deviceID)
}

// RevokeAccess отзывает доступ к домофону. Права вызывающего не проверяются.
func (c *Client) RevokeAccess(ctx context.Context, phone, deviceID string) error {
	return c.accessCall(ctx, "revoke access", "/revoke-access", phone, deviceID)
}

func (c *Client) accessCall(ctx context.Context, op, path, phone, deviceID string) error {
	q := url.Values{}
	q.Set("phone", domain.DigitsOnly(phone))
	q.Set("domophone_id", deviceID)
	if _, err := c.do(ctx, op, http.MethodGet, path, q, nil); err != nil {
		c.logger.Warn(op+" failed", "phone", domain.MaskPhone(phone), "device_id", deviceID, "error", err)
		return err
	}
	return nil
}

func tenantQuery(tenantID string) url.Values {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	return q
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	raw, err := c.do(ctx, op, method, path, query, body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// do выполняет запрос к API и возвращает тело только при 200.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) ([]byte, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: marshal body: %w", op, err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %w", op, err)
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("provider request", "op", op, "method", method, "path", path)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("HTTP request to provider failed", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %w", op, domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(op, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	return data, nil
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
}
