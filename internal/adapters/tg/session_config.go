package tg

import (
	"path/filepath"

	"github.com/zelenin/go-tdlib/client"
)

// Config — параметры TDLib-сессии бота.
type Config struct {
	APIID   int32
	APIHash string
	Token   string
	BaseDir string // "/sessions"

	LangCode      string
	DeviceModel   string
	SystemVersion string
	AppVersion    string

	Proxy *ProxyConfig
}

// ProxyConfig — SOCKS5-прокси для TDLib.
type ProxyConfig struct {
	Enabled  bool
	Server   string
	Port     int32
	Username string
	Password string
}

func (c Config) sessionDir() string  { return filepath.Join(c.BaseDir, "bot") }
func (c Config) databaseDir() string { return filepath.Join(c.sessionDir(), "database") }
func (c Config) filesDir() string    { return filepath.Join(c.sessionDir(), "files") }
func (c Config) uploadsDir() string  { return filepath.Join(c.sessionDir(), "uploads") }

// ToTdParams собирает SetTdlibParametersRequest с дефолтами для пустых полей.
func (c Config) ToTdParams() *client.SetTdlibParametersRequest {
	return &client.SetTdlibParametersRequest{
		UseTestDc:           false,
		DatabaseDirectory:   c.databaseDir(),
		FilesDirectory:      c.filesDir(),
		UseFileDatabase:     true,
		UseChatInfoDatabase: true,
		UseMessageDatabase:  false, // история боту не нужна
		UseSecretChats:      false,
		ApiId:               c.APIID,
		ApiHash:             c.APIHash,
		SystemLanguageCode:  orDefault(c.LangCode, "ru"),
		DeviceModel:         orDefault(c.DeviceModel, "Server"),
		SystemVersion:       orDefault(c.SystemVersion, "Linux"),
		ApplicationVersion:  orDefault(c.AppVersion, "1.0"),
	}
}

// proxyOptions возвращает опции клиента для включённого прокси.
func (c Config) proxyOptions() []client.Option {
	p := c.Proxy
	if p == nil || !p.Enabled || p.Server == "" || p.Port == 0 {
		return nil
	}
	return []client.Option{client.WithProxy(&client.AddProxyRequest{
		Server: p.Server,
		Port:   p.Port,
		Enable: true,
		Type: &client.ProxyTypeSocks5{
			Username: p.Username,
			Password: p.Password,
		},
	})}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
