package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const (
	TransportBotAPI = "botapi"
	TransportTDLib  = "tdlib"
)

type AppConfig struct {
	Env         string        `yaml:"env" env:"ENV" env-default:"prod"`
	Transport   string        `yaml:"transport" env:"TRANSPORT" env-default:"botapi"`
	SessionIdle time.Duration `yaml:"session_idle" env:"SESSION_IDLE" env-default:"10m"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	Domophone DomophoneConfig `yaml:"domophone"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	TDLib     TDLibConfig     `yaml:"tdlib"`
}

type TelegramConfig struct {
	Token string `yaml:"token" env:"TELEGRAM_TOKEN" env-required:"true"`
}

type DomophoneConfig struct {
	APIURL         string `yaml:"api_url" env:"DOMOPHONE_API_URL" env-required:"true"`
	APIToken       string `yaml:"api_token" env:"DOMOPHONE_API_TOKEN" env-required:"true"`
	SuperUserPhone string `yaml:"super_user_phone" env:"SUPER_USER_PHONE"`
}

type WebhookConfig struct {
	Addr string `yaml:"addr" env:"WEBHOOK_ADDR" env-default:":5000"`
	Path string `yaml:"path" env:"WEBHOOK_PATH" env-default:"/webhook/call"`
}

// TDLibConfig нужен только при TRANSPORT=tdlib.
type TDLibConfig struct {
	ApiID   int32  `yaml:"api_id" env:"TELEGRAM_API_ID"`
	ApiHash string `yaml:"api_hash" env:"TELEGRAM_API_HASH"`
	BaseDir string `yaml:"base_dir" env:"TDLIB_BASE_DIR" env-default:"./tdlib-sessions"`

	ProxyServer   string `yaml:"proxy_server" env:"TDLIB_PROXY_SERVER"`
	ProxyPort     int32  `yaml:"proxy_port" env:"TDLIB_PROXY_PORT"`
	ProxyUser     string `yaml:"proxy_user" env:"TDLIB_PROXY_USER"`
	ProxyPassword string `yaml:"proxy_password" env:"TDLIB_PROXY_PASSWORD"`
}

// Load читает .env, затем YAML (если задан путь) и переменные окружения.
func Load(args []string) (*AppConfig, error) {
	// .env не обязателен
	_ = godotenv.Load()

	path, err := fetchConfigPath(args)
	if err != nil {
		return nil, err
	}
	return LoadPath(path)
}

// LoadPath читает конфиг из файла path и окружения; при пустом path — только из окружения.
func LoadPath(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("ошибка загрузки конфига %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфига: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Telegram.Token == "" || c.Domophone.APIURL == "" || c.Domophone.APIToken == "" {
		return errors.New("TELEGRAM_TOKEN, DOMOPHONE_API_URL, DOMOPHONE_API_TOKEN должны быть заданы")
	}
	switch c.Transport {
	case TransportBotAPI:
	case TransportTDLib:
		if c.TDLib.ApiID == 0 || c.TDLib.ApiHash == "" || c.TDLib.BaseDir == "" {
			return errors.New("TELEGRAM_API_ID, TELEGRAM_API_HASH, TDLIB_BASE_DIR должны быть заданы для TRANSPORT=tdlib")
		}
	default:
		return fmt.Errorf("unknown TRANSPORT %q (want %s or %s)", c.Transport, TransportBotAPI, TransportTDLib)
	}
	if c.SessionIdle < 0 {
		return fmt.Errorf("SESSION_IDLE must not be negative: %s", c.SessionIdle)
	}
	return nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath(args []string) (string, error) {
	var res string

	fs := pflag.NewFlagSet("domofonbot", pflag.ContinueOnError)
	fs.StringVar(&res, "config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res, nil
}
