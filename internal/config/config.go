package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config agrupa toda la superficie de configuración del core.
// Se carga desde YAML y se puede pisar con variables de entorno
// (útil para dev/handoff sin tocar el archivo).
type Config struct {
	Port      string `yaml:"port"`
	BaseURL   string `yaml:"base_url"` // usado para armar magic links
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	DBDSN string `yaml:"db_dsn"` // si viene vacío => repos in-memory

	RedisAddr     string `yaml:"redis_addr"` // si viene vacío => sesiones in-memory
	RedisPassword string `yaml:"redis_password"`

	JWTSecret string `yaml:"jwt_secret"` // si viene vacío => modo dev (headers X-Debug-*)

	// Defaults del dominio.
	DefaultPriceMinor  int64  `yaml:"default_price_minor"`
	DefaultCurrency    string `yaml:"default_currency"`
	DefaultExpiresDays int    `yaml:"default_expires_days"` // 0 = nunca expira

	TeaserWords        int `yaml:"teaser_words"`
	MagicLinkTTLSecs   int `yaml:"magic_link_ttl_seconds"`
	SessionTTLMinutes  int `yaml:"session_ttl_minutes"`
	ProviderTimeoutSec int `yaml:"provider_timeout_seconds"`

	Providers ProvidersConfig `yaml:"providers"`
	Mail      MailConfig      `yaml:"mail"`
}

type ProvidersConfig struct {
	Stripe      ProviderConfig `yaml:"stripe"`
	WooCommerce ProviderConfig `yaml:"woocommerce"`
}

type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type MailConfig struct {
	From     string `yaml:"from"`
	SMTPAddr string `yaml:"smtp_addr"` // si viene vacío => mailer de log (dev)
}

// Load lee config desde path (si path == "" usa config.yaml y tolera
// que no exista: arranca con defaults + env).
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	normalize(&cfg)

	return cfg, nil
}

func defaults() Config {
	return Config{
		Port:               "8080",
		BaseURL:            "http://localhost:8080",
		LogLevel:           "info",
		LogFormat:          "text",
		DefaultPriceMinor:  500,
		DefaultCurrency:    "USD",
		DefaultExpiresDays: 0,
		TeaserWords:        150,
		MagicLinkTTLSecs:   3600,
		SessionTTLMinutes:  60 * 24,
		ProviderTimeoutSec: 10,
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DBDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("DEFAULT_PRICE_MINOR"); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.DefaultPriceMinor = n
		}
	}
	if v := os.Getenv("DEFAULT_CURRENCY"); v != "" {
		cfg.DefaultCurrency = strings.TrimSpace(v)
	}
	if v := os.Getenv("MAGIC_LINK_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.MagicLinkTTLSecs = n
		}
	}
	if v := os.Getenv("TEASER_WORDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.TeaserWords = n
		}
	}
}

// normalize corrige valores fuera de rango en vez de fallar:
// el core prefiere arrancar con defaults razonables.
func normalize(cfg *Config) {
	if cfg.DefaultPriceMinor < 0 {
		cfg.DefaultPriceMinor = 0
	}
	if cfg.TeaserWords <= 0 {
		cfg.TeaserWords = 150
	}
	if cfg.MagicLinkTTLSecs <= 0 {
		cfg.MagicLinkTTLSecs = 3600
	}
	if cfg.SessionTTLMinutes <= 0 {
		cfg.SessionTTLMinutes = 60 * 24
	}
	if cfg.ProviderTimeoutSec <= 0 {
		cfg.ProviderTimeoutSec = 10
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
}

// MagicLinkTTL expone el TTL como duración.
func (c Config) MagicLinkTTL() time.Duration {
	return time.Duration(c.MagicLinkTTLSecs) * time.Second
}

// SessionTTL expone el TTL de sesión como duración.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// ProviderTimeout es el budget por llamada al proveedor de pagos
// (sincrónico, sin retries).
func (c Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutSec) * time.Second
}
