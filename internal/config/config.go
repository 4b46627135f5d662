// Package config carga la configuración del servicio desde YAML + entorno.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// memory | postgres
		Driver   string `yaml:"driver"`
		Postgres struct {
			DSN             string `yaml:"dsn"`
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		// Challenges en redis para despliegues multi-instancia. Opcional:
		// vacío usa el mismo driver del storage principal.
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"storage"`

	JWT struct {
		Secret    string `yaml:"secret"`
		Issuer    string `yaml:"issuer"`
		AccessTTL string `yaml:"access_ttl"`
	} `yaml:"jwt"`

	Auth struct {
		ChallengeTTL string `yaml:"challenge_ttl"`
		ServiceName  string `yaml:"service_name"`
		// RateLimitMax <= 0 deshabilita el rate limit de auth.
		RateLimitMax    int    `yaml:"rate_limit_max"`
		RateLimitWindow string `yaml:"rate_limit_window"`
	} `yaml:"auth"`

	Credentials struct {
		Validity string `yaml:"validity"`
	} `yaml:"credentials"`

	// EWC: conexión a la Energy Web Chain y clave del emisor.
	EWC struct {
		RPCURL           string `yaml:"rpc_url"`
		RegistryAddress  string `yaml:"registry_address"`
		IssuerPrivateKey string `yaml:"issuer_private_key"` // hex, sin 0x
	} `yaml:"ewc"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json | console
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

func Load(path string) (*Config, error) {
	var c Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Storage.Redis.Prefix == "" {
		c.Storage.Redis.Prefix = "didjohn"
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "didjohn"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "24h"
	}
	if c.Auth.ChallengeTTL == "" {
		c.Auth.ChallengeTTL = "10m"
	}
	if c.Auth.ServiceName == "" {
		c.Auth.ServiceName = "GSY EWF Identity Server"
	}
	if c.Auth.RateLimitWindow == "" {
		c.Auth.RateLimitWindow = "1m"
	}
	if c.Credentials.Validity == "" {
		c.Credentials.Validity = "8760h" // 1 año
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ─── Duration accessors ───

func (c *Config) AccessTTL() time.Duration    { return mustDur(c.JWT.AccessTTL, 24*time.Hour) }
func (c *Config) ChallengeTTL() time.Duration { return mustDur(c.Auth.ChallengeTTL, 10*time.Minute) }
func (c *Config) CredentialValidity() time.Duration {
	return mustDur(c.Credentials.Validity, 365*24*time.Hour)
}
func (c *Config) RateLimitWindow() time.Duration { return mustDur(c.Auth.RateLimitWindow, time.Minute) }

func mustDur(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil && d > 0 {
		return d
	}
	return fallback
}

// ─── Env overrides ───

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
// Los secretos (JWT_SECRET, ISSUER_PRIVATE_KEY) se esperan por entorno en prod.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("POSTGRES_DSN"); ok {
		c.Storage.Postgres.DSN = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Storage.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Storage.Redis.DB = v
	}

	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.JWT.Secret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
	}
	if v, ok := getEnvStr("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}

	if v, ok := getEnvStr("CHALLENGE_TTL"); ok {
		c.Auth.ChallengeTTL = v
	}
	if v, ok := getEnvInt("AUTH_RATE_LIMIT_MAX"); ok {
		c.Auth.RateLimitMax = v
	}
	if v, ok := getEnvStr("AUTH_RATE_LIMIT_WINDOW"); ok {
		c.Auth.RateLimitWindow = v
	}

	if v, ok := getEnvStr("EWC_RPC_URL"); ok {
		c.EWC.RPCURL = v
	}
	if v, ok := getEnvStr("EWC_REGISTRY_ADDRESS"); ok {
		c.EWC.RegistryAddress = v
	}
	if v, ok := getEnvStr("ISSUER_PRIVATE_KEY"); ok {
		c.EWC.IssuerPrivateKey = v
	}

	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}
}

// Validate chequea lo mínimo para arrancar.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("config: jwt.secret (o JWT_SECRET) es obligatorio")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("config: jwt.secret debe tener al menos 32 bytes")
	}
	if c.EWC.RPCURL == "" {
		return fmt.Errorf("config: ewc.rpc_url (o EWC_RPC_URL) es obligatorio")
	}
	if c.EWC.RegistryAddress == "" {
		return fmt.Errorf("config: ewc.registry_address (o EWC_REGISTRY_ADDRESS) es obligatorio")
	}
	if c.EWC.IssuerPrivateKey == "" {
		return fmt.Errorf("config: ewc.issuer_private_key (o ISSUER_PRIVATE_KEY) es obligatorio")
	}
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("config: storage.driver desconocido %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.Postgres.DSN == "" {
		return fmt.Errorf("config: storage.postgres.dsn es obligatorio con driver postgres")
	}
	return nil
}
