package config

import (
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"

	"multiauth/internal/domain"
)

// Backends del directorio de logins.
const (
	DirectoryMemory   = "memory"
	DirectoryRedis    = "redis"
	DirectoryPostgres = "postgres"
)

// Config centraliza la configuración del servicio.
type Config struct {
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	FirebaseAPIKey     string `env:"FIREBASE_API_KEY"`
	FirebaseAuthDomain string `env:"FIREBASE_AUTH_DOMAIN"`
	IdentityBaseURL    string `env:"IDENTITY_BASE_URL" envDefault:"https://identitytoolkit.googleapis.com/v1"`
	SecureTokenBaseURL string `env:"SECURE_TOKEN_BASE_URL" envDefault:"https://securetoken.googleapis.com/v1"`

	RecaptchaVerifyURL string `env:"RECAPTCHA_VERIFY_URL" envDefault:"https://www.google.com/recaptcha/api/siteverify"`
	RecaptchaSecretKey string `env:"RECAPTCHA_SECRET_KEY"`

	GoogleClientID      string `env:"GOOGLE_CLIENT_ID"`
	GoogleRedirectURI   string `env:"GOOGLE_REDIRECT_URI"`
	FacebookEnabled     bool   `env:"FACEBOOK_ENABLED" envDefault:"false"`
	FacebookAppID       string `env:"FACEBOOK_APP_ID"`
	FacebookRedirectURI string `env:"FACEBOOK_REDIRECT_URI"`
	CallbackScheme      string `env:"CALLBACK_SCHEME"`
	// Platform vacio toma runtime.GOOS.
	Platform string `env:"PLATFORM"`

	DefaultTimeoutMs   int64         `env:"DEFAULT_TIMEOUT_MS" envDefault:"10000"`
	ChallengeTimeoutMs int64         `env:"CHALLENGE_TIMEOUT_MS" envDefault:"120000"`
	PhoneSessionTTL    time.Duration `env:"PHONE_SESSION_TTL" envDefault:"10m"`

	DirectoryBackend string `env:"DIRECTORY_BACKEND" envDefault:"memory"`
	DatabaseURL      string `env:"DATABASE_URL"`
	DatabaseMaxConns int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	RedisAddr        string `env:"REDIS_ADDR"`
	RedisPassword    string `env:"REDIS_PASSWORD"`
	RedisDB          int    `env:"REDIS_DB" envDefault:"0"`

	TicketSecret     string `env:"TICKET_SECRET"`
	TicketTTLMinutes int    `env:"TICKET_TTL_MINUTES" envDefault:"10"`
}

// LoadConfig carga la configuración desde variables de entorno, la normaliza y la valida.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize corrige los formatos habituales: "app" pasa a "app://" y el dominio
// de auth pierde el esquema y la barra final.
func (c *Config) Normalize() {
	c.CallbackScheme = strings.TrimSpace(c.CallbackScheme)
	if c.CallbackScheme != "" && !strings.HasSuffix(c.CallbackScheme, "://") {
		c.CallbackScheme += "://"
	}

	authDomain := strings.TrimSpace(c.FirebaseAuthDomain)
	authDomain = strings.TrimPrefix(authDomain, "https://")
	authDomain = strings.TrimPrefix(authDomain, "http://")
	c.FirebaseAuthDomain = strings.TrimRight(authDomain, "/")

	if strings.TrimSpace(c.Platform) == "" {
		c.Platform = runtime.GOOS
	}
	c.DirectoryBackend = strings.ToLower(strings.TrimSpace(c.DirectoryBackend))
	if c.DirectoryBackend == "" {
		c.DirectoryBackend = DirectoryMemory
	}
}

// Validate falla con ErrConfiguration ante el primer parametro obligatorio ausente.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.FirebaseAPIKey) == "":
		return domain.Misconfigured("FIREBASE_API_KEY is required")
	case c.FirebaseAuthDomain == "":
		return domain.Misconfigured("FIREBASE_AUTH_DOMAIN is required")
	case c.DefaultTimeoutMs <= 0:
		return domain.Misconfigured("DEFAULT_TIMEOUT_MS must be positive")
	case c.ChallengeTimeoutMs <= 0:
		return domain.Misconfigured("CHALLENGE_TIMEOUT_MS must be positive")
	}

	switch c.DirectoryBackend {
	case DirectoryMemory:
	case DirectoryRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return domain.Misconfigured("REDIS_ADDR is required for the redis directory")
		}
	case DirectoryPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return domain.Misconfigured("DATABASE_URL is required for the postgres directory")
		}
	default:
		return domain.Misconfigured("unknown DIRECTORY_BACKEND " + c.DirectoryBackend)
	}
	return nil
}

// TicketTTL es la vida de los tickets de verificacion telefonica.
func (c *Config) TicketTTL() time.Duration {
	return time.Duration(c.TicketTTLMinutes) * time.Minute
}
