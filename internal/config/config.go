package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

var validate = validator.New()

// Config is the full notifyd configuration, read from the environment.
// PostgresDSN, RedisAddr and NATSURL are optional: without them the service
// falls back to in-memory stores and HTTP-only ingress, which is the mode
// integration environments run in.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" env-default:":8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`

	PostgresDSN string `env:"POSTGRES_DSN"`
	RedisAddr   string `env:"REDIS_ADDR"`
	NATSURL     string `env:"NATS_URL"`

	DefaultLocale  string        `env:"DEFAULT_LOCALE" env-default:"en" validate:"required"`
	ChannelTimeout time.Duration `env:"CHANNEL_TIMEOUT" env-default:"5s" validate:"gt=0"`
	PushParallel   int           `env:"PUSH_MAX_PARALLEL" env-default:"4" validate:"gte=1"`
	PushTimeout    time.Duration `env:"PUSH_TIMEOUT" env-default:"4s" validate:"gt=0"`
	PresenceTTL    time.Duration `env:"PRESENCE_TTL" env-default:"90s" validate:"gt=0"`
	PrefCacheTTL   time.Duration `env:"PREFERENCE_CACHE_TTL" env-default:"60s" validate:"gt=0"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort string `env:"SMTP_PORT" env-default:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	SMTPFrom string `env:"SMTP_FROM" validate:"required_with=SMTPHost,omitempty,email"`

	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config invalid: %w", err)
	}
	return &cfg, nil
}
