package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-in-production"

var ErrDevSecretInProduction = errors.New("JWT_SECRET must be set in production environment")

type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	SessionTTL      time.Duration
	ConfirmationTTL time.Duration
	WebserviceURL   string

	PasswordHasher    string
	BcryptCost        int
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8

	SendEmail         bool
	SMTPHost          string
	SMTPPort          string
	SMTPUsername      string
	SMTPPassword      string
	MailFrom          string
	MailRatePerSecond float64
	MailBurst         int
	MailSendTimeout   time.Duration

	CORSAllowedOrigins []string
}

// Load reads the configuration from the environment. Every malformed value
// is reported, not just the first.
func Load() (Config, error) {
	p := &parser{}

	cfg := Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseDriver: getEnv("DATABASE_DRIVER", "mysql"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/authkeep?parseTime=true"),

		JWTSecret:       getEnv("JWT_SECRET", devJWTSecret),
		JWTIssuer:       getEnv("JWT_ISSUER", "authkeep"),
		JWTAudience:     getEnv("JWT_AUDIENCE", "authkeep-api"),
		SessionTTL:      p.duration("SESSION_TTL", 2*time.Hour),
		ConfirmationTTL: p.duration("CONFIRMATION_TTL", 2*time.Hour),
		WebserviceURL:   getEnv("WEBSERVICE_URL", "http://localhost:8080/api/v1"),

		PasswordHasher:    getEnv("PASSWORD_HASHER", "argon2id"),
		BcryptCost:        p.integer("BCRYPT_COST", 10),
		Argon2Memory:      uint32(p.unsigned("ARGON2_MEMORY", 64*1024, 32)),
		Argon2Iterations:  uint32(p.unsigned("ARGON2_ITERATIONS", 3, 32)),
		Argon2Parallelism: uint8(p.unsigned("ARGON2_PARALLELISM", 2, 8)),

		SendEmail:         p.boolean("SEND_EMAIL", false),
		SMTPHost:          getEnv("SMTP_HOST", "localhost"),
		SMTPPort:          getEnv("SMTP_PORT", "587"),
		SMTPUsername:      os.Getenv("SMTP_USERNAME"),
		SMTPPassword:      os.Getenv("SMTP_PASSWORD"),
		MailFrom:          getEnv("MAIL_FROM", "no-reply@authkeep.local"),
		MailRatePerSecond: p.float("MAIL_RATE_PER_SECOND", 5),
		MailBurst:         p.integer("MAIL_BURST", 10),
		MailSendTimeout:   p.duration("MAIL_SEND_TIMEOUT", 30*time.Second),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	switch cfg.DatabaseDriver {
	case "mysql", "postgres", "memory":
	default:
		p.errs = append(p.errs, fmt.Errorf("DATABASE_DRIVER: unsupported driver %q", cfg.DatabaseDriver))
	}

	if cfg.Env == "production" && cfg.JWTSecret == devJWTSecret {
		p.errs = append(p.errs, ErrDevSecretInProduction)
	}

	return cfg, errors.Join(p.errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parser collects conversion errors for typed environment values.
type parser struct {
	errs []error
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return d
}

func (p *parser) integer(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p *parser) unsigned(key string, fallback uint64, bits int) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, bits)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return f
}

func (p *parser) boolean(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
