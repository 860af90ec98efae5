package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerAddr  string
	LogLevel    string

	DatabaseURL string

	// JWTSignerKey signs every issued token (HS512). ValidDuration bounds the
	// access window, RefreshableDuration bounds refresh eligibility measured
	// from the original issue time.
	JWTSignerKey        []byte
	ValidDuration       time.Duration
	RefreshableDuration time.Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	KafkaBrokers []string
	KafkaTopic   string
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v, using system environment", err)
	}

	return &Config{
		ServiceName: EnvDefault("SERVICE_NAME", "identity-service"),
		ServerAddr:  EnvDefault("SERVER_ADDR", ":8080"),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTSignerKey:        []byte(os.Getenv("JWT_SIGNER_KEY")),
		ValidDuration:       EnvSecondsDefault("JWT_VALID_DURATION", 3600),
		RefreshableDuration: EnvSecondsDefault("JWT_REFRESHABLE_DURATION", 36000),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: EnvIntDefault("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: EnvDefault("MAIL_FROM", "no-reply@devteria.com"),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   EnvDefault("KAFKA_TOPIC", "user_events"),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvSecondsDefault(key string, def int) time.Duration {
	return time.Duration(EnvIntDefault(key, def)) * time.Second
}
