// Environment-driven configuration, no YAML. Every value has a
// sensible default so the server boots with nothing but a Mongo URI.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"confessly/internal/ratelimit"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Mongo     MongoConfig
	JWT       JWTConfig
	Chat      ChatConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        string
	Debug       bool
}

type ServerConfig struct {
	ReadTimeout    time.Duration
	IdleTimeout    time.Duration
	AllowedOrigins []string
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type ChatConfig struct {
	// TTL is fixed at chat creation and never extended by activity.
	TTL           time.Duration
	SweepInterval time.Duration
}

type RateLimitConfig struct {
	SendMessageWindow time.Duration
	SendMessageMax    int
	EditProfileWindow time.Duration
	EditProfileMax    int
	SendRequestWindow time.Duration
	SendRequestMax    int
	NegotiateWindow   time.Duration
	NegotiateMax      int
}

func Load() *Config {
	return &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "confessly"),
			Environment: getEnv("APP_ENV", "development"),
			Port:        getEnv("PORT", "4000"),
			Debug:       getEnvAsBool("APP_DEBUG", false),
		},
		Server: ServerConfig{
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", "http://localhost:4000"),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "confessly"),
			ConnectTimeout: getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", "10s"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
			Issuer: getEnv("JWT_ISSUER", "confessly"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", "720h"),
		},
		Chat: ChatConfig{
			TTL:           getEnvAsDuration("CHAT_TTL", "48h"),
			SweepInterval: getEnvAsDuration("CHAT_SWEEP_INTERVAL", "10m"),
		},
		RateLimit: RateLimitConfig{
			SendMessageWindow: getEnvAsDuration("RATE_SEND_MESSAGE_WINDOW", "30s"),
			SendMessageMax:    getEnvAsInt("RATE_SEND_MESSAGE_MAX", 15),
			EditProfileWindow: getEnvAsDuration("RATE_EDIT_PROFILE_WINDOW", "1h"),
			EditProfileMax:    getEnvAsInt("RATE_EDIT_PROFILE_MAX", 3),
			SendRequestWindow: getEnvAsDuration("RATE_SEND_REQUEST_WINDOW", "1h"),
			SendRequestMax:    getEnvAsInt("RATE_SEND_REQUEST_MAX", 4),
			NegotiateWindow:   getEnvAsDuration("RATE_NEGOTIATE_WINDOW", "5m"),
			NegotiateMax:      getEnvAsInt("RATE_NEGOTIATE_MAX", 1),
		},
	}
}

// Rules converts the configured quotas into limiter rules.
func (c RateLimitConfig) Rules() map[ratelimit.Action]ratelimit.Rule {
	return map[ratelimit.Action]ratelimit.Rule{
		ratelimit.ActionSendMessage:     {Window: c.SendMessageWindow, Max: c.SendMessageMax},
		ratelimit.ActionEditProfile:     {Window: c.EditProfileWindow, Max: c.EditProfileMax},
		ratelimit.ActionSendRequest:     {Window: c.SendRequestWindow, Max: c.SendRequestMax},
		ratelimit.ActionEndNegotiate:    {Window: c.NegotiateWindow, Max: c.NegotiateMax},
		ratelimit.ActionRejectNegotiate: {Window: c.NegotiateWindow, Max: c.NegotiateMax},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
