package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer shown in authenticator apps

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./gatehouse.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	SessionKeyFile       string        // Optional: path to file containing the session signing key (default: ./session.key)
	SessionLifetime      time.Duration // Optional: idle lifetime of login sessions (default: 30m)
	MFAFailureLimit      int           // Optional: failed code submissions allowed per pending login (default: 0 = unlimited)
	SecureCookies        bool          // Optional: mark session cookies Secure (default: true outside dev)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 5m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               os.Getenv("GATEHOUSE_ISSUER"),
		DatabaseFile:         getEnvOrDefault("GATEHOUSE_DATABASE_FILE", "gatehouse.db"),
		PepperFile:           getEnvOrDefault("GATEHOUSE_PEPPER_FILE", "pepper"),
		SessionKeyFile:       getEnvOrDefault("GATEHOUSE_SESSION_KEY_FILE", "session.key"),
		SessionLifetime:      getEnvDurationOrDefault("SESSION_LIFETIME", 30*time.Minute),
		MFAFailureLimit:      getEnvIntOrDefault("MFA_FAILURE_LIMIT", 0),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}

	if cfg.Issuer == "" {
		cfg.Issuer = "gatehouse"
	}

	// Dev runs over plain HTTP; everywhere else Secure cookies are on.
	cfg.SecureCookies = cfg.Env != "dev"
	if v := os.Getenv("SECURE_COOKIES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SecureCookies = b
		}
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
