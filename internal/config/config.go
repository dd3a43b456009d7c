package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string

	AdminAPIKey string

	CAPassphrase            string
	KeyAlgorithm            string
	CertValidityDays        int
	ResponseValiditySeconds int

	RenewalWindowDays        int
	RenewalCheckIntervalMins int

	PolicyBundlePath string
	PolicyBundleID   string

	ProbeBaseURL        string
	ProbeTimeoutSeconds int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitFailClosed    bool
	RateLimitMaxKeys       int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:                 addr,
		PostgresDSN:              os.Getenv("POSTGRES_DSN"),
		LogLevel:                 envDefault("LOG_LEVEL", "info"),
		AdminAPIKey:              os.Getenv("ADMIN_API_KEY"),
		CAPassphrase:             os.Getenv("CA_PASSPHRASE"),
		KeyAlgorithm:             envDefault("CA_KEY_ALGORITHM", "ed25519"),
		CertValidityDays:         envIntDefault("CERT_VALIDITY_DAYS", 365),
		ResponseValiditySeconds:  envIntDefault("STATUS_RESPONSE_VALIDITY_SECONDS", 3600),
		RenewalWindowDays:        envIntDefault("RENEWAL_WINDOW_DAYS", 30),
		RenewalCheckIntervalMins: envIntDefault("RENEWAL_CHECK_INTERVAL_MINUTES", 60),
		PolicyBundlePath:         os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:           envDefault("POLICY_BUNDLE_ID", "issuance"),
		ProbeBaseURL:             os.Getenv("PROBE_BASE_URL"),
		ProbeTimeoutSeconds:      envIntDefault("PROBE_TIMEOUT_SECONDS", 10),
		RateLimitRequests:        envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds:   envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitFailClosed:      envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RateLimitMaxKeys:         envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  envIntDefault("REDIS_DB", 0),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func (c Config) CertValidity() time.Duration {
	if c.CertValidityDays <= 0 {
		return 0
	}
	return time.Duration(c.CertValidityDays) * 24 * time.Hour
}

func (c Config) ResponseValidity() time.Duration {
	if c.ResponseValiditySeconds <= 0 {
		return 0
	}
	return time.Duration(c.ResponseValiditySeconds) * time.Second
}

func (c Config) RenewalWindow() time.Duration {
	if c.RenewalWindowDays <= 0 {
		return 0
	}
	return time.Duration(c.RenewalWindowDays) * 24 * time.Hour
}

func (c Config) RenewalCheckInterval() time.Duration {
	if c.RenewalCheckIntervalMins <= 0 {
		return 0
	}
	return time.Duration(c.RenewalCheckIntervalMins) * time.Minute
}

func (c Config) ProbeTimeout() time.Duration {
	if c.ProbeTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.ProbeTimeoutSeconds) * time.Second
}
