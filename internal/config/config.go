package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string // ENV: production, development, etc.
	Port        string
	Host        string // raw HOST env (e.g. https://api.example.com)
	AllowedHost string // hostname only, production host check
	TrustProxy  bool   // TRUST_PROXY: honour X-Forwarded-For

	MongoURI    string
	MongoDB     string
	RedisURI    string // optional: rate limiting and quick-stats cache
	PostgresURI string // optional: activity feed

	JWTSecret        string
	JWTTTL           time.Duration
	AllowAdminSignup bool

	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)

	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	SentryDSN string
	LogLevel  string
	LogFormat string

	QuickStatsTTL time.Duration
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	host := getEnv("HOST", "http://localhost:5000")
	var allowedHost string
	if env == "production" {
		allowedHost = hostname(host)
	}

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	logFormat := getEnv("LOG_FORMAT", "")
	if logFormat == "" {
		logFormat = "console"
		if env == "production" {
			logFormat = "json"
		}
	}

	return &Config{
		Environment:         env,
		Port:                getEnv("PORT", "5000"),
		Host:                host,
		AllowedHost:         allowedHost,
		TrustProxy:          getBool("TRUST_PROXY", false),
		MongoURI:            getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017/crm")),
		MongoDB:             getEnv("MONGODB_DB", ""),
		RedisURI:            getEnv("REDIS_URI", ""),
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		JWTSecret:           getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTTTL:              getDuration("JWT_TTL", 30*24*time.Hour),
		AllowAdminSignup:    getBool("ALLOW_ADMIN_SIGNUP", false),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:      allowedOrigins,
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           logFormat,
		QuickStatsTTL:       getDuration("QUICK_STATS_TTL", time.Minute),
	}
}

// hostname strips scheme, path and port from a URL-ish value.
func hostname(u string) string {
	u = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(u), "https://"), "http://")
	if idx := strings.Index(u, "/"); idx != -1 {
		u = u[:idx]
	}
	if idx := strings.Index(u, ":"); idx != -1 {
		u = u[:idx]
	}
	return strings.TrimSpace(u)
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// CloudinaryEnabled reports whether all Cloudinary credentials are set.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
