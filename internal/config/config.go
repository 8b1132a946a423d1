// Package config loads the wishlist service settings from environment
// variables. Every value has a default; Load normalizes what it can and
// reports everything it cannot in one error, so a broken deployment shows all
// of its misconfigurations on the first start.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// DBConfig selects and locates the relational store.
type DBConfig struct {
	Driver string // DB_DRIVER: sqlite|postgres
	Path   string // DB_PATH (sqlite)
	URL    string // DATABASE_URL (postgres)
}

// AuthConfig defines the user directory and session settings.
type AuthConfig struct {
	Users        string        // AUTH_USERS: name:password:ROLE[|ROLE],...
	JWTSecret    string        // AUTH_JWT_SECRET; random per process when empty
	SessionTTL   time.Duration // SESSION_TTL
	CookieSecure bool          // COOKIE_SECURE: Secure flag on session and voter cookies
}

// CacheConfig defines the vote count cache.
type CacheConfig struct {
	VoteTTL       time.Duration // VOTE_CACHE_TTL; 0 disables caching
	RedisAddr     string        // REDIS_ADDR; empty keeps the cache in process
	RedisPassword string        // REDIS_PASSWORD
	RedisDB       int           // REDIS_DB
}

// OTELConfig defines OpenTelemetry tracing settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-wishlist-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes
	LogFile        string // optional rotating log file (in addition to stdout)

	// Wishlist
	DB              DBConfig
	TicketBaseURL   string // APP_TICKET_BASE_URL: base for expanding ticket keys
	TestDataEnabled bool   // APP_TESTDATA_ENABLED: seed demo features on serve
	SnowflakeNode   int64  // SNOWFLAKE_NODE in [0,1023]

	Auth  AuthConfig
	Cache CacheConfig

	// Rate limiting
	RateRPS        float64 // tokens per second (>= 0)
	RateBurst      int     // bucket size (>= 1)
	LoginPerMinute int     // login attempts per client IP per minute (>= 1)
	VotesPerMinute int     // vote casts per client IP per minute (>= 1)

	CORS     CORSConfig
	Security SecurityConfig

	// How long a stored Idempotency-Key outcome is replayed.
	IdempotencyTTL time.Duration

	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables, applies defaults,
// normalizes values, and validates the result. The returned error joins
// every failed check.
func Load() (Config, error) {
	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           oneOf(getenv("GIN_MODE", "release"), "release", "debug", "release", "test"),

		LogLevel:       logLevel(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),
		LogFile:        getenv("LOG_FILE", ""),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "wishlist.db"),
			URL:    getenv("DATABASE_URL", ""),
		},
		TicketBaseURL:   strings.TrimSpace(getenv("APP_TICKET_BASE_URL", "")),
		TestDataEnabled: getbool("APP_TESTDATA_ENABLED", false),
		SnowflakeNode:   int64(getint("SNOWFLAKE_NODE", 1)),

		Auth: AuthConfig{
			Users:        getenv("AUTH_USERS", "user:user:USER,admin:admin:ADMIN"),
			JWTSecret:    getenv("AUTH_JWT_SECRET", ""),
			SessionTTL:   getdur("SESSION_TTL", 8*time.Hour),
			CookieSecure: getbool("COOKIE_SECURE", false),
		},
		Cache: CacheConfig{
			VoteTTL:       getdur("VOTE_CACHE_TTL", 30*time.Second),
			RedisAddr:     getenv("REDIS_ADDR", ""),
			RedisPassword: getenv("REDIS_PASSWORD", ""),
			RedisDB:       getint("REDIS_DB", 0),
		},

		RateRPS:        getfloat("RATE_RPS", 5.0),
		RateBurst:      getint("RATE_BURST", 10),
		LoginPerMinute: getint("LOGIN_RATE_PER_MIN", 10),
		VotesPerMinute: getint("VOTE_RATE_PER_MIN", 60),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-wishlist-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	// server
	check(strings.TrimSpace(cfg.Port) != "", "PORT must not be empty")
	check(cfg.ReadTimeout > 0 && cfg.ReadHeaderTimeout > 0 && cfg.WriteTimeout > 0 && cfg.IdleTimeout > 0,
		"timeouts must be positive durations")
	check(cfg.MaxHeaderBytes > 0, "MAX_HEADER_BYTES must be > 0")
	check(cfg.LogLevel != "", "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")

	// wishlist
	errs = append(errs, cfg.DB.validate())
	check(cfg.TicketBaseURL == "" || isHTTPURL(cfg.TicketBaseURL), "APP_TICKET_BASE_URL must be an http(s) URL, got %q", cfg.TicketBaseURL)
	check(cfg.SnowflakeNode >= 0 && cfg.SnowflakeNode <= 1023, "SNOWFLAKE_NODE must be between 0 and 1023, got %d", cfg.SnowflakeNode)
	check(strings.TrimSpace(cfg.Auth.Users) != "", "AUTH_USERS must not be empty")
	check(cfg.Auth.SessionTTL > 0, "SESSION_TTL must be > 0")
	check(cfg.Cache.VoteTTL >= 0, "VOTE_CACHE_TTL must be >= 0")
	check(cfg.Cache.RedisDB >= 0, "REDIS_DB must be >= 0")
	check(cfg.IdempotencyTTL > 0, "IDEMPOTENCY_TTL must be > 0")

	// protection
	check(cfg.RateRPS >= 0, "RATE_RPS must be >= 0")
	check(cfg.RateBurst >= 1, "RATE_BURST must be >= 1")
	check(cfg.LoginPerMinute >= 1, "LOGIN_RATE_PER_MIN must be >= 1")
	check(cfg.VotesPerMinute >= 1, "VOTE_RATE_PER_MIN must be >= 1")
	check(cfg.Security.HSTSMaxAge >= 0, "HSTS_MAX_AGE must be >= 0")

	check(cfg.OTEL.SampleRatio >= 0 && cfg.OTEL.SampleRatio <= 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errors.Join(errs...)
}

func (db DBConfig) validate() error {
	switch db.Driver {
	case "sqlite":
		if strings.TrimSpace(db.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(db.URL) == "" {
			return errors.New("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be one of: sqlite, postgres, got %q", db.Driver)
	}
	return nil
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// logLevel lowercases v and maps "warning" to "warn". Unknown levels come
// back empty so validate can reject them.
func logLevel(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "warning" {
		v = "warn"
	}
	return oneOf(v, "", "debug", "info", "warn", "error", "fatal", "panic")
}

// oneOf returns the lowercased v when it is among allowed, def otherwise.
func oneOf(v, def string, allowed ...string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}

// ---- env readers; unset, empty and unparsable values yield the default ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func parseEnv[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func getint(k string, def int) int { return parseEnv(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration {
	return parseEnv(k, def, time.ParseDuration)
}

func getfloat(k string, def float64) float64 {
	return parseEnv(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

var errNotBool = errors.New("not a boolean")

func getbool(k string, def bool) bool {
	return parseEnv(k, def, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, errNotBool
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
