package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// Session engine and the realtime endpoint handed to admitted clients.
	EngineBaseURL    string
	EngineTimeout    time.Duration
	EngineMaxRetries int
	RealtimeEndpoint string

	// Join-code behavior.
	ReserveMaxAttempts int
	ResolveTTL         time.Duration
	StatusTTL          time.Duration
	ConnTokenTTL       time.Duration
	GamePageTTL        time.Duration
	SweepInterval      time.Duration
	SweepMaxAge        time.Duration

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// Security policy:
	// If true, TERO_TOKEN_HMAC_KEY MUST be set (>= 32 bytes) and connection-token
	// signing must be HMAC-based.
	RequireTokenHMAC bool
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("TERO_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TERO_LOG_LEVEL", "info"),
		LogFormat: EnvString("TERO_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("TERO_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TERO_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TERO_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TERO_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TERO_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("TERO_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TERO_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TERO_DB_MIN_CONNS", 0),

		EngineBaseURL:    EnvString("TERO_ENGINE_BASE_URL", "http://127.0.0.1:9090"),
		EngineTimeout:    EnvDuration("TERO_ENGINE_TIMEOUT", 5*time.Second),
		EngineMaxRetries: EnvInt("TERO_ENGINE_MAX_RETRIES", 2),
		RealtimeEndpoint: EnvString("TERO_REALTIME_ENDPOINT", "ws://127.0.0.1:8080/ws"),

		ReserveMaxAttempts: EnvInt("TERO_RESERVE_MAX_ATTEMPTS", 10),
		ResolveTTL:         EnvDuration("TERO_RESOLVE_TTL", 5*time.Second),
		StatusTTL:          EnvDuration("TERO_STATUS_TTL", 2*time.Second),
		ConnTokenTTL:       EnvDuration("TERO_CONN_TOKEN_TTL", 30*time.Second),
		GamePageTTL:        EnvDuration("TERO_GAME_PAGE_TTL", 2*time.Minute),
		SweepInterval:      EnvDuration("TERO_SWEEP_INTERVAL", time.Minute),
		SweepMaxAge:        EnvDuration("TERO_SWEEP_MAX_AGE", 10*time.Minute),

		ReadinessRequireDB: EnvBool("TERO_READINESS_REQUIRE_DB", false),

		RequireTokenHMAC: EnvBool("TERO_REQUIRE_TOKEN_HMAC", false),
	}
}
