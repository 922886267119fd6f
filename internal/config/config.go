package config

import "time"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min" env:"SERVER_RATE_LIMIT_PER_MIN" env-default:"300"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"false"`
	MigrationsDir   string        `yaml:"migrations_dir"     env:"DATABASE_MIGRATIONS_DIR"     env-default:"./migrations"`
}

// ScraperConfig holds scrape scheduling and source politeness settings.
type ScraperConfig struct {
	Interval     time.Duration `yaml:"interval"      env:"SCRAPER_INTERVAL"      env-default:"1h"`
	RequestDelay time.Duration `yaml:"request_delay" env:"SCRAPER_REQUEST_DELAY" env-default:"200ms"`
	// MaxConcurrentFetches bounds parallel detail-chunk requests against
	// the source during listing enrichment.
	MaxConcurrentFetches int           `yaml:"max_concurrent_fetches" env:"SCRAPER_MAX_CONCURRENT_FETCHES" env-default:"5"`
	RetryAttempts        int           `yaml:"retry_attempts"         env:"SCRAPER_RETRY_ATTEMPTS"         env-default:"3"`
	RequestTimeout       time.Duration `yaml:"request_timeout"        env:"SCRAPER_REQUEST_TIMEOUT"        env-default:"30s"`
	// MaxConsecutiveFailures escalates a cycle to failed after N
	// consecutive per-game failures. 0 disables escalation.
	MaxConsecutiveFailures int `yaml:"max_consecutive_failures" env:"SCRAPER_MAX_CONSECUTIVE_FAILURES" env-default:"0"`
}

// AnalyticsConfig holds derivation defaults for the analytics endpoints.
type AnalyticsConfig struct {
	GrowthWindowDays int     `yaml:"growth_window_days" env:"ANALYTICS_GROWTH_WINDOW_DAYS" env-default:"7"`
	MinOverlap       float64 `yaml:"min_overlap"        env:"ANALYTICS_MIN_OVERLAP"        env-default:"0.1"`
	ResonanceLimit   int     `yaml:"resonance_limit"    env:"ANALYTICS_RESONANCE_LIMIT"    env-default:"20"`
	MinActivePlayers int64   `yaml:"min_active_players" env:"ANALYTICS_MIN_ACTIVE_PLAYERS" env-default:"1"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings for the polling UI.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}
