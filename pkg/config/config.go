package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

type Config struct {
	Env string

	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Scenarios ScenarioConfig
	Metrics   MetricsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the timetable engine services.
type SchedulerConfig struct {
	RequestTimeout    time.Duration
	LockBackend       string
	LockTTL           time.Duration
	CacheEnabled      bool
	ConflictCacheTTL  time.Duration
	MaxDailyHours     int
	FacultyMaxLoad    int
	BlockOtherScopes  bool
	LockRetryInterval time.Duration
}

// ScenarioConfig sizes the background scenario generation pool.
type ScenarioConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	MaxLineage int
}

// MetricsConfig points the CLI at a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string
	JobName        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		RequestTimeout:    parseDuration(v.GetString("SCHEDULER_REQUEST_TIMEOUT"), 10*time.Second),
		LockBackend:       strings.ToLower(v.GetString("SCHEDULER_LOCK_BACKEND")),
		LockTTL:           parseDuration(v.GetString("SCHEDULER_LOCK_TTL"), 30*time.Second),
		LockRetryInterval: parseDuration(v.GetString("SCHEDULER_LOCK_RETRY_INTERVAL"), 50*time.Millisecond),
		CacheEnabled:      v.GetBool("SCHEDULER_CACHE_ENABLED"),
		ConflictCacheTTL:  parseDuration(v.GetString("SCHEDULER_CONFLICT_CACHE_TTL"), 10*time.Minute),
		MaxDailyHours:     v.GetInt("SCHEDULER_MAX_DAILY_HOURS"),
		FacultyMaxLoad:    v.GetInt("SCHEDULER_FACULTY_MAX_LOAD"),
		BlockOtherScopes:  v.GetBool("SCHEDULER_BLOCK_OTHER_SCOPES"),
	}
	if cfg.Scheduler.LockBackend != LockBackendRedis {
		cfg.Scheduler.LockBackend = LockBackendMemory
	}

	cfg.Scenarios = ScenarioConfig{
		Workers:    v.GetInt("SCENARIO_WORKERS"),
		Retries:    v.GetInt("SCENARIO_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SCENARIO_RETRY_DELAY"), time.Second),
		MaxLineage: v.GetInt("SCENARIO_MAX_LINEAGE"),
	}

	cfg.Metrics = MetricsConfig{
		PushgatewayURL: v.GetString("METRICS_PUSHGATEWAY_URL"),
		JobName:        v.GetString("METRICS_JOB_NAME"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "edu_sync")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULER_REQUEST_TIMEOUT", "10s")
	v.SetDefault("SCHEDULER_LOCK_BACKEND", LockBackendMemory)
	v.SetDefault("SCHEDULER_LOCK_TTL", "30s")
	v.SetDefault("SCHEDULER_LOCK_RETRY_INTERVAL", "50ms")
	v.SetDefault("SCHEDULER_CACHE_ENABLED", false)
	v.SetDefault("SCHEDULER_CONFLICT_CACHE_TTL", "10m")
	v.SetDefault("SCHEDULER_MAX_DAILY_HOURS", 0)
	v.SetDefault("SCHEDULER_FACULTY_MAX_LOAD", 0)
	v.SetDefault("SCHEDULER_BLOCK_OTHER_SCOPES", true)

	v.SetDefault("SCENARIO_WORKERS", 2)
	v.SetDefault("SCENARIO_RETRIES", 1)
	v.SetDefault("SCENARIO_RETRY_DELAY", "1s")
	v.SetDefault("SCENARIO_MAX_LINEAGE", 16)

	v.SetDefault("METRICS_PUSHGATEWAY_URL", "")
	v.SetDefault("METRICS_JOB_NAME", "timetabler")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
