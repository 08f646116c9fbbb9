package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageJSON     = "json"
	StoragePostgres = "postgres"
)

// Rating prompt registries accepted by RATING_STORE.
const (
	RatingStoreMemory = "memory"
	RatingStoreRedis  = "redis"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App      AppConfig
	Discord  DiscordConfig
	Guild    GuildConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Rating   RatingConfig
	Logger   LoggerConfig
	Ops      OpsConfig
	Kafka    KafkaConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name                      string
	Env                       string
	Version                   string
	GuildConfigPath           string
	InteractionTimeoutSeconds int
}

// DiscordConfig holds gateway credentials.
type DiscordConfig struct {
	Token string
}

// StorageConfig selects the ticket store backend.
type StorageConfig struct {
	Driver   string
	JSONPath string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RatingConfig controls the rating prompt lifetime and registry.
type RatingConfig struct {
	Store            string
	PromptTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// OpsConfig configures the operator HTTP surface.
type OpsConfig struct {
	Enabled               bool
	Host                  string
	Port                  string
	JWTSecret             string
	APIKeyHash            string
	AccessTokenTTLMinutes int
}

// KafkaConfig configures the optional ticket event sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables and the guild file, applying defaults where possible.
func Load() (*Config, error) {
	cfg, err := LoadEnv()
	if err != nil {
		return nil, err
	}
	guild, err := LoadGuild(cfg.App.GuildConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Guild = *guild
	return cfg, nil
}

// LoadEnv reads only the process settings. Commands that never talk to the
// guild, such as migrations, use it directly.
func LoadEnv() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                      getEnv("APP_NAME", "ticket-bot"),
			Env:                       getEnv("APP_ENV", "development"),
			Version:                   getEnv("APP_VERSION", "dev"),
			GuildConfigPath:           getEnv("TICKET_CONFIG", "ticket_config.yaml"),
			InteractionTimeoutSeconds: getEnvAsInt("INTERACTION_TIMEOUT_SECONDS", 30),
		},
		Discord: DiscordConfig{
			Token: os.Getenv("DISCORD_TOKEN"),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(getEnv("STORAGE_DRIVER", StorageJSON)),
			JSONPath: getEnv("JSON_STORE_PATH", "tickets.json"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Rating: RatingConfig{
			Store:            strings.ToLower(getEnv("RATING_STORE", RatingStoreMemory)),
			PromptTTLSeconds: getEnvAsInt("RATING_PROMPT_TTL_SECONDS", 180),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Ops: OpsConfig{
			Enabled:               getEnvAsBool("OPS_ENABLED", true),
			Host:                  getEnv("OPS_HOST", "0.0.0.0"),
			Port:                  getEnv("OPS_PORT", "8080"),
			JWTSecret:             os.Getenv("OPS_JWT_SECRET"),
			APIKeyHash:            os.Getenv("OPS_API_KEY_HASH"),
			AccessTokenTTLMinutes: getEnvAsInt("OPS_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   os.Getenv("KAFKA_TOPIC"),
		},
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageJSON:
	case StoragePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required for storage driver %q", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Rating.Store {
	case RatingStoreMemory:
	case RatingStoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: REDIS_ADDR is required for rating store %q", c.Rating.Store)
		}
	default:
		return fmt.Errorf("config: unknown RATING_STORE %q", c.Rating.Store)
	}
	if c.Ops.Enabled && c.Ops.APIKeyHash != "" && c.Ops.JWTSecret == "" {
		return fmt.Errorf("config: OPS_JWT_SECRET is required when OPS_API_KEY_HASH is set")
	}
	return c.Guild.Validate()
}

// Addr returns the ops HTTP bind address.
func (o OpsConfig) Addr() string {
	return fmt.Sprintf("%s:%s", o.Host, o.Port)
}

// PromptTTL returns how long a rating prompt accepts answers.
func (r RatingConfig) PromptTTL() time.Duration {
	if r.PromptTTLSeconds <= 0 {
		return 180 * time.Second
	}
	return time.Duration(r.PromptTTLSeconds) * time.Second
}

// InteractionTimeout bounds the work done for a single interaction.
func (a AppConfig) InteractionTimeout() time.Duration {
	if a.InteractionTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.InteractionTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
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
