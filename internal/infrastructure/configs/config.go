package configs

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hilthontt/duet/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	StoreDriverMemory = "memory"
	StoreDriverMongo  = "mongo"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
	Rooms       RoomsConfig       `koanf:"rooms"`
	RoomStore   RoomStoreConfig   `koanf:"room_store"`
	Mongo       MongoConfig       `koanf:"mongo"`
	Entry       EntryConfig       `koanf:"entry"`
	Relay       RelayConfig       `koanf:"relay"`
	RabbitMQ    RabbitMQConfig    `koanf:"rabbitmq"`
	Redis       RedisConfig       `koanf:"redis"`
	Logger      LoggerConfig      `koanf:"logger"`
	Tracing     TracingConfig     `koanf:"tracing"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	AllowedHeaders []string      `koanf:"allowed_headers"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	// TrustProxyHeaders takes the client address and rate-limit key from
	// request headers. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `koanf:"trust_proxy_headers"`
}

type RateLimiterConfig struct {
	MaxRatePerSecond int           `koanf:"maxRatePerSecond"`
	MaxBurst         int           `koanf:"maxBurst"`
	CacheTTL         time.Duration `koanf:"cacheTTL"`
	SourceHeaderKey  string        `koanf:"sourceHeaderKey"`

	// AttemptsPerWindow caps password and token checks per room and client.
	AttemptsPerWindow int           `koanf:"attemptsPerWindow"`
	AttemptWindow     time.Duration `koanf:"attemptWindow"`
}

type RoomsConfig struct {
	TTL           time.Duration `koanf:"ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	MaxActive     int           `koanf:"max_active"`
}

type RoomStoreConfig struct {
	Driver string `koanf:"driver"`
}

type MongoConfig struct {
	URI               string        `koanf:"uri"`
	Database          string        `koanf:"database"`
	ConnectionTimeout time.Duration `koanf:"connection_timeout"`
}

type EntryConfig struct {
	Secret   string        `koanf:"secret"`
	TokenTTL time.Duration `koanf:"token_ttl"`
}

type RelayConfig struct {
	RequireAdmission     bool  `koanf:"require_admission"`
	MaxMessageBytes      int64 `koanf:"max_message_bytes"`
	MaxMessagesPerSecond int   `koanf:"max_messages_per_second"`
	SendBuffer           int   `koanf:"send_buffer"`
}

type RabbitMQConfig struct {
	Enabled bool   `koanf:"enabled"`
	URI     string `koanf:"uri"`
}

type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type LoggerConfig struct {
	FilePath string `koanf:"file_path"`
	Encoding string `koanf:"encoding"`
	Level    string `koanf:"level"`
	Logger   string `koanf:"logger"`
}

type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.Entry.Secret == "" {
		errs = append(errs, errors.New("entry.secret is required (or set DUET_ENTRY_SECRET)"))
	}
	if c.Rooms.TTL <= 0 {
		errs = append(errs, errors.New("rooms.ttl must be positive"))
	}
	if c.Rooms.SweepInterval <= 0 {
		errs = append(errs, errors.New("rooms.sweep_interval must be positive"))
	}

	if c.RateLimiter.AttemptWindow <= 0 {
		errs = append(errs, errors.New("rateLimiter.attemptWindow must be positive"))
	}
	if c.RateLimiter.AttemptsPerWindow <= 0 {
		errs = append(errs, errors.New("rateLimiter.attemptsPerWindow must be positive"))
	}

	switch c.RoomStore.Driver {
	case StoreDriverMemory:
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo room store"))
		}
	default:
		errs = append(errs, fmt.Errorf("room_store.driver %q not supported: supported drivers: [memory, mongo]", c.RoomStore.Driver))
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.URI == "" {
		errs = append(errs, errors.New("rabbitmq.uri is required when rabbitmq is enabled"))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	// HTTP defaults
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.trust_proxy_headers", false)
	setDefault(k, "http.allowed_headers", []string{"Content-Type", "Authorization", "X-Request-ID"})

	// Rate limiter defaults
	setDefault(k, "rateLimiter.maxRatePerSecond", 10)
	setDefault(k, "rateLimiter.maxBurst", 20)
	setDefault(k, "rateLimiter.cacheTTL", 5*time.Minute)
	setDefault(k, "rateLimiter.sourceHeaderKey", "X-Forwarded-For")
	setDefault(k, "rateLimiter.attemptsPerWindow", 10)
	setDefault(k, "rateLimiter.attemptWindow", time.Minute)

	// Room lifecycle defaults
	setDefault(k, "rooms.ttl", 3*time.Minute)
	setDefault(k, "rooms.sweep_interval", time.Minute)
	setDefault(k, "rooms.max_active", 12)
	setDefault(k, "room_store.driver", StoreDriverMemory)

	setDefault(k, "mongo.database", "duet")
	setDefault(k, "mongo.connection_timeout", 20*time.Second)

	setDefault(k, "entry.token_ttl", 30*time.Second)

	setDefault(k, "relay.require_admission", true)
	setDefault(k, "relay.max_message_bytes", 64<<10)
	setDefault(k, "relay.max_messages_per_second", 50)
	setDefault(k, "relay.send_buffer", 64)

	setDefault(k, "redis.prefix", "duet:")

	setDefault(k, "logger.encoding", "json")
	setDefault(k, "logger.level", "info")
	setDefault(k, "logger.logger", "zap")

	setDefault(k, "tracing.service_name", "duet")
	setDefault(k, "tracing.environment", "development")
	setDefault(k, "tracing.exporter", "otlp")
}

func applyEnvOverrides(k *koanf.Koanf) {
	// HTTP config from env
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("HTTP_PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if readTimeout := env.GetInt("HTTP_READ_TIMEOUT_SECONDS", 0); readTimeout > 0 {
		k.Set("http.read_timeout", time.Duration(readTimeout)*time.Second)
	}
	if writeTimeout := env.GetInt("HTTP_WRITE_TIMEOUT_SECONDS", 0); writeTimeout > 0 {
		k.Set("http.write_timeout", time.Duration(writeTimeout)*time.Second)
	}

	// Rate limiter config from env
	if maxRate := env.GetInt("RATE_LIMIT_MAX_RATE_PER_SECOND", 0); maxRate > 0 {
		k.Set("rateLimiter.maxRatePerSecond", maxRate)
	}
	if maxBurst := env.GetInt("RATE_LIMIT_MAX_BURST", 0); maxBurst > 0 {
		k.Set("rateLimiter.maxBurst", maxBurst)
	}
	if sourceKey := env.GetString("RATE_LIMIT_SOURCE_HEADER_KEY", ""); sourceKey != "" {
		k.Set("rateLimiter.sourceHeaderKey", sourceKey)
	}

	// Rooms
	if ttl := env.GetDuration("ROOMS_TTL", 0); ttl > 0 {
		k.Set("rooms.ttl", ttl)
	}
	if interval := env.GetDuration("ROOMS_SWEEP_INTERVAL", 0); interval > 0 {
		k.Set("rooms.sweep_interval", interval)
	}
	if maxActive := env.GetInt("ROOMS_MAX_ACTIVE", -1); maxActive >= 0 {
		k.Set("rooms.max_active", maxActive)
	}
	if driver := env.GetString("ROOM_STORE_DRIVER", ""); driver != "" {
		k.Set("room_store.driver", driver)
	}

	if uri := env.GetString("MONGODB_URI", ""); uri != "" {
		k.Set("mongo.uri", uri)
	}
	if database := env.GetString("MONGODB_DATABASE", ""); database != "" {
		k.Set("mongo.database", database)
	}

	// Entry tokens
	if secret := env.GetString("DUET_ENTRY_SECRET", ""); secret != "" {
		k.Set("entry.secret", secret)
	}
	if tokenTTL := env.GetDuration("DUET_ENTRY_TOKEN_TTL", 0); tokenTTL > 0 {
		k.Set("entry.token_ttl", tokenTTL)
	}

	if _, ok := os.LookupEnv("RELAY_REQUIRE_ADMISSION"); ok {
		k.Set("relay.require_admission", env.GetBool("RELAY_REQUIRE_ADMISSION", true))
	}

	if uri := env.GetString("RABBITMQ_URI", ""); uri != "" {
		k.Set("rabbitmq.uri", uri)
		k.Set("rabbitmq.enabled", env.GetBool("RABBITMQ_ENABLED", true))
	}

	if addr := env.GetString("REDIS_ADDR", ""); addr != "" {
		k.Set("redis.addr", addr)
		k.Set("redis.enabled", env.GetBool("REDIS_ENABLED", true))
	}
	if password := env.GetString("REDIS_PASSWORD", ""); password != "" {
		k.Set("redis.password", password)
	}

	// Logger
	if level := env.GetString("LOGGER_LEVEL", ""); level != "" {
		k.Set("logger.level", level)
	}
	if logger := env.GetString("LOGGER_LOGGER", ""); logger != "" {
		k.Set("logger.logger", logger)
	}
	if filePath := env.GetString("LOGGER_FILE_PATH", ""); filePath != "" {
		k.Set("logger.file_path", filePath)
	}

	// Tracing
	if endpoint := env.GetString("TRACING_ENDPOINT", ""); endpoint != "" {
		k.Set("tracing.endpoint", endpoint)
		k.Set("tracing.enabled", env.GetBool("TRACING_ENABLED", true))
	}
	if environment := env.GetString("APP_ENV", ""); environment != "" {
		k.Set("tracing.environment", environment)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
