package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Journal backends.
const (
	JournalMemory = "memory"
	JournalBolt   = "bolt"
	JournalMongo  = "mongo"
)

type Config struct {
	Port      string        `env:"PORT,      default=8080"`
	Env       string        `env:"ENV,       default=development"`
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=24h"`
	LogLevel  string        `env:"LOG_LEVEL, default=info"`

	Journal  JournalConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Dispatch DispatchConfig
}

type JournalConfig struct {
	Backend  string `env:"JOURNAL_BACKEND, default=memory"`
	BoltPath string `env:"BOLT_PATH,       default=ledger.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=energy_ledger"`
}

// RedisConfig configures the idempotency-key store. An empty Addr disables it.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

// AMQPConfig configures the change-event publisher. An empty URL disables it.
type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE, default=energy.ledger"`
}

type DispatchConfig struct {
	Workers   int `env:"DISPATCH_WORKERS, default=4"`
	QueueSize int `env:"DISPATCH_QUEUE,   default=256"`
}

// IsDevelopment reports whether the service runs with developer defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.Journal.Backend {
	case JournalMemory, JournalBolt, JournalMongo:
	default:
		return fmt.Errorf("config: unknown JOURNAL_BACKEND %q", c.Journal.Backend)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("config: JWT_SECRET is required outside development")
	}
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("config: DISPATCH_WORKERS must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through an arbitrary lookuper and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
