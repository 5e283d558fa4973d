package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

const envPrefix = "ORCHESTRATOR_"

type Config struct {
	Primary     Primary         `koanf:"primary"`
	Server      ServerConfig    `koanf:"server"`
	Database    DatabaseConfig  `koanf:"database"`
	Cache       CacheConfig     `koanf:"cache"`
	Redis       RedisConfig     `koanf:"redis"`
	Gateway     GatewayConfig   `koanf:"gateway"`
	LedgerRetry RetryConfig     `koanf:"ledger_retry"`
	Audit       AuditConfig     `koanf:"audit"`
	Kafka       KafkaConfig     `koanf:"kafka"`
	Policy      PolicyConfig    `koanf:"policy"`
	Logger      LoggerConfig    `koanf:"logger"`
	Telemetry   TelemetryConfig `koanf:"telemetry"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port           string        `koanf:"port" validate:"required"`
	ReadTimeout    time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout   time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout    time.Duration `koanf:"idle_timeout" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host             string        `koanf:"host" validate:"required"`
	Port             int           `koanf:"port" validate:"required"`
	User             string        `koanf:"user" validate:"required"`
	Password         string        `koanf:"password" validate:"required"`
	Name             string        `koanf:"name" validate:"required"`
	SSLMode          string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns     int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns     int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime  time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime  time.Duration `koanf:"conn_max_idle_time" validate:"required"`
	StatementTimeout time.Duration `koanf:"statement_timeout"` // zero leaves the server default
	ApplySchema      bool          `koanf:"apply_schema"`
}

// CacheConfig selects the idempotency cache backend. Entries live for TTL
// (30 minutes unless overridden).
type CacheConfig struct {
	Backend string        `koanf:"backend" validate:"required,oneof=redis memory"`
	TTL     time.Duration `koanf:"ttl" validate:"required"`
}

type RedisConfig struct {
	Addr         string        `koanf:"addr"`
	Password     string        `koanf:"password"`
	DB           int           `koanf:"db"`
	KeyPrefix    string        `koanf:"key_prefix"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type GatewayConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required"`
	Timeout time.Duration `koanf:"timeout" validate:"required"`
}

// RetryConfig bounds the ledger write retry loop.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"required,min=1"`
	BaseDelay   time.Duration `koanf:"base_delay" validate:"required"`
	MaxDelay    time.Duration `koanf:"max_delay" validate:"required"`
}

type AuditConfig struct {
	Sink           string        `koanf:"sink" validate:"required,oneof=kafka log"`
	BufferSize     int           `koanf:"buffer_size" validate:"required,min=1"`
	PublishTimeout time.Duration `koanf:"publish_timeout" validate:"required"`
	Subject        string        `koanf:"subject"`
}

type KafkaConfig struct {
	Brokers      []string      `koanf:"brokers"`
	Topic        string        `koanf:"topic"`
	BatchTimeout time.Duration `koanf:"batch_timeout"`
}

// PolicyConfig holds the deployment decisions the processors consult.
type PolicyConfig struct {
	AllowVoidAfterCapture bool          `koanf:"allow_void_after_capture"`
	InFlightWait          time.Duration `koanf:"in_flight_wait"`
	InFlightPollInterval  time.Duration `koanf:"in_flight_poll_interval" validate:"required"`
	ProcessingTimeout     time.Duration `koanf:"processing_timeout" validate:"required"`
}

type TelemetryConfig struct {
	Enabled      bool   `koanf:"enabled"`
	ServiceName  string `koanf:"service_name"`
	OTLPEndpoint string `koanf:"otlp_endpoint"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env":                    "development",
		"server.port":                    "8080",
		"server.read_timeout":            "15s",
		"server.write_timeout":           "30s",
		"server.idle_timeout":            "60s",
		"server.request_timeout":         "25s",
		"database.ssl_mode":              "disable",
		"database.max_open_conns":        20,
		"database.max_idle_conns":        5,
		"database.conn_max_lifetime":     "1h",
		"database.conn_max_idle_time":    "30m",
		"database.statement_timeout":     "5s",
		"cache.backend":                  "redis",
		"cache.ttl":                      "30m",
		"redis.key_prefix":               "orch",
		"redis.dial_timeout":             "2s",
		"redis.read_timeout":             "500ms",
		"redis.write_timeout":            "500ms",
		"gateway.timeout":                "20s",
		"ledger_retry.max_attempts":      3,
		"ledger_retry.base_delay":        "100ms",
		"ledger_retry.max_delay":         "2s",
		"audit.sink":                     "log",
		"audit.buffer_size":              1024,
		"audit.publish_timeout":          "5s",
		"audit.subject":                  "payments",
		"kafka.topic":                    "payment-audit",
		"kafka.batch_timeout":            "50ms",
		"policy.in_flight_wait":          "3s",
		"policy.in_flight_poll_interval": "100ms",
		"policy.processing_timeout":      "45s",
		"logger.level":                   "info",
		"logger.format":                  "json",
		"telemetry.service_name":         "payment-orchestrator",
	}
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		logger.Error("failed to load default configuration", "error", err)
		return nil, err
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	if err := mainConfig.Validate(); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// Validate runs the struct tag rules plus the cross-field rules the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Cache.Backend == "redis" && c.Redis.Addr == "" {
		return errMissing("redis.addr", "cache.backend=redis")
	}
	if c.Audit.Sink == "kafka" && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return errMissing("kafka.brokers/kafka.topic", "audit.sink=kafka")
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return errMissing("telemetry.otlp_endpoint", "telemetry.enabled=true")
	}
	return nil
}
