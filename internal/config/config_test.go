package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ORCHESTRATOR_DATABASE__HOST", "localhost")
	t.Setenv("ORCHESTRATOR_DATABASE__PORT", "5432")
	t.Setenv("ORCHESTRATOR_DATABASE__USER", "orchestrator")
	t.Setenv("ORCHESTRATOR_DATABASE__PASSWORD", "secret")
	t.Setenv("ORCHESTRATOR_DATABASE__NAME", "payments")
	t.Setenv("ORCHESTRATOR_GATEWAY__BASE_URL", "http://gateway:8081")
	t.Setenv("ORCHESTRATOR_REDIS__ADDR", "localhost:6379")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 3, cfg.LedgerRetry.MaxAttempts)
	assert.Equal(t, "log", cfg.Audit.Sink)
	assert.Equal(t, 45*time.Second, cfg.Policy.ProcessingTimeout)
	assert.False(t, cfg.Policy.AllowVoidAfterCapture)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Second, cfg.Database.StatementTimeout)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ORCHESTRATOR_CACHE__TTL", "10m")
	t.Setenv("ORCHESTRATOR_POLICY__ALLOW_VOID_AFTER_CAPTURE", "true")
	t.Setenv("ORCHESTRATOR_AUDIT__SINK", "kafka")
	t.Setenv("ORCHESTRATOR_KAFKA__BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Policy.AllowVoidAfterCapture)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_MissingDatabase(t *testing.T) {
	t.Setenv("ORCHESTRATOR_GATEWAY__BASE_URL", "http://gateway:8081")
	t.Setenv("ORCHESTRATOR_REDIS__ADDR", "localhost:6379")

	_, err := LoadConfig()

	assert.Error(t, err)
}

func TestValidate_CrossFieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"redis without addr", func(c *Config) { c.Redis.Addr = "" }},
		{"kafka without brokers", func(c *Config) { c.Audit.Sink = "kafka"; c.Kafka.Brokers = nil }},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Enabled = true }},
		{"unknown cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)

			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggerConfig{Level: "warn", Format: "json"}.newLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"key":"value"`)
}

func TestDatabaseConfig_PgxConfig(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p@ss:w/rd", Name: "payments", SSLMode: "disable",
		MaxOpenConns: 10, MaxIdleConns: 2, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: time.Minute,
		StatementTimeout: 5 * time.Second,
	}

	pgxCfg, err := c.PgxConfig(t.Context())

	require.NoError(t, err)
	assert.Equal(t, "db", pgxCfg.ConnConfig.Host)
	assert.Equal(t, "payments", pgxCfg.ConnConfig.Database)
	assert.Equal(t, "p@ss:w/rd", pgxCfg.ConnConfig.Password)
	assert.EqualValues(t, 10, pgxCfg.MaxConns)
	assert.EqualValues(t, 2, pgxCfg.MinConns)
	assert.Equal(t, "payment-orchestrator", pgxCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, "5000", pgxCfg.ConnConfig.RuntimeParams["statement_timeout"])
}

func TestDatabaseConfig_MinConnsNeverExceedMax(t *testing.T) {
	c := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "payments", SSLMode: "disable",
		MaxOpenConns: 4, MaxIdleConns: 10,
	}

	pgxCfg, err := c.PgxConfig(t.Context())

	require.NoError(t, err)
	assert.EqualValues(t, 4, pgxCfg.MinConns)
	assert.NotContains(t, pgxCfg.ConnConfig.RuntimeParams, "statement_timeout")
}
