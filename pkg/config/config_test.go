package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "marketplace", cfg.Metrics.Prefix)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpirationTime)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "8080")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("JWT_EXPIRATION", "2h")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 25, cfg.DB.MaxOpenConns)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpirationTime)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DB_MAX_IDLE_CONNS", "many")
	t.Setenv("JWT_EXPIRATION", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.DB.MaxIdleConns)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpirationTime)
}

func TestGetDSN(t *testing.T) {
	db := DBConfig{
		Host: "db.internal", Port: "5432",
		User: "app", Password: "secret",
		Name: "marketplace_db", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=app password=secret dbname=marketplace_db sslmode=require",
		db.GetDSN())
}
