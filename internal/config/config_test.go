package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("CREDENTIAL_SECRET", "cred-secret")
}

func TestNewDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Policy.RefundDeadline)
	assert.Equal(t, 80, cfg.Policy.RefundPercent)
	assert.Equal(t, 2*time.Hour, cfg.Policy.TransportLateDeadline)
	assert.Equal(t, 50, cfg.Policy.TransportLatePercent)
	assert.Equal(t, 10, cfg.Policy.DefaultPerAccountCap)
	assert.Equal(t, 5, cfg.Policy.PurchasesPerHour)
	assert.Equal(t, "none", cfg.Events.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("REFUND_DEADLINE", "48h")
	t.Setenv("REFUND_PERCENT", "60")
	t.Setenv("EVENTS_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 48*time.Hour, cfg.Policy.RefundDeadline)
	assert.Equal(t, 60, cfg.Policy.RefundPercent)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
}

func TestNewZeroRefundPercent(t *testing.T) {
	setRequired(t)
	t.Setenv("REFUND_PERCENT", "0")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Policy.RefundPercent)
	assert.Equal(t, 50, cfg.Policy.TransportLatePercent)
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad port", env: map[string]string{"SERVER_PORT": "http"}},
		{name: "percent out of range", env: map[string]string{"REFUND_PERCENT": "120"}},
		{name: "bad duration", env: map[string]string{"REFUND_DEADLINE": "tomorrow"}},
		{name: "negative duration", env: map[string]string{"TRANSPORT_LATE_DEADLINE": "-1h"}},
		{name: "unknown storage", env: map[string]string{"STORAGE_DRIVER": "sqlite"}},
		{name: "postgres without user", env: map[string]string{"STORAGE_DRIVER": "postgres", "POSTGRES_USER": ""}},
		{name: "kafka without brokers", env: map[string]string{"EVENTS_DRIVER": "kafka", "KAFKA_BROKERS": ""}},
		{name: "amqp without url", env: map[string]string{"EVENTS_DRIVER": "amqp", "AMQP_URL": ""}},
		{name: "missing jwt secret", env: map[string]string{"JWT_SECRET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := New()
			require.Error(t, err)
		})
	}
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{User: "u", Password: "p", Name: "db", Host: "h", Port: 5432, SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/db?sslmode=disable", c.DSN())
}
