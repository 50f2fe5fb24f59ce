package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/tix-engine/internal/config"
	"github.com/kirinyoku/tix-engine/internal/credential"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Host: "127.0.0.1", Port: 0},
		Storage: config.StorageConfig{Driver: "memory"},
		Policy: config.PolicyConfig{
			RefundDeadline:        24 * time.Hour,
			RefundPercent:         80,
			TransportLateDeadline: 2 * time.Hour,
			TransportLatePercent:  50,
			DefaultPerAccountCap:  10,
			PurchasesPerHour:      5,
			BulkCancelWorkers:     2,
		},
		Auth:       config.AuthConfig{JWTSecret: "jwt-secret"},
		Events:     config.EventsConfig{Driver: "none"},
		Credential: config.CredentialConfig{Secret: "cred-secret"},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewMemory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), discard())
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.NotNil(t, a.httpServer)
	assert.Nil(t, a.pubsub)
	assert.NotEmpty(t, a.closers)

	a.close(context.Background())
	assert.Empty(t, a.closers)
}

func TestNewReturnsStartupErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   error
	}{
		{
			name:   "empty credential secret",
			mutate: func(c *config.Config) { c.Credential.Secret = "" },
			want:   credential.ErrEmptySecret,
		},
		{
			name:   "refund percent out of range",
			mutate: func(c *config.Config) { c.Policy.RefundPercent = 120 },
		},
		{
			name:   "negative refund deadline",
			mutate: func(c *config.Config) { c.Policy.RefundDeadline = -time.Hour },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(cfg)

			var (
				a   *App
				err error
			)
			require.NotPanics(t, func() {
				a, err = New(context.Background(), cfg, discard())
			})

			require.Error(t, err)
			assert.Nil(t, a)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
