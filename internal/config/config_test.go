package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/checkin?sslmode=disable")
	t.Setenv("OIDC_ISSUER", "http://auth.local/realms/checkin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8085", cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.App.StaffSessionTTL)
	assert.Equal(t, 5, cfg.App.LoginMaxAttempts)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "checkin.participation.checked_in", cfg.Kafka.Topics.ParticipationCheckedIn)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://x")
	t.Setenv("SKIP_AUTH", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("STAFF_SESSION_TTL", "2h")
	t.Setenv("PUBLIC_BASE_URL", "https://tickets.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 2*time.Hour, cfg.App.StaffSessionTTL)
	assert.Equal(t, "https://tickets.example.com", cfg.App.BaseURL)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("SKIP_AUTH", "true")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRequiresIssuerUnlessSkipped(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://x")
	t.Setenv("OIDC_ISSUER", "")
	t.Setenv("SKIP_AUTH", "false")

	_, err := Load()
	assert.EqualError(t, err, "OIDC_ISSUER not set")
}
