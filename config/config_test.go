package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ELECTION_TIMEZONE", "Asia/Manila")
	t.Setenv("BALLOT_RATE_LIMIT", "not-a-number")

	cfg := LoadConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 5, cfg.BallotRateLimit)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Manila", loc.String())
	assert.Len(t, cfg.SchedulerKeys(), 1)
}

func TestValidateRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("ELECTION_TIMEZONE", "Mars/Olympus_Mons")

	cfg := LoadConfig()
	assert.Error(t, cfg.Validate())
}

func TestDSNPrefersDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/eboto")
	t.Setenv("SCHEDULER_NEXT_SIGNING_KEY", "next-scheduler-signing-key")

	cfg := LoadConfig()
	assert.Equal(t, "postgres://u:p@db:5432/eboto", cfg.DSN())
	assert.Len(t, cfg.SchedulerKeys(), 2)
}

func TestValidateRejectsDefaultSecretsInRelease(t *testing.T) {
	t.Setenv("APP_MODE", "release")
	for _, key := range []string{"JWT_SECRET", "SCHEDULER_SIGNING_KEY"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg := LoadConfig()
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-release-jwt-secret")
	cfg = LoadConfig()
	assert.ErrorContains(t, cfg.Validate(), "SCHEDULER_SIGNING_KEY")

	t.Setenv("SCHEDULER_SIGNING_KEY", "a-real-release-scheduler-key")
	cfg = LoadConfig()
	assert.NoError(t, cfg.Validate())
}
