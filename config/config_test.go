package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/reardonm/trivia/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.RoundsPerGame)
	assert.Equal(t, 3, cfg.MinPlayers)
	assert.Equal(t, 5*time.Second, cfg.StartDelay)
	assert.Equal(t, 30*time.Second, cfg.RoundDuration)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROUNDS_PER_GAME", "5")
	t.Setenv("MIN_PLAYERS", "2")
	t.Setenv("ROUND_DURATION", "10s")
	t.Setenv("POLL_INTERVAL", "250ms")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.RoundsPerGame)
	assert.Equal(t, 2, cfg.MinPlayers)
	assert.Equal(t, 10*time.Second, cfg.RoundDuration)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ROUNDS_PER_GAME", "lots")
	t.Setenv("ROUND_DURATION", "soon")

	cfg := Load()

	assert.Equal(t, 10, cfg.RoundsPerGame)
	assert.Equal(t, 30*time.Second, cfg.RoundDuration)
}

func TestValidate(t *testing.T) {
	cfg := Load()
	cfg.MinPlayers = 0
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidInput)

	cfg = Load()
	cfg.PollInterval = 0
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidInput)

	cfg = Load()
	cfg.StartDelay = -time.Second
	assert.ErrorIs(t, cfg.Validate(), models.ErrInvalidInput)
}
