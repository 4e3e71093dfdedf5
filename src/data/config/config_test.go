package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseBoolDefault(t *testing.T) {
	assert.True(t, parseBoolDefault("YES", false))
	assert.True(t, parseBoolDefault(" on ", false))
	assert.False(t, parseBoolDefault("0", true))
	assert.True(t, parseBoolDefault("maybe", true))
	assert.False(t, parseBoolDefault("", false))
}

func TestLoadBoardConfigFromEnv(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("BOARD_CHANNEL_ID", "111")
	t.Setenv("BOOTSTRAP_VERIFIERS", " 1, 2 ,,3")
	t.Setenv("DESCRIPTION_PREVIEW_RUNES", "abc")
	t.Setenv("EMOJI_CLAIM", "🪓")

	cfg := LoadBoardConfig(nil)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "111", cfg.BoardChannelID)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.BootstrapVerifiers)
	assert.Equal(t, 500, cfg.DescriptionPreview)
	assert.Equal(t, "🪓", cfg.Emojis.Claim)
	assert.Equal(t, "👍", cfg.Emojis.Approve)
	assert.True(t, cfg.Enabled)
}

func TestAPIDisabledWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.False(t, LoadAPIConfig(nil).Enabled)

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("API_ALLOW_ORIGINS", "https://a.example, https://b.example")
	cfg := LoadAPIConfig(nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}

func TestLoadDispatchConfig(t *testing.T) {
	t.Setenv("DISPATCH_MAX_ELAPSED", "5s")
	t.Setenv("DISPATCH_FLUSH_INTERVAL", "-1m")
	cfg := LoadDispatchConfig(nil)
	assert.Equal(t, 5*time.Second, cfg.MaxElapsed)
	assert.Equal(t, time.Minute, cfg.FlushInterval)
}

func TestEventsRequireRedisURL(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	assert.False(t, LoadEventsConfig(nil).Enabled)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg := LoadEventsConfig(nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "bountyboard.events", cfg.Stream)
}

func TestBoardDisabledWithoutToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("ENABLE_BOARD", "")
	assert.False(t, LoadBoardConfig(nil).Enabled)

	t.Setenv("ENABLE_BOARD", "true")
	assert.True(t, LoadBoardConfig(nil).Enabled)

	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("ENABLE_BOARD", "false")
	assert.False(t, LoadBoardConfig(nil).Enabled)
}
