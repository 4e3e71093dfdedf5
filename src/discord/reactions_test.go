package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultEmojis() map[ReactionAction]string {
	return map[ReactionAction]string{
		ReactClaim:    "⛏️",
		ReactComplete: "✅",
		ReactApprove:  "👍",
		ReactReject:   "👎",
	}
}

func TestReactionMapLookup(t *testing.T) {
	m, err := NewReactionMap(defaultEmojis())
	require.NoError(t, err)

	action, ok := m.Lookup(&discordgo.Emoji{Name: "⛏"})
	require.True(t, ok)
	assert.Equal(t, ReactClaim, action)

	action, ok = m.Lookup(&discordgo.Emoji{Name: "👎"})
	require.True(t, ok)
	assert.Equal(t, ReactReject, action)

	_, ok = m.Lookup(&discordgo.Emoji{Name: "🎉"})
	assert.False(t, ok)
	_, ok = m.Lookup(nil)
	assert.False(t, ok)

	assert.Equal(t, "⛏️", m.Emoji(ReactClaim))
}

func TestReactionMapCustomEmoji(t *testing.T) {
	emojis := defaultEmojis()
	emojis[ReactClaim] = "pickaxe:12345"
	m, err := NewReactionMap(emojis)
	require.NoError(t, err)

	action, ok := m.Lookup(&discordgo.Emoji{Name: "pickaxe", ID: "12345"})
	require.True(t, ok)
	assert.Equal(t, ReactClaim, action)
}

func TestReactionMapValidation(t *testing.T) {
	missing := defaultEmojis()
	delete(missing, ReactApprove)
	_, err := NewReactionMap(missing)
	assert.ErrorContains(t, err, "approve")

	dup := defaultEmojis()
	dup[ReactReject] = "👍"
	_, err = NewReactionMap(dup)
	assert.ErrorContains(t, err, "both")

	blank := defaultEmojis()
	blank[ReactComplete] = "  "
	_, err = NewReactionMap(blank)
	assert.Error(t, err)

	unknown := defaultEmojis()
	unknown[ReactionAction(42)] = "🎉"
	_, err = NewReactionMap(unknown)
	assert.ErrorContains(t, err, "unknown")
}
