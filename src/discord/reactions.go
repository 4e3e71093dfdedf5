package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ReactionAction is what a reaction on a board message asks for.
type ReactionAction uint8

const (
	ReactClaim ReactionAction = iota + 1
	ReactComplete
	ReactApprove
	ReactReject
)

var allReactionActions = []ReactionAction{ReactClaim, ReactComplete, ReactApprove, ReactReject}

func (a ReactionAction) String() string {
	switch a {
	case ReactClaim:
		return "claim"
	case ReactComplete:
		return "complete"
	case ReactApprove:
		return "approve"
	case ReactReject:
		return "reject"
	}
	return "unknown"
}

// ReactionMap maps emoji to actions. Build it with NewReactionMap so that it
// is validated once at startup.
type ReactionMap struct {
	byEmoji  map[string]ReactionAction
	byAction map[ReactionAction]string
}

// NewReactionMap validates that every action has exactly one distinct,
// non-empty emoji.
func NewReactionMap(emojis map[ReactionAction]string) (*ReactionMap, error) {
	m := &ReactionMap{
		byEmoji:  make(map[string]ReactionAction, len(emojis)),
		byAction: make(map[ReactionAction]string, len(emojis)),
	}
	for _, action := range allReactionActions {
		emoji := strings.TrimSpace(emojis[action])
		if emoji == "" {
			return nil, fmt.Errorf("discord: no emoji configured for %s", action)
		}
		key := normalizeEmoji(emoji)
		if prev, dup := m.byEmoji[key]; dup {
			return nil, fmt.Errorf("discord: emoji %s used for both %s and %s", emoji, prev, action)
		}
		m.byEmoji[key] = action
		m.byAction[action] = emoji
	}
	for action := range emojis {
		if _, ok := m.byAction[action]; !ok {
			return nil, fmt.Errorf("discord: unknown reaction action %d", action)
		}
	}
	return m, nil
}

// Emoji returns the emoji configured for action.
func (m *ReactionMap) Emoji(action ReactionAction) string {
	return m.byAction[action]
}

// Lookup resolves a reaction emoji. Custom emoji match on either their name
// or their "name:id" form.
func (m *ReactionMap) Lookup(emoji *discordgo.Emoji) (ReactionAction, bool) {
	if emoji == nil {
		return 0, false
	}
	for _, candidate := range []string{emoji.Name, emoji.APIName()} {
		if action, ok := m.byEmoji[normalizeEmoji(candidate)]; ok {
			return action, true
		}
	}
	return 0, false
}

// normalizeEmoji drops variation selectors, which clients add or omit freely.
func normalizeEmoji(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\ufe0f", "")
}
