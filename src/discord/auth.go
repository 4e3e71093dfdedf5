package discord

import "github.com/bwmarrin/discordgo"

// RoleChecker is the part of a session HasRole needs.
type RoleChecker interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// HasRole checks whether a user has a role in a guild. An empty roleID or
// guildID never matches.
func HasRole(s RoleChecker, guildID, userID, roleID string) bool {
	if roleID == "" || guildID == "" {
		return false
	}
	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		return false
	}
	return MemberHasRole(member, roleID)
}

// MemberHasRole checks an already loaded guild member.
func MemberHasRole(member *discordgo.Member, roleID string) bool {
	if member == nil || roleID == "" {
		return false
	}
	for _, role := range member.Roles {
		if role == roleID {
			return true
		}
	}
	return false
}
