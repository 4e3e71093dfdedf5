package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/bountyboard/src/bounty"
)

const (
	MaxDiscordMessageLen = 2000
	SafeChunkLen         = 1900
	// ListGroupLimit caps the bounties shown per status in a listing.
	ListGroupLimit = 5
)

// StatusLabel renders a status as a heading, e.g. "Awaiting Post Verification".
func StatusLabel(s bounty.Status) string {
	words := strings.Split(s.String(), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// ListEmbed groups bounties by status in lifecycle order.
func ListEmbed(bounties []*bounty.Bounty) *discordgo.MessageEmbed {
	groups := make(map[bounty.Status][]*bounty.Bounty)
	for _, b := range bounties {
		groups[b.Status] = append(groups[b.Status], b)
	}

	embed := &discordgo.MessageEmbed{Title: "Bounty List", Color: ColorListing}
	for _, status := range bounty.Statuses {
		list := groups[status]
		if len(list) == 0 {
			continue
		}
		lines := make([]string, 0, ListGroupLimit+1)
		for i, b := range list {
			if i == ListGroupLimit {
				lines = append(lines, fmt.Sprintf("... and %d more", len(list)-ListGroupLimit))
				break
			}
			lines = append(lines, fmt.Sprintf("**%s**: %s", b.ID, Truncate(b.Title, 120)))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (%d)", StatusLabel(status), len(list)),
			Value: Truncate(strings.Join(lines, "\n"), MaxEmbedFieldLen),
		})
	}
	return embed
}

// AssignmentsEmbed lists a member's current assignments.
func AssignmentsEmbed(bounties []*bounty.Bounty) *discordgo.MessageEmbed {
	lines := make([]string, 0, len(bounties))
	for _, b := range bounties {
		lines = append(lines, fmt.Sprintf("**%s**: %s (%s)", b.ID, b.Title, b.Status))
	}
	return &discordgo.MessageEmbed{
		Title:       "Your Assigned Bounties",
		Description: Truncate(strings.Join(lines, "\n"), 4096),
		Color:       ColorListing,
	}
}

// DetailEmbed shows everything known about one bounty.
func DetailEmbed(b bounty.Bounty) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Bounty ID", Value: b.ID.String(), Inline: true},
		{Name: "Type", Value: b.Type.String(), Inline: true},
		{Name: "Status", Value: StatusLabel(b.Status), Inline: true},
		{Name: "Posted by", Value: Mention(b.CreatorID), Inline: true},
	}
	if b.Assigned() {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Assigned to", Value: Mention(b.AssignedTo), Inline: true})
	}
	if b.VerifierID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Verifier", Value: Mention(b.VerifierID), Inline: true})
	}
	return &discordgo.MessageEmbed{
		Title:       b.Title,
		Description: Truncate(b.Description, 4096),
		Color:       ColorListing,
		Fields:      fields,
		Timestamp:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// SplitMessage chunks text for Discord's message limit, preferring line
// breaks, then spaces, as cut points.
func SplitMessage(text string) []string {
	if len(text) <= MaxDiscordMessageLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > SafeChunkLen {
		cut := strings.LastIndex(text[:SafeChunkLen], "\n")
		if cut <= 0 {
			cut = strings.LastIndex(text[:SafeChunkLen], " ")
		}
		if cut <= 0 {
			cut = SafeChunkLen
			for cut > 0 && !isRuneStart(text[cut]) {
				cut--
			}
		}
		chunks = append(chunks, strings.TrimRight(text[:cut], " \n"))
		text = strings.TrimLeft(text[cut:], " \n")
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
