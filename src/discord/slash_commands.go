package discord

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/bountyboard/src/bounty"
)

const (
	CommandRegister      = "register"
	CommandPromote       = "promote"
	CommandPostBounty    = "post_bounty"
	CommandClaim         = "claim"
	CommandComplete      = "complete"
	CommandReview        = "review"
	CommandMyBounties    = "my_bounties"
	CommandListBounties  = "list_bounties"
	CommandShowBounty    = "bounty"
	CommandAdjustCredits = "adjust_credits"
)

func bountyIDOption() *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "Bounty ID (e.g. bounty_3)",
		Required:    true,
	}
}

func typeChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Regular (verifiers only)", Value: bounty.TypeRegular.String()},
		{Name: "Community (needs verification)", Value: bounty.TypeCommunity.String()},
		{Name: "Resource (needs verification)", Value: bounty.TypeResource.String()},
	}
}

func statusChoices() []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(bounty.Statuses))
	for _, s := range bounty.Statuses {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: s.String(), Value: s.String()})
	}
	return choices
}

var commandDefinitions = map[string]*discordgo.ApplicationCommand{
	CommandRegister: {
		Name:        CommandRegister,
		Description: "Register as a member of the bounty board",
	},
	CommandPromote: {
		Name:        CommandPromote,
		Description: "Promote a member to verifier (verifiers only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to promote", Required: true},
		},
	},
	CommandPostBounty: {
		Name:        CommandPostBounty,
		Description: "Post a new bounty",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "title", Description: "Short title for the bounty", Required: true, MaxLength: 200},
			{Type: discordgo.ApplicationCommandOptionString, Name: "description", Description: "What needs to be done", Required: true, MaxLength: 4000},
			{Type: discordgo.ApplicationCommandOptionString, Name: "bounty_type", Description: "Type of bounty", Required: true, Choices: typeChoices()},
		},
	},
	CommandClaim: {
		Name:        CommandClaim,
		Description: "Claim a bounty from the board",
		Options:     []*discordgo.ApplicationCommandOption{bountyIDOption()},
	},
	CommandComplete: {
		Name:        CommandComplete,
		Description: "Request completion verification for your bounty",
		Options:     []*discordgo.ApplicationCommandOption{bountyIDOption()},
	},
	CommandReview: {
		Name:        CommandReview,
		Description: "Approve or reject a pending bounty (verifiers only)",
		Options: []*discordgo.ApplicationCommandOption{
			bountyIDOption(),
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "approve", Description: "Approve (true) or reject (false)", Required: true},
		},
	},
	CommandMyBounties: {
		Name:        CommandMyBounties,
		Description: "Show your assigned bounties",
	},
	CommandListBounties: {
		Name:        CommandListBounties,
		Description: "List all bounties",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "status", Description: "Filter by status", Choices: statusChoices()},
		},
	},
	CommandShowBounty: {
		Name:        CommandShowBounty,
		Description: "Show a single bounty",
		Options:     []*discordgo.ApplicationCommandOption{bountyIDOption()},
	},
	CommandAdjustCredits: {
		Name:        CommandAdjustCredits,
		Description: "Adjust a member's time credit debt (verifiers only)",
		Options: []*discordgo.ApplicationCommandOption{
			{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "User to adjust", Required: true},
			{Type: discordgo.ApplicationCommandOptionInteger, Name: "amount", Description: "Amount to add (negative to forgive)", Required: true},
		},
	},
}

// DefaultCommandOrder lists every board command in registration order.
var DefaultCommandOrder = []string{
	CommandRegister,
	CommandPostBounty,
	CommandClaim,
	CommandComplete,
	CommandReview,
	CommandMyBounties,
	CommandListBounties,
	CommandShowBounty,
	CommandPromote,
	CommandAdjustCredits,
}

// CommandDefinition returns the definition registered under name.
func CommandDefinition(name string) (*discordgo.ApplicationCommand, bool) {
	def, ok := commandDefinitions[name]
	return def, ok
}

// RegisterSlashCommands registers the requested slash commands for a guild.
// When no command names are provided, all known commands are registered.
func RegisterSlashCommands(s *discordgo.Session, guildID string, names ...string) error {
	if guildID == "" {
		return fmt.Errorf("discord: guildID is required to register slash commands")
	}

	if len(names) == 0 {
		names = DefaultCommandOrder
	}

	var failures []string
	for _, name := range names {
		definition, ok := commandDefinitions[name]
		if !ok {
			log.Printf("discord: unknown slash command %q", name)
			continue
		}

		_, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, definition)
		if err != nil {
			if isDuplicateCommandError(err) {
				log.Printf("discord: slash command %q already registered", name)
				continue
			}
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			log.Printf("discord: failed to register command %q: %v", name, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("discord: slash command registration errors: %s", strings.Join(failures, "; "))
	}

	return nil
}

func isDuplicateCommandError(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			msg := strings.ToLower(restErr.Message.Message)
			if strings.Contains(msg, "already exists") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "50035") && strings.Contains(msg, "already exists")
}
