package board

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/bountyboard/src/bounty"
	shareddiscord "github.com/stake-plus/bountyboard/src/discord"
)

// Reply is the answer to a slash command.
type Reply struct {
	Content   string
	Embed     *discordgo.MessageEmbed
	Ephemeral bool
}

// Invocation is a slash command with the transport stripped off.
type Invocation struct {
	Name    string
	Caller  bounty.MemberID
	Options []*discordgo.ApplicationCommandInteractionDataOption
}

// Handler turns board commands and reactions into engine calls.
type Handler struct {
	Engine *bounty.Engine
}

func (inv Invocation) option(name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, opt := range inv.Options {
		if opt != nil && opt.Name == name {
			return opt
		}
	}
	return nil
}

func (inv Invocation) stringOption(name string) string {
	opt := inv.option(name)
	if opt == nil {
		return ""
	}
	if v, ok := opt.Value.(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func (inv Invocation) boolOption(name string) bool {
	opt := inv.option(name)
	if opt == nil {
		return false
	}
	v, _ := opt.Value.(bool)
	return v
}

func (inv Invocation) intOption(name string) (int64, bool) {
	opt := inv.option(name)
	if opt == nil {
		return 0, false
	}
	switch v := opt.Value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

func (inv Invocation) bountyID() (bounty.BountyID, error) {
	return bounty.ParseBountyID(inv.stringOption("id"))
}

func ephemeral(format string, args ...any) Reply {
	return Reply{Content: fmt.Sprintf(format, args...), Ephemeral: true}
}

// HandleCommand runs a slash command. The directives are to be dispatched
// after the reply is sent.
func (h *Handler) HandleCommand(ctx context.Context, inv Invocation) (Reply, []bounty.Directive) {
	var (
		reply Reply
		out   *bounty.Outcome
		err   error
	)

	switch inv.Name {
	case shareddiscord.CommandRegister:
		var m *bounty.Member
		if m, err = h.Engine.Register(ctx, inv.Caller); err == nil {
			reply = ephemeral("Welcome! You're registered as: %s\nTime credits owed: %d", m.Role, m.CreditDebt)
		}

	case shareddiscord.CommandPromote:
		target := bounty.MemberID(inv.stringOption("user"))
		if target == "" {
			return ephemeral("A user is required."), nil
		}
		if out, err = h.Engine.Promote(ctx, inv.Caller, target); err == nil {
			reply = Reply{Content: fmt.Sprintf("%s has been promoted to verifier!", shareddiscord.Mention(target))}
		}

	case shareddiscord.CommandPostBounty:
		typ, perr := bounty.ParseType(inv.stringOption("bounty_type"))
		if perr != nil {
			return ephemeral("Invalid bounty type. Valid options: %s", joinNames(bounty.Types)), nil
		}
		title, desc := inv.stringOption("title"), inv.stringOption("description")
		if title == "" {
			return ephemeral("A bounty needs a title."), nil
		}
		if out, err = h.Engine.PostBounty(ctx, inv.Caller, title, desc, typ); err == nil {
			if out.Bounty.Status == bounty.StatusPosted {
				reply = Reply{Content: fmt.Sprintf("Bounty %s posted to the board!", out.Bounty.ID)}
			} else {
				reply = Reply{Content: fmt.Sprintf("Bounty %s submitted for verification!", out.Bounty.ID)}
			}
		}

	case shareddiscord.CommandClaim, shareddiscord.CommandComplete, shareddiscord.CommandReview:
		id, perr := inv.bountyID()
		if perr != nil {
			return ephemeral("Invalid bounty id %q.", inv.stringOption("id")), nil
		}
		switch inv.Name {
		case shareddiscord.CommandClaim:
			if out, err = h.Engine.ClaimBounty(ctx, inv.Caller, id); err == nil {
				reply = ephemeral("You claimed %s (%q). Use /complete when you're done.", id, out.Bounty.Title)
			}
		case shareddiscord.CommandComplete:
			if out, err = h.Engine.RequestCompletionVerification(ctx, inv.Caller, id); err == nil {
				reply = ephemeral("Completion of %s submitted for verification.", id)
			}
		default:
			approve := inv.boolOption("approve")
			if out, err = h.review(ctx, inv.Caller, id, approve); err == nil {
				reply = ephemeral("%s is now %s.", id, out.Bounty.Status)
			}
		}

	case shareddiscord.CommandMyBounties:
		var list []*bounty.Bounty
		if list, err = h.Engine.GetMemberBounties(ctx, inv.Caller); err == nil {
			if len(list) == 0 {
				return ephemeral("You have no assigned bounties."), nil
			}
			reply = Reply{Embed: shareddiscord.AssignmentsEmbed(list), Ephemeral: true}
		}

	case shareddiscord.CommandListBounties:
		var filter *bounty.Status
		if raw := inv.stringOption("status"); raw != "" {
			s, perr := bounty.ParseStatus(raw)
			if perr != nil {
				return ephemeral("Invalid status. Valid options: %s", joinNames(bounty.Statuses)), nil
			}
			filter = &s
		}
		var list []*bounty.Bounty
		if list, err = h.Engine.ListBounties(ctx, filter); err == nil {
			if len(list) == 0 {
				return ephemeral("No bounties found."), nil
			}
			reply = Reply{Embed: shareddiscord.ListEmbed(list)}
		}

	case shareddiscord.CommandShowBounty:
		id, perr := inv.bountyID()
		if perr != nil {
			return ephemeral("Invalid bounty id %q.", inv.stringOption("id")), nil
		}
		var b *bounty.Bounty
		if b, err = h.Engine.Bounty(ctx, id); err == nil {
			reply = Reply{Embed: shareddiscord.DetailEmbed(*b), Ephemeral: true}
		}

	case shareddiscord.CommandAdjustCredits:
		target := bounty.MemberID(inv.stringOption("user"))
		amount, ok := inv.intOption("amount")
		if target == "" || !ok {
			return ephemeral("A user and an amount are required."), nil
		}
		if out, err = h.Engine.AdjustCredits(ctx, inv.Caller, target, amount); err == nil {
			reply = Reply{Content: fmt.Sprintf("Adjusted %s's time credits by %d. New balance: %d",
				shareddiscord.Mention(target), amount, out.Member.CreditDebt)}
		}

	default:
		return ephemeral("Unknown command."), nil
	}

	if err != nil {
		return ephemeral("%s", h.refusal(ctx, inv.Caller, err)), nil
	}
	if out == nil {
		return reply, nil
	}
	return reply, out.Directives
}

// review routes a verdict to whichever request the bounty is waiting on.
func (h *Handler) review(ctx context.Context, verifier bounty.MemberID, id bounty.BountyID, approve bool) (*bounty.Outcome, error) {
	if b, err := h.Engine.Bounty(ctx, id); err == nil && b.Status == bounty.StatusAwaitingPostVerification {
		return h.Engine.ReviewCompletion(ctx, verifier, id, approve)
	}
	return h.Engine.ReviewPreVerification(ctx, verifier, id, approve)
}

// refusal explains an engine error to the member who caused it.
func (h *Handler) refusal(ctx context.Context, caller bounty.MemberID, err error) string {
	switch bounty.Kind(err) {
	case bounty.KindDebtBlocked:
		if m, merr := h.Engine.Member(ctx, caller); merr == nil {
			return fmt.Sprintf("You owe %d time credits. Settle them before taking on more bounties.", m.CreditDebt)
		}
		return "You have outstanding time credits."
	case bounty.KindAlreadyAssigned:
		return "You already have an assigned bounty. Finish it before claiming another."
	case bounty.KindUnauthorized:
		return "You are not allowed to do that."
	case bounty.KindInvalidState:
		return "That bounty can't do that right now."
	case bounty.KindNotFound:
		return "Bounty not found."
	}
	log.Printf("board: command failed for %s: %v", caller, err)
	return "Something went wrong. Please try again later."
}

func joinNames[T fmt.Stringer](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.String()
	}
	return strings.Join(names, ", ")
}
