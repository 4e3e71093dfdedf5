package board

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/bountyboard/src/bounty"
	shareddiscord "github.com/stake-plus/bountyboard/src/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	verifier bounty.MemberID = "100"
	member   bounty.MemberID = "200"
	other    bounty.MemberID = "300"
)

func newHandler(t *testing.T) *Handler {
	t.Helper()
	e := bounty.NewEngine(bounty.NewMemoryStore())
	_, err := e.GrantVerifier(context.Background(), verifier)
	require.NoError(t, err)
	return &Handler{Engine: e}
}

func strOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func userOpt(name string, id bounty.MemberID) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionUser, Value: string(id)}
}

func run(t *testing.T, h *Handler, caller bounty.MemberID, name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) (Reply, []bounty.Directive) {
	t.Helper()
	return h.HandleCommand(context.Background(), Invocation{Name: name, Caller: caller, Options: opts})
}

func post(t *testing.T, h *Handler, caller bounty.MemberID, typ bounty.Type) bounty.BountyID {
	t.Helper()
	reply, directives := run(t, h, caller, shareddiscord.CommandPostBounty,
		strOpt("title", "Fix pump"), strOpt("description", "The pump leaks"), strOpt("bounty_type", typ.String()))
	require.Len(t, directives, 1, reply.Content)
	return directives[0].Subject().ID
}

func TestRegisterReply(t *testing.T) {
	h := newHandler(t)
	reply, directives := run(t, h, member, shareddiscord.CommandRegister)
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "Welcome! You're registered as: member\nTime credits owed: 0", reply.Content)
	assert.Empty(t, directives)
}

func TestPostBountyReplies(t *testing.T) {
	h := newHandler(t)

	reply, directives := run(t, h, verifier, shareddiscord.CommandPostBounty,
		strOpt("title", "Fix pump"), strOpt("description", "x"), strOpt("bounty_type", "regular"))
	assert.Equal(t, "Bounty bounty_1 posted to the board!", reply.Content)
	require.Len(t, directives, 1)
	assert.IsType(t, bounty.RenderOnBoard{}, directives[0])

	reply, _ = run(t, h, member, shareddiscord.CommandPostBounty,
		strOpt("title", "Seed swap"), strOpt("description", "x"), strOpt("bounty_type", "community"))
	assert.Equal(t, "Bounty bounty_2 submitted for verification!", reply.Content)

	reply, directives = run(t, h, member, shareddiscord.CommandPostBounty,
		strOpt("title", "Fix pump"), strOpt("description", "x"), strOpt("bounty_type", "regular"))
	assert.True(t, reply.Ephemeral)
	assert.Equal(t, "You are not allowed to do that.", reply.Content)
	assert.Empty(t, directives)

	reply, _ = run(t, h, member, shareddiscord.CommandPostBounty,
		strOpt("title", "x"), strOpt("bounty_type", "chore"))
	assert.Contains(t, reply.Content, "Invalid bounty type")
}

func TestClaimCompleteReviewCommands(t *testing.T) {
	h := newHandler(t)
	id := post(t, h, verifier, bounty.TypeRegular)

	reply, directives := run(t, h, member, shareddiscord.CommandClaim, strOpt("id", id.String()))
	assert.Contains(t, reply.Content, "You claimed bounty_1")
	assert.Len(t, directives, 1)

	reply, _ = run(t, h, other, shareddiscord.CommandComplete, strOpt("id", id.String()))
	assert.Equal(t, "You are not allowed to do that.", reply.Content)

	reply, directives = run(t, h, member, shareddiscord.CommandComplete, strOpt("id", "1"))
	assert.Equal(t, "Completion of bounty_1 submitted for verification.", reply.Content)
	require.Len(t, directives, 1)
	assert.IsType(t, bounty.RenderCompletionRequest{}, directives[0])

	approve := &discordgo.ApplicationCommandInteractionDataOption{Name: "approve", Type: discordgo.ApplicationCommandOptionBoolean, Value: true}
	reply, directives = run(t, h, verifier, shareddiscord.CommandReview, strOpt("id", id.String()), approve)
	assert.Equal(t, "bounty_1 is now verified.", reply.Content)
	require.Len(t, directives, 2)

	reply, _ = run(t, h, member, shareddiscord.CommandClaim, strOpt("id", "nope"))
	assert.Equal(t, `Invalid bounty id "nope".`, reply.Content)
}

func TestReviewRoutesPreVerification(t *testing.T) {
	h := newHandler(t)
	id := post(t, h, member, bounty.TypeCommunity)

	reject := &discordgo.ApplicationCommandInteractionDataOption{Name: "approve", Type: discordgo.ApplicationCommandOptionBoolean, Value: false}
	reply, _ := run(t, h, member, shareddiscord.CommandReview, strOpt("id", id.String()), reject)
	assert.Equal(t, "You are not allowed to do that.", reply.Content)

	reply, directives := run(t, h, verifier, shareddiscord.CommandReview, strOpt("id", id.String()), reject)
	assert.Equal(t, "bounty_1 is now rejected.", reply.Content)
	require.Len(t, directives, 2)
	assert.IsType(t, bounty.RenderRejection{}, directives[0])
}

func TestDebtRefusalShowsAmount(t *testing.T) {
	h := newHandler(t)
	id := post(t, h, verifier, bounty.TypeRegular)

	amount := &discordgo.ApplicationCommandInteractionDataOption{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)}
	reply, directives := run(t, h, verifier, shareddiscord.CommandAdjustCredits, userOpt("user", member), amount)
	assert.Equal(t, "Adjusted <@200>'s time credits by 3. New balance: 3", reply.Content)
	assert.Len(t, directives, 1)

	reply, _ = run(t, h, member, shareddiscord.CommandClaim, strOpt("id", id.String()))
	assert.Equal(t, "You owe 3 time credits. Settle them before taking on more bounties.", reply.Content)
}

func TestPromoteCommand(t *testing.T) {
	h := newHandler(t)

	reply, _ := run(t, h, member, shareddiscord.CommandPromote, userOpt("user", other))
	assert.Equal(t, "You are not allowed to do that.", reply.Content)

	reply, directives := run(t, h, verifier, shareddiscord.CommandPromote, userOpt("user", other))
	assert.Equal(t, "<@300> has been promoted to verifier!", reply.Content)
	assert.False(t, reply.Ephemeral)
	assert.Len(t, directives, 1)
}

func TestListingCommands(t *testing.T) {
	h := newHandler(t)

	reply, _ := run(t, h, member, shareddiscord.CommandListBounties)
	assert.Equal(t, "No bounties found.", reply.Content)
	reply, _ = run(t, h, member, shareddiscord.CommandMyBounties)
	assert.Equal(t, "You have no assigned bounties.", reply.Content)

	id := post(t, h, verifier, bounty.TypeRegular)
	post(t, h, member, bounty.TypeResource)
	run(t, h, member, shareddiscord.CommandClaim, strOpt("id", id.String()))

	reply, _ = run(t, h, member, shareddiscord.CommandListBounties)
	require.NotNil(t, reply.Embed)
	assert.Len(t, reply.Embed.Fields, 2)

	reply, _ = run(t, h, member, shareddiscord.CommandListBounties, strOpt("status", "claimed"))
	require.NotNil(t, reply.Embed)
	require.Len(t, reply.Embed.Fields, 1)
	assert.Equal(t, "Claimed (1)", reply.Embed.Fields[0].Name)

	reply, _ = run(t, h, member, shareddiscord.CommandListBounties, strOpt("status", "lost"))
	assert.Contains(t, reply.Content, "Invalid status")

	reply, _ = run(t, h, member, shareddiscord.CommandMyBounties)
	require.NotNil(t, reply.Embed)
	assert.Contains(t, reply.Embed.Description, "bounty_1")

	reply, _ = run(t, h, member, shareddiscord.CommandShowBounty, strOpt("id", "bounty_2"))
	require.NotNil(t, reply.Embed)
	assert.Equal(t, "Fix pump", reply.Embed.Title)

	reply, _ = run(t, h, member, shareddiscord.CommandShowBounty, strOpt("id", "bounty_9"))
	assert.Equal(t, "Bounty not found.", reply.Content)
}

func TestHandleReaction(t *testing.T) {
	ctx := context.Background()
	h := newHandler(t)
	id := post(t, h, verifier, bounty.TypeRegular)
	require.NoError(t, h.Engine.SetExternalRef(ctx, id, "board:m1"))

	res, err := h.HandleReaction(ctx, member, "board:unknown", shareddiscord.ReactClaim)
	require.NoError(t, err)
	assert.False(t, res.Handled)

	res, err = h.HandleReaction(ctx, member, "board:m1", shareddiscord.ReactClaim)
	require.NoError(t, err)
	assert.True(t, res.Handled)
	assert.Empty(t, res.Refusal)
	require.Len(t, res.Directives, 1)

	res, err = h.HandleReaction(ctx, other, "board:m1", shareddiscord.ReactClaim)
	require.NoError(t, err)
	assert.Equal(t, "Cannot claim bounty bounty_1: That bounty can't do that right now.", res.Refusal)
	assert.Empty(t, res.Directives)

	res, err = h.HandleReaction(ctx, member, "board:m1", shareddiscord.ReactComplete)
	require.NoError(t, err)
	require.Len(t, res.Directives, 1)
	require.NoError(t, h.Engine.SetExternalRef(ctx, id, "verify:m2"))

	res, err = h.HandleReaction(ctx, member, "verify:m2", shareddiscord.ReactApprove)
	require.NoError(t, err)
	assert.Equal(t, "Cannot review bounty bounty_1: You are not allowed to do that.", res.Refusal)

	res, err = h.HandleReaction(ctx, verifier, "verify:m2", shareddiscord.ReactReject)
	require.NoError(t, err)
	assert.Empty(t, res.Refusal)

	b, err := h.Engine.Bounty(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, bounty.StatusRejected, b.Status)
	assert.Empty(t, b.AssignedTo)
}
