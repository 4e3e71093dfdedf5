package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v4"
	"github.com/stake-plus/bountyboard/src/bounty"
	"github.com/stake-plus/bountyboard/src/logging"
	"github.com/stake-plus/bountyboard/src/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMessage struct {
	channelID string
	content   string
	embed     *discordgo.MessageEmbed
}

type fakeMessenger struct {
	nextID    int
	sent      []sentMessage
	edits     []*discordgo.MessageEdit
	reactions []string
	dmOpened  []string
	sendErr   error
	// reactFailures makes the next MessageReactionAdd calls fail.
	reactFailures int
}

func (f *fakeMessenger) id() string {
	f.nextID++
	return fmt.Sprintf("m%d", f.nextID)
}

func (f *fakeMessenger) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	var embed *discordgo.MessageEmbed
	if len(data.Embeds) > 0 {
		embed = data.Embeds[0]
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: data.Content, embed: embed})
	return &discordgo.Message{ID: f.id(), ChannelID: channelID}, nil
}

func (f *fakeMessenger) ChannelMessageEditComplex(m *discordgo.MessageEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.edits = append(f.edits, m)
	return &discordgo.Message{ID: m.ID, ChannelID: m.Channel}, nil
}

func (f *fakeMessenger) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{ID: f.id(), ChannelID: channelID}, nil
}

func (f *fakeMessenger) MessageReactionAdd(channelID, messageID, emojiID string, _ ...discordgo.RequestOption) error {
	if f.reactFailures > 0 {
		f.reactFailures--
		return errors.New("discord: 502 bad gateway")
	}
	f.reactions = append(f.reactions, FormatRef(channelID, messageID)+"="+emojiID)
	return nil
}

func (f *fakeMessenger) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	f.dmOpened = append(f.dmOpened, recipientID)
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func newTestRenderer(t *testing.T, channels Channels) (*Renderer, *fakeMessenger) {
	t.Helper()
	reactions, err := NewReactionMap(defaultEmojis())
	require.NoError(t, err)
	fake := &fakeMessenger{}
	return NewRenderer(fake, channels, reactions, 20), fake
}

func sampleBounty() bounty.Bounty {
	return bounty.Bounty{
		ID:          7,
		CreatorID:   "100",
		Type:        bounty.TypeCommunity,
		Status:      bounty.StatusPosted,
		Title:       "Fix pump",
		Description: "The irrigation pump in the east field leaks at the seal.",
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

var testChannels = Channels{Board: "board", Verification: "verify", Log: "log"}

func TestRefHelpers(t *testing.T) {
	ch, msg, ok := ParseRef(FormatRef("c1", "m9"))
	require.True(t, ok)
	assert.Equal(t, "c1", ch)
	assert.Equal(t, "m9", msg)

	for _, bad := range []string{"", "c1", ":m9", "c1:"} {
		_, _, ok := ParseRef(bad)
		assert.False(t, ok, bad)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "ñañ…", Truncate("ñañañañ", 4))
	assert.Equal(t, "same", Truncate("same", 0))
}

func TestRenderOnBoardSendsThenEdits(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	b := sampleBounty()

	ref, err := r.Deliver(context.Background(), bounty.RenderOnBoard{Bounty: b})
	require.NoError(t, err)
	assert.Equal(t, "board:m1", ref)
	require.Len(t, fake.sent, 1)
	assert.Equal(t, "board", fake.sent[0].channelID)
	assert.Equal(t, ColorPosted, fake.sent[0].embed.Color)
	assert.Equal(t, []string{"board:m1=⛏️"}, fake.reactions)

	b.Status = bounty.StatusClaimed
	b.AssignedTo = "200"
	b.ExternalRef = ref
	ref, err = r.Deliver(context.Background(), bounty.RenderOnBoard{Bounty: b})
	require.NoError(t, err)
	assert.Equal(t, "board:m1", ref)
	require.Len(t, fake.edits, 1)
	assert.Equal(t, "m1", fake.edits[0].ID)
	assert.Equal(t, ColorClaimed, (*fake.edits[0].Embeds)[0].Color)
	assert.Contains(t, fake.reactions, "board:m1=✅")

	require.Len(t, fake.sent, 2)
	assert.Equal(t, "log", fake.sent[1].channelID)
	assert.Contains(t, fake.sent[1].content, "<@200>")
}

func TestRenderOnBoardPostsFreshWhenRefElsewhere(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	b := sampleBounty()
	b.ExternalRef = "verify:m40"

	ref, err := r.Deliver(context.Background(), bounty.RenderOnBoard{Bounty: b})
	require.NoError(t, err)
	assert.Equal(t, "board:m1", ref)
	assert.Empty(t, fake.edits)
}

func TestRenderRequestsAddReviewReactions(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	b := sampleBounty()
	b.Status = bounty.StatusAwaitingPostVerification
	b.AssignedTo = "200"

	ref, err := r.Deliver(context.Background(), bounty.RenderCompletionRequest{Bounty: b})
	require.NoError(t, err)
	assert.Equal(t, "verify:m1", ref)
	assert.Equal(t, []string{"verify:m1=👍", "verify:m1=👎"}, fake.reactions)

	embed := fake.sent[0].embed
	assert.Equal(t, ColorCompletion, embed.Color)
	preview := embed.Fields[1].Value
	assert.Equal(t, 20, len([]rune(preview)))
	assert.True(t, strings.HasSuffix(preview, "…"))

	b.Status = bounty.StatusAwaitingVerification
	_, err = r.Deliver(context.Background(), bounty.RenderVerificationRequest{Bounty: b})
	require.NoError(t, err)
	assert.Equal(t, ColorPending, fake.sent[1].embed.Color)
}

func TestRenderOutcomeEditsRequest(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	b := sampleBounty()
	b.Status = bounty.StatusRejected
	b.ExternalRef = "verify:m3"

	ref, err := r.Deliver(context.Background(), bounty.RenderRejection{Bounty: b, By: "300"})
	require.NoError(t, err)
	assert.Equal(t, "verify:m3", ref)
	require.Len(t, fake.edits, 1)
	edited := (*fake.edits[0].Embeds)[0]
	assert.Equal(t, ColorRejected, edited.Color)
	assert.True(t, strings.HasPrefix(edited.Title, "❌ REJECTED"))

	b.Status = bounty.StatusVerified
	_, err = r.Deliver(context.Background(), bounty.RenderApproval{Bounty: b, By: "300"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix((*fake.edits[1].Embeds)[0].Title, "✅ COMPLETED"))

	// Without a ref only the log line is written.
	b.ExternalRef = ""
	ref, err = r.Deliver(context.Background(), bounty.RenderApproval{Bounty: b, By: "300"})
	require.NoError(t, err)
	assert.Empty(t, ref)
	assert.Len(t, fake.edits, 2)
}

func TestRenderDirectMessageChunks(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	text := strings.Repeat("word ", 500)

	ref, err := r.Deliver(context.Background(), bounty.NotifyDirectMessage{Member: "200", Text: text})
	require.NoError(t, err)
	assert.Empty(t, ref)
	assert.Equal(t, []string{"200"}, fake.dmOpened)
	require.Len(t, fake.sent, 2)
	for _, m := range fake.sent {
		assert.Equal(t, "dm-200", m.channelID)
		assert.LessOrEqual(t, len(m.content), MaxDiscordMessageLen)
	}
}

func TestRenderMisconfiguredIsPermanent(t *testing.T) {
	r, _ := newTestRenderer(t, Channels{})
	_, err := r.Deliver(context.Background(), bounty.RenderOnBoard{Bounty: sampleBounty()})
	require.Error(t, err)
	assert.True(t, logging.IsPermanent(err))

	r, fake := newTestRenderer(t, testChannels)
	fake.sendErr = errors.New("connection reset")
	_, err = r.Deliver(context.Background(), bounty.RenderVerificationRequest{Bounty: sampleBounty()})
	require.Error(t, err)
	assert.False(t, logging.IsPermanent(err))
}

func (f *fakeMessenger) sentTo(channelID string) []sentMessage {
	var out []sentMessage
	for _, m := range f.sent {
		if m.channelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

func TestRenderRequestRetryFinishesSentMessage(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	fake.reactFailures = 2
	b := sampleBounty()
	b.Status = bounty.StatusAwaitingVerification
	d := bounty.RenderVerificationRequest{Bounty: b}

	_, err := r.Deliver(context.Background(), d)
	require.Error(t, err)
	assert.Equal(t, 1, r.Unfinished())

	_, err = r.Deliver(context.Background(), d)
	require.Error(t, err)

	ref, err := r.Deliver(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "verify:m1", ref)
	assert.Len(t, fake.sentTo("verify"), 1)
	assert.Contains(t, fake.reactions, "verify:m1=👍")
	assert.Contains(t, fake.reactions, "verify:m1=👎")
	assert.Zero(t, r.Unfinished())

	// A later rendering of the same state is a new message again.
	ref, err = r.Deliver(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "verify:m2", ref)
}

func TestRenderBoardRetryFinishesSentMessage(t *testing.T) {
	r, fake := newTestRenderer(t, testChannels)
	fake.reactFailures = 1
	d := bounty.RenderOnBoard{Bounty: sampleBounty()}

	_, err := r.Deliver(context.Background(), d)
	require.Error(t, err)
	ref, err := r.Deliver(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "board:m1", ref)
	assert.Len(t, fake.sentTo("board"), 1)
	assert.Equal(t, []string{"board:m1=⛏️"}, fake.reactions)
}

func dispatcherFor(engine *bounty.Engine, r *Renderer) *notify.Dispatcher {
	return notify.NewDispatcher(engine, notify.Options{
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 3)
		},
	}, r)
}

func TestDispatchedRequestSurvivesFlakyReaction(t *testing.T) {
	ctx := context.Background()
	engine := bounty.NewEngine(bounty.NewMemoryStore())
	r, fake := newTestRenderer(t, testChannels)
	fake.reactFailures = 1
	d := dispatcherFor(engine, r)

	out, err := engine.PostBounty(ctx, "100", "Fix pump", "Seal leaks", bounty.TypeCommunity)
	require.NoError(t, err)
	d.Dispatch(ctx, out.Directives...)

	assert.Len(t, fake.sentTo("verify"), 1)
	b, err := engine.Bounty(ctx, out.Bounty.ID)
	require.NoError(t, err)
	assert.Equal(t, "verify:m1", b.ExternalRef)
	assert.Zero(t, d.Pending())
}

func TestDispatchOutOfOrderKeepsLatestBoardMessage(t *testing.T) {
	ctx := context.Background()
	engine := bounty.NewEngine(bounty.NewMemoryStore())
	r, fake := newTestRenderer(t, testChannels)
	d := dispatcherFor(engine, r)

	_, err := engine.GrantVerifier(ctx, "100")
	require.NoError(t, err)
	posted, err := engine.PostBounty(ctx, "100", "Fix pump", "Seal leaks", bounty.TypeRegular)
	require.NoError(t, err)
	claimed, err := engine.ClaimBounty(ctx, "200", posted.Bounty.ID)
	require.NoError(t, err)

	d.Dispatch(ctx, claimed.Directives...)
	d.Dispatch(ctx, posted.Directives...)

	board := fake.sentTo("board")
	require.Len(t, board, 1)
	assert.Equal(t, ColorClaimed, board[0].embed.Color)

	b, err := engine.Bounty(ctx, posted.Bounty.ID)
	require.NoError(t, err)
	assert.Equal(t, "board:m1", b.ExternalRef)
	assert.Equal(t, bounty.StatusClaimed, b.Status)

	found, err := engine.BountyByExternalRef(ctx, "board:m1")
	require.NoError(t, err)
	assert.Equal(t, posted.Bounty.ID, found.ID)
}

func TestDispatchReusesRecordedBoardRef(t *testing.T) {
	ctx := context.Background()
	engine := bounty.NewEngine(bounty.NewMemoryStore())
	r, fake := newTestRenderer(t, testChannels)
	d := dispatcherFor(engine, r)

	_, err := engine.GrantVerifier(ctx, "100")
	require.NoError(t, err)
	posted, err := engine.PostBounty(ctx, "100", "Fix pump", "Seal leaks", bounty.TypeRegular)
	require.NoError(t, err)
	// The claim commits before the post's rendering, so its snapshot has no ref.
	claimed, err := engine.ClaimBounty(ctx, "200", posted.Bounty.ID)
	require.NoError(t, err)
	require.Empty(t, claimed.Bounty.ExternalRef)

	require.NoError(t, engine.SetExternalRef(ctx, posted.Bounty.ID, "board:m9"))
	d.Dispatch(ctx, claimed.Directives...)

	assert.Empty(t, fake.sentTo("board"))
	require.Len(t, fake.edits, 1)
	assert.Equal(t, "m9", fake.edits[0].ID)
}
