package discord

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/bountyboard/src/bounty"
	"github.com/stake-plus/bountyboard/src/logging"
	"github.com/stake-plus/bountyboard/src/notify"
)

const (
	ColorPosted       = 0x00ff00
	ColorPending      = 0xffaa00
	ColorClaimed      = 0xff6600
	ColorCompletion   = 0x9966cc
	ColorApproved     = 0x00ff00
	ColorRejected     = 0xff0000
	ColorListing      = 0x0099ff
	MaxEmbedFieldLen  = 1024
	defaultPreviewLen = 500

	// attemptTTL bounds how long an unfinished rendering is remembered.
	attemptTTL = time.Hour
)

// Messenger is the part of a discordgo session the renderer uses.
type Messenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	MessageReactionAdd(channelID, messageID, emojiID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Channels routes renderings.
type Channels struct {
	Board        string
	Verification string
	Log          string
}

// FormatRef builds the external ref of a rendered message.
func FormatRef(channelID, messageID string) string {
	return channelID + ":" + messageID
}

// ParseRef splits an external ref into channel and message ids.
func ParseRef(ref string) (channelID, messageID string, ok bool) {
	channelID, messageID, ok = strings.Cut(ref, ":")
	if !ok || channelID == "" || messageID == "" {
		return "", "", false
	}
	return channelID, messageID, true
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// Mention formats a user mention.
func Mention(id bounty.MemberID) string {
	return fmt.Sprintf("<@%s>", id)
}

// attemptKey identifies one rendering of a bounty.
type attemptKey struct {
	kind   string
	id     bounty.BountyID
	status bounty.Status
}

type attempt struct {
	msg *discordgo.Message
	at  time.Time
}

// Renderer is the notify.Sink that turns directives into Discord messages.
type Renderer struct {
	msg        Messenger
	channels   Channels
	reactions  *ReactionMap
	previewLen int

	// attempts holds messages already sent whose reactions are not all in
	// place yet. A retried delivery reuses the message instead of sending
	// another one.
	mu       sync.Mutex
	attempts map[attemptKey]attempt
	now      func() time.Time
}

var _ notify.Projector = (*Renderer)(nil)

func NewRenderer(msg Messenger, channels Channels, reactions *ReactionMap, previewLen int) *Renderer {
	if previewLen <= 0 {
		previewLen = defaultPreviewLen
	}
	return &Renderer{
		msg:        msg,
		channels:   channels,
		reactions:  reactions,
		previewLen: previewLen,
		attempts:   make(map[attemptKey]attempt),
		now:        time.Now,
	}
}

func (r *Renderer) Name() string { return "discord" }

// Projects marks the board as a mirror of each bounty's current state.
func (r *Renderer) Projects() {}

// send posts data once per key. Until finish is called for key, later calls
// return the message sent first.
func (r *Renderer) send(key attemptKey, channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	r.mu.Lock()
	if a, ok := r.attempts[key]; ok {
		r.mu.Unlock()
		return a.msg, nil
	}
	r.mu.Unlock()

	msg, err := r.msg.ChannelMessageSendComplex(channelID, data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for k, a := range r.attempts {
		if now.Sub(a.at) > attemptTTL {
			delete(r.attempts, k)
		}
	}
	r.attempts[key] = attempt{msg: msg, at: now}
	return msg, nil
}

func (r *Renderer) finish(key attemptKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.attempts, key)
}

// Unfinished returns the number of sent messages still waiting for their
// reactions.
func (r *Renderer) Unfinished() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attempts)
}

// Deliver renders d. Board and request renderings return the ref of the
// message that now represents the bounty.
func (r *Renderer) Deliver(ctx context.Context, d bounty.Directive) (string, error) {
	switch v := d.(type) {
	case bounty.RenderOnBoard:
		return r.renderOnBoard(v.Bounty)
	case bounty.RenderVerificationRequest:
		return r.sendRequest(d, v.Bounty, r.verificationEmbed(v.Bounty))
	case bounty.RenderCompletionRequest:
		return r.sendRequest(d, v.Bounty, r.completionEmbed(v.Bounty))
	case bounty.RenderApproval:
		return r.renderOutcome(v.Bounty, v.By, true)
	case bounty.RenderRejection:
		return r.renderOutcome(v.Bounty, v.By, false)
	case bounty.NotifyDirectMessage:
		return "", r.sendDirect(v.Member, v.Text)
	}
	return "", fmt.Errorf("discord: unsupported directive %T: %w", d, logging.ErrMisconfigured)
}

func (r *Renderer) renderOnBoard(b bounty.Bounty) (string, error) {
	if r.channels.Board == "" {
		return "", fmt.Errorf("discord: board channel: %w", logging.ErrMisconfigured)
	}
	embed := r.BoardEmbed(b)
	key := attemptKey{kind: "board", id: b.ID, status: b.Status}

	var msg *discordgo.Message
	var err error
	if channelID, messageID, ok := ParseRef(b.ExternalRef); ok && channelID == r.channels.Board {
		embeds := []*discordgo.MessageEmbed{embed}
		msg, err = r.msg.ChannelMessageEditComplex(&discordgo.MessageEdit{ID: messageID, Channel: channelID, Embeds: &embeds})
	} else {
		msg, err = r.send(key, r.channels.Board, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	}
	if err != nil {
		return "", fmt.Errorf("discord: render %s on board: %w", b.ID, err)
	}

	switch b.Status {
	case bounty.StatusPosted:
		err = r.msg.MessageReactionAdd(msg.ChannelID, msg.ID, r.reactions.Emoji(ReactClaim))
	case bounty.StatusClaimed:
		err = r.msg.MessageReactionAdd(msg.ChannelID, msg.ID, r.reactions.Emoji(ReactComplete))
		if err == nil {
			r.logLine(fmt.Sprintf("🎯 Bounty %s claimed by %s", b.ID, Mention(b.AssignedTo)))
		}
	}
	if err != nil {
		return "", fmt.Errorf("discord: add board reaction for %s: %w", b.ID, err)
	}
	r.finish(key)
	return FormatRef(msg.ChannelID, msg.ID), nil
}

func (r *Renderer) sendRequest(d bounty.Directive, b bounty.Bounty, embed *discordgo.MessageEmbed) (string, error) {
	if r.channels.Verification == "" {
		return "", fmt.Errorf("discord: verification channel: %w", logging.ErrMisconfigured)
	}
	key := attemptKey{kind: bounty.DirectiveName(d), id: b.ID, status: b.Status}
	msg, err := r.send(key, r.channels.Verification, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		return "", fmt.Errorf("discord: send request for %s: %w", b.ID, err)
	}
	for _, action := range []ReactionAction{ReactApprove, ReactReject} {
		if err := r.msg.MessageReactionAdd(msg.ChannelID, msg.ID, r.reactions.Emoji(action)); err != nil {
			return "", fmt.Errorf("discord: add %s reaction for %s: %w", action, b.ID, err)
		}
	}
	r.finish(key)
	return FormatRef(msg.ChannelID, msg.ID), nil
}

func (r *Renderer) renderOutcome(b bounty.Bounty, by bounty.MemberID, approved bool) (string, error) {
	embed := r.OutcomeEmbed(b, by, approved)
	verb := "rejected"
	if approved {
		verb = "approved"
	}
	r.logLine(fmt.Sprintf("Bounty %s %s by %s (now %s)", b.ID, verb, Mention(by), b.Status))

	channelID, messageID, ok := ParseRef(b.ExternalRef)
	if !ok {
		return "", nil
	}
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := r.msg.ChannelMessageEditComplex(&discordgo.MessageEdit{ID: messageID, Channel: channelID, Embeds: &embeds}); err != nil {
		return "", fmt.Errorf("discord: mark %s %s: %w", b.ID, verb, err)
	}
	return b.ExternalRef, nil
}

func (r *Renderer) sendDirect(member bounty.MemberID, text string) error {
	ch, err := r.msg.UserChannelCreate(string(member))
	if err != nil {
		return fmt.Errorf("discord: open DM with %s: %w", member, err)
	}
	for _, chunk := range SplitMessage(text) {
		if _, err := r.msg.ChannelMessageSend(ch.ID, chunk); err != nil {
			return fmt.Errorf("discord: DM %s: %w", member, err)
		}
	}
	return nil
}

// logLine is best effort; the log channel is optional.
func (r *Renderer) logLine(text string) {
	if r.channels.Log == "" {
		return
	}
	_, _ = r.msg.ChannelMessageSend(r.channels.Log, text)
}

// BoardEmbed renders a bounty as it appears on the board.
func (r *Renderer) BoardEmbed(b bounty.Bounty) *discordgo.MessageEmbed {
	status := "Available to claim"
	color := ColorPosted
	footer := fmt.Sprintf("React with %s to claim this bounty", r.reactions.Emoji(ReactClaim))
	if b.Assigned() {
		status = "Claimed by " + Mention(b.AssignedTo)
		color = ColorClaimed
		footer = fmt.Sprintf("React with %s when complete", r.reactions.Emoji(ReactComplete))
	}
	return &discordgo.MessageEmbed{
		Title:       "🎯 " + b.Title,
		Description: Truncate(b.Description, 4096),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bounty ID", Value: b.ID.String(), Inline: true},
			{Name: "Type", Value: b.Type.String(), Inline: true},
			{Name: "Status", Value: status, Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: footer},
	}
}

func (r *Renderer) verificationEmbed(b bounty.Bounty) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📋 Verification Request: " + b.Title,
		Description: Truncate(b.Description, 4096),
		Color:       ColorPending,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bounty ID", Value: b.ID.String(), Inline: true},
			{Name: "Type", Value: b.Type.String(), Inline: true},
			{Name: "Submitted by", Value: Mention(b.CreatorID), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Verifiers: react %s to approve, %s to reject",
			r.reactions.Emoji(ReactApprove), r.reactions.Emoji(ReactReject))},
	}
}

func (r *Renderer) completionEmbed(b bounty.Bounty) *discordgo.MessageEmbed {
	preview := Truncate(b.Description, min(r.previewLen, MaxEmbedFieldLen))
	if preview == "" {
		preview = "_(no description)_"
	}
	return &discordgo.MessageEmbed{
		Title:       "🔍 Completion Verification: " + b.Title,
		Description: fmt.Sprintf("%s claims to have completed this bounty.", Mention(b.AssignedTo)),
		Color:       ColorCompletion,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bounty ID", Value: b.ID.String(), Inline: true},
			{Name: "Original Description", Value: preview},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Verifiers: react %s to verify completion, %s to reject",
			r.reactions.Emoji(ReactApprove), r.reactions.Emoji(ReactReject))},
	}
}

// OutcomeEmbed renders a reviewed request.
func (r *Renderer) OutcomeEmbed(b bounty.Bounty, by bounty.MemberID, approved bool) *discordgo.MessageEmbed {
	title, color, field := "❌ REJECTED: ", ColorRejected, "Rejected by"
	if approved {
		title, color, field = "✅ APPROVED: ", ColorApproved, "Verified by"
		if b.Status == bounty.StatusVerified {
			title = "✅ COMPLETED: "
		}
	}
	return &discordgo.MessageEmbed{
		Title:       title + b.Title,
		Description: Truncate(b.Description, 4096),
		Color:       color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Bounty ID", Value: b.ID.String(), Inline: true},
			{Name: "Type", Value: b.Type.String(), Inline: true},
			{Name: field, Value: Mention(by), Inline: true},
		},
	}
}
