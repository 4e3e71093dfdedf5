package board

import (
	"context"
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/stake-plus/bountyboard/src/actions/core"
	"github.com/stake-plus/bountyboard/src/bounty"
	sharedconfig "github.com/stake-plus/bountyboard/src/data/config"
	shareddiscord "github.com/stake-plus/bountyboard/src/discord"
	"github.com/stake-plus/bountyboard/src/notify"
)

var _ core.Module = (*Module)(nil)

// Dispatcher queues directives for ordered delivery once the engine has
// committed them.
type Dispatcher interface {
	Enqueue(directives ...bounty.Directive)
}

// Module runs the Discord bounty board.
type Module struct {
	config     *sharedconfig.BoardConfig
	engine     *bounty.Engine
	session    *discordgo.Session
	handler    *Handler
	reactions  *shareddiscord.ReactionMap
	dispatcher Dispatcher
	runtimeCtx context.Context
	cancel     context.CancelFunc
}

// NewModule creates the board and registers its renderer with dispatcher.
func NewModule(cfg *sharedconfig.BoardConfig, engine *bounty.Engine, dispatcher *notify.Dispatcher) (*Module, error) {
	if cfg.Base.Token == "" {
		return nil, fmt.Errorf("board: discord token not configured")
	}

	reactions, err := shareddiscord.NewReactionMap(map[shareddiscord.ReactionAction]string{
		shareddiscord.ReactClaim:    cfg.Emojis.Claim,
		shareddiscord.ReactComplete: cfg.Emojis.Complete,
		shareddiscord.ReactApprove:  cfg.Emojis.Approve,
		shareddiscord.ReactReject:   cfg.Emojis.Reject,
	})
	if err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}

	session, err := discordgo.New("Bot " + cfg.Base.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages

	dispatcher.AddSink(shareddiscord.NewRenderer(session, shareddiscord.Channels{
		Board:        cfg.BoardChannelID,
		Verification: cfg.VerificationChannelID,
		Log:          cfg.LogChannelID,
	}, reactions, cfg.DescriptionPreview))

	module := &Module{
		config:     cfg,
		engine:     engine,
		session:    session,
		handler:    &Handler{Engine: engine},
		reactions:  reactions,
		dispatcher: dispatcher,
		runtimeCtx: context.Background(),
	}
	module.initHandlers()
	return module, nil
}

// Name implements actions.Module.
func (b *Module) Name() string { return "board" }

func (b *Module) initHandlers() {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteractionCreate)
	b.session.AddHandler(b.onMessageReactionAdd)
}

func (b *Module) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("board: logged in as %s", s.State.User.Username)

	if err := shareddiscord.RegisterSlashCommands(s, b.config.Base.GuildID); err != nil {
		log.Printf("board: failed to register slash commands: %v", err)
	} else {
		log.Printf("board: slash commands registered")
	}
}

func (b *Module) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if i.Member == nil || i.Member.User == nil {
		b.respond(s, i, ephemeral("Bounty commands only work inside the server."))
		return
	}

	caller := bounty.MemberID(i.Member.User.ID)
	b.syncVerifier(caller, shareddiscord.MemberHasRole(i.Member, b.config.VerifierRoleID))

	data := i.ApplicationCommandData()
	reply, directives := b.handler.HandleCommand(b.runtimeCtx, Invocation{
		Name:    data.Name,
		Caller:  caller,
		Options: data.Options,
	})
	b.respond(s, i, reply)
	b.dispatch(directives)
}

func (b *Module) onMessageReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if s.State != nil && s.State.User != nil && r.UserID == s.State.User.ID {
		return
	}
	if r.Member != nil && r.Member.User != nil && r.Member.User.Bot {
		return
	}

	action, ok := b.reactions.Lookup(&r.Emoji)
	if !ok {
		return
	}

	user := bounty.MemberID(r.UserID)
	hasRole := shareddiscord.MemberHasRole(r.Member, b.config.VerifierRoleID)
	if r.Member == nil {
		hasRole = shareddiscord.HasRole(s, r.GuildID, r.UserID, b.config.VerifierRoleID)
	}
	b.syncVerifier(user, hasRole)

	res, err := b.handler.HandleReaction(b.runtimeCtx, user, shareddiscord.FormatRef(r.ChannelID, r.MessageID), action)
	if err != nil {
		log.Printf("board: reaction %s by %s: %v", action, r.UserID, err)
		return
	}
	if res.Refusal != "" {
		if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.APIName(), r.UserID); err != nil {
			log.Printf("board: remove refused reaction: %v", err)
		}
		b.dispatch([]bounty.Directive{bounty.NotifyDirectMessage{Member: user, Text: res.Refusal}})
		return
	}
	b.dispatch(res.Directives)
}

// syncVerifier grants the Verifier role to holders of the configured guild
// role. Revoking the guild role does not demote.
func (b *Module) syncVerifier(id bounty.MemberID, hasRole bool) {
	if !hasRole {
		return
	}
	out, err := b.engine.GrantVerifier(b.runtimeCtx, id)
	if err != nil {
		log.Printf("board: sync verifier %s: %v", id, err)
		return
	}
	b.dispatch(out.Directives)
}

func (b *Module) respond(s *discordgo.Session, i *discordgo.InteractionCreate, reply Reply) {
	data := &discordgo.InteractionResponseData{Content: reply.Content}
	if reply.Embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{reply.Embed}
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}); err != nil {
		log.Printf("board: failed to respond to interaction: %v", err)
	}
}

func (b *Module) dispatch(directives []bounty.Directive) {
	if len(directives) == 0 {
		return
	}
	b.dispatcher.Enqueue(directives...)
}

func (b *Module) Start(ctx context.Context) error {
	runtimeCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.runtimeCtx = runtimeCtx

	if err := b.session.Open(); err != nil {
		cancel()
		return fmt.Errorf("failed to open Discord connection: %w", err)
	}
	return nil
}

func (b *Module) Stop(ctx context.Context) {
	if b.cancel != nil {
		b.cancel()
	}

	if b.session != nil {
		b.session.Close()
	}
}
