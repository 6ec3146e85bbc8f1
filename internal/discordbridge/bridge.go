// Package discordbridge wires a live discordgo session to every other
// component: it registers gateway handlers, gates actors through C14,
// classifies/transcribes attachments (C11/C12), drives C7 for text
// submissions, and owns the per-guild voice workers (C13). Grounded on the
// teacher's discord.Bot (session + per-channel state + handler
// registration) generalized from a single active-session map to the
// spec's thread-bound, multi-project model.
package discordbridge

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/authz"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/commands"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/config"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/orchestrator"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/store"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/transcribe"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/voice"
)

// Bridge owns the live Discord connection and every handler registered
// against it.
type Bridge struct {
	Session    *discordgo.Session
	Store      *store.Store
	State      *bridgestate.State
	Orch       *orchestrator.Orchestrator
	Commands   *commands.Router
	Transcribe *transcribe.Client
	Poster     *Poster
	HTTP       *http.Client
	Cfg        config.Config

	voiceMu sync.Mutex
	voices  map[string]*voiceWorker // guildID -> running worker
}

// voiceWorker pairs a running voice.Worker with the SSRC->user resolution
// this package maintains for it, plus its cancel func.
type voiceWorker struct {
	w      *voice.Worker
	cancel context.CancelFunc
	ssrc   map[uint32]string // Discord SSRC -> speaking user id
	mu     sync.Mutex
}

// New wires a Bridge around an already-constructed session. Call Start to
// open the gateway connection.
func New(session *discordgo.Session, st *store.Store, state *bridgestate.State, orch *orchestrator.Orchestrator, router *commands.Router, tc *transcribe.Client, cfg config.Config) *Bridge {
	poster := NewPoster(session)
	b := &Bridge{
		Session:    session,
		Store:      st,
		State:      state,
		Orch:       orch,
		Commands:   router,
		Transcribe: tc,
		Poster:     poster,
		HTTP:       &http.Client{},
		Cfg:        cfg,
		voices:     make(map[string]*voiceWorker),
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildVoiceStates

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteractionCreate)
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onVoiceStateUpdate)
	session.AddHandler(b.onVoiceSpeakingUpdate)

	return b
}

func (b *Bridge) onReady(s *discordgo.Session, r *discordgo.Ready) {
	log.Printf("discordbridge: connected as %s", r.User.String())
}

func (b *Bridge) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.Commands.HandleInteraction(s, i)
}

// Start opens the gateway connection and registers slash commands.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		return fmt.Errorf("discordbridge: open session: %w", err)
	}
	if err := b.Commands.Register(ctx); err != nil {
		return fmt.Errorf("discordbridge: register commands: %w", err)
	}
	return nil
}

// Stop tears down every active voice worker in parallel, then closes the
// gateway connection, per §4.15's shutdown ordering.
func (b *Bridge) Stop() error {
	b.voiceMu.Lock()
	workers := make([]*voiceWorker, 0, len(b.voices))
	for _, vw := range b.voices {
		workers = append(workers, vw)
	}
	b.voiceMu.Unlock()

	var wg sync.WaitGroup
	for _, vw := range workers {
		wg.Add(1)
		go func(vw *voiceWorker) {
			defer wg.Done()
			vw.cancel()
		}(vw)
	}
	wg.Wait()

	b.Commands.Unregister()
	return b.Session.Close()
}

// memberForMessage adapts a MessageCreate's author/guild into authz.Member.
func (b *Bridge) memberForMessage(s *discordgo.Session, m *discordgo.MessageCreate) authz.Member {
	mem := authz.Member{IsBot: m.Author.Bot, UserID: m.Author.ID}

	guild, err := s.State.Guild(m.GuildID)
	if err != nil {
		return mem
	}
	mem.GuildOwnerID = guild.OwnerID

	perms, err := s.State.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err == nil {
		mem.IsAdministrator = perms&discordgo.PermissionAdministrator != 0
		mem.IsManageServer = perms&discordgo.PermissionManageServer != 0
	}

	if m.Member != nil {
		roleNames := make(map[string]string, len(guild.Roles))
		for _, r := range guild.Roles {
			roleNames[r.ID] = r.Name
		}
		for _, roleID := range m.Member.Roles {
			if name, ok := roleNames[roleID]; ok {
				mem.RoleNames = append(mem.RoleNames, name)
			}
		}
	}
	return mem
}

// clientFor resolves the Agent client for a directory/appID pair, used by
// both message handling and voice tool delegation.
func (b *Bridge) clientFor(ctx context.Context, directory string) (*agentproc.Client, error) {
	return b.State.Supervisor.ClientFor(ctx, directory, b.Cfg.Discord.AppID)
}
