// Command bridged runs the Discord-to-Agent bridge: it connects a single
// Discord bot session, supervises one Agent server per bound project
// directory, and streams sessions, permissions, attachments and voice
// between the two. Grounded on the teacher's cmd/ricochet/main.go
// flag-parsing and signal-driven shutdown shape.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/commands"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/config"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/discordbridge"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/lifecycle"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/orchestrator"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/permission"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/store"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/transcribe"
)

// singleInstancePort is the fixed local port used as a mutual-exclusion
// lock; only one bridge process may run per machine.
const singleInstancePort = 41717

func main() {
	configPath := flag.String("config", "", "path to the bridge's TOML config file (default remote-vibe.toml)")
	dbPath := flag.String("db", "", "path to the bridge's SQLite database (default ~/.remote-vibe/bridge.db)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("bridged: load config: %v", err)
	}
	if cfg.Discord.Token == "" {
		log.Fatal("bridged: no Discord bot token configured (set discord.token or REMOTE_VIBE_DISCORD_TOKEN)")
	}

	lock, err := lifecycle.AcquireSingleInstance(singleInstancePort)
	if err != nil {
		log.Fatalf("bridged: %v", err)
	}
	defer lock.Release()

	path := *dbPath
	if path == "" {
		path, err = store.DefaultPath()
		if err != nil {
			log.Fatalf("bridged: resolve database path: %v", err)
		}
	}
	st, err := store.Open(path)
	if err != nil {
		log.Fatalf("bridged: open database: %v", err)
	}
	defer st.Close()

	sup := agentproc.NewSupervisor(cfg.Agent.Binary, cfg.Agent.PortRangeStart, cfg.Agent.PortRangeEnd,
		agentproc.WithAuthKeys(func(appID string) (primary, fallback string) {
			keys, ok, kerr := st.APIKeys(context.Background(), appID)
			if kerr != nil || !ok {
				return "", ""
			}
			return keys.Primary, keys.Fallback
		}),
	)
	defer sup.Shutdown()

	state := bridgestate.New(sup)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		log.Fatalf("bridged: create Discord session: %v", err)
	}

	orch := orchestrator.New(st, state, discordbridge.NewPoster(session), 0)
	perm := permission.New(state)
	router := commands.New(session, st, state, orch, perm, cfg.Discord.GuildID, cfg.Discord.AppID)
	tc := initializeTranscribe(cfg)

	bridge := discordbridge.New(session, st, state, orch, router, tc, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = lifecycle.WaitForShutdown(ctx)
	lifecycle.WatchReexec(func() {
		log.Println("bridged: SIGUSR1 received, shutting down for re-exec")
		_ = bridge.Stop()
	})

	if err := bridge.Start(ctx); err != nil {
		log.Fatalf("bridged: start: %v", err)
	}
	log.Println("bridged: running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Println("bridged: shutting down")
	if err := bridge.Stop(); err != nil {
		log.Printf("bridged: shutdown: %v", err)
	}
}

// initializeTranscribe builds the transcription client. Per the teacher's
// "optional feature, warn and continue" posture for Whisper, a missing
// primary key disables transcription rather than failing startup.
func initializeTranscribe(cfg config.Config) *transcribe.Client {
	if cfg.Transcribe.PrimaryAPIKey == "" {
		log.Println("bridged: no primary transcription API key configured, voice transcription disabled")
	}
	var primary, fallback transcribe.Provider
	if cfg.Transcribe.PrimaryAPIKey != "" {
		primary = transcribe.Provider{Name: "primary", Endpoint: cfg.Transcribe.PrimaryEndpoint, APIKey: cfg.Transcribe.PrimaryAPIKey}
	}
	if cfg.Transcribe.FallbackAPIKey != "" {
		fallback = transcribe.Provider{Name: "fallback", Endpoint: cfg.Transcribe.FallbackEndpoint, APIKey: cfg.Transcribe.FallbackAPIKey}
	}
	return transcribe.NewClient(primary, fallback, nil)
}
