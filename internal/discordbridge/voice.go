package discordbridge

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/store"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/voice"
)

// onVoiceStateUpdate starts a voice worker the moment a non-bot member joins
// a project's bound voice channel, and tears it down once the channel is
// empty again, per §4.13's "at most one realtime voice worker runs per
// guild" invariant.
func (b *Bridge) onVoiceStateUpdate(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
	if v.Member != nil && v.Member.User != nil && v.Member.User.Bot {
		return
	}

	ctx := context.Background()

	if v.ChannelID != "" {
		cd, ok, err := b.Store.ChannelDirectory(ctx, v.ChannelID)
		if err != nil || !ok || cd.Type != store.ChannelVoice {
			return
		}
		b.startVoiceWorker(ctx, v.GuildID, v.ChannelID, cd.Directory)
		return
	}

	// ChannelID == "" means the member left voice entirely; only tear the
	// worker down once the channel it occupied is empty.
	b.voiceMu.Lock()
	vw, active := b.voices[v.GuildID]
	b.voiceMu.Unlock()
	if !active {
		return
	}

	guild, err := s.State.Guild(v.GuildID)
	if err != nil {
		return
	}
	for _, vs := range guild.VoiceStates {
		if s.State.User != nil && vs.UserID == s.State.User.ID {
			continue // the bot's own connection does not count
		}
		if vs.ChannelID == vw.w.Session().ChannelID {
			return // someone else is still in the channel
		}
	}
	b.stopVoiceWorker(v.GuildID)
}

// startVoiceWorker is a no-op if a worker is already running for the guild.
func (b *Bridge) startVoiceWorker(ctx context.Context, guildID, channelID, directory string) {
	b.voiceMu.Lock()
	if _, active := b.voices[guildID]; active {
		b.voiceMu.Unlock()
		return
	}
	b.voiceMu.Unlock()

	threadID := b.pairedTextChannel(ctx, directory, channelID)

	model, err := voice.DialRealtime(ctx, b.Cfg.Realtime)
	if err != nil {
		log.Printf("discordbridge: voice: dial realtime model: %v", err)
		if threadID != "" {
			_, _ = b.Poster.PostMessage(ctx, threadID, "Voice pipeline unavailable: "+err.Error())
		}
		return
	}

	sess := voice.Session{
		GuildID:   guildID,
		ChannelID: channelID,
		ThreadID:  threadID,
		Directory: directory,
		AppID:     b.Cfg.Discord.AppID,
	}
	w, err := voice.NewWorker(sess, model, b.State.Supervisor, b.Orch, b.State)
	if err != nil {
		log.Printf("discordbridge: voice: new worker: %v", err)
		_ = model.Close()
		return
	}
	if err := w.Connect(ctx, b.Session); err != nil {
		log.Printf("discordbridge: voice: connect: %v", err)
		_ = model.Close()
		if threadID != "" {
			_, _ = b.Poster.PostMessage(ctx, threadID, "Failed to join voice channel: "+err.Error())
		}
		return
	}

	runCtx, cancel := context.WithCancel(context.Background())
	vw := &voiceWorker{w: w, cancel: cancel, ssrc: make(map[uint32]string)}

	b.voiceMu.Lock()
	b.voices[guildID] = vw
	b.voiceMu.Unlock()
	b.State.SetVoiceActive(guildID)

	go w.Run(runCtx)
	go b.drainVoiceOut(runCtx, guildID, vw)
	go b.drainOpusRecv(runCtx, vw)
}

func (b *Bridge) stopVoiceWorker(guildID string) {
	b.voiceMu.Lock()
	vw, active := b.voices[guildID]
	if active {
		delete(b.voices, guildID)
	}
	b.voiceMu.Unlock()
	if !active {
		return
	}
	vw.cancel()
	b.State.ClearVoiceState(guildID)
}

// pairedTextChannel finds the text channel bound to the same project
// directory as a voice channel, used both as the submitMessage target and
// the error-reporting channel.
func (b *Bridge) pairedTextChannel(ctx context.Context, directory, voiceChannelID string) string {
	dirs, err := b.Store.AllChannelDirectories(ctx)
	if err != nil {
		return ""
	}
	for _, cd := range dirs {
		if cd.Directory == directory && cd.Type == store.ChannelText {
			return cd.ChannelID
		}
	}
	return ""
}

// onVoiceSpeakingUpdate maintains the per-guild SSRC->user map and starts or
// ends a speaking session on the corresponding worker, per §4.13's RX
// details (a fresh receive pipeline per speaking-start, guarded by a
// monotonic session counter).
func (b *Bridge) onVoiceSpeakingUpdate(s *discordgo.Session, v *discordgo.VoiceSpeakingUpdate) {
	b.voiceMu.Lock()
	vw, active := b.voices[v.GuildID]
	b.voiceMu.Unlock()
	if !active {
		return
	}

	vw.mu.Lock()
	vw.ssrc[uint32(v.SSRC)] = v.UserID
	vw.mu.Unlock()

	if v.Speaking {
		vw.w.StartSpeakingSession(v.UserID)
	} else {
		sessionCounter := vw.w.CurrentSpeakingSession(v.UserID)
		vw.w.EndSpeakingSession(context.Background(), v.UserID, sessionCounter)
	}
}

// drainOpusRecv forwards every inbound Opus packet for guildID's voice
// connection into the worker's In channel as a realtime-input message,
// resolving the speaking Discord user from the SSRC map populated by
// onVoiceSpeakingUpdate.
func (b *Bridge) drainOpusRecv(ctx context.Context, vw *voiceWorker) {
	recv := vw.w.OpusRecv()
	if recv == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case packet, ok := <-recv:
			if !ok {
				return
			}
			vw.mu.Lock()
			userID := vw.ssrc[packet.SSRC]
			vw.mu.Unlock()
			if userID == "" {
				continue
			}
			select {
			case vw.w.In <- voice.Message{Kind: voice.MsgRealtimeInput, UserID: userID, Opus: packet.Opus}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// drainVoiceOut watches a worker's Out channel for error reports and tears
// the worker down on an unrecoverable one, surfacing the failure to the
// project's text channel per §7's "voice worker failure" handling.
func (b *Bridge) drainVoiceOut(ctx context.Context, guildID string, vw *voiceWorker) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-vw.w.Out:
			if !ok {
				return
			}
			switch msg.Kind {
			case voice.MsgError:
				log.Printf("discordbridge: voice: guild %s: %v", guildID, msg.Err)
				if vw.w.Session().ThreadID != "" {
					_, _ = b.Poster.PostMessage(ctx, vw.w.Session().ThreadID, "Voice error: "+msg.Err.Error())
				}
			}
		}
	}
}
