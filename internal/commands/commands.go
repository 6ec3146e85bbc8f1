// Package commands implements the Command & Interaction Router (C10): the
// closed set of ten slash commands and their autocomplete handlers,
// dispatched through discordgo's native ApplicationCommand/InteractionCreate
// surface. It translates Discord interactions into Orchestrator submissions,
// Permission Mediator resolutions, and project/channel bookkeeping.
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/chunker"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/descriptor"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/orchestrator"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/partfmt"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/permission"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/store"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/table"
)

const maxAutocompleteChoices = 25

// Router owns the ten-command application-command surface and dispatches
// interactions for a single bot connection.
type Router struct {
	Session *discordgo.Session
	Store   *store.Store
	State   *bridgestate.State
	Orch    *orchestrator.Orchestrator
	Perm    *permission.Mediator
	GuildID string
	AppID   string

	registered []*discordgo.ApplicationCommand
}

// New constructs a Router sharing the bridge's store, state, orchestrator
// and permission mediator.
func New(session *discordgo.Session, st *store.Store, state *bridgestate.State, orch *orchestrator.Orchestrator, perm *permission.Mediator, guildID, appID string) *Router {
	return &Router{Session: session, Store: st, State: state, Orch: orch, Perm: perm, GuildID: guildID, AppID: appID}
}

// ApplicationCommands returns the closed set of ten slash commands this
// bridge understands.
func (r *Router) ApplicationCommands() []*discordgo.ApplicationCommand {
	str := discordgo.ApplicationCommandOptionString
	return []*discordgo.ApplicationCommand{
		{
			Name:        "session",
			Description: "Start a new conversation in this project channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: str, Name: "prompt", Description: "What should the agent do", Required: true},
				{Type: str, Name: "files", Description: "Comma-separated file paths to mention", Autocomplete: true},
			},
		},
		{
			Name:        "resume",
			Description: "Resume a previous session in a new thread",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: str, Name: "session-id", Description: "Session to resume", Required: true, Autocomplete: true},
			},
		},
		{
			Name:        "add-project",
			Description: "Bind channels to a known project not yet bound",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: str, Name: "project-id", Description: "Project directory", Required: true, Autocomplete: true},
			},
		},
		{
			Name:        "create-new-project",
			Description: "Create a new project directory and channels",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: str, Name: "name", Description: "Project name", Required: true},
			},
		},
		{
			Name:        "add-existing-project",
			Description: "Bind channels to an existing directory on disk",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: str, Name: "path", Description: "Absolute or ~-relative path", Required: true},
			},
		},
		{Name: "accept", Description: "Accept the pending permission once"},
		{Name: "accept-always", Description: "Accept the pending permission and auto-approve similar requests"},
		{Name: "reject", Description: "Reject the pending permission"},
		{Name: "abort", Description: "Abort this thread's running session"},
		{Name: "share", Description: "Share this thread's session"},
	}
}

// Register overwrites the guild's (or global, if GuildID is empty)
// application commands with the closed set above.
func (r *Router) Register(ctx context.Context) error {
	appID := r.Session.State.User.ID
	cmds := r.ApplicationCommands()
	registered, err := r.Session.ApplicationCommandBulkOverwrite(appID, r.GuildID, cmds)
	if err != nil {
		return fmt.Errorf("commands: register: %w", err)
	}
	r.registered = registered
	log.Printf("commands: registered %d application commands", len(registered))
	return nil
}

// Unregister removes every command this Router registered. Best-effort.
func (r *Router) Unregister() {
	if r.Session.State.User == nil {
		return
	}
	appID := r.Session.State.User.ID
	for _, cmd := range r.registered {
		if err := r.Session.ApplicationCommandDelete(appID, r.GuildID, cmd.ID); err != nil {
			log.Printf("commands: failed to delete %s: %v", cmd.Name, err)
		}
	}
}

// HandleInteraction is the discordgo InteractionCreate handler, dispatching
// by interaction type.
func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(context.Background(), s, i)
	case discordgo.InteractionApplicationCommandAutocomplete:
		r.handleAutocomplete(context.Background(), s, i)
	}
}

func (r *Router) handleCommand(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "session":
		r.cmdSession(ctx, s, i, data)
	case "resume":
		r.cmdResume(ctx, s, i, data)
	case "add-project":
		r.cmdAddProject(ctx, s, i, data)
	case "create-new-project":
		r.cmdCreateNewProject(ctx, s, i, data)
	case "add-existing-project":
		r.cmdAddExistingProject(ctx, s, i, data)
	case "accept":
		r.cmdResolvePermission(ctx, s, i, agentproc.PermissionOnce)
	case "accept-always":
		r.cmdResolvePermission(ctx, s, i, agentproc.PermissionAlways)
	case "reject":
		r.cmdResolvePermission(ctx, s, i, agentproc.PermissionReject)
	case "abort":
		r.cmdAbort(ctx, s, i)
	case "share":
		r.cmdShare(ctx, s, i)
	default:
		respondEphemeral(s, i, "Unknown command.")
	}
}

func (r *Router) cmdSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	prompt := optString(data, "prompt")
	filesArg := optString(data, "files")

	cd, ok, err := r.Store.ChannelDirectory(ctx, i.ChannelID)
	if err != nil || !ok {
		respondEphemeral(s, i, "This channel is not bound to a project.")
		return
	}

	starter := prompt
	if filesArg != "" {
		var mentions []string
		for _, f := range strings.Split(filesArg, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				mentions = append(mentions, "@"+f)
			}
		}
		if len(mentions) > 0 {
			starter = prompt + "\n" + strings.Join(mentions, "@ ")
		}
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: starter},
	}); err != nil {
		log.Printf("commands: session respond: %v", err)
		return
	}

	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		log.Printf("commands: session fetch starter message: %v", err)
		return
	}

	title := prompt
	if len(title) > 100 {
		title = title[:100]
	}
	thread, err := s.MessageThreadStartComplex(i.ChannelID, msg.ID, &discordgo.ThreadStart{
		Name:                title,
		AutoArchiveDuration: 1440,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	})
	if err != nil {
		log.Printf("commands: session open thread: %v", err)
		return
	}

	go r.Orch.Submit(context.Background(), orchestrator.SubmitRequest{
		ThreadID: thread.ID, ChannelID: i.ChannelID, Directory: cd.Directory, AppID: r.AppID, Prompt: starter,
	})
}

func (r *Router) cmdResume(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	sessionID := optString(data, "session-id")
	cd, ok, err := r.Store.ChannelDirectory(ctx, i.ChannelID)
	if err != nil || !ok {
		respondEphemeral(s, i, "This channel is not bound to a project.")
		return
	}

	client, err := r.State.Supervisor.ClientFor(ctx, cd.Directory, r.AppID)
	if err != nil {
		respondEphemeral(s, i, "Could not reach the agent for this project.")
		return
	}
	sess, err := client.GetSession(ctx, sessionID)
	if err != nil {
		respondEphemeral(s, i, "Unknown session id.")
		return
	}

	title := sess.Title
	if title == "" {
		title = sessionID
	}
	threadTitle := "Resume: " + title
	if len(threadTitle) > 100 {
		threadTitle = threadTitle[:100]
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: "Resuming **" + title + "**"},
	}); err != nil {
		log.Printf("commands: resume respond: %v", err)
		return
	}
	msg, err := s.InteractionResponse(i.Interaction)
	if err != nil {
		return
	}
	thread, err := s.MessageThreadStartComplex(i.ChannelID, msg.ID, &discordgo.ThreadStart{
		Name:                threadTitle,
		AutoArchiveDuration: 1440,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	})
	if err != nil {
		log.Printf("commands: resume open thread: %v", err)
		return
	}

	if err := r.Store.PutThreadSession(ctx, thread.ID, sessionID); err != nil {
		log.Printf("commands: resume persist binding: %v", err)
	}

	messages, err := client.SessionMessages(ctx, sessionID)
	if err != nil {
		return
	}

	var parts []agentproc.Part
	for _, m := range messages {
		if m.Role == "assistant" {
			parts = append(parts, m.Parts...)
		}
	}

	skipped := 0
	if len(parts) > 30 {
		skipped = len(parts) - 30
		parts = parts[skipped:]
	}
	if skipped > 0 {
		s.ChannelMessageSend(thread.ID, fmt.Sprintf("Skipped %d older assistant parts…", skipped))
	}

	var rendered []string
	for _, p := range parts {
		if line := partfmt.Format(&p); line != "" {
			rendered = append(rendered, line)
		}
	}
	if len(rendered) == 0 {
		return
	}

	combined := table.Normalize(strings.Join(rendered, "\n\n"))
	chunks := chunker.Split(combined, 2000)
	var firstID string
	for _, c := range chunks {
		posted, err := s.ChannelMessageSend(thread.ID, chunker.EscapeBackticksInCodeBlocks(c))
		if err != nil {
			continue
		}
		if firstID == "" {
			firstID = posted.ID
		}
	}
	if firstID != "" {
		for _, p := range parts {
			_ = r.Store.PutPartMessage(ctx, p.ID, firstID, thread.ID)
		}
	}
}

func (r *Router) cmdAddProject(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	dir := optString(data, "project-id")
	if dir == "" {
		respondEphemeral(s, i, "Pick a project.")
		return
	}
	name := filepath.Base(dir)
	textID, _, err := r.createProjectChannels(ctx, s, dir, name)
	if err != nil {
		respondEphemeral(s, i, "Failed to create channels: "+err.Error())
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Project bound: <#%s>", textID))
}

func (r *Router) cmdCreateNewProject(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	name := sanitizeProjectName(optString(data, "name"))
	if name == "" {
		respondEphemeral(s, i, "Invalid project name.")
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		respondEphemeral(s, i, "Could not resolve home directory.")
		return
	}
	dir := filepath.Join(home, "remote-vibe", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		respondEphemeral(s, i, "Could not create project directory: "+err.Error())
		return
	}
	if err := exec.CommandContext(ctx, "git", "init", dir).Run(); err != nil {
		log.Printf("commands: git init %s: %v", dir, err)
	}

	textID, _, err := r.createProjectChannels(ctx, s, dir, name)
	if err != nil {
		respondEphemeral(s, i, "Failed to create channels: "+err.Error())
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Created project <#%s>", textID))

	r.openGreetingThread(ctx, s, textID, dir, "Say hello and summarize what you can help with in this project.")
}

func (r *Router) cmdAddExistingProject(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	dir, err := normalizePath(optString(data, "path"))
	if err != nil {
		respondEphemeral(s, i, "Invalid path.")
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		respondEphemeral(s, i, "Directory does not exist: "+dir)
		return
	}

	textID, _, err := r.createProjectChannels(ctx, s, dir, filepath.Base(dir))
	if err != nil {
		respondEphemeral(s, i, "Failed to create channels: "+err.Error())
		return
	}
	respondEphemeral(s, i, fmt.Sprintf("Bound existing project <#%s>", textID))

	r.openGreetingThread(ctx, s, textID, dir, "What do you want to work on?")
}

// openGreetingThread posts a starter message in the text channel and
// submits it as the first prompt of a new session, used by both
// create-new-project and add-existing-project.
func (r *Router) openGreetingThread(ctx context.Context, s *discordgo.Session, channelID, directory, prompt string) {
	msg, err := s.ChannelMessageSend(channelID, prompt)
	if err != nil {
		log.Printf("commands: greeting message: %v", err)
		return
	}
	title := prompt
	if len(title) > 100 {
		title = title[:100]
	}
	thread, err := s.MessageThreadStartComplex(channelID, msg.ID, &discordgo.ThreadStart{
		Name:                title,
		AutoArchiveDuration: 1440,
		Type:                discordgo.ChannelTypeGuildPublicThread,
	})
	if err != nil {
		log.Printf("commands: greeting open thread: %v", err)
		return
	}
	go r.Orch.Submit(context.Background(), orchestrator.SubmitRequest{
		ThreadID: thread.ID, ChannelID: channelID, Directory: directory, AppID: r.AppID, Prompt: prompt,
	})
}

// createProjectChannels creates the text+voice pair for a project directory,
// tagged with the channel descriptor, and persists both bindings.
func (r *Router) createProjectChannels(ctx context.Context, s *discordgo.Session, directory, name string) (textID, voiceID string, err error) {
	topic := descriptor.Render(descriptor.Descriptor{Directory: directory, AppID: r.AppID})

	textCh, err := s.GuildChannelCreateComplex(r.GuildID, discordgo.GuildChannelCreateData{
		Name:  name,
		Type:  discordgo.ChannelTypeGuildText,
		Topic: topic,
	})
	if err != nil {
		return "", "", fmt.Errorf("create text channel: %w", err)
	}
	voiceCh, err := s.GuildChannelCreateComplex(r.GuildID, discordgo.GuildChannelCreateData{
		Name:  name + "-voice",
		Type:  discordgo.ChannelTypeGuildVoice,
		Topic: topic,
	})
	if err != nil {
		return "", "", fmt.Errorf("create voice channel: %w", err)
	}

	if err := r.Store.PutChannelDirectory(ctx, textCh.ID, directory, store.ChannelText); err != nil {
		return "", "", err
	}
	if err := r.Store.PutChannelDirectory(ctx, voiceCh.ID, directory, store.ChannelVoice); err != nil {
		return "", "", err
	}
	return textCh.ID, voiceCh.ID, nil
}

func (r *Router) cmdResolvePermission(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, scope agentproc.PermissionScope) {
	reply, err := r.Perm.Resolve(ctx, i.ChannelID, r.AppID, scope)
	if err != nil {
		if err == permission.ErrNoPending {
			respondEphemeral(s, i, "No pending permission in this thread.")
			return
		}
		respondEphemeral(s, i, "Failed: "+err.Error())
		return
	}
	respondEphemeral(s, i, reply)
}

func (r *Router) cmdAbort(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	sessionID, directory, err := r.sessionAndDirectoryForThread(ctx, s, i.ChannelID)
	if err != nil {
		respondEphemeral(s, i, "No active session in this thread.")
		return
	}
	if err := r.Perm.Abort(ctx, sessionID, directory, r.AppID); err != nil {
		respondEphemeral(s, i, "Abort failed: "+err.Error())
		return
	}
	respondEphemeral(s, i, "Session aborted.")
}

func (r *Router) cmdShare(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	sessionID, directory, err := r.sessionAndDirectoryForThread(ctx, s, i.ChannelID)
	if err != nil {
		respondEphemeral(s, i, "No active session in this thread.")
		return
	}
	reply, err := r.Perm.Share(ctx, sessionID, directory, r.AppID)
	if err != nil {
		respondEphemeral(s, i, "Share failed: "+err.Error())
		return
	}
	respondEphemeral(s, i, reply)
}

// sessionAndDirectoryForThread resolves the bound session for a thread and
// the project directory bound to its parent channel.
func (r *Router) sessionAndDirectoryForThread(ctx context.Context, s *discordgo.Session, threadID string) (sessionID, directory string, err error) {
	sessionID, ok, err := r.Store.SessionForThread(ctx, threadID)
	if err != nil || !ok {
		return "", "", fmt.Errorf("no session bound to thread")
	}

	parentID := threadID
	if ch, err := s.State.Channel(threadID); err == nil && ch.ParentID != "" {
		parentID = ch.ParentID
	} else if ch, err := s.Channel(threadID); err == nil && ch.ParentID != "" {
		parentID = ch.ParentID
	}

	cd, ok, err := r.Store.ChannelDirectory(ctx, parentID)
	if err != nil || !ok {
		return "", "", fmt.Errorf("no project bound to parent channel")
	}
	return sessionID, cd.Directory, nil
}

func (r *Router) handleAutocomplete(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	var focused *discordgo.ApplicationCommandInteractionDataOption
	for _, opt := range data.Options {
		if opt.Focused {
			focused = opt
			break
		}
	}
	if focused == nil {
		respondAutocomplete(s, i, nil)
		return
	}

	switch data.Name {
	case "resume":
		respondAutocomplete(s, i, r.autocompleteResume(ctx, i.ChannelID, focused.StringValue()))
	case "session":
		respondAutocomplete(s, i, r.autocompleteSessionFiles(ctx, i.ChannelID, focused.StringValue()))
	case "add-project":
		respondAutocomplete(s, i, r.autocompleteAddProject(ctx))
	default:
		respondAutocomplete(s, i, nil)
	}
}

func (r *Router) autocompleteResume(ctx context.Context, channelID, prefix string) []*discordgo.ApplicationCommandOptionChoice {
	cd, ok, err := r.Store.ChannelDirectory(ctx, channelID)
	if err != nil || !ok {
		return nil
	}
	client, err := r.State.Supervisor.ClientFor(ctx, cd.Directory, r.AppID)
	if err != nil {
		return nil
	}
	sessions, err := client.ListSessions(ctx)
	if err != nil {
		return nil
	}

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, sess := range sessions {
		if prefix != "" && !strings.Contains(strings.ToLower(sess.Title), strings.ToLower(prefix)) {
			continue
		}
		label := fmt.Sprintf("%s (%s)", sess.Title, sess.UpdatedAt.Format("2006-01-02"))
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: truncate(label, 100), Value: sess.ID})
		if len(choices) >= maxAutocompleteChoices {
			break
		}
	}
	return choices
}

func (r *Router) autocompleteSessionFiles(ctx context.Context, channelID, current string) []*discordgo.ApplicationCommandOptionChoice {
	cd, ok, err := r.Store.ChannelDirectory(ctx, channelID)
	if err != nil || !ok {
		return nil
	}
	client, err := r.State.Supervisor.ClientFor(ctx, cd.Directory, r.AppID)
	if err != nil {
		return nil
	}
	files, err := client.ListFiles(ctx)
	if err != nil {
		return nil
	}

	segments := strings.Split(current, ",")
	prefix := strings.TrimSpace(segments[len(segments)-1])
	head := strings.Join(segments[:len(segments)-1], ",")

	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, f := range files {
		base := filepath.Base(f)
		if prefix != "" && !strings.HasPrefix(strings.ToLower(base), strings.ToLower(prefix)) {
			continue
		}
		value := f
		if head != "" {
			value = head + "," + f
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: truncate(base, 100), Value: truncate(value, 100)})
		if len(choices) >= maxAutocompleteChoices {
			break
		}
	}
	return choices
}

func (r *Router) autocompleteAddProject(ctx context.Context) []*discordgo.ApplicationCommandOptionChoice {
	dirs, err := r.discoverUnboundProjects(ctx)
	if err != nil {
		return nil
	}
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, dir := range dirs {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: filepath.Base(dir), Value: dir})
		if len(choices) >= maxAutocompleteChoices {
			break
		}
	}
	return choices
}

// discoverUnboundProjects lists ~/remote-vibe subdirectories not yet bound
// to a channel, most recently modified first, reconciling stale rows whose
// channel no longer exists in the guild along the way.
func (r *Router) discoverUnboundProjects(ctx context.Context) ([]string, error) {
	r.reconcileStaleChannels(ctx)

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	root := filepath.Join(home, "remote-vibe")
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	bound, err := r.Store.BoundDirectories(ctx)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		dir     string
		modTime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if bound[dir] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{dir: dir, modTime: info.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].modTime.After(candidates[j].modTime) })

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.dir
	}
	return out, nil
}

// reconcileStaleChannels deletes channel_directories rows whose channel id
// is no longer present in the guild.
func (r *Router) reconcileStaleChannels(ctx context.Context) {
	rows, err := r.Store.AllChannelDirectories(ctx)
	if err != nil {
		return
	}
	for _, cd := range rows {
		if _, err := r.Session.Channel(cd.ChannelID); err != nil {
			log.Printf("commands: pruning stale channel binding %s", cd.ChannelID)
			_ = r.Store.DeleteChannelDirectory(ctx, cd.ChannelID)
		}
	}
}

func optString(data discordgo.ApplicationCommandInteractionData, name string) string {
	for _, opt := range data.Options {
		if opt.Name == name {
			return opt.StringValue()
		}
	}
	return ""
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Printf("commands: respond: %v", err)
	}
}

func respondAutocomplete(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
	if err != nil {
		log.Printf("commands: respond autocomplete: %v", err)
	}
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9-]+`)

// sanitizeProjectName kebab-cases name, strips invalid characters, and caps
// the result at 100 characters.
func sanitizeProjectName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.ReplaceAll(lower, " ", "-")
	lower = invalidNameChars.ReplaceAllString(lower, "")
	lower = strings.Trim(lower, "-")
	if len(lower) > 100 {
		lower = lower[:100]
	}
	return lower
}

// normalizePath expands a leading ~ and resolves relative paths against the
// current working directory.
func normalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", err
		}
		path = abs
	}
	return filepath.Clean(path), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
