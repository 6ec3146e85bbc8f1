// Package orchestrator implements the per-thread session submission
// pipeline (C7) and the process-wide cancellation/debounce protocol (C8):
// resolving or creating an Agent session for a thread, superseding any
// in-flight submission, subscribing to the Agent's event stream, and
// streaming parts back into Discord through C3/C2/C1.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/chunker"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/store"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/table"
)

// debounceDelay is the grace period a new submission waits after
// superseding a previous one, so a stale in-flight request has a chance to
// notice it was aborted before anything is posted twice.
const debounceDelay = 200 * time.Millisecond

// typingInterval is the cooperative heartbeat period for the typing
// indicator while a session is actively producing output.
const typingInterval = 8 * time.Second

// typingRestartDelay is how long after a step-finish flush the typing
// indicator waits before resuming, so a session that actually finished
// doesn't flash typing one more time.
const typingRestartDelay = 300 * time.Millisecond

// maxDiscordMessageLen is Discord's hard per-message character cap.
const maxDiscordMessageLen = 2000

// Poster is the Discord-facing surface the orchestrator drives. Supplied
// by internal/discordbridge; kept as an interface here so this package has
// no discordgo dependency of its own.
type Poster interface {
	PostMessage(ctx context.Context, threadID, content string) (messageID string, err error)
	React(ctx context.Context, channelID, messageID, emoji string) error
	StartTyping(threadID string)
	StopTyping(threadID string)
}

// SubmitRequest describes one user submission to a thread.
type SubmitRequest struct {
	ThreadID          string
	ChannelID         string
	Directory         string
	AppID             string
	Prompt            string
	Images            []agentproc.PromptPart
	TriggeringMsgID   string
}

// Orchestrator wires together the store, the Agent supervisor, the
// cancellation registry, and the formatting pipeline.
type Orchestrator struct {
	Store      *store.Store
	State      *bridgestate.State
	Poster     Poster
	MaxMsgLen  int
}

// New constructs an Orchestrator. maxMsgLen defaults to Discord's 2000
// character cap when 0.
func New(st *store.Store, state *bridgestate.State, poster Poster, maxMsgLen int) *Orchestrator {
	if maxMsgLen == 0 {
		maxMsgLen = maxDiscordMessageLen
	}
	return &Orchestrator{Store: st, State: state, Poster: poster, MaxMsgLen: maxMsgLen}
}

// Submit runs the full per-thread submission pipeline described in §4.7.
func (o *Orchestrator) Submit(ctx context.Context, req SubmitRequest) error {
	client, err := o.State.Supervisor.ClientFor(ctx, req.Directory, req.AppID)
	if err != nil {
		return fmt.Errorf("orchestrator: get agent client: %w", err)
	}

	sessionID, err := o.resolveSession(ctx, client, req)
	if err != nil {
		return err
	}

	handle, hadPrevious := o.State.Supersede(ctx, sessionID)
	if hadPrevious {
		select {
		case <-time.After(debounceDelay):
		case <-handle.Context().Done():
		}
		if handle.Aborted() {
			return nil
		}
	}

	runCtx := handle.Context()
	if runCtx.Err() != nil {
		return nil
	}

	return o.runSubmission(runCtx, client, sessionID, handle, req)
}

func (o *Orchestrator) resolveSession(ctx context.Context, client *agentproc.Client, req SubmitRequest) (string, error) {
	if sessionID, ok, err := o.Store.SessionForThread(ctx, req.ThreadID); err != nil {
		return "", err
	} else if ok {
		if _, err := client.GetSession(ctx, sessionID); err == nil {
			return sessionID, nil
		}
		if err := o.Store.DeleteThreadSession(ctx, req.ThreadID); err != nil {
			return "", err
		}
	}

	title := req.Prompt
	if len(title) > 80 {
		title = title[:80]
	}
	sess, err := client.CreateSession(ctx, title)
	if err != nil {
		return "", fmt.Errorf("orchestrator: create session: %w", err)
	}
	if err := o.Store.PutThreadSession(ctx, req.ThreadID, sess.ID); err != nil {
		return "", err
	}
	return sess.ID, nil
}

func (o *Orchestrator) runSubmission(ctx context.Context, client *agentproc.Client, sessionID string, handle *bridgestate.CancelHandle, req SubmitRequest) error {
	started := time.Now()

	o.Poster.StartTyping(req.ThreadID)
	defer o.Poster.StopTyping(req.ThreadID)

	stream := newStreamState(sessionID)

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.SubscribeEvents(ctx, func(ev agentproc.Event) {
			o.handleEvent(ctx, client, req, stream, ev)
		})
	}()

	if err := o.dispatch(ctx, client, sessionID, req); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		o.postError(ctx, req, err.Error())
		return err
	}

	select {
	case err := <-errCh:
		if ctx.Err() != nil || handle.Aborted() {
			return nil
		}
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return nil
	}

	reason, _ := handle.Reason()
	o.State.Finish(sessionID, handle, bridgestate.AbortFinished)
	if reason == bridgestate.AbortNewRequest {
		return nil
	}

	if req.TriggeringMsgID != "" {
		_ = o.Poster.React(ctx, req.ChannelID, req.TriggeringMsgID, "✅")
	}

	footer := fmt.Sprintf("_Completed in %s_", formatDuration(time.Since(started)))
	if stream.contextPercent > 0 {
		footer += fmt.Sprintf(" ⋅ %d%%", stream.contextPercent)
	}
	footer += fmt.Sprintf(" ⋅ %s ⋅ %s", sessionID, stream.model)
	o.postChunks(ctx, req.ThreadID, footer)

	return nil
}

// dispatch sends the prompt or, if it parses as a slash-command, the
// command, to the Agent.
func (o *Orchestrator) dispatch(ctx context.Context, client *agentproc.Client, sessionID string, req SubmitRequest) error {
	if name, args, ok := parseSlashCommand(req.Prompt); ok {
		return client.SubmitCommand(ctx, sessionID, name, args)
	}

	system := fmt.Sprintf(
		"You are replying inside the remote-vibe Discord bridge for session %s. "+
			"Use Discord-flavored markdown. Do not use heading levels deeper than ### "+
			"and do not emit GFM tables.",
		sessionID,
	)
	parts := append([]agentproc.PromptPart{{Type: "text", Text: req.Prompt}}, req.Images...)
	return client.SubmitPrompt(ctx, sessionID, parts, system)
}

func parseSlashCommand(prompt string) (name, args string, ok bool) {
	trimmed := strings.TrimSpace(prompt)
	if !strings.HasPrefix(trimmed, "/") {
		return "", "", false
	}
	fields := strings.SplitN(trimmed[1:], " ", 2)
	if fields[0] == "" {
		return "", "", false
	}
	if len(fields) == 2 {
		return fields[0], fields[1], true
	}
	return fields[0], "", true
}

func (o *Orchestrator) postError(ctx context.Context, req SubmitRequest, msg string) {
	o.postChunks(ctx, req.ThreadID, "✗ Unexpected bot Error: "+msg)
	if req.TriggeringMsgID != "" {
		_ = o.Poster.React(ctx, req.ChannelID, req.TriggeringMsgID, "❌")
	}
}

// postChunks normalizes tables, chunks to the Discord limit, and posts
// each resulting piece as its own message.
func (o *Orchestrator) postChunks(ctx context.Context, threadID, content string) []string {
	normalized := table.Normalize(content)
	chunks := chunker.Split(normalized, o.MaxMsgLen)

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		escaped := chunker.EscapeBackticksInCodeBlocks(c)
		id, err := o.Poster.PostMessage(ctx, threadID, escaped)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%dm%ds", int(m), int(s))
}
