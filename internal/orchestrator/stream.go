package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/partfmt"
)

// contextPercentStep is the granularity at which context-usage updates are
// posted: only when the integer floor of 10*(used/limit) crosses a new
// multiple of 10 (i.e. every 10 percentage points).
const contextPercentStep = 10

// streamState tracks everything §4.7.1 needs across one submission's event
// stream: the current assistant message, its parts seen so far, and the
// context-usage watermark.
type streamState struct {
	sessionID string

	currentMessageID string
	model             string
	contextLimit      int
	contextPercent    int
	lastDecile        int

	parts      map[string]*agentproc.Part
	partOrder  []string
	flushed    map[string]bool
}

func newStreamState(sessionID string) *streamState {
	return &streamState{
		sessionID: sessionID,
		parts:     make(map[string]*agentproc.Part),
		flushed:   make(map[string]bool),
	}
}

func (s *streamState) upsertPart(p *agentproc.Part) {
	if _, seen := s.parts[p.ID]; !seen {
		s.partOrder = append(s.partOrder, p.ID)
	}
	s.parts[p.ID] = p
}

func (o *Orchestrator) handleEvent(ctx context.Context, client *agentproc.Client, req SubmitRequest, s *streamState, ev agentproc.Event) {
	if ev.SessionID != s.sessionID {
		return
	}

	switch ev.Type {
	case agentproc.EventMessageUpdated:
		o.handleMessageUpdated(ctx, client, req, s, ev)

	case agentproc.EventMessagePartUpdated:
		o.handlePartUpdated(ctx, req, s, ev)

	case agentproc.EventSessionError:
		o.postChunks(ctx, req.ThreadID, fmt.Sprintf("✗ opencode session error: %s", ev.Error))
		if req.TriggeringMsgID != "" {
			_ = o.Poster.React(ctx, req.ChannelID, req.TriggeringMsgID, "❌")
		}
		o.State.AbortSession(s.sessionID, bridgestate.AbortError)

	case agentproc.EventPermissionUpdated:
		o.handlePermissionUpdated(ctx, req, ev)

	case agentproc.EventPermissionReplied:
		o.State.ClearPendingPermission(req.ThreadID)
	}
}

func (o *Orchestrator) handleMessageUpdated(ctx context.Context, client *agentproc.Client, req SubmitRequest, s *streamState, ev agentproc.Event) {
	if ev.Message == nil || ev.Message.Role != "assistant" {
		return
	}
	s.currentMessageID = ev.Message.ID
	if ev.Message.Model != "" {
		s.model = ev.Message.Model
	}

	used := ev.Message.Tokens.Used()
	if used == 0 {
		return
	}

	if s.contextLimit == 0 {
		limit, err := client.ContextLimit(ctx, s.sessionID)
		if err != nil || limit == 0 {
			return
		}
		s.contextLimit = limit
	}

	decile := (10 * used) / s.contextLimit
	if decile > s.lastDecile {
		s.lastDecile = decile
		s.contextPercent = decile * contextPercentStep
		o.postChunks(ctx, req.ThreadID, fmt.Sprintf("◼︎ context usage %d%%", s.contextPercent))
	}
}

func (o *Orchestrator) handlePartUpdated(ctx context.Context, req SubmitRequest, s *streamState, ev agentproc.Event) {
	p := ev.Part
	if p == nil || p.MessageID != s.currentMessageID {
		return
	}
	s.upsertPart(p)

	switch p.Kind {
	case agentproc.PartStepStart:
		o.Poster.StartTyping(req.ThreadID)
		return
	case agentproc.PartStepFinish:
		o.flush(ctx, req, s)
		o.Poster.StopTyping(req.ThreadID)
		time.AfterFunc(typingRestartDelay, func() { o.Poster.StartTyping(req.ThreadID) })
		return
	case agentproc.PartTool:
		if p.ToolState == agentproc.ToolRunning && !s.flushed[p.ID] {
			o.emitEarly(ctx, req, s, p)
		}
		return
	case agentproc.PartReasoning:
		if strings.TrimSpace(p.Text) != "" && !s.flushed[p.ID] {
			o.emitEarly(ctx, req, s, p)
		}
		return
	}
}

// emitEarly posts a tool/reasoning part as soon as it reaches the
// triggering state, ahead of the step-finish flush; flush() will skip it
// later since it is marked flushed here.
func (o *Orchestrator) emitEarly(ctx context.Context, req SubmitRequest, s *streamState, p *agentproc.Part) {
	rendered := partfmt.Format(p)
	if rendered == "" {
		return
	}
	if o.emitPart(ctx, req.ThreadID, p.ID, rendered) {
		s.flushed[p.ID] = true
	}
}

// flush renders every part seen since the last flush, in Agent-reported
// order, skipping step-start/step-finish and anything already emitted
// early.
func (o *Orchestrator) flush(ctx context.Context, req SubmitRequest, s *streamState) {
	for _, id := range s.partOrder {
		if s.flushed[id] {
			continue
		}
		p := s.parts[id]
		if p.Kind == agentproc.PartStepStart || p.Kind == agentproc.PartStepFinish {
			s.flushed[id] = true
			continue
		}
		rendered := partfmt.Format(p)
		s.flushed[id] = true
		if rendered == "" {
			continue
		}
		o.emitPart(ctx, req.ThreadID, id, rendered)
	}
}

// emitPart posts rendered content for partID iff the part has not already
// been posted (the §3 part→message idempotence invariant), recording the
// mapping after a successful post.
func (o *Orchestrator) emitPart(ctx context.Context, threadID, partID, rendered string) bool {
	seen, err := o.Store.HasPart(ctx, partID)
	if err != nil || seen {
		return false
	}

	ids := o.postChunks(ctx, threadID, rendered)
	for _, msgID := range ids {
		_ = o.Store.PutPartMessage(ctx, partID, msgID, threadID)
	}
	return len(ids) > 0
}

func (o *Orchestrator) handlePermissionUpdated(ctx context.Context, req SubmitRequest, ev agentproc.Event) {
	if ev.Permission == nil {
		return
	}
	perm := ev.Permission

	body := fmt.Sprintf("⚠️ **Permission Required**\ntype: %s\ntitle: %s", perm.Type, perm.Title)
	if perm.Pattern != "" {
		body += fmt.Sprintf("\npattern: %s", perm.Pattern)
	}
	body += "\nreply with `/accept`, `/accept-always`, or `/reject`"

	ids := o.postChunks(ctx, req.ThreadID, body)
	var msgID string
	if len(ids) > 0 {
		msgID = ids[0]
	}

	o.State.SetPendingPermission(req.ThreadID, bridgestate.PendingPermission{
		PermissionID:     perm.ID,
		SessionID:        perm.SessionID,
		Type:             perm.Type,
		Title:            perm.Title,
		Pattern:          perm.Pattern,
		Directory:        perm.Directory,
		DiscordMessageID: msgID,
	})
}
