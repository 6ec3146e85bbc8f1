// Package bridgestate groups every process-wide, in-memory registry the
// bridge's main loop owns: live Agent servers, per-session cancellation
// handles, per-guild voice workers, and per-thread pending permissions.
// Each registry has a single writer (the main loop); voice workers consult
// the voice registry via message passing rather than touching it directly.
package bridgestate

import (
	"context"
	"sync"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
)

// AbortReason explains why a cancellation handle was aborted. Each reason
// carries meaning for the orchestrator: "new request" suppresses the
// completion footer, "finished" emits it, "error" and "user abort" are
// terminal for that session bridge but the Agent session itself survives.
type AbortReason string

const (
	AbortNewRequest AbortReason = "new request"
	AbortFinished   AbortReason = "finished"
	AbortError      AbortReason = "error"
	AbortUser       AbortReason = "user abort"
)

// CancelHandle is one session's in-flight cancellation token. Every
// outbound Agent call for that session carries ctx; Abort cancels it and
// records why.
type CancelHandle struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	reason AbortReason
	done   bool
}

// NewCancelHandle creates a handle whose context is a child of parent.
func NewCancelHandle(parent context.Context) *CancelHandle {
	ctx, cancel := context.WithCancel(parent)
	return &CancelHandle{ctx: ctx, cancel: cancel}
}

// Context returns the handle's context, to be threaded through every
// outbound Agent call for the owning session.
func (h *CancelHandle) Context() context.Context { return h.ctx }

// Abort cancels the handle's context and records reason, if it has not
// already been aborted. Safe to call more than once; only the first call's
// reason sticks.
func (h *CancelHandle) Abort(reason AbortReason) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return
	}
	h.done = true
	h.reason = reason
	h.cancel()
}

// Reason returns the recorded abort reason and whether the handle has been
// aborted at all.
func (h *CancelHandle) Reason() (AbortReason, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reason, h.done
}

// Aborted reports whether the handle has been aborted.
func (h *CancelHandle) Aborted() bool {
	_, done := h.Reason()
	return done
}

// PendingPermission is the single pending permission tracked for a thread.
type PendingPermission struct {
	PermissionID     string
	SessionID        string
	Type             string
	Title            string
	Pattern          string
	Directory        string
	DiscordMessageID string
}

// VoiceState is the per-guild voice worker bookkeeping the main loop holds;
// the actual audio pipeline runs in internal/voice and reaches into this
// only through State's accessor methods.
type VoiceState struct {
	GuildID string
	Active  bool
}

// State is the single owned value grouping every process-wide registry.
// Every map has exactly one writer: the main loop goroutine.
type State struct {
	mu      sync.Mutex
	cancels map[string]*CancelHandle     // sessionID -> handle
	pending map[string]PendingPermission // threadID -> permission
	voices  map[string]*VoiceState       // guildID -> voice worker state

	Supervisor *agentproc.Supervisor
}

// New constructs an empty State around the given supervisor.
func New(sup *agentproc.Supervisor) *State {
	return &State{
		cancels:    make(map[string]*CancelHandle),
		pending:    make(map[string]PendingPermission),
		voices:     make(map[string]*VoiceState),
		Supervisor: sup,
	}
}

// Supersede installs a fresh cancellation handle for sessionID, aborting
// any existing one with reason "new request" first. Returns the fresh
// handle and whether a previous handle existed (callers use this to decide
// whether to apply the 200ms debounce delay).
func (s *State) Supersede(ctx context.Context, sessionID string) (handle *CancelHandle, hadPrevious bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.cancels[sessionID]; ok {
		prev.Abort(AbortNewRequest)
		hadPrevious = true
	}

	handle = NewCancelHandle(ctx)
	s.cancels[sessionID] = handle
	return handle, hadPrevious
}

// Finish aborts the session's current handle with reason, but only if
// handle is still the one registered (a superseded handle calling Finish
// should not clobber whatever superseded it).
func (s *State) Finish(sessionID string, handle *CancelHandle, reason AbortReason) {
	s.mu.Lock()
	cur, ok := s.cancels[sessionID]
	if ok && cur == handle {
		delete(s.cancels, sessionID)
	}
	s.mu.Unlock()

	handle.Abort(reason)
}

// CancelHandleFor returns the currently registered handle for a session,
// if any.
func (s *State) CancelHandleFor(sessionID string) (*CancelHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.cancels[sessionID]
	return h, ok
}

// AbortSession aborts the session's current handle (if any) with reason
// and removes it from the registry.
func (s *State) AbortSession(sessionID string, reason AbortReason) {
	s.mu.Lock()
	h, ok := s.cancels[sessionID]
	if ok {
		delete(s.cancels, sessionID)
	}
	s.mu.Unlock()

	if ok {
		h.Abort(reason)
	}
}

// SetPendingPermission records the single pending permission for a thread,
// replacing any previous one.
func (s *State) SetPendingPermission(threadID string, p PendingPermission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[threadID] = p
}

// PendingPermissionFor returns the pending permission for a thread, if any.
func (s *State) PendingPermissionFor(threadID string) (PendingPermission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[threadID]
	return p, ok
}

// ClearPendingPermission removes the pending permission for a thread.
func (s *State) ClearPendingPermission(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, threadID)
}

// SetVoiceActive records a guild's voice worker as running.
func (s *State) SetVoiceActive(guildID string) *VoiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := &VoiceState{GuildID: guildID, Active: true}
	s.voices[guildID] = v
	return v
}

// VoiceStateFor returns the voice worker state for a guild, if any.
func (s *State) VoiceStateFor(guildID string) (*VoiceState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voices[guildID]
	return v, ok
}

// ClearVoiceState removes a guild's voice worker bookkeeping, e.g. once the
// worker has fully torn down.
func (s *State) ClearVoiceState(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.voices, guildID)
}

// ActiveVoiceGuilds returns every guild id currently holding a voice
// worker, for parallel shutdown cleanup.
func (s *State) ActiveVoiceGuilds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	guilds := make([]string, 0, len(s.voices))
	for g := range s.voices {
		guilds = append(guilds, g)
	}
	return guilds
}
