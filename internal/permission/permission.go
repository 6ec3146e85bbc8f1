// Package permission resolves the single pending permission tracked per
// thread: accept/accept-always/reject, plus the thread-scoped abort and
// share commands that travel the same path.
package permission

import (
	"context"
	"fmt"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
)

// ErrNoPending is returned when a resolution command arrives for a thread
// with no pending permission entry.
var ErrNoPending = fmt.Errorf("permission: no pending permission for this thread")

// Mediator resolves pending permissions against a directory's Agent
// client.
type Mediator struct {
	State *bridgestate.State
}

// New constructs a Mediator sharing state with the rest of the bridge.
func New(state *bridgestate.State) *Mediator {
	return &Mediator{State: state}
}

// Resolve applies scope to the thread's pending permission, clearing it on
// success, and returns a short confirmation string to reply with.
func (m *Mediator) Resolve(ctx context.Context, threadID string, appID string, scope agentproc.PermissionScope) (string, error) {
	pending, ok := m.State.PendingPermissionFor(threadID)
	if !ok {
		return "", ErrNoPending
	}

	client, err := m.State.Supervisor.ClientFor(ctx, pending.Directory, appID)
	if err != nil {
		return "", fmt.Errorf("permission: get agent client: %w", err)
	}

	if err := client.ReplyPermission(ctx, pending.SessionID, pending.PermissionID, scope); err != nil {
		return "", fmt.Errorf("permission: reply: %w", err)
	}

	m.State.ClearPendingPermission(threadID)

	switch scope {
	case agentproc.PermissionOnce:
		return "✅ Permission accepted", nil
	case agentproc.PermissionAlways:
		return "✅ Permission accepted (auto-approve similar requests)", nil
	case agentproc.PermissionReject:
		return "🚫 Permission rejected", nil
	}
	return "done", nil
}

// Abort aborts the session's cancellation handle with reason "user abort"
// and tells the Agent to abort the session.
func (m *Mediator) Abort(ctx context.Context, sessionID, directory, appID string) error {
	m.State.AbortSession(sessionID, bridgestate.AbortUser)

	client, err := m.State.Supervisor.ClientFor(ctx, directory, appID)
	if err != nil {
		return fmt.Errorf("permission: get agent client: %w", err)
	}
	return client.AbortSession(ctx, sessionID)
}

// Share calls the Agent's share endpoint and returns the reply text.
func (m *Mediator) Share(ctx context.Context, sessionID, directory, appID string) (string, error) {
	client, err := m.State.Supervisor.ClientFor(ctx, directory, appID)
	if err != nil {
		return "", fmt.Errorf("permission: get agent client: %w", err)
	}

	url, err := client.ShareSession(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("permission: share: %w", err)
	}
	return fmt.Sprintf("🔗 **Session shared:** %s", url), nil
}
