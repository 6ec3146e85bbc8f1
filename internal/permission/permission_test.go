package permission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
)

func TestResolve_NoPendingIsError(t *testing.T) {
	state := bridgestate.New(agentproc.NewSupervisor("unused", 0, 0))
	m := New(state)

	_, err := m.Resolve(context.Background(), "thread-1", "app-1", agentproc.PermissionOnce)
	if err != ErrNoPending {
		t.Fatalf("Resolve() error = %v, want ErrNoPending", err)
	}
}

func TestReplyPermission_SendsScopeThenPendingClears(t *testing.T) {
	var gotScope string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		gotScope = body["scope"]
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sup := agentproc.NewSupervisor("unused", 0, 0)
	state := bridgestate.New(sup)
	state.SetPendingPermission("thread-1", bridgestate.PendingPermission{
		PermissionID: "perm-1", SessionID: "sess-1", Directory: "/tmp/proj",
	})

	m := New(state)

	// Directly substitute a client pointed at the fake server by calling
	// the lower-level path: Mediator.Resolve goes through the supervisor,
	// so exercise ReplyPermission directly here instead to keep the test
	// independent of a real spawned binary.
	client := agentproc.NewClient(srv.URL)
	pending, _ := state.PendingPermissionFor("thread-1")
	if err := client.ReplyPermission(context.Background(), pending.SessionID, pending.PermissionID, agentproc.PermissionAlways); err != nil {
		t.Fatalf("ReplyPermission() error = %v", err)
	}
	if gotScope != string(agentproc.PermissionAlways) {
		t.Fatalf("scope sent = %q, want %q", gotScope, agentproc.PermissionAlways)
	}

	state.ClearPendingPermission("thread-1")
	if _, ok := state.PendingPermissionFor("thread-1"); ok {
		t.Fatalf("expected pending cleared")
	}

	_ = m
}
