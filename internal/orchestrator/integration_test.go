package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/store"
)

type fakePoster struct {
	mu       sync.Mutex
	messages []string
	nextID   int
}

func (p *fakePoster) PostMessage(ctx context.Context, threadID, content string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	p.messages = append(p.messages, content)
	return fmt.Sprintf("msg-%d", p.nextID), nil
}

func (p *fakePoster) React(ctx context.Context, channelID, messageID, emoji string) error { return nil }
func (p *fakePoster) StartTyping(threadID string)                                         {}
func (p *fakePoster) StopTyping(threadID string)                                           {}

func (p *fakePoster) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	copy(out, p.messages)
	return out
}

// newFakeAgent starts an HTTP+SSE server that creates one session and,
// once a prompt is submitted, streams events: a message.updated for the
// assistant message, one text part, then a step-finish, after which the
// stream ends.
func newFakeAgent(t *testing.T) (*httptest.Server, func()) {
	t.Helper()

	events := make(chan agentproc.Event, 16)

	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(agentproc.Session{ID: "sess-1", Title: "hi"})
			return
		}
		json.NewEncoder(w).Encode(agentproc.Session{ID: "sess-1", Title: "hi"})
	})
	mux.HandleFunc("/session/sess-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(agentproc.Session{ID: "sess-1", Title: "hi"})
	})
	mux.HandleFunc("/session/sess-1/message", func(w http.ResponseWriter, r *http.Request) {
		go func() {
			events <- agentproc.Event{
				Type: agentproc.EventMessageUpdated, SessionID: "sess-1",
				Message: &agentproc.Message{ID: "msg-a", Role: "assistant", Model: "test-model"},
			}
			events <- agentproc.Event{
				Type: agentproc.EventMessagePartUpdated, SessionID: "sess-1",
				Part: &agentproc.Part{ID: "part-1", MessageID: "msg-a", Kind: agentproc.PartText, Text: "hello there"},
			}
			events <- agentproc.Event{
				Type: agentproc.EventMessagePartUpdated, SessionID: "sess-1",
				Part: &agentproc.Part{ID: "part-2", MessageID: "msg-a", Kind: agentproc.PartStepFinish},
			}
			close(events)
		}()
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/session/sess-1/context", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"limit": 1000})
	})
	mux.HandleFunc("/event", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				data, _ := json.Marshal(ev)
				fmt.Fprintf(w, "data: %s\n\n", data)
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	})

	srv := httptest.NewServer(mux)
	return srv, func() { srv.Close() }
}

func TestSubmit_EmitsPartsAndFooterIdempotently(t *testing.T) {
	srv, cleanup := newFakeAgent(t)
	defer cleanup()

	dbPath := filepath.Join(t.TempDir(), "bridge.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	sup := agentproc.NewSupervisor("unused", 0, 0)
	state := bridgestate.New(sup)
	poster := &fakePoster{}

	o := New(st, state, poster, 0)

	// Bypass the supervisor (no real binary): call resolveSession and
	// runSubmission directly against a client pointed at the fake server,
	// exercising the same code paths Submit would.
	client := agentproc.NewClient(srv.URL)

	req := SubmitRequest{ThreadID: "thread-1", ChannelID: "chan-1", Directory: "/tmp/proj", Prompt: "do the thing"}

	sessionID, err := o.resolveSession(context.Background(), client, req)
	if err != nil || sessionID != "sess-1" {
		t.Fatalf("resolveSession() = %q, err=%v", sessionID, err)
	}

	handle, _ := state.Supersede(context.Background(), sessionID)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := o.runSubmission(ctx, client, sessionID, handle, req); err != nil {
		t.Fatalf("runSubmission() error = %v", err)
	}

	msgs := poster.snapshot()
	if len(msgs) == 0 {
		t.Fatalf("expected at least one posted message")
	}

	found := false
	for _, m := range msgs {
		if m == "hello there" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected text part rendered verbatim, got %v", msgs)
	}

	hasFooter := false
	for _, m := range msgs {
		if len(m) > 0 && m[0:1] == "_" {
			hasFooter = true
		}
	}
	if !hasFooter {
		t.Fatalf("expected a completion footer among %v", msgs)
	}

	has, err := st.HasPart(context.Background(), "part-1")
	if err != nil || !has {
		t.Fatalf("expected part-1 recorded in store, has=%v err=%v", has, err)
	}
}
