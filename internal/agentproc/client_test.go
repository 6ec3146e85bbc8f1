package agentproc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_CreateAndGetSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/session":
			json.NewEncoder(w).Encode(Session{ID: "sess-1", Title: "hello"})
		case r.Method == http.MethodGet && r.URL.Path == "/session/sess-1":
			json.NewEncoder(w).Encode(Session{ID: "sess-1", Title: "hello"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx := context.Background()

	sess, err := c.CreateSession(ctx, "hello")
	if err != nil || sess.ID != "sess-1" {
		t.Fatalf("CreateSession() = %+v, err=%v", sess, err)
	}

	got, err := c.GetSession(ctx, "sess-1")
	if err != nil || got.ID != "sess-1" {
		t.Fatalf("GetSession() = %+v, err=%v", got, err)
	}
}

func TestClient_GetSessionNotFoundIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if _, err := c.GetSession(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
}

func TestClient_SubscribeEventsDecodesStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "data: %s\n\n", `{"type":"message.updated","sessionID":"s1"}`)
		flusher.Flush()
		fmt.Fprintf(w, "data: %s\n\n", `{"type":"session.error","sessionID":"s1","error":"boom"}`)
		flusher.Flush()
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var events []Event
	err := c.SubscribeEvents(ctx, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("SubscribeEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}
	if events[0].Type != EventMessageUpdated || events[1].Type != EventSessionError {
		t.Fatalf("unexpected event types: %+v", events)
	}
	if events[1].Error != "boom" {
		t.Fatalf("Error = %q, want boom", events[1].Error)
	}
}

func TestClient_SubscribeEventsSilentOnCancelledContext(t *testing.T) {
	blockCh := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blockCh
	}))
	defer srv.Close()
	defer close(blockCh)

	c := NewClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.SubscribeEvents(ctx, func(Event) {}); err != nil {
		t.Fatalf("SubscribeEvents() on cancelled ctx error = %v, want nil", err)
	}
}
