package discordbridge

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func newTestPoster(t *testing.T) *Poster {
	t.Helper()
	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("discordgo.New() error = %v", err)
	}
	return NewPoster(session)
}

func TestStartTyping_SecondCallForSameThreadIsNoOp(t *testing.T) {
	p := newTestPoster(t)
	p.StartTyping("thread-1")
	p.StartTyping("thread-1")

	p.mu.Lock()
	n := len(p.typing)
	p.mu.Unlock()
	if n != 1 {
		t.Fatalf("len(typing) = %d, want 1", n)
	}
	p.StopTyping("thread-1")
}

func TestStopTyping_RemovesEntry(t *testing.T) {
	p := newTestPoster(t)
	p.StartTyping("thread-1")
	p.StopTyping("thread-1")

	p.mu.Lock()
	_, active := p.typing["thread-1"]
	p.mu.Unlock()
	if active {
		t.Fatalf("expected thread-1 removed from typing map after StopTyping")
	}
}

func TestStopTyping_UnknownThreadIsSafe(t *testing.T) {
	p := newTestPoster(t)
	p.StopTyping("never-started")
}
