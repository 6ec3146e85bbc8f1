package discordbridge

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// typingInterval matches the orchestrator's own heartbeat period so a
// single StartTyping call keeps the indicator alive for as long as the
// orchestrator holds it open, per §4.7's "typing indicator heartbeat"
// requirement.
const typingInterval = 8 * time.Second

// Poster implements orchestrator.Poster against a live discordgo session,
// grounded on the teacher's Bot.SendMessage/SendTyping but generalized
// from a single ChannelTyping call into a cancellable heartbeat loop.
type Poster struct {
	session *discordgo.Session

	mu      sync.Mutex
	typing  map[string]context.CancelFunc
}

// NewPoster wraps a live session as an orchestrator.Poster.
func NewPoster(session *discordgo.Session) *Poster {
	return &Poster{session: session, typing: make(map[string]context.CancelFunc)}
}

// PostMessage sends content to a channel or thread, returning the new
// message's id.
func (p *Poster) PostMessage(ctx context.Context, threadID, content string) (string, error) {
	msg, err := p.session.ChannelMessageSend(threadID, content)
	if err != nil {
		return "", err
	}
	return msg.ID, nil
}

// React adds an emoji reaction to a message.
func (p *Poster) React(ctx context.Context, channelID, messageID, emoji string) error {
	return p.session.MessageReactionAdd(channelID, messageID, emoji)
}

// StartTyping begins a repeating typing indicator for threadID, refreshing
// every typingInterval until StopTyping is called. A second StartTyping for
// the same thread is a no-op: the existing heartbeat already covers it.
func (p *Poster) StartTyping(threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, active := p.typing[threadID]; active {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.typing[threadID] = cancel
	go p.typingLoop(ctx, threadID)
}

// StopTyping ends threadID's typing heartbeat, if one is running.
func (p *Poster) StopTyping(threadID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cancel, ok := p.typing[threadID]; ok {
		cancel()
		delete(p.typing, threadID)
	}
}

func (p *Poster) typingLoop(ctx context.Context, threadID string) {
	_ = p.session.ChannelTyping(threadID)
	ticker := time.NewTicker(typingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.session.ChannelTyping(threadID)
		}
	}
}
