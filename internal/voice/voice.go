// Package voice implements the realtime voice pipeline (C13): Opus decode,
// 48k-stereo-to-16k-mono downmix, 100ms framing into a realtime speech
// model, PCM-to-Opus re-encode on the way back, and a paced 20ms sender.
// Grounded on the connect/retry/send-pacing idiom of
// dgnsrekt-discorgeous-go's VoiceManager, generalized from a single
// send-only helper into a full-duplex worker with its own message-passing
// protocol, per the scheduling model's requirement that the voice worker
// never share memory with the main loop beyond transferred Opus bytes.
package voice

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/bridgestate"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/orchestrator"
)

const (
	maxConnectRetries  = 3
	connectRetryDelay  = time.Second
	voiceReadyTimeout  = 30 * time.Second
	voiceReadyPollTick = 100 * time.Millisecond
	rxSilenceTimeout   = 500 * time.Millisecond
	txFrameInterval    = 20 * time.Millisecond
	drainTimeout       = 2 * time.Second
)

// Session describes the project a voice worker is bound to.
type Session struct {
	GuildID   string
	ChannelID string // voice channel
	ThreadID  string // bound text channel/thread used for submitMessage posts
	Directory string
	AppID     string
	SessionID string // Agent session id the tool surface currently targets
}

// RealtimeModel is the external speech model's streaming interface: PCM in,
// PCM out, tool calls surfaced as events. Implementations adapt whatever
// vendor transport carries the realtime session (a websocket, typically);
// this package only depends on the shape.
type RealtimeModel interface {
	SendAudio(ctx context.Context, pcm16Mono16k []byte) error
	SendAudioStreamEnd(ctx context.Context) error
	SendText(ctx context.Context, text string) error
	SendToolResult(ctx context.Context, result ToolResult) error
	Recv(ctx context.Context) (ModelEvent, error)
	Close() error
}

// ModelEventKind enumerates the realtime model's outbound event shapes.
type ModelEventKind string

const (
	ModelEventAudio      ModelEventKind = "audio"       // PCM16LE mono 24k chunk
	ModelEventToolCall    ModelEventKind = "tool-call"
	ModelEventInterrupted ModelEventKind = "interrupted" // model reports it was cut off
	ModelEventTurnDone    ModelEventKind = "turn-done"
	ModelEventError       ModelEventKind = "error"
)

// ModelEvent is one event read off a RealtimeModel's Recv stream.
type ModelEvent struct {
	Kind  ModelEventKind
	Audio []byte
	Tool  ToolCall
	Err   error
}

// MessageKind enumerates the typed messages exchanged between the main
// loop and a voice worker. No shared memory crosses this boundary beyond
// the Opus packet bytes a message carries.
type MessageKind string

const (
	MsgInit              MessageKind = "init"
	MsgRealtimeInput      MessageKind = "realtime-input"       // incoming Opus packet from a Discord speaker
	MsgTextInput          MessageKind = "text-input"
	MsgInterrupt          MessageKind = "interrupt"
	MsgStop               MessageKind = "stop"
	MsgAssistantOpus      MessageKind = "assistant-opus-packet" // outbound Opus packet to Discord
	MsgStartSpeaking      MessageKind = "start-speaking"
	MsgStopSpeaking       MessageKind = "stop-speaking"
	MsgInterruptSpeaking  MessageKind = "interrupt-speaking"
	MsgToolCompleted      MessageKind = "tool-completed"
	MsgError              MessageKind = "error"
	MsgReady              MessageKind = "ready"
)

// Message is the single envelope type carried on the worker's channels.
type Message struct {
	Kind MessageKind

	UserID    string // speaking-start/input messages: the Discord speaker
	Opus      []byte
	Text      string
	Tool      ToolResult
	Err       error
}

// Worker runs one guild's voice pipeline as its own cooperative domain,
// communicating with the main loop exclusively through In/Out channels.
type Worker struct {
	session Session
	vc      *discordgo.VoiceConnection
	model   RealtimeModel
	sup     *agentproc.Supervisor
	orch    *orchestrator.Orchestrator
	state   *bridgestate.State

	codec *codec

	In  chan Message
	Out chan Message

	rxMu       sync.Mutex
	rxSessions map[string]uint64 // Discord user id -> current speaking-session counter
	rxTimers   map[string]*time.Timer
	rxFramer   *Framer

	txQueue chan []byte

	cancel context.CancelFunc
}

// NewWorker constructs a worker for one guild's voice connection. Connect
// must be called before Run.
func NewWorker(sess Session, model RealtimeModel, sup *agentproc.Supervisor, orch *orchestrator.Orchestrator, state *bridgestate.State) (*Worker, error) {
	c, err := newCodec()
	if err != nil {
		return nil, err
	}
	return &Worker{
		session:    sess,
		model:      model,
		sup:        sup,
		orch:       orch,
		state:      state,
		codec:      c,
		In:         make(chan Message, 64),
		Out:        make(chan Message, 64),
		rxSessions: make(map[string]uint64),
		rxTimers:   make(map[string]*time.Timer),
		rxFramer:   &Framer{},
		txQueue:    make(chan []byte, 64),
	}, nil
}

// Connect joins the guild's voice channel, retrying a bounded number of
// times before giving up, grounded on VoiceManager.Connect/connectOnce.
func (w *Worker) Connect(ctx context.Context, session *discordgo.Session) error {
	var lastErr error
	for attempt := 0; attempt < maxConnectRetries; attempt++ {
		vc, err := session.ChannelVoiceJoin(w.session.GuildID, w.session.ChannelID, false, true)
		if err == nil {
			if werr := w.waitForReady(ctx, vc); werr == nil {
				w.vc = vc
				return nil
			} else {
				lastErr = werr
				vc.Disconnect()
			}
		} else {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}
	return fmt.Errorf("voice: connect to guild %s after %d attempts: %w", w.session.GuildID, maxConnectRetries, lastErr)
}

func (w *Worker) waitForReady(ctx context.Context, vc *discordgo.VoiceConnection) error {
	readyCtx, cancel := context.WithTimeout(ctx, voiceReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(voiceReadyPollTick)
	defer ticker.Stop()
	for {
		if vc.Ready {
			return nil
		}
		select {
		case <-readyCtx.Done():
			return fmt.Errorf("voice: connection never became ready")
		case <-ticker.C:
		}
	}
}

// Run drives the worker's cooperative event loop until ctx is cancelled or
// a stop message arrives. Call in its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	defer w.cleanup()

	go w.sendLoop(runCtx)
	go w.modelRecvLoop(runCtx)

	w.Out <- Message{Kind: MsgReady}

	for {
		select {
		case <-runCtx.Done():
			return
		case msg := <-w.In:
			switch msg.Kind {
			case MsgStop:
				return
			case MsgRealtimeInput:
				w.handleRealtimeInput(runCtx, msg)
			case MsgTextInput:
				if err := w.model.SendText(runCtx, msg.Text); err != nil {
					w.Out <- Message{Kind: MsgError, Err: err}
				}
			case MsgInterrupt:
				w.handleInterrupt()
			}
		}
	}
}

// handleRealtimeInput runs one Opus packet through the RX pipeline: decode,
// downmix, frame, forward to the model. Frames from a stale speaking
// session are dropped; 500ms of silence from a user ends their session and
// (if still current) sends audioStreamEnd to the model.
func (w *Worker) handleRealtimeInput(ctx context.Context, msg Message) {
	w.rxMu.Lock()
	current, ok := w.rxSessions[msg.UserID]
	if !ok {
		current = 1
		w.rxSessions[msg.UserID] = current
	}
	w.rxMu.Unlock()

	pcm, err := w.codec.decode(msg.Opus)
	if err != nil {
		log.Printf("voice: decode opus: %v", err)
		return
	}

	mono16k := Downmix(pcm)
	for _, frame := range w.rxFramer.Write(mono16k) {
		if w.currentSession(msg.UserID) != current {
			continue // stale: a newer speaking-start superseded this session
		}
		if err := w.model.SendAudio(ctx, frame); err != nil {
			w.Out <- Message{Kind: MsgError, Err: err}
			return
		}
	}

	w.armSilenceTimer(ctx, msg.UserID, current)
}

func (w *Worker) currentSession(userID string) uint64 {
	w.rxMu.Lock()
	defer w.rxMu.Unlock()
	return w.rxSessions[userID]
}

// CurrentSpeakingSession exposes a user's current speaking-session counter,
// used by the caller to end a session with the counter value it started
// (e.g. on a Discord speaking-stop event with no explicit counter handle).
func (w *Worker) CurrentSpeakingSession(userID string) uint64 {
	return w.currentSession(userID)
}

// Session returns the project/guild binding this worker was constructed
// with.
func (w *Worker) Session() Session {
	return w.session
}

// armSilenceTimer (re)starts the per-user 500ms silence timer; firing ends
// the speaking session unless a newer one has already superseded it.
func (w *Worker) armSilenceTimer(ctx context.Context, userID string, sessionCounter uint64) {
	w.rxMu.Lock()
	if t, ok := w.rxTimers[userID]; ok {
		t.Stop()
	}
	w.rxTimers[userID] = time.AfterFunc(rxSilenceTimeout, func() {
		w.EndSpeakingSession(ctx, userID, sessionCounter)
	})
	w.rxMu.Unlock()
}

// StartSpeakingSession bumps a user's session counter, called by the
// caller (internal/discordbridge) on a Discord speaking-start event.
func (w *Worker) StartSpeakingSession(userID string) uint64 {
	w.rxMu.Lock()
	defer w.rxMu.Unlock()
	w.rxSessions[userID]++
	return w.rxSessions[userID]
}

// EndSpeakingSession flushes the framer and, if the given session counter
// is still current, tells the model the audio stream ended.
func (w *Worker) EndSpeakingSession(ctx context.Context, userID string, sessionCounter uint64) {
	w.rxFramer.Flush()
	if w.currentSession(userID) != sessionCounter {
		return
	}
	if err := w.model.SendAudioStreamEnd(ctx); err != nil {
		w.Out <- Message{Kind: MsgError, Err: err}
	}
}

// handleInterrupt clears the outbound queue and reports speaking stopped,
// per §4.13's TX pacing interrupt behavior.
func (w *Worker) handleInterrupt() {
	for {
		select {
		case <-w.txQueue:
		default:
			w.Out <- Message{Kind: MsgInterruptSpeaking}
			return
		}
	}
}

// modelRecvLoop reads events off the realtime model and turns them into
// outbound Opus packets, tool calls, or interrupt notices.
func (w *Worker) modelRecvLoop(ctx context.Context) {
	for {
		ev, err := w.model.Recv(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.Out <- Message{Kind: MsgError, Err: err}
			return
		}

		switch ev.Kind {
		case ModelEventAudio:
			for _, frame := range splitInto20ms(Upmix(ev.Audio)) {
				opus, err := w.codec.encode(frame)
				if err != nil {
					w.Out <- Message{Kind: MsgError, Err: err}
					continue
				}
				select {
				case w.txQueue <- opus:
				case <-ctx.Done():
					return
				}
			}
		case ModelEventToolCall:
			result := w.runTool(ctx, ev.Tool)
			w.completeTool(ctx, result)
		case ModelEventInterrupted:
			w.handleInterrupt()
		case ModelEventError:
			w.Out <- Message{Kind: MsgError, Err: ev.Err}
		}
	}
}

// completeTool sends the tool's result back to the model and, per §4.13,
// follows up with a back-channel system message summarizing the assistant's
// last response so the voice model can speak it.
func (w *Worker) completeTool(ctx context.Context, result ToolResult) {
	if err := w.model.SendToolResult(ctx, result); err != nil {
		w.Out <- Message{Kind: MsgError, Err: err}
		return
	}
	w.Out <- Message{Kind: MsgToolCompleted, Tool: result}

	if result.Err != nil || w.session.SessionID == "" {
		return
	}
	client, err := w.sup.ClientFor(ctx, w.session.Directory, w.session.AppID)
	if err != nil {
		return
	}
	msgs, err := client.SessionMessages(ctx, w.session.SessionID)
	if err != nil {
		return
	}
	if summary := lastAssistantSummary(msgs); summary != "" {
		_ = w.model.SendText(ctx, "[assistant response] "+summary)
	}
}

// sendLoop paces outbound Opus packets to the protocol's expected 20ms
// cadence via a rate.Limiter (one token per txFrameInterval, burst 1),
// toggling the voice connection's speaking indicator on start/stop,
// grounded on VoiceManager.SendAudio's ticker loop but generalized from a
// plain ticker to a limiter so pacing survives a queue that's briefly
// ahead or behind.
func (w *Worker) sendLoop(ctx context.Context) {
	limiter := rate.NewLimiter(rate.Every(txFrameInterval), 1)

	speaking := false
	for {
		if err := limiter.Wait(ctx); err != nil {
			if speaking && w.vc != nil {
				_ = w.vc.Speaking(false)
			}
			return
		}

		select {
		case packet := <-w.txQueue:
			if !speaking {
				speaking = true
				if w.vc != nil {
					_ = w.vc.Speaking(true)
				}
				w.Out <- Message{Kind: MsgStartSpeaking}
			}
			if w.vc != nil {
				select {
				case w.vc.OpusSend <- packet:
				case <-ctx.Done():
					return
				}
			}
		default:
			if speaking {
				speaking = false
				if w.vc != nil {
					_ = w.vc.Speaking(false)
				}
				w.Out <- Message{Kind: MsgStopSpeaking}
			}
		}
	}
}

// splitInto20ms slices a 48k-stereo PCM16LE buffer into Opus-ready 20ms
// frames (DiscordFrameSize samples per channel), dropping a trailing
// partial frame rather than encoding silence into it.
func splitInto20ms(pcm []byte) [][]byte {
	const frameBytes20ms = DiscordFrameSize * DiscordChannels * 2
	var frames [][]byte
	for off := 0; off+frameBytes20ms <= len(pcm); off += frameBytes20ms {
		frame := make([]byte, frameBytes20ms)
		copy(frame, pcm[off:off+frameBytes20ms])
		frames = append(frames, frame)
	}
	return frames
}

// cleanup closes the model session, drains the outbound queue with a
// bound, and destroys the voice connection, per §4.13's cleanup contract.
func (w *Worker) cleanup() {
	_ = w.model.Close()

	deadline := time.Now().Add(drainTimeout)
	for len(w.txQueue) > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if w.vc != nil {
		_ = w.vc.Disconnect()
	}
}

// OpusRecv exposes the underlying voice connection's inbound Opus channel so
// a caller can forward packets into In as MsgRealtimeInput messages. Returns
// nil if Connect has not completed yet.
func (w *Worker) OpusRecv() <-chan *discordgo.Packet {
	if w.vc == nil {
		return nil
	}
	return w.vc.OpusRecv
}

// Stop cancels the worker's run context so Run exits and its deferred
// cleanup runs; Stop itself returns at once without waiting for that.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
}
