package voice

import (
	"context"
	"testing"
	"time"
)

type fakeModel struct {
	streamEnded bool
	texts       []string
}

func (f *fakeModel) SendAudio(ctx context.Context, pcm []byte) error         { return nil }
func (f *fakeModel) SendAudioStreamEnd(ctx context.Context) error           { f.streamEnded = true; return nil }
func (f *fakeModel) SendText(ctx context.Context, text string) error        { f.texts = append(f.texts, text); return nil }
func (f *fakeModel) SendToolResult(ctx context.Context, r ToolResult) error { return nil }
func (f *fakeModel) Recv(ctx context.Context) (ModelEvent, error) {
	<-ctx.Done()
	return ModelEvent{}, ctx.Err()
}
func (f *fakeModel) Close() error { return nil }

func newTestWorker(t *testing.T, model RealtimeModel) *Worker {
	t.Helper()
	return &Worker{
		session:    Session{GuildID: "g1"},
		model:      model,
		rxSessions: make(map[string]uint64),
		rxTimers:   make(map[string]*time.Timer),
		rxFramer:   &Framer{},
		txQueue:    make(chan []byte, 8),
		Out:        make(chan Message, 8),
	}
}

func TestStartSpeakingSession_IncrementsPerCall(t *testing.T) {
	w := newTestWorker(t, &fakeModel{})
	if got := w.StartSpeakingSession("u1"); got != 1 {
		t.Fatalf("first StartSpeakingSession = %d, want 1", got)
	}
	if got := w.StartSpeakingSession("u1"); got != 2 {
		t.Fatalf("second StartSpeakingSession = %d, want 2", got)
	}
}

func TestEndSpeakingSession_SkipsWhenSuperseded(t *testing.T) {
	model := &fakeModel{}
	w := newTestWorker(t, model)

	first := w.StartSpeakingSession("u1")
	w.StartSpeakingSession("u1") // supersedes `first`

	w.EndSpeakingSession(context.Background(), "u1", first)
	if model.streamEnded {
		t.Fatalf("expected stale session's EndSpeakingSession not to send audioStreamEnd")
	}
}

func TestEndSpeakingSession_SendsStreamEndWhenCurrent(t *testing.T) {
	model := &fakeModel{}
	w := newTestWorker(t, model)

	current := w.StartSpeakingSession("u1")
	w.EndSpeakingSession(context.Background(), "u1", current)
	if !model.streamEnded {
		t.Fatalf("expected current session's EndSpeakingSession to send audioStreamEnd")
	}
}

func TestHandleInterrupt_DrainsQueueAndReportsInterrupted(t *testing.T) {
	w := newTestWorker(t, &fakeModel{})
	w.txQueue <- []byte("a")
	w.txQueue <- []byte("b")

	w.handleInterrupt()

	if len(w.txQueue) != 0 {
		t.Fatalf("expected txQueue drained, len = %d", len(w.txQueue))
	}
	select {
	case msg := <-w.Out:
		if msg.Kind != MsgInterruptSpeaking {
			t.Fatalf("Out message kind = %v, want MsgInterruptSpeaking", msg.Kind)
		}
	default:
		t.Fatalf("expected an Out message after handleInterrupt")
	}
}

func TestSplitInto20ms_DropsTrailingPartialFrame(t *testing.T) {
	frameBytes := DiscordFrameSize * DiscordChannels * 2
	pcm := make([]byte, frameBytes+frameBytes/2)
	frames := splitInto20ms(pcm)
	if len(frames) != 1 {
		t.Fatalf("len(frames) = %d, want 1", len(frames))
	}
	if len(frames[0]) != frameBytes {
		t.Fatalf("len(frames[0]) = %d, want %d", len(frames[0]), frameBytes)
	}
}
