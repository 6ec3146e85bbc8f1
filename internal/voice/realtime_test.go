package voice

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func TestAdaptServerEvent_AudioDelta(t *testing.T) {
	ev := serverEvent{Type: "response.audio.delta", Delta: base64.StdEncoding.EncodeToString([]byte("pcm"))}
	got := adaptServerEvent(ev)
	if got.Kind != ModelEventAudio || string(got.Audio) != "pcm" {
		t.Fatalf("adaptServerEvent() = %+v", got)
	}
}

func TestAdaptServerEvent_ToolCall(t *testing.T) {
	args, _ := json.Marshal(map[string]any{"message": "hi"})
	ev := serverEvent{Type: "response.function_call_arguments.done", CallID: "c1", Name: ToolSubmitMessage, Arguments: args}
	got := adaptServerEvent(ev)
	if got.Kind != ModelEventToolCall || got.Tool.Name != ToolSubmitMessage || got.Tool.Args["message"] != "hi" {
		t.Fatalf("adaptServerEvent() = %+v", got)
	}
}

func TestAdaptServerEvent_SpeechStoppedIsInterrupted(t *testing.T) {
	got := adaptServerEvent(serverEvent{Type: "input_audio_buffer.speech_stopped"})
	if got.Kind != ModelEventInterrupted {
		t.Fatalf("Kind = %v, want ModelEventInterrupted", got.Kind)
	}
}

func TestAdaptServerEvent_UnknownTypeIsZeroValue(t *testing.T) {
	got := adaptServerEvent(serverEvent{Type: "session.created"})
	if got.Kind != "" {
		t.Fatalf("Kind = %v, want empty for unhandled event types", got.Kind)
	}
}
