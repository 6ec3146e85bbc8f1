package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/config"
)

// realtimeEndpoint is the realtime speech model's websocket endpoint.
const realtimeEndpoint = "wss://api.openai.com/v1/realtime"

// RealtimeClient is the websocket-backed RealtimeModel implementation:
// PCM16LE mono audio and text are sent as input-buffer/conversation-item
// events, tool calls and output audio arrive as typed server events off the
// same socket. It satisfies the voice.RealtimeModel interface the worker
// depends on.
type RealtimeClient struct {
	conn   *websocket.Conn
	writeMu sync.Mutex
}

// DialRealtime opens the realtime session for the configured model.
func DialRealtime(ctx context.Context, cfg config.RealtimeConfig) (*RealtimeClient, error) {
	u := url.URL{Scheme: "wss", Host: "api.openai.com", Path: "/v1/realtime", RawQuery: "model=" + url.QueryEscape(cfg.Model)}
	_ = realtimeEndpoint // documents the canonical host; u repeats its host and path as literals

	header := http.Header{}
	header.Set("Authorization", "Bearer "+cfg.APIKey)
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return nil, fmt.Errorf("voice: dial realtime model: %w", err)
	}
	return &RealtimeClient{conn: conn}, nil
}

func (c *RealtimeClient) writeEvent(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

// SendAudio appends a PCM16LE mono 16k frame to the model's input buffer.
func (c *RealtimeClient) SendAudio(ctx context.Context, pcm16Mono []byte) error {
	return c.writeEvent(map[string]any{
		"type":  "input_audio_buffer.append",
		"audio": base64.StdEncoding.EncodeToString(pcm16Mono),
	})
}

// SendAudioStreamEnd commits the input buffer, signaling end-of-utterance.
func (c *RealtimeClient) SendAudioStreamEnd(ctx context.Context) error {
	return c.writeEvent(map[string]any{"type": "input_audio_buffer.commit"})
}

// SendText injects a text turn (used for the back-channel tool-completion
// summary) and asks the model to respond.
func (c *RealtimeClient) SendText(ctx context.Context, text string) error {
	if err := c.writeEvent(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type": "message",
			"role": "system",
			"content": []map[string]any{
				{"type": "input_text", "text": text},
			},
		},
	}); err != nil {
		return err
	}
	return c.writeEvent(map[string]any{"type": "response.create"})
}

// SendToolResult returns a tool call's output to the model and asks it to
// continue the turn.
func (c *RealtimeClient) SendToolResult(ctx context.Context, result ToolResult) error {
	output := result.Content
	if result.Err != nil {
		output = "error: " + result.Err.Error()
	}
	if err := c.writeEvent(map[string]any{
		"type": "conversation.item.create",
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": result.ID,
			"output":  output,
		},
	}); err != nil {
		return err
	}
	return c.writeEvent(map[string]any{"type": "response.create"})
}

// serverEvent is the superset of fields this client reads off the socket;
// unused fields are left zero-valued per event type.
type serverEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`

	CallID    string          `json:"call_id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Recv blocks for the next server event and adapts it to a ModelEvent.
func (c *RealtimeClient) Recv(ctx context.Context) (ModelEvent, error) {
	var ev serverEvent
	if err := c.conn.ReadJSON(&ev); err != nil {
		return ModelEvent{}, err
	}
	return adaptServerEvent(ev), nil
}

// adaptServerEvent maps one realtime-model server event to this package's
// ModelEvent shape, isolated from Recv so it's testable without a socket.
func adaptServerEvent(ev serverEvent) ModelEvent {
	switch ev.Type {
	case "response.audio.delta":
		audio, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			return ModelEvent{Kind: ModelEventError, Err: err}
		}
		return ModelEvent{Kind: ModelEventAudio, Audio: audio}

	case "response.function_call_arguments.done":
		var args map[string]any
		_ = json.Unmarshal(ev.Arguments, &args)
		return ModelEvent{Kind: ModelEventToolCall, Tool: ToolCall{ID: ev.CallID, Name: ev.Name, Args: args}}

	case "input_audio_buffer.speech_stopped":
		return ModelEvent{Kind: ModelEventInterrupted}

	case "response.done":
		return ModelEvent{Kind: ModelEventTurnDone}

	case "error":
		return ModelEvent{Kind: ModelEventError, Err: fmt.Errorf("voice: realtime model error event")}

	default:
		return ModelEvent{}
	}
}

// Close closes the underlying websocket connection.
func (c *RealtimeClient) Close() error {
	return c.conn.Close()
}
