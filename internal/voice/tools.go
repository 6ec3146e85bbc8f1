package voice

import (
	"context"
	"fmt"
	"strings"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/orchestrator"
	"github.com/igoryan-dao/remote-vibe-bridge/internal/partfmt"
)

// ToolCall is one function-call invocation the realtime model issues.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is what a tool call resolves to, handed back to the model as
// its function-call response.
type ToolResult struct {
	ID      string
	Name    string
	Content string
	Err     error
}

// Names of the seven functions exposed to the realtime model, grounded on
// §4.13's tool surface list.
const (
	ToolSubmitMessage       = "submitMessage"
	ToolCreateNewChat       = "createNewChat"
	ToolListChats           = "listChats"
	ToolReadSessionMessages = "readSessionMessages"
	ToolSearchFiles         = "searchFiles"
	ToolAbortChat           = "abortChat"
	ToolGetModels           = "getModels"
)

// runTool executes one tool call against the Agent (C6) through the
// orchestrator (C7), returning the textual result handed back to the model.
// Every branch delegates to an existing C6/C7 entry point rather than
// talking to the Agent directly, per §4.13.
func (w *Worker) runTool(ctx context.Context, call ToolCall) ToolResult {
	res := ToolResult{ID: call.ID, Name: call.Name}

	client, err := w.sup.ClientFor(ctx, w.session.Directory, w.session.AppID)
	if err != nil {
		res.Err = fmt.Errorf("voice: agent client: %w", err)
		return res
	}

	switch call.Name {
	case ToolSubmitMessage:
		prompt, _ := call.Args["message"].(string)
		err := w.orch.Submit(ctx, orchestrator.SubmitRequest{
			ThreadID:  w.session.ThreadID,
			ChannelID: w.session.ChannelID,
			Directory: w.session.Directory,
			AppID:     w.session.AppID,
			Prompt:    prompt,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.Content = "message submitted"

	case ToolCreateNewChat:
		title, _ := call.Args["title"].(string)
		sess, err := client.CreateSession(ctx, title)
		if err != nil {
			res.Err = err
			return res
		}
		w.session.SessionID = sess.ID
		res.Content = fmt.Sprintf("created chat %s", sess.ID)

	case ToolListChats:
		sessions, err := client.ListSessions(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		var b strings.Builder
		for _, s := range sessions {
			fmt.Fprintf(&b, "%s: %s\n", s.ID, s.Title)
		}
		res.Content = b.String()

	case ToolReadSessionMessages:
		sessionID, _ := call.Args["sessionID"].(string)
		if sessionID == "" {
			sessionID = w.session.SessionID
		}
		msgs, err := client.SessionMessages(ctx, sessionID)
		if err != nil {
			res.Err = err
			return res
		}
		res.Content = renderMessages(msgs)

	case ToolSearchFiles:
		query, _ := call.Args["query"].(string)
		files, err := client.ListFiles(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		var matches []string
		for _, f := range files {
			if query == "" || strings.Contains(strings.ToLower(f), strings.ToLower(query)) {
				matches = append(matches, f)
			}
		}
		res.Content = strings.Join(matches, "\n")

	case ToolAbortChat:
		sessionID := w.session.SessionID
		if err := client.AbortSession(ctx, sessionID); err != nil {
			res.Err = err
			return res
		}
		w.state.AbortSession(sessionID, "voice abort")
		res.Content = "chat aborted"

	case ToolGetModels:
		models, err := client.ListModels(ctx)
		if err != nil {
			res.Err = err
			return res
		}
		res.Content = strings.Join(models, ", ")

	default:
		res.Err = fmt.Errorf("voice: unknown tool %q", call.Name)
	}
	return res
}

// renderMessages renders a session's assistant-role parts as short markdown,
// used both for readSessionMessages results and the post-tool back-channel
// system message that lets the voice assistant speak what the coding agent
// wrote.
func renderMessages(msgs []agentproc.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Role != "assistant" {
			continue
		}
		for _, p := range m.Parts {
			if line := partfmt.Format(&p); line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

// lastAssistantSummary renders the most recent assistant message's parts,
// the back-channel content sent to the model after a tool completes.
func lastAssistantSummary(msgs []agentproc.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != "assistant" {
			continue
		}
		return renderMessages(msgs[i : i+1])
	}
	return ""
}
