package partfmt

import (
	"strings"
	"testing"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
)

func TestFormat_Text(t *testing.T) {
	p := &agentproc.Part{Kind: agentproc.PartText, Text: "hello"}
	if got := Format(p); got != "hello" {
		t.Fatalf("Format() = %q, want %q", got, "hello")
	}
}

func TestFormat_ReasoningEmptyWhenBlank(t *testing.T) {
	p := &agentproc.Part{Kind: agentproc.PartReasoning, Text: "   "}
	if got := Format(p); got != "" {
		t.Fatalf("Format() = %q, want empty", got)
	}
}

func TestFormat_ReasoningMarkerWhenNonEmpty(t *testing.T) {
	p := &agentproc.Part{Kind: agentproc.PartReasoning, Text: "thinking hard"}
	if got := Format(p); got != "◼︎ thinking" {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormat_FileFallsBackToGenericName(t *testing.T) {
	p := &agentproc.Part{Kind: agentproc.PartFile}
	if got := Format(p); got != "📄 File" {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormat_StepPartsAreSilent(t *testing.T) {
	for _, k := range []agentproc.PartKind{agentproc.PartStepStart, agentproc.PartStepFinish, agentproc.PartPatch} {
		p := &agentproc.Part{Kind: k}
		if got := Format(p); got != "" {
			t.Errorf("Format(%s) = %q, want empty", k, got)
		}
	}
}

func TestFormat_ToolPendingIsSilent(t *testing.T) {
	p := &agentproc.Part{Kind: agentproc.PartTool, Tool: "bash", ToolState: agentproc.ToolPending}
	if got := Format(p); got != "" {
		t.Fatalf("Format() = %q, want empty", got)
	}
}

func TestFormat_ToolErrorIncludesSummary(t *testing.T) {
	p := &agentproc.Part{
		Kind:      agentproc.PartTool,
		Tool:      "edit",
		ToolState: agentproc.ToolError,
		ToolError: "permission denied",
		ToolInput: map[string]any{"filePath": "main.go"},
		ToolMeta:  map[string]any{"additions": 3, "removals": 1},
	}
	got := Format(p)
	if !strings.HasPrefix(got, "⨯ edit _permission denied_") {
		t.Fatalf("Format() = %q", got)
	}
	if !strings.Contains(got, "*main.go* (+3-1)") {
		t.Fatalf("Format() = %q, missing edit summary", got)
	}
}

func TestFormat_ToolOKEdit(t *testing.T) {
	p := &agentproc.Part{
		Kind:      agentproc.PartTool,
		Tool:      "edit",
		ToolState: agentproc.ToolOK,
		ToolTitle: "Edit file",
		ToolInput: map[string]any{"filePath": "x.go"},
		ToolMeta:  map[string]any{"additions": 10, "removals": 2},
	}
	got := Format(p)
	want := "◼︎ edit Edit file *x.go* (+10-2)"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_ToolOKWriteSingularLine(t *testing.T) {
	p := &agentproc.Part{
		Kind:      agentproc.PartTool,
		Tool:      "write",
		ToolState: agentproc.ToolOK,
		ToolInput: map[string]any{"filePath": "new.go"},
		ToolMeta:  map[string]any{"lines": 1},
	}
	got := Format(p)
	if !strings.Contains(got, "*new.go* (1 line)") {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormat_ToolOKWebfetchStripsScheme(t *testing.T) {
	p := &agentproc.Part{
		Kind:      agentproc.PartTool,
		Tool:      "webfetch",
		ToolState: agentproc.ToolOK,
		ToolInput: map[string]any{"url": "https://example.com/page"},
	}
	got := Format(p)
	if !strings.Contains(got, "*example.com/page*") {
		t.Fatalf("Format() = %q", got)
	}
	if strings.Contains(got, "https://") {
		t.Fatalf("scheme not stripped: %q", got)
	}
}

func TestFormat_ToolOKBashHasNoSummary(t *testing.T) {
	p := &agentproc.Part{
		Kind:      agentproc.PartTool,
		Tool:      "bash",
		ToolState: agentproc.ToolOK,
		ToolTitle: "ls -la",
	}
	got := Format(p)
	want := "◼︎ bash ls -la "
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_TodoWriteShowsFirstInProgress(t *testing.T) {
	p := &agentproc.Part{
		Kind: agentproc.PartTool,
		Tool: "todowrite",
		Todos: []agentproc.Todo{
			{Content: "done task", Status: "completed"},
			{Content: "working task", Status: "in_progress"},
			{Content: "later task", Status: "pending"},
		},
	}
	got := Format(p)
	want := "2. **working task**"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormat_TodoWriteNoInProgressIsEmpty(t *testing.T) {
	p := &agentproc.Part{
		Kind: agentproc.PartTool,
		Tool: "todowrite",
		Todos: []agentproc.Todo{
			{Content: "done task", Status: "completed"},
		},
	}
	if got := Format(p); got != "" {
		t.Fatalf("Format() = %q, want empty", got)
	}
}

func TestFormat_AgentAndSnapshot(t *testing.T) {
	a := &agentproc.Part{Kind: agentproc.PartAgent, AgentID: "sub-1"}
	if got := Format(a); got != "◼︎ agent sub-1" {
		t.Fatalf("Format() = %q", got)
	}
	s := &agentproc.Part{Kind: agentproc.PartSnapshot, SnapshotID: "snap-9"}
	if got := Format(s); got != "◼︎ snapshot snap-9" {
		t.Fatalf("Format() = %q", got)
	}
}
