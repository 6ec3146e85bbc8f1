// Package partfmt renders one typed Agent part into its Discord-ready
// one-line or multi-line text, or an empty string to suppress emission.
package partfmt

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/igoryan-dao/remote-vibe-bridge/internal/agentproc"
)

// Format renders a part the way §4.3 describes per part kind.
func Format(p *agentproc.Part) string {
	switch p.Kind {
	case agentproc.PartText:
		return p.Text

	case agentproc.PartReasoning:
		if strings.TrimSpace(p.Text) == "" {
			return ""
		}
		return "◼︎ thinking"

	case agentproc.PartFile:
		name := p.Filename
		if name == "" {
			name = "File"
		}
		return "📄 " + name

	case agentproc.PartStepStart, agentproc.PartStepFinish, agentproc.PartPatch:
		return ""

	case agentproc.PartAgent:
		return "◼︎ agent " + p.AgentID

	case agentproc.PartSnapshot:
		return "◼︎ snapshot " + p.SnapshotID

	case agentproc.PartTool:
		return formatTool(p)
	}

	return ""
}

func formatTool(p *agentproc.Part) string {
	switch p.ToolState {
	case agentproc.ToolPending, "":
		if p.Tool == "todowrite" {
			return formatTodoWrite(p)
		}
		return ""
	case agentproc.ToolError:
		return fmt.Sprintf("⨯ %s _%s_ %s", p.Tool, p.ToolError, toolSummary(p))
	case agentproc.ToolRunning, agentproc.ToolOK:
		if p.Tool == "todowrite" {
			return formatTodoWrite(p)
		}
		return fmt.Sprintf("◼︎ %s %s %s", p.Tool, p.ToolTitle, toolSummary(p))
	}
	return ""
}

func formatTodoWrite(p *agentproc.Part) string {
	for i, td := range p.Todos {
		if td.Status == "in_progress" {
			return fmt.Sprintf("%d. **%s**", i+1, td.Content)
		}
	}
	return ""
}

// toolSummary implements the per-tool summary rules of §4.3.
func toolSummary(p *agentproc.Part) string {
	switch p.Tool {
	case "edit":
		added, removed := intField(p.ToolMeta, "additions"), intField(p.ToolMeta, "removals")
		return fmt.Sprintf("*%s* (+%d-%d)", basename(stringField(p.ToolInput, "filePath")), added, removed)

	case "write":
		n := intField(p.ToolMeta, "lines")
		plural := "s"
		if n == 1 {
			plural = ""
		}
		return fmt.Sprintf("*%s* (%d line%s)", basename(stringField(p.ToolInput, "filePath")), n, plural)

	case "webfetch":
		return "*" + stripScheme(stringField(p.ToolInput, "url")) + "*"

	case "read", "list", "glob", "grep":
		subject := stringField(p.ToolInput, "filePath")
		if subject == "" {
			subject = stringField(p.ToolInput, "pattern")
		}
		if subject == "" {
			subject = stringField(p.ToolInput, "path")
		}
		return "*" + subject + "*"

	case "bash", "todoread", "todowrite":
		return ""

	case "task", "skill":
		desc := stringField(p.ToolInput, "description")
		if desc == "" {
			desc = stringField(p.ToolInput, "name")
		}
		return "_" + desc + "_"

	default:
		return inputKeyValuePairs(p.ToolInput)
	}
}

func inputKeyValuePairs(input map[string]any) string {
	if len(input) == 0 {
		return ""
	}
	var parts []string
	for k, v := range input {
		s := fmt.Sprintf("%v", v)
		if len(s) > 300 {
			s = s[:300]
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, s))
	}
	return strings.Join(parts, " ")
}

// basename trims a tool input path down to its filename, leaving an empty
// input empty rather than collapsing it to filepath.Base's "." placeholder.
func basename(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	if v, ok := m[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return 0
}

func stripScheme(url string) string {
	if i := strings.Index(url, "://"); i != -1 {
		return url[i+3:]
	}
	return url
}
