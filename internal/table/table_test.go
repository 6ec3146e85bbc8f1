package table

import (
	"strings"
	"testing"
)

func TestNormalize_SimpleTable(t *testing.T) {
	input := "before\n\n| A | BB |\n|---|----|\n| 1 | 22 |\n\nafter"
	got := Normalize(input)

	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Fatalf("non-table content dropped: %q", got)
	}
	if !strings.Contains(got, "```") {
		t.Fatalf("expected fenced monospace block, got %q", got)
	}
	if strings.Contains(got, "|") {
		t.Fatalf("pipes should be gone from normalized table: %q", got)
	}
}

func TestNormalize_PassesThroughNonTableContent(t *testing.T) {
	input := "# heading\n\nplain paragraph, no tables here."
	got := Normalize(input)
	if !strings.Contains(got, "plain paragraph") {
		t.Fatalf("expected content preserved, got %q", got)
	}
}

func TestNormalize_LinkCellBecomesURL(t *testing.T) {
	input := "| Name | Link |\n|---|---|\n| x | [go](https://go.dev) |\n"
	got := Normalize(input)
	if !strings.Contains(got, "https://go.dev") {
		t.Fatalf("expected link destination inlined, got %q", got)
	}
}
