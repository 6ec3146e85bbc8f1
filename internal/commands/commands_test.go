package commands

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestSanitizeProjectName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My Cool Project", "my-cool-project"},
		{"  spaced  ", "spaced"},
		{"weird!!chars??", "weirdchars"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := sanitizeProjectName(tc.in); got != tc.want {
			t.Errorf("sanitizeProjectName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeProjectName_CapsAt100(t *testing.T) {
	long := ""
	for i := 0; i < 200; i++ {
		long += "a"
	}
	got := sanitizeProjectName(long)
	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
}

func TestNormalizePath_ExpandsHome(t *testing.T) {
	got, err := normalizePath("~/projects/foo")
	if err != nil {
		t.Fatalf("normalizePath() error = %v", err)
	}
	if got == "~/projects/foo" {
		t.Fatalf("expected ~ expanded, got %q", got)
	}
}

func TestNormalizePath_EmptyIsError(t *testing.T) {
	if _, err := normalizePath(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 3); got != "hel" {
		t.Fatalf("truncate() = %q, want %q", got, "hel")
	}
	if got := truncate("hi", 10); got != "hi" {
		t.Fatalf("truncate() = %q, want %q", got, "hi")
	}
}

func TestOptString_FindsNamedOption(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "other"},
		},
	}
	if got := optString(data, "prompt"); got != "" {
		t.Fatalf("optString() = %q, want empty for missing option", got)
	}
}
