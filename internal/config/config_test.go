package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Agent.Binary != "opencode" {
		t.Fatalf("Agent.Binary = %q, want default", cfg.Agent.Binary)
	}
	if cfg.ManagedRole != "remote-vibe" {
		t.Fatalf("ManagedRole = %q, want default", cfg.ManagedRole)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	content := `managed_role = "bridge-admin"

[discord]
app_id = "123"
token = "secret"

[agent]
binary = "my-agent"
port_range_start = 5000
port_range_end = 5100
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.AppID != "123" || cfg.Discord.Token != "secret" {
		t.Fatalf("Discord = %+v", cfg.Discord)
	}
	if cfg.Agent.Binary != "my-agent" || cfg.Agent.PortRangeStart != 5000 {
		t.Fatalf("Agent = %+v", cfg.Agent)
	}
	if cfg.ManagedRole != "bridge-admin" {
		t.Fatalf("ManagedRole = %q", cfg.ManagedRole)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.toml")
	content := "[discord]\napp_id = \"file-id\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	t.Setenv("REMOTE_VIBE_DISCORD_APP_ID", "env-id")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Discord.AppID != "env-id" {
		t.Fatalf("Discord.AppID = %q, want env override", cfg.Discord.AppID)
	}
}
