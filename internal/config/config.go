// Package config loads the bridge's own settings (bot identity, provider
// keys, behavior tunables). This is distinct from internal/store, which
// holds the relational per-channel/per-thread/per-part bindings.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the bridge's settings file shape.
type Config struct {
	Discord     DiscordConfig    `toml:"discord"`
	Agent       AgentConfig      `toml:"agent"`
	Transcribe  TranscribeConfig `toml:"transcribe"`
	Realtime    RealtimeConfig   `toml:"realtime"`
	ManagedRole string           `toml:"managed_role"`
}

// DiscordConfig holds bot identity.
type DiscordConfig struct {
	AppID   string `toml:"app_id"`
	Token   string `toml:"token"`
	GuildID string `toml:"guild_id"` // empty registers commands globally
}

// AgentConfig controls how the per-directory Agent servers are launched.
type AgentConfig struct {
	Binary         string `toml:"binary"`
	PortRangeStart int    `toml:"port_range_start"`
	PortRangeEnd   int    `toml:"port_range_end"`
}

// TranscribeConfig holds primary/fallback speech-to-text credentials.
type TranscribeConfig struct {
	PrimaryAPIKey    string `toml:"primary_api_key"`
	PrimaryEndpoint  string `toml:"primary_endpoint"`
	FallbackAPIKey   string `toml:"fallback_api_key"`
	FallbackEndpoint string `toml:"fallback_endpoint"`
	LanguageHint     string `toml:"language_hint"`
}

// RealtimeConfig holds the realtime voice model credentials.
type RealtimeConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
}

// Default returns a Config with every tunable default applied.
func Default() Config {
	return Config{
		Agent: AgentConfig{
			Binary:         "opencode",
			PortRangeStart: 41000,
			PortRangeEnd:   41999,
		},
		Realtime: RealtimeConfig{
			Model: "gpt-4o-realtime-preview",
		},
		Transcribe: TranscribeConfig{
			PrimaryEndpoint:  "https://api.openai.com/v1/audio/transcriptions",
			FallbackEndpoint: "https://api.deepgram.com/v1/listen",
		},
		ManagedRole: "remote-vibe",
	}
}

// Load reads config: defaults -> TOML file (if present) -> env vars (env
// wins). A missing file is not an error; an unreadable-but-present file is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = "remote-vibe.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, err
		}
	} else if !os.IsNotExist(err) {
		return Config{}, err
	}

	if v := os.Getenv("REMOTE_VIBE_DISCORD_APP_ID"); v != "" {
		cfg.Discord.AppID = v
	}
	if v := os.Getenv("REMOTE_VIBE_DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("REMOTE_VIBE_DISCORD_GUILD_ID"); v != "" {
		cfg.Discord.GuildID = v
	}
	if v := os.Getenv("REMOTE_VIBE_TRANSCRIBE_PRIMARY_KEY"); v != "" {
		cfg.Transcribe.PrimaryAPIKey = v
	}
	if v := os.Getenv("REMOTE_VIBE_TRANSCRIBE_FALLBACK_KEY"); v != "" {
		cfg.Transcribe.FallbackAPIKey = v
	}
	if v := os.Getenv("REMOTE_VIBE_REALTIME_API_KEY"); v != "" {
		cfg.Realtime.APIKey = v
	}

	return cfg, nil
}
