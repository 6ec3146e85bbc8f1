// Package store implements the bridge's relational persistence layer: a
// single pure-Go SQLite file holding thread/session bindings, the
// part-to-message dedupe mapping, bot credentials, and channel/directory
// bindings. All writes are upserts; the schema is created on first open.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// ChannelType distinguishes the two channels created per project.
type ChannelType string

const (
	ChannelText  ChannelType = "text"
	ChannelVoice ChannelType = "voice"
)

// Store owns the single SQLite connection for the process.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the fixed per-user database file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".remote-vibe")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: create data dir: %w", err)
	}
	return filepath.Join(dir, "bridge.db"), nil
}

// Open opens (creating if absent) the SQLite file at dbPath and ensures the
// schema exists. A single connection is used so writes serialize through
// one goroutine-safe handle.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS thread_sessions (
			thread_id  TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS part_messages (
			part_id    TEXT PRIMARY KEY,
			message_id TEXT NOT NULL,
			thread_id  TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bot_tokens (
			app_id     TEXT PRIMARY KEY,
			token      TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channel_directories (
			channel_id   TEXT PRIMARY KEY,
			directory    TEXT NOT NULL,
			channel_type TEXT NOT NULL,
			created_at   INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bot_api_keys (
			app_id      TEXT PRIMARY KEY,
			primary_key TEXT NOT NULL,
			fallback_key TEXT,
			created_at  INTEGER NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}
	return nil
}

// PutThreadSession records the thread→session binding. Immutable once
// written in practice (callers only write it once per thread), but the
// statement itself is an upsert for restart-safety.
func (s *Store) PutThreadSession(ctx context.Context, threadID, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO thread_sessions (thread_id, session_id, created_at) VALUES (?, ?, ?)`,
		threadID, sessionID, time.Now().Unix(),
	)
	return err
}

// SessionForThread returns the bound session id, or ok=false if the thread
// has no binding.
func (s *Store) SessionForThread(ctx context.Context, threadID string) (sessionID string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT session_id FROM thread_sessions WHERE thread_id = ?`, threadID)
	if err := row.Scan(&sessionID); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return sessionID, true, nil
}

// DeleteThreadSession removes a stale binding (e.g. the session was not
// found by the Agent anymore).
func (s *Store) DeleteThreadSession(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM thread_sessions WHERE thread_id = ?`, threadID)
	return err
}

// HasPart reports whether a part id has already been emitted, i.e. a row
// exists in part_messages. This is the authoritative dedupe source; any
// in-memory cache is just an accelerator in front of it.
func (s *Store) HasPart(ctx context.Context, partID string) (bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT 1 FROM part_messages WHERE part_id = ?`, partID)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PutPartMessage records that partID was emitted as discordMessageID in
// threadID. Always called after a successful Discord post.
func (s *Store) PutPartMessage(ctx context.Context, partID, messageID, threadID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO part_messages (part_id, message_id, thread_id, created_at) VALUES (?, ?, ?, ?)`,
		partID, messageID, threadID, time.Now().Unix(),
	)
	return err
}

// PutBotToken upserts the token for an app id.
func (s *Store) PutBotToken(ctx context.Context, appID, token string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO bot_tokens (app_id, token, created_at) VALUES (?, ?, ?)`,
		appID, token, time.Now().Unix(),
	)
	return err
}

// BotToken returns the token registered for appID.
func (s *Store) BotToken(ctx context.Context, appID string) (token string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT token FROM bot_tokens WHERE app_id = ?`, appID)
	if err := row.Scan(&token); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return token, true, nil
}

// PutChannelDirectory binds a Discord channel to a project directory.
func (s *Store) PutChannelDirectory(ctx context.Context, channelID, directory string, ct ChannelType) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO channel_directories (channel_id, directory, channel_type, created_at) VALUES (?, ?, ?, ?)`,
		channelID, directory, string(ct), time.Now().Unix(),
	)
	return err
}

// ChannelDirectory is one row of the channel_directories table.
type ChannelDirectory struct {
	ChannelID string
	Directory string
	Type      ChannelType
}

// ChannelDirectory looks up the binding for one channel.
func (s *Store) ChannelDirectory(ctx context.Context, channelID string) (ChannelDirectory, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel_id, directory, channel_type FROM channel_directories WHERE channel_id = ?`, channelID)
	var cd ChannelDirectory
	var ct string
	if err := row.Scan(&cd.ChannelID, &cd.Directory, &ct); err != nil {
		if err == sql.ErrNoRows {
			return ChannelDirectory{}, false, nil
		}
		return ChannelDirectory{}, false, err
	}
	cd.Type = ChannelType(ct)
	return cd, true, nil
}

// DeleteChannelDirectory removes a stale binding, e.g. when the channel id
// is no longer present in the guild.
func (s *Store) DeleteChannelDirectory(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM channel_directories WHERE channel_id = ?`, channelID)
	return err
}

// BoundDirectories lists every directory bound to some channel, across all
// rows regardless of which app owns the channel (used when deciding which
// known projects are "not yet bound" for the add-project autocomplete).
func (s *Store) BoundDirectories(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT directory FROM channel_directories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bound := make(map[string]bool)
	for rows.Next() {
		var dir string
		if err := rows.Scan(&dir); err != nil {
			return nil, err
		}
		bound[dir] = true
	}
	return bound, rows.Err()
}

// AllChannelDirectories lists every channel→directory binding, used by
// add-project to reconcile stale rows against what the guild actually has.
func (s *Store) AllChannelDirectories(ctx context.Context) ([]ChannelDirectory, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id, directory, channel_type FROM channel_directories`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChannelDirectory
	for rows.Next() {
		var cd ChannelDirectory
		var ct string
		if err := rows.Scan(&cd.ChannelID, &cd.Directory, &ct); err != nil {
			return nil, err
		}
		cd.Type = ChannelType(ct)
		out = append(out, cd)
	}
	return out, rows.Err()
}

// APIKeys is one app's stored provider keys.
type APIKeys struct {
	Primary  string
	Fallback string
}

// PutAPIKeys upserts an app's provider keys. Fallback may be empty.
func (s *Store) PutAPIKeys(ctx context.Context, appID string, keys APIKeys) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO bot_api_keys (app_id, primary_key, fallback_key, created_at) VALUES (?, ?, ?, ?)`,
		appID, keys.Primary, keys.Fallback, time.Now().Unix(),
	)
	return err
}

// APIKeys returns the provider keys registered for appID.
func (s *Store) APIKeys(ctx context.Context, appID string) (APIKeys, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT primary_key, fallback_key FROM bot_api_keys WHERE app_id = ?`, appID)
	var keys APIKeys
	var fallback sql.NullString
	if err := row.Scan(&keys.Primary, &fallback); err != nil {
		if err == sql.ErrNoRows {
			return APIKeys{}, false, nil
		}
		return APIKeys{}, false, err
	}
	keys.Fallback = fallback.String
	return keys, true, nil
}
