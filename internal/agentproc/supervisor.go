package agentproc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// maxRestarts bounds how many times an entry respawns after an unexpected
// exit before the supervisor gives up on that directory.
const maxRestarts = 5

// healthPollAttempts and healthPollInterval bound how long Supervisor waits
// for a freshly spawned Agent to answer its health endpoint.
const (
	healthPollAttempts = 30
	healthPollInterval = time.Second
)

// entry is one supervised Agent server process.
type entry struct {
	directory string
	appID     string
	port      int
	cmd       *exec.Cmd
	client    *Client
	retries   int
}

// Supervisor owns every per-directory Agent child process for the running
// bridge. One Supervisor per process; its map has a single writer (the
// main loop), matching the bridge's shared-resource policy.
type Supervisor struct {
	mu      sync.Mutex
	entries map[string]*entry

	binary     string
	portStart  int
	portEnd    int
	nextPort   int
	authKeys   func(appID string) (primary, fallback string)
}

// SupervisorOption configures a Supervisor at construction time.
type SupervisorOption func(*Supervisor)

// WithAuthKeys supplies a callback the supervisor uses to fetch provider
// keys to register with a freshly spawned Agent.
func WithAuthKeys(f func(appID string) (primary, fallback string)) SupervisorOption {
	return func(s *Supervisor) { s.authKeys = f }
}

// NewSupervisor constructs a Supervisor that spawns binary and allocates
// ports from [portStart, portEnd].
func NewSupervisor(binary string, portStart, portEnd int, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		entries:   make(map[string]*entry),
		binary:    binary,
		portStart: portStart,
		portEnd:   portEnd,
		nextPort:  portStart,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ErrAgentBinaryMissing is the fatal condition C6 raises when the Agent
// binary cannot be found on PATH.
type ErrAgentBinaryMissing struct {
	Binary string
}

func (e *ErrAgentBinaryMissing) Error() string {
	return fmt.Sprintf("agent binary %q not found on PATH — run the install wizard first", e.Binary)
}

// ClientFor returns the client handle for directory, spawning a fresh Agent
// server if none is running there yet.
func (s *Supervisor) ClientFor(ctx context.Context, directory, appID string) (*Client, error) {
	s.mu.Lock()
	if e, ok := s.entries[directory]; ok && s.alive(e) {
		s.mu.Unlock()
		return e.client, nil
	}
	s.mu.Unlock()

	return s.spawn(ctx, directory, appID)
}

func (s *Supervisor) alive(e *entry) bool {
	if e.cmd == nil || e.cmd.Process == nil {
		return false
	}
	return e.cmd.ProcessState == nil
}

func (s *Supervisor) spawn(ctx context.Context, directory, appID string) (*Client, error) {
	if _, err := exec.LookPath(s.binary); err != nil {
		return nil, &ErrAgentBinaryMissing{Binary: s.binary}
	}

	port := s.allocatePort()
	if err := writeAgentConfig(directory); err != nil {
		return nil, fmt.Errorf("agentproc: write agent config: %w", err)
	}

	cmd := exec.CommandContext(context.Background(), s.binary, "serve", "--port", fmt.Sprintf("%d", port))
	cmd.Dir = directory
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("agentproc: start agent: %w", err)
	}

	client := NewClient(fmt.Sprintf("http://127.0.0.1:%d", port))
	if err := s.waitHealthy(ctx, client); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("agentproc: agent never became healthy: %w", err)
	}

	if s.authKeys != nil {
		primary, fallback := s.authKeys(appID)
		if primary != "" {
			if err := client.RegisterProviderKeys(ctx, primary, fallback); err != nil {
				// Non-fatal: the agent is usable without provider keys
				// injected, individual prompts will just fail auth later.
				_ = err
			}
		}
	}

	e := &entry{directory: directory, appID: appID, port: port, cmd: cmd, client: client}

	s.mu.Lock()
	s.entries[directory] = e
	s.mu.Unlock()

	go s.watch(e)

	return client, nil
}

func (s *Supervisor) watch(e *entry) {
	err := e.cmd.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[e.directory]; !ok || cur != e {
		return
	}

	if err == nil {
		delete(s.entries, e.directory)
		return
	}

	e.retries++
	if e.retries >= maxRestarts {
		delete(s.entries, e.directory)
		return
	}

	go func() {
		_, err := s.spawn(context.Background(), e.directory, e.appID)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			delete(s.entries, e.directory)
			return
		}
		// Carry the retry count over to the respawned entry so the bound
		// holds across consecutive crashes.
		if cur, ok := s.entries[e.directory]; ok {
			cur.retries = e.retries
		}
	}()
}

func (s *Supervisor) waitHealthy(ctx context.Context, c *Client) error {
	for i := 0; i < healthPollAttempts; i++ {
		if err := c.Health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(healthPollInterval):
		}
	}
	return fmt.Errorf("health check timed out after %d attempts", healthPollAttempts)
}

func (s *Supervisor) allocatePort() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < (s.portEnd - s.portStart + 1); i++ {
		port := s.nextPort
		s.nextPort++
		if s.nextPort > s.portEnd {
			s.nextPort = s.portStart
		}
		if portFree(port) {
			return port
		}
	}
	return s.portStart
}

func portFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// Shutdown terminates every live entry with a polite signal.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.cmd != nil && e.cmd.Process != nil {
			_ = e.cmd.Process.Signal(os.Interrupt)
		}
	}
}

// agentConfig mirrors the subset of the Agent's own config file the
// supervisor needs to set per directory: disable language servers and
// formatters, and allow edit/bash/webfetch without interactive prompts
// (permission mediation happens in the bridge, not the Agent).
type agentConfig struct {
	LSP        bool              `yaml:"lsp"`
	Formatter  bool              `yaml:"formatter"`
	Permission map[string]string `yaml:"permission"`
}

func writeAgentConfig(directory string) error {
	cfg := agentConfig{
		LSP:       false,
		Formatter: false,
		Permission: map[string]string{
			"edit":     "allow",
			"bash":     "allow",
			"webfetch": "allow",
		},
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(directory, ".remote-vibe-agent.yaml"), data, 0o600)
}

// NewRequestID generates an id for a supervisor-issued request (health
// checks, key registration) so logs can correlate them.
func NewRequestID() string {
	return uuid.New().String()
}
