// Package localstate persists the client state that survives restarts: the
// auth token, the last-known user profile, and the theme preference.
// The state lives in ~/.config/timebank/state.toml.
package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// State is the on-disk document.
type State struct {
	Token string `toml:"token"`
	// User is the last-known profile as a JSON object.
	User  string `toml:"user"`
	Theme string `toml:"theme"`
}

const (
	defaultStatePath = "~/.config/timebank/state.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default state file path.
func DefaultPath() string {
	return defaultStatePath
}

// Store reads and writes the state file. It implements ledger.TokenSource
// and coordinator.Credentials.
type Store struct {
	path string

	mu    sync.RWMutex
	state State
}

// Open loads the state at path, or the default path when empty. A missing or
// unreadable file yields an empty state; only an unusable path is an error.
func Open(path string) (*Store, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	return &Store{path: resolved, state: load(resolved)}, nil
}

func load(path string) State {
	st := State{Theme: defaultTheme}
	raw, err := os.ReadFile(path)
	if err != nil {
		return st
	}
	if err := toml.Unmarshal(raw, &st); err != nil {
		return State{Theme: defaultTheme}
	}
	if strings.TrimSpace(st.Theme) == "" {
		st.Theme = defaultTheme
	}
	if st.User != "" && !json.Valid([]byte(st.User)) {
		st.User = ""
	}
	return st
}

// Path returns the resolved file path.
func (s *Store) Path() string { return s.path }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the stored bearer token, or "".
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// User returns the last-known profile, or nil.
func (s *Store) User() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == "" {
		return nil
	}
	return json.RawMessage(s.state.User)
}

// Theme returns the preferred theme name.
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Theme
}

// SaveAuth stores a fresh token together with the profile it belongs to.
func (s *Store) SaveAuth(token string, user json.RawMessage) error {
	return s.update(func(st *State) error {
		if strings.TrimSpace(token) == "" {
			return errors.New("token is empty")
		}
		st.Token = token
		return setUser(st, user)
	})
}

// SaveUser replaces the last-known profile.
func (s *Store) SaveUser(user json.RawMessage) error {
	return s.update(func(st *State) error { return setUser(st, user) })
}

// ClearAuth forgets the token and the profile. The theme is kept.
func (s *Store) ClearAuth() error {
	return s.update(func(st *State) error {
		st.Token = ""
		st.User = ""
		return nil
	})
}

// SetTheme stores the preferred theme.
func (s *Store) SetTheme(name string) error {
	return s.update(func(st *State) error {
		name = strings.TrimSpace(name)
		if name == "" {
			name = defaultTheme
		}
		st.Theme = name
		return nil
	})
}

func setUser(st *State, user json.RawMessage) error {
	if len(user) == 0 {
		st.User = ""
		return nil
	}
	if !json.Valid(user) {
		return errors.New("user is not valid json")
	}
	st.User = string(user)
	return nil
}

// update applies fn to a copy of the state and persists it. The in-memory
// state only changes when the write succeeds.
func (s *Store) update(fn func(*State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state
	if err := fn(&next); err != nil {
		return err
	}
	if err := write(s.path, next); err != nil {
		return err
	}
	s.state = next
	return nil
}

func write(path string, st State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	raw, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".state-*.toml")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultStatePath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
