package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const stateFileName = "state.yaml"

// State is the single local slot the client keeps between runs. UID and
// ResumeToken outlive a logout so the device keeps its principal.
type State struct {
	DisplayName string `yaml:"display_name"`
	Emoji       string `yaml:"emoji,omitempty"`
	UID         string `yaml:"uid,omitempty"`
	ResumeToken string `yaml:"resume_token,omitempty"`
}

// StateFile reads and writes State as YAML at a fixed path.
type StateFile struct {
	mu   sync.Mutex
	path string
}

// DefaultStatePath returns ~/.config/friendmap/state.yaml (or the platform
// equivalent).
func DefaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "friendmap", stateFileName), nil
}

func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

func (f *StateFile) Path() string {
	return f.path
}

// Load returns the stored state. A missing file is an empty state.
func (f *StateFile) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	content, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read state file %q: %w", f.path, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return State{}, nil
	}

	var st State
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&st); err != nil {
		return State{}, fmt.Errorf("parse state file %q: %w", f.path, err)
	}
	st.DisplayName = strings.TrimSpace(st.DisplayName)
	return st, nil
}

// Save replaces the stored state.
func (f *StateFile) Save(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Clear removes the stored state; clearing an absent file is not an error.
func (f *StateFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
