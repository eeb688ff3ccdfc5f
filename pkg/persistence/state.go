package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/martd/martd-go/pkg/subscription"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// CursorState contains the resumable state of a subscriber.
type CursorState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// ClientID is the client identifier the tokens were acknowledged under.
	ClientID string `json:"client_id,omitempty"`

	// Server is the base URL the tokens belong to.
	Server string `json:"server,omitempty"`

	// Channels maps channel names to their last acknowledged cache token.
	Channels map[string]string `json:"channels,omitempty"`
}

// NewCursorState captures the cache tokens of channels.
// Channels without callbacks are kept too, so a channel that was
// unsubscribed interactively still resumes from its last token.
func NewCursorState(clientID, server string, channels []subscription.ChannelInfo) *CursorState {
	s := &CursorState{
		ClientID: clientID,
		Server:   server,
		Channels: make(map[string]string, len(channels)),
	}
	for _, ch := range channels {
		s.Channels[ch.Name] = ch.CacheToken
	}
	return s
}

// Token returns the saved cache token of channel.
func (s *CursorState) Token(channel string) (string, bool) {
	if s == nil {
		return "", false
	}
	token, ok := s.Channels[channel]
	return token, ok
}

// CursorStore manages persistence of cursor state to a JSON file.
type CursorStore struct {
	mu   sync.Mutex
	path string
}

// NewCursorStore creates a new cursor store.
func NewCursorStore(path string) *CursorStore {
	return &CursorStore{path: path}
}

// Path returns the state file path.
func (s *CursorStore) Path() string {
	return s.path
}

// Save persists the state to disk. The file is replaced atomically.
func (s *CursorStore) Save(state *CursorState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ensure parent directory exists
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	if state.SavedAt.IsZero() {
		state.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the state from disk.
// Returns nil, nil if the file doesn't exist (empty state).
func (s *CursorStore) Load() (*CursorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &CursorState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Version > StateVersion {
		return nil, fmt.Errorf("state file %s has version %d, newest supported is %d", s.path, state.Version, StateVersion)
	}

	return state, nil
}

// Clear removes the state file.
func (s *CursorStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
