package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// StoredTokens is the token material an Agent persists between runs.
type StoredTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"` // access token expiry

	// Device is the device request still waiting for approval, if any.
	Device *StoredDevice `json:"device,omitempty"`
}

// StoredDevice is a pending device request, kept so a later run can resume
// polling with the same user code.
type StoredDevice struct {
	DeviceCode              string    `json:"device_code"`
	UserCode                string    `json:"user_code"`
	VerificationURI         string    `json:"verification_uri"`
	VerificationURIComplete string    `json:"verification_uri_complete,omitempty"`
	Interval                int       `json:"interval"`
	ExpiresAt               time.Time `json:"expires_at"`
}

func (t *StoredTokens) clone() *StoredTokens {
	c := *t
	if t.Device != nil {
		d := *t.Device
		c.Device = &d
	}
	return &c
}

// TokenStore persists tokens. Load returns (nil, nil) when nothing is stored.
type TokenStore interface {
	Load() (*StoredTokens, error)
	Save(*StoredTokens) error
	Clear() error
}

// FileTokenStore keeps tokens in a JSON file only the owning user can read.
// The directory is created 0700 and the file written 0600 through an atomic
// rename, so a crash never leaves a half written file behind.
type FileTokenStore struct {
	Path string
}

// DefaultTokenPath is $XDG_CONFIG_HOME/searchlab/tokens.json or the platform
// equivalent.
func DefaultTokenPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "searchlab", "tokens.json"), nil
}

func (f *FileTokenStore) Load() (*StoredTokens, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("authsdk: read token file: %w", err)
	}

	var t StoredTokens
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("authsdk: decode token file: %w", err)
	}
	return &t, nil
}

func (f *FileTokenStore) Save(t *StoredTokens) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("authsdk: create token dir: %w", err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	// CreateTemp opens with 0600.
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("authsdk: create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("authsdk: write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("authsdk: sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("authsdk: replace token file: %w", err)
	}
	return nil
}

func (f *FileTokenStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("authsdk: remove token file: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps tokens in process memory only.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens *StoredTokens
}

func (m *MemoryTokenStore) Load() (*StoredTokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return nil, nil
	}
	return m.tokens.clone(), nil
}

func (m *MemoryTokenStore) Save(t *StoredTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t.clone()
	return nil
}

func (m *MemoryTokenStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}
