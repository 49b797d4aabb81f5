package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/and161185/stockfolio/internal/api"
)

// session is the token pair persisted between invocations.
type session struct {
	Username         string    `json:"username"`
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

var errNoSession = errors.New("not logged in (run: sf login)")

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "stockfolio")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stockfolio")
}

func sessionPath() string { return filepath.Join(cfgDir(), "session.json") }

func (s *session) update(t *api.Tokens) {
	s.AccessToken = t.AccessToken
	s.RefreshToken = t.RefreshToken
	s.AccessExpiresAt = t.AccessExpiresAt
	s.RefreshExpiresAt = t.RefreshExpiresAt
}

func saveSession(s *session) error {
	if err := os.MkdirAll(cfgDir(), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := sessionPath() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, sessionPath())
}

func loadSession() (*session, error) {
	b, err := os.ReadFile(sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil, errNoSession
	}
	if err != nil {
		return nil, err
	}
	var s session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.AccessToken == "" && s.RefreshToken == "" {
		return nil, errNoSession
	}
	return &s, nil
}

func clearSession() error {
	err := os.Remove(sessionPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
