// AngelaMos | 2026
// session.go

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/carterperez-dev/mediahub/internal/auth"
)

var ErrNoSession = errors.New("no saved session; run login first")

// Session is the caller's authenticated state. It is passed explicitly to
// every authorized call; nothing about it is global.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      auth.UserResponse `json:"user"`
}

func sessionFrom(resp *auth.AuthResponse) *Session {
	return &Session{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		User:      resp.User,
	}
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || s.Token == "" || !now.Before(s.ExpiresAt)
}

func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-chosen session file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Token == "" {
		return nil, ErrNoSession
	}

	return &s, nil
}

// Save writes the session readable by the owner only.
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}
