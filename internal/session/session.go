// Package session supplies authentication state to fetch adapters. The
// pipeline core never manages browser UI itself; it only consumes opaque
// handles produced here.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
)

// Handle is an opaque credential bundle associated with a browser
// identity. Persisted with restrictive permissions; adapters read it, the
// pipeline never rewrites it.
type Handle struct {
	OK        bool           `json:"ok"`
	Mode      string         `json:"session_mode"`
	Platform  model.Platform `json:"platform"`
	Browser   string         `json:"browser"`
	CreatedAt time.Time      `json:"created_at"`
	Cookies   CookieSource   `json:"cookies"`
	Notes     []string       `json:"notes,omitempty"`
}

// CookieSource tells an adapter where to find cookies: an exported
// Netscape-format file, or a live browser profile.
type CookieSource struct {
	Source             string `json:"source"` // cookies_file | browser_session
	CookiesFile        string `json:"cookies_file,omitempty"`
	CookiesFromBrowser string `json:"cookies_from_browser,omitempty"`
}

// Load reads a persisted handle. A missing file is not an error for the
// caller to act on; it just means no session yet.
func Load(path string) (*Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var handle Handle
	if err := json.Unmarshal(data, &handle); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &handle, nil
}

// Save persists the handle with 0600 permissions.
func Save(path string, handle *Handle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(handle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	// WriteFile perm only applies on create; enforce on reuse too.
	return os.Chmod(path, 0o600)
}
