package artifact

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ScriptStore saves captured script bodies under the script directory.
// Files are named after the last path segment of the script URL and
// always end in ".js", so the harvester finds them.
type ScriptStore struct {
	dir string
}

// Scripts returns the script store of the site.
func (l *Layout) Scripts() *ScriptStore {
	return &ScriptStore{dir: l.ScriptDir()}
}

// NewScriptStore returns a store writing to dir.
func NewScriptStore(dir string) *ScriptStore {
	return &ScriptStore{dir: dir}
}

// Dir returns the directory of the store.
func (s *ScriptStore) Dir() string {
	return s.dir
}

// Save writes body for scriptURL and returns the file path.
// Saving identical content again is a no-op. When another script already
// uses the name, a short hash of the URL is appended to the stem.
func (s *ScriptStore) Save(scriptURL string, body []byte) (string, error) {
	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create script directory: %w", err)
	}

	name := scriptName(scriptURL)
	target := filepath.Join(s.dir, name)

	existing, err := os.ReadFile(target) //nolint:gosec // path is built from a sanitized name
	switch {
	case err == nil && bytes.Equal(existing, body):
		return target, nil
	case err == nil:
		sum := sha256.Sum256([]byte(scriptURL))
		stem := strings.TrimSuffix(name, ".js")
		target = filepath.Join(s.dir, stem+"-"+hex.EncodeToString(sum[:4])+".js")
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to check script file: %w", err)
	}

	if err := os.WriteFile(target, body, 0600); err != nil {
		return "", fmt.Errorf("failed to write script: %w", err)
	}
	return target, nil
}

// scriptName derives a safe ".js" file name from a script URL.
func scriptName(scriptURL string) string {
	base := ""
	if u, err := url.Parse(scriptURL); err == nil {
		base = path.Base(u.Path)
	}
	if base == "" || base == "/" || base == "." {
		base = "script"
	}
	base = unsafeChars.ReplaceAllString(base, "_")
	if !strings.HasSuffix(strings.ToLower(base), ".js") {
		base += ".js"
	}
	return base
}
