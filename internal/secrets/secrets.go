// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads proxy credentials from a directory of
// plain-text files so they can stay out of the config file. Each file
// is one secret: the filename is the key and the trimmed contents are
// the value.
//
// Recognized key files: proxy-user, proxy-password.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soultoolman/sci-dl/pkg/types"
)

// Keys recognized by Apply.
const (
	KeyProxyUser     = "proxy-user"
	KeyProxyPassword = "proxy-password"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty
// map. Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", entry.Name(), err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[entry.Name()] = value
		}
	}

	return secrets, nil
}

// Apply fills empty proxy credential fields in cfg from loaded
// secrets. Values already present in the config win.
func Apply(cfg *types.Config, secrets map[string]string) {
	if cfg.Proxy.User == "" {
		cfg.Proxy.User = secrets[KeyProxyUser]
	}
	if cfg.Proxy.Password == "" {
		cfg.Proxy.Password = secrets[KeyProxyPassword]
	}
}
