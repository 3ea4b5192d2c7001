package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// BaseDir returns ~/.hello-whisper.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, baseDirName), nil
}

// ExpandTilde expands a path that starts with ~ to the user's home directory.
// Returns the path unchanged if it doesn't start with ~.
func ExpandTilde(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if len(path) == 1 {
		return home, nil
	}

	return filepath.Join(home, path[1:]), nil
}

// ExpandPaths expands ~ in every path setting.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.ModelsDir, &c.Google.CredentialsFile} {
		expanded, err := ExpandTilde(*p)
		if err != nil {
			return err
		}

		*p = expanded
	}

	return nil
}
