package config

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	. "hello-whisper/logging"
)

const (
	baseDirName   = ".hello-whisper"
	localFileName = "hello-whisper"
)

// Load returns the defaults overlaid with the config file. An explicit path
// must exist; otherwise the first file found by SearchPaths is used, and
// having none is fine.
func Load(fs afero.Fs, explicit string) (*Config, error) {
	cfg := Default()

	path, err := findFile(fs, explicit)
	if err != nil {
		return nil, err
	}

	if path == "" {
		L_debug("config: no config file, using defaults")
		return cfg, nil
	}

	fileCfg, err := LoadFile(fs, path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Merge(fileCfg); err != nil {
		return nil, err
	}

	L_debug("config: loaded", "path", path)

	return cfg, nil
}

// LoadFile decodes one config file; the format follows the extension.
func LoadFile(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &Config{}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format (use .toml or .yaml)", path)
	}

	return cfg, nil
}

// SearchPaths lists the config locations tried when none is given, local
// directory first.
func SearchPaths() []string {
	paths := []string{
		localFileName + ".toml",
		localFileName + ".yaml",
	}

	if base, err := BaseDir(); err == nil {
		paths = append(paths,
			filepath.Join(base, "config.toml"),
			filepath.Join(base, "config.yaml"),
		)
	}

	return paths
}

func findFile(fs afero.Fs, explicit string) (string, error) {
	if explicit != "" {
		path, err := ExpandTilde(explicit)
		if err != nil {
			return "", err
		}

		if ok, _ := afero.Exists(fs, path); !ok {
			return "", fmt.Errorf("config file %s does not exist", path)
		}

		return path, nil
	}

	for _, path := range SearchPaths() {
		if ok, _ := afero.Exists(fs, path); ok {
			return path, nil
		}
	}

	return "", nil
}
