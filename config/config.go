// Package config loads settings from defaults, an optional TOML or YAML
// file and a .env file. Command-line flags are merged on top by the caller.
package config

import (
	"fmt"
	"slices"
	"strings"

	"dario.cat/mergo"

	"hello-whisper/logging"
	"hello-whisper/speech_to_text"
	"hello-whisper/transcription"
)

type Config struct {
	Provider     string `toml:"provider" yaml:"provider"`
	Model        string `toml:"model" yaml:"model"`
	ModelsDir    string `toml:"models_dir" yaml:"models_dir"`
	Language     string `toml:"language" yaml:"language"`
	Threads      uint   `toml:"threads" yaml:"threads"`
	TopLanguages int    `toml:"top_languages" yaml:"top_languages"`
	NoDownload   bool   `toml:"no_download" yaml:"no_download"`
	LogLevel     string `toml:"log_level" yaml:"log_level"`

	OpenAI OpenAIConfig `toml:"openai" yaml:"openai"`
	Google GoogleConfig `toml:"google" yaml:"google"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key" yaml:"api_key"`
	BaseURL string `toml:"base_url" yaml:"base_url"`
}

type GoogleConfig struct {
	LanguageCode    string `toml:"language_code" yaml:"language_code"`
	CredentialsFile string `toml:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `toml:"endpoint" yaml:"endpoint"`
}

// Default returns the settings used when nothing else is configured.
// Model is left empty so the provider's own default applies.
func Default() *Config {
	return &Config{
		Provider:     speech_to_text.ProviderWhisperCpp,
		ModelsDir:    "~/" + baseDirName + "/models",
		TopLanguages: transcription.DefaultTopLanguages,
		LogLevel:     logging.DefaultOptions().Level,
	}
}

// Merge copies every non-zero field of src over c.
func (c *Config) Merge(src *Config) error {
	if src == nil {
		return nil
	}

	if err := mergo.Merge(c, src, mergo.WithOverride); err != nil {
		return fmt.Errorf("merge config: %w", err)
	}

	return nil
}

// ModelName returns the configured model or the provider default.
func (c *Config) ModelName() string {
	if c.Model != "" {
		return c.Model
	}

	return speech_to_text.DefaultModelName(c.Provider)
}

// Validate rejects settings no provider can run with.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))

	if !slices.Contains(speech_to_text.Providers, c.Provider) {
		return fmt.Errorf("unknown provider %q (expected one of %s)", c.Provider, strings.Join(speech_to_text.Providers, ", "))
	}

	if c.TopLanguages <= 0 {
		return fmt.Errorf("top_languages must be positive, got %d", c.TopLanguages)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if c.Provider == speech_to_text.ProviderWhisperCpp && c.ModelsDir == "" {
		return fmt.Errorf("models_dir is required for %s", c.Provider)
	}

	return nil
}

// STT converts the settings into the speech_to_text configuration.
func (c *Config) STT() *speech_to_text.Config {
	return &speech_to_text.Config{
		Provider: c.Provider,
		Language: c.Language,
		WhisperCpp: speech_to_text.WhisperCppConfig{
			ModelsDir:  c.ModelsDir,
			Threads:    c.Threads,
			NoDownload: c.NoDownload,
		},
		OpenAI: speech_to_text.OpenAIConfig{
			APIKey:  c.OpenAI.APIKey,
			BaseURL: c.OpenAI.BaseURL,
		},
		Google: speech_to_text.GoogleConfig{
			LanguageCode:    c.Google.LanguageCode,
			CredentialsFile: c.Google.CredentialsFile,
			Endpoint:        c.Google.Endpoint,
		},
	}
}
