package speech_to_text

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/afero"
)

const (
	ProviderWhisperCpp = "whispercpp"
	ProviderOpenAI     = "openai"
	ProviderGoogle     = "google"
)

// Providers lists the supported provider names.
var Providers = []string{ProviderWhisperCpp, ProviderOpenAI, ProviderGoogle}

type Config struct {
	Provider string

	// FileSys holds audio files and, for whispercpp, the models directory.
	FileSys afero.Fs

	// Language is a language code such as "en", or "auto".
	Language string

	WhisperCpp WhisperCppConfig
	OpenAI     OpenAIConfig
	Google     GoogleConfig
}

type WhisperCppConfig struct {
	ModelsDir  string
	Threads    uint // 0 = library default
	NoDownload bool
	HTTPClient *http.Client

	// Progress receives model download notices. Nil keeps them in the log.
	Progress io.Writer
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty = api.openai.com
}

type GoogleConfig struct {
	LanguageCode    string // BCP-47, e.g. "en-US"
	CredentialsFile string // empty = application default credentials
	Endpoint        string
}

// DefaultModelName returns the model a provider loads when none is
// configured.
func DefaultModelName(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return openAIDefaultModel
	case ProviderGoogle:
		return googleDefaultModel
	default:
		return "turbo"
	}
}

// NewLoader returns the Loader for cfg.Provider.
func NewLoader(cfg *Config) (Loader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("file system is nil")
	}

	var (
		loader Loader
		err    error
	)

	switch cfg.Provider {
	case ProviderWhisperCpp, "":
		loader, err = newWhisperCppLoader(cfg)
	case ProviderOpenAI:
		loader, err = newOpenAILoader(cfg)
	case ProviderGoogle:
		loader, err = newGoogleLoader(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Provider, err)
	}

	return loader, nil
}
