package speech_to_text

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/afero"

	"hello-whisper/log_mel"
	. "hello-whisper/logging"
)

const openAIDefaultModel = openai.Whisper1

var openAIModels = []string{openai.Whisper1, "gpt-4o-transcribe", "gpt-4o-mini-transcribe"}

// openAILoader serves models from the OpenAI audio transcription API.
type openAILoader struct {
	client   *openai.Client
	fs       afero.Fs
	language string
}

func newOpenAILoader(cfg *Config) (*openAILoader, error) {
	if cfg.OpenAI.APIKey == "" {
		return nil, fmt.Errorf("openai API key not configured")
	}

	clientCfg := openai.DefaultConfig(cfg.OpenAI.APIKey)
	if cfg.OpenAI.BaseURL != "" {
		clientCfg.BaseURL = cfg.OpenAI.BaseURL
	}

	language := cfg.Language
	if language == "auto" {
		language = ""
	}

	return &openAILoader{
		client:   openai.NewClientWithConfig(clientCfg),
		fs:       cfg.FileSys,
		language: language,
	}, nil
}

func (l *openAILoader) AvailableModels() []string {
	return slices.Clone(openAIModels)
}

func (l *openAILoader) LoadModel(_ context.Context, name string) (Model, error) {
	if !slices.Contains(openAIModels, name) {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownModel, name, strings.Join(openAIModels, ", "))
	}

	L_debug("stt: openai model selected", "model", name)

	return &openAIModel{loader: l, name: name}, nil
}

type openAIModel struct {
	loader *openAILoader
	name   string
}

func (m *openAIModel) Transcribe(ctx context.Context, path string) (Transcript, error) {
	f, err := m.loader.fs.Open(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	L_debug("stt: openai transcribing", "file", path, "model", m.name)

	resp, err := m.loader.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    m.name,
		FilePath: filepath.Base(path),
		Reader:   f,
		Language: m.loader.language,
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("openai transcription: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	L_debug("stt: openai transcription complete", "length", len(text))

	return Transcript{Text: text}, nil
}

func (m *openAIModel) DetectLanguage(context.Context, *log_mel.Spectrogram) (string, []LanguageProbability, error) {
	return "", nil, fmt.Errorf("%w by the openai provider", ErrDetectionUnsupported)
}

func (m *openAIModel) MelBins() int {
	return log_mel.DefaultMels
}

func (m *openAIModel) Name() string {
	return m.name
}

func (m *openAIModel) Close() error {
	return nil
}
