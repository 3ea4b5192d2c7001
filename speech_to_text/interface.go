package speech_to_text

import (
	"context"
	"errors"

	"hello-whisper/log_mel"
)

var (
	ErrUnknownModel         = errors.New("unknown model")
	ErrDetectionUnsupported = errors.New("language detection is not supported")
	ErrModelNotDownloaded   = errors.New("model is not downloaded")
)

type Transcript struct {
	Text string
}

// LanguageProbability is one entry of a language detection result.
type LanguageProbability struct {
	Language    string
	Probability float32
}

// Model is a loaded speech model.
type Model interface {
	// Transcribe recognizes the speech in the audio file at path.
	Transcribe(ctx context.Context, path string) (Transcript, error)

	// DetectLanguage returns the most likely language and the probability
	// of every language the model knows, in the model's own order.
	DetectLanguage(ctx context.Context, mel *log_mel.Spectrogram) (string, []LanguageProbability, error)

	// MelBins is the mel bin count the model expects from log_mel.
	MelBins() int

	Name() string
	Close() error
}

// Loader lists and loads the models of one provider.
type Loader interface {
	AvailableModels() []string
	LoadModel(ctx context.Context, name string) (Model, error)
}
