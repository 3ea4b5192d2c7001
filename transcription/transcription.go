// Package transcription drives a speech model over one audio file: it loads
// the model once, prints the recognized text and, on request, the most
// likely spoken languages.
package transcription

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/spf13/afero"

	"hello-whisper/audio_file"
	"hello-whisper/log_mel"
	. "hello-whisper/logging"
	"hello-whisper/speech_to_text"
)

const DefaultTopLanguages = 3

var ErrModelFailure = errors.New("model failure")

// Result is what one Transcribe call produced. Languages is nil unless
// language detection was requested; otherwise it holds every language the
// model scored, most likely first.
type Result struct {
	Text      string
	Languages []speech_to_text.LanguageProbability
}

type Config struct {
	Loader    speech_to_text.Loader
	ModelName string

	// FileSys is read when language detection needs the raw samples.
	FileSys afero.Fs

	// Out receives the formatted result. Defaults to stdout.
	Out io.Writer

	// TopLanguages is how many languages are printed. Defaults to 3.
	TopLanguages int
}

type Orchestrator struct {
	loader    speech_to_text.Loader
	modelName string
	fs        afero.Fs
	out       io.Writer
	top       int
	styles    styles

	mu    sync.Mutex
	model speech_to_text.Model
}

func New(cfg *Config) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.Loader == nil {
		return nil, fmt.Errorf("loader is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("file system is nil")
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = "turbo"
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}

	top := cfg.TopLanguages
	if top <= 0 {
		top = DefaultTopLanguages
	}

	return &Orchestrator{
		loader:    cfg.Loader,
		modelName: modelName,
		fs:        cfg.FileSys,
		out:       out,
		top:       top,
		styles:    newStyles(out),
	}, nil
}

// Transcribe runs the model on the audio at path and prints the text, then
// the top languages when detectLanguage is set. Every failure that comes
// from the model, including a panic inside it, wraps ErrModelFailure.
func (o *Orchestrator) Transcribe(ctx context.Context, path string, detectLanguage bool) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: panic: %v", ErrModelFailure, r)
		}
	}()

	fmt.Fprintln(o.out, o.styles.progress.Render("Transcribing..."))

	model, err := o.loadModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrModelFailure, o.modelName, err)
	}

	transcript, err := model.Transcribe(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelFailure, err)
	}

	result = &Result{Text: transcript.Text}

	fmt.Fprintf(o.out, "\n%s %s\n", o.styles.label.Render("Text:"), transcript.Text)

	if !detectLanguage {
		return result, nil
	}

	languages, err := o.detectLanguage(ctx, model, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelFailure, err)
	}

	result.Languages = languages

	fmt.Fprintf(o.out, "\n%s\n", o.styles.label.Render("Detected languages:"))
	for _, line := range FormatLanguages(languages, o.top) {
		fmt.Fprintf(o.out, "  %s\n", line)
	}

	return result, nil
}

// Close releases the loaded model, if any.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.model == nil {
		return nil
	}

	err := o.model.Close()
	o.model = nil

	return err
}

func (o *Orchestrator) loadModel(ctx context.Context) (speech_to_text.Model, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.model != nil {
		return o.model, nil
	}

	L_debug("transcription: available models", "models", o.loader.AvailableModels())

	model, err := o.loader.LoadModel(ctx, o.modelName)
	if err != nil {
		return nil, err
	}

	o.model = model

	return model, nil
}

func (o *Orchestrator) detectLanguage(ctx context.Context, model speech_to_text.Model, path string) ([]speech_to_text.LanguageProbability, error) {
	samples, err := audio_file.Load(o.fs, path)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}

	mel, err := log_mel.Compute(samples, model.MelBins())
	if err != nil {
		return nil, fmt.Errorf("log-mel spectrogram: %w", err)
	}

	top, probs, err := model.DetectLanguage(ctx, mel)
	if err != nil {
		return nil, err
	}

	L_debug("transcription: language detected", "language", top, "candidates", len(probs))

	return SortLanguages(probs), nil
}

// SortLanguages returns probs ordered by probability, highest first. Equal
// probabilities keep their original order.
func SortLanguages(probs []speech_to_text.LanguageProbability) []speech_to_text.LanguageProbability {
	sorted := slices.Clone(probs)
	slices.SortStableFunc(sorted, func(a, b speech_to_text.LanguageProbability) int {
		return cmp.Compare(b.Probability, a.Probability)
	})

	return sorted
}

// FormatLanguages renders at most n entries as "en: 0.900 (90.0%)".
func FormatLanguages(sorted []speech_to_text.LanguageProbability, n int) []string {
	lines := make([]string, 0, min(n, len(sorted)))
	for _, lp := range sorted[:min(n, len(sorted))] {
		p := float64(lp.Probability)
		lines = append(lines, fmt.Sprintf("%s: %.3f (%.1f%%)", lp.Language, p, p*100))
	}

	return lines
}
