//go:build cgo

package speech_to_text

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"

	whispercpp "github.com/ggerganov/whisper.cpp/bindings/go"
	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/spf13/afero"

	"hello-whisper/audio_file"
	"hello-whisper/log_mel"
	. "hello-whisper/logging"
)

type whisperCppModel struct {
	model    whisper.Model
	entry    *CatalogEntry
	path     string
	fs       afero.Fs
	language string
	threads  uint

	// detector is a low-level context for language detection, loaded on
	// first use.
	mu       sync.Mutex
	detector *whispercpp.Context
}

func openWhisperCpp(path string, m *CatalogEntry, cfg *Config) (Model, error) {
	model, err := whisper.New(path)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	L_info("stt: whisper.cpp model loaded", "name", m.Name, "multilingual", model.IsMultilingual())

	return &whisperCppModel{
		model:    model,
		entry:    m,
		path:     path,
		fs:       cfg.FileSys,
		language: cfg.Language,
		threads:  cfg.WhisperCpp.Threads,
	}, nil
}

func (w *whisperCppModel) Transcribe(ctx context.Context, path string) (Transcript, error) {
	samples, err := audio_file.Load(w.fs, path)
	if err != nil {
		return Transcript{}, fmt.Errorf("convert audio: %w", err)
	}

	L_debug("stt: audio converted", "samples", len(samples), "seconds", float64(len(samples))/audio_file.TargetSampleRate)

	// Create processing context
	wctx, err := w.model.NewContext()
	if err != nil {
		return Transcript{}, fmt.Errorf("create whisper context: %w", err)
	}

	if lang := decodeLanguage(w.language, w.model.IsMultilingual()); lang != "" {
		if err := wctx.SetLanguage(lang); err != nil {
			L_warn("stt: failed to set language", "language", lang, "error", err)
		}
	}

	if w.threads > 0 {
		wctx.SetThreads(w.threads)
	}

	// returning false stops the encoder
	keepGoing := func() bool {
		return ctx.Err() == nil
	}

	if err := wctx.Process(samples, keepGoing, nil, nil); err != nil {
		return Transcript{}, fmt.Errorf("whisper process: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}

	var texts []string
	for {
		segment, err := wctx.NextSegment()
		if err == io.EOF {
			break
		} else if err != nil {
			return Transcript{}, fmt.Errorf("get segment: %w", err)
		}

		L_trace("stt: segment", "start", segment.Start, "end", segment.End, "text", segment.Text)
		texts = append(texts, segment.Text)
	}

	text := joinSegments(texts)
	L_debug("stt: whisper.cpp transcription complete", "segments", len(texts), "length", len(text))

	return Transcript{Text: text}, nil
}

func (w *whisperCppModel) DetectLanguage(ctx context.Context, mel *log_mel.Spectrogram) (string, []LanguageProbability, error) {
	if !w.model.IsMultilingual() {
		return "", nil, fmt.Errorf("%w: %s is English-only", ErrDetectionUnsupported, w.entry.Name)
	}

	if mel == nil || mel.NMels != w.MelBins() {
		return "", nil, fmt.Errorf("model %s expects %d mel bins", w.entry.Name, w.MelBins())
	}

	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.detector == nil {
		w.detector = whispercpp.Whisper_init(w.path)
		if w.detector == nil {
			return "", nil, fmt.Errorf("init whisper context from %s", w.path)
		}
	}

	data, err := melInput(mel)
	if err != nil {
		return "", nil, err
	}

	if err := w.detector.Whisper_set_mel(data, mel.NMels); err != nil {
		return "", nil, fmt.Errorf("set mel: %w", err)
	}

	threads := int(w.threads)
	if threads <= 0 {
		threads = min(4, runtime.NumCPU())
	}

	probs, err := w.detector.Whisper_lang_auto_detect(0, threads)
	if err != nil {
		return "", nil, fmt.Errorf("detect language: %w", err)
	}

	out := make([]LanguageProbability, 0, len(probs))
	top, best := "", float32(-1)

	for id, p := range probs {
		lang := whispercpp.Whisper_lang_str(id)
		if lang == "" {
			continue
		}

		out = append(out, LanguageProbability{Language: lang, Probability: p})

		if p > best {
			top, best = lang, p
		}
	}

	L_debug("stt: language detected", "language", top, "probability", best)

	return top, out, nil
}

func (w *whisperCppModel) MelBins() int {
	return w.entry.MelBins
}

func (w *whisperCppModel) Name() string {
	return w.entry.Name
}

func (w *whisperCppModel) Close() error {
	L_debug("stt: closing whisper.cpp model", "name", w.entry.Name)

	w.mu.Lock()
	if w.detector != nil {
		w.detector.Whisper_free()
		w.detector = nil
	}
	w.mu.Unlock()

	return w.model.Close()
}
