package speech_to_text

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"hello-whisper/log_mel"
	. "hello-whisper/logging"
)

type whisperCppLoader struct {
	cfg *Config
	fs  afero.Fs
}

func newWhisperCppLoader(cfg *Config) (*whisperCppLoader, error) {
	if cfg.WhisperCpp.ModelsDir == "" {
		return nil, fmt.Errorf("whisper.cpp models directory not configured")
	}

	return &whisperCppLoader{cfg: cfg, fs: cfg.FileSys}, nil
}

func (l *whisperCppLoader) AvailableModels() []string {
	return CatalogNames()
}

// Downloaded reports, per catalog name, whether its file is present.
func (l *whisperCppLoader) Downloaded() map[string]bool {
	out := make(map[string]bool, len(Catalog))
	for i := range Catalog {
		out[Catalog[i].Name] = IsModelDownloaded(l.fs, l.cfg.WhisperCpp.ModelsDir, &Catalog[i])
	}

	return out
}

func (l *whisperCppLoader) LoadModel(ctx context.Context, name string) (Model, error) {
	path, m, err := l.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	L_debug("stt: loading whisper.cpp model", "name", m.Name, "path", path)

	return openWhisperCpp(path, m, l.cfg)
}

// resolve returns the local path of the model file, downloading it first
// when it is missing and downloads are allowed.
func (l *whisperCppLoader) resolve(ctx context.Context, name string) (string, *CatalogEntry, error) {
	m, err := LookupModel(name)
	if err != nil {
		return "", nil, err
	}

	dir := l.cfg.WhisperCpp.ModelsDir

	if IsModelDownloaded(l.fs, dir, m) {
		return filepath.Join(dir, m.File), m, nil
	}

	if l.cfg.WhisperCpp.NoDownload {
		return "", nil, fmt.Errorf("%w: %s not found in %s", ErrModelNotDownloaded, m.File, dir)
	}

	path, err := DownloadModel(ctx, l.fs, l.cfg.WhisperCpp.HTTPClient, m, dir, l.cfg.WhisperCpp.Progress)
	if err != nil {
		return "", nil, fmt.Errorf("download %s: %w", m.Name, err)
	}

	return path, m, nil
}

// decodeLanguage is the language handed to whisper.cpp for decoding. Its
// default params decode as English, so multilingual models need "auto"
// spelled out to detect the language themselves.
func decodeLanguage(configured string, multilingual bool) string {
	if configured != "" {
		return configured
	}

	if multilingual {
		return "auto"
	}

	return ""
}

// melInput returns the slice to hand to Whisper_set_mel. The binding passes
// len(data) to whisper.cpp as the frame count and the C side copies
// frames*nMels floats, so the slice is cut to NFrames over the same backing
// array that holds the full matrix.
func melInput(mel *log_mel.Spectrogram) ([]float32, error) {
	if mel == nil || mel.NMels <= 0 || mel.NFrames <= 0 {
		return nil, fmt.Errorf("empty spectrogram")
	}

	if len(mel.Data) != mel.NMels*mel.NFrames {
		return nil, fmt.Errorf("spectrogram has %d values, expected %dx%d", len(mel.Data), mel.NMels, mel.NFrames)
	}

	return mel.Data[:mel.NFrames], nil
}
