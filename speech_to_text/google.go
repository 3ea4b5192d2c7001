package speech_to_text

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/spf13/afero"
	"google.golang.org/api/option"

	"hello-whisper/audio_file"
	"hello-whisper/log_mel"
	. "hello-whisper/logging"
)

const googleDefaultModel = "default"

var googleModels = []string{googleDefaultModel, "latest_long", "latest_short", "command_and_search", "phone_call", "video"}

// googleLoader serves models from Google Cloud Speech-to-Text. The client is
// created on the first LoadModel and shared by every model it returns.
type googleLoader struct {
	cfg GoogleConfig
	fs  afero.Fs

	mu     sync.Mutex
	client *speech.Client
}

func newGoogleLoader(cfg *Config) (*googleLoader, error) {
	g := cfg.Google
	if g.LanguageCode == "" {
		g.LanguageCode = "en-US"
		if cfg.Language != "" && cfg.Language != "auto" {
			g.LanguageCode = cfg.Language
		}
	}

	return &googleLoader{cfg: g, fs: cfg.FileSys}, nil
}

func (l *googleLoader) AvailableModels() []string {
	return slices.Clone(googleModels)
}

func (l *googleLoader) LoadModel(ctx context.Context, name string) (Model, error) {
	if !slices.Contains(googleModels, name) {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownModel, name, strings.Join(googleModels, ", "))
	}

	client, err := l.speechClient(ctx)
	if err != nil {
		return nil, err
	}

	L_info("stt: google provider initialized", "model", name, "language", l.cfg.LanguageCode)

	return &googleModel{loader: l, client: client, name: name}, nil
}

func (l *googleLoader) speechClient(ctx context.Context) (*speech.Client, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client != nil {
		return l.client, nil
	}

	var opts []option.ClientOption
	if l.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(l.cfg.CredentialsFile))
	}

	if l.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(l.cfg.Endpoint))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	l.client = client

	return client, nil
}

func (l *googleLoader) release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.client == nil {
		return nil
	}

	err := l.client.Close()
	l.client = nil

	return err
}

type googleModel struct {
	loader *googleLoader
	client *speech.Client
	name   string
}

func (m *googleModel) Transcribe(ctx context.Context, path string) (Transcript, error) {
	samples, err := audio_file.Load(m.loader.fs, path)
	if err != nil {
		return Transcript{}, fmt.Errorf("convert audio: %w", err)
	}

	L_debug("stt: google transcribing", "file", path, "model", m.name, "samples", len(samples))

	resp, err := m.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            audio_file.TargetSampleRate,
			LanguageCode:               m.loader.cfg.LanguageCode,
			Model:                      m.name,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: linear16(samples)},
		},
	})
	if err != nil {
		return Transcript{}, fmt.Errorf("google recognize: %w", err)
	}

	var transcripts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			transcripts = append(transcripts, strings.TrimSpace(alts[0].GetTranscript()))
		}
	}

	text := strings.Join(transcripts, " ")
	L_debug("stt: google transcription complete", "length", len(text))

	return Transcript{Text: text}, nil
}

func (m *googleModel) DetectLanguage(context.Context, *log_mel.Spectrogram) (string, []LanguageProbability, error) {
	return "", nil, fmt.Errorf("%w by the google provider", ErrDetectionUnsupported)
}

func (m *googleModel) MelBins() int {
	return log_mel.DefaultMels
}

func (m *googleModel) Name() string {
	return m.name
}

func (m *googleModel) Close() error {
	return m.loader.release()
}

// linear16 encodes samples as little-endian 16-bit PCM.
func linear16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(audio_file.Quantize(s))) // #nosec G115
	}

	return out
}
