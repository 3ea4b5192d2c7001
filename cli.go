package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	"hello-whisper/config"
	. "hello-whisper/logging"
	"hello-whisper/session_controller"
	"hello-whisper/speech_to_text"
	"hello-whisper/transcription"
)

type CLI struct {
	Globals

	Transcribe TranscribeCmd `cmd:"" help:"Transcribe an audio file."`
	Record     RecordCmd     `cmd:"" help:"Record from the microphone until Ctrl+C, then transcribe."`
	Models     ModelsCmd     `cmd:"" help:"List the models of the configured provider."`
}

type Globals struct {
	Config       string `help:"Config file (.toml or .yaml)." env:"HELLO_WHISPER_CONFIG" placeholder:"PATH"`
	Provider     string `help:"Speech provider: whispercpp, openai or google." env:"HELLO_WHISPER_PROVIDER"`
	Model        string `short:"m" help:"Model name (default depends on the provider, turbo for whispercpp)." env:"HELLO_WHISPER_MODEL"`
	ModelsDir    string `help:"Directory holding whisper.cpp models." env:"HELLO_WHISPER_MODELS_DIR" placeholder:"DIR"`
	Language     string `help:"Spoken language code, or auto." env:"HELLO_WHISPER_LANGUAGE"`
	Threads      uint   `help:"whisper.cpp threads (0 = library default)." env:"HELLO_WHISPER_THREADS"`
	TopLanguages int    `help:"How many detected languages to print." env:"HELLO_WHISPER_TOP_LANGUAGES"`
	NoDownload   bool   `help:"Fail instead of downloading a missing model." env:"HELLO_WHISPER_NO_DOWNLOAD"`
	LogLevel     string `help:"Log level: debug, info, warn or error." env:"HELLO_WHISPER_LOG_LEVEL"`
	OpenAIAPIKey string `name:"openai-api-key" help:"OpenAI API key." env:"OPENAI_API_KEY"`
}

// overrides returns the flag values as a config layer; unset flags are zero
// and leave lower layers alone.
func (g *Globals) overrides() *config.Config {
	return &config.Config{
		Provider:     g.Provider,
		Model:        g.Model,
		ModelsDir:    g.ModelsDir,
		Language:     g.Language,
		Threads:      g.Threads,
		TopLanguages: g.TopLanguages,
		NoDownload:   g.NoDownload,
		LogLevel:     g.LogLevel,
		OpenAI:       config.OpenAIConfig{APIKey: g.OpenAIAPIKey},
	}
}

type TranscribeCmd struct {
	Path         string `arg:"" help:"Audio file to transcribe (WAV, or anything ffmpeg reads)."`
	WithLanguage bool   `short:"l" help:"Also print the most likely spoken languages."`
}

func (c *TranscribeCmd) Run(a *app) error {
	controller, cleanup, err := a.controller(0)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = controller.TranscribeFile(a.ctx, c.Path, c.WithLanguage)

	return err
}

type RecordCmd struct {
	WithLanguage   bool          `short:"l" help:"Also print the most likely spoken languages."`
	SilenceTimeout time.Duration `help:"Stop by itself after this much silence following speech (0 = only Ctrl+C)." env:"HELLO_WHISPER_SILENCE_TIMEOUT"`
}

func (c *RecordCmd) Run(a *app) error {
	controller, cleanup, err := a.controller(c.SilenceTimeout)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintln(a.out, "Live recording mode")

	_, err = controller.Record(a.ctx, c.WithLanguage)

	return err
}

type ModelsCmd struct{}

func (c *ModelsCmd) Run(a *app) error {
	loader, err := a.loader()
	if err != nil {
		return err
	}

	var downloaded map[string]bool
	if d, ok := loader.(interface{ Downloaded() map[string]bool }); ok {
		downloaded = d.Downloaded()
	}

	fmt.Fprintf(a.out, "Available models (%s):\n", a.cfg.Provider)

	current := a.cfg.ModelName()
	for _, name := range loader.AvailableModels() {
		mark := " "
		if downloaded[name] {
			mark = "✓"
		}

		suffix := ""
		if name == current {
			suffix = " (selected)"
		}

		fmt.Fprintf(a.out, "  %s %s%s\n", mark, name, suffix)
	}

	return nil
}

// app carries what every command needs once flags and config are resolved.
type app struct {
	ctx context.Context
	cfg *config.Config
	fs  afero.Fs
	out io.Writer
}

func (a *app) loader() (speech_to_text.Loader, error) {
	sttCfg := a.cfg.STT()
	sttCfg.FileSys = a.fs
	sttCfg.WhisperCpp.Progress = a.out

	return speech_to_text.NewLoader(sttCfg)
}

func (a *app) controller(silenceTimeout time.Duration) (*session_controller.Controller, func(), error) {
	loader, err := a.loader()
	if err != nil {
		return nil, nil, err
	}

	orchestrator, err := transcription.New(&transcription.Config{
		Loader:       loader,
		ModelName:    a.cfg.ModelName(),
		FileSys:      a.fs,
		Out:          a.out,
		TopLanguages: a.cfg.TopLanguages,
	})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := orchestrator.Close(); err != nil {
			L_warn("closing model", "error", err)
		}
	}

	controller, err := session_controller.New(&session_controller.Config{
		Transcriber:    orchestrator,
		FileSys:        a.fs,
		SilenceTimeout: silenceTimeout,
		Out:            a.out,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return controller, cleanup, nil
}
