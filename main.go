package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"hello-whisper/audio_capture"
	"hello-whisper/config"
	"hello-whisper/logging"
	"hello-whisper/session_controller"
	"hello-whisper/transcription"
)

const description = "Transcribe speech from an audio file or the microphone with Whisper."

func main() {
	os.Exit(run(os.Args[1:], afero.NewOsFs(), os.Stdout, os.Stderr))
}

func run(args []string, fs afero.Fs, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(fs, ".env"); err != nil {
		return fail(stderr, err)
	}

	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("hello-whisper"),
		kong.Description(description),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	if err != nil {
		return fail(stderr, err)
	}

	if len(args) == 0 {
		kctx, err := kong.Trace(parser, nil)
		if err == nil {
			err = kctx.PrintUsage(false)
		}

		if err != nil {
			return fail(stderr, err)
		}

		return 0
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		parser.Errorf("%s", err)
		return 1
	}

	if err := initLogging(cli.LogLevel, stderr); err != nil {
		return fail(stderr, err)
	}

	cfg, err := loadConfig(fs, &cli.Globals)
	if err != nil {
		return fail(stderr, err)
	}

	if err := initLogging(cfg.LogLevel, stderr); err != nil {
		return fail(stderr, err)
	}

	a := &app{ctx: context.Background(), cfg: cfg, fs: fs, out: stdout}

	if err := kctx.Run(a); err != nil {
		return fail(stderr, err)
	}

	return 0
}

func initLogging(level string, out io.Writer) error {
	cfg := logging.DefaultOptions()
	cfg.Output = out

	if level != "" {
		cfg.Level = level
	}

	return logging.Init(cfg)
}

// loadConfig layers defaults, the config file and the flags.
func loadConfig(fs afero.Fs, g *Globals) (*config.Config, error) {
	cfg, err := config.Load(fs, g.Config)
	if err != nil {
		return nil, err
	}

	if err := cfg.Merge(g.overrides()); err != nil {
		return nil, err
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// fail prints the one-line diagnostic for err and returns the exit status.
func fail(stderr io.Writer, err error) int {
	msg, code := diagnose(err)

	color := lipgloss.Color("196") // red
	if code == 0 {
		color = lipgloss.Color("214") // orange
	}

	fmt.Fprintln(stderr, lipgloss.NewRenderer(stderr).NewStyle().Foreground(color).Render(msg))

	return code
}

// diagnose maps an error to a user-facing message and exit status.
func diagnose(err error) (string, int) {
	switch {
	case errors.Is(err, audio_capture.ErrNoAudioCaptured):
		return "No audio was recorded. Try again and speak before stopping.", 0
	case errors.Is(err, audio_capture.ErrCaptureUnavailable):
		return fmt.Sprintf("Audio capture is unavailable, install PortAudio and connect a microphone: %v", err), 1
	case errors.Is(err, session_controller.ErrFileNotFound):
		return fmt.Sprintf("Cannot transcribe: %v", err), 1
	case errors.Is(err, context.Canceled):
		return "Interrupted.", 1
	case errors.Is(err, transcription.ErrModelFailure):
		return fmt.Sprintf("Transcription failed: %v", err), 1
	default:
		return fmt.Sprintf("Error: %v", err), 1
	}
}
