package session_controller

import (
	"context"

	"hello-whisper/transcription"
)

// Transcriber is the part of transcription.Orchestrator the controller uses.
type Transcriber interface {
	Transcribe(ctx context.Context, path string, detectLanguage bool) (*transcription.Result, error)
}
