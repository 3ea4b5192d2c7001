//go:build !cgo

package speech_to_text

import "fmt"

func openWhisperCpp(path string, m *CatalogEntry, _ *Config) (Model, error) {
	return nil, fmt.Errorf("load %s from %s: whisper.cpp needs a cgo build", m.Name, path)
}
