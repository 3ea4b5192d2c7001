package speech_to_text

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const huggingFaceBase = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// CatalogEntry describes one whisper.cpp model.
type CatalogEntry struct {
	Name      string // "turbo"
	File      string // "ggml-large-v3-turbo.bin"
	Label     string
	SizeBytes int64
	MelBins   int
	URL       string
}

func entry(name, file, label string, sizeBytes int64, melBins int) CatalogEntry {
	return CatalogEntry{
		Name:      name,
		File:      file,
		Label:     label,
		SizeBytes: sizeBytes,
		MelBins:   melBins,
		URL:       huggingFaceBase + file,
	}
}

// Catalog lists the models that can be loaded by name.
// Models from: https://huggingface.co/ggerganov/whisper.cpp
var Catalog = []CatalogEntry{
	entry("tiny", "ggml-tiny.bin", "Tiny Multilingual", 77_691_713, 80),
	entry("tiny.en", "ggml-tiny.en.bin", "Tiny English", 77_704_715, 80),
	entry("base", "ggml-base.bin", "Base Multilingual", 147_951_465, 80),
	entry("base.en", "ggml-base.en.bin", "Base English", 147_964_211, 80),
	entry("small", "ggml-small.bin", "Small Multilingual", 487_601_967, 80),
	entry("small.en", "ggml-small.en.bin", "Small English", 487_614_201, 80),
	entry("medium", "ggml-medium.bin", "Medium Multilingual", 1_533_763_059, 80),
	entry("medium.en", "ggml-medium.en.bin", "Medium English", 1_533_774_781, 80),
	entry("large-v1", "ggml-large-v1.bin", "Large V1", 3_094_623_691, 80),
	entry("large-v2", "ggml-large-v2.bin", "Large V2", 3_094_623_691, 80),
	entry("large-v3", "ggml-large-v3.bin", "Large V3", 3_095_033_483, 128),
	entry("large", "ggml-large-v3.bin", "Large (V3)", 3_095_033_483, 128),
	entry("large-v3-turbo", "ggml-large-v3-turbo.bin", "Large V3 Turbo", 1_624_555_275, 128),
	entry("turbo", "ggml-large-v3-turbo.bin", "Turbo (Large V3 Turbo)", 1_624_555_275, 128),
}

// CatalogNames returns the catalog model names in catalog order.
func CatalogNames() []string {
	names := make([]string, len(Catalog))
	for i, m := range Catalog {
		names[i] = m.Name
	}

	return names
}

// LookupModel finds a catalog entry by name or by file name.
func LookupModel(name string) (*CatalogEntry, error) {
	name = strings.TrimSpace(name)

	for i := range Catalog {
		if Catalog[i].Name == name || Catalog[i].File == name {
			return &Catalog[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownModel, name, strings.Join(CatalogNames(), ", "))
}

// IsModelDownloaded reports whether the model file exists in dir and is not
// empty.
func IsModelDownloaded(fs afero.Fs, dir string, m *CatalogEntry) bool {
	if dir == "" || m == nil {
		return false
	}

	info, err := fs.Stat(filepath.Join(dir, m.File))
	if err != nil {
		return false
	}

	return !info.IsDir() && info.Size() > 0
}
