package speech_to_text

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	. "hello-whisper/logging"
)

const progressInterval = 2 * time.Second

// DownloadModel downloads m into dir and returns the model path. The body is
// written to a ".download" file that is renamed into place once complete.
// Start, progress and completion lines go to out when it is not nil.
func DownloadModel(ctx context.Context, fs afero.Fs, client *http.Client, m *CatalogEntry, dir string, out io.Writer) (string, error) {
	if m == nil {
		return "", fmt.Errorf("model is nil")
	}

	if client == nil {
		client = http.DefaultClient
	}

	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create models directory: %w", err)
	}

	destPath := filepath.Join(dir, m.File)
	tempPath := destPath + ".download"

	L_info("stt: downloading model", "model", m.Name, "size", humanize.Bytes(uint64(m.SizeBytes)), "url", m.URL) // #nosec G115

	if out != nil {
		fmt.Fprintf(out, "Downloading model %s (%s), this only happens once...\n", m.Name, humanize.Bytes(uint64(m.SizeBytes))) // #nosec G115
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	totalSize := resp.ContentLength
	if totalSize <= 0 {
		totalSize = m.SizeBytes
	}

	tempFile, err := fs.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	progress := &progressWriter{name: m.Name, total: totalSize, out: out, every: progressInterval, last: time.Now()}

	if _, err := io.Copy(io.MultiWriter(tempFile, progress), resp.Body); err != nil {
		tempFile.Close()
		fs.Remove(tempPath)

		return "", fmt.Errorf("write model file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		fs.Remove(tempPath)

		return "", fmt.Errorf("close model file: %w", err)
	}

	if err := fs.Rename(tempPath, destPath); err != nil {
		fs.Remove(tempPath)

		return "", fmt.Errorf("rename model file: %w", err)
	}

	L_info("stt: download complete", "model", m.Name, "path", destPath, "size", humanize.Bytes(uint64(progress.written))) // #nosec G115

	if out != nil {
		fmt.Fprintf(out, "Model %s downloaded to %s\n", m.Name, destPath)
	}

	return destPath, nil
}

type progressWriter struct {
	name    string
	total   int64
	written int64
	out     io.Writer
	every   time.Duration
	last    time.Time
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))

	if time.Since(p.last) >= p.every {
		p.report()
		p.last = time.Now()
	}

	return len(b), nil
}

func (p *progressWriter) report() {
	percent := 0
	if p.total > 0 {
		percent = int(float64(p.written) / float64(p.total) * 100)
	}

	done := fmt.Sprintf("%s/%s", humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total))) // #nosec G115

	L_debug("stt: downloading", "model", p.name, "progress", fmt.Sprintf("%d%%", percent), "downloaded", done)

	if p.out != nil {
		fmt.Fprintf(p.out, "  %s: %d%% (%s)\n", p.name, percent, done)
	}
}
