// Package file delivers exported videos to a directory on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fspecii/ace-step-ui/internal/ports"
)

var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]`)

// maxDuplicates bounds the " (n)" suffix search.
const maxDuplicates = 1000

// SanitizeFilename strips characters invalid in filenames and trims whitespace and
// dots. Falls back to "visualizer" if nothing is left.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(strings.TrimSpace(name), ".")
	if name == "" {
		return "visualizer"
	}
	return name
}

// Sink implements ports.DownloadSink. Existing files are never overwritten; a
// " (n)" suffix is added the way browsers do for downloads.
type Sink struct {
	logger *slog.Logger
	dir    string
}

// NewSink creates a sink writing into dir.
func NewSink(dir string, logger *slog.Logger) *Sink {
	return &Sink{
		logger: logger.With(slog.String("adapter", "download_sink")),
		dir:    dir,
	}
}

// Deliver writes data under the sanitized filename and returns the final path.
func (s *Sink) Deliver(ctx context.Context, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	ext := filepath.Ext(filename)
	base := SanitizeFilename(strings.TrimSuffix(filename, ext))
	ext = SanitizeFilename(ext)
	if ext == "visualizer" {
		ext = ""
	} else {
		ext = "." + strings.TrimPrefix(ext, ".")
	}

	for n := 0; n < maxDuplicates; n++ {
		name := base + ext
		if n > 0 {
			name = base + " (" + strconv.Itoa(n) + ")" + ext
		}
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", name, err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("writing %s: %w", name, err)
		}
		s.logger.Info("video delivered", slog.String("path", path), slog.Int("bytes", len(data)))
		return path, nil
	}
	return "", fmt.Errorf("too many files named %s%s in %s", base, ext, s.dir)
}

var _ ports.DownloadSink = (*Sink)(nil)
