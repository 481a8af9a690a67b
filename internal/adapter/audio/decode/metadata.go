package decode

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dhowden/tag"

	"github.com/fspecii/ace-step-ui/internal/ports"
)

// TagReader implements ports.MetadataReader with dhowden/tag, which understands ID3,
// MP4, FLAC and Ogg Vorbis comments.
type TagReader struct{}

// NewTagReader creates a tag reader.
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadMetadata extracts title, artist, album and the embedded cover.
func (TagReader) ReadMetadata(data []byte) (ports.SongMetadata, error) {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return ports.SongMetadata{}, fmt.Errorf("reading tags: %w", err)
	}

	meta := ports.SongMetadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}
	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		meta.Cover = pic.Data
	}
	return meta, nil
}

var _ ports.MetadataReader = TagReader{}
