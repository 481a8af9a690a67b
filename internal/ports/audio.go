// Package ports define the interfaces the visualizer core consumes.
// Adapters implement them; services depend only on these abstractions.
package ports

import (
	"context"
	"time"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

// LiveAnalyzer is a frequency analyser over the audio currently playing.
//
// The analyser works on a fixed window of domain.FFTSize samples ending at the
// current playback position. Implementations smooth successive spectra the way a
// browser analyser node does, so two reads in the same instant may differ slightly.
//
// Thread-safety: Implementations must be safe to read from the render loop while
// playback runs on another goroutine.
type LiveAnalyzer interface {
	// FrequencyData fills dst with byte-scaled magnitudes of the current spectrum.
	// dst normally has domain.FrequencyBins entries; extra entries are zeroed and
	// missing ones are ignored.
	FrequencyData(dst []uint8)

	// TimeDomainData fills dst with the current waveform as bytes, 128 meaning silence.
	TimeDomainData(dst []uint8)

	// Position returns the playback position the analyser window ends at.
	// This is the clock the live loop animates with.
	Position() time.Duration
}

// AudioDecoder decodes a complete audio stream into PCM.
type AudioDecoder interface {
	// Decode decodes data into per-channel float samples.
	//
	// name is used as a format hint (file extension); content sniffing takes over
	// when the extension is missing or unknown.
	//
	// Returns an error wrapping domain.ErrDecodeFailed or domain.ErrUnsupportedFormat.
	Decode(ctx context.Context, name string, data []byte) (*domain.DecodedAudio, error)
}

// MetadataReader extracts tags from an audio stream.
type MetadataReader interface {
	// ReadMetadata returns the title, artist and embedded cover of the stream.
	// Missing fields are empty; an error means the tags could not be parsed at all.
	ReadMetadata(data []byte) (SongMetadata, error)
}

// SongMetadata holds tag values read from an audio stream.
type SongMetadata struct {
	Title  string
	Artist string
	Album  string
	Cover  []byte // Encoded image (JPEG/PNG), nil when absent
}
