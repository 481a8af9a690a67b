package ports

import (
	"context"
)

// EncodeOptions describes one encode invocation.
type EncodeOptions struct {
	// FrameRate is the fixed input and output frame rate
	FrameRate int

	// FramePattern is the printf pattern of the captured frames (e.g. "frame%05d.jpg")
	FramePattern string

	// AudioFile is the name of the audio track in the virtual filesystem
	AudioFile string

	// Output is the name of the container to produce
	Output string

	// VideoCodec, AudioCodec and Preset select the codecs and the speed preset
	VideoCodec string
	AudioCodec string
	Preset     string

	// CRF is the constant rate factor of the video codec
	CRF int

	// AudioBitrate is the audio bitrate (e.g. "192k")
	AudioBitrate string

	// PixelFormat is the output pixel format (e.g. "yuv420p")
	PixelFormat string

	// Duration bounds the output length, used to compute progress; zero means unknown
	DurationSeconds float64
}

// DefaultEncodeOptions returns the fixed encode settings of the export pipeline.
func DefaultEncodeOptions(fps int) EncodeOptions {
	return EncodeOptions{
		FrameRate:    fps,
		FramePattern: "frame%05d.jpg",
		AudioFile:    "audio",
		Output:       "output.mp4",
		VideoCodec:   "libx264",
		AudioCodec:   "aac",
		Preset:       "ultrafast",
		CRF:          23,
		AudioBitrate: "192k",
		PixelFormat:  "yuv420p",
	}
}

// VideoEncoder is the video encoder treated as an opaque external resource.
//
// Files live in a virtual filesystem private to the encoder. Every call is awaited
// by the caller before the next one is issued.
type VideoEncoder interface {
	// Load prepares the encoder. It is cheap to call again once loaded.
	Load(ctx context.Context) error

	// Loaded reports whether Load succeeded.
	Loaded() bool

	// WriteFile stores data under name.
	WriteFile(ctx context.Context, name string, data []byte) error

	// ReadFile returns the content stored under name.
	ReadFile(ctx context.Context, name string) ([]byte, error)

	// DeleteFile removes name. Deleting a missing file is an error.
	DeleteFile(ctx context.Context, name string) error

	// Encode muxes the frames and the audio into opts.Output.
	// progress receives fractions in [0,1]; it may be nil.
	Encode(ctx context.Context, opts EncodeOptions, progress func(float64)) error
}
