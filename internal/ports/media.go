package ports

import (
	"context"
	"image"
	"time"
)

// AssetFetcher retrieves raw bytes for a path or URL.
//
// Remote references whose origin differs from the configured one are routed through
// a same-origin proxy when the implementation is configured with one.
type AssetFetcher interface {
	// Fetch returns the full content of ref.
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// MediaLoader decodes background and album-art media.
type MediaLoader interface {
	// LoadImage fetches and decodes a still image.
	LoadImage(ctx context.Context, ref string) (image.Image, error)

	// DecodeImage decodes image bytes already in memory, such as an embedded cover.
	DecodeImage(data []byte) (image.Image, error)

	// OpenVideo starts decoding a muted video that loops forever, scaled to width x height
	// and resampled to fps. The returned source must be closed.
	OpenVideo(ctx context.Context, ref string, width, height, fps int) (VideoSource, error)
}

// VideoSource yields frames of a looping background video.
type VideoSource interface {
	// FrameAt returns the frame to show at t without waiting for the decoder. Calls
	// are expected with non-decreasing t; the source returns the last decoded frame
	// when it cannot keep up. Live rendering uses this.
	FrameAt(t time.Duration) image.Image

	// AwaitFrame waits until the frame due at t is decoded, the video ends or ctx is
	// done. Offline rendering uses this so every output frame gets its own frame.
	AwaitFrame(ctx context.Context, t time.Duration) image.Image

	// Close stops decoding and releases resources.
	Close() error
}
