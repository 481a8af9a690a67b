package ports

import (
	"context"
	"image"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

// DownloadSink delivers a finished export to the user.
type DownloadSink interface {
	// Deliver hands data to the user under filename.
	// Returns the location the file was delivered to.
	Deliver(ctx context.Context, filename string, data []byte) (string, error)
}

// FrameSink presents live frames on screen.
//
// The frame passed to Present is reused by the renderer on the next tick;
// implementations that keep it must copy it.
type FrameSink interface {
	Present(frame *image.RGBA)
}

// SceneRepository stores scene descriptions.
type SceneRepository interface {
	// Load reads the scene stored under name.
	Load(name string) (domain.Scene, error)

	// Save stores scene under name, replacing any previous content.
	Save(name string, scene domain.Scene) error
}
