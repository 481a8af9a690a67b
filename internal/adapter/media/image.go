package media

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

// LoadImage fetches ref and decodes it, honouring EXIF orientation.
func (l *Loader) LoadImage(ctx context.Context, ref string) (image.Image, error) {
	data, err := l.Fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeImage implements ports.MediaLoader.
func (l *Loader) DecodeImage(data []byte) (image.Image, error) {
	return DecodeImage(data)
}

// DecodeImage decodes JPEG, PNG, GIF, BMP or TIFF bytes.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %w", domain.ErrMediaUnavailable, err)
	}
	return img, nil
}
