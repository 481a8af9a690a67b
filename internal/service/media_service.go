package service

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// Media slots reported in media events.
const (
	SlotBackground = "background"
	SlotAlbumArt   = "album_art"
)

// MediaRequest describes the media to prepare for one renderer.
type MediaRequest struct {
	Refs domain.MediaRefs

	// CoverRef is the song cover, tried after the custom art and the embedded cover
	CoverRef string

	// Width, Height and FPS size video backgrounds
	Width, Height, FPS int
}

// MediaSet holds decoded media for one renderer. Empty slots are nil and the
// compositor draws its defaults for them.
type MediaSet struct {
	Background image.Image
	Video      ports.VideoSource
	AlbumArt   image.Image

	closeOnce sync.Once
}

// BackgroundAt returns the background to draw at t: the current video frame, the
// still image, or nil.
func (m *MediaSet) BackgroundAt(t time.Duration) image.Image {
	if m == nil {
		return nil
	}
	if m.Video != nil {
		if frame := m.Video.FrameAt(t); frame != nil {
			return frame
		}
		return nil
	}
	return m.Background
}

// AwaitBackground is BackgroundAt for offline rendering: a video background
// returns the frame due at t, waiting for the decoder when needed.
func (m *MediaSet) AwaitBackground(ctx context.Context, t time.Duration) image.Image {
	if m == nil {
		return nil
	}
	if m.Video != nil {
		if frame := m.Video.AwaitFrame(ctx, t); frame != nil {
			return frame
		}
		return nil
	}
	return m.Background
}

// Art returns the album art or nil.
func (m *MediaSet) Art() image.Image {
	if m == nil {
		return nil
	}
	return m.AlbumArt
}

// Close stops the video decoder, if any. It is safe to call more than once.
func (m *MediaSet) Close() error {
	if m == nil {
		return nil
	}
	var err error
	m.closeOnce.Do(func() {
		if m.Video != nil {
			err = m.Video.Close()
		}
	})
	return err
}

// MediaService loads backgrounds and album art. A slot that fails to load is
// logged, reported with a media.load_failed event and left empty; loading never
// fails as a whole.
type MediaService struct {
	logger *slog.Logger
	loader ports.MediaLoader
	bus    ports.EventBus
}

// NewMediaService creates a new media service.
func NewMediaService(logger *slog.Logger, loader ports.MediaLoader, bus ports.EventBus) *MediaService {
	return &MediaService{
		logger: logger.With(slog.String("service", "media")),
		loader: loader,
		bus:    bus,
	}
}

// Load prepares every slot of req.
func (s *MediaService) Load(ctx context.Context, req MediaRequest) *MediaSet {
	set := &MediaSet{}
	s.loadBackground(ctx, req, set)
	set.AlbumArt = s.loadAlbumArt(ctx, req)
	return set
}

func (s *MediaService) loadBackground(ctx context.Context, req MediaRequest, set *MediaSet) {
	ref := req.Refs.Background
	if ref == "" {
		return
	}

	switch req.Refs.BackgroundKind {
	case domain.BackgroundVideo:
		video, err := s.loader.OpenVideo(ctx, ref, req.Width, req.Height, req.FPS)
		if err != nil {
			s.failed(SlotBackground, ref, err)
			return
		}
		set.Video = video
	default:
		img, err := s.loader.LoadImage(ctx, ref)
		if err != nil {
			s.failed(SlotBackground, ref, err)
			return
		}
		set.Background = img
	}
	s.bus.Publish(domain.NewMediaLoadedEvent(SlotBackground, ref))
}

// loadAlbumArt tries the custom art, then the embedded song cover, then the cover
// reference.
func (s *MediaService) loadAlbumArt(ctx context.Context, req MediaRequest) image.Image {
	if ref := req.Refs.AlbumArt; ref != "" {
		img, err := s.loader.LoadImage(ctx, ref)
		if err == nil {
			s.bus.Publish(domain.NewMediaLoadedEvent(SlotAlbumArt, ref))
			return img
		}
		s.failed(SlotAlbumArt, ref, err)
	}

	if len(req.Refs.SongCover) > 0 {
		img, err := s.loader.DecodeImage(req.Refs.SongCover)
		if err == nil {
			s.bus.Publish(domain.NewMediaLoadedEvent(SlotAlbumArt, "embedded"))
			return img
		}
		s.failed(SlotAlbumArt, "embedded", err)
	}

	if ref := req.CoverRef; ref != "" {
		img, err := s.loader.LoadImage(ctx, ref)
		if err == nil {
			s.bus.Publish(domain.NewMediaLoadedEvent(SlotAlbumArt, ref))
			return img
		}
		s.failed(SlotAlbumArt, ref, err)
	}
	return nil
}

func (s *MediaService) failed(slot, ref string, err error) {
	s.logger.Warn("media failed to load, using default",
		slog.String("slot", slot),
		slog.String("ref", ref),
		slog.Any("error", err))
	s.bus.Publish(domain.NewMediaLoadFailedEvent(slot, ref, err))
}
