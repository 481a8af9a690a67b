// Package app wires the visualizer together and manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/fspecii/ace-step-ui/internal/adapter/audio/decode"
	"github.com/fspecii/ace-step-ui/internal/adapter/encoder/ffmpeg"
	"github.com/fspecii/ace-step-ui/internal/adapter/eventbus"
	"github.com/fspecii/ace-step-ui/internal/adapter/media"
	"github.com/fspecii/ace-step-ui/internal/adapter/repository/file"
	sinkfile "github.com/fspecii/ace-step-ui/internal/adapter/sink/file"
	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/logger"
	"github.com/fspecii/ace-step-ui/internal/ports"
	"github.com/fspecii/ace-step-ui/internal/service"
)

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier of the preview window
	AppID string

	// Export sets the offline render size, frame rate and frame quality
	Export service.ExportConfig

	// Live sets the preview render size and tick rate
	Live service.LiveConfig

	// Media configures asset fetching, proxying and video backgrounds
	Media media.Config

	// Encoder configures the ffmpeg encoder
	Encoder ffmpeg.Config

	// OutputDir receives finished videos
	OutputDir string

	// SceneDir holds named scene files
	SceneDir string

	Logger logger.Config

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{
		AppID:     "com.acestep.visualizer",
		Export:    service.DefaultExportConfig(),
		Live:      service.DefaultLiveConfig(),
		Media:     media.DefaultConfig(),
		Encoder:   ffmpeg.DefaultConfig(),
		OutputDir: ".",
		SceneDir:  "scenes",
		Logger:    logger.DefaultConfig(),
	}
}

// Application holds every dependency of the visualizer.
//
// The headless part (session, media, export) is built by NewApplication; the preview
// window, audio output and live loop are only created by RunPreview.
type Application struct {
	logger *slog.Logger
	cfg    Config

	// Infrastructure
	eventBus *eventbus.SyncEventBus
	loader   *media.Loader
	decoder  *decode.Decoder
	tags     ports.MetadataReader
	encoder  *ffmpeg.Encoder
	sink     *sinkfile.Sink
	scenes   *file.SceneRepository

	// Services
	sessionService *service.SessionService
	mediaService   *service.MediaService
	exportService  *service.ExportService

	shutdownOnce sync.Once
}

// NewApplication creates an application with all headless dependencies wired.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.Export.FPS < 0 || cfg.Export.Width < 0 || cfg.Export.Height < 0 {
		return nil, domain.NewValidationError("export",
			fmt.Sprintf("%dx%d@%d", cfg.Export.Width, cfg.Export.Height, cfg.Export.FPS),
			"size and fps cannot be negative")
	}

	a := &Application{cfg: cfg}
	a.logger = logger.NewLogger(cfg.Logger)
	a.logger.Info("initializing application", slog.String("version", GetVersionInfo().FullString()))

	a.eventBus = eventbus.NewSyncEventBus(a.logger)
	a.loader = media.NewLoader(cfg.Media, nil, a.logger)
	a.decoder = decode.NewDecoder(a.logger)
	a.tags = decode.NewTagReader()
	a.encoder = ffmpeg.NewEncoder(cfg.Encoder, a.logger)
	a.sink = sinkfile.NewSink(cfg.OutputDir, a.logger)
	a.scenes = file.NewSceneRepository(cfg.SceneDir, a.logger)

	a.sessionService = service.NewSessionService(a.logger, a.eventBus, domain.DefaultScene())
	a.mediaService = service.NewMediaService(a.logger, a.loader, a.eventBus)
	a.exportService = service.NewExportService(
		a.logger,
		a.eventBus,
		a.sessionService,
		a.loader,
		a.decoder,
		a.encoder,
		a.mediaService,
		a.sink,
		cfg.Export,
	)
	return a, nil
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger { return a.logger }

// EventBus returns the bus services publish on.
func (a *Application) EventBus() ports.EventBus { return a.eventBus }

// Session returns the scene session.
func (a *Application) Session() *service.SessionService { return a.sessionService }

// Exporter returns the export service.
func (a *Application) Exporter() *service.ExportService { return a.exportService }

// Scenes returns the scene file repository.
func (a *Application) Scenes() *file.SceneRepository { return a.scenes }

// LoadScene replaces the session scene with the one stored under name.
func (a *Application) LoadScene(name string) error {
	scene, err := a.scenes.Load(name)
	if err != nil {
		return err
	}
	if err := a.sessionService.Replace(scene); err != nil {
		return fmt.Errorf("scene %s: %w", name, err)
	}
	a.logger.Info("scene loaded", slog.String("scene", name), slog.String("preset", string(scene.Config.Preset)))
	return nil
}

// SaveScene stores the session scene under name.
func (a *Application) SaveScene(name string) error {
	return a.scenes.Save(name, a.sessionService.Snapshot())
}

// PrepareSong completes song from the tags of its audio: an empty title falls back to
// the tag title, then to the file name, and an embedded cover becomes the album-art
// fallback of the session. Unreadable tags are not an error.
func (a *Application) PrepareSong(ctx context.Context, song domain.Song) (domain.Song, error) {
	if strings.TrimSpace(song.AudioRef) == "" {
		return song, domain.NewValidationError("audio", song.AudioRef, "audio reference is required")
	}
	data, err := a.loader.Fetch(ctx, song.AudioRef)
	if err != nil {
		return song, fmt.Errorf("reading audio: %w", err)
	}

	meta, err := a.tags.ReadMetadata(data)
	if err != nil {
		a.logger.Debug("no readable tags", slog.String("audio", song.AudioRef), slog.Any("error", err))
	}
	if strings.TrimSpace(song.Title) == "" {
		song.Title = meta.Title
	}
	if strings.TrimSpace(song.Title) == "" {
		song.Title = titleFromRef(song.AudioRef)
	}
	if song.Artist == "" {
		song.Artist = meta.Artist
	}
	if len(meta.Cover) > 0 {
		if err := a.sessionService.SetSongCover(meta.Cover); err != nil {
			return song, err
		}
	}
	return song, nil
}

// titleFromRef returns the file name of ref without its extension.
func titleFromRef(ref string) string {
	name := filepath.Base(ref)
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Host != "" {
		name = path.Base(u.Path)
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

// Export runs one export to completion.
func (a *Application) Export(ctx context.Context, req service.ExportRequest) (domain.ExportJob, error) {
	return a.exportService.Export(ctx, req)
}

// Shutdown releases the encoder workspace and closes the bus.
// It's safe to call multiple times.
func (a *Application) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		if a.exportService.Running() {
			a.exportService.Reset()
		}
		if err := a.encoder.Close(); err != nil {
			a.logger.Warn("failed to close encoder", slog.Any("error", err))
		}
		if err := a.eventBus.Close(); err != nil {
			a.logger.Warn("failed to close event bus", slog.Any("error", err))
		}

		a.logger.Info("application shutdown complete")
	})
}
