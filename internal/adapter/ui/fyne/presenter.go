// Package fyne provides the live preview window built with the Fyne toolkit.
package fyne

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
	"github.com/fspecii/ace-step-ui/internal/service"
)

// defaultEffectIntensity is applied when an effect is switched on from the UI.
const defaultEffectIntensity = 0.5

// PreviewView defines the UI updates the presenter drives.
// The preview window implements it; every method must be safe to call from any
// goroutine.
type PreviewView interface {
	SetPresets(presets []domain.PresetInfo, selected domain.Preset)
	SelectPreset(p domain.Preset)
	SetEffects(effects domain.Effects)
	SetPlayState(playing bool)
	SetSongInfo(song domain.Song)

	// SetExportProgress shows progress in [0,1] with a short status line
	SetExportProgress(fraction float64, status string)
	SetExportBusy(busy bool)

	SetStatus(message string)
	ShowNotification(title, message string)
}

// SceneEditor is the part of the session the preview edits.
type SceneEditor interface {
	Snapshot() domain.Scene
	SetPreset(p domain.Preset) error
	SetEffect(kind domain.EffectKind, enabled bool, intensity float64) error
	SetMedia(refs domain.MediaRefs) error
}

// Exporter runs exports in the background of the preview.
type Exporter interface {
	Export(ctx context.Context, req service.ExportRequest) (domain.ExportJob, error)
	Reset()
	Running() bool
}

// MediaSource loads the media of the current scene.
type MediaSource interface {
	Load(ctx context.Context, req service.MediaRequest) *service.MediaSet
}

// MediaTarget receives freshly loaded media.
type MediaTarget interface {
	SetMedia(set *service.MediaSet)
}

// Playback is the audio transport of the preview.
type Playback interface {
	Play()
	Pause()
}

// PresenterConfig holds what the presenter needs beyond its collaborators.
type PresenterConfig struct {
	Song domain.Song

	// Width, Height and FPS size video backgrounds for the live loop
	Width, Height, FPS int
}

// Presenter coordinates the session, the live loop and the export service with
// the preview view (MVP).
//
// Thread-safety: All operations are thread-safe via sync.Mutex.
type Presenter struct {
	logger   *slog.Logger
	bus      ports.EventBus
	session  SceneEditor
	exporter Exporter
	media    MediaSource
	live     MediaTarget
	playback Playback
	view     PreviewView
	cfg      PresenterConfig

	mu      sync.Mutex
	playing bool
	subs    []domain.SubscriptionID
	exports sync.WaitGroup

	shutdownOnce sync.Once
}

// NewPresenter creates a presenter and syncs the view with the session.
func NewPresenter(
	logger *slog.Logger,
	bus ports.EventBus,
	session SceneEditor,
	exporter Exporter,
	media MediaSource,
	live MediaTarget,
	playback Playback,
	view PreviewView,
	cfg PresenterConfig,
) *Presenter {
	p := &Presenter{
		logger:   logger.With(slog.String("component", "presenter")),
		bus:      bus,
		session:  session,
		exporter: exporter,
		media:    media,
		live:     live,
		playback: playback,
		view:     view,
		cfg:      cfg,
	}
	p.subscribeToEvents()
	p.syncInitialState()
	return p
}

func (p *Presenter) subscribeToEvents() {
	subscriptions := map[domain.EventType]domain.EventHandler{
		domain.EventPresetChanged:      p.onPresetChanged,
		domain.EventExportStateChanged: p.onExportStateChanged,
		domain.EventExportProgress:     p.onExportProgress,
		domain.EventExportCompleted:    p.onExportCompleted,
		domain.EventExportFailed:       p.onExportFailed,
		domain.EventExportReset:        p.onExportReset,
		domain.EventMediaLoadFailed:    p.onMediaLoadFailed,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for eventType, handler := range subscriptions {
		p.subs = append(p.subs, p.bus.Subscribe(eventType, handler))
	}
}

func (p *Presenter) syncInitialState() {
	scene := p.session.Snapshot()
	p.view.SetPresets(domain.Presets(), scene.Config.Preset)
	p.view.SetEffects(scene.Effects)
	p.view.SetSongInfo(p.cfg.Song)
	p.view.SetPlayState(false)
	p.view.SetExportBusy(p.exporter.Running())
}

// Event handlers

func (p *Presenter) onPresetChanged(event domain.Event) {
	if e, ok := event.(domain.PresetChangedEvent); ok {
		p.view.SelectPreset(e.To)
	}
}

func (p *Presenter) onExportStateChanged(event domain.Event) {
	e, ok := event.(domain.ExportStateChangedEvent)
	if !ok {
		return
	}
	p.view.SetExportBusy(!e.To.Terminal() && e.To != domain.ExportIdle)
}

func (p *Presenter) onExportProgress(event domain.Event) {
	e, ok := event.(domain.ExportProgressEvent)
	if !ok {
		return
	}
	p.view.SetExportProgress(e.Progress/100, progressStatus(e))
}

func progressStatus(e domain.ExportProgressEvent) string {
	switch e.State {
	case domain.ExportCapturing:
		if e.TotalFrames > 0 {
			return fmt.Sprintf("Rendering frame %d of %d", e.FramesRendered, e.TotalFrames)
		}
		return "Preparing"
	case domain.ExportEncoding:
		return "Encoding video"
	case domain.ExportDone:
		return "Done"
	default:
		return ""
	}
}

func (p *Presenter) onExportCompleted(event domain.Event) {
	e, ok := event.(domain.ExportCompletedEvent)
	if !ok {
		return
	}
	p.view.SetExportBusy(false)
	p.view.SetStatus("Saved " + e.Filename)
	p.view.ShowNotification("Export finished", filepath.Base(e.Filename))
}

func (p *Presenter) onExportFailed(event domain.Event) {
	e, ok := event.(domain.ExportFailedEvent)
	if !ok {
		return
	}
	p.view.SetExportBusy(false)
	p.view.SetStatus("Export failed: " + e.Message)
	p.view.ShowNotification("Export failed", e.Message)
}

func (p *Presenter) onExportReset(domain.Event) {
	p.view.SetExportBusy(false)
	p.view.SetExportProgress(0, "")
}

func (p *Presenter) onMediaLoadFailed(event domain.Event) {
	e, ok := event.(domain.MediaLoadFailedEvent)
	if !ok {
		return
	}
	p.view.SetStatus(fmt.Sprintf("Could not load %s, using the default", strings.ReplaceAll(e.Slot, "_", " ")))
}

// User commands

// OnPresetSelected switches to the preset with the given display name.
func (p *Presenter) OnPresetSelected(name string) {
	for _, info := range domain.Presets() {
		if info.Name == name || string(info.Preset) == name {
			if err := p.session.SetPreset(info.Preset); err != nil {
				p.logger.Warn("failed to set preset", slog.Any("error", err))
			}
			return
		}
	}
	p.logger.Warn("unknown preset selected", slog.String("name", name))
}

// OnEffectToggled switches an effect on or off, keeping a previously set intensity.
func (p *Presenter) OnEffectToggled(kind domain.EffectKind, enabled bool) {
	intensity := p.session.Snapshot().Effects.Intensity[kind]
	if enabled && intensity == 0 {
		intensity = defaultEffectIntensity
	}
	if err := p.session.SetEffect(kind, enabled, intensity); err != nil {
		p.logger.Warn("failed to toggle effect", slog.String("effect", string(kind)), slog.Any("error", err))
	}
}

// OnPlayClicked toggles playback.
func (p *Presenter) OnPlayClicked() {
	p.mu.Lock()
	p.playing = !p.playing
	playing := p.playing
	p.mu.Unlock()

	if playing {
		p.playback.Play()
	} else {
		p.playback.Pause()
	}
	p.view.SetPlayState(playing)
}

// OnBackgroundOpened sets a still image or a video as the background.
func (p *Presenter) OnBackgroundOpened(path string) {
	refs := p.session.Snapshot().Media
	refs.Background = path
	refs.BackgroundKind = BackgroundKindFor(path)
	if err := p.session.SetMedia(refs); err != nil {
		p.view.SetStatus(err.Error())
		return
	}
	p.ReloadMedia(context.Background())
}

// OnAlbumArtOpened sets a custom album-art image.
func (p *Presenter) OnAlbumArtOpened(path string) {
	refs := p.session.Snapshot().Media
	refs.AlbumArt = path
	if err := p.session.SetMedia(refs); err != nil {
		p.view.SetStatus(err.Error())
		return
	}
	p.ReloadMedia(context.Background())
}

// ReloadMedia loads the media of the current scene into the live loop.
func (p *Presenter) ReloadMedia(ctx context.Context) {
	set := p.media.Load(ctx, service.MediaRequest{
		Refs:     p.session.Snapshot().Media,
		CoverRef: p.cfg.Song.CoverRef,
		Width:    p.cfg.Width,
		Height:   p.cfg.Height,
		FPS:      p.cfg.FPS,
	})
	p.live.SetMedia(set)
}

// OnExportClicked starts an export in the background. The outcome arrives through
// export events.
func (p *Presenter) OnExportClicked() {
	if p.exporter.Running() {
		p.view.ShowNotification("Export", "An export is already running")
		return
	}
	p.view.SetExportBusy(true)
	p.view.SetExportProgress(0, "Preparing")

	p.exports.Add(1)
	go func() {
		defer p.exports.Done()
		_, err := p.exporter.Export(context.Background(), service.ExportRequest{Song: p.cfg.Song})
		if err != nil {
			p.logger.Debug("export ended with error", slog.Any("error", err))
		}
	}()
}

// OnResetClicked discards the current export.
func (p *Presenter) OnResetClicked() {
	p.exporter.Reset()
}

// Shutdown unsubscribes from the bus, discards a running export and waits for it.
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		subs := p.subs
		p.subs = nil
		p.mu.Unlock()

		for _, id := range subs {
			p.bus.Unsubscribe(id)
		}
		if p.exporter.Running() {
			p.exporter.Reset()
		}
		p.exports.Wait()
	})
}

// BackgroundKindFor picks the background decoder from the file extension.
func BackgroundKindFor(path string) domain.BackgroundKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".webm", ".mov", ".mkv", ".m4v", ".avi":
		return domain.BackgroundVideo
	default:
		return domain.BackgroundImage
	}
}
