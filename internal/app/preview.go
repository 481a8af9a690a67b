package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/fspecii/ace-step-ui/internal/adapter/audio/analyser"
	"github.com/fspecii/ace-step-ui/internal/adapter/repository/prefs"
	fyneui "github.com/fspecii/ace-step-ui/internal/adapter/ui/fyne"
	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/service"
)

// lastSceneKey names the scene the preview restores on start and saves on close.
const lastSceneKey = "last"

// PreviewOptions tune RunPreview.
type PreviewOptions struct {
	// RestoreScene replaces the session with the scene saved when the preview
	// last closed. Leave it off when a scene file was loaded explicitly.
	RestoreScene bool

	// Autoplay starts playback as soon as the window opens
	Autoplay bool

	// Customize edits the session after any restore, before the window opens
	Customize func(*Application) error
}

// preview holds what lives only as long as the preview window.
type preview struct {
	fyneApp   fyne.App
	player    *analyser.Player
	live      *service.LiveService
	window    *fyneui.PreviewWindow
	presenter *fyneui.Presenter
	prefs     *prefs.SceneRepository
}

// RunPreview decodes song, opens the preview window and blocks until it is closed.
func (a *Application) RunPreview(ctx context.Context, song domain.Song, opts PreviewOptions) error {
	p, err := a.newPreview(ctx, song, opts)
	if err != nil {
		return err
	}
	defer a.closePreview(p)

	p.presenter.ReloadMedia(ctx)
	p.live.Start()
	if opts.Autoplay {
		p.presenter.OnPlayClicked()
	}

	stop := context.AfterFunc(ctx, p.window.Close)
	defer stop()

	a.logger.Info("preview started", slog.String("title", song.Title))
	p.window.ShowAndRun()
	return nil
}

func (a *Application) newPreview(ctx context.Context, song domain.Song, opts PreviewOptions) (*preview, error) {
	data, err := a.loader.Fetch(ctx, song.AudioRef)
	if err != nil {
		return nil, fmt.Errorf("reading audio: %w", err)
	}
	track, err := a.decoder.Decode(ctx, song.AudioRef, data)
	if err != nil {
		return nil, err
	}
	player, err := analyser.NewPlayer(track, a.logger)
	if err != nil {
		return nil, err
	}

	p := &preview{player: player}
	if a.cfg.TestFyneApp != nil {
		p.fyneApp = a.cfg.TestFyneApp
	} else {
		p.fyneApp = fyneapp.NewWithID(a.cfg.AppID)
	}

	p.prefs = prefs.NewSceneRepository(p.fyneApp.Preferences())
	if opts.RestoreScene {
		a.restoreScene(p)
	}
	if opts.Customize != nil {
		if err := opts.Customize(a); err != nil {
			_ = player.Close()
			return nil, err
		}
	}

	cfg := a.cfg.Live
	frames := fyneui.NewFrameView()
	p.live = service.NewLiveService(
		a.logger,
		a.eventBus,
		a.sessionService,
		analyser.New(player, analyser.DefaultConfig()),
		frames,
		cfg,
	)
	p.window = fyneui.NewPreviewWindow(p.fyneApp, frames, float32(cfg.Width), float32(cfg.Height))
	p.presenter = fyneui.NewPresenter(
		a.logger,
		a.eventBus,
		a.sessionService,
		a.exportService,
		a.mediaService,
		p.live,
		player,
		p.window,
		fyneui.PresenterConfig{
			Song:   song,
			Width:  cfg.Width,
			Height: cfg.Height,
			FPS:    tickRate(cfg.Interval),
		},
	)
	p.window.SetPresenter(p.presenter)

	// Save state before the window closes so quitting from the OS menu keeps it too
	p.window.SetOnClosed(func() {
		if err := p.prefs.Save(lastSceneKey, a.sessionService.Snapshot()); err != nil {
			a.logger.Warn("failed to save scene on close", slog.Any("error", err))
		}
	})
	return p, nil
}

// restoreScene loads the scene saved by the previous preview. The song cover of the
// current session survives the swap.
func (a *Application) restoreScene(p *preview) {
	scene, err := p.prefs.Load(lastSceneKey)
	if err != nil {
		a.logger.Warn("failed to load saved scene", slog.Any("error", err))
		return
	}
	scene.Media.SongCover = a.sessionService.Snapshot().Media.SongCover
	if err := a.sessionService.Replace(scene); err != nil {
		a.logger.Warn("saved scene rejected", slog.Any("error", err))
	}
}

func (a *Application) closePreview(p *preview) {
	p.presenter.Shutdown()
	p.live.Shutdown()
	if err := p.player.Close(); err != nil {
		a.logger.Warn("failed to close audio player", slog.Any("error", err))
	}
	a.logger.Info("preview closed", slog.Uint64("frames", p.live.Frames()))
}

// tickRate converts a tick interval to whole frames per second.
func tickRate(interval time.Duration) int {
	if interval <= 0 {
		return 60
	}
	return max(1, int(time.Second/interval))
}
