package fyne

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/adapter/eventbus"
	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/logger"
	"github.com/fspecii/ace-step-ui/internal/service"
)

type viewState struct {
	presets       []domain.PresetInfo
	selected      domain.Preset
	effects       domain.Effects
	playing       bool
	song          domain.Song
	progress      float64
	progressText  string
	busy          bool
	status        string
	notifications []string
}

type fakeView struct {
	mu sync.Mutex
	viewState
}

func (v *fakeView) SetPresets(presets []domain.PresetInfo, selected domain.Preset) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.presets, v.selected = presets, selected
}

func (v *fakeView) SelectPreset(p domain.Preset) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selected = p
}

func (v *fakeView) SetEffects(effects domain.Effects) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.effects = effects
}

func (v *fakeView) SetPlayState(playing bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.playing = playing
}

func (v *fakeView) SetSongInfo(song domain.Song) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.song = song
}

func (v *fakeView) SetExportProgress(fraction float64, status string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.progress, v.progressText = fraction, status
}

func (v *fakeView) SetExportBusy(busy bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.busy = busy
}

func (v *fakeView) SetStatus(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = message
}

func (v *fakeView) ShowNotification(title, message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notifications = append(v.notifications, title+": "+message)
}

func (v *fakeView) snapshot() viewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.viewState
	state.notifications = append([]string(nil), v.notifications...)
	return state
}

// fakeExporter publishes the events a real export would.
type fakeExporter struct {
	bus     *eventbus.SyncEventBus
	mu      sync.Mutex
	running bool
	started chan service.ExportRequest
	resets  int
}

func (e *fakeExporter) Export(_ context.Context, req service.ExportRequest) (domain.ExportJob, error) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	e.started <- req

	job := domain.ExportJob{ID: "export-1", State: domain.ExportCapturing, Progress: 40, FramesRendered: 4, TotalFrames: 10}
	e.bus.Publish(domain.NewExportStateChangedEvent(job.ID, domain.ExportIdle, domain.ExportCapturing))
	e.bus.Publish(domain.NewExportProgressEvent(job))
	e.bus.Publish(domain.NewExportCompletedEvent(job.ID, "out/Night Drive.mp4", 10, time.Second))

	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
	return job, nil
}

func (e *fakeExporter) Reset() {
	e.mu.Lock()
	e.resets++
	e.mu.Unlock()
	e.bus.Publish(domain.NewExportResetEvent(""))
}

func (e *fakeExporter) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

type fakeMedia struct {
	requests []service.MediaRequest
}

func (m *fakeMedia) Load(_ context.Context, req service.MediaRequest) *service.MediaSet {
	m.requests = append(m.requests, req)
	return &service.MediaSet{}
}

type fakeTarget struct {
	sets []*service.MediaSet
}

func (t *fakeTarget) SetMedia(set *service.MediaSet) {
	t.sets = append(t.sets, set)
}

type fakePlayback struct {
	plays, pauses int
}

func (p *fakePlayback) Play()  { p.plays++ }
func (p *fakePlayback) Pause() { p.pauses++ }

type presenterFixture struct {
	presenter *Presenter
	session   *service.SessionService
	bus       *eventbus.SyncEventBus
	view      *fakeView
	exporter  *fakeExporter
	media     *fakeMedia
	target    *fakeTarget
	playback  *fakePlayback
}

func newPresenterFixture(t *testing.T) *presenterFixture {
	t.Helper()
	bus := eventbus.NewSyncEventBus(nil)
	log := logger.NewTestLogger()
	f := &presenterFixture{
		session:  service.NewSessionService(log, bus, domain.DefaultScene()),
		bus:      bus,
		view:     &fakeView{},
		exporter: &fakeExporter{bus: bus, started: make(chan service.ExportRequest, 1)},
		media:    &fakeMedia{},
		target:   &fakeTarget{},
		playback: &fakePlayback{},
	}
	f.presenter = NewPresenter(log, bus, f.session, f.exporter, f.media, f.target, f.playback, f.view, PresenterConfig{
		Song:   domain.Song{Title: "Night Drive", Artist: "ACE", AudioRef: "song.mp3", CoverRef: "cover.jpg"},
		Width:  320,
		Height: 180,
		FPS:    60,
	})
	t.Cleanup(f.presenter.Shutdown)
	return f
}

func TestPresenter_SyncsInitialState(t *testing.T) {
	f := newPresenterFixture(t)

	assert.Len(t, f.view.presets, len(domain.Presets()))
	assert.Equal(t, domain.PresetRing, f.view.selected)
	assert.Equal(t, "Night Drive", f.view.song.Title)
	assert.False(t, f.view.busy)
}

func TestPresenter_PresetSelection(t *testing.T) {
	f := newPresenterFixture(t)

	f.presenter.OnPresetSelected("Glyph Rain")
	assert.Equal(t, domain.PresetRain, f.session.Snapshot().Config.Preset)
	assert.Equal(t, domain.PresetRain, f.view.snapshot().selected, "view follows preset events")

	f.presenter.OnPresetSelected("shockwave")
	assert.Equal(t, domain.PresetShockwave, f.session.Snapshot().Config.Preset)

	f.presenter.OnPresetSelected("no such preset")
	assert.Equal(t, domain.PresetShockwave, f.session.Snapshot().Config.Preset)
}

func TestPresenter_EffectToggle(t *testing.T) {
	f := newPresenterFixture(t)

	f.presenter.OnEffectToggled(domain.EffectBloom, true)
	fx := f.session.Snapshot().Effects
	assert.True(t, fx.On(domain.EffectBloom))
	assert.InDelta(t, defaultEffectIntensity, fx.Intensity[domain.EffectBloom], 1e-9)

	require.NoError(t, f.session.SetEffect(domain.EffectBloom, true, 0.9))
	f.presenter.OnEffectToggled(domain.EffectBloom, false)
	f.presenter.OnEffectToggled(domain.EffectBloom, true)
	assert.InDelta(t, 0.9, f.session.Snapshot().Effects.Intensity[domain.EffectBloom], 1e-9, "intensity survives a toggle")
}

func TestPresenter_PlayToggle(t *testing.T) {
	f := newPresenterFixture(t)

	f.presenter.OnPlayClicked()
	assert.True(t, f.view.snapshot().playing)
	f.presenter.OnPlayClicked()
	assert.False(t, f.view.snapshot().playing)
	assert.Equal(t, 1, f.playback.plays)
	assert.Equal(t, 1, f.playback.pauses)
}

func TestPresenter_BackgroundReloadsMedia(t *testing.T) {
	f := newPresenterFixture(t)

	f.presenter.OnBackgroundOpened("/tmp/loop.MP4")
	media := f.session.Snapshot().Media
	assert.Equal(t, "/tmp/loop.MP4", media.Background)
	assert.Equal(t, domain.BackgroundVideo, media.BackgroundKind)

	require.Len(t, f.media.requests, 1)
	req := f.media.requests[0]
	assert.Equal(t, "cover.jpg", req.CoverRef)
	assert.Equal(t, 320, req.Width)
	assert.Equal(t, 60, req.FPS)
	assert.Len(t, f.target.sets, 1)

	f.presenter.OnAlbumArtOpened("/tmp/art.png")
	assert.Equal(t, "/tmp/art.png", f.session.Snapshot().Media.AlbumArt)
	assert.Equal(t, "/tmp/loop.MP4", f.session.Snapshot().Media.Background, "other refs are kept")
	assert.Len(t, f.target.sets, 2)
}

func TestPresenter_ExportFlow(t *testing.T) {
	f := newPresenterFixture(t)

	f.presenter.OnExportClicked()
	req := <-f.exporter.started
	assert.Equal(t, "Night Drive", req.Song.Title)

	assert.Eventually(t, func() bool {
		return len(f.view.snapshot().notifications) == 1
	}, 2*time.Second, 5*time.Millisecond)

	view := f.view.snapshot()
	assert.Equal(t, "Export finished: Night Drive.mp4", view.notifications[0])
	assert.InDelta(t, 0.4, view.progress, 1e-9)
	assert.Equal(t, "Rendering frame 4 of 10", view.progressText)
	assert.False(t, view.busy)
	assert.Equal(t, "Saved out/Night Drive.mp4", view.status)
}

func TestPresenter_ExportFailureAndMediaEvents(t *testing.T) {
	f := newPresenterFixture(t)

	f.bus.Publish(domain.NewExportFailedEvent("export-1", "encode", "encoder produced an empty output", domain.ErrEmptyOutput))
	view := f.view.snapshot()
	assert.Equal(t, []string{"Export failed: encoder produced an empty output"}, view.notifications)

	f.bus.Publish(domain.NewMediaLoadFailedEvent("album_art", "x.png", domain.ErrMediaUnavailable))
	assert.Equal(t, "Could not load album art, using the default", f.view.snapshot().status)

	f.presenter.OnResetClicked()
	assert.Equal(t, 1, f.exporter.resets)
	assert.Zero(t, f.view.snapshot().progress)
}

func TestPresenter_ShutdownUnsubscribes(t *testing.T) {
	f := newPresenterFixture(t)
	f.presenter.Shutdown()
	f.presenter.Shutdown()

	assert.False(t, f.bus.HasSubscribers(domain.EventExportProgress))
}

func TestBackgroundKindFor(t *testing.T) {
	assert.Equal(t, domain.BackgroundVideo, BackgroundKindFor("clip.webm"))
	assert.Equal(t, domain.BackgroundImage, BackgroundKindFor("photo.jpeg"))
	assert.Equal(t, domain.BackgroundImage, BackgroundKindFor("https://cdn.example.com/bg"))
}
