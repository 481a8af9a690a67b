package main

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/adapter/eventbus"
	"github.com/fspecii/ace-step-ui/internal/app"
	"github.com/fspecii/ace-step-ui/internal/domain"
)

func newTestApp(t *testing.T) *app.Application {
	t.Helper()
	cfg := app.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.SceneDir = t.TempDir()
	cfg.Logger.Output = io.Discard
	a, err := app.NewApplication(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Shutdown)
	return a
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"export", "preview", "presets"})
}

func TestExportRequiresAudio(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"export"})

	err := root.Execute()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio")
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.Preset
		wantErr bool
	}{
		{"ring", domain.PresetRing, false},
		{"HEXAGON", domain.PresetHexagon, false},
		{"Glyph Rain", domain.PresetRain, false},
		{" minimal ", domain.PresetMinimal, false},
		{"laser", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePreset(tt.in)
			if tt.wantErr {
				var verr *domain.ValidationError
				assert.True(t, errors.As(err, &verr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEffect(t *testing.T) {
	tests := []struct {
		in        string
		wantKind  domain.EffectKind
		wantLevel float64
		wantErr   bool
	}{
		{"bloom", domain.EffectBloom, defaultEffectIntensity, false},
		{"VHS=0.8", domain.EffectVHS, 0.8, false},
		{"grain = 0", domain.EffectGrain, 0, false},
		{"sepia", "", 0, true},
		{"bloom=2", "", 0, true},
		{"bloom=loud", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			kind, level, err := parseEffect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.InDelta(t, tt.wantLevel, level, 1e-9)
		})
	}
}

func TestSceneFlagsApply(t *testing.T) {
	a := newTestApp(t)
	f := sceneFlags{
		preset:     "orbital",
		effects:    []string{"bloom=0.7", "scanlines"},
		background: "/media/loop.mp4",
		albumArt:   "/media/art.png",
	}

	require.NoError(t, f.apply(a))

	scene := a.Session().Snapshot()
	assert.Equal(t, domain.PresetOrbital, scene.Config.Preset)
	assert.InDelta(t, 0.7, scene.Effects.Level(domain.EffectBloom), 1e-9)
	assert.InDelta(t, defaultEffectIntensity, scene.Effects.Level(domain.EffectScanlines), 1e-9)
	assert.Equal(t, "/media/loop.mp4", scene.Media.Background)
	assert.Equal(t, domain.BackgroundVideo, scene.Media.BackgroundKind)
	assert.Equal(t, "/media/art.png", scene.Media.AlbumArt)
}

func TestSceneFlagsApplyLayersOverridesOnScene(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Session().SetPreset(domain.PresetWave))
	require.NoError(t, a.Session().SetEffect(domain.EffectGrain, true, 0.3))
	require.NoError(t, a.SaveScene("base"))
	require.NoError(t, a.Session().Replace(domain.DefaultScene()))

	f := sceneFlags{scene: "base", effects: []string{"vignette=1"}}
	require.NoError(t, f.apply(a))

	scene := a.Session().Snapshot()
	assert.Equal(t, domain.PresetWave, scene.Config.Preset)
	assert.True(t, scene.Effects.On(domain.EffectGrain))
	assert.True(t, scene.Effects.On(domain.EffectVignette))
}

func TestSceneFlagsApplyRejectsUnknownEffect(t *testing.T) {
	a := newTestApp(t)
	f := sceneFlags{effects: []string{"sepia"}}

	assert.Error(t, f.apply(a))
}

func TestExportFlagsRequest(t *testing.T) {
	f := exportFlags{sceneFlags: sceneFlags{audio: "song.mp3", title: "Song"}, seed: 42}

	req := f.request()
	assert.Nil(t, req.Seed)
	assert.Equal(t, "song.mp3", req.Song.AudioRef)

	f.seedSet = true
	req = f.request()
	require.NotNil(t, req.Seed)
	assert.Equal(t, int64(42), *req.Seed)
}

func TestExportFlagsConfig(t *testing.T) {
	f := exportFlags{
		sceneFlags: sceneFlags{sceneDir: "scenes", logLevel: "debug"},
		outDir:     "videos",
		width:      1280,
		height:     720,
		fps:        24,
		quality:    80,
		ffmpeg:     "/opt/ffmpeg",
		origin:     "https://app.example.com",
	}

	cfg := f.config()

	assert.Equal(t, "videos", cfg.OutputDir)
	assert.Equal(t, 1280, cfg.Export.Width)
	assert.Equal(t, 720, cfg.Export.Height)
	assert.Equal(t, 24, cfg.Export.FPS)
	assert.Equal(t, 80, cfg.Export.JPEGQuality)
	assert.Equal(t, "/opt/ffmpeg", cfg.Encoder.Binary)
	assert.Equal(t, "/opt/ffmpeg", cfg.Media.FFmpeg)
	assert.Equal(t, "https://app.example.com", cfg.Media.Origin)
	assert.Equal(t, "DEBUG", cfg.Logger.Level.String())
}

type fakeLister struct {
	names []string
	err   error
}

func (f fakeLister) List() ([]string, error) { return f.names, f.err }

func TestListPresets(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, listPresets(&buf, fakeLister{names: []string{"neon"}}))

	out := buf.String()
	for _, info := range domain.Presets() {
		assert.Contains(t, out, info.Name)
	}
	assert.Contains(t, out, "hueshift")
	assert.Contains(t, out, "Scenes:")
	assert.Contains(t, out, "neon")
}

func TestListPresetsWithoutScenes(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, listPresets(&buf, fakeLister{}))
	assert.NotContains(t, buf.String(), "Scenes:")

	assert.Error(t, listPresets(&buf, fakeLister{err: errors.New("disk on fire")}))
}

func TestProgressReporter(t *testing.T) {
	bus := eventbus.NewSyncEventBus(nil)
	var out bytes.Buffer
	r := newProgressReporter(bus, &out)

	bus.Publish(domain.NewExportProgressEvent(domain.ExportJob{ID: "export-1", State: domain.ExportCapturing, Progress: 15}))
	assert.Equal(t, 15, r.Percent())

	bus.Publish(domain.NewExportProgressEvent(domain.ExportJob{ID: "export-1", State: domain.ExportEncoding, Progress: 80}))
	assert.Equal(t, 80, r.Percent())

	bus.Publish(domain.NewExportProgressEvent(domain.ExportJob{ID: "export-1", State: domain.ExportDone, Progress: 100}))
	assert.Equal(t, 100, r.Percent())

	// Finished bars ignore stragglers
	bus.Publish(domain.NewExportProgressEvent(domain.ExportJob{ID: "export-1", State: domain.ExportEncoding, Progress: 90}))
	assert.Equal(t, 100, r.Percent())

	r.Close()
	assert.False(t, bus.HasSubscribers(domain.EventExportProgress))
}

func TestStageLabel(t *testing.T) {
	tests := []struct {
		event domain.ExportProgressEvent
		want  string
	}{
		{domain.ExportProgressEvent{State: domain.ExportCapturing}, "Preparing"},
		{domain.ExportProgressEvent{State: domain.ExportCapturing, Progress: 10}, "Decoding"},
		{domain.ExportProgressEvent{State: domain.ExportCapturing, Progress: 30, FramesRendered: 5, TotalFrames: 90}, "Rendering"},
		{domain.ExportProgressEvent{State: domain.ExportEncoding, Progress: 80}, "Encoding"},
		{domain.ExportProgressEvent{State: domain.ExportDone, Progress: 100}, "Done"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stageLabel(tt.event))
	}
}
