// Package domain contains core models of the visualizer with no infrastructure dependencies.
// This package defines the scene description read by the render core and the export job
// state carried by the export pipeline.
package domain

import (
	"image/color"
	"maps"
	"slices"
	"strings"
	"time"
)

const (
	// FFTSize is the analyser window used by the live spectrum provider.
	FFTSize = 2048

	// FrequencyBins is the fixed length of every FrequencyFrame (FFTSize / 2).
	FrequencyBins = FFTSize / 2

	// BassBins is the number of lowest bins averaged into the bass level.
	BassBins = 20

	// TitleLayerID identifies the text layer whose size pulses under the minimal preset.
	TitleLayerID = "title"
)

// FrequencyFrame is the per-frame amplitude spectrum, FrequencyBins values in [0,255].
// It is recomputed every frame and never persisted.
type FrequencyFrame []uint8

// NewFrequencyFrame allocates a zeroed frame of the fixed bin count.
func NewFrequencyFrame() FrequencyFrame {
	return make(FrequencyFrame, FrequencyBins)
}

// Preset names one of the ten mutually exclusive visualization geometries.
type Preset string

// Preset constants.
const (
	PresetRing         Preset = "ring"
	PresetBars         Preset = "bars"
	PresetMirror       Preset = "mirror"
	PresetWave         Preset = "wave"
	PresetOrbital      Preset = "orbital"
	PresetHexagon      Preset = "hexagon"
	PresetOscilloscope Preset = "oscilloscope"
	PresetRain         Preset = "rain"
	PresetShockwave    Preset = "shockwave"
	PresetMinimal      Preset = "minimal"
)

// PresetInfo describes a preset for catalogues and pickers.
type PresetInfo struct {
	Preset      Preset
	Name        string
	Description string
}

var presetCatalogue = []PresetInfo{
	{PresetRing, "Radial Ring", "Rotating ring of spectrum bars with a trailing glow"},
	{PresetBars, "Spectrum Bars", "Bars mirrored around a horizontal baseline"},
	{PresetMirror, "Side Bars", "Bars growing inward from both vertical edges"},
	{PresetWave, "Wave Ellipses", "Rotated concentric ellipses perturbed by the spectrum"},
	{PresetOrbital, "Orbital Arcs", "Five arcs orbiting in alternating directions"},
	{PresetHexagon, "Hexagon", "Rotating hexagon outline pulsing with the bass"},
	{PresetOscilloscope, "Oscilloscope", "Time-domain waveform as a damped line"},
	{PresetRain, "Glyph Rain", "Falling glyph columns driven by amplitude"},
	{PresetShockwave, "Shockwave", "Expanding rings around a glowing core"},
	{PresetMinimal, "Minimal", "No geometry, pulsing title only"},
}

// Presets returns the catalogue of all presets in display order.
func Presets() []PresetInfo {
	return slices.Clone(presetCatalogue)
}

// Valid reports whether p names a known preset.
func (p Preset) Valid() bool {
	return slices.ContainsFunc(presetCatalogue, func(info PresetInfo) bool {
		return info.Preset == p
	})
}

// HasAlbumArt reports whether the preset draws the circular album-art inlay.
func (p Preset) HasAlbumArt() bool {
	switch p {
	case PresetRing, PresetHexagon, PresetOrbital, PresetShockwave:
		return true
	default:
		return false
	}
}

// EffectKind names one of the thirteen toggleable post-processing effects.
type EffectKind string

// Effect kinds.
const (
	EffectShake     EffectKind = "shake"
	EffectPixelate  EffectKind = "pixelate"
	EffectScanlines EffectKind = "scanlines"
	EffectVHS       EffectKind = "vhs"
	EffectChromatic EffectKind = "chromatic"
	EffectGlitch    EffectKind = "glitch"
	EffectCCTV      EffectKind = "cctv"
	EffectBloom     EffectKind = "bloom"
	EffectGrain     EffectKind = "grain"
	EffectStrobe    EffectKind = "strobe"
	EffectVignette  EffectKind = "vignette"
	EffectHueShift  EffectKind = "hueshift"
	EffectLetterbox EffectKind = "letterbox"
)

// EffectKinds lists every effect kind.
func EffectKinds() []EffectKind {
	return []EffectKind{
		EffectShake, EffectPixelate, EffectScanlines, EffectVHS, EffectChromatic,
		EffectGlitch, EffectCCTV, EffectBloom, EffectGrain, EffectStrobe,
		EffectVignette, EffectHueShift, EffectLetterbox,
	}
}

// Valid reports whether k names a known effect.
func (k EffectKind) Valid() bool {
	return slices.Contains(EffectKinds(), k)
}

// EffectToggleSet maps effect kinds to their enabled flag. Missing keys are disabled.
type EffectToggleSet map[EffectKind]bool

// EffectIntensitySet maps effect kinds to an intensity in [0,1].
type EffectIntensitySet map[EffectKind]float64

// Effects bundles toggles with intensities.
type Effects struct {
	Enabled   EffectToggleSet    `yaml:"enabled"`
	Intensity EffectIntensitySet `yaml:"intensity"`
}

// On reports whether the effect is enabled.
func (e Effects) On(kind EffectKind) bool {
	return e.Enabled[kind]
}

// Level returns the clamped intensity of an enabled effect, or 0 when disabled.
func (e Effects) Level(kind EffectKind) float64 {
	if !e.Enabled[kind] {
		return 0
	}
	return Clamp01(e.Intensity[kind])
}

// VisualizerConfig holds the per-session look of the visualizer.
type VisualizerConfig struct {
	// Preset selects the geometry
	Preset Preset `yaml:"preset"`

	// PrimaryColor is used for the main geometry, particles and glow
	PrimaryColor color.RGBA `yaml:"-"`

	// SecondaryColor is used for gradients and accents
	SecondaryColor color.RGBA `yaml:"-"`

	// BgDim is the alpha of the black layer drawn over the background, in [0,1]
	BgDim float64 `yaml:"bg_dim"`

	// ParticleCount is the total number of particles across all populations
	ParticleCount int `yaml:"particle_count"`
}

// DefaultVisualizerConfig returns the configuration a new session starts with.
func DefaultVisualizerConfig() VisualizerConfig {
	return VisualizerConfig{
		Preset:         PresetRing,
		PrimaryColor:   color.RGBA{R: 0xec, G: 0x48, B: 0x99, A: 0xff},
		SecondaryColor: color.RGBA{R: 0x8b, G: 0x5c, B: 0xf6, A: 0xff},
		BgDim:          0.6,
		ParticleCount:  120,
	}
}

// TextLayer is one overlay string. Layers draw in slice order.
type TextLayer struct {
	// ID is unique within a scene; TitleLayerID marks the title layer
	ID string `yaml:"id"`

	// Text is the string drawn
	Text string `yaml:"text"`

	// X and Y are the anchor position as a percentage of the frame, in [0,100]
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`

	// Size is the font size in pixels
	Size float64 `yaml:"size"`

	// Color is the fill color
	Color color.RGBA `yaml:"-"`

	// Font names the face: "sans", "bold" or "mono"
	Font string `yaml:"font"`
}

// BackgroundKind tells how the background reference is decoded.
type BackgroundKind string

// Background kinds.
const (
	BackgroundNone  BackgroundKind = ""
	BackgroundImage BackgroundKind = "image"
	BackgroundVideo BackgroundKind = "video"
)

// MediaRefs points at the media the compositor draws behind and inside the geometry.
type MediaRefs struct {
	// Background is a path or URL of a still image or looping video
	Background string `yaml:"background"`

	// BackgroundKind selects the decoder for Background
	BackgroundKind BackgroundKind `yaml:"background_kind"`

	// AlbumArt is a path or URL of a custom album-art image
	AlbumArt string `yaml:"album_art"`

	// SongCover is the embedded cover of the current song, used when AlbumArt is
	// empty. It is never written after it is set, so clones share it.
	SongCover []byte `yaml:"-"`
}

// Scene is everything the render core reads for one frame.
// It is always handed to the core by value; use Clone before sharing.
type Scene struct {
	Config  VisualizerConfig `yaml:"config"`
	Effects Effects          `yaml:"effects"`
	Texts   []TextLayer      `yaml:"texts"`
	Media   MediaRefs        `yaml:"media"`
}

// DefaultScene returns a scene with the default config, no effects and no text.
func DefaultScene() Scene {
	return Scene{
		Config: DefaultVisualizerConfig(),
		Effects: Effects{
			Enabled:   EffectToggleSet{},
			Intensity: EffectIntensitySet{},
		},
	}
}

// Clone returns a copy that shares no mutable state with s. The read-only song
// cover is shared, capped so an append cannot reach the original.
func (s Scene) Clone() Scene {
	out := s
	out.Effects.Enabled = maps.Clone(s.Effects.Enabled)
	out.Effects.Intensity = maps.Clone(s.Effects.Intensity)
	out.Texts = slices.Clone(s.Texts)
	out.Media.SongCover = slices.Clip(s.Media.SongCover)
	return out
}

// Song is the audio track a video is rendered for.
type Song struct {
	// Title names the output file
	Title string

	// Artist is informational
	Artist string

	// AudioRef is a path or URL of the audio stream
	AudioRef string

	// CoverRef is a path or URL of the song cover, optional
	CoverRef string
}

// VideoFilename returns the download name of the rendered video, before any
// filesystem sanitising.
func (s Song) VideoFilename() string {
	title := strings.TrimSpace(s.Title)
	if title == "" {
		title = "visualizer"
	}
	return title + ".mp4"
}

// DecodedAudio is a fully decoded track.
type DecodedAudio struct {
	// SampleRate is the number of samples per second per channel
	SampleRate int

	// Channels holds one float32 slice per channel, samples in [-1,1]
	Channels [][]float32
}

// Duration returns the track length.
func (a *DecodedAudio) Duration() time.Duration {
	if a == nil || a.SampleRate <= 0 || len(a.Channels) == 0 {
		return 0
	}
	return time.Duration(float64(len(a.Channels[0])) / float64(a.SampleRate) * float64(time.Second))
}

// Mono returns the first channel, the one the offline spectrum is computed from.
func (a *DecodedAudio) Mono() []float32 {
	if a == nil || len(a.Channels) == 0 {
		return nil
	}
	return a.Channels[0]
}

// ExportState is a state of the export state machine.
type ExportState string

// Export states.
const (
	ExportIdle      ExportState = "idle"
	ExportCapturing ExportState = "capturing"
	ExportEncoding  ExportState = "encoding"
	ExportDone      ExportState = "done"
	ExportFailed    ExportState = "failed"
)

// Terminal reports whether no further transition leaves the state.
func (s ExportState) Terminal() bool {
	return s == ExportDone || s == ExportFailed
}

// ExportJob is a snapshot of one export run.
type ExportJob struct {
	// ID identifies the run
	ID string

	// State is the current state machine position
	State ExportState

	// Progress is the percentage in [0,100], never decreasing
	Progress float64

	// FramesRendered counts captured frames
	FramesRendered int

	// TotalFrames is the number of frames the run will capture
	TotalFrames int

	// Filename is the delivered file name once done
	Filename string

	// Message is the user-facing failure message once failed
	Message string

	// StartedAt is when the run left idle
	StartedAt time.Time
}

// Clamp01 limits v to [0,1].
func Clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
