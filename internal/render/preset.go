package render

import (
	"image/color"
	"math"
	"math/rand"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

// PresetInput is everything a preset may depend on.
type PresetInput struct {
	// CX and CY are the center point of the geometry
	CX, CY float64

	// Width and Height are the frame size
	Width, Height float64

	// Frame is the frequency spectrum of this instant
	Frame domain.FrequencyFrame

	// Waveform is the time-domain signal of this instant (128 = silence)
	Waveform []uint8

	// Time is the elapsed time in seconds
	Time float64

	// Primary and Secondary are the palette
	Primary, Secondary color.RGBA

	// Rand drives glyph choice in the rain preset only; nil uses an unseeded source
	Rand *rand.Rand

	faces *faceCache
}

// Bass returns the normalized bass level of the frame.
func (in PresetInput) Bass() float64 {
	return NormBass(in.Frame)
}

// Pulse returns the breathing factor of the frame.
func (in PresetInput) Pulse() float64 {
	return Pulse(in.Bass())
}

func (in PresetInput) minDim() float64 {
	return math.Min(in.Width, in.Height)
}

func (in PresetInput) fontFace(name string, size float64) font.Face {
	faces := in.faces
	if faces == nil {
		faces = newFaceCache()
	}
	return faces.face(name, size)
}

// PresetRenderer draws one preset geometry.
//
// Render must draw the same pixels for the same input. The rain preset is the only
// exception: its glyphs come from in.Rand.
type PresetRenderer interface {
	// Preset returns the preset this renderer draws.
	Preset() domain.Preset

	// Render draws the geometry onto dc.
	Render(dc *gg.Context, in PresetInput)
}

// NewPresetRenderer returns the renderer of p. Unknown presets draw nothing.
func NewPresetRenderer(p domain.Preset) PresetRenderer {
	switch p {
	case domain.PresetRing:
		return ringPreset{}
	case domain.PresetBars:
		return barsPreset{}
	case domain.PresetMirror:
		return mirrorPreset{}
	case domain.PresetWave:
		return wavePreset{}
	case domain.PresetOrbital:
		return orbitalPreset{}
	case domain.PresetHexagon:
		return hexagonPreset{}
	case domain.PresetOscilloscope:
		return oscilloscopePreset{}
	case domain.PresetRain:
		return rainPreset{}
	case domain.PresetShockwave:
		return shockwavePreset{}
	default:
		return minimalPreset{}
	}
}

// minimalPreset has no geometry; the scene relies on the pulsing title.
type minimalPreset struct{}

func (minimalPreset) Preset() domain.Preset { return domain.PresetMinimal }

func (minimalPreset) Render(*gg.Context, PresetInput) {}

var _ PresetRenderer = minimalPreset{}
