package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	scopeWidthRatio     = 0.9 // Horizontal extent as fraction of the frame width
	scopeAmplitudeRatio = 0.3 // Max deflection as fraction of the frame height
	scopeWidth          = 3
	scopeGlowWidth      = 10
)

// oscilloscopePreset draws the waveform as a polyline across the center, damped
// toward both ends so it meets the axis.
type oscilloscopePreset struct{}

func (oscilloscopePreset) Preset() domain.Preset { return domain.PresetOscilloscope }

func (oscilloscopePreset) Render(dc *gg.Context, in PresetInput) {
	n := len(in.Waveform)
	if n < 2 {
		return
	}
	span := in.Width * scopeWidthRatio
	x0 := in.CX - span/2
	amp := in.Height * scopeAmplitudeRatio

	trace := func() {
		dc.NewSubPath()
		for i, s := range in.Waveform {
			f := float64(i) / float64(n-1)
			damp := math.Sin(math.Pi * f)
			y := in.CY + (float64(s)-128)/128*amp*damp
			if i == 0 {
				dc.MoveTo(x0, y)
			} else {
				dc.LineTo(x0+f*span, y)
			}
		}
	}

	dc.SetLineJoinRound()
	trace()
	dc.SetColor(withAlpha(in.Secondary, 0.25))
	dc.SetLineWidth(scopeGlowWidth)
	dc.Stroke()

	trace()
	dc.SetColor(in.Primary)
	dc.SetLineWidth(scopeWidth)
	dc.Stroke()
}

var _ PresetRenderer = oscilloscopePreset{}
