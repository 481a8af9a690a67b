package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	ringBars        = 120  // Bars around the circle
	ringSpan        = 0.7  // Fraction of the spectrum spread over the ring
	ringRadiusRatio = 0.22 // Base radius as fraction of min(w,h)
	ringHeightRatio = 0.26 // Max bar height as fraction of min(w,h)
	ringExponent    = 1.6  // Power curve applied to bin amplitude
	ringSpin        = 0.15 // Radians per second
	ringGlowRatio   = 0.35 // Glow segment length relative to the bar
	ringGlowAlpha   = 0.25
)

// ringPreset draws spectrum bars radiating from a rotating circle. Each bar carries a
// faint trailing segment past its tip.
type ringPreset struct{}

func (ringPreset) Preset() domain.Preset { return domain.PresetRing }

func (ringPreset) Render(dc *gg.Context, in PresetInput) {
	minDim := in.minDim()
	radius := minDim * ringRadiusRatio * in.Pulse()
	width := 2 * math.Pi * radius / ringBars * 0.6

	dc.SetLineCapRound()
	dc.SetLineWidth(width)
	for i := 0; i < ringBars; i++ {
		v := binLevel(in.Frame, i, ringBars, ringSpan)
		h := math.Pow(v, ringExponent)*minDim*ringHeightRatio + 2
		angle := float64(i)/ringBars*2*math.Pi + in.Time*ringSpin
		cos, sin := math.Cos(angle), math.Sin(angle)

		c := lerpColor(in.Primary, in.Secondary, float64(i)/ringBars)
		dc.SetColor(c)
		dc.DrawLine(in.CX+cos*radius, in.CY+sin*radius, in.CX+cos*(radius+h), in.CY+sin*(radius+h))
		dc.Stroke()

		glow := radius + h + h*ringGlowRatio
		dc.SetColor(withAlpha(c, ringGlowAlpha))
		dc.DrawLine(in.CX+cos*(radius+h), in.CY+sin*(radius+h), in.CX+cos*glow, in.CY+sin*glow)
		dc.Stroke()
	}
}

var _ PresetRenderer = ringPreset{}
