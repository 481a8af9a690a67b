package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	orbitalArcs        = 5
	orbitalSpan        = 0.5
	orbitalRadiusRatio = 0.2   // Innermost radius as fraction of min(w,h)
	orbitalRadiusStep  = 0.055 // Radius added per arc
	orbitalBaseSpeed   = 0.6   // Radians per second of the innermost arc
	orbitalSpeedStep   = 0.25
	orbitalMinSweep    = 0.2 * math.Pi
	orbitalSweepGain   = 1.3 * math.Pi
	orbitalWidth       = 3
	orbitalWidthGain   = 12
	orbitalGlowScale   = 2.5 // Glow stroke width relative to the arc
)

// orbitalPreset draws five arcs orbiting the center in alternating directions.
// Arc length and width follow the arc's band; the glow widens with the arc.
type orbitalPreset struct{}

func (orbitalPreset) Preset() domain.Preset { return domain.PresetOrbital }

func (orbitalPreset) Render(dc *gg.Context, in PresetInput) {
	minDim := in.minDim()
	pulse := in.Pulse()

	dc.SetLineCapRound()
	for k := 0; k < orbitalArcs; k++ {
		level := bandLevel(in.Frame, k, orbitalArcs, orbitalSpan)
		dir := 1.0
		if k%2 == 1 {
			dir = -1
		}
		speed := orbitalBaseSpeed + float64(k)*orbitalSpeedStep
		r := minDim * (orbitalRadiusRatio + float64(k)*orbitalRadiusStep) * pulse
		start := dir*in.Time*speed + float64(k)*2*math.Pi/orbitalArcs
		sweep := orbitalMinSweep + level*orbitalSweepGain
		width := orbitalWidth + level*orbitalWidthGain
		c := lerpColor(in.Primary, in.Secondary, float64(k)/(orbitalArcs-1))

		dc.NewSubPath()
		dc.DrawArc(in.CX, in.CY, r, start, start+sweep)
		dc.SetColor(withAlpha(c, 0.12+0.1*level))
		dc.SetLineWidth(width * orbitalGlowScale)
		dc.Stroke()

		dc.NewSubPath()
		dc.DrawArc(in.CX, in.CY, r, start, start+sweep)
		dc.SetColor(c)
		dc.SetLineWidth(width)
		dc.Stroke()
	}
}

var _ PresetRenderer = orbitalPreset{}
