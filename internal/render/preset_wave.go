package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	waveRings       = 6
	waveSegments    = 160
	waveSpan        = 0.5
	waveRadiusRatio = 0.14  // Innermost x radius as fraction of min(w,h)
	waveRadiusStep  = 0.055 // Radius added per ring
	waveAspect      = 0.62  // y radius relative to x radius
	wavePerturb     = 0.3   // Max radial displacement relative to the radius
	waveSpin        = 0.25  // Radians per second
)

// wavePreset draws concentric ellipses, each rotated and displaced along its outline
// by the spectrum.
type wavePreset struct{}

func (wavePreset) Preset() domain.Preset { return domain.PresetWave }

func (wavePreset) Render(dc *gg.Context, in PresetInput) {
	minDim := in.minDim()
	pulse := in.Pulse()

	for k := 0; k < waveRings; k++ {
		band := bandLevel(in.Frame, k, waveRings, waveSpan)
		rx := minDim * (waveRadiusRatio + float64(k)*waveRadiusStep) * pulse
		ry := rx * waveAspect
		dir := 1.0
		if k%2 == 1 {
			dir = -1
		}
		rot := in.Time*waveSpin*dir + float64(k)*math.Pi/waveRings
		cr, sr := math.Cos(rot), math.Sin(rot)

		dc.NewSubPath()
		for s := 0; s <= waveSegments; s++ {
			theta := float64(s) / waveSegments * 2 * math.Pi
			v := binLevel(in.Frame, s%waveSegments, waveSegments, waveSpan)
			r := 1 + wavePerturb*v*(0.5+0.5*math.Sin(theta*4+in.Time*2+float64(k)))
			px, py := rx*math.Cos(theta)*r, ry*math.Sin(theta)*r
			x := in.CX + px*cr - py*sr
			y := in.CY + px*sr + py*cr
			if s == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
		}
		dc.ClosePath()

		alpha := 0.35 + 0.65*(1-float64(k)/waveRings)
		dc.SetColor(withAlpha(lerpColor(in.Primary, in.Secondary, float64(k)/(waveRings-1)), alpha))
		dc.SetLineWidth(1.5 + band*3)
		dc.Stroke()
	}
}

var _ PresetRenderer = wavePreset{}
