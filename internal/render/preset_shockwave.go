package render

import (
	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	shockRings     = 3
	shockPeriod    = 1.6  // Seconds for a ring to reach its max radius
	shockMaxRatio  = 0.48 // Max ring radius as fraction of min(w,h)
	shockCoreRatio = 0.12 // Core radius as fraction of min(w,h)
	shockWidth     = 3
)

// shockwavePreset draws rings expanding from a glowing core. Ring reach, ring
// strength and core size all scale with the bass level.
type shockwavePreset struct{}

func (shockwavePreset) Preset() domain.Preset { return domain.PresetShockwave }

func (shockwavePreset) Render(dc *gg.Context, in PresetInput) {
	minDim := in.minDim()
	bass := in.Bass()
	reach := minDim * shockMaxRatio * (0.6 + 0.4*bass)

	for k := 0; k < shockRings; k++ {
		phase := wrap(in.Time/shockPeriod+float64(k)/shockRings, 1)
		dc.DrawCircle(in.CX, in.CY, phase*reach+1)
		dc.SetColor(withAlpha(in.Primary, (1-phase)*(0.4+0.6*bass)))
		dc.SetLineWidth(shockWidth*(1+2*bass)*(1-phase) + 0.5)
		dc.Stroke()
	}

	core := minDim * shockCoreRatio * (1 + bass) * in.Pulse()
	grad := gg.NewRadialGradient(in.CX, in.CY, 0, in.CX, in.CY, core)
	grad.AddColorStop(0, withAlpha(in.Primary, 0.9))
	grad.AddColorStop(0.5, withAlpha(in.Secondary, 0.4))
	grad.AddColorStop(1, withAlpha(in.Secondary, 0))
	dc.SetFillStyle(grad)
	dc.DrawCircle(in.CX, in.CY, core)
	dc.Fill()
}

var _ PresetRenderer = shockwavePreset{}
