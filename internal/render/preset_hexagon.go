package render

import (
	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	hexRadiusRatio = 0.3 // Radius as fraction of min(w,h)
	hexSpin        = 0.5 // Radians per second
	hexWidth       = 4
	hexGlowWidth   = 14
	hexInnerRatio  = 0.82
)

// hexagonPreset draws a rotating hexagon whose radius breathes with the pulse factor,
// and a counter-rotating inner outline.
type hexagonPreset struct{}

func (hexagonPreset) Preset() domain.Preset { return domain.PresetHexagon }

func (hexagonPreset) Render(dc *gg.Context, in PresetInput) {
	r := in.minDim() * hexRadiusRatio * in.Pulse()
	rot := in.Time * hexSpin

	dc.SetLineJoinRound()

	dc.DrawRegularPolygon(6, in.CX, in.CY, r, rot)
	dc.SetColor(withAlpha(in.Primary, 0.18))
	dc.SetLineWidth(hexGlowWidth)
	dc.Stroke()

	dc.DrawRegularPolygon(6, in.CX, in.CY, r, rot)
	dc.SetColor(in.Primary)
	dc.SetLineWidth(hexWidth)
	dc.Stroke()

	dc.DrawRegularPolygon(6, in.CX, in.CY, r*hexInnerRatio, -rot)
	dc.SetColor(withAlpha(in.Secondary, 0.6))
	dc.SetLineWidth(hexWidth / 2)
	dc.Stroke()
}

var _ PresetRenderer = hexagonPreset{}
