package render

import (
	"math"

	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	mirrorRows       = 48
	mirrorSpan       = 0.6
	mirrorWidthRatio = 0.32 // Max bar length as fraction of the frame width
	mirrorGap        = 0.3
	mirrorMinAlpha   = 0.25
)

// mirrorPreset draws horizontal bars growing inward from both vertical edges. Bass
// sits at the vertical center; bar alpha follows amplitude.
type mirrorPreset struct{}

func (mirrorPreset) Preset() domain.Preset { return domain.PresetMirror }

func (mirrorPreset) Render(dc *gg.Context, in PresetInput) {
	slot := in.Height / mirrorRows
	height := slot * (1 - mirrorGap)
	half := mirrorRows / 2
	center := float64(mirrorRows-1) / 2

	for i := 0; i < mirrorRows; i++ {
		k := int(math.Abs(float64(i) - center))
		v := binLevel(in.Frame, k, half, mirrorSpan)
		w := v*in.Width*mirrorWidthRatio + 2
		y := float64(i)*slot + slot*mirrorGap/2
		alpha := mirrorMinAlpha + (1-mirrorMinAlpha)*v

		dc.SetColor(withAlpha(in.Primary, alpha))
		dc.DrawRectangle(0, y, w, height)
		dc.Fill()

		dc.SetColor(withAlpha(in.Secondary, alpha))
		dc.DrawRectangle(in.Width-w, y, w, height)
		dc.Fill()
	}
}

var _ PresetRenderer = mirrorPreset{}
