package render

import (
	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	barsCount         = 64
	barsSpan          = 0.6
	barsBaselineRatio = 0.62 // Baseline height as fraction of the frame height
	barsHeightRatio   = 0.4  // Max bar height as fraction of the frame height
	barsGap           = 0.25 // Gap as fraction of each slot
	barsMirrorScale   = 0.45 // Reflection length relative to the bar
	barsMirrorAlpha   = 0.35
)

// barsPreset draws spectrum bars standing on a horizontal baseline with a shorter,
// translucent reflection below it.
type barsPreset struct{}

func (barsPreset) Preset() domain.Preset { return domain.PresetBars }

func (barsPreset) Render(dc *gg.Context, in PresetInput) {
	baseline := in.Height * barsBaselineRatio
	maxHeight := in.Height * barsHeightRatio
	slot := in.Width / barsCount
	width := slot * (1 - barsGap)

	grad := gg.NewLinearGradient(0, baseline, 0, baseline-maxHeight)
	grad.AddColorStop(0, in.Primary)
	grad.AddColorStop(1, in.Secondary)

	for i := 0; i < barsCount; i++ {
		v := binLevel(in.Frame, i, barsCount, barsSpan)
		h := v*maxHeight + 1
		x := float64(i)*slot + slot*barsGap/2

		dc.SetFillStyle(grad)
		dc.DrawRectangle(x, baseline-h, width, h)
		dc.Fill()

		dc.SetColor(withAlpha(in.Primary, barsMirrorAlpha))
		dc.DrawRectangle(x, baseline, width, h*barsMirrorScale)
		dc.Fill()
	}
}

var _ PresetRenderer = barsPreset{}
