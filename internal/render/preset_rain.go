package render

import (
	"image/color"
	"math/rand"
	"time"

	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	rainColumnWidth = 22
	rainGlyphSize   = 18
	rainSpan        = 0.7
	rainMinTrail    = 6   // Glyphs in a silent column
	rainTrailGain   = 18  // Extra glyphs at full amplitude
	rainBaseSpeed   = 140 // Pixels per second
	rainLeadGain    = 120 // Extra fall distance at full amplitude
)

var rainGlyphs = []rune("01<>/\\|=+*#$%&@ABCDEFXYZ")

// rainPreset draws falling glyph columns. Trail length and fall distance follow the
// column's amplitude; the glyphs themselves are random every frame.
type rainPreset struct{}

func (rainPreset) Preset() domain.Preset { return domain.PresetRain }

func (rainPreset) Render(dc *gg.Context, in PresetInput) {
	rng := in.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // G404: visual noise
	}

	cols := int(in.Width / rainColumnWidth)
	if cols <= 0 {
		return
	}
	dc.SetFontFace(in.fontFace(FontMono, rainGlyphSize))
	head := lerpColor(in.Primary, color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, 0.6)

	for c := 0; c < cols; c++ {
		v := binLevel(in.Frame, c, cols, rainSpan)
		trail := rainMinTrail + int(v*rainTrailGain)
		cycle := in.Height + float64(trail*rainGlyphSize)
		speed := rainBaseSpeed * (1 + 0.5*hash01(c, 1))
		y0 := wrap(in.Time*speed+hash01(c, 2)*cycle, cycle) + v*rainLeadGain
		x := float64(c)*rainColumnWidth + rainColumnWidth/2

		for g := 0; g < trail; g++ {
			y := y0 - float64(g*rainGlyphSize)
			if y < -rainGlyphSize || y > in.Height+rainGlyphSize {
				continue
			}
			alpha := 1 - float64(g)/float64(trail)
			if g == 0 {
				dc.SetColor(head)
			} else {
				dc.SetColor(withAlpha(in.Primary, alpha))
			}
			dc.DrawStringAnchored(string(rainGlyphs[rng.Intn(len(rainGlyphs))]), x, y, 0.5, 0.5)
		}
	}
}

var _ PresetRenderer = rainPreset{}
