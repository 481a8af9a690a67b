package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blend"
	"github.com/fogleman/gg"
)

// blendMode combines a foreground into a background of the same size.
type blendMode func(bg, fg image.Image) *image.RGBA

var (
	screen   blendMode = blend.Screen
	multiply blendMode = blend.Multiply
	overlay  blendMode = blend.Overlay
)

// blendColor blends a solid color over r in dst using mode at the given alpha.
func blendColor(dst *image.RGBA, r image.Rectangle, c color.RGBA, alpha float64, mode blendMode) {
	r = r.Intersect(dst.Rect)
	if r.Empty() || alpha <= 0 {
		return
	}
	fg := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(fg, fg.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	blendRegion(dst, r, fg, alpha, mode)
}

// blendImage blends src over dst with mode at the given alpha. src is aligned to
// the origin of dst and must cover it.
func blendImage(dst *image.RGBA, src image.Image, alpha float64, mode blendMode) {
	if alpha <= 0 {
		return
	}
	blendRegion(dst, dst.Rect, src, alpha, mode)
}

// blendRegion replaces r of dst with bg + alpha*(mode(bg, fg) - bg), where bg is
// that region of dst moved to the origin.
func blendRegion(dst *image.RGBA, r image.Rectangle, fg image.Image, alpha float64, mode blendMode) {
	bg := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(bg, bg.Rect, dst, r.Min, draw.Src)
	mixed := blend.Opacity(bg, mode(bg, fg), math.Min(alpha, 1))
	draw.Draw(dst, r, mixed, image.Point{}, draw.Src)
}

// radialMultiply multiplies dst by a radial falloff: 1 inside inner, fading to
// 1-strength at the corners. inner is a fraction of the half diagonal.
func radialMultiply(dst *image.RGBA, inner, strength float64) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	cx, cy := float64(w)/2, float64(h)/2
	maxDist := math.Hypot(cx, cy)
	edge := uint8(math.Round(255 * math.Max(0, math.Min(1, 1-strength))))

	dc := gg.NewContext(w, h)
	grad := gg.NewRadialGradient(cx, cy, inner*maxDist, cx, cy, maxDist)
	grad.AddColorStop(0, color.White)
	grad.AddColorStop(1, color.RGBA{R: edge, G: edge, B: edge, A: 0xff})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	blendImage(dst, dc.Image(), 1, multiply)
}
