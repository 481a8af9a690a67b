package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
)

const (
	pixelateMaxCell = 16 // Cell size at full intensity
	pixelateMinCell = 4

	scanlinePeriod = 4 // Rows per band period
	scanlineHeight = 2 // Dark rows per period

	aberrationMaxOffset = 12 // Pixels at full intensity

	glitchMaxShift = 0.05 // Strip shift as fraction of the width at full intensity

	bloomMinSigma  = 6
	bloomSigmaGain = 10

	grainAmplitude = 64 // Luminance jitter range at full intensity

	letterboxRatio = 0.1 // Bar height as fraction of the frame height
)

var (
	white     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black     = color.RGBA{A: 0xff}
	redTint   = color.RGBA{R: 0xff, G: 0x20, B: 0x20, A: 0xff}
	blueTint  = color.RGBA{R: 0x20, G: 0x40, B: 0xff, A: 0xff}
	cctvGreen = color.RGBA{R: 0x30, G: 0xff, B: 0x70, A: 0xff}
)

// PixelateGrid returns the cell size and the downsample grid for a frame.
func PixelateGrid(width, height int, intensity float64) (cell, gridW, gridH int) {
	cell = max(pixelateMinCell, int(math.Floor(pixelateMaxCell*intensity)))
	return cell, max(1, width/cell), max(1, height/cell)
}

// pixelate downsamples dst onto the grid and scales it back with nearest-neighbor.
func pixelate(dst *image.RGBA, intensity float64) {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	_, gw, gh := PixelateGrid(w, h, intensity)
	small := imaging.Resize(dst, gw, gh, imaging.Box)
	big := imaging.Resize(small, w, h, imaging.NearestNeighbor)
	draw.Draw(dst, dst.Rect, big, image.Point{}, draw.Src)
}

// scanlines darkens scanlineHeight rows out of every scanlinePeriod.
func scanlines(dst *image.RGBA, intensity float64) {
	alpha := 0.15 + 0.35*intensity
	w := dst.Rect.Dx()
	for y := dst.Rect.Min.Y; y < dst.Rect.Max.Y; y += scanlinePeriod {
		band := image.Rect(dst.Rect.Min.X, y, dst.Rect.Min.X+w, y+scanlineHeight)
		blendColor(dst, band, black, alpha, multiply)
	}
}

// aberration screens a red tint shifted right and a blue tint shifted left.
func aberration(dst *image.RGBA, intensity float64) {
	off := int(math.Max(1, aberrationMaxOffset*intensity))
	alpha := 0.06 + 0.12*intensity
	blendColor(dst, dst.Rect.Add(image.Pt(off, 0)), redTint, alpha, screen)
	blendColor(dst, dst.Rect.Add(image.Pt(-off, 0)), blueTint, alpha, screen)
}

// trackingBand screens a thin bright band at a random row, like a VHS tracking error.
func trackingBand(dst *image.RGBA, intensity float64, rng *rand.Rand) {
	h := dst.Rect.Dy()
	bandH := 6 + rng.Intn(max(1, h/36))
	y := dst.Rect.Min.Y + rng.Intn(max(1, h))
	band := image.Rect(dst.Rect.Min.X, y, dst.Rect.Max.X, y+bandH)
	blendColor(dst, band, white, 0.08+0.12*intensity, screen)
}

// glitch shifts a random strip sideways and drops a random block, each with
// probability intensity. It reports whether anything fired.
func glitch(dst *image.RGBA, intensity float64, palette [2]color.RGBA, rng *rand.Rand) bool {
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	fired := false

	if rng.Float64() < intensity {
		fired = true
		stripH := 8 + rng.Intn(max(1, h/12))
		y := rng.Intn(max(1, h-stripH))
		shift := int((rng.Float64()*2 - 1) * float64(w) * glitchMaxShift * math.Max(intensity, 0.2))

		strip := image.NewRGBA(image.Rect(0, 0, w, stripH))
		draw.Draw(strip, strip.Rect, dst, image.Pt(dst.Rect.Min.X, dst.Rect.Min.Y+y), draw.Src)
		target := image.Rect(shift, y, shift+w, y+stripH).Add(dst.Rect.Min)
		draw.Draw(dst, target, strip, image.Point{}, draw.Src)
	}

	if rng.Float64() < intensity {
		fired = true
		bw := 20 + rng.Intn(max(1, w/5))
		bh := 5 + rng.Intn(max(1, h/16))
		x, y := rng.Intn(max(1, w-bw)), rng.Intn(max(1, h-bh))
		c := palette[rng.Intn(2)]
		if rng.Intn(3) == 0 {
			c = color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 0xff}
		}
		block := image.Rect(x, y, x+bw, y+bh).Add(dst.Rect.Min)
		draw.Draw(dst, block, image.NewUniform(withAlpha(c, 0.5+0.3*rng.Float64())), image.Point{}, draw.Over)
	}
	return fired
}

// cctv tints the frame green, darkens the corners and stamps the REC label.
// stamp is drawn bottom right when non-empty.
func cctv(dst *image.RGBA, intensity float64, faces *faceCache, stamp string) {
	blendColor(dst, dst.Rect, cctvGreen, 0.2+0.3*intensity, overlay)
	radialMultiply(dst, 0.45, 0.5+0.4*intensity)

	w, h := float64(dst.Rect.Dx()), float64(dst.Rect.Dy())
	size := math.Max(12, h*0.035)
	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(faces.face(FontMono, size))

	dc.SetRGB255(0xff, 0x20, 0x20)
	dc.DrawCircle(w*0.04, h*0.06, size*0.3)
	dc.Fill()
	dc.SetRGB255(0xe8, 0xff, 0xe8)
	dc.DrawStringAnchored("REC", w*0.04+size*0.6, h*0.06, 0, 0.35)

	if stamp != "" {
		dc.DrawStringAnchored(stamp, w*0.96, h*0.94, 1, 0.35)
	}
}

// bloom screens a blurred copy of src into dst.
func bloom(dst, src *image.RGBA, intensity float64) {
	copy(dst.Pix, src.Pix)
	blurred := imaging.Blur(src, bloomMinSigma+bloomSigmaGain*intensity)
	blendImage(dst, blurred, 0.3+0.4*intensity, screen)
}

// grain jitters the luminance of every stride-th pixel.
func grain(dst *image.RGBA, intensity float64, stride int, rng *rand.Rand) {
	stride = max(1, stride)
	amp := intensity * grainAmplitude
	for i := 0; i+2 < len(dst.Pix); i += 4 * stride {
		n := (rng.Float64() - 0.5) * amp
		dst.Pix[i] = jitter(dst.Pix[i], n)
		dst.Pix[i+1] = jitter(dst.Pix[i+1], n)
		dst.Pix[i+2] = jitter(dst.Pix[i+2], n)
	}
}

func jitter(v uint8, n float64) uint8 {
	return uint8(math.Max(0, math.Min(255, float64(v)+n)))
}

// strobeThreshold is the bass level above which the strobe may fire.
func strobeThreshold(intensity float64) float64 {
	return 0.75 - 0.35*intensity
}

// strobe flashes white when bass passes the threshold and the dice agree.
func strobe(dst *image.RGBA, intensity, bass float64, rng *rand.Rand) bool {
	if bass <= strobeThreshold(intensity) || rng.Float64() >= intensity {
		return false
	}
	blendColor(dst, dst.Rect, white, 0.3+0.5*bass*intensity, screen)
	return true
}

// vignette darkens toward the corners with a radial gradient.
func vignette(dst *image.RGBA, intensity float64) {
	w, h := float64(dst.Rect.Dx()), float64(dst.Rect.Dy())
	cx, cy := w/2, h/2
	dc := gg.NewContextForRGBA(dst)
	grad := gg.NewRadialGradient(cx, cy, math.Min(w, h)*0.3, cx, cy, math.Hypot(cx, cy))
	grad.AddColorStop(0, color.NRGBA{})
	grad.AddColorStop(1, color.NRGBA{A: uint8(255 * (0.4 + 0.5*intensity))})
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
}

// hueRotate writes src rotated by degrees on the color wheel into dst, using the
// luminance-preserving hue-rotate matrix.
func hueRotate(dst, src *image.RGBA, degrees float64) {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	m := [9]float64{
		0.213 + c*0.787 - s*0.213, 0.715 - c*0.715 - s*0.715, 0.072 - c*0.072 + s*0.928,
		0.213 - c*0.213 + s*0.143, 0.715 + c*0.285 + s*0.140, 0.072 - c*0.072 - s*0.283,
		0.213 - c*0.213 - s*0.787, 0.715 - c*0.715 + s*0.715, 0.072 + c*0.928 + s*0.072,
	}
	rotated := adjust.Apply(src, func(p color.RGBA) color.RGBA {
		r, g, b := float64(p.R), float64(p.G), float64(p.B)
		return color.RGBA{
			R: clampByte(m[0]*r + m[1]*g + m[2]*b),
			G: clampByte(m[3]*r + m[4]*g + m[5]*b),
			B: clampByte(m[6]*r + m[7]*g + m[8]*b),
			A: p.A,
		}
	})
	draw.Draw(dst, dst.Rect, rotated, rotated.Rect.Min, draw.Src)
}

func clampByte(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}

// LetterboxHeight returns the height of each letterbox bar.
func LetterboxHeight(height int) int {
	return int(math.Round(float64(height) * letterboxRatio))
}

// letterbox paints black bars over the top and bottom.
func letterbox(dst *image.RGBA) {
	bar := LetterboxHeight(dst.Rect.Dy())
	r := dst.Rect
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+bar), image.Black, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-bar, r.Max.X, r.Max.Y), image.Black, image.Point{}, draw.Src)
}
