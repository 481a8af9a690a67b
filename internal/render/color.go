package render

import (
	"image/color"
	"math"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

// withAlpha returns c with its alpha replaced by a in [0,1].
func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(domain.Clamp01(a) * 255)}
}

// lerpColor blends a toward b by t in [0,1].
func lerpColor(a, b color.RGBA, t float64) color.RGBA {
	t = domain.Clamp01(t)
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t))
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}

// darken scales the channels of c by f in [0,1].
func darken(c color.RGBA, f float64) color.RGBA {
	f = domain.Clamp01(f)
	return color.RGBA{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
		A: 0xff,
	}
}

// orWhite substitutes opaque white for the zero color.
func orWhite(c color.RGBA) color.RGBA {
	if c == (color.RGBA{}) {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return c
}

// binLevel returns the level in [0,1] of bar i of n, sampling the lowest span
// fraction of the spectrum where musical energy lives.
func binLevel(frame domain.FrequencyFrame, i, n int, span float64) float64 {
	if len(frame) == 0 || n <= 0 {
		return 0
	}
	idx := int(float64(i) / float64(n) * span * float64(len(frame)))
	idx = min(max(idx, 0), len(frame)-1)
	return float64(frame[idx]) / 255
}

// bandLevel returns the mean level in [0,1] of band k of n over the lowest span
// fraction of the spectrum.
func bandLevel(frame domain.FrequencyFrame, k, n int, span float64) float64 {
	if len(frame) == 0 || n <= 0 {
		return 0
	}
	width := float64(len(frame)) * span / float64(n)
	lo := int(float64(k) * width)
	hi := max(lo+1, int(float64(k+1)*width))
	hi = min(hi, len(frame))
	if lo >= hi {
		return 0
	}
	var sum float64
	for _, v := range frame[lo:hi] {
		sum += float64(v)
	}
	return sum / float64(hi-lo) / 255
}

// hash01 is a stable pseudo-random value in [0,1) for an index and a salt.
func hash01(i, salt int) float64 {
	x := math.Sin(float64(i)*12.9898+float64(salt)*78.233) * 43758.5453
	return x - math.Floor(x)
}

// wrap returns x modulo m in [0,m).
func wrap(x, m float64) float64 {
	if m <= 0 {
		return 0
	}
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
