package render

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

var (
	pureRed  = color.RGBA{R: 255, A: 255}
	pureBlue = color.RGBA{B: 255, A: 255}
)

func testScene(preset domain.Preset) domain.Scene {
	scene := domain.DefaultScene()
	scene.Config.Preset = preset
	scene.Config.ParticleCount = 60
	scene.Texts = []domain.TextLayer{
		{ID: domain.TitleLayerID, Text: "Night Drive", X: 50, Y: 80, Size: 28, Color: color.RGBA{R: 255, G: 255, B: 255, A: 255}, Font: FontBold},
	}
	return scene
}

func testFrame(scene domain.Scene) Frame {
	wave := make([]uint8, domain.FrequencyBins)
	SyntheticWaveform(wave, 0.7, 2)
	return Frame{
		Scene:    scene,
		Spectrum: Spectrum{Frequency: rampFrame(), Waveform: wave},
		Time:     2,
	}
}

func seeded(seed int64) Options {
	return Options{GrainStride: LiveGrainStride, Rand: rand.New(rand.NewSource(seed))}
}

func clonePix(img *image.RGBA) []uint8 {
	return slices.Clone(img.Pix)
}

func TestPixelateGrid(t *testing.T) {
	cell, gw, gh := PixelateGrid(1920, 1080, 0.3)
	assert.Equal(t, 4, cell)
	assert.Equal(t, 480, gw)
	assert.Equal(t, 270, gh)

	cell, gw, gh = PixelateGrid(1920, 1080, 1)
	assert.Equal(t, 16, cell)
	assert.Equal(t, 120, gw)
	assert.Equal(t, 67, gh)

	cell, _, _ = PixelateGrid(1920, 1080, 0)
	assert.Equal(t, 4, cell, "cells never shrink below 4px")
}

func TestPixelateProducesUniformCells(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	rng := rand.New(rand.NewSource(1))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}

	pixelate(img, 0.3)

	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			cellOrigin := img.RGBAAt(x/4*4, y/4*4)
			require.Equal(t, cellOrigin, img.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestRenderWithAllEffectsDisabledIsIdentity(t *testing.T) {
	scene := testScene(domain.PresetRing)
	for _, kind := range domain.EffectKinds() {
		scene.Effects.Enabled[kind] = false
		scene.Effects.Intensity[kind] = 1
	}
	frame := testFrame(scene)

	withToggles := NewCompositor(320, 180, seeded(1)).Render(frame)

	bare := testFrame(testScene(domain.PresetRing))
	bare.Scene.Effects = domain.Effects{}
	withoutEffects := NewCompositor(320, 180, seeded(99)).Render(bare)
	assert.Equal(t, withToggles.Pix, withoutEffects.Pix)

	layersOnly := NewCompositor(320, 180, seeded(5))
	layersOnly.drawScene(frame)
	layersOnly.drawTexts(frame)
	assert.Equal(t, withToggles.Pix, layersOnly.front.Pix)
}

func TestRenderIsStableForDeterministicScene(t *testing.T) {
	scene := testScene(domain.PresetOrbital)
	scene.Effects.Enabled[domain.EffectBloom] = true
	scene.Effects.Intensity[domain.EffectBloom] = 0.5
	scene.Effects.Enabled[domain.EffectVignette] = true
	scene.Effects.Intensity[domain.EffectVignette] = 0.5
	scene.Effects.Enabled[domain.EffectHueShift] = true
	scene.Effects.Intensity[domain.EffectHueShift] = 0.25

	c := NewCompositor(160, 90, Options{})
	first := clonePix(c.Render(testFrame(scene)))
	second := c.Render(testFrame(scene))
	assert.Equal(t, first, second.Pix, "double buffering must not leak state between frames")
}

func TestTextLayersDrawInListOrder(t *testing.T) {
	base := testScene(domain.PresetMinimal)
	base.Config.ParticleCount = 0
	layerA := domain.TextLayer{ID: "a", Text: "MMMM", X: 50, Y: 85, Size: 200, Color: pureRed, Font: FontBold}
	layerB := domain.TextLayer{ID: "b", Text: "MMMM", X: 50, Y: 92, Size: 200, Color: pureBlue, Font: FontBold}

	render := func(layers ...domain.TextLayer) *image.RGBA {
		scene := base.Clone()
		scene.Texts = layers
		out := NewCompositor(1920, 1080, seeded(1)).Render(testFrame(scene))
		return out
	}

	onlyA := render(layerA)
	onlyB := render(layerB)
	both := render(layerA, layerB)

	overlap, redVisible := 0, 0
	for y := 0; y < 1080; y++ {
		for x := 0; x < 1920; x++ {
			a, b, ab := onlyA.RGBAAt(x, y), onlyB.RGBAAt(x, y), both.RGBAAt(x, y)
			if a == pureRed && b == pureBlue {
				overlap++
				require.Equal(t, pureBlue, ab, "later layer must cover earlier one at (%d,%d)", x, y)
			}
			if ab == pureRed {
				redVisible++
			}
		}
	}
	assert.Positive(t, overlap, "layers should overlap")
	assert.Positive(t, redVisible, "earlier layer still renders where uncovered")
}

func TestTitlePulsesOnlyUnderMinimalPreset(t *testing.T) {
	loud := func(scene domain.Scene) Frame {
		f := testFrame(scene)
		f.Spectrum.Frequency = filledFrame(255)
		return f
	}
	quiet := func(scene domain.Scene) Frame {
		f := testFrame(scene)
		f.Spectrum.Frequency = domain.NewFrequencyFrame()
		return f
	}

	minimal := testScene(domain.PresetMinimal)
	minimal.Config.ParticleCount = 0
	a := clonePix(NewCompositor(320, 180, seeded(1)).Render(loud(minimal)))
	b := NewCompositor(320, 180, seeded(1)).Render(quiet(minimal))
	assert.NotEqual(t, a, b.Pix, "title should grow with the bass under minimal")

	c := NewCompositor(320, 180, seeded(1))
	c.drawTexts(loud(testScene(domain.PresetBars)))
	d := NewCompositor(320, 180, seeded(1))
	d.drawTexts(quiet(testScene(domain.PresetBars)))
	assert.Equal(t, c.front.Pix, d.front.Pix, "title keeps its size under other presets")
}

func TestCCTVTimestampNeedsClock(t *testing.T) {
	scene := testScene(domain.PresetHexagon)
	scene.Effects.Enabled[domain.EffectCCTV] = true
	scene.Effects.Intensity[domain.EffectCCTV] = 0.5

	offlineA := clonePix(NewCompositor(320, 180, seeded(1)).Render(testFrame(scene)))
	offlineB := NewCompositor(320, 180, seeded(2)).Render(testFrame(scene))
	assert.Equal(t, offlineA, offlineB.Pix, "without a clock the overlay is deterministic")

	opts := seeded(1)
	opts.Clock = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	live := NewCompositor(320, 180, opts).Render(testFrame(scene))
	assert.NotEqual(t, offlineA, live.Pix)
}

func TestLetterboxBarsAreBlack(t *testing.T) {
	scene := testScene(domain.PresetBars)
	scene.Config.ParticleCount = 300
	scene.Effects.Enabled[domain.EffectLetterbox] = true
	scene.Effects.Intensity[domain.EffectLetterbox] = 1

	out := NewCompositor(320, 180, seeded(1)).Render(testFrame(scene))
	bar := LetterboxHeight(180)
	require.Equal(t, 18, bar)
	for x := 0; x < 320; x++ {
		for _, y := range []int{0, bar - 1, 180 - bar, 179} {
			require.Equal(t, color.RGBA{A: 255}, out.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestGrainRespectsStride(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 8))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	grain(img, 1, 16, rand.New(rand.NewSource(3)))

	changed := 0
	for p := 0; p < 64*8; p++ {
		if img.Pix[p*4] != 128 {
			changed++
			assert.Zero(t, p%16, "pixel %d is off the stride", p)
		}
	}
	assert.Positive(t, changed)
}

func TestHueRotateFullTurnIsIdentity(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	rng := rand.New(rand.NewSource(4))
	for i := range src.Pix {
		src.Pix[i] = uint8(rng.Intn(256))
	}
	dst := image.NewRGBA(src.Rect)

	hueRotate(dst, src, 0)
	assert.Equal(t, src.Pix, dst.Pix)
}

func TestBlendModes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 100
	}
	blendColor(img, img.Rect, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1, screen)
	assert.Equal(t, uint8(255), img.Pix[0], "screen with white is white")

	blendColor(img, img.Rect, color.RGBA{A: 255}, 1, multiply)
	assert.Equal(t, uint8(0), img.Pix[0], "multiply with black is black")

	blendColor(img, image.Rect(0, 0, 2, 4), color.RGBA{R: 255, A: 255}, 0.5, screen)
	assert.InDelta(t, 128, int(img.RGBAAt(0, 0).R), 1)
	assert.Equal(t, uint8(0), img.RGBAAt(3, 0).R, "pixels outside the rectangle are untouched")
}

func TestRadialMultiplyDarkensCorners(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 36))
	draw.Draw(img, img.Rect, image.NewUniform(color.RGBA{R: 200, G: 200, B: 200, A: 0xff}), image.Point{}, draw.Src)

	radialMultiply(img, 0.45, 0.5)

	assert.InDelta(t, 200, int(img.RGBAAt(32, 18).R), 1, "the center is untouched")
	corner := img.RGBAAt(0, 0).R
	assert.Less(t, corner, uint8(120))
	assert.Greater(t, corner, uint8(80))
	assert.Equal(t, uint8(0xff), img.RGBAAt(0, 0).A)
}
