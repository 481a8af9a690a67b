package render

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	// Camera shake
	shakeBaseThreshold = 0.6  // Bass level that triggers shake at zero intensity
	shakeThresholdGain = 0.3  // Threshold reduction at full intensity
	shakeBackground    = 24.0 // Max background offset in pixels at full intensity and bass
	shakePreset        = 8.0  // Max preset offset in pixels
	shakeZoom          = 0.06 // Max extra background zoom

	albumArtRatio   = 0.13 // Inlay radius as fraction of min(w,h)
	albumGlowPasses = 3

	textShadowAlpha = 0.6

	// Live grain stride and offline grain stride.
	LiveGrainStride    = 4
	OfflineGrainStride = 16

	timestampLayout = "2006-01-02 15:04:05"
)

// Options configure a Compositor.
type Options struct {
	// GrainStride applies film grain to every GrainStride-th pixel; zero means 1
	GrainStride int

	// Rand drives shake, glitch, grain, strobe and the rain glyphs; nil seeds from the clock
	Rand *rand.Rand

	// Clock stamps the CCTV overlay; nil omits the timestamp
	Clock func() time.Time
}

// Frame is the per-frame input of the compositor. Scene must not be mutated while
// Render runs; pass a snapshot.
type Frame struct {
	Scene    domain.Scene
	Spectrum Spectrum

	// Time is the elapsed time in seconds
	Time float64

	// Background is the still image or current video frame, nil when there is none
	Background image.Image

	// AlbumArt is the inlay image, nil draws the placeholder
	AlbumArt image.Image
}

// Compositor renders frames of a fixed size.
//
// A Compositor is not safe for concurrent use. The live loop and the export pipeline
// each own one.
type Compositor struct {
	width, height int
	opts          Options
	rng           *rand.Rand
	faces         *faceCache
	presets       map[domain.Preset]PresetRenderer

	// front holds the frame being built; self-compositing stages write back and swap
	front, back *image.RGBA

	bgSrc, bgFit image.Image

	artSrc  image.Image
	artSize int
	artFit  image.Image
}

// NewCompositor creates a compositor for width x height frames.
func NewCompositor(width, height int, opts Options) *Compositor {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // G404: visual noise
	}
	if opts.GrainStride <= 0 {
		opts.GrainStride = 1
	}
	bounds := image.Rect(0, 0, width, height)
	return &Compositor{
		width:   width,
		height:  height,
		opts:    opts,
		rng:     rng,
		faces:   newFaceCache(),
		presets: make(map[domain.Preset]PresetRenderer),
		front:   image.NewRGBA(bounds),
		back:    image.NewRGBA(bounds),
	}
}

// Size returns the frame size.
func (c *Compositor) Size() (int, int) {
	return c.width, c.height
}

// Render composites one frame and returns it.
// The returned image is owned by the compositor and overwritten by the next call.
func (c *Compositor) Render(f Frame) *image.RGBA {
	c.drawScene(f)
	if f.Scene.Effects.On(domain.EffectPixelate) {
		pixelate(c.front, f.Scene.Effects.Level(domain.EffectPixelate))
	}
	c.drawTexts(f)
	c.postProcess(f)
	return c.front
}

func (c *Compositor) context() *gg.Context {
	return gg.NewContextForRGBA(c.front)
}

func (c *Compositor) swap() {
	c.front, c.back = c.back, c.front
}

func (c *Compositor) renderer(p domain.Preset) PresetRenderer {
	r, ok := c.presets[p]
	if !ok {
		r = NewPresetRenderer(p)
		c.presets[p] = r
	}
	return r
}

// drawScene runs the layer stages: clear, background, preset, particles, album art.
func (c *Compositor) drawScene(f Frame) {
	dc := c.context()
	w, h := float64(c.width), float64(c.height)
	cfg := f.Scene.Config
	bass := f.Spectrum.Bass()

	dc.SetColor(black)
	dc.Clear()

	shaking := false
	var shake float64
	if f.Scene.Effects.On(domain.EffectShake) {
		shake = f.Scene.Effects.Level(domain.EffectShake)
		shaking = bass > shakeBaseThreshold-shakeThresholdGain*shake
	}

	if f.Background != nil {
		dc.Push()
		if shaking {
			amp := shakeBackground * shake * bass
			dc.Translate(c.jitter(amp), c.jitter(amp))
			zoom := 1 + shakeZoom*shake*bass
			dc.ScaleAbout(zoom, zoom, w/2, h/2)
		}
		dc.DrawImage(c.fitBackground(f.Background), 0, 0)
		dc.Pop()

		dc.SetRGBA(0, 0, 0, domain.Clamp01(cfg.BgDim))
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
	}

	in := PresetInput{
		CX:        w / 2,
		CY:        h / 2,
		Width:     w,
		Height:    h,
		Frame:     f.Spectrum.Frequency,
		Waveform:  f.Spectrum.Waveform,
		Time:      f.Time,
		Primary:   cfg.PrimaryColor,
		Secondary: cfg.SecondaryColor,
		Rand:      c.rng,
		faces:     c.faces,
	}
	dc.Push()
	if shaking {
		amp := shakePreset * shake * bass
		dc.Translate(c.jitter(amp), c.jitter(amp))
	}
	c.renderer(cfg.Preset).Render(dc, in)
	dc.Pop()

	DrawParticles(dc, ParticleParams{
		Width:  w,
		Height: h,
		Time:   f.Time,
		Bass:   bass,
		Count:  cfg.ParticleCount,
		Color:  cfg.PrimaryColor,
	})

	if cfg.Preset.HasAlbumArt() {
		c.drawAlbumArt(dc, f.AlbumArt, cfg, f.Spectrum.Pulse())
	}
}

func (c *Compositor) jitter(amp float64) float64 {
	return (c.rng.Float64()*2 - 1) * amp
}

// fitBackground scales bg to cover the frame. Still images are resized once;
// frames that already match the size are drawn as is.
func (c *Compositor) fitBackground(bg image.Image) image.Image {
	if b := bg.Bounds(); b.Dx() == c.width && b.Dy() == c.height {
		return bg
	}
	if bg != c.bgSrc {
		c.bgSrc = bg
		c.bgFit = imaging.Fill(bg, c.width, c.height, imaging.Center, imaging.Linear)
	}
	return c.bgFit
}

func (c *Compositor) drawAlbumArt(dc *gg.Context, art image.Image, cfg domain.VisualizerConfig, pulse float64) {
	cx, cy := float64(c.width)/2, float64(c.height)/2
	radius := math.Min(float64(c.width), float64(c.height)) * albumArtRatio * pulse

	dc.Push()
	dc.DrawCircle(cx, cy, radius)
	dc.Clip()
	if art == nil {
		dc.SetColor(darken(cfg.SecondaryColor, 0.35))
		dc.DrawRectangle(cx-radius, cy-radius, 2*radius, 2*radius)
		dc.Fill()
	} else {
		dc.DrawImageAnchored(c.fitAlbumArt(art, int(math.Ceil(2*radius))), int(cx), int(cy), 0.5, 0.5)
	}
	dc.ResetClip()
	dc.Pop()

	for k := albumGlowPasses; k >= 1; k-- {
		dc.DrawCircle(cx, cy, radius)
		dc.SetColor(withAlpha(cfg.PrimaryColor, 0.12*float64(albumGlowPasses-k+1)))
		dc.SetLineWidth(float64(2 + 4*k))
		dc.Stroke()
	}
	dc.DrawCircle(cx, cy, radius)
	dc.SetColor(cfg.PrimaryColor)
	dc.SetLineWidth(3)
	dc.Stroke()
}

func (c *Compositor) fitAlbumArt(art image.Image, size int) image.Image {
	if art != c.artSrc || size != c.artSize {
		c.artSrc = art
		c.artSize = size
		c.artFit = imaging.Fill(art, size, size, imaging.Center, imaging.Linear)
	}
	return c.artFit
}

// drawTexts draws the text layers in order, each over a drop shadow. The title
// layer pulses under the minimal preset only.
func (c *Compositor) drawTexts(f Frame) {
	if len(f.Scene.Texts) == 0 {
		return
	}
	dc := c.context()
	w, h := float64(c.width), float64(c.height)
	pulse := f.Spectrum.Pulse()

	for _, layer := range f.Scene.Texts {
		if layer.Text == "" || layer.Size <= 0 {
			continue
		}
		size := layer.Size
		if layer.ID == domain.TitleLayerID && f.Scene.Config.Preset == domain.PresetMinimal {
			size *= pulse
		}
		dc.SetFontFace(c.faces.face(layer.Font, size))
		x, y := layer.X/100*w, layer.Y/100*h
		off := math.Max(2, size*0.04)

		dc.SetColor(color.NRGBA{A: uint8(255 * textShadowAlpha)})
		dc.DrawStringAnchored(layer.Text, x+off, y+off, 0.5, 0.5)
		dc.SetColor(orWhite(layer.Color))
		dc.DrawStringAnchored(layer.Text, x, y, 0.5, 0.5)
	}
}

// postProcess runs the effect stages after the text overlay, in their fixed order.
// Disabled stages touch nothing, including the random source.
func (c *Compositor) postProcess(f Frame) {
	fx := f.Scene.Effects
	bass := f.Spectrum.Bass()

	if fx.On(domain.EffectScanlines) || fx.On(domain.EffectCCTV) {
		scanlines(c.front, math.Max(fx.Level(domain.EffectScanlines), fx.Level(domain.EffectCCTV)))
	}

	if fx.On(domain.EffectVHS) {
		lvl := fx.Level(domain.EffectVHS)
		aberration(c.front, lvl)
		trackingBand(c.front, lvl, c.rng)
	}
	if fx.On(domain.EffectChromatic) {
		aberration(c.front, fx.Level(domain.EffectChromatic))
	}
	if fx.On(domain.EffectGlitch) {
		lvl := fx.Level(domain.EffectGlitch)
		palette := [2]color.RGBA{f.Scene.Config.PrimaryColor, f.Scene.Config.SecondaryColor}
		if glitch(c.front, lvl, palette, c.rng) {
			aberration(c.front, lvl)
		}
	}

	if fx.On(domain.EffectCCTV) {
		stamp := ""
		if c.opts.Clock != nil {
			stamp = c.opts.Clock().Format(timestampLayout)
		}
		cctv(c.front, fx.Level(domain.EffectCCTV), c.faces, stamp)
	}

	if fx.On(domain.EffectBloom) {
		bloom(c.back, c.front, fx.Level(domain.EffectBloom))
		c.swap()
	}

	if fx.On(domain.EffectGrain) {
		grain(c.front, fx.Level(domain.EffectGrain), c.opts.GrainStride, c.rng)
	}

	if fx.On(domain.EffectStrobe) {
		strobe(c.front, fx.Level(domain.EffectStrobe), bass, c.rng)
	}

	if fx.On(domain.EffectVignette) {
		vignette(c.front, fx.Level(domain.EffectVignette))
	}

	if fx.On(domain.EffectHueShift) {
		hueRotate(c.back, c.front, fx.Level(domain.EffectHueShift)*360)
		c.swap()
	}

	if fx.On(domain.EffectLetterbox) {
		letterbox(c.front)
	}
}
