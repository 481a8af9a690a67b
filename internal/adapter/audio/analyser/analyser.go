// Package analyser implements the live frequency analyser and the playback it taps.
//
// Byte scaling follows the browser analyser convention so that the live preview and
// exported videos look alike: a Blackman window over domain.FFTSize samples,
// exponential smoothing across calls, and a decibel range mapped onto [0,255].
package analyser

import (
	"math"
	"math/cmplx"
	"sync"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// Tap exposes the samples around the playback position.
type Tap interface {
	// Window fills dst with the mono samples ending at the playback position.
	// Positions before the start of the track read as silence.
	Window(dst []float32)

	// Position returns the playback position.
	Position() time.Duration
}

// Config holds analyser settings.
type Config struct {
	Smoothing   float64 // Time constant in [0,1)
	MinDecibels float64 // Maps to byte 0
	MaxDecibels float64 // Maps to byte 255
}

// DefaultConfig returns the browser analyser defaults.
func DefaultConfig() Config {
	return Config{
		Smoothing:   0.8,
		MinDecibels: -100,
		MaxDecibels: -30,
	}
}

// Analyser implements ports.LiveAnalyzer over a Tap.
//
// Thread-safety: This implementation is thread-safe.
type Analyser struct {
	tap Tap
	cfg Config

	mu       sync.Mutex
	fft      *fourier.FFT
	window   []float64
	samples  []float32
	seq      []float64
	coeffs   []complex128
	smoothed []float64
}

// New creates an analyser reading from tap.
func New(tap Tap, cfg Config) *Analyser {
	if cfg.MaxDecibels <= cfg.MinDecibels {
		cfg.MinDecibels, cfg.MaxDecibels = DefaultConfig().MinDecibels, DefaultConfig().MaxDecibels
	}
	cfg.Smoothing = math.Max(0, math.Min(cfg.Smoothing, 1))

	return &Analyser{
		tap:      tap,
		cfg:      cfg,
		fft:      fourier.NewFFT(domain.FFTSize),
		window:   blackman(domain.FFTSize),
		samples:  make([]float32, domain.FFTSize),
		seq:      make([]float64, domain.FFTSize),
		smoothed: make([]float64, domain.FrequencyBins),
	}
}

func blackman(n int) []float64 {
	const a0, a1, a2 = 0.42, 0.5, 0.08
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

// FrequencyData fills dst with the smoothed, byte-scaled spectrum.
// Every call advances the smoothing state.
func (a *Analyser) FrequencyData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tap.Window(a.samples)
	for i, s := range a.samples {
		a.seq[i] = float64(s) * a.window[i]
	}
	a.coeffs = a.fft.Coefficients(a.coeffs, a.seq)

	tau := a.cfg.Smoothing
	scale := 255 / (a.cfg.MaxDecibels - a.cfg.MinDecibels)
	for k := range a.smoothed {
		mag := cmplx.Abs(a.coeffs[k]) / domain.FFTSize
		a.smoothed[k] = tau*a.smoothed[k] + (1-tau)*mag
	}

	for k := range dst {
		if k >= len(a.smoothed) {
			dst[k] = 0
			continue
		}
		db := 20 * math.Log10(a.smoothed[k])
		v := math.Floor((db - a.cfg.MinDecibels) * scale)
		switch {
		case math.IsNaN(v) || v <= 0:
			dst[k] = 0
		case v >= 255:
			dst[k] = 255
		default:
			dst[k] = uint8(v)
		}
	}
}

// TimeDomainData fills dst with the most recent len(dst) samples as bytes, 128 being
// silence.
func (a *Analyser) TimeDomainData(dst []uint8) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tap.Window(a.samples)
	n := min(len(dst), len(a.samples))
	tail := a.samples[len(a.samples)-n:]
	for i, s := range tail {
		dst[i] = uint8(math.Max(0, math.Min(255, math.Floor(128*(1+float64(s))))))
	}
	for i := n; i < len(dst); i++ {
		dst[i] = 128
	}
}

// Position returns the playback position of the tap.
func (a *Analyser) Position() time.Duration {
	return a.tap.Position()
}

var _ ports.LiveAnalyzer = (*Analyser)(nil)
