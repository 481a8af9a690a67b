// Package render is the rendering core shared by the live preview and the offline export.
//
// It turns a Scene and one Spectrum into a composited frame: background, preset
// geometry, particles, album art, pixelate, text layers and the post-effect stack,
// always in the same order. Callers differ only in the SpectrumProvider they pass and
// in the compositor Options (grain stride, clock, random source).
package render

import (
	"math"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

const (
	// pulseGain scales normalized bass into the breathing factor.
	pulseGain = 0.15

	// offlineGain maps the mean absolute sample value of a sub-bin onto bytes.
	offlineGain = 512

	// Synthetic waveform model used offline, where no time-domain data exists.
	syntheticPhaseStep = 0.1
	syntheticTimeRate  = 10
	syntheticAmplitude = 64
)

// Spectrum is the audio input of one rendered frame.
type Spectrum struct {
	// Frequency holds domain.FrequencyBins amplitudes in [0,255]
	Frequency domain.FrequencyFrame

	// Waveform holds the time-domain samples as bytes, 128 meaning silence
	Waveform []uint8
}

// Bass returns the normalized bass level of the spectrum in [0,1].
func (s Spectrum) Bass() float64 {
	return NormBass(s.Frequency)
}

// Pulse returns the breathing factor of the spectrum in [1,1.15].
func (s Spectrum) Pulse() float64 {
	return Pulse(NormBass(s.Frequency))
}

// Bass returns the mean of the first domain.BassBins bins, in [0,255].
func Bass(frame domain.FrequencyFrame) float64 {
	n := min(domain.BassBins, len(frame))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame[:n] {
		sum += float64(v)
	}
	return sum / float64(n)
}

// NormBass returns Bass scaled to [0,1].
func NormBass(frame domain.FrequencyFrame) float64 {
	return Bass(frame) / 255
}

// Pulse maps a normalized bass level to the uniform scale applied to breathing elements.
func Pulse(normBass float64) float64 {
	return 1 + domain.Clamp01(normBass)*pulseGain
}

// SpectrumProvider supplies the spectrum for a frame.
// index is the frame number and t the elapsed time in seconds; a provider uses
// whichever of the two identifies its data.
type SpectrumProvider interface {
	Spectrum(index int, t float64) Spectrum
}

// LiveSpectrum reads the spectrum from a live analyser.
type LiveSpectrum struct {
	analyzer ports.LiveAnalyzer
	freq     domain.FrequencyFrame
	wave     []uint8
}

// NewLiveSpectrum creates a provider over analyzer.
// The returned buffers are reused on every call.
func NewLiveSpectrum(analyzer ports.LiveAnalyzer) *LiveSpectrum {
	return &LiveSpectrum{
		analyzer: analyzer,
		freq:     domain.NewFrequencyFrame(),
		wave:     make([]uint8, domain.FrequencyBins),
	}
}

// Spectrum implements SpectrumProvider. Both arguments are ignored: the analyser
// always reports the instant currently playing.
func (l *LiveSpectrum) Spectrum(int, float64) Spectrum {
	l.analyzer.FrequencyData(l.freq)
	l.analyzer.TimeDomainData(l.wave)
	return Spectrum{Frequency: l.freq, Waveform: l.wave}
}

// OfflineSpectrum serves precomputed frames and a synthetic waveform.
//
// The waveform is a sinusoid driven by the bass level, not the decoded signal, so the
// oscilloscope preset looks different offline than it does live.
type OfflineSpectrum struct {
	frames []domain.FrequencyFrame
	empty  domain.FrequencyFrame
	wave   []uint8
}

// NewOfflineSpectrum creates a provider over frames computed by ComputeFrames.
func NewOfflineSpectrum(frames []domain.FrequencyFrame) *OfflineSpectrum {
	return &OfflineSpectrum{
		frames: frames,
		empty:  domain.NewFrequencyFrame(),
		wave:   make([]uint8, domain.FrequencyBins),
	}
}

// Len returns the number of frames available.
func (o *OfflineSpectrum) Len() int {
	return len(o.frames)
}

// Spectrum implements SpectrumProvider. Indices outside the computed range yield silence.
func (o *OfflineSpectrum) Spectrum(index int, t float64) Spectrum {
	freq := o.empty
	if index >= 0 && index < len(o.frames) {
		freq = o.frames[index]
	}
	SyntheticWaveform(o.wave, NormBass(freq), t)
	return Spectrum{Frequency: freq, Waveform: o.wave}
}

// SyntheticWaveform fills dst with 128 + sin(i*0.1 + t*10) * 64 * bass.
func SyntheticWaveform(dst []uint8, bass, t float64) {
	for i := range dst {
		v := 128 + math.Sin(float64(i)*syntheticPhaseStep+t*syntheticTimeRate)*syntheticAmplitude*bass
		dst[i] = uint8(math.Max(0, math.Min(255, v)))
	}
}

// FrameCount returns how many frames of fps cover numSamples at sampleRate.
func FrameCount(numSamples, sampleRate, fps int) int {
	if numSamples <= 0 || sampleRate <= 0 || fps <= 0 {
		return 0
	}
	return (numSamples*fps + sampleRate - 1) / sampleRate
}

// ComputeFrames approximates one FrequencyFrame per output frame from mono samples.
//
// Each frame owns a window of sampleRate/fps samples, split into domain.FrequencyBins
// sub-bins of equal size. A bin is min(255, floor(mean(|s|) * 512)) over its samples;
// bins that fall past the end of the buffer stay 0. The result depends only on the
// arguments.
func ComputeFrames(samples []float32, sampleRate, fps int) []domain.FrequencyFrame {
	total := FrameCount(len(samples), sampleRate, fps)
	if total == 0 {
		return nil
	}

	window := max(1, sampleRate/fps)
	binSize := max(1, window/domain.FrequencyBins)

	frames := make([]domain.FrequencyFrame, total)
	for f := range frames {
		frame := domain.NewFrequencyFrame()
		start := f * window
		for j := range frame {
			lo := start + j*binSize
			if lo >= len(samples) {
				break
			}
			hi := min(lo+binSize, len(samples))

			var sum float64
			for _, s := range samples[lo:hi] {
				sum += math.Abs(float64(s))
			}
			v := math.Floor(sum / float64(hi-lo) * offlineGain)
			frame[j] = uint8(math.Min(255, v))
		}
		frames[f] = frame
	}
	return frames
}
