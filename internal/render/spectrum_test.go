package render

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

func filledFrame(v uint8) domain.FrequencyFrame {
	f := domain.NewFrequencyFrame()
	for i := range f {
		f[i] = v
	}
	return f
}

func TestBassAndPulse(t *testing.T) {
	tests := []struct {
		name      string
		frame     domain.FrequencyFrame
		wantBass  float64
		wantPulse float64
	}{
		{"silence", domain.NewFrequencyFrame(), 0, 1},
		{"full scale", filledFrame(255), 255, 1.15},
		{"empty frame", domain.FrequencyFrame{}, 0, 1},
		{"short frame", domain.FrequencyFrame{100, 200}, 150, 1 + 150.0/255*0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.wantBass, Bass(tt.frame), 1e-9)
			assert.InDelta(t, tt.wantPulse, Pulse(NormBass(tt.frame)), 1e-9)
		})
	}
}

func TestBassUsesOnlyLowestBins(t *testing.T) {
	frame := domain.NewFrequencyFrame()
	for i := domain.BassBins; i < len(frame); i++ {
		frame[i] = 255
	}
	assert.Zero(t, Bass(frame))

	for i := 0; i < domain.BassBins; i++ {
		frame[i] = uint8(i * 10)
	}
	assert.InDelta(t, 95.0, Bass(frame), 1e-9)
}

func TestNormBassAndPulseStayInRange(t *testing.T) {
	for v := 0; v <= 255; v += 17 {
		frame := filledFrame(uint8(v))
		nb := NormBass(frame)
		assert.GreaterOrEqual(t, nb, 0.0)
		assert.LessOrEqual(t, nb, 1.0)

		p := Pulse(nb)
		assert.GreaterOrEqual(t, p, 1.0)
		assert.LessOrEqual(t, p, 1.15)
	}
}

func sineSamples(seconds float64, sampleRate int, freq float64) []float32 {
	n := int(seconds * float64(sampleRate))
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return out
}

func TestComputeFramesTenSecondsAtThirtyFPS(t *testing.T) {
	samples := sineSamples(10, 44100, 110)

	frames := ComputeFrames(samples, 44100, 30)
	require.Len(t, frames, 300)
	for _, f := range frames {
		require.Len(t, f, domain.FrequencyBins)
	}

	again := ComputeFrames(samples, 44100, 30)
	assert.Equal(t, frames, again, "offline spectra must be deterministic")
}

func TestComputeFramesBinValues(t *testing.T) {
	quarter := make([]float32, 44100)
	for i := range quarter {
		if i%2 == 0 {
			quarter[i] = 0.25
		} else {
			quarter[i] = -0.25
		}
	}
	frames := ComputeFrames(quarter, 44100, 30)
	require.NotEmpty(t, frames)
	// mean(|s|) = 0.25 -> floor(0.25 * 512) = 128
	assert.Equal(t, uint8(128), frames[0][0])
	assert.Equal(t, uint8(128), frames[0][domain.FrequencyBins-1])

	loud := make([]float32, 44100)
	for i := range loud {
		loud[i] = 1
	}
	frames = ComputeFrames(loud, 44100, 30)
	assert.Equal(t, uint8(255), frames[10][500], "values saturate at 255")
}

func TestComputeFramesPartialLastWindow(t *testing.T) {
	// 1.5 windows of samples: the second frame is only half covered
	samples := make([]float32, 1470+735)
	for i := range samples {
		samples[i] = 0.5
	}
	frames := ComputeFrames(samples, 44100, 30)
	require.Len(t, frames, 2)
	assert.Equal(t, uint8(255), frames[1][0])
	assert.Equal(t, uint8(0), frames[1][domain.FrequencyBins-1], "bins past the buffer stay silent")
}

func TestComputeFramesRejectsEmptyInput(t *testing.T) {
	assert.Nil(t, ComputeFrames(nil, 44100, 30))
	assert.Nil(t, ComputeFrames([]float32{1}, 0, 30))
	assert.Nil(t, ComputeFrames([]float32{1}, 44100, 0))
	assert.Equal(t, 0, FrameCount(0, 44100, 30))
	assert.Equal(t, 1, FrameCount(1, 44100, 30))
}

func TestSyntheticWaveform(t *testing.T) {
	wave := make([]uint8, 64)

	SyntheticWaveform(wave, 0, 3.7)
	for _, v := range wave {
		assert.Equal(t, uint8(128), v, "no bass means a flat line")
	}

	SyntheticWaveform(wave, 1, 0.5)
	for _, i := range []int{0, 7, 31} {
		want := 128 + math.Sin(float64(i)*0.1+0.5*10)*64
		assert.InDelta(t, want, float64(wave[i]), 1)
	}
}

// The offline oscilloscope draws a sinusoid driven by bass instead of the decoded
// signal. These assertions pin that known difference from the live view.
func TestOfflineSpectrumWaveformIsSynthetic(t *testing.T) {
	silent := domain.NewFrequencyFrame()
	loud := filledFrame(255)
	provider := NewOfflineSpectrum([]domain.FrequencyFrame{silent, loud})
	require.Equal(t, 2, provider.Len())

	s := provider.Spectrum(0, 0)
	for _, v := range s.Waveform {
		assert.Equal(t, uint8(128), v)
	}

	s = provider.Spectrum(1, 0.25)
	assert.Equal(t, loud, s.Frequency)
	assert.InDelta(t, 128+math.Sin(0.25*10)*64, float64(s.Waveform[0]), 1)

	s = provider.Spectrum(99, 1)
	assert.Equal(t, domain.NewFrequencyFrame(), s.Frequency, "out of range frames are silent")
}

type stubAnalyzer struct {
	level uint8
	wave  uint8
	calls int
}

func (s *stubAnalyzer) FrequencyData(dst []uint8) {
	s.calls++
	for i := range dst {
		dst[i] = s.level
	}
}

func (s *stubAnalyzer) TimeDomainData(dst []uint8) {
	for i := range dst {
		dst[i] = s.wave
	}
}

func (s *stubAnalyzer) Position() time.Duration { return 0 }

func TestLiveSpectrumReadsAnalyzer(t *testing.T) {
	a := &stubAnalyzer{level: 200, wave: 90}
	live := NewLiveSpectrum(a)

	s := live.Spectrum(0, 0)
	assert.Equal(t, 1, a.calls)
	assert.Len(t, s.Frequency, domain.FrequencyBins)
	assert.Equal(t, uint8(200), s.Frequency[5])
	assert.Equal(t, uint8(90), s.Waveform[5])
	assert.InDelta(t, 200.0/255, s.Bass(), 1e-9)
}
