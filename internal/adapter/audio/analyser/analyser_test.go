package analyser

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

type staticTap struct {
	samples []float32
	pos     time.Duration
}

func (s *staticTap) Window(dst []float32) { fillWindow(dst, s.samples, len(s.samples)) }

func (s *staticTap) Position() time.Duration { return s.pos }

// toneTap returns a tap holding a sine centered on FFT bin k.
func toneTap(k int, amplitude float64) *staticTap {
	samples := make([]float32, domain.FFTSize)
	for i := range samples {
		samples[i] = float32(amplitude * math.Sin(2*math.Pi*float64(k)*float64(i)/domain.FFTSize))
	}
	return &staticTap{samples: samples}
}

func argmax(frame []uint8) int {
	best := 0
	for i, v := range frame {
		if v > frame[best] {
			best = i
		}
	}
	return best
}

func TestFrequencyDataPeaksAtToneBin(t *testing.T) {
	a := New(toneTap(40, 0.01), DefaultConfig())
	frame := domain.NewFrequencyFrame()
	for range 10 {
		a.FrequencyData(frame)
	}

	assert.Equal(t, 40, argmax(frame))
	assert.Greater(t, frame[40], frame[39])
	assert.Greater(t, frame[40], frame[41])
	assert.Zero(t, frame[600])
}

func TestFrequencyDataSmoothsAcrossCalls(t *testing.T) {
	a := New(toneTap(12, 0.001), DefaultConfig())
	frame := domain.NewFrequencyFrame()

	a.FrequencyData(frame)
	first := frame[12]
	for range 40 {
		a.FrequencyData(frame)
	}
	assert.Less(t, first, frame[12], "smoothing ramps the level up over successive reads")
	assert.Positive(t, first)
}

func TestSilenceReadsAsZeroAndMidline(t *testing.T) {
	a := New(&staticTap{samples: make([]float32, 100)}, DefaultConfig())

	freq := make([]uint8, domain.FrequencyBins+8)
	for i := range freq {
		freq[i] = 7
	}
	a.FrequencyData(freq)
	for i, v := range freq {
		require.Zero(t, v, "bin %d", i)
	}

	wave := make([]uint8, domain.FrequencyBins)
	a.TimeDomainData(wave)
	for i, v := range wave {
		require.Equal(t, uint8(128), v, "sample %d", i)
	}
}

func TestTimeDomainDataScalesSamples(t *testing.T) {
	a := New(&staticTap{samples: []float32{-1, 0, 0.5, 1}}, DefaultConfig())
	wave := make([]uint8, 4)
	a.TimeDomainData(wave)
	assert.Equal(t, []uint8{0, 128, 192, 255}, wave)
}

func TestPositionComesFromTap(t *testing.T) {
	a := New(&staticTap{pos: 1500 * time.Millisecond}, DefaultConfig())
	assert.Equal(t, 1500*time.Millisecond, a.Position())
}

func TestFillWindowPadsBeforeStart(t *testing.T) {
	mono := []float32{1, 2, 3, 4, 5}
	dst := make([]float32, 4)

	fillWindow(dst, mono, 2)
	assert.Equal(t, []float32{0, 0, 1, 2}, dst)

	fillWindow(dst, mono, 99)
	assert.Equal(t, []float32{2, 3, 4, 5}, dst)
}

func TestPCMReaderInterleavesStereo(t *testing.T) {
	r := newPCMReader([][]float32{{1, -1, 0.5}, {0, 0.25, -2}})

	buf := make([]byte, 2*frameBytes+3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2*frameBytes, n)
	assert.Equal(t, int64(2), r.frames())

	sample := func(i int) int16 { return int16(binary.LittleEndian.Uint16(buf[i*2:])) }
	assert.Equal(t, []int16{32767, 0, -32767, 8191}, []int16{sample(0), sample(1), sample(2), sample(3)})

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, frameBytes, n)
	assert.Equal(t, int16(-32767), sample(1), "out-of-range samples are clipped")
	assert.True(t, r.eof())

	_, err = r.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMixDownAverages(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, mixDown([][]float32{{1, 1}, {0, -1}}))
}
