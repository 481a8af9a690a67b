package analyser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

const (
	outputChannels = 2
	frameBytes     = outputChannels * 2 // int16 stereo
)

var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoRate int
)

// otoContext returns the process-wide output context. oto allows one context per
// process, so every player must share its sample rate.
func otoContext(sampleRate int) (*oto.Context, error) {
	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx != nil {
		if otoRate != sampleRate {
			return nil, fmt.Errorf("audio output already opened at %d Hz, track is %d Hz", otoRate, sampleRate)
		}
		return otoCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: outputChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("opening audio output: %w", err)
	}
	<-ready
	otoCtx, otoRate = ctx, sampleRate
	return otoCtx, nil
}

// Player plays a decoded track through oto and exposes the played position as a Tap.
//
// Thread-safety: This implementation is thread-safe.
type Player struct {
	logger     *slog.Logger
	sampleRate int
	mono       []float32

	pcm    *pcmReader
	player *oto.Player

	mu     sync.Mutex
	closed bool
}

// NewPlayer prepares track for playback. Call Play to start.
func NewPlayer(track *domain.DecodedAudio, logger *slog.Logger) (*Player, error) {
	if track == nil || len(track.Mono()) == 0 {
		return nil, fmt.Errorf("%w: empty track", domain.ErrDecodeFailed)
	}
	ctx, err := otoContext(track.SampleRate)
	if err != nil {
		return nil, err
	}

	pcm := newPCMReader(track.Channels)
	return &Player{
		logger:     logger.With(slog.String("adapter", "oto")),
		sampleRate: track.SampleRate,
		mono:       mixDown(track.Channels),
		pcm:        pcm,
		player:     ctx.NewPlayer(pcm),
	}, nil
}

// mixDown averages all channels.
func mixDown(channels [][]float32) []float32 {
	out := make([]float32, len(channels[0]))
	for _, ch := range channels {
		for i := range out {
			if i < len(ch) {
				out[i] += ch[i]
			}
		}
	}
	inv := 1 / float32(len(channels))
	for i := range out {
		out[i] *= inv
	}
	return out
}

// Play starts or resumes playback.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.player.Play()
		p.logger.Debug("playback started", slog.Duration("position", p.Position()))
	}
}

// Pause pauses playback.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.player.Pause()
	}
}

// Finished reports whether the whole track has been played.
func (p *Player) Finished() bool {
	return p.pcm.eof() && !p.player.IsPlaying()
}

// Duration returns the track length.
func (p *Player) Duration() time.Duration {
	return p.frameTime(int64(len(p.mono)))
}

// Position returns the audible position: frames handed to oto minus what it still
// buffers.
func (p *Player) Position() time.Duration {
	played := p.pcm.frames() - int64(p.player.BufferedSize()/frameBytes)
	return p.frameTime(max(0, played))
}

func (p *Player) frameTime(frames int64) time.Duration {
	return time.Duration(float64(frames) / float64(p.sampleRate) * float64(time.Second))
}

// Window fills dst with the mono samples ending at the audible position.
func (p *Player) Window(dst []float32) {
	end := int(int64(p.Position()) * int64(p.sampleRate) / int64(time.Second))
	fillWindow(dst, p.mono, end)
}

func fillWindow(dst, mono []float32, end int) {
	end = min(end, len(mono))
	start := end - len(dst)
	for i := range dst {
		j := start + i
		if j < 0 || j >= end {
			dst[i] = 0
			continue
		}
		dst[i] = mono[j]
	}
}

// Close stops playback and releases the oto player.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("closing audio player: %w", err)
	}
	return nil
}

// pcmReader serves decoded float channels as interleaved 16-bit stereo.
type pcmReader struct {
	channels [][]float32
	length   int64
	offset   atomic.Int64
}

func newPCMReader(channels [][]float32) *pcmReader {
	return &pcmReader{channels: channels, length: int64(len(channels[0]))}
}

func (r *pcmReader) frames() int64 { return r.offset.Load() }

func (r *pcmReader) eof() bool { return r.offset.Load() >= r.length }

func (r *pcmReader) Read(p []byte) (int, error) {
	off := r.offset.Load()
	if off >= r.length {
		return 0, io.EOF
	}
	n := min(int64(len(p)/frameBytes), r.length-off)
	if n == 0 {
		return 0, errors.New("read buffer smaller than one frame")
	}

	left := r.channels[0]
	right := left
	if len(r.channels) > 1 {
		right = r.channels[1]
	}
	for i := range n {
		j := off + i
		binary.LittleEndian.PutUint16(p[i*frameBytes:], uint16(toInt16(left[j])))
		binary.LittleEndian.PutUint16(p[i*frameBytes+2:], uint16(toInt16(sampleAt(right, j))))
	}
	r.offset.Add(n)
	return int(n) * frameBytes, nil
}

func sampleAt(ch []float32, i int64) float32 {
	if i < int64(len(ch)) {
		return ch[i]
	}
	return 0
}

func toInt16(s float32) int16 {
	return int16(math.Max(-1, math.Min(1, float64(s))) * 32767)
}
