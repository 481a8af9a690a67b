// Package decode turns complete audio files into PCM for the offline export and the
// live preview. MP3, WAV, FLAC and Ogg Vorbis are supported.
package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// Format is a supported container/codec.
type Format string

// Supported formats.
const (
	FormatUnknown Format = ""
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
)

// ctxCheckInterval is how many decoded frames pass between context checks.
const ctxCheckInterval = 256

// Decoder implements ports.AudioDecoder.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder creates a decoder.
func NewDecoder(logger *slog.Logger) *Decoder {
	return &Decoder{logger: logger.With(slog.String("adapter", "decode"))}
}

// Detect picks the format from the file extension, then from magic bytes.
func Detect(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return FormatMP3
	case ".wav", ".wave":
		return FormatWAV
	case ".flac":
		return FormatFLAC
	case ".ogg", ".oga":
		return FormatOGG
	}
	return sniff(data)
}

func sniff(data []byte) Format {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOGG
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return FormatMP3 // MPEG frame sync
	}
	return FormatUnknown
}

// Decode decodes data into per-channel float samples.
func (d *Decoder) Decode(ctx context.Context, name string, data []byte) (*domain.DecodedAudio, error) {
	format := Detect(name, data)

	var (
		audio *domain.DecodedAudio
		err   error
	)
	switch format {
	case FormatMP3:
		audio, err = decodeMP3(ctx, data)
	case FormatWAV:
		audio, err = decodeWAV(data)
	case FormatFLAC:
		audio, err = decodeFLAC(ctx, data)
	case FormatOGG:
		audio, err = decodeOGG(data)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, name)
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrDecodeFailed, format, err)
	}
	if len(audio.Channels) == 0 || len(audio.Channels[0]) == 0 || audio.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %s: no samples", domain.ErrDecodeFailed, format)
	}

	d.logger.Debug("audio decoded",
		slog.String("name", name),
		slog.String("format", string(format)),
		slog.Int("sample_rate", audio.SampleRate),
		slog.Int("channels", len(audio.Channels)),
		slog.Duration("duration", audio.Duration()))
	return audio, nil
}

// decodeMP3 reads the whole stream. go-mp3 always yields 16-bit stereo.
func decodeMP3(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	const frameBytes = 4
	var pcm bytes.Buffer
	if n := dec.Length(); n > 0 {
		pcm.Grow(int(n))
	}
	buf := make([]byte, 64*1024)
	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		n, err := dec.Read(buf)
		pcm.Write(buf[:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	raw := pcm.Bytes()
	frames := len(raw) / frameBytes
	left, right := make([]float32, frames), make([]float32, frames)
	for i := range frames {
		left[i] = pcm16(raw[i*frameBytes:])
		right[i] = pcm16(raw[i*frameBytes+2:])
	}
	return &domain.DecodedAudio{SampleRate: dec.SampleRate(), Channels: [][]float32{left, right}}, nil
}

func pcm16(b []byte) float32 {
	return float32(int16(binary.LittleEndian.Uint16(b))) / 32768
}

func decodeWAV(data []byte) (*domain.DecodedAudio, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	if channels <= 0 {
		return nil, errors.New("WAV without channels")
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}
	scale, err := pcmScale(depth)
	if err != nil {
		return nil, err
	}

	frames := len(buf.Data) / channels
	out := newChannels(channels, frames)
	for i := range frames {
		for ch := range channels {
			s := buf.Data[i*channels+ch]
			if depth == 8 {
				s -= 128 // 8-bit WAV is unsigned
			}
			out[ch][i] = float32(s) / scale
		}
	}
	return &domain.DecodedAudio{SampleRate: int(dec.SampleRate), Channels: out}, nil
}

// pcmScale returns the full-scale value of signed integer PCM samples of depth bits.
func pcmScale(depth int) (float32, error) {
	if depth <= 0 || depth > 32 {
		return 0, fmt.Errorf("unsupported PCM bit depth %d", depth)
	}
	return float32(int64(1) << (depth - 1)), nil
}

func decodeFLAC(ctx context.Context, data []byte) (*domain.DecodedAudio, error) {
	stream, err := flac.New(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	info := stream.Info
	channels := int(info.NChannels)
	scale, err := pcmScale(int(info.BitsPerSample))
	if err != nil {
		return nil, err
	}
	out := newChannels(channels, int(info.NSamples))
	for ch := range out {
		out[ch] = out[ch][:0]
	}

	for i := 0; ; i++ {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		frame, err := stream.ParseNext()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for ch := 0; ch < channels && ch < len(frame.Subframes); ch++ {
			for _, s := range frame.Subframes[ch].Samples {
				out[ch] = append(out[ch], float32(s)/scale)
			}
		}
	}
	return &domain.DecodedAudio{SampleRate: int(info.SampleRate), Channels: out}, nil
}

func decodeOGG(data []byte) (*domain.DecodedAudio, error) {
	samples, format, err := oggvorbis.ReadAll(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if format.Channels <= 0 {
		return nil, errors.New("ogg stream without channels")
	}

	frames := len(samples) / format.Channels
	out := newChannels(format.Channels, frames)
	for i := range frames {
		for ch := range format.Channels {
			out[ch][i] = samples[i*format.Channels+ch]
		}
	}
	return &domain.DecodedAudio{SampleRate: format.SampleRate, Channels: out}, nil
}

func newChannels(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	return out
}

var _ ports.AudioDecoder = (*Decoder)(nil)
