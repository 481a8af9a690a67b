package service

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// fakeEncoder keeps its files in memory and records every call.
type fakeEncoder struct {
	mu sync.Mutex

	loaded  bool
	loadErr error

	files    map[string][]byte
	captured map[string][]byte // every write, kept after delete
	deleted  []string

	// output is stored under opts.Output by Encode; nil produces nothing
	output    []byte
	encodeErr error
	hook      func(ctx context.Context) error
	opts      ports.EncodeOptions
	encodes   int
}

func newFakeEncoder() *fakeEncoder {
	return &fakeEncoder{
		files:    make(map[string][]byte),
		captured: make(map[string][]byte),
		output:   []byte("mp4-bytes"),
	}
}

func (e *fakeEncoder) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loadErr != nil {
		return e.loadErr
	}
	e.loaded = true
	return nil
}

func (e *fakeEncoder) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

func (e *fakeEncoder) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[name] = data
	e.captured[name] = data
	return nil
}

func (e *fakeEncoder) ReadFile(ctx context.Context, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return data, nil
}

func (e *fakeEncoder) DeleteFile(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	delete(e.files, name)
	e.deleted = append(e.deleted, name)
	return nil
}

func (e *fakeEncoder) Encode(ctx context.Context, opts ports.EncodeOptions, progress func(float64)) error {
	e.mu.Lock()
	e.encodes++
	e.opts = opts
	hook, encodeErr, output := e.hook, e.encodeErr, e.output
	e.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	if encodeErr != nil {
		return encodeErr
	}
	progress(0.25)
	progress(0.2) // out of order on purpose
	progress(1)
	if output != nil {
		e.mu.Lock()
		e.files[opts.Output] = output
		e.mu.Unlock()
	}
	return nil
}

func (e *fakeEncoder) setHook(hook func(ctx context.Context) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hook = hook
}

func (e *fakeEncoder) fileNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Sorted(maps.Keys(e.files))
}

func (e *fakeEncoder) capturedFile(name string) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.captured[name]
}

func (e *fakeEncoder) lastOptions() ports.EncodeOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opts
}

type fakeFetcher struct {
	assets map[string][]byte
}

func (f *fakeFetcher) Fetch(_ context.Context, ref string) ([]byte, error) {
	data, ok := f.assets[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMediaUnavailable, ref)
	}
	return data, nil
}

// fakeDecoder returns a sine burst of the configured length whatever the input.
type fakeDecoder struct {
	sampleRate int
	samples    int
	err        error
	calls      int
	onDecode   func()
}

func (d *fakeDecoder) Decode(ctx context.Context, name string, data []byte) (*domain.DecodedAudio, error) {
	d.calls++
	if d.onDecode != nil {
		d.onDecode()
	}
	if d.err != nil {
		return nil, d.err
	}
	mono := make([]float32, d.samples)
	for i := range mono {
		mono[i] = float32(0.5 * math.Sin(2*math.Pi*110*float64(i)/float64(d.sampleRate)))
	}
	return &domain.DecodedAudio{SampleRate: d.sampleRate, Channels: [][]float32{mono}}, nil
}

type delivery struct {
	filename string
	data     []byte
}

type fakeSink struct {
	mu         sync.Mutex
	deliveries []delivery
	err        error
}

func (s *fakeSink) Deliver(_ context.Context, filename string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.deliveries = append(s.deliveries, delivery{filename: filename, data: data})
	return "out/" + filename, nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deliveries)
}

// fakeMediaLoader serves solid images for known refs.
type fakeMediaLoader struct {
	images   map[string]color.RGBA
	videos   map[string]bool
	decodeOK bool
	opened   []*fakeVideo
}

func solid(c color.RGBA, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func (l *fakeMediaLoader) LoadImage(_ context.Context, ref string) (image.Image, error) {
	c, ok := l.images[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrMediaUnavailable, ref)
	}
	return solid(c, 8, 8), nil
}

func (l *fakeMediaLoader) DecodeImage(data []byte) (image.Image, error) {
	if !l.decodeOK {
		return nil, fmt.Errorf("%w: garbage", domain.ErrMediaUnavailable)
	}
	return solid(color.RGBA{R: data[0], A: 0xff}, 8, 8), nil
}

func (l *fakeMediaLoader) OpenVideo(_ context.Context, ref string, width, height, fps int) (ports.VideoSource, error) {
	if !l.videos[ref] {
		return nil, fmt.Errorf("%w: %s", domain.ErrMediaUnavailable, ref)
	}
	v := &fakeVideo{frame: solid(color.RGBA{G: 0xff, A: 0xff}, width, height)}
	l.opened = append(l.opened, v)
	return v, nil
}

type fakeVideo struct {
	mu      sync.Mutex
	frame   *image.RGBA
	last    time.Duration
	awaited int
	closes  int
}

func (v *fakeVideo) FrameAt(t time.Duration) image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = t
	return v.frame
}

func (v *fakeVideo) AwaitFrame(_ context.Context, t time.Duration) image.Image {
	v.mu.Lock()
	v.awaited++
	v.mu.Unlock()
	return v.FrameAt(t)
}

func (v *fakeVideo) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closes++
	return nil
}

// frameSink counts presented frames and signals each one.
type frameSink struct {
	mu     sync.Mutex
	frames int
	size   image.Point
	ch     chan struct{}
}

func newFrameSink() *frameSink {
	return &frameSink{ch: make(chan struct{}, 256)}
}

func (s *frameSink) Present(frame *image.RGBA) {
	s.mu.Lock()
	s.frames++
	s.size = frame.Rect.Size()
	s.mu.Unlock()
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

func (s *frameSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// eventLog records published events by type.
type eventLog struct {
	mu     sync.Mutex
	events []domain.Event
}

func (l *eventLog) record(e domain.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ofType(t domain.EventType) []domain.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.Event
	for _, e := range l.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}
