package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
	"github.com/fspecii/ace-step-ui/internal/render"
)

// SceneSource hands out scene snapshots. SessionService implements it.
type SceneSource interface {
	Snapshot() domain.Scene
}

// LiveConfig configures the live render loop.
type LiveConfig struct {
	Width, Height int

	// Interval is the tick period; zero means 60 Hz
	Interval time.Duration

	// GrainStride defaults to render.LiveGrainStride
	GrainStride int

	// Clock stamps the CCTV overlay; nil uses time.Now
	Clock func() time.Time
}

// DefaultLiveConfig returns a 960x540 preview at 60 Hz.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		Width:       960,
		Height:      540,
		Interval:    time.Second / 60,
		GrainStride: render.LiveGrainStride,
	}
}

// LiveService drives the render core once per tick from the live analyser and
// presents each frame to the sink.
type LiveService struct {
	logger   *slog.Logger
	bus      ports.EventBus
	scenes   SceneSource
	analyzer ports.LiveAnalyzer
	sink     ports.FrameSink
	cfg      LiveConfig

	compositor *render.Compositor
	spectrum   *render.LiveSpectrum

	mu      sync.Mutex
	media   *MediaSet
	running bool
	frames  uint64
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewLiveService creates a stopped live loop.
func NewLiveService(
	logger *slog.Logger,
	bus ports.EventBus,
	scenes SceneSource,
	analyzer ports.LiveAnalyzer,
	sink ports.FrameSink,
	cfg LiveConfig,
) *LiveService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second / 60
	}
	if cfg.GrainStride <= 0 {
		cfg.GrainStride = render.LiveGrainStride
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &LiveService{
		logger:   logger.With(slog.String("service", "live")),
		bus:      bus,
		scenes:   scenes,
		analyzer: analyzer,
		sink:     sink,
		cfg:      cfg,
		compositor: render.NewCompositor(cfg.Width, cfg.Height, render.Options{
			GrainStride: cfg.GrainStride,
			Clock:       cfg.Clock,
		}),
		spectrum: render.NewLiveSpectrum(analyzer),
	}
}

// SetMedia swaps the media drawn by the loop and closes the previous set.
func (s *LiveService) SetMedia(set *MediaSet) {
	s.mu.Lock()
	old := s.media
	s.media = set
	s.mu.Unlock()

	if old != nil && old != set {
		if err := old.Close(); err != nil {
			s.logger.Warn("failed to close previous media", slog.Any("error", err))
		}
	}
}

// Start begins ticking. Starting a running loop is a no-op.
func (s *LiveService) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.frames = 0
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(stop)

	s.logger.Debug("live loop started", slog.Duration("interval", s.cfg.Interval))
	s.bus.Publish(domain.NewLiveStartedEvent(s.cfg.Interval))
}

// Stop halts the loop and waits for the in-flight frame to finish.
func (s *LiveService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	frames := s.frames
	s.mu.Unlock()

	s.logger.Debug("live loop stopped", slog.Uint64("frames", frames))
	s.bus.Publish(domain.NewLiveStoppedEvent(frames))
}

// Running reports whether the loop is ticking.
func (s *LiveService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Frames returns the number of frames presented since Start.
func (s *LiveService) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Shutdown stops the loop and releases the media.
func (s *LiveService) Shutdown() {
	s.Stop()
	s.SetMedia(nil)
}

func (s *LiveService) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick renders and presents one frame. Only the loop goroutine calls it, so the
// compositor and the spectrum buffers need no lock.
func (s *LiveService) tick() {
	scene := s.scenes.Snapshot()
	pos := s.analyzer.Position()
	t := pos.Seconds()

	s.mu.Lock()
	media := s.media
	s.mu.Unlock()

	frame := s.compositor.Render(render.Frame{
		Scene:      scene,
		Spectrum:   s.spectrum.Spectrum(0, t),
		Time:       t,
		Background: media.BackgroundAt(pos),
		AlbumArt:   media.Art(),
	})
	s.sink.Present(frame)

	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}
