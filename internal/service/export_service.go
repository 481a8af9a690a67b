package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
	"github.com/fspecii/ace-step-ui/internal/render"
)

// Progress checkpoints of an export run, in percent.
const (
	progressEncoderLoaded = 5
	progressDecoded       = 10
	progressFramesReady   = 15
	progressCaptured      = 70
	progressEncoded       = 95
	progressDone          = 100
)

// Pipeline stages reported in export errors.
const (
	StageLoad    = "load"
	StageDecode  = "decode"
	StageCapture = "capture"
	StageEncode  = "encode"
	StageDeliver = "deliver"
)

// ExportConfig holds the fixed output settings of the export pipeline.
type ExportConfig struct {
	Width, Height int
	FPS           int

	// GrainStride defaults to render.OfflineGrainStride
	GrainStride int

	// JPEGQuality of the captured frames, 1-100
	JPEGQuality int
}

// DefaultExportConfig returns 1920x1080 at 30 fps.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Width:       1920,
		Height:      1080,
		FPS:         30,
		GrainStride: render.OfflineGrainStride,
		JPEGQuality: 90,
	}
}

// ExportRequest is one export invocation.
type ExportRequest struct {
	Song domain.Song

	// Seed makes the randomised effects reproducible; nil seeds from the clock
	Seed *int64
}

// ExportService renders a song offline and encodes it into a video.
//
// Runs are exclusive and sequential: idle -> capturing -> encoding -> done, or
// failed from any state. Reset discards the current run; a discarded run never
// writes job state again.
type ExportService struct {
	logger  *slog.Logger
	bus     ports.EventBus
	scenes  SceneSource
	fetcher ports.AssetFetcher
	decoder ports.AudioDecoder
	encoder ports.VideoEncoder
	media   *MediaService
	sink    ports.DownloadSink
	cfg     ExportConfig

	mu         sync.Mutex
	job        domain.ExportJob
	generation uint64 // Bumped by every run and every Reset
	running    bool
	runGen     uint64
	cancel     context.CancelFunc
	done       chan struct{}
	runs       uint64
}

// NewExportService creates an idle export service.
func NewExportService(
	logger *slog.Logger,
	bus ports.EventBus,
	scenes SceneSource,
	fetcher ports.AssetFetcher,
	decoder ports.AudioDecoder,
	encoder ports.VideoEncoder,
	media *MediaService,
	sink ports.DownloadSink,
	cfg ExportConfig,
) *ExportService {
	def := DefaultExportConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.FPS <= 0 {
		cfg.FPS = def.FPS
	}
	if cfg.GrainStride <= 0 {
		cfg.GrainStride = def.GrainStride
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}
	return &ExportService{
		logger:  logger.With(slog.String("service", "export")),
		bus:     bus,
		scenes:  scenes,
		fetcher: fetcher,
		decoder: decoder,
		encoder: encoder,
		media:   media,
		sink:    sink,
		cfg:     cfg,
		job:     domain.ExportJob{State: domain.ExportIdle},
	}
}

// Job returns a snapshot of the current job.
func (s *ExportService) Job() domain.ExportJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.job
}

// Running reports whether a run is in flight.
func (s *ExportService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running && s.runGen == s.generation
}

// Export runs the whole pipeline and returns the final job. It blocks until the
// video was delivered, the run failed, or Reset discarded it.
//
// Errors are *domain.ExportError for pipeline failures, wrap
// domain.ErrExportInProgress when another run is in flight and
// domain.ErrExportReset when the run was discarded.
func (s *ExportService) Export(ctx context.Context, req ExportRequest) (domain.ExportJob, error) {
	if req.Song.AudioRef == "" {
		return domain.ExportJob{}, domain.NewValidationError("song.audio", req.Song.AudioRef, "must not be empty")
	}

	r, err := s.begin(ctx)
	if err != nil {
		return domain.ExportJob{}, err
	}
	defer r.finish()
	r.scene = s.scenes.Snapshot()

	s.logger.Info("export started",
		slog.String("job_id", r.id),
		slog.String("song", req.Song.Title),
		slog.Int("width", s.cfg.Width),
		slog.Int("height", s.cfg.Height),
		slog.Int("fps", s.cfg.FPS))

	err = r.run(req)
	switch {
	case err == nil:
		return s.Job(), nil
	case !r.current():
		r.cleanup()
		s.logger.Info("export discarded", slog.String("job_id", r.id))
		return s.Job(), fmt.Errorf("%w: %s", domain.ErrExportReset, r.id)
	default:
		r.cleanup()
		var exportErr *domain.ExportError
		if !errors.As(err, &exportErr) {
			exportErr = domain.NewExportError(StageEncode, "export failed", err)
		}
		r.fail(exportErr)
		return s.Job(), exportErr
	}
}

// Reset discards the current job and returns to idle. An in-flight run is
// cancelled; its cleanup continues in the background and the next Export waits
// for it.
func (s *ExportService) Reset() {
	s.mu.Lock()
	jobID := s.job.ID
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.generation++
	s.job = domain.ExportJob{State: domain.ExportIdle}
	s.mu.Unlock()

	s.logger.Debug("export reset", slog.String("job_id", jobID))
	s.bus.Publish(domain.NewExportResetEvent(jobID))
}

// begin claims the pipeline for a new run, waiting for a discarded run to drain.
func (s *ExportService) begin(parent context.Context) (*exportRun, error) {
	for {
		s.mu.Lock()
		if !s.running {
			break
		}
		if s.runGen == s.generation {
			s.mu.Unlock()
			return nil, domain.NewServiceError("ExportService", "Export", "export already in progress", domain.ErrExportInProgress)
		}
		draining := s.done
		s.mu.Unlock()

		select {
		case <-draining:
		case <-parent.Done():
			return nil, parent.Err()
		}
	}
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(parent)
	s.generation++
	s.runs++
	s.running = true
	s.runGen = s.generation
	s.cancel = cancel
	s.done = make(chan struct{})
	s.job = domain.ExportJob{
		ID:        fmt.Sprintf("export-%d", s.runs),
		State:     domain.ExportIdle,
		StartedAt: time.Now(),
	}

	return &exportRun{
		svc:    s,
		ctx:    ctx,
		cancel: cancel,
		gen:    s.generation,
		id:     s.job.ID,
		done:   s.done,
	}, nil
}

// exportRun is the state private to one Export call.
type exportRun struct {
	svc    *ExportService
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	id     string
	done   chan struct{}

	// scene taken when the run claimed the pipeline; later session edits do not
	// reach the video
	scene domain.Scene

	// files written to the encoder, removed by cleanup
	files []string
}

func (r *exportRun) run(req ExportRequest) error {
	s := r.svc
	cfg := s.cfg
	r.transition(domain.ExportCapturing)

	if !s.encoder.Loaded() {
		if err := s.encoder.Load(r.ctx); err != nil {
			return domain.NewExportError(StageLoad, "video encoder could not be loaded", err)
		}
	}
	r.progress(progressEncoderLoaded, 0, 0)

	audioData, err := s.fetcher.Fetch(r.ctx, req.Song.AudioRef)
	if err != nil {
		return domain.NewExportError(StageLoad, "audio could not be loaded", err)
	}
	audio, err := s.decoder.Decode(r.ctx, req.Song.AudioRef, audioData)
	if err != nil {
		return domain.NewExportError(StageDecode, "audio could not be decoded", err)
	}
	r.progress(progressDecoded, 0, 0)

	frames := render.ComputeFrames(audio.Mono(), audio.SampleRate, cfg.FPS)
	total := len(frames)
	if total == 0 {
		return domain.NewExportError(StageDecode, "audio track is empty", domain.ErrDecodeFailed)
	}
	r.progress(progressFramesReady, 0, total)

	if err := r.capture(req, frames); err != nil {
		return err
	}

	r.transition(domain.ExportEncoding)
	opts := ports.DefaultEncodeOptions(cfg.FPS)
	opts.DurationSeconds = audio.Duration().Seconds()

	if err := s.encoder.WriteFile(r.ctx, opts.AudioFile, audioData); err != nil {
		return domain.NewExportError(StageEncode, "audio could not be handed to the encoder", err)
	}
	r.files = append(r.files, opts.AudioFile)

	err = s.encoder.Encode(r.ctx, opts, func(p float64) {
		r.progress(progressCaptured+(progressEncoded-progressCaptured)*domain.Clamp01(p), total, total)
	})
	r.files = append(r.files, opts.Output)
	if err != nil {
		return domain.NewExportError(StageEncode, "video encoding failed", err)
	}

	video, err := s.encoder.ReadFile(r.ctx, opts.Output)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(video) == 0) {
		return domain.NewExportError(StageEncode, domain.ErrEmptyOutput.Error(), domain.ErrEmptyOutput)
	}
	if err != nil {
		return domain.NewExportError(StageEncode, "encoded video could not be read", err)
	}
	r.progress(progressEncoded, total, total)

	if !r.current() {
		return domain.ErrExportReset
	}
	location, err := s.sink.Deliver(r.ctx, req.Song.VideoFilename(), video)
	if err != nil {
		return domain.NewExportError(StageDeliver, "video could not be saved", err)
	}

	r.cleanup()
	r.complete(location, len(video))
	return nil
}

// capture renders every frame through the compositor and writes it to the encoder
// as a JPEG.
func (r *exportRun) capture(req ExportRequest, frames []domain.FrequencyFrame) error {
	s := r.svc
	cfg := s.cfg
	total := len(frames)
	scene := r.scene

	media := s.media.Load(r.ctx, MediaRequest{
		Refs:     scene.Media,
		CoverRef: req.Song.CoverRef,
		Width:    cfg.Width,
		Height:   cfg.Height,
		FPS:      cfg.FPS,
	})
	defer func() {
		if err := media.Close(); err != nil {
			s.logger.Warn("failed to close export media", slog.Any("error", err))
		}
	}()

	opts := render.Options{GrainStride: cfg.GrainStride}
	if req.Seed != nil {
		opts.Rand = rand.New(rand.NewSource(*req.Seed)) //nolint:gosec // G404: visual noise
	}
	compositor := render.NewCompositor(cfg.Width, cfg.Height, opts)
	provider := render.NewOfflineSpectrum(frames)

	var buf bytes.Buffer
	for i := range total {
		if err := r.ctx.Err(); err != nil {
			return domain.NewExportError(StageCapture, "export cancelled", err)
		}
		t := float64(i) / float64(cfg.FPS)
		at := time.Duration(i) * time.Second / time.Duration(cfg.FPS)

		img := compositor.Render(render.Frame{
			Scene:      scene,
			Spectrum:   provider.Spectrum(i, t),
			Time:       t,
			Background: media.AwaitBackground(r.ctx, at),
			AlbumArt:   media.Art(),
		})

		buf.Reset()
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(cfg.JPEGQuality)); err != nil {
			return domain.NewExportError(StageCapture, "frame could not be encoded", err)
		}
		name := FrameName(i)
		if err := s.encoder.WriteFile(r.ctx, name, bytes.Clone(buf.Bytes())); err != nil {
			return domain.NewExportError(StageCapture, "frame could not be handed to the encoder", err)
		}
		r.files = append(r.files, name)

		done := i + 1
		r.progress(progressFramesReady+(progressCaptured-progressFramesReady)*float64(done)/float64(total), done, total)
	}
	return nil
}

// FrameName returns the encoder file name of frame i, matching the frame pattern
// of ports.DefaultEncodeOptions.
func FrameName(i int) string {
	return fmt.Sprintf("frame%05d.jpg", i)
}

// current reports whether the run still owns the job.
func (r *exportRun) current() bool {
	r.svc.mu.Lock()
	defer r.svc.mu.Unlock()
	return r.svc.generation == r.gen
}

// transition moves the job to state unless the run was discarded.
func (r *exportRun) transition(state domain.ExportState) {
	s := r.svc
	s.mu.Lock()
	if s.generation != r.gen {
		s.mu.Unlock()
		return
	}
	from := s.job.State
	s.job.State = state
	s.mu.Unlock()

	s.logger.Debug("export state changed",
		slog.String("job_id", r.id),
		slog.String("from", string(from)),
		slog.String("to", string(state)))
	s.bus.Publish(domain.NewExportStateChangedEvent(r.id, from, state))
}

// progress raises the job progress. Values below the current progress are ignored
// so progress never decreases.
func (r *exportRun) progress(pct float64, rendered, total int) {
	s := r.svc
	s.mu.Lock()
	if s.generation != r.gen || pct < s.job.Progress {
		s.mu.Unlock()
		return
	}
	s.job.Progress = min(pct, progressDone)
	s.job.FramesRendered = rendered
	s.job.TotalFrames = total
	job := s.job
	s.mu.Unlock()

	s.bus.Publish(domain.NewExportProgressEvent(job))
}

func (r *exportRun) complete(location string, size int) {
	s := r.svc
	s.mu.Lock()
	if s.generation != r.gen {
		s.mu.Unlock()
		return
	}
	from := s.job.State
	s.job.State = domain.ExportDone
	s.job.Progress = progressDone
	s.job.Filename = location
	job := s.job
	s.mu.Unlock()

	elapsed := time.Since(job.StartedAt)
	s.logger.Info("export finished",
		slog.String("job_id", r.id),
		slog.String("file", location),
		slog.Int("bytes", size),
		slog.Duration("elapsed", elapsed))
	s.bus.Publish(domain.NewExportStateChangedEvent(r.id, from, domain.ExportDone))
	s.bus.Publish(domain.NewExportProgressEvent(job))
	s.bus.Publish(domain.NewExportCompletedEvent(r.id, location, size, elapsed))
}

func (r *exportRun) fail(err *domain.ExportError) {
	s := r.svc
	s.mu.Lock()
	if s.generation != r.gen {
		s.mu.Unlock()
		return
	}
	from := s.job.State
	s.job.State = domain.ExportFailed
	s.job.Message = err.Message
	s.mu.Unlock()

	s.logger.Error("export failed",
		slog.String("job_id", r.id),
		slog.String("stage", err.Stage),
		slog.Any("error", err))
	s.bus.Publish(domain.NewExportStateChangedEvent(r.id, from, domain.ExportFailed))
	s.bus.Publish(domain.NewExportFailedEvent(r.id, err.Stage, err.Message, err))
}

// cleanup deletes the intermediate files. Failures are logged only.
func (r *exportRun) cleanup() {
	if len(r.files) == 0 {
		return
	}
	// The run context may already be cancelled.
	ctx := context.WithoutCancel(r.ctx)
	failed := 0
	for _, name := range r.files {
		if err := r.svc.encoder.DeleteFile(ctx, name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed++
			r.svc.logger.Warn("failed to delete export artifact",
				slog.String("job_id", r.id),
				slog.String("file", name),
				slog.Any("error", err))
		}
	}
	r.svc.logger.Debug("export artifacts removed",
		slog.String("job_id", r.id),
		slog.Int("files", len(r.files)-failed))
	r.files = nil
}

// finish releases the pipeline.
func (r *exportRun) finish() {
	r.cancel()
	s := r.svc
	s.mu.Lock()
	if s.runGen == r.gen {
		s.running = false
		s.cancel = nil
	}
	s.mu.Unlock()
	close(r.done)
}
