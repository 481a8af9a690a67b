package media

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// videoStarter starts a decoder producing raw RGBA frames of width x height at fps.
type videoStarter func(ctx context.Context, loc string, width, height, fps int) (io.ReadCloser, error)

// VideoArgs returns the ffmpeg arguments that loop loc forever, muted, scaled to
// cover width x height and resampled to fps, as raw RGBA on stdout.
func VideoArgs(loc string, width, height, fps int) []string {
	w, h := strconv.Itoa(width), strconv.Itoa(height)
	return []string{
		"-v", "quiet",
		"-stream_loop", "-1",
		"-i", loc,
		"-an",
		"-vf", "scale=" + w + ":" + h + ":force_original_aspect_ratio=increase,crop=" + w + ":" + h + ",fps=" + strconv.Itoa(fps),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	}
}

// cmdStream ties the lifetime of the ffmpeg process to its stdout.
type cmdStream struct {
	io.ReadCloser
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func (s *cmdStream) Close() error {
	s.cancel()
	_ = s.ReadCloser.Close()
	_ = s.cmd.Wait() // Killed by cancel; the exit status carries no information
	return nil
}

func (l *Loader) startFFmpeg(_ context.Context, loc string, width, height, fps int) (io.ReadCloser, error) {
	bin, err := exec.LookPath(l.cfg.FFmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found", domain.ErrMediaUnavailable)
	}

	// The decoder outlives the call; only Close stops it.
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, bin, VideoArgs(loc, width, height, fps)...)
	cmd.Stdin = nil
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting ffmpeg video decode: %w", err)
	}
	return &cmdStream{ReadCloser: stdout, cmd: cmd, cancel: cancel}, nil
}

// OpenVideo starts decoding ref as a looping background.
func (l *Loader) OpenVideo(ctx context.Context, ref string, width, height, fps int) (ports.VideoSource, error) {
	if width <= 0 || height <= 0 || fps <= 0 {
		return nil, domain.NewValidationError("video", fmt.Sprintf("%dx%d@%d", width, height, fps), "size and fps must be positive")
	}
	loc, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}
	stream, err := l.startVideo(ctx, loc, width, height, fps)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("video background opened", slog.String("ref", ref), slog.Int("fps", fps))
	return newVideoSource(stream, width, height, fps, l.logger), nil
}

var _ ports.VideoSource = (*videoSource)(nil)

// videoSource decodes frames on its own goroutine, never further ahead than the
// latest requested frame. Three buffers rotate: the reader fills spare, ready
// holds the newest decoded frame and shown belongs to the caller until its next
// call.
type videoSource struct {
	logger *slog.Logger
	fps    int
	stream io.ReadCloser
	wg     sync.WaitGroup

	mu       sync.Mutex
	cond     *sync.Cond
	shown    *image.RGBA
	ready    *image.RGBA
	spare    *image.RGBA
	shownAt  int // Index of shown, -1 before the first frame
	readyAt  int // Index of ready, -1 when it holds nothing newer than shown
	decoded  int // Index of the newest decoded frame
	target   int
	finished bool // The stream ended or failed
	closed   bool
}

func newVideoSource(stream io.ReadCloser, width, height, fps int, logger *slog.Logger) *videoSource {
	r := image.Rect(0, 0, width, height)
	v := &videoSource{
		logger:  logger,
		fps:     fps,
		stream:  stream,
		shown:   image.NewRGBA(r),
		ready:   image.NewRGBA(r),
		spare:   image.NewRGBA(r),
		shownAt: -1,
		readyAt: -1,
		decoded: -1,
	}
	v.cond = sync.NewCond(&v.mu)
	v.wg.Add(1)
	go v.readLoop()
	return v
}

func (v *videoSource) readLoop() {
	defer v.wg.Done()
	for {
		v.mu.Lock()
		for !v.closed && v.decoded >= v.target {
			v.cond.Wait()
		}
		if v.closed {
			v.mu.Unlock()
			return
		}
		buf := v.spare
		v.mu.Unlock()

		_, err := io.ReadFull(v.stream, buf.Pix)

		v.mu.Lock()
		if err != nil {
			if !v.closed {
				v.logger.Warn("video background stopped", slog.Any("error", err))
			}
			v.finished = true
			v.cond.Broadcast()
			v.mu.Unlock()
			return
		}
		v.decoded++
		v.ready, v.spare = v.spare, v.ready
		v.readyAt = v.decoded
		v.cond.Broadcast()
		v.mu.Unlock()
	}
}

func (v *videoSource) index(t time.Duration) int {
	return int(t.Seconds() * float64(v.fps))
}

// request raises the decode target to t. Callers hold mu.
func (v *videoSource) request(t time.Duration) {
	if i := v.index(t); i > v.target {
		v.target = i
		v.cond.Broadcast()
	}
}

// present hands the newest decoded frame to the caller. Callers hold mu.
func (v *videoSource) present() image.Image {
	if v.readyAt > v.shownAt {
		v.shown, v.ready = v.ready, v.shown
		v.shownAt = v.readyAt
		v.readyAt = -1
	}
	if v.shownAt < 0 {
		return nil
	}
	return v.shown
}

// FrameAt returns the newest decoded frame and asks the reader for the frame due
// at t. It never waits for the decoder, so it may lag behind t. The image is
// reused after the next call; before the first frame it returns nil.
func (v *videoSource) FrameAt(t time.Duration) image.Image {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.request(t)
	return v.present()
}

// AwaitFrame blocks until the frame due at t is decoded, the stream ends or ctx is
// done, then returns like FrameAt.
func (v *videoSource) AwaitFrame(ctx context.Context, t time.Duration) image.Image {
	stop := context.AfterFunc(ctx, func() {
		v.mu.Lock()
		v.cond.Broadcast()
		v.mu.Unlock()
	})
	defer stop()

	v.mu.Lock()
	defer v.mu.Unlock()
	v.request(t)
	for v.decoded < v.index(t) && !v.finished && !v.closed && ctx.Err() == nil {
		v.cond.Wait()
	}
	return v.present()
}

// Close stops the decoder and waits for the reader to exit.
func (v *videoSource) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errClosed
	}
	v.closed = true
	v.cond.Broadcast()
	v.mu.Unlock()

	err := v.stream.Close()
	v.wg.Wait()
	return err
}
