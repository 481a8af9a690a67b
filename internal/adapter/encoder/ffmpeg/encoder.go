// Package ffmpeg implements the video encoder port on top of the ffmpeg binary.
//
// Files written through the encoder live in a private temporary directory that plays
// the role of the encoder's virtual filesystem; ffmpeg runs inside it so frame
// patterns and output names stay relative.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// stderrTail bounds how much ffmpeg diagnostic output is kept in errors.
const stderrTail = 512

// Config holds encoder settings.
type Config struct {
	Binary  string // Name or path of the ffmpeg executable
	TempDir string // Parent of the working directory, os.TempDir when empty
}

// DefaultConfig returns the default encoder configuration.
func DefaultConfig() Config {
	return Config{Binary: "ffmpeg"}
}

// runFunc runs name with args inside dir, streaming stdout and returning stderr.
type runFunc func(ctx context.Context, dir, name string, args []string, stdout io.Writer) ([]byte, error)

func runCommand(ctx context.Context, dir, name string, args []string, stdout io.Writer) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// Encoder implements ports.VideoEncoder.
//
// Thread-safety: Load and Close are safe to call concurrently; file operations and
// Encode are expected from a single export run at a time.
type Encoder struct {
	logger *slog.Logger
	cfg    Config

	lookPath  func(string) (string, error)
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(string) error
	run       runFunc

	mu  sync.Mutex
	bin string
	dir string
}

// NewEncoder creates an encoder. Nothing is touched until Load.
func NewEncoder(cfg Config, logger *slog.Logger) *Encoder {
	if cfg.Binary == "" {
		cfg.Binary = DefaultConfig().Binary
	}
	return &Encoder{
		logger:    logger.With(slog.String("adapter", "ffmpeg")),
		cfg:       cfg,
		lookPath:  exec.LookPath,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		run:       runCommand,
	}
}

// Load resolves the ffmpeg binary and creates the working directory.
// Loading twice is a no-op.
func (e *Encoder) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bin != "" {
		return nil
	}

	bin, err := e.lookPath(e.cfg.Binary)
	if err != nil {
		return fmt.Errorf("%w: %s not found: %w", domain.ErrEncoderNotLoaded, e.cfg.Binary, err)
	}
	dir, err := e.mkdirTemp(e.cfg.TempDir, "acestep-vis-*")
	if err != nil {
		return fmt.Errorf("creating encoder workspace: %w", err)
	}

	e.bin, e.dir = bin, dir
	e.logger.Info("encoder loaded", slog.String("binary", bin), slog.String("workspace", dir))
	return nil
}

// Loaded reports whether Load succeeded.
func (e *Encoder) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bin != ""
}

func (e *Encoder) workspace() (bin, dir string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bin == "" {
		return "", "", domain.ErrEncoderNotLoaded
	}
	return e.bin, e.dir, nil
}

// path maps a flat file name into the workspace.
func (e *Encoder) path(name string) (string, error) {
	_, dir, err := e.workspace()
	if err != nil {
		return "", err
	}
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return "", domain.NewValidationError("name", name, "must be a plain file name")
	}
	return filepath.Join(dir, name), nil
}

// WriteFile stores data under name in the workspace.
func (e *Encoder) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := e.path(name)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o600)
}

// ReadFile returns the content of name. A missing file wraps fs.ErrNotExist.
func (e *Encoder) ReadFile(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := e.path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// DeleteFile removes name from the workspace.
func (e *Encoder) DeleteFile(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := e.path(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Encode muxes the frame sequence and the audio file into opts.Output.
// progress receives the encoder's completion fraction in [0,1], never decreasing.
// A non-empty output is checked to be an MP4 with a video and an audio track.
func (e *Encoder) Encode(ctx context.Context, opts ports.EncodeOptions, progress func(float64)) error {
	bin, dir, err := e.workspace()
	if err != nil {
		return err
	}
	if err := validateOptions(opts); err != nil {
		return err
	}

	pw := newProgressWriter(opts.DurationSeconds, progress)
	args := BuildArgs(opts)
	e.logger.Debug("running ffmpeg", slog.String("args", strings.Join(args, " ")))

	stderr, err := e.run(ctx, dir, bin, args, pw)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("ffmpeg failed: %w%s", err, tail(stderr))
	}
	pw.finish()

	out, err := os.ReadFile(filepath.Join(dir, opts.Output))
	if err != nil || len(out) == 0 {
		// Reading back and judging emptiness is the caller's job.
		return nil
	}
	if err := Validate(out); err != nil {
		return fmt.Errorf("ffmpeg output rejected: %w", err)
	}
	return nil
}

func tail(stderr []byte) string {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return ""
	}
	if len(msg) > stderrTail {
		msg = msg[len(msg)-stderrTail:]
	}
	return "\n" + msg
}

// Close removes the workspace. The encoder must be loaded again before reuse.
func (e *Encoder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dir == "" {
		return nil
	}
	err := e.removeAll(e.dir)
	e.bin, e.dir = "", ""
	if err != nil {
		return fmt.Errorf("removing encoder workspace: %w", err)
	}
	return nil
}

// Dir returns the workspace path, empty before Load.
func (e *Encoder) Dir() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dir
}

var errNoFrames = errors.New("frame pattern is required")

var _ ports.VideoEncoder = (*Encoder)(nil)
