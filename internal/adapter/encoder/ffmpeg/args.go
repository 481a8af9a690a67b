package ffmpeg

import (
	"strconv"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// BuildArgs returns the ffmpeg arguments for opts. Progress is reported as
// key=value lines on stdout.
func BuildArgs(opts ports.EncodeOptions) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-progress", "pipe:1",
		"-framerate", strconv.Itoa(opts.FrameRate),
		"-i", opts.FramePattern,
	}
	if opts.AudioFile != "" {
		args = append(args, "-i", opts.AudioFile)
	}
	args = append(args,
		"-c:v", opts.VideoCodec,
		"-preset", opts.Preset,
		"-crf", strconv.Itoa(opts.CRF),
		"-pix_fmt", opts.PixelFormat,
	)
	if opts.AudioFile != "" {
		args = append(args,
			"-c:a", opts.AudioCodec,
			"-b:a", opts.AudioBitrate,
			"-shortest",
		)
	}
	return append(args, "-movflags", "+faststart", opts.Output)
}

func validateOptions(opts ports.EncodeOptions) error {
	switch {
	case opts.FrameRate <= 0:
		return domain.NewValidationError("frame_rate", opts.FrameRate, "must be positive")
	case opts.FramePattern == "":
		return domain.NewValidationError("frame_pattern", opts.FramePattern, errNoFrames.Error())
	case opts.Output == "":
		return domain.NewValidationError("output", opts.Output, "is required")
	}
	return nil
}
