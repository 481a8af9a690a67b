package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fspecii/ace-step-ui/internal/app"
	"github.com/fspecii/ace-step-ui/internal/logger"
	"github.com/fspecii/ace-step-ui/internal/service"
)

type exportFlags struct {
	sceneFlags

	outDir  string
	width   int
	height  int
	fps     int
	quality int
	seed    int64
	ffmpeg  string
	origin  string
	saveAs  string
	quiet   bool
	seedSet bool
}

func newExportCmd() *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render a song to an MP4 video",
		Long: `Render the visualization of a song frame by frame and encode it together with the
audio into "<title>.mp4". The video is written to the output directory; an existing
file is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.seedSet = cmd.Flags().Changed("seed")
			return runExport(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), &f)
		},
	}

	f.register(cmd)
	def := service.DefaultExportConfig()
	cmd.Flags().StringVarP(&f.outDir, "out", "o", ".", "Output directory")
	cmd.Flags().IntVar(&f.width, "width", def.Width, "Video width")
	cmd.Flags().IntVar(&f.height, "height", def.Height, "Video height")
	cmd.Flags().IntVar(&f.fps, "fps", def.FPS, "Frames per second")
	cmd.Flags().IntVar(&f.quality, "quality", def.JPEGQuality, "JPEG quality of captured frames (1-100)")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Seed for the randomised effects, for reproducible videos")
	cmd.Flags().StringVar(&f.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	cmd.Flags().StringVar(&f.origin, "origin", "", "Origin the assets are served from; other remote assets go through its proxy")
	cmd.Flags().StringVar(&f.saveAs, "save-scene", "", "Also save the resulting scene under this name")
	cmd.Flags().BoolVarP(&f.quiet, "quiet", "q", false, "Hide the progress bar")

	return cmd
}

func (f *exportFlags) config() app.Config {
	cfg := app.DefaultConfig()
	cfg.OutputDir = f.outDir
	cfg.SceneDir = f.sceneDir
	cfg.Export.Width, cfg.Export.Height = f.width, f.height
	cfg.Export.FPS = f.fps
	cfg.Export.JPEGQuality = f.quality
	cfg.Encoder.Binary = f.ffmpeg
	cfg.Media.FFmpeg = f.ffmpeg
	cfg.Media.Origin = f.origin
	cfg.Logger.Level = logger.ParseLevel(f.logLevel, cfg.Logger.Level)
	return cfg
}

func (f *exportFlags) request() service.ExportRequest {
	req := service.ExportRequest{Song: f.song()}
	if f.seedSet {
		seed := f.seed
		req.Seed = &seed
	}
	return req
}

func runExport(ctx context.Context, stdout, stderr io.Writer, f *exportFlags) error {
	a, err := app.NewApplication(f.config())
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := f.apply(a); err != nil {
		return err
	}
	if f.saveAs != "" {
		if err := a.SaveScene(f.saveAs); err != nil {
			return err
		}
	}

	req := f.request()
	req.Song, err = a.PrepareSong(ctx, req.Song)
	if err != nil {
		return err
	}

	if !f.quiet {
		reporter := newProgressReporter(a.EventBus(), stderr)
		defer reporter.Close()
	}

	job, err := a.Export(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved %s\n", job.Filename)
	return nil
}
