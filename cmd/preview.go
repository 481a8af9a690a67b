package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fspecii/ace-step-ui/internal/app"
	"github.com/fspecii/ace-step-ui/internal/logger"
)

type previewFlags struct {
	sceneFlags

	outDir   string
	autoplay bool
}

func newPreviewCmd() *cobra.Command {
	var f previewFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Play a song with the live visualization",
		Long: `Open a window that plays the song and draws the visualization live. Presets,
effects and media can be changed while it plays, and the video can be exported from
the window. Without --scene the window reopens with the scene it was closed with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd.Context(), &f)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVarP(&f.outDir, "out", "o", ".", "Directory exported videos are written to")
	cmd.Flags().BoolVar(&f.autoplay, "play", false, "Start playing immediately")
	return cmd
}

func runPreview(ctx context.Context, f *previewFlags) error {
	cfg := app.DefaultConfig()
	cfg.OutputDir = f.outDir
	cfg.SceneDir = f.sceneDir
	cfg.Logger.Level = logger.ParseLevel(f.logLevel, cfg.Logger.Level)

	a, err := app.NewApplication(cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown()

	song, err := a.PrepareSong(ctx, f.song())
	if err != nil {
		return err
	}
	return a.RunPreview(ctx, song, app.PreviewOptions{
		RestoreScene: f.scene == "",
		Autoplay:     f.autoplay,
		Customize:    f.apply,
	})
}
