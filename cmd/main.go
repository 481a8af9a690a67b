// Package main is the entry point of the ACE-Step visualizer.
//
// Build:
//
//	go build -o build/acestep-vis ./cmd
//
// Run:
//
//	./build/acestep-vis export --audio song.mp3 --scene neon
//	./build/acestep-vis preview --audio song.mp3
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fspecii/ace-step-ui/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "acestep-vis",
		Short: "Audio-reactive visualizer with live preview and video export",
		Long: `acestep-vis renders spectrum visualizations for a song. Preview them live in a
window while the song plays, or export them with the audio as an MP4 video.`,
		Version:       app.GetVersionInfo().FullString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newPreviewCmd())
	rootCmd.AddCommand(newPresetsCmd())
	return rootCmd
}
