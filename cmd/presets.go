package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fspecii/ace-step-ui/internal/adapter/repository/file"
	"github.com/fspecii/ace-step-ui/internal/app"
	"github.com/fspecii/ace-step-ui/internal/domain"
)

func newPresetsCmd() *cobra.Command {
	var sceneDir string

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List presets, effects and saved scenes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := file.NewSceneRepository(sceneDir, slog.New(slog.DiscardHandler))
			return listPresets(cmd.OutOrStdout(), repo)
		},
	}
	cmd.Flags().StringVar(&sceneDir, "scene-dir", app.DefaultConfig().SceneDir, "Directory of named scenes")
	return cmd
}

type sceneLister interface {
	List() ([]string, error)
}

func listPresets(w io.Writer, scenes sceneLister) error {
	fmt.Fprintln(w, "Presets:")
	for _, info := range domain.Presets() {
		art := ""
		if info.Preset.HasAlbumArt() {
			art = " [album art]"
		}
		fmt.Fprintf(w, "  %-14s %-16s %s%s\n", info.Preset, info.Name, info.Description, art)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Effects:")
	for _, kind := range domain.EffectKinds() {
		fmt.Fprintf(w, "  %s\n", kind)
	}

	names, err := scenes.List()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("listing scenes: %w", err)
	}
	if len(names) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Scenes:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	return nil
}
