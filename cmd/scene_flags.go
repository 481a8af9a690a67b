package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fspecii/ace-step-ui/internal/adapter/ui/fyne"
	"github.com/fspecii/ace-step-ui/internal/app"
	"github.com/fspecii/ace-step-ui/internal/domain"
)

// defaultEffectIntensity applies to --effect values given without a level.
const defaultEffectIntensity = 0.5

// sceneFlags are shared by export and preview.
type sceneFlags struct {
	audio      string
	title      string
	artist     string
	cover      string
	scene      string
	preset     string
	effects    []string
	background string
	albumArt   string
	sceneDir   string
	logLevel   string
}

func (f *sceneFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.audio, "audio", "a", "", "Audio file or URL (required)")
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Song title, read from the tags or file name when empty")
	cmd.Flags().StringVar(&f.artist, "artist", "", "Song artist")
	cmd.Flags().StringVar(&f.cover, "cover", "", "Song cover image, used when the scene has no album art")
	cmd.Flags().StringVarP(&f.scene, "scene", "s", "", "Scene name or .yaml file")
	cmd.Flags().StringVarP(&f.preset, "preset", "p", "", "Preset override (see presets)")
	cmd.Flags().StringSliceVarP(&f.effects, "effect", "e", nil, "Enable an effect, optionally with a level: bloom or bloom=0.8")
	cmd.Flags().StringVar(&f.background, "background", "", "Background image or video")
	cmd.Flags().StringVar(&f.albumArt, "album-art", "", "Custom album art image")
	cmd.Flags().StringVar(&f.sceneDir, "scene-dir", app.DefaultConfig().SceneDir, "Directory of named scenes")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")

	_ = cmd.MarkFlagRequired("audio")
}

func (f *sceneFlags) song() domain.Song {
	return domain.Song{
		Title:    f.title,
		Artist:   f.artist,
		AudioRef: f.audio,
		CoverRef: f.cover,
	}
}

// apply loads the scene, then layers the overrides on top.
func (f *sceneFlags) apply(a *app.Application) error {
	if f.scene != "" {
		if err := a.LoadScene(f.scene); err != nil {
			return err
		}
	}
	session := a.Session()

	if f.preset != "" {
		p, err := parsePreset(f.preset)
		if err != nil {
			return err
		}
		if err := session.SetPreset(p); err != nil {
			return err
		}
	}

	for _, raw := range f.effects {
		kind, level, err := parseEffect(raw)
		if err != nil {
			return err
		}
		if err := session.SetEffect(kind, true, level); err != nil {
			return err
		}
	}

	if f.background != "" || f.albumArt != "" {
		refs := session.Snapshot().Media
		if f.background != "" {
			refs.Background = f.background
			refs.BackgroundKind = fyne.BackgroundKindFor(f.background)
		}
		if f.albumArt != "" {
			refs.AlbumArt = f.albumArt
		}
		if err := session.SetMedia(refs); err != nil {
			return err
		}
	}
	return nil
}

// parsePreset accepts a preset id or its display name, in any case.
func parsePreset(s string) (domain.Preset, error) {
	s = strings.TrimSpace(s)
	for _, info := range domain.Presets() {
		if strings.EqualFold(string(info.Preset), s) || strings.EqualFold(info.Name, s) {
			return info.Preset, nil
		}
	}
	return "", domain.NewValidationError("preset", s, "unknown preset")
}

// parseEffect parses "kind" or "kind=level" with level in [0,1].
func parseEffect(s string) (domain.EffectKind, float64, error) {
	name, rawLevel, hasLevel := strings.Cut(strings.TrimSpace(s), "=")
	kind := domain.EffectKind(strings.ToLower(strings.TrimSpace(name)))
	if !kind.Valid() {
		return "", 0, domain.NewValidationError("effect", s, "unknown effect")
	}
	if !hasLevel {
		return kind, defaultEffectIntensity, nil
	}
	level, err := strconv.ParseFloat(strings.TrimSpace(rawLevel), 64)
	if err != nil || level < 0 || level > 1 {
		return "", 0, domain.NewValidationError("effect", s, fmt.Sprintf("level %q must be a number in [0,1]", rawLevel))
	}
	return kind, level, nil
}
