// Package file stores scenes as YAML documents on disk.
package file

import (
	"fmt"
	"image/color"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/fspecii/ace-step-ui/internal/domain"
)

// sceneDoc is the YAML shape of a scene. Colors are hex strings; absent fields keep
// the defaults of domain.DefaultScene.
type sceneDoc struct {
	Preset         string               `yaml:"preset,omitempty"`
	PrimaryColor   string               `yaml:"primary_color,omitempty"`
	SecondaryColor string               `yaml:"secondary_color,omitempty"`
	BgDim          *float64             `yaml:"bg_dim,omitempty"`
	ParticleCount  *int                 `yaml:"particle_count,omitempty"`
	Effects        map[string]effectDoc `yaml:"effects,omitempty"`
	Texts          []textDoc            `yaml:"texts,omitempty"`
	Media          mediaDoc             `yaml:"media,omitempty"`
}

type effectDoc struct {
	Enabled   bool    `yaml:"enabled"`
	Intensity float64 `yaml:"intensity"`
}

type textDoc struct {
	ID    string  `yaml:"id"`
	Text  string  `yaml:"text"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	Size  float64 `yaml:"size"`
	Color string  `yaml:"color,omitempty"`
	Font  string  `yaml:"font,omitempty"`
}

type mediaDoc struct {
	Background     string `yaml:"background,omitempty"`
	BackgroundKind string `yaml:"background_kind,omitempty"`
	AlbumArt       string `yaml:"album_art,omitempty"`
}

// Marshal encodes scene as YAML. The embedded song cover is not stored.
func Marshal(scene domain.Scene) ([]byte, error) {
	cfg := scene.Config
	doc := sceneDoc{
		Preset:         string(cfg.Preset),
		PrimaryColor:   domain.HexColor(cfg.PrimaryColor),
		SecondaryColor: domain.HexColor(cfg.SecondaryColor),
		BgDim:          &cfg.BgDim,
		ParticleCount:  &cfg.ParticleCount,
		Media: mediaDoc{
			Background:     scene.Media.Background,
			BackgroundKind: string(scene.Media.BackgroundKind),
			AlbumArt:       scene.Media.AlbumArt,
		},
	}

	for _, kind := range domain.EffectKinds() {
		on, level := scene.Effects.Enabled[kind], scene.Effects.Intensity[kind]
		if !on && level == 0 {
			continue
		}
		if doc.Effects == nil {
			doc.Effects = make(map[string]effectDoc)
		}
		doc.Effects[string(kind)] = effectDoc{Enabled: on, Intensity: level}
	}

	for _, layer := range scene.Texts {
		doc.Texts = append(doc.Texts, textDoc{
			ID:    layer.ID,
			Text:  layer.Text,
			X:     layer.X,
			Y:     layer.Y,
			Size:  layer.Size,
			Color: domain.HexColor(layer.Color),
			Font:  layer.Font,
		})
	}

	return yaml.Marshal(doc)
}

// Unmarshal decodes and validates a YAML scene.
func Unmarshal(data []byte) (domain.Scene, error) {
	var doc sceneDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Scene{}, fmt.Errorf("parsing scene: %w", err)
	}

	scene := domain.DefaultScene()
	cfg := &scene.Config

	if doc.Preset != "" {
		cfg.Preset = domain.Preset(doc.Preset)
		if !cfg.Preset.Valid() {
			return domain.Scene{}, domain.NewValidationError("preset", doc.Preset, "unknown preset")
		}
	}
	var err error
	if doc.PrimaryColor != "" {
		if cfg.PrimaryColor, err = domain.ParseHexColor(doc.PrimaryColor); err != nil {
			return domain.Scene{}, err
		}
	}
	if doc.SecondaryColor != "" {
		if cfg.SecondaryColor, err = domain.ParseHexColor(doc.SecondaryColor); err != nil {
			return domain.Scene{}, err
		}
	}
	if doc.BgDim != nil {
		cfg.BgDim = domain.Clamp01(*doc.BgDim)
	}
	if doc.ParticleCount != nil {
		if *doc.ParticleCount < 0 {
			return domain.Scene{}, domain.NewValidationError("particle_count", *doc.ParticleCount, "must not be negative")
		}
		cfg.ParticleCount = *doc.ParticleCount
	}

	for name, e := range doc.Effects {
		kind := domain.EffectKind(name)
		if !slices.Contains(domain.EffectKinds(), kind) {
			return domain.Scene{}, domain.NewValidationError("effects", name, "unknown effect")
		}
		scene.Effects.Enabled[kind] = e.Enabled
		scene.Effects.Intensity[kind] = domain.Clamp01(e.Intensity)
	}

	seen := make(map[string]bool, len(doc.Texts))
	for _, t := range doc.Texts {
		if t.ID == "" || seen[t.ID] {
			return domain.Scene{}, domain.NewValidationError("texts.id", t.ID, "must be unique and non-empty")
		}
		seen[t.ID] = true
		if t.Size <= 0 {
			return domain.Scene{}, domain.NewValidationError("texts.size", t.Size, "must be positive")
		}
		layer := domain.TextLayer{
			ID:    t.ID,
			Text:  t.Text,
			X:     clampPercent(t.X),
			Y:     clampPercent(t.Y),
			Size:  t.Size,
			Color: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
			Font:  t.Font,
		}
		if t.Color != "" {
			if layer.Color, err = domain.ParseHexColor(t.Color); err != nil {
				return domain.Scene{}, err
			}
		}
		scene.Texts = append(scene.Texts, layer)
	}

	scene.Media = domain.MediaRefs{
		Background:     doc.Media.Background,
		BackgroundKind: domain.BackgroundKind(doc.Media.BackgroundKind),
		AlbumArt:       doc.Media.AlbumArt,
	}
	switch scene.Media.BackgroundKind {
	case domain.BackgroundNone, domain.BackgroundImage, domain.BackgroundVideo:
	default:
		return domain.Scene{}, domain.NewValidationError("media.background_kind", doc.Media.BackgroundKind, "expected image or video")
	}
	if scene.Media.Background != "" && scene.Media.BackgroundKind == domain.BackgroundNone {
		scene.Media.BackgroundKind = domain.BackgroundImage
	}
	return scene, nil
}

func clampPercent(v float64) float64 {
	return max(0, min(100, v))
}
