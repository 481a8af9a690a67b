// Package service holds the use cases of the visualizer: the scene session, media
// loading, the live render loop and the offline export pipeline.
package service

import (
	"image/color"
	"log/slog"
	"slices"
	"sync"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// SessionService owns the scene being edited. It is the single writer of the scene;
// readers get deep copies through Snapshot.
// All operations are thread-safe via sync.RWMutex.
type SessionService struct {
	logger *slog.Logger
	bus    ports.EventBus

	mu    sync.RWMutex
	scene domain.Scene
}

// NewSessionService creates a session starting from initial.
func NewSessionService(logger *slog.Logger, bus ports.EventBus, initial domain.Scene) *SessionService {
	if initial.Effects.Enabled == nil {
		initial.Effects.Enabled = domain.EffectToggleSet{}
	}
	if initial.Effects.Intensity == nil {
		initial.Effects.Intensity = domain.EffectIntensitySet{}
	}
	return &SessionService{
		logger: logger.With(slog.String("service", "session")),
		bus:    bus,
		scene:  initial.Clone(),
	}
}

// Snapshot returns a copy of the current scene. The song cover is shared and
// must be treated as read-only.
func (s *SessionService) Snapshot() domain.Scene {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scene.Clone()
}

// Replace swaps the whole scene, e.g. after loading a scene file.
func (s *SessionService) Replace(scene domain.Scene) error {
	if !scene.Config.Preset.Valid() {
		return domain.NewValidationError("preset", scene.Config.Preset, "unknown preset")
	}
	return s.update(func(cur *domain.Scene) error {
		*cur = scene.Clone()
		cur.Media.SongCover = slices.Clone(scene.Media.SongCover)
		if cur.Effects.Enabled == nil {
			cur.Effects.Enabled = domain.EffectToggleSet{}
		}
		if cur.Effects.Intensity == nil {
			cur.Effects.Intensity = domain.EffectIntensitySet{}
		}
		return nil
	})
}

// SetPreset selects the active preset.
func (s *SessionService) SetPreset(p domain.Preset) error {
	if !p.Valid() {
		return domain.NewValidationError("preset", p, "unknown preset")
	}

	s.mu.Lock()
	from := s.scene.Config.Preset
	s.scene.Config.Preset = p
	snap := s.scene.Clone()
	s.mu.Unlock()

	if from != p {
		s.logger.Debug("preset changed", slog.String("from", string(from)), slog.String("to", string(p)))
		s.bus.Publish(domain.NewPresetChangedEvent(from, p))
	}
	s.bus.Publish(domain.NewSceneChangedEvent(snap))
	return nil
}

// SetColors sets the primary and secondary palette colors. Alpha is forced opaque.
func (s *SessionService) SetColors(primary, secondary color.RGBA) error {
	primary.A, secondary.A = 0xff, 0xff
	return s.update(func(cur *domain.Scene) error {
		cur.Config.PrimaryColor = primary
		cur.Config.SecondaryColor = secondary
		return nil
	})
}

// SetBackgroundDim sets the alpha of the layer dimming the background.
func (s *SessionService) SetBackgroundDim(dim float64) error {
	if dim < 0 || dim > 1 {
		return domain.NewValidationError("bg_dim", dim, "must be within [0,1]")
	}
	return s.update(func(cur *domain.Scene) error {
		cur.Config.BgDim = dim
		return nil
	})
}

// SetParticleCount sets the total particle count.
func (s *SessionService) SetParticleCount(n int) error {
	if n < 0 {
		return domain.NewValidationError("particle_count", n, "must not be negative")
	}
	return s.update(func(cur *domain.Scene) error {
		cur.Config.ParticleCount = n
		return nil
	})
}

// SetEffect toggles an effect and sets its intensity, clamped to [0,1].
func (s *SessionService) SetEffect(kind domain.EffectKind, enabled bool, intensity float64) error {
	if !kind.Valid() {
		return domain.NewValidationError("effect", kind, "unknown effect")
	}
	return s.update(func(cur *domain.Scene) error {
		cur.Effects.Enabled[kind] = enabled
		cur.Effects.Intensity[kind] = domain.Clamp01(intensity)
		return nil
	})
}

// AddText appends a text layer; it draws above every existing layer.
func (s *SessionService) AddText(layer domain.TextLayer) error {
	if err := validateTextLayer(layer); err != nil {
		return err
	}
	return s.update(func(cur *domain.Scene) error {
		if textIndex(cur.Texts, layer.ID) >= 0 {
			return domain.ErrDuplicateTextLayer
		}
		cur.Texts = append(cur.Texts, normalizeTextLayer(layer))
		return nil
	})
}

// UpdateText replaces the layer with the same id, keeping its draw position.
func (s *SessionService) UpdateText(layer domain.TextLayer) error {
	if err := validateTextLayer(layer); err != nil {
		return err
	}
	return s.update(func(cur *domain.Scene) error {
		i := textIndex(cur.Texts, layer.ID)
		if i < 0 {
			return domain.ErrTextLayerNotFound
		}
		cur.Texts[i] = normalizeTextLayer(layer)
		return nil
	})
}

// RemoveText deletes the layer with id.
func (s *SessionService) RemoveText(id string) error {
	return s.update(func(cur *domain.Scene) error {
		i := textIndex(cur.Texts, id)
		if i < 0 {
			return domain.ErrTextLayerNotFound
		}
		cur.Texts = slices.Delete(cur.Texts, i, i+1)
		return nil
	})
}

// SetMedia replaces the media references.
func (s *SessionService) SetMedia(refs domain.MediaRefs) error {
	switch refs.BackgroundKind {
	case domain.BackgroundNone, domain.BackgroundImage, domain.BackgroundVideo:
	default:
		return domain.NewValidationError("background_kind", refs.BackgroundKind, "must be image or video")
	}
	if refs.Background != "" && refs.BackgroundKind == domain.BackgroundNone {
		refs.BackgroundKind = domain.BackgroundImage
	}
	return s.update(func(cur *domain.Scene) error {
		cur.Media = refs
		cur.Media.SongCover = slices.Clone(refs.SongCover)
		return nil
	})
}

// SetSongCover sets the embedded cover used when no custom album art is set.
func (s *SessionService) SetSongCover(cover []byte) error {
	return s.update(func(cur *domain.Scene) error {
		cur.Media.SongCover = slices.Clone(cover)
		return nil
	})
}

// update applies fn under the write lock and publishes the new scene if fn succeeded.
// Events go out after the lock is released so handlers may call Snapshot.
func (s *SessionService) update(fn func(*domain.Scene) error) error {
	s.mu.Lock()
	if err := fn(&s.scene); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.scene.Clone()
	s.mu.Unlock()

	s.bus.Publish(domain.NewSceneChangedEvent(snap))
	return nil
}

func validateTextLayer(layer domain.TextLayer) error {
	if layer.ID == "" {
		return domain.NewValidationError("text.id", layer.ID, "must not be empty")
	}
	if layer.Size <= 0 {
		return domain.NewValidationError("text.size", layer.Size, "must be positive")
	}
	return nil
}

func normalizeTextLayer(layer domain.TextLayer) domain.TextLayer {
	layer.X = clampPercent(layer.X)
	layer.Y = clampPercent(layer.Y)
	if layer.Color == (color.RGBA{}) {
		layer.Color = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return layer
}

func clampPercent(v float64) float64 {
	return 100 * domain.Clamp01(v/100)
}

func textIndex(layers []domain.TextLayer, id string) int {
	return slices.IndexFunc(layers, func(l domain.TextLayer) bool { return l.ID == id })
}
