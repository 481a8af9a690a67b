// Package prefs keeps scenes in the preview application's Fyne preferences, so the
// preview window reopens with the look it was closed with.
package prefs

import (
	"fmt"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/fspecii/ace-step-ui/internal/adapter/repository/file"
	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

const keyPrefix = "scenes."

// SceneRepository implements ports.SceneRepository on top of fyne.Preferences.
// Scenes are stored as YAML strings.
//
// Thread-safe: All operations protected by sync.RWMutex.
type SceneRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewSceneRepository creates a repository.
// The preferences parameter should be obtained from fyne.CurrentApp().Preferences().
func NewSceneRepository(prefs fyne.Preferences) *SceneRepository {
	return &SceneRepository{prefs: prefs}
}

// Load returns the scene saved under name, or the default scene when none was saved.
func (r *SceneRepository) Load(name string) (domain.Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	raw := r.prefs.String(keyPrefix + name)
	if raw == "" {
		return domain.DefaultScene(), nil
	}
	scene, err := file.Unmarshal([]byte(raw))
	if err != nil {
		return domain.Scene{}, fmt.Errorf("stored scene %s: %w", name, err)
	}
	return scene, nil
}

// Save stores scene under name.
func (r *SceneRepository) Save(name string, scene domain.Scene) error {
	data, err := file.Marshal(scene)
	if err != nil {
		return fmt.Errorf("encoding scene %s: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs.SetString(keyPrefix+name, string(data))
	return nil
}

var _ ports.SceneRepository = (*SceneRepository)(nil)
