package file

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// ErrSceneNotFound is returned by Load for a name with no stored scene.
var ErrSceneNotFound = errors.New("scene not found")

const sceneExt = ".yaml"

// SceneRepository implements ports.SceneRepository with one YAML file per scene.
//
// A name is either a bare scene name, stored as <dir>/<name>.yaml, or a path ending
// in .yaml or .yml, used as is.
type SceneRepository struct {
	logger *slog.Logger
	dir    string
}

// NewSceneRepository creates a repository rooted at dir.
func NewSceneRepository(dir string, logger *slog.Logger) *SceneRepository {
	return &SceneRepository{
		logger: logger.With(slog.String("adapter", "scene_repository")),
		dir:    dir,
	}
}

func (r *SceneRepository) path(name string) (string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return name, nil
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", domain.NewValidationError("scene", name, "invalid scene name")
	}
	return filepath.Join(r.dir, name+sceneExt), nil
}

// Load reads the scene stored under name.
func (r *SceneRepository) Load(name string) (domain.Scene, error) {
	p, err := r.path(name)
	if err != nil {
		return domain.Scene{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Scene{}, fmt.Errorf("%w: %s", ErrSceneNotFound, name)
	}
	if err != nil {
		return domain.Scene{}, fmt.Errorf("reading scene %s: %w", name, err)
	}

	scene, err := Unmarshal(data)
	if err != nil {
		return domain.Scene{}, fmt.Errorf("scene %s: %w", name, err)
	}
	r.logger.Debug("scene loaded", slog.String("path", p))
	return scene, nil
}

// Save writes scene under name. The file is replaced atomically.
func (r *SceneRepository) Save(name string, scene domain.Scene) error {
	p, err := r.path(name)
	if err != nil {
		return err
	}
	data, err := Marshal(scene)
	if err != nil {
		return fmt.Errorf("encoding scene %s: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating scene directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".scene-*")
	if err != nil {
		return fmt.Errorf("saving scene %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("saving scene %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saving scene %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("saving scene %s: %w", name, err)
	}
	r.logger.Debug("scene saved", slog.String("path", p))
	return nil
}

// List returns the bare names of the stored scenes, sorted.
func (r *SceneRepository) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != sceneExt || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), sceneExt))
	}
	slices.Sort(names)
	return names, nil
}

var _ ports.SceneRepository = (*SceneRepository)(nil)
