// Package config loads the tuning of a transform World and the description of a scene from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/akmonengine/dtransform"
	"github.com/akmonengine/dtransform/ecs"
	"github.com/akmonengine/dtransform/transform"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("config: invalid configuration")

type Config struct {
	Workers  int          `yaml:"workers"`
	MaxDepth int          `yaml:"max_depth"`
	Origin   OriginSpec   `yaml:"origin"`
	Scene    []EntitySpec `yaml:"scene"`
}

// OriginSpec sets either a fixed position or the name of a scene entity to pin the origin to.
// Leaving both empty keeps the world origin.
type OriginSpec struct {
	Position *[3]float64 `yaml:"position"`
	Entity   string      `yaml:"entity"`
}

type EntitySpec struct {
	Name      string        `yaml:"name"`
	Parent    string        `yaml:"parent"`
	Transform TransformSpec `yaml:"transform"`
	Render    bool          `yaml:"render"`
}

type TransformSpec struct {
	Translation [3]float64 `yaml:"translation"`
	// Rotation holds euler angles in degrees, applied in X, Y, Z order
	Rotation [3]float64  `yaml:"rotation"`
	Scale    *[3]float64 `yaml:"scale"`
}

func Default() Config {
	return Config{
		Workers:  dtransform.DEFAULT_WORKERS,
		MaxDepth: dtransform.DEFAULT_MAX_DEPTH,
	}
}

// Load reads and validates the configuration file at path
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over the default configuration. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d is negative", ErrInvalid, c.Workers)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: max_depth %d is negative", ErrInvalid, c.MaxDepth)
	}
	if c.Origin.Position != nil && c.Origin.Entity != "" {
		return fmt.Errorf("%w: origin sets both a position and an entity", ErrInvalid)
	}

	parents := make(map[string]string, len(c.Scene))
	for _, e := range c.Scene {
		if e.Name == "" {
			return fmt.Errorf("%w: scene entity without a name", ErrInvalid)
		}
		if _, ok := parents[e.Name]; ok {
			return fmt.Errorf("%w: scene entity %q is declared twice", ErrInvalid, e.Name)
		}
		parents[e.Name] = e.Parent
	}
	for name, parent := range parents {
		if parent == "" {
			continue
		}
		if _, ok := parents[parent]; !ok {
			return fmt.Errorf("%w: scene entity %q has unknown parent %q", ErrInvalid, name, parent)
		}
		// walking up more than len(parents) steps means a loop
		for current, steps := parent, 0; current != ""; current, steps = parents[current], steps+1 {
			if current == name || steps > len(parents) {
				return fmt.Errorf("%w: scene entity %q is its own ancestor", ErrInvalid, name)
			}
		}
	}
	if c.Origin.Entity != "" {
		if _, ok := parents[c.Origin.Entity]; !ok {
			return fmt.Errorf("%w: origin entity %q is not in the scene", ErrInvalid, c.Origin.Entity)
		}
	}
	return nil
}

func (t TransformSpec) Transform() transform.Transform {
	rotation := mgl64.AnglesToQuat(
		mgl64.DegToRad(t.Rotation[0]),
		mgl64.DegToRad(t.Rotation[1]),
		mgl64.DegToRad(t.Rotation[2]),
		mgl64.XYZ,
	)
	scale := mgl64.Vec3{1, 1, 1}
	if t.Scale != nil {
		scale = mgl64.Vec3(*t.Scale)
	}

	return transform.Transform{
		Translation: mgl64.Vec3(t.Translation),
		Rotation:    rotation.Normalize(),
		Scale:       scale,
	}
}

// Scene maps the names of the spawned scene entities to their entity
type Scene map[string]ecs.Entity

// Spawn creates the scene entities in reg, parents before their children
func (c Config) Spawn(reg *ecs.Registry) (Scene, error) {
	scene := make(Scene, len(c.Scene))
	pending := c.Scene
	for len(pending) > 0 {
		var next []EntitySpec
		for _, spec := range pending {
			if spec.Parent != "" {
				if _, ok := scene[spec.Parent]; !ok {
					next = append(next, spec)
					continue
				}
			}
			e, err := spawn(reg, scene, spec)
			if err != nil {
				return nil, err
			}
			scene[spec.Name] = e
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("%w: scene entity %q has an unresolvable parent", ErrInvalid, next[0].Name)
		}
		pending = next
	}
	return scene, nil
}

func spawn(reg *ecs.Registry, scene Scene, spec EntitySpec) (ecs.Entity, error) {
	local := spec.Transform.Transform()

	var e ecs.Entity
	if spec.Parent == "" {
		e = reg.SpawnBundle(transform.FromTransform(local))
	} else {
		var err error
		if e, err = reg.SpawnChild(scene[spec.Parent], local); err != nil {
			return ecs.Invalid, fmt.Errorf("config: spawn %q: %w", spec.Name, err)
		}
	}
	if spec.Render {
		if err := reg.InsertRender(e); err != nil {
			return ecs.Invalid, fmt.Errorf("config: spawn %q: %w", spec.Name, err)
		}
	}
	return e, nil
}

// Apply copies the tuning and the origin to w. The origin entity is looked up in scene.
func (c Config) Apply(w *dtransform.World, scene Scene) error {
	w.Workers = max(dtransform.DEFAULT_WORKERS, c.Workers)
	w.MaxDepth = c.MaxDepth
	if w.MaxDepth == 0 {
		w.MaxDepth = dtransform.DEFAULT_MAX_DEPTH
	}

	switch {
	case c.Origin.Entity != "":
		e, ok := scene[c.Origin.Entity]
		if !ok {
			return fmt.Errorf("%w: origin entity %q was not spawned", ErrInvalid, c.Origin.Entity)
		}
		w.SetOrigin(dtransform.PinnedToEntity{Entity: e})
	case c.Origin.Position != nil:
		w.SetOrigin(dtransform.FixedPosition{Position: mgl64.Vec3(*c.Origin.Position)})
	default:
		w.SetOrigin(dtransform.DefaultOrigin())
	}
	return nil
}
