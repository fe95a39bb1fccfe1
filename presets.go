package particles

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/gekko3d/particles/particlert/rt/emitter"
	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresetsYAML []byte

// Presets is the scene description: a camera and a list of named emitters.
type Presets struct {
	Camera   CameraPreset    `yaml:"camera"`
	Emitters []EmitterPreset `yaml:"emitters"`
}

type CameraPreset struct {
	Position []float32 `yaml:"position"`
	Target   []float32 `yaml:"target"`
	FovY     float32   `yaml:"fov_y"`
}

type EmitterPreset struct {
	Name     string    `yaml:"name"`
	Position []float32 `yaml:"position"`

	MaxParticles       int       `yaml:"max_particles"`
	ParticlesPerSecond float32   `yaml:"particles_per_second"`
	Lifetime           float32   `yaml:"lifetime"`
	StartVelocity      []float32 `yaml:"start_velocity"`
	Acceleration       []float32 `yaml:"acceleration"`
	StartSize          float32   `yaml:"start_size"`
	EndSize            float32   `yaml:"end_size"`
	StartColor         []float32 `yaml:"start_color"`
	EndColor           []float32 `yaml:"end_color"`

	Spawn SpawnPreset  `yaml:"spawn"`
	Orbit *OrbitPreset `yaml:"orbit,omitempty"`
}

type SpawnPreset struct {
	Kind       string  `yaml:"kind"` // point | box
	HalfExtent float32 `yaml:"half_extent"`
}

// OrbitPreset moves the emitter on a horizontal circle around its position.
type OrbitPreset struct {
	Radius float32 `yaml:"radius"`
	Speed  float32 `yaml:"speed"` // radians per second
	Phase  float32 `yaml:"phase"`
}

// DefaultPresets returns the embedded scene.
func DefaultPresets() (*Presets, error) {
	p := &Presets{}
	if err := yaml.Unmarshal(defaultPresetsYAML, p); err != nil {
		return nil, fmt.Errorf("parsing embedded presets: %w", err)
	}
	return p, nil
}

// LoadPresets reads a YAML scene over the embedded defaults. Fields present in the file
// replace the defaults; an emitters list replaces the default list as a whole.
// An empty path yields the defaults.
func LoadPresets(path string) (*Presets, error) {
	p, err := DefaultPresets()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading presets file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing presets file: %w", err)
	}
	return p, nil
}

// Config converts the preset to an emitter configuration. Validation of the values
// themselves happens in emitter.New.
func (p EmitterPreset) Config() (emitter.Config, error) {
	cfg := emitter.Config{
		MaxParticles:       p.MaxParticles,
		ParticlesPerSecond: p.ParticlesPerSecond,
		Lifetime:           p.Lifetime,
		StartSize:          p.StartSize,
		EndSize:            p.EndSize,
	}

	var err error
	if cfg.StartVelocity, err = vec3(p.StartVelocity, mgl32.Vec3{}); err != nil {
		return cfg, fmt.Errorf("emitter %q start_velocity: %w", p.Name, err)
	}
	if cfg.Acceleration, err = vec3(p.Acceleration, mgl32.Vec3{}); err != nil {
		return cfg, fmt.Errorf("emitter %q acceleration: %w", p.Name, err)
	}
	if cfg.StartColor, err = vec4(p.StartColor, mgl32.Vec4{1, 1, 1, 1}); err != nil {
		return cfg, fmt.Errorf("emitter %q start_color: %w", p.Name, err)
	}
	if cfg.EndColor, err = vec4(p.EndColor, mgl32.Vec4{1, 1, 1, 1}); err != nil {
		return cfg, fmt.Errorf("emitter %q end_color: %w", p.Name, err)
	}

	switch p.Spawn.Kind {
	case "", "point":
		cfg.Spawn.Kind = emitter.SpawnPoint
	case "box":
		cfg.Spawn.Kind = emitter.SpawnBox
		cfg.Spawn.HalfExtent = p.Spawn.HalfExtent
	default:
		return cfg, fmt.Errorf("emitter %q: unknown spawn kind %q", p.Name, p.Spawn.Kind)
	}
	return cfg, nil
}

func (p EmitterPreset) WorldPosition() (mgl32.Vec3, error) {
	return vec3(p.Position, mgl32.Vec3{})
}

func vec3(v []float32, def mgl32.Vec3) (mgl32.Vec3, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 3:
		return mgl32.Vec3{v[0], v[1], v[2]}, nil
	}
	return def, fmt.Errorf("expected 3 components, got %d", len(v))
}

func vec4(v []float32, def mgl32.Vec4) (mgl32.Vec4, error) {
	switch len(v) {
	case 0:
		return def, nil
	case 4:
		return mgl32.Vec4{v[0], v[1], v[2], v[3]}, nil
	}
	return def, fmt.Errorf("expected 4 components, got %d", len(v))
}
