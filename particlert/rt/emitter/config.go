package emitter

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrInvalidCapacity  = errors.New("max particles must be positive")
	ErrInvalidSpawnRate = errors.New("particles per second must be positive")
	ErrInvalidLifetime  = errors.New("lifetime must be positive")
)

// DefaultBoxHalfExtent is the per-axis jitter applied by a box spawn volume.
const DefaultBoxHalfExtent = 2.0

type SpawnKind int

const (
	SpawnPoint SpawnKind = iota
	SpawnBox
)

func (k SpawnKind) String() string {
	switch k {
	case SpawnPoint:
		return "point"
	case SpawnBox:
		return "box"
	}
	return fmt.Sprintf("SpawnKind(%d)", int(k))
}

// SpawnVolume describes where new particles appear relative to the emitter position.
// A box volume offsets each axis by a uniform value in [-HalfExtent, HalfExtent].
type SpawnVolume struct {
	Kind       SpawnKind
	HalfExtent float32
}

// Config is fixed at construction; capacity cannot change afterwards.
type Config struct {
	MaxParticles       int
	ParticlesPerSecond float32
	Lifetime           float32 // seconds

	StartVelocity mgl32.Vec3
	Acceleration  mgl32.Vec3

	StartSize  float32
	EndSize    float32
	StartColor mgl32.Vec4
	EndColor   mgl32.Vec4

	Spawn SpawnVolume
}

// DefaultConfig mirrors the defaults of a freshly placed emitter: white, unit sized,
// drifting straight up.
func DefaultConfig() Config {
	return Config{
		MaxParticles:       100,
		ParticlesPerSecond: 10,
		Lifetime:           5,
		StartVelocity:      mgl32.Vec3{0, 1, 0},
		StartSize:          1,
		EndSize:            1,
		StartColor:         mgl32.Vec4{1, 1, 1, 1},
		EndColor:           mgl32.Vec4{1, 1, 1, 1},
	}
}

// Validate reports the first configuration error, if any.
func (c Config) Validate() error {
	if c.MaxParticles <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCapacity, c.MaxParticles)
	}
	if c.ParticlesPerSecond <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidSpawnRate, c.ParticlesPerSecond)
	}
	if c.Lifetime <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidLifetime, c.Lifetime)
	}
	return nil
}

// SecondsPerParticle is the fixed emission interval.
func (c Config) SecondsPerParticle() float32 {
	return 1.0 / c.ParticlesPerSecond
}

func (c Config) boxHalfExtent() float32 {
	if c.Spawn.HalfExtent > 0 {
		return c.Spawn.HalfExtent
	}
	return DefaultBoxHalfExtent
}
