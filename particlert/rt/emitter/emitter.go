package emitter

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// Emitter owns one particle ring and turns it into draw-ready data every frame.
// It is not safe for concurrent use: Update and PrepareFrameData/Draw run in frame
// order on the render thread.
type Emitter struct {
	cfg     Config
	ring    *SlotRing
	sim     *Simulator
	source  PositionSource
	packed  []core.ParticleSlot
	indices []uint32
}

type Option func(*options)

type options struct {
	rng *rand.Rand
}

// WithRand sets the random source used for spawn jitter.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}

// WithSeed seeds the spawn jitter source.
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// New validates cfg and allocates the fixed-capacity slot array. A nil source places
// the emitter at the origin.
func New(cfg Config, source PositionSource, opts ...Option) (*Emitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid emitter config: %w", err)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if source == nil {
		source = FixedPosition{}
	}

	e := &Emitter{
		cfg:     cfg,
		ring:    NewSlotRing(cfg.MaxParticles),
		source:  source,
		packed:  make([]core.ParticleSlot, cfg.MaxParticles),
		indices: QuadIndices(cfg.MaxParticles),
	}
	e.sim = newSimulator(e.ring, &e.cfg, source, o.rng)
	return e, nil
}

// Update advances the simulation by dt seconds; currentTime is the simulation clock.
func (e *Emitter) Update(dt, currentTime float32) UpdateStats {
	return e.sim.Advance(dt, currentTime)
}

// FrameData is a dense oldest-first copy of the live particles. Particles aliases the
// emitter's pack buffer and is only valid until the next PrepareFrameData.
type FrameData struct {
	Particles []core.ParticleSlot
	DrawCount int
}

// IndexCount is the number of indices to draw, six per live particle.
func (f FrameData) IndexCount() uint32 {
	return uint32(f.DrawCount * IndicesPerParticle)
}

func (e *Emitter) PrepareFrameData() FrameData {
	n := Pack(e.ring, e.packed)
	return FrameData{Particles: e.packed[:n], DrawCount: n}
}

// Draw packs the live range, sets the per-frame shader variables, uploads and issues
// one indexed draw. Nothing is uploaded or drawn when no particle is alive.
func (e *Emitter) Draw(target FrameTarget, params ShaderParams, cam Camera, currentTime float32) error {
	frame := e.PrepareFrameData()
	if frame.DrawCount == 0 {
		return nil
	}

	params.SetMatrix4x4(core.ParamView, cam.View)
	params.SetMatrix4x4(core.ParamProjection, cam.Projection)
	params.SetFloat(core.ParamCurrentTime, currentTime)
	params.SetFloat(core.ParamLifetime, e.cfg.Lifetime)
	params.SetFloat3(core.ParamAcceleration, e.cfg.Acceleration)
	params.SetFloat(core.ParamStartSize, e.cfg.StartSize)
	params.SetFloat(core.ParamEndSize, e.cfg.EndSize)
	params.SetFloat4(core.ParamStartColor, e.cfg.StartColor)
	params.SetFloat4(core.ParamEndColor, e.cfg.EndColor)

	if err := target.UploadParticles(frame.Particles); err != nil {
		return fmt.Errorf("uploading %d particles: %w", frame.DrawCount, err)
	}
	if err := target.DrawIndexed(frame.IndexCount()); err != nil {
		return fmt.Errorf("drawing %d particles: %w", frame.DrawCount, err)
	}
	return nil
}

// Reset kills every particle and restarts the emission clock.
func (e *Emitter) Reset() {
	e.ring.Reset()
	e.sim.reset()
}

func (e *Emitter) Config() Config              { return e.cfg }
func (e *Emitter) Living() int                 { return e.ring.Len() }
func (e *Emitter) Capacity() int               { return e.ring.Cap() }
func (e *Emitter) Ring() *SlotRing             { return e.ring }
func (e *Emitter) Position() mgl32.Vec3        { return e.source.WorldPosition() }
func (e *Emitter) Source() PositionSource      { return e.source }
func (e *Emitter) SecondsPerParticle() float32 { return e.sim.secondsPerParticle }

// Indices is the static quad index pattern for the full capacity.
func (e *Emitter) Indices() []uint32 { return e.indices }

func (e *Emitter) Lifetime() float32 { return e.cfg.Lifetime }

// SetLifetime changes the lifetime of live and future particles. It must stay positive.
func (e *Emitter) SetLifetime(v float32) error {
	if v <= 0 {
		return fmt.Errorf("%w: got %g", ErrInvalidLifetime, v)
	}
	e.cfg.Lifetime = v
	return nil
}

func (e *Emitter) Acceleration() mgl32.Vec3 { return e.cfg.Acceleration }
func (e *Emitter) SetAcceleration(v mgl32.Vec3) {
	e.cfg.Acceleration = v
}
func (e *Emitter) StartVelocity() mgl32.Vec3 { return e.cfg.StartVelocity }
func (e *Emitter) SetStartVelocity(v mgl32.Vec3) {
	e.cfg.StartVelocity = v
}

func (e *Emitter) StartSize() float32 { return e.cfg.StartSize }
func (e *Emitter) EndSize() float32   { return e.cfg.EndSize }
func (e *Emitter) SetSizes(start, end float32) {
	e.cfg.StartSize = start
	e.cfg.EndSize = end
}

func (e *Emitter) StartColor() mgl32.Vec4 { return e.cfg.StartColor }
func (e *Emitter) EndColor() mgl32.Vec4   { return e.cfg.EndColor }
func (e *Emitter) SetColors(start, end mgl32.Vec4) {
	e.cfg.StartColor = start
	e.cfg.EndColor = end
}
