package particles

import (
	"math"
	"testing"
	"time"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/emitter"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// One particle per frame at a 1/64 s step, with values exact in float32.
func steadyPreset(name string, capacity int) EmitterPreset {
	return EmitterPreset{
		Name:               name,
		MaxParticles:       capacity,
		ParticlesPerSecond: 64,
		Lifetime:           100,
		StartVelocity:      []float32{0, 1, 0},
	}
}

func buildEmitterApp(t *testing.T, presets ...EmitterPreset) *App {
	t.Helper()
	return NewAppBuilder().
		UseModule(TimeModule{FixedStep: time.Second / 64}).
		UseModule(EmittersModule{Presets: &Presets{Emitters: presets}, Seed: 7}).
		Build()
}

func TestEmitterRegistry(t *testing.T) {
	r := NewEmitterRegistry()

	a, err := r.Add("a", emitter.DefaultConfig(), mgl32.Vec3{1, 0, 0})
	require.NoError(t, err)
	b, err := r.Add("b", emitter.DefaultConfig(), mgl32.Vec3{2, 0, 0})
	require.NoError(t, err)
	assert.NotEqual(t, a.Id, b.Id)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, b.Emitter.Position())

	got, ok := r.Get(a.Id)
	require.True(t, ok)
	assert.Same(t, a, got)

	var names []string
	r.Map(func(e *EmitterEntry) bool {
		names = append(names, e.Name)
		return true
	})
	assert.Equal(t, []string{"a", "b"}, names)

	assert.True(t, r.Remove(a.Id))
	assert.False(t, r.Remove(a.Id))
	_, ok = r.Get(a.Id)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())

	cfg := emitter.DefaultConfig()
	cfg.MaxParticles = 0
	_, err = r.Add("broken", cfg, mgl32.Vec3{})
	assert.ErrorIs(t, err, emitter.ErrInvalidCapacity)
	assert.Equal(t, 1, r.Len())
}

func TestEmitterRegistry_MapStops(t *testing.T) {
	r := NewEmitterRegistry()
	for _, name := range []string{"a", "b", "c"} {
		_, err := r.Add(name, emitter.DefaultConfig(), mgl32.Vec3{})
		require.NoError(t, err)
	}
	visited := 0
	r.Map(func(e *EmitterEntry) bool {
		visited++
		return e.Name != "b"
	})
	assert.Equal(t, 2, visited)
}

func TestEmitterRegistry_AddPresetOrbit(t *testing.T) {
	r := NewEmitterRegistry()
	p := steadyPreset("orbiting", 8)
	p.Position = []float32{0, 1, 0}
	p.Orbit = &OrbitPreset{Radius: 2, Speed: 1}

	entry, err := r.AddPreset(p)
	require.NoError(t, err)
	require.NotNil(t, entry.Orbit)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, entry.Orbit.Center)
	assert.True(t, entry.Transform.Position.ApproxEqual(mgl32.Vec3{2, 1, 0}))
}

func TestOrbit_PositionAt(t *testing.T) {
	o := Orbit{Center: mgl32.Vec3{1, 0, 1}, Radius: 2, Speed: math.Pi / 2}
	assert.True(t, o.PositionAt(0).ApproxEqual(mgl32.Vec3{3, 0, 1}))
	assert.True(t, o.PositionAt(1).ApproxEqualThreshold(mgl32.Vec3{1, 0, 3}, 1e-5))
	assert.True(t, o.PositionAt(2).ApproxEqualThreshold(mgl32.Vec3{-1, 0, 1}, 1e-5))
}

func TestEmittersModule_Update(t *testing.T) {
	app := buildEmitterApp(t, steadyPreset("steady", 100))
	app.RunFrames(10)

	registry := Resource[EmitterRegistry](app)
	require.NotNil(t, registry)
	require.Equal(t, 1, registry.Len())

	registry.Map(func(entry *EmitterEntry) bool {
		assert.Equal(t, 10, entry.Emitter.Living())
		assert.Equal(t, 10, entry.Totals.Spawned)
		assert.Equal(t, 0, entry.Totals.Dropped)
		assert.Equal(t, emitter.UpdateStats{Spawned: 1}, entry.LastStats)
		return true
	})
}

func TestEmittersModule_Saturation(t *testing.T) {
	app := buildEmitterApp(t, steadyPreset("small", 4))
	app.RunFrames(10)

	registry := Resource[EmitterRegistry](app)
	registry.Map(func(entry *EmitterEntry) bool {
		assert.Equal(t, 4, entry.Emitter.Living())
		assert.Equal(t, 4, entry.Totals.Spawned)
		assert.Equal(t, 6, entry.Totals.Dropped)
		assert.True(t, entry.saturated)
		return true
	})
}

func TestEmittersModule_DisabledEmitterIsFrozen(t *testing.T) {
	app := buildEmitterApp(t, steadyPreset("frozen", 100))
	registry := Resource[EmitterRegistry](app)

	app.RunFrames(3)
	registry.Map(func(entry *EmitterEntry) bool {
		entry.Enabled = false
		return true
	})
	app.RunFrames(3)

	registry.Map(func(entry *EmitterEntry) bool {
		assert.Equal(t, 3, entry.Emitter.Living())
		assert.Equal(t, emitter.UpdateStats{}, entry.LastStats)
		return true
	})
}

func TestEmittersModule_OrbitFollowsClock(t *testing.T) {
	p := steadyPreset("comet", 100)
	p.Orbit = &OrbitPreset{Radius: 3, Speed: 1.5}
	app := buildEmitterApp(t, p)

	app.RunFrames(32)

	now := Resource[Time](app).Now()
	Resource[EmitterRegistry](app).Map(func(entry *EmitterEntry) bool {
		want := entry.Orbit.PositionAt(now)
		assert.True(t, entry.Transform.Position.ApproxEqual(want))
		// the newest particle was stamped at the orbit position of its frame
		newest := entry.Emitter.Ring().At(entry.Emitter.Living() - 1)
		assert.True(t, newest.StartPosition.ApproxEqual(want))
		return true
	})
}

func TestEmittersModule_CameraPreset(t *testing.T) {
	app := NewAppBuilder().
		UseModule(TimeModule{FixedStep: time.Second / 64}).
		UseModule(EmittersModule{Presets: &Presets{Camera: CameraPreset{
			Position: []float32{0, 0, 10},
			Target:   []float32{0, 0, 0},
			FovY:     45,
		}}}).
		Build()

	cam := Resource[FrameRenderer](app).Camera
	assert.Equal(t, mgl32.Vec3{0, 0, 10}, cam.Position)
	assert.Equal(t, float32(45), cam.FovY)
	assert.True(t, cam.GetForward().ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5))
}

func TestEmittersModule_InvalidPresetPanics(t *testing.T) {
	p := steadyPreset("broken", 0)
	assert.Panics(t, func() { buildEmitterApp(t, p) })
}

type recordingTarget struct {
	uploads []int
	draws   []uint32
}

func (r *recordingTarget) UploadParticles(slots []core.ParticleSlot) error {
	r.uploads = append(r.uploads, len(slots))
	return nil
}

func (r *recordingTarget) DrawIndexed(indexCount uint32) error {
	r.draws = append(r.draws, indexCount)
	return nil
}

type recordingSink struct {
	begins, ends int
	targets      map[*emitter.Emitter]*recordingTarget
	params       *core.UniformBlock
}

func newRecordingSink() *recordingSink {
	return &recordingSink{targets: map[*emitter.Emitter]*recordingTarget{}, params: core.NewUniformBlock()}
}

func (s *recordingSink) BeginFrame() error { s.begins++; return nil }
func (s *recordingSink) Aspect() float32   { return 2 }
func (s *recordingSink) EndFrame() error   { s.ends++; return nil }

func (s *recordingSink) Target(e *emitter.Emitter) (emitter.FrameTarget, emitter.ShaderParams, error) {
	t, ok := s.targets[e]
	if !ok {
		t = &recordingTarget{}
		s.targets[e] = t
	}
	return t, s.params, nil
}

func TestEmittersModule_DrawsIntoSinks(t *testing.T) {
	app := buildEmitterApp(t, steadyPreset("a", 100), steadyPreset("b", 2))
	sink := newRecordingSink()
	AddFrameSink(app, sink)

	app.RunFrames(3)

	assert.Equal(t, 3, sink.begins)
	assert.Equal(t, 3, sink.ends)
	require.Len(t, sink.targets, 2)

	registry := Resource[EmitterRegistry](app)
	registry.Map(func(entry *EmitterEntry) bool {
		target := sink.targets[entry.Emitter]
		require.NotNil(t, target, entry.Name)
		switch entry.Name {
		case "a":
			assert.Equal(t, []int{1, 2, 3}, target.uploads)
			assert.Equal(t, []uint32{6, 12, 18}, target.draws)
		case "b":
			assert.Equal(t, []int{1, 2, 2}, target.uploads)
			assert.Equal(t, []uint32{6, 12, 12}, target.draws)
		}
		return true
	})

	assert.Equal(t, Resource[Time](app).Now(), sink.params.Float(core.ParamCurrentTime))
}
