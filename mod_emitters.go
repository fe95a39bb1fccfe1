package particles

import (
	"fmt"
	"math"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/emitter"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type EmitterId string

func makeEmitterId() EmitterId {
	return EmitterId(uuid.NewString())
}

// Orbit moves an emitter transform on a horizontal circle around Center.
type Orbit struct {
	Center mgl32.Vec3
	Radius float32
	Speed  float32 // radians per second
	Phase  float32
}

func (o Orbit) PositionAt(t float32) mgl32.Vec3 {
	angle := float64(o.Phase + o.Speed*t)
	return o.Center.Add(mgl32.Vec3{
		o.Radius * float32(math.Cos(angle)),
		0,
		o.Radius * float32(math.Sin(angle)),
	})
}

// EmitterTotals accumulate UpdateStats over the whole run.
type EmitterTotals struct {
	Spawned int
	Retired int
	Dropped int
}

type EmitterEntry struct {
	Id        EmitterId
	Name      string
	Emitter   *emitter.Emitter
	Transform *core.Transform
	Orbit     *Orbit
	Enabled   bool

	LastStats emitter.UpdateStats
	Totals    EmitterTotals

	saturated bool
}

// EmitterRegistry holds every emitter of the app in insertion order.
type EmitterRegistry struct {
	entries []*EmitterEntry
	byId    map[EmitterId]*EmitterEntry
}

func NewEmitterRegistry() *EmitterRegistry {
	return &EmitterRegistry{byId: make(map[EmitterId]*EmitterEntry)}
}

// Add creates an emitter attached to a new transform at position.
func (r *EmitterRegistry) Add(name string, cfg emitter.Config, position mgl32.Vec3, opts ...emitter.Option) (*EmitterEntry, error) {
	tr := core.NewTransform()
	tr.Position = position

	e, err := emitter.New(cfg, tr, opts...)
	if err != nil {
		return nil, fmt.Errorf("emitter %q: %w", name, err)
	}

	entry := &EmitterEntry{
		Id:        makeEmitterId(),
		Name:      name,
		Emitter:   e,
		Transform: tr,
		Enabled:   true,
	}
	r.entries = append(r.entries, entry)
	r.byId[entry.Id] = entry
	return entry, nil
}

// AddPreset builds an emitter from a scene preset.
func (r *EmitterRegistry) AddPreset(p EmitterPreset, opts ...emitter.Option) (*EmitterEntry, error) {
	cfg, err := p.Config()
	if err != nil {
		return nil, err
	}
	pos, err := p.WorldPosition()
	if err != nil {
		return nil, fmt.Errorf("emitter %q position: %w", p.Name, err)
	}
	entry, err := r.Add(p.Name, cfg, pos, opts...)
	if err != nil {
		return nil, err
	}
	if p.Orbit != nil {
		entry.Orbit = &Orbit{Center: pos, Radius: p.Orbit.Radius, Speed: p.Orbit.Speed, Phase: p.Orbit.Phase}
		entry.Transform.MoveAbsolute(entry.Orbit.PositionAt(0))
	}
	return entry, nil
}

func (r *EmitterRegistry) Get(id EmitterId) (*EmitterEntry, bool) {
	e, ok := r.byId[id]
	return e, ok
}

func (r *EmitterRegistry) Remove(id EmitterId) bool {
	if _, ok := r.byId[id]; !ok {
		return false
	}
	delete(r.byId, id)
	for i, e := range r.entries {
		if e.Id == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	return true
}

func (r *EmitterRegistry) Len() int {
	return len(r.entries)
}

// Map calls fn for every entry in insertion order until fn returns false.
func (r *EmitterRegistry) Map(fn func(entry *EmitterEntry) bool) {
	for _, e := range r.entries {
		if !fn(e) {
			return
		}
	}
}

// FrameSink is a place emitters draw into: the GPU pass or the preview canvas.
type FrameSink interface {
	BeginFrame() error
	Aspect() float32
	Target(e *emitter.Emitter) (emitter.FrameTarget, emitter.ShaderParams, error)
	EndFrame() error
}

// FrameRenderer is the resource the draw system renders through.
type FrameRenderer struct {
	Camera *core.CameraState
	Sinks  []FrameSink
}

func ensureFrameRenderer(app *App) *FrameRenderer {
	if r := Resource[FrameRenderer](app); r != nil {
		return r
	}
	r := &FrameRenderer{Camera: core.NewCameraState()}
	app.addResources(r)
	return r
}

// AddFrameSink registers sink with the app's FrameRenderer.
func AddFrameSink(app *App, sink FrameSink) *FrameRenderer {
	r := ensureFrameRenderer(app)
	r.Sinks = append(r.Sinks, sink)
	return r
}

// EmittersModule installs the registry, fills it from Presets and schedules
// motion (PreUpdate), simulation (Update) and drawing (Render).
type EmittersModule struct {
	Presets *Presets
	Seed    int64 // non-zero makes spawn jitter reproducible
}

func (mod EmittersModule) Install(app *App, cmd *Commands) {
	registry := NewEmitterRegistry()
	renderer := ensureFrameRenderer(app)

	if mod.Presets != nil {
		applyCameraPreset(renderer.Camera, mod.Presets.Camera)
		for i, p := range mod.Presets.Emitters {
			var opts []emitter.Option
			if mod.Seed != 0 {
				opts = append(opts, emitter.WithSeed(mod.Seed+int64(i)))
			}
			entry, err := registry.AddPreset(p, opts...)
			if err != nil {
				panic(fmt.Sprintf("installing emitter presets: %v", err))
			}
			Named(app.Logger(), "emitters").Debugf("emitter %s (%s): capacity %d, %.1f/s", entry.Name, entry.Id, entry.Emitter.Capacity(), p.ParticlesPerSecond)
		}
	}

	cmd.AddResources(registry)
	cmd.UseSystem(System(emitterMotionSystem).InStage(PreUpdate))
	cmd.UseSystem(System(emitterUpdateSystem).InStage(Update))
	cmd.UseSystem(System(emitterDrawSystem).InStage(Render))
}

func applyCameraPreset(cam *core.CameraState, p CameraPreset) {
	if pos, err := vec3(p.Position, cam.Position); err == nil {
		cam.Position = pos
	}
	if p.FovY > 0 {
		cam.FovY = p.FovY
	}
	if len(p.Target) == 3 {
		cam.LookAt(mgl32.Vec3{p.Target[0], p.Target[1], p.Target[2]})
	}
}

func emitterMotionSystem(t *Time, registry *EmitterRegistry) {
	now := t.Now()
	registry.Map(func(entry *EmitterEntry) bool {
		if entry.Orbit != nil {
			entry.Transform.MoveAbsolute(entry.Orbit.PositionAt(now))
		}
		return true
	})
}

func emitterUpdateSystem(t *Time, registry *EmitterRegistry, cmd *Commands) {
	logger := Named(cmd.Logger(), "emitters")
	dt, now := t.DtSeconds(), t.Now()
	registry.Map(func(entry *EmitterEntry) bool {
		if !entry.Enabled {
			entry.LastStats = emitter.UpdateStats{}
			return true
		}
		stats := entry.Emitter.Update(dt, now)
		entry.LastStats = stats
		entry.Totals.Spawned += stats.Spawned
		entry.Totals.Retired += stats.Retired
		entry.Totals.Dropped += stats.Dropped

		if stats.Dropped > 0 && !entry.saturated {
			entry.saturated = true
			logger.Debugf("emitter %s reached its capacity of %d particles", entry.Name, entry.Emitter.Capacity())
		}
		return true
	})
}

func emitterDrawSystem(t *Time, registry *EmitterRegistry, renderer *FrameRenderer, cmd *Commands) {
	logger := Named(cmd.Logger(), "emitters")
	now := t.Now()
	for _, sink := range renderer.Sinks {
		if err := sink.BeginFrame(); err != nil {
			logger.Errorf("starting frame: %v", err)
			continue
		}
		cam := emitter.Camera{
			View:       renderer.Camera.GetViewMatrix(),
			Projection: renderer.Camera.GetProjectionMatrix(sink.Aspect()),
		}
		registry.Map(func(entry *EmitterEntry) bool {
			if !entry.Enabled {
				return true
			}
			target, params, err := sink.Target(entry.Emitter)
			if err == nil {
				err = entry.Emitter.Draw(target, params, cam, now)
			}
			if err != nil {
				logger.Errorf("drawing emitter %s: %v", entry.Name, err)
			}
			return true
		})
		if err := sink.EndFrame(); err != nil {
			logger.Errorf("finishing frame: %v", err)
		}
	}
}
