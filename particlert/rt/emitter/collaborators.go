package emitter

import (
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// PositionSource supplies the emitter position. It is read on every spawn so a moving
// transform drags new particles along with it.
type PositionSource interface {
	WorldPosition() mgl32.Vec3
}

// FixedPosition is a PositionSource that never moves.
type FixedPosition mgl32.Vec3

func (p FixedPosition) WorldPosition() mgl32.Vec3 { return mgl32.Vec3(p) }

// FrameTarget is the GPU side of a draw: the particle buffer is replaced wholesale
// with the packed slots, then drawn with the static quad index buffer.
type FrameTarget interface {
	UploadParticles(slots []core.ParticleSlot) error
	DrawIndexed(indexCount uint32) error
}

// ShaderParams sets per-frame shader variables by name. Setters report whether the
// variable exists.
type ShaderParams interface {
	SetMatrix4x4(name string, m mgl32.Mat4) bool
	SetFloat(name string, v float32) bool
	SetFloat3(name string, v mgl32.Vec3) bool
	SetFloat4(name string, v mgl32.Vec4) bool
}

// Camera carries the matrices a particle draw needs.
type Camera struct {
	View       mgl32.Mat4
	Projection mgl32.Mat4
}
