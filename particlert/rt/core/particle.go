package core

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SlotStride is the byte size of one ParticleSlot record in the GPU structured buffer.
// WGSL: struct Particle { emit_time: f32, start_pos: array<f32,3>, start_vel: array<f32,3> }
const SlotStride = 28

// ParticleSlot is the spawn record of a single particle. Everything else about the
// particle (age, position, size, colour) is derived on the GPU from these values.
type ParticleSlot struct {
	EmitTime      float32
	StartPosition mgl32.Vec3
	StartVelocity mgl32.Vec3
}

// Age returns the particle age at currentTime.
func (p ParticleSlot) Age(currentTime float32) float32 {
	return currentTime - p.EmitTime
}

// PositionAt evaluates the ballistic position the vertex shader computes:
// p0 + v*t + a*t^2/2.
func (p ParticleSlot) PositionAt(currentTime float32, accel mgl32.Vec3) mgl32.Vec3 {
	t := p.Age(currentTime)
	return p.StartPosition.
		Add(p.StartVelocity.Mul(t)).
		Add(accel.Mul(0.5 * t * t))
}

// EncodeSlots writes slots into dst using the SlotStride little-endian layout and
// returns the written prefix. dst is grown when too small.
func EncodeSlots(dst []byte, slots []ParticleSlot) []byte {
	need := len(slots) * SlotStride
	if cap(dst) < need {
		dst = make([]byte, need)
	}
	dst = dst[:need]

	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
	}
	for i, s := range slots {
		off := i * SlotStride
		put(off, s.EmitTime)
		put(off+4, s.StartPosition[0])
		put(off+8, s.StartPosition[1])
		put(off+12, s.StartPosition[2])
		put(off+16, s.StartVelocity[0])
		put(off+20, s.StartVelocity[1])
		put(off+24, s.StartVelocity[2])
	}
	return dst
}

// DecodeSlots is the inverse of EncodeSlots.
func DecodeSlots(src []byte) ([]ParticleSlot, error) {
	if len(src)%SlotStride != 0 {
		return nil, fmt.Errorf("particle buffer length %d is not a multiple of %d", len(src), SlotStride)
	}
	get := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
	}
	out := make([]ParticleSlot, len(src)/SlotStride)
	for i := range out {
		off := i * SlotStride
		out[i] = ParticleSlot{
			EmitTime:      get(off),
			StartPosition: mgl32.Vec3{get(off + 4), get(off + 8), get(off + 12)},
			StartVelocity: mgl32.Vec3{get(off + 16), get(off + 20), get(off + 24)},
		}
	}
	return out, nil
}
