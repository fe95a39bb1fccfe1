package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Per-frame parameter names shared by the emitter, the GPU pass and the preview rasteriser.
const (
	ParamView         = "view"
	ParamProjection   = "projection"
	ParamStartColor   = "startColor"
	ParamEndColor     = "endColor"
	ParamAcceleration = "acceleration"
	ParamCurrentTime  = "currentTime"
	ParamStartSize    = "startSize"
	ParamEndSize      = "endSize"
	ParamLifetime     = "lifetime"
)

// FrameParamsSize is the padded size of the WGSL FrameParams uniform.
//
//	struct FrameParams {
//	  view: mat4x4<f32>,        -- 0
//	  projection: mat4x4<f32>,  -- 64
//	  start_color: vec4<f32>,   -- 128
//	  end_color: vec4<f32>,     -- 144
//	  acceleration: vec3<f32>,  -- 160
//	  current_time: f32,        -- 172
//	  start_size: f32,          -- 176
//	  end_size: f32,            -- 180
//	  lifetime: f32,            -- 184
//	} -> 192 bytes (padded)
const FrameParamsSize = 192

type uniformKind int

const (
	uniformFloat uniformKind = iota
	uniformFloat3
	uniformFloat4
	uniformMat4
)

type uniformField struct {
	offset int
	kind   uniformKind
}

var frameParamsLayout = map[string]uniformField{
	ParamView:         {0, uniformMat4},
	ParamProjection:   {64, uniformMat4},
	ParamStartColor:   {128, uniformFloat4},
	ParamEndColor:     {144, uniformFloat4},
	ParamAcceleration: {160, uniformFloat3},
	ParamCurrentTime:  {172, uniformFloat},
	ParamStartSize:    {176, uniformFloat},
	ParamEndSize:      {180, uniformFloat},
	ParamLifetime:     {184, uniformFloat},
}

// UniformBlock is a CPU mirror of the FrameParams uniform buffer. Setters look the
// variable up by name and report whether it exists, the way shader wrappers do.
type UniformBlock struct {
	data  [FrameParamsSize]byte
	dirty bool
}

func NewUniformBlock() *UniformBlock {
	return &UniformBlock{dirty: true}
}

func (u *UniformBlock) lookup(name string, kind uniformKind) (int, bool) {
	f, ok := frameParamsLayout[name]
	if !ok || f.kind != kind {
		return 0, false
	}
	return f.offset, true
}

func (u *UniformBlock) putFloats(off int, vals ...float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(u.data[off+i*4:], math.Float32bits(v))
	}
	u.dirty = true
}

func (u *UniformBlock) floats(off, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(u.data[off+i*4:]))
	}
	return out
}

func (u *UniformBlock) SetFloat(name string, v float32) bool {
	off, ok := u.lookup(name, uniformFloat)
	if ok {
		u.putFloats(off, v)
	}
	return ok
}

func (u *UniformBlock) SetFloat3(name string, v mgl32.Vec3) bool {
	off, ok := u.lookup(name, uniformFloat3)
	if ok {
		u.putFloats(off, v[:]...)
	}
	return ok
}

func (u *UniformBlock) SetFloat4(name string, v mgl32.Vec4) bool {
	off, ok := u.lookup(name, uniformFloat4)
	if ok {
		u.putFloats(off, v[:]...)
	}
	return ok
}

// SetMatrix4x4 stores m column-major, matching mat4x4<f32>.
func (u *UniformBlock) SetMatrix4x4(name string, m mgl32.Mat4) bool {
	off, ok := u.lookup(name, uniformMat4)
	if ok {
		u.putFloats(off, m[:]...)
	}
	return ok
}

func (u *UniformBlock) Float(name string) float32 {
	off, ok := u.lookup(name, uniformFloat)
	if !ok {
		return 0
	}
	return u.floats(off, 1)[0]
}

func (u *UniformBlock) Float3(name string) mgl32.Vec3 {
	var v mgl32.Vec3
	if off, ok := u.lookup(name, uniformFloat3); ok {
		copy(v[:], u.floats(off, 3))
	}
	return v
}

func (u *UniformBlock) Float4(name string) mgl32.Vec4 {
	var v mgl32.Vec4
	if off, ok := u.lookup(name, uniformFloat4); ok {
		copy(v[:], u.floats(off, 4))
	}
	return v
}

func (u *UniformBlock) Matrix4x4(name string) mgl32.Mat4 {
	var m mgl32.Mat4
	if off, ok := u.lookup(name, uniformMat4); ok {
		copy(m[:], u.floats(off, 16))
	}
	return m
}

// Bytes returns the raw buffer contents.
func (u *UniformBlock) Bytes() []byte {
	return u.data[:]
}

// TakeDirty reports whether any value changed since the last call and clears the flag.
func (u *UniformBlock) TakeDirty() bool {
	d := u.dirty
	u.dirty = false
	return d
}
