package gpu

import (
	"encoding/binary"
	"fmt"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/emitter"

	"github.com/cogentcore/webgpu/wgpu"
)

// EmitterBuffers are the GPU resources of one emitter. The particle buffer is sized for
// the full capacity once; every frame overwrites its prefix with the packed slots.
type EmitterBuffers struct {
	ParticleBuf *wgpu.Buffer
	IndexBuf    *wgpu.Buffer
	ParamsBuf   *wgpu.Buffer
	BindGroup0  *wgpu.BindGroup

	Params   *core.UniformBlock
	Capacity int

	scratch []byte
}

type ParticleBufferManager struct {
	Device *wgpu.Device

	Emitters map[*emitter.Emitter]*EmitterBuffers
}

func NewParticleBufferManager(device *wgpu.Device) *ParticleBufferManager {
	return &ParticleBufferManager{
		Device:   device,
		Emitters: make(map[*emitter.Emitter]*EmitterBuffers),
	}
}

func (m *ParticleBufferManager) ensureBuffer(name string, buf **wgpu.Buffer, size uint64, usage wgpu.BufferUsage) (bool, error) {
	size = alignTo4(size)

	current := *buf
	if current != nil && current.GetSize() >= size {
		return false, nil
	}
	if current != nil {
		current.Release()
	}

	newBuf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            name,
		Size:             size,
		Usage:            usage | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return false, fmt.Errorf("creating %s: %w", name, err)
	}
	*buf = newBuf
	return true, nil
}

// Buffers returns the resources for e, creating them and the bind group on first use.
// The static index buffer is uploaded once here.
func (m *ParticleBufferManager) Buffers(e *emitter.Emitter, pipeline *wgpu.RenderPipeline) (*EmitterBuffers, error) {
	if b, ok := m.Emitters[e]; ok && b.Capacity == e.Capacity() {
		return b, nil
	}

	b := m.Emitters[e]
	if b == nil {
		b = &EmitterBuffers{Params: core.NewUniformBlock()}
	}
	b.Capacity = e.Capacity()

	if _, err := m.ensureBuffer("ParticleBuf", &b.ParticleBuf, uint64(b.Capacity*core.SlotStride), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := m.ensureBuffer("ParticleParamsBuf", &b.ParamsBuf, core.FrameParamsSize, wgpu.BufferUsageUniform); err != nil {
		return nil, err
	}
	indices := encodeIndices(e.Indices())
	if _, err := m.ensureBuffer("ParticleIndexBuf", &b.IndexBuf, uint64(len(indices)), wgpu.BufferUsageIndex); err != nil {
		return nil, err
	}
	if err := m.Device.GetQueue().WriteBuffer(b.IndexBuf, 0, indices); err != nil {
		return nil, fmt.Errorf("uploading particle indices: %w", err)
	}

	if b.BindGroup0 != nil {
		b.BindGroup0.Release()
	}
	bg, err := m.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ParticleBindGroup0",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.ParamsBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: b.ParticleBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating particle bind group: %w", err)
	}
	b.BindGroup0 = bg

	m.Emitters[e] = b
	return b, nil
}

// Forget releases the resources of an emitter that is no longer drawn.
func (m *ParticleBufferManager) Forget(e *emitter.Emitter) {
	b, ok := m.Emitters[e]
	if !ok {
		return
	}
	b.release()
	delete(m.Emitters, e)
}

// Retain forgets every emitter for which keep returns false and reports how many
// were released.
func (m *ParticleBufferManager) Retain(keep func(e *emitter.Emitter) bool) int {
	released := 0
	for e := range m.Emitters {
		if !keep(e) {
			m.Forget(e)
			released++
		}
	}
	return released
}

func (m *ParticleBufferManager) Release() {
	for e, b := range m.Emitters {
		b.release()
		delete(m.Emitters, e)
	}
}

func (b *EmitterBuffers) release() {
	if b.BindGroup0 != nil {
		b.BindGroup0.Release()
	}
	for _, buf := range []*wgpu.Buffer{b.ParticleBuf, b.IndexBuf, b.ParamsBuf} {
		if buf != nil {
			buf.Release()
		}
	}
}

func encodeIndices(indices []uint32) []byte {
	buf := make([]byte, len(indices)*4)
	for i, v := range indices {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func alignTo4(n uint64) uint64 {
	if n == 0 {
		return 4
	}
	if n%4 != 0 {
		n += 4 - (n % 4)
	}
	return n
}
