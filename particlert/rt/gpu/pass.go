package gpu

import (
	"fmt"

	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
)

// ParticlePass draws camera-facing quads for packed particle slots. The pipeline has
// no vertex buffers; the shader reads the structured buffer by vertex_index / 4.
type ParticlePass struct {
	Pipeline *wgpu.RenderPipeline
	Queue    *wgpu.Queue
}

func NewParticlePass(device *wgpu.Device, format wgpu.TextureFormat) (*ParticlePass, error) {
	shaderModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ParticleShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ParticlesWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer shaderModule.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "ParticlePipeline",
		Vertex: wgpu.VertexState{
			Module:     shaderModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     shaderModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	return &ParticlePass{Pipeline: pipeline, Queue: device.GetQueue()}, nil
}

// Target binds one emitter's buffers to an open render pass. The result satisfies
// emitter.FrameTarget.
func (p *ParticlePass) Target(pass *wgpu.RenderPassEncoder, bufs *EmitterBuffers) *FrameTarget {
	return &FrameTarget{queue: p.Queue, pass: pass, pipeline: p.Pipeline, bufs: bufs}
}

func (p *ParticlePass) Release() {
	if p.Pipeline != nil {
		p.Pipeline.Release()
	}
}

type FrameTarget struct {
	queue    *wgpu.Queue
	pass     *wgpu.RenderPassEncoder
	pipeline *wgpu.RenderPipeline
	bufs     *EmitterBuffers
}

// UploadParticles replaces the particle buffer prefix with slots.
func (t *FrameTarget) UploadParticles(slots []core.ParticleSlot) error {
	if len(slots) > t.bufs.Capacity {
		return fmt.Errorf("%d particles exceed buffer capacity %d", len(slots), t.bufs.Capacity)
	}
	t.bufs.scratch = core.EncodeSlots(t.bufs.scratch, slots)
	if len(t.bufs.scratch) == 0 {
		return nil
	}
	return t.queue.WriteBuffer(t.bufs.ParticleBuf, 0, t.bufs.scratch)
}

// DrawIndexed flushes changed frame params and records the draw.
func (t *FrameTarget) DrawIndexed(indexCount uint32) error {
	if t.bufs.Params.TakeDirty() {
		if err := t.queue.WriteBuffer(t.bufs.ParamsBuf, 0, t.bufs.Params.Bytes()); err != nil {
			return fmt.Errorf("uploading frame params: %w", err)
		}
	}
	t.pass.SetPipeline(t.pipeline)
	t.pass.SetBindGroup(0, t.bufs.BindGroup0, nil)
	t.pass.SetIndexBuffer(t.bufs.IndexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	t.pass.DrawIndexed(indexCount, 1, 0, 0, 0)
	return nil
}
