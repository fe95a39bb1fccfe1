package app

import (
	"fmt"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/core"
	"github.com/gekko3d/particles/particlert/rt/emitter"
	"github.com/gekko3d/particles/particlert/rt/gpu"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Viewer renders the emitter registry into a glfw window through WebGPU. It is a
// particles.FrameSink: the draw system opens one render pass per frame on it.
type Viewer struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	Pass    *gpu.ParticlePass
	Buffers *gpu.ParticleBufferManager
	Camera  *core.CameraState

	Background    wgpu.Color
	MouseCaptured bool
	MouseX        float64
	MouseY        float64

	frame *viewerFrame
	drawn map[*emitter.Emitter]bool

	FrameCount     int
	FPS            float64
	FPSTime        float64
	LastRenderTime float64
}

const maxPitch = 1.55

type viewerFrame struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

func NewViewer(window *glfw.Window, camera *core.CameraState) *Viewer {
	if camera == nil {
		camera = core.NewCameraState()
	}
	return &Viewer{
		Window:     window,
		Camera:     camera,
		drawn:      make(map[*emitter.Emitter]bool),
		Background: wgpu.Color{R: 0.02, G: 0.02, B: 0.05, A: 1},
	}
}

func (v *Viewer) Init() error {
	v.Instance = wgpu.CreateInstance(nil)

	surface := v.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(v.Window))
	v.Surface = surface

	adapter, err := v.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	v.Adapter = adapter

	v.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	v.Queue = v.Device.GetQueue()

	width, height := v.Window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	v.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, v.Device, v.Config)

	v.Pass, err = gpu.NewParticlePass(v.Device, format)
	if err != nil {
		return fmt.Errorf("creating particle pipeline: %w", err)
	}
	v.Buffers = gpu.NewParticleBufferManager(v.Device)
	return nil
}

func (v *Viewer) Resize(w, h int) {
	if w > 0 && h > 0 {
		v.Config.Width = uint32(w)
		v.Config.Height = uint32(h)
		v.Surface.Configure(v.Adapter, v.Device, v.Config)
	}
}

func (v *Viewer) Aspect() float32 {
	if v.Config == nil || v.Config.Height == 0 {
		return 16.0 / 9.0
	}
	return float32(v.Config.Width) / float32(v.Config.Height)
}

// BeginFrame acquires the swapchain texture and opens the render pass.
func (v *Viewer) BeginFrame() error {
	texture, err := v.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("GetCurrentTexture: %w", err)
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return fmt.Errorf("CreateView: %w", err)
	}
	encoder, err := v.Device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		texture.Release()
		return fmt.Errorf("CreateCommandEncoder: %w", err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: v.Background,
		}},
	})
	v.frame = &viewerFrame{texture: texture, view: view, encoder: encoder, pass: pass}
	clear(v.drawn)
	return nil
}

// Target returns the per-emitter GPU buffers bound to the open pass.
func (v *Viewer) Target(e *emitter.Emitter) (emitter.FrameTarget, emitter.ShaderParams, error) {
	if v.frame == nil {
		return nil, nil, fmt.Errorf("no frame in progress")
	}
	bufs, err := v.Buffers.Buffers(e, v.Pass.Pipeline)
	if err != nil {
		return nil, nil, err
	}
	v.drawn[e] = true
	return v.Pass.Target(v.frame.pass, bufs), bufs.Params, nil
}

// EndFrame submits the pass and presents. Buffers of emitters that were not drawn
// this frame, such as removed or disabled ones, are released.
func (v *Viewer) EndFrame() error {
	f := v.frame
	if f == nil {
		return nil
	}
	v.frame = nil
	defer f.texture.Release()
	defer f.view.Release()
	defer v.Buffers.Retain(func(e *emitter.Emitter) bool { return v.drawn[e] })

	if err := f.pass.End(); err != nil {
		return fmt.Errorf("render pass End: %w", err)
	}
	cmd, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("encoder Finish: %w", err)
	}
	v.Queue.Submit(cmd)
	v.Surface.Present()

	now := glfw.GetTime()
	if v.LastRenderTime > 0 {
		v.FrameCount++
		v.FPSTime += now - v.LastRenderTime
		if v.FPSTime >= 1.0 {
			v.FPS = float64(v.FrameCount) / v.FPSTime
			v.FrameCount = 0
			v.FPSTime = 0
		}
	}
	v.LastRenderTime = now
	return nil
}

// MoveCamera applies WASD/QE fly movement for dt seconds.
func (v *Viewer) MoveCamera(dt float32) {
	if !v.MouseCaptured {
		return
	}
	step := v.Camera.Speed * dt
	forward, right := v.Camera.GetForward(), v.Camera.GetRight()
	var move mgl32.Vec3
	if v.Window.GetKey(glfw.KeyW) == glfw.Press {
		move = move.Add(forward)
	}
	if v.Window.GetKey(glfw.KeyS) == glfw.Press {
		move = move.Sub(forward)
	}
	if v.Window.GetKey(glfw.KeyD) == glfw.Press {
		move = move.Add(right)
	}
	if v.Window.GetKey(glfw.KeyA) == glfw.Press {
		move = move.Sub(right)
	}
	if v.Window.GetKey(glfw.KeyE) == glfw.Press {
		move = move.Add(mgl32.Vec3{0, 1, 0})
	}
	if v.Window.GetKey(glfw.KeyQ) == glfw.Press {
		move = move.Sub(mgl32.Vec3{0, 1, 0})
	}
	if move.Len() > 0 {
		v.Camera.Position = v.Camera.Position.Add(move.Normalize().Mul(step))
	}
}

func (v *Viewer) Release() {
	if v.Buffers != nil {
		v.Buffers.Release()
	}
	if v.Pass != nil {
		v.Pass.Release()
	}
	if v.Surface != nil {
		v.Surface.Release()
	}
	if v.Device != nil {
		v.Device.Release()
	}
	if v.Adapter != nil {
		v.Adapter.Release()
	}
	if v.Instance != nil {
		v.Instance.Release()
	}
}

// ViewerModule opens the viewer on Window and draws every frame into it. The app
// exits when the window is closed.
type ViewerModule struct {
	Window *glfw.Window
}

func (mod ViewerModule) Install(app *particles.App, cmd *particles.Commands) {
	viewer := NewViewer(mod.Window, nil)
	if err := viewer.Init(); err != nil {
		panic(fmt.Sprintf("initialising viewer: %v", err))
	}
	viewer.Camera = particles.AddFrameSink(app, viewer).Camera

	mod.Window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		viewer.Resize(width, height)
	})
	mod.Window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if viewer.MouseCaptured {
			dx := float32(xpos - viewer.MouseX)
			dy := float32(ypos - viewer.MouseY)
			viewer.Camera.Yaw += dx * viewer.Camera.Sensitivity
			viewer.Camera.Pitch = mgl32.Clamp(viewer.Camera.Pitch-dy*viewer.Camera.Sensitivity, -maxPitch, maxPitch)
		}
		viewer.MouseX = xpos
		viewer.MouseY = ypos
	})
	mod.Window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyTab:
			viewer.MouseCaptured = !viewer.MouseCaptured
			if viewer.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		}
	})

	cmd.AddResources(viewer)
	cmd.UseSystem(particles.System(viewerInputSystem).InStage(particles.PreUpdate))
	cmd.UseSystem(particles.System(viewerShutdownSystem).InStage(particles.Shutdown))
}

func viewerInputSystem(t *particles.Time, viewer *Viewer, cmd *particles.Commands) {
	logger := particles.Named(cmd.Logger(), "viewer")
	glfw.PollEvents()
	if viewer.Window.ShouldClose() {
		cmd.Exit()
		return
	}
	viewer.MoveCamera(t.DtSeconds())
	if logger.DebugEnabled() && viewer.FPSTime == 0 && viewer.FPS > 0 {
		logger.Debugf("viewer fps %.1f", viewer.FPS)
	}
}

func viewerShutdownSystem(viewer *Viewer) {
	viewer.Release()
}
