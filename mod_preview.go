package particles

import (
	"github.com/gekko3d/particles/particlert/rt/emitter"
	"github.com/gekko3d/particles/particlert/rt/preview"
)

// PreviewModule renders every frame on a CPU canvas and writes the last one as a PNG
// when the app shuts down.
type PreviewModule struct {
	Path   string
	Width  int
	Height int
	Scale  int
}

type previewSink struct {
	canvas *preview.Canvas
}

func (s *previewSink) BeginFrame() error {
	s.canvas.Clear()
	return nil
}

func (s *previewSink) Aspect() float32 { return s.canvas.Aspect() }

// Target shares one canvas and one parameter block between all emitters; Draw sets
// every parameter before it draws.
func (s *previewSink) Target(*emitter.Emitter) (emitter.FrameTarget, emitter.ShaderParams, error) {
	return s.canvas, s.canvas.Params(), nil
}

func (s *previewSink) EndFrame() error { return nil }

// PreviewState exposes the canvas to other systems.
type PreviewState struct {
	Canvas *preview.Canvas
	path   string
	scale  int
}

func (mod PreviewModule) Install(app *App, cmd *Commands) {
	w, h := mod.Width, mod.Height
	if w <= 0 || h <= 0 {
		w, h = 320, 180
	}
	canvas := preview.NewCanvas(w, h)

	AddFrameSink(app, &previewSink{canvas: canvas})

	cmd.AddResources(&PreviewState{Canvas: canvas, path: mod.Path, scale: mod.Scale})
	cmd.UseSystem(System(previewShutdownSystem).InStage(Shutdown))
}

func previewShutdownSystem(state *PreviewState, cmd *Commands) {
	logger := Named(cmd.Logger(), "preview")
	if state.path == "" {
		return
	}
	if err := state.Canvas.SavePNG(state.path, state.scale); err != nil {
		logger.Errorf("saving preview: %v", err)
		return
	}
	draws, particles := state.Canvas.Stats()
	logger.Infof("preview written to %s (%d draws, %d particles)", state.path, draws, particles)
}
