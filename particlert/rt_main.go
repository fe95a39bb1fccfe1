package main

import (
	"flag"
	"runtime"

	particles "github.com/gekko3d/particles"
	"github.com/gekko3d/particles/particlert/rt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	presetsPath := flag.String("presets", "", "YAML scene file (defaults to the embedded scene)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	presets, err := particles.LoadPresets(*presetsPath)
	if err != nil {
		panic(err)
	}

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "Particles", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	particles.NewAppBuilder().
		UseModule(particles.LoggingModule{Prefix: "particles", Debug: *debug}).
		UseModule(particles.TimeModule{}).
		UseModule(particles.EmittersModule{Presets: presets}).
		UseModule(app.ViewerModule{Window: window}).
		Build().
		Run()
}
