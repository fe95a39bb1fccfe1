package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	particles "github.com/gekko3d/particles"
)

func main() {
	presetsPath := flag.String("presets", "", "YAML scene file (defaults to the embedded scene)")
	frames := flag.Uint64("frames", 600, "Number of frames to simulate")
	dt := flag.Duration("dt", time.Second/60, "Fixed frame duration")
	telemetryDir := flag.String("telemetry", "", "Directory for telemetry.csv (disabled when empty)")
	previewPath := flag.String("preview", "", "PNG file for the last frame (disabled when empty)")
	width := flag.Int("width", 320, "Preview width")
	height := flag.Int("height", 180, "Preview height")
	scale := flag.Int("scale", 2, "Preview upscale factor")
	seed := flag.Int64("seed", 1, "Spawn jitter seed (0 for random)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *frames == 0 {
		fmt.Fprintln(os.Stderr, "-frames must be positive")
		os.Exit(2)
	}
	if *dt <= 0 {
		fmt.Fprintln(os.Stderr, "-dt must be positive")
		os.Exit(2)
	}

	presets, err := particles.LoadPresets(*presetsPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	builder := particles.NewAppBuilder().
		UseModule(particles.LoggingModule{Prefix: "particles-sim", Debug: *debug}).
		UseModule(particles.TimeModule{FixedStep: *dt}).
		UseModule(particles.EmittersModule{Presets: presets, Seed: *seed}).
		UseModule(particles.TelemetryModule{Dir: *telemetryDir})
	if *previewPath != "" {
		builder.UseModule(particles.PreviewModule{Path: *previewPath, Width: *width, Height: *height, Scale: *scale})
	}

	builder.Build().RunFrames(*frames)
}
