package particles

import (
	"time"
)

// Time is the frame clock. Elapsed is the simulation clock emitters stamp particles
// with; it only advances by Dt so fixed-step runs are reproducible.
type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64

	fixedStep time.Duration
}

// DtSeconds is the last frame duration in seconds.
func (t *Time) DtSeconds() float32 {
	return float32(t.Dt.Seconds())
}

// Now is the simulation clock in seconds.
func (t *Time) Now() float32 {
	return float32(t.Elapsed.Seconds())
}

// TimeModule installs the Time resource. A non-zero FixedStep replaces the wall clock
// with a constant frame duration.
type TimeModule struct {
	FixedStep time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:      time.Now(),
		Dt:        0,
		fixedStep: mod.FixedStep,
	})
	cmd.UseSystem(System(timeSystem).InStage(Prelude))
}

func timeSystem(timeResource *Time) {
	now := time.Now()

	if timeResource.fixedStep > 0 {
		timeResource.Dt = timeResource.fixedStep
	} else {
		timeResource.Dt = now.Sub(timeResource.Time)
	}
	timeResource.Time = now
	timeResource.Elapsed += timeResource.Dt
	timeResource.Frame++
}
