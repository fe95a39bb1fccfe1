package particles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeModule_FixedStep(t *testing.T) {
	step := time.Second / 64
	app := NewAppBuilder().UseModule(TimeModule{FixedStep: step}).Build()

	app.RunFrames(4)

	clock := Resource[Time](app)
	require.NotNil(t, clock)
	assert.Equal(t, uint64(4), clock.Frame)
	assert.Equal(t, step, clock.Dt)
	assert.Equal(t, 4*step, clock.Elapsed)
	assert.Equal(t, float32(0.015625), clock.DtSeconds())
	assert.Equal(t, float32(0.0625), clock.Now())
}

func TestTimeModule_WallClock(t *testing.T) {
	app := NewAppBuilder().UseModule(TimeModule{}).Build()

	app.RunFrames(2)

	clock := Resource[Time](app)
	assert.Equal(t, uint64(2), clock.Frame)
	assert.GreaterOrEqual(t, clock.Elapsed, clock.Dt)
}
