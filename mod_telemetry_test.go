package particles

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelemetryRecorder_WritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	r := NewTelemetryRecorder(&buf)

	require.NoError(t, r.Record([]FrameRecord{{Frame: 1, Emitter: "a", Living: 1, Spawned: 1}}))
	require.NoError(t, r.Record(nil))
	require.NoError(t, r.Record([]FrameRecord{{Frame: 2, Emitter: "a", Living: 2, Spawned: 1}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "frame,time,emitter,living,spawned,retired,dropped", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "2,"))
}

func TestTelemetryRecorder_Summary(t *testing.T) {
	r := NewTelemetryRecorder(nil)
	require.NoError(t, r.Record([]FrameRecord{
		{Frame: 1, Emitter: "b", Living: 2, Spawned: 2},
		{Frame: 1, Emitter: "a", Living: 4, Spawned: 4},
	}))
	require.NoError(t, r.Record([]FrameRecord{
		{Frame: 2, Emitter: "b", Living: 4, Spawned: 2},
		{Frame: 2, Emitter: "a", Living: 4, Dropped: 3},
	}))

	sums := r.Summary()
	require.Len(t, sums, 2)

	b := sums[0]
	assert.Equal(t, "b", b.Emitter)
	assert.Equal(t, 2, b.Frames)
	assert.InDelta(t, 3.0, b.MeanLiving, 1e-9)
	assert.InDelta(t, 1.4142135, b.StdLiving, 1e-6)
	assert.Equal(t, 4, b.MaxLiving)
	assert.Equal(t, 4, b.Spawned)

	a := sums[1]
	assert.Equal(t, "a", a.Emitter)
	assert.InDelta(t, 4.0, a.MeanLiving, 1e-9)
	assert.InDelta(t, 0.0, a.StdLiving, 1e-9)
	assert.Equal(t, 3, a.Dropped)

	assert.NoError(t, r.Close())
}

func TestTelemetryModule_WritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	app := NewAppBuilder().
		UseModule(TimeModule{FixedStep: time.Second / 64}).
		UseModule(EmittersModule{Presets: &Presets{Emitters: []EmitterPreset{
			steadyPreset("a", 100),
			steadyPreset("b", 3),
		}}, Seed: 1}).
		UseModule(TelemetryModule{Dir: dir}).
		Build()

	app.RunFrames(5)

	f, err := os.Open(filepath.Join(dir, "telemetry.csv"))
	require.NoError(t, err)
	defer f.Close()

	var rows []*FrameRecord
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	require.Len(t, rows, 10)

	last := map[string]*FrameRecord{}
	for _, row := range rows {
		last[row.Emitter] = row
	}
	assert.Equal(t, uint64(5), last["a"].Frame)
	assert.Equal(t, 5, last["a"].Living)
	assert.Equal(t, 3, last["b"].Living)
	assert.Equal(t, 1, last["b"].Dropped)
	assert.Equal(t, float32(5.0/64.0), last["a"].Time)

	// the recorder is closed at shutdown
	assert.Nil(t, Resource[TelemetryRecorder](app).file)
}
