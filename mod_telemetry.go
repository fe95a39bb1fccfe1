package particles

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// FrameRecord is one telemetry row: the state of one emitter after one frame.
type FrameRecord struct {
	Frame   uint64  `csv:"frame"`
	Time    float32 `csv:"time"`
	Emitter string  `csv:"emitter"`
	Living  int     `csv:"living"`
	Spawned int     `csv:"spawned"`
	Retired int     `csv:"retired"`
	Dropped int     `csv:"dropped"`
}

// EmitterSummary aggregates the living count of one emitter over the run.
type EmitterSummary struct {
	Emitter    string
	Frames     int
	MeanLiving float64
	StdLiving  float64
	MaxLiving  int
	Spawned    int
	Dropped    int
}

// TelemetryRecorder collects FrameRecords and optionally streams them to CSV.
type TelemetryRecorder struct {
	out           io.Writer
	file          *os.File
	headerWritten bool

	living map[string][]float64
	order  []string
	totals map[string]*EmitterSummary
}

func NewTelemetryRecorder(out io.Writer) *TelemetryRecorder {
	return &TelemetryRecorder{
		out:    out,
		living: make(map[string][]float64),
		totals: make(map[string]*EmitterSummary),
	}
}

// Record appends rows; the first write carries the CSV header.
func (r *TelemetryRecorder) Record(records []FrameRecord) error {
	for _, rec := range records {
		sum, ok := r.totals[rec.Emitter]
		if !ok {
			sum = &EmitterSummary{Emitter: rec.Emitter}
			r.totals[rec.Emitter] = sum
			r.order = append(r.order, rec.Emitter)
		}
		sum.Frames++
		sum.Spawned += rec.Spawned
		sum.Dropped += rec.Dropped
		sum.MaxLiving = max(sum.MaxLiving, rec.Living)
		r.living[rec.Emitter] = append(r.living[rec.Emitter], float64(rec.Living))
	}

	if r.out == nil || len(records) == 0 {
		return nil
	}
	if !r.headerWritten {
		if err := gocsv.Marshal(records, r.out); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		r.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, r.out); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// Summary returns per-emitter statistics in first-seen order.
func (r *TelemetryRecorder) Summary() []EmitterSummary {
	out := make([]EmitterSummary, 0, len(r.order))
	for _, name := range r.order {
		sum := *r.totals[name]
		sum.MeanLiving, sum.StdLiving = stat.MeanStdDev(r.living[name], nil)
		out = append(out, sum)
	}
	return out
}

func (r *TelemetryRecorder) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// TelemetryModule records emitter stats every frame. With Dir set the rows also go to
// Dir/telemetry.csv.
type TelemetryModule struct {
	Dir string
}

func (mod TelemetryModule) Install(app *App, cmd *Commands) {
	recorder := NewTelemetryRecorder(nil)
	if mod.Dir != "" {
		if err := os.MkdirAll(mod.Dir, 0755); err != nil {
			panic(fmt.Sprintf("creating telemetry directory: %v", err))
		}
		f, err := os.Create(filepath.Join(mod.Dir, "telemetry.csv"))
		if err != nil {
			panic(fmt.Sprintf("creating telemetry.csv: %v", err))
		}
		recorder.out = f
		recorder.file = f
	}

	cmd.AddResources(recorder)
	cmd.UseSystem(System(telemetrySystem).InStage(PostUpdate))
	cmd.UseSystem(System(telemetryShutdownSystem).InStage(Shutdown))
}

func telemetrySystem(t *Time, registry *EmitterRegistry, recorder *TelemetryRecorder, cmd *Commands) {
	records := make([]FrameRecord, 0, registry.Len())
	registry.Map(func(entry *EmitterEntry) bool {
		records = append(records, FrameRecord{
			Frame:   t.Frame,
			Time:    t.Now(),
			Emitter: entry.Name,
			Living:  entry.Emitter.Living(),
			Spawned: entry.LastStats.Spawned,
			Retired: entry.LastStats.Retired,
			Dropped: entry.LastStats.Dropped,
		})
		return true
	})
	if err := recorder.Record(records); err != nil {
		Named(cmd.Logger(), "telemetry").Errorf("%v", err)
	}
}

func telemetryShutdownSystem(recorder *TelemetryRecorder, cmd *Commands) {
	logger := Named(cmd.Logger(), "telemetry")
	for _, s := range recorder.Summary() {
		logger.Infof("%s: %d frames, living mean %.1f sd %.1f max %d, spawned %d, dropped %d",
			s.Emitter, s.Frames, s.MeanLiving, s.StdLiving, s.MaxLiving, s.Spawned, s.Dropped)
	}
	if err := recorder.Close(); err != nil {
		logger.Errorf("closing telemetry: %v", err)
	}
}
