package particles

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := &MockResource1{name: "Resource1"}
	app.addResources(resource1)

	require.Len(t, app.resources, 1)
	assert.Same(t, resource1, app.resources[reflect.TypeOf(MockResource1{})])

	resource2 := &MockResource2{name: "Resource2"}
	app.addResources(resource2)
	assert.Len(t, app.resources, 2)

	assert.PanicsWithValue(t, "*particles.MockResource1 is already in resources", func() {
		app.addResources(&MockResource1{name: "again"})
	})
	assert.Panics(t, func() {
		app.addResources(MockResource2{name: "by value"})
	})
}

func TestResource(t *testing.T) {
	app := newApp()
	assert.Nil(t, Resource[MockResource1](app))

	r := &MockResource1{name: "r"}
	app.addResources(r)
	assert.Same(t, r, Resource[MockResource1](app))
}

func TestApp_callSystem(t *testing.T) {
	app := newApp()
	r1 := &MockResource1{name: "r1"}
	app.addResources(r1)

	var got *MockResource1
	var gotCmd *Commands
	app.callSystem(func(r *MockResource1, cmd *Commands) {
		got = r
		gotCmd = cmd
	})
	assert.Same(t, r1, got)
	require.NotNil(t, gotCmd)
	assert.Same(t, app, gotCmd.app)

	assert.Panics(t, func() {
		app.callSystem(func(r *MockResource2) {})
	}, "missing resource")
	assert.Panics(t, func() {
		app.callSystem(func(r MockResource1) {})
	}, "non-pointer argument")
}

func TestApp_RunFrames(t *testing.T) {
	app := newApp()
	var startups, frames, shutdowns int
	app.UseSystem(System(func() { startups++ }).InStage(Startup))
	app.UseSystem(System(func() { frames++ }))
	app.UseSystem(System(func() { shutdowns++ }).InStage(Shutdown))

	app.RunFrames(5)

	assert.Equal(t, 1, startups)
	assert.Equal(t, 5, frames)
	assert.Equal(t, 1, shutdowns)
	assert.Equal(t, uint64(5), app.Frame())
}

func TestApp_RunFramesShutsDownOnce(t *testing.T) {
	app := newApp()
	var frames, shutdowns int
	app.UseSystem(System(func() { frames++ }))
	app.UseSystem(System(func() { shutdowns++ }).InStage(Shutdown))

	app.RunFrames(2)
	app.RunFrames(2)
	app.Run()

	assert.Equal(t, 2, frames)
	assert.Equal(t, 1, shutdowns)
	assert.Equal(t, uint64(2), app.Frame())
}

func TestApp_StepRunsStartupOnce(t *testing.T) {
	app := newApp()
	var startups, frames int
	app.UseSystem(System(func() { startups++ }).InStage(Startup))
	app.UseSystem(System(func() { frames++ }))

	app.Step()
	app.Step()
	app.RunFrames(1)

	assert.Equal(t, 1, startups)
	assert.Equal(t, 3, frames)
}

func TestApp_RunUntilExit(t *testing.T) {
	app := newApp()
	app.UseSystem(System(func(cmd *Commands) {
		if cmd.Frame() == 2 {
			cmd.Exit()
		}
	}))

	app.Run()

	assert.Equal(t, uint64(3), app.Frame())
}

func TestApp_StageOrder(t *testing.T) {
	app := newApp()
	var order []string
	record := func(name string) func() {
		return func() { order = append(order, name) }
	}

	custom := Stage{Name: "Custom"}
	app.UseStage(custom, AfterStage(Update))

	app.UseSystem(System(record("render")).InStage(Render))
	app.UseSystem(System(record("custom")).InStage(custom))
	app.UseSystem(System(record("update")))
	app.UseSystem(System(record("prelude")).InStage(Prelude))

	app.Step()

	assert.Equal(t, []string{"prelude", "update", "custom", "render"}, order)
}

func TestApp_UseStageErrors(t *testing.T) {
	app := newApp()
	assert.Panics(t, func() { app.UseStage(Update, BeforeStage(Render)) })
	assert.Panics(t, func() { app.UseStage(Stage{Name: "X"}, BeforeStage(Stage{Name: "Missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(func() {}).InStage(Stage{Name: "Missing"})) })
}

func TestApp_Logger(t *testing.T) {
	var nilApp *App
	assert.NotNil(t, nilApp.Logger())

	app := newApp()
	assert.False(t, app.Logger().DebugEnabled())

	app.addResources(NewDefaultLogger("test", true))
	assert.True(t, app.Logger().DebugEnabled())
}
