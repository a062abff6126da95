package engine_test

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"

	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/engine"
	"github.com/plus3/softbody/gfx/gfxtest"
	"github.com/plus3/softbody/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.New(io.Discard, "", 0)

func newStorage() *ecs.Storage {
	registry := ecs.NewComponentRegistry()
	components.RegisterAll(registry)
	return ecs.NewStorage(registry)
}

func testConfig(autoload ...string) engine.Config {
	cfg := engine.Config{AssetRoot: "../assets", Autoload: autoload, Width: 64, Height: 48}
	cfg.Resolve(engine.Flags{})
	return cfg
}

func TestHeadSystemOrder(t *testing.T) {
	var seen []string
	ui := ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
		device, err := ecs.Context[components.GraphicsDevice](frame.Storage)
		require.NoError(t, err)
		for _, call := range device.Device.(*gfxtest.Device).Calls {
			if call == "EndPass" {
				seen = append(seen, "rendered")
			}
		}
	})

	head, err := engine.NewHeadSystem(newStorage(), testConfig("objects/block.obj"), engine.Options{
		Device: gfxtest.New(),
		UI:     ui,
		Logger: quiet,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		engine.InputName,
		engine.TestName,
		engine.MeshManagementName,
		engine.RenderBufferManagementName,
		engine.RenderName,
		engine.UIName,
	}, head.Systems())

	require.NoError(t, head.Run())
	assert.Equal(t, []string{"rendered"}, seen)
}

func TestHeadSystemOptionalSystems(t *testing.T) {
	cfg := testConfig()
	cfg.Resolve(engine.Flags{NoMeshManagement: true})

	head, err := engine.NewHeadSystem(newStorage(), cfg, engine.Options{Device: gfxtest.New(), Logger: quiet})
	require.NoError(t, err)
	assert.Equal(t, []string{engine.InputName, engine.RenderName}, head.Systems())
	assert.True(t, head.AutoloadDone())
}

func TestHeadSystemStartupErrors(t *testing.T) {
	_, err := engine.NewHeadSystem(newStorage(), testConfig(), engine.Options{})
	assert.ErrorIs(t, err, engine.ErrNoDevice)

	cfg := testConfig()
	cfg.AssetRoot = t.TempDir()
	_, err = engine.NewHeadSystem(newStorage(), cfg, engine.Options{Device: gfxtest.New(), Logger: quiet})
	assert.ErrorIs(t, err, resource.ErrNotFound)
}

func TestHeadSystemPublishesStats(t *testing.T) {
	storage := newStorage()
	head, err := engine.NewHeadSystem(storage, testConfig(), engine.Options{Device: gfxtest.New(), Logger: quiet})
	require.NoError(t, err)

	require.NoError(t, head.Run())
	require.NoError(t, head.Run())

	stats, err := ecs.Context[ecs.SchedulerStats](storage)
	require.NoError(t, err)
	assert.Equal(t, len(head.Systems()), stats.SystemCount)
	for _, s := range stats.Systems {
		assert.Equal(t, int64(2), s.ExecutionCount, s.Name)
	}
	assert.Equal(t, uint64(2), head.Tick())
}

func TestLoopAutoloadsAndShutsDown(t *testing.T) {
	storage := newStorage()
	device := gfxtest.New()
	head, err := engine.NewHeadSystem(storage, testConfig("objects/block.obj", "objects/block.obj"), engine.Options{
		Device: device,
		Logger: quiet,
	})
	require.NoError(t, err)

	require.NoError(t, engine.Loop(context.Background(), head, nil, 3))
	assert.Equal(t, uint64(3), head.Tick())
	assert.True(t, head.AutoloadDone())
	assert.Equal(t, 2, storage.Count())

	report, err := ecs.Context[components.LoadReport](storage)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Loaded)

	// tick 1 draws one block, tick 2 and 3 draw two
	assert.Len(t, device.Draws, 5)
	for _, d := range device.Draws {
		assert.Equal(t, 36, d.Count)
	}

	require.NoError(t, head.Shutdown())
	assert.Equal(t, 0, storage.Count())
	assert.Equal(t, 0, device.LiveBuffers())
	assert.Equal(t, 0, device.InvalidReleases)
}

func TestLoopStopsOnQuit(t *testing.T) {
	events := make(chan components.InputEvent, 4)
	events <- components.InputEvent{Kind: components.LoadMeshEvent, Path: "objects/block.obj"}
	events <- components.InputEvent{Kind: components.QuitEvent}

	storage := newStorage()
	head, err := engine.NewHeadSystem(storage, testConfig(), engine.Options{Device: gfxtest.New(), Logger: quiet})
	require.NoError(t, err)

	require.NoError(t, engine.Loop(context.Background(), head, engine.ChannelSource(events), 0))
	assert.True(t, head.Quit())
	assert.Equal(t, uint64(1), head.Tick())
	assert.Equal(t, 1, storage.Count())
}

func TestLoopSurvivesFlushFailure(t *testing.T) {
	storage := newStorage()
	stale := storage.Spawn(components.Position{})
	require.NoError(t, storage.Destroy(stale))

	var logs bytes.Buffer
	ui := ecs.SystemFunc(func(frame *ecs.UpdateFrame) {
		frame.Commands.Attach(stale, components.Position{})
	})
	head, err := engine.NewHeadSystem(storage, testConfig("objects/block.obj"), engine.Options{
		Device: gfxtest.New(),
		UI:     ui,
		Logger: log.New(&logs, "", 0),
	})
	require.NoError(t, err)

	require.ErrorIs(t, head.Run(), ecs.ErrEntityNotFound)
	require.NoError(t, engine.Loop(context.Background(), head, nil, 2))

	assert.Equal(t, uint64(3), head.Tick())
	assert.Contains(t, logs.String(), "entity not found")

	// the mesh load queued on the first pass still landed
	report, err := ecs.Context[components.LoadReport](storage)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Loaded)
	assert.Equal(t, 1, storage.Count())
}

func TestLoopStopsOnCancel(t *testing.T) {
	head, err := engine.NewHeadSystem(newStorage(), testConfig(), engine.Options{Device: gfxtest.New(), Logger: quiet})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, engine.Loop(ctx, head, nil, 0))
	assert.Equal(t, uint64(0), head.Tick())
}

func TestChannelSourceDrainsWithoutBlocking(t *testing.T) {
	events := make(chan components.InputEvent, 2)
	source := engine.ChannelSource(events)
	assert.Empty(t, source.Poll())

	events <- components.InputEvent{Kind: components.UnloadAllEvent}
	close(events)
	assert.Equal(t, []components.InputEvent{{Kind: components.UnloadAllEvent}}, source.Poll())
}
