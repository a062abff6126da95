// Package engine composes the runtime: it owns the scheduler, wires the
// systems in their fixed order and drives the headless loop.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/gfx"
	"github.com/plus3/softbody/systems"
)

// Names the head system registers its systems under, in run order.
const (
	InputName                  = "Input"
	TestName                   = "Test"
	MeshManagementName         = "MeshManagement"
	RenderBufferManagementName = "RenderBufferManagement"
	RenderName                 = "Render"
	UIName                     = "UI"
)

var ErrNoDevice = errors.New("engine: no graphics device")

type Options struct {
	Device gfx.Device
	// UI runs last when set, usually a debugui.ImguiSystem.
	UI     ecs.System
	Logger *log.Logger
}

// HeadSystem runs every system once per tick in a fixed order:
// Input, Test, MeshManagement, RenderBufferManagement, Render, UI.
// Test only runs with autoload paths, the two mesh systems only when mesh
// management is enabled, and UI only when provided.
type HeadSystem struct {
	storage   *ecs.Storage
	scheduler *ecs.Scheduler
	render    *systems.RenderSystem
	feeder    *systems.TestSystem
	state     *ecs.Singleton[components.AppState]
	events    *ecs.Singleton[components.InputEvents]
	logger    *log.Logger
	last      time.Time
}

// NewHeadSystem creates the contexts the systems share and builds the render
// system. Errors from the device or the shader assets are fatal.
func NewHeadSystem(storage *ecs.Storage, cfg Config, opts Options) (*HeadSystem, error) {
	if opts.Device == nil {
		return nil, ErrNoDevice
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	ecs.NewSingleton[components.LoadMeshParams](storage)
	ecs.NewSingleton[components.LoadReport](storage)
	h := &HeadSystem{
		storage:   storage,
		scheduler: ecs.NewScheduler(storage),
		state:     ecs.NewSingleton[components.AppState](storage),
		events:    ecs.NewSingleton[components.InputEvents](storage),
		logger:    logger,
	}

	render, err := systems.NewRenderSystem(storage, opts.Device, cfg.RenderConfig())
	if err != nil {
		return nil, err
	}
	h.render = render

	h.scheduler.RegisterNamed(InputName, &systems.InputSystem{Logger: logger})
	if len(cfg.Autoload) > 0 {
		h.feeder = &systems.TestSystem{Paths: cfg.Autoload}
		h.scheduler.RegisterNamed(TestName, h.feeder)
	}
	if cfg.MeshManagementEnabled() {
		h.scheduler.RegisterNamed(MeshManagementName, &systems.MeshManagementSystem{
			Resolver: cfg.Resolver(),
			Logger:   logger,
		})
		h.scheduler.RegisterNamed(RenderBufferManagementName, &systems.RenderBufferManagementSystem{Logger: logger})
	}
	h.scheduler.RegisterNamed(RenderName, render)
	if opts.UI != nil {
		h.scheduler.RegisterNamed(UIName, opts.UI)
	}

	logger.Printf("engine: systems %v", h.Systems())
	return h, nil
}

// Run executes one pass of every system, flushes the deferred commands and
// publishes the scheduler stats as a context for the UI. Flush failures are
// logged and returned; the storage stays usable and the next pass can run.
func (h *HeadSystem) Run() error {
	now := time.Now()
	var dt float64
	if !h.last.IsZero() {
		dt = now.Sub(h.last).Seconds()
	}
	h.last = now

	err := h.scheduler.Once(dt)
	ecs.SetContext(h.storage, *h.scheduler.GetStats())
	if err != nil {
		h.logger.Printf("engine: tick %d: %v", h.scheduler.Tick(), err)
	}
	return err
}

// Systems returns the registered system names in run order.
func (h *HeadSystem) Systems() []string {
	return h.scheduler.Names()
}

func (h *HeadSystem) Storage() *ecs.Storage {
	return h.storage
}

// Tick is the number of completed passes.
func (h *HeadSystem) Tick() uint64 {
	return h.scheduler.Tick()
}

// Quit reports whether a quit event has been handled.
func (h *HeadSystem) Quit() bool {
	state := h.state.Get()
	return state != nil && state.Quit
}

// Push queues a frontend event for the next pass.
func (h *HeadSystem) Push(event components.InputEvent) {
	h.events.Get().Push(event)
}

// AutoloadDone reports whether every autoload path has been posted.
func (h *HeadSystem) AutoloadDone() bool {
	return h.feeder == nil || h.feeder.Done()
}

// Shutdown destroys every mesh entity, which releases its buffers, then
// releases the render system's own buffers.
func (h *HeadSystem) Shutdown() error {
	var ids []ecs.EntityId
	for id := range ecs.NewView[struct{ *components.Mesh }](h.storage).Iter() {
		ids = append(ids, id)
	}
	var errs []error
	for _, id := range ids {
		if err := h.storage.Destroy(id); err != nil {
			errs = append(errs, err)
		}
	}
	h.render.Close()
	h.logger.Printf("engine: shutdown released %d meshes", len(ids))
	return errors.Join(errs...)
}

// EventSource is polled once per tick. Poll must not block.
type EventSource interface {
	Poll() []components.InputEvent
}

// ChannelSource drains whatever is buffered on a channel.
type ChannelSource <-chan components.InputEvent

func (c ChannelSource) Poll() []components.InputEvent {
	var events []components.InputEvent
	for {
		select {
		case e, ok := <-c:
			if !ok {
				return events
			}
			events = append(events, e)
		default:
			return events
		}
	}
}

// Loop runs the head system until a quit event is handled, ctx is cancelled
// or maxTicks passes have run. A maxTicks of zero means no limit. A pass that
// fails to flush does not end the loop.
func Loop(ctx context.Context, head *HeadSystem, source EventSource, maxTicks int) error {
	for ticks := 0; maxTicks <= 0 || ticks < maxTicks; ticks++ {
		if ctx.Err() != nil {
			return nil
		}
		if source != nil {
			for _, e := range source.Poll() {
				head.Push(e)
			}
		}
		// already logged by Run
		_ = head.Run()
		if head.Quit() {
			return nil
		}
	}
	return nil
}
