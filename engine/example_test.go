package engine_test

import (
	"context"
	"fmt"

	"github.com/plus3/softbody/engine"
	"github.com/plus3/softbody/gfx/soft"
)

func ExampleLoop() {
	cfg := engine.Config{AssetRoot: "../assets", Autoload: []string{"objects/block.obj"}, Width: 96, Height: 64}
	cfg.Resolve(engine.Flags{})

	storage := newStorage()
	device := soft.New(cfg.DeviceOptions())
	head, err := engine.NewHeadSystem(storage, cfg, engine.Options{Device: device, Logger: quiet})
	if err != nil {
		panic(err)
	}

	if err := engine.Loop(context.Background(), head, nil, 2); err != nil {
		panic(err)
	}
	fmt.Println("entities:", storage.Count())
	fmt.Println("draws:", device.Stats().Draws)
	fmt.Println("drawn:", device.FrameBuffer().Covered() > 0)

	if err := head.Shutdown(); err != nil {
		panic(err)
	}
	fmt.Println("live buffers:", device.LiveBuffers())
	// Output:
	// entities: 1
	// draws: 2
	// drawn: true
	// live buffers: 0
}
