package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/profile"
	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/ecs/debugui"
	debugui_ebiten "github.com/plus3/softbody/ecs/debugui/ebiten"
	"github.com/plus3/softbody/engine"
	"github.com/plus3/softbody/gfx/soft"
)

func main() {
	configPath := flag.String("config", "", "Path to a JSON config file.")
	assets := flag.String("assets", "", "Asset root holding shaders/ and objects/.")
	autoload := flag.String("autoload", "", "Comma separated meshes to load at startup, relative to the asset root.")
	noMeshManagement := flag.Bool("no-mesh-management", false, "Disable the mesh loading systems.")
	width := flag.Int("width", 0, "Window width.")
	height := flag.Int("height", 0, "Window height.")
	supersample := flag.Int("supersample", 0, "Render at N times the window size.")
	headless := flag.Bool("headless", false, "Run without a window.")
	ticks := flag.Int("ticks", 0, "Headless passes to run. Zero runs until every autoload path is loaded.")
	snapshot := flag.String("snapshot", "", "Write the last headless frame to this WebP file. Implies -headless.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	flag.Parse()

	opts := runOptions{
		headless: *headless || *snapshot != "",
		ticks:    *ticks,
		snapshot: *snapshot,
		profile:  *profileMode,
	}
	flags := engine.Flags{
		AssetRoot:        *assets,
		Autoload:         *autoload,
		NoMeshManagement: *noMeshManagement,
		Width:            *width,
		Height:           *height,
		Supersample:      *supersample,
	}

	if err := run(*configPath, flags, opts); err != nil {
		log.Printf("viewer: %v", err)
		os.Exit(1)
	}
}

type runOptions struct {
	headless bool
	ticks    int
	snapshot string
	profile  string
}

func run(configPath string, flags engine.Flags, opts runOptions) error {
	switch opts.profile {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile mode %q", opts.profile)
	}

	var cfg engine.Config
	if configPath != "" {
		loaded, err := engine.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	cfg.Resolve(flags)
	log.Printf("viewer: assets %s, %dx%d", cfg.AssetRoot, cfg.Width, cfg.Height)

	registry := ecs.NewComponentRegistry()
	components.RegisterAll(registry)
	debugui.RegisterDebugUIComponents(registry)
	storage := ecs.NewStorage(registry)
	device := soft.New(cfg.DeviceOptions())

	if opts.headless {
		return runHeadless(storage, device, cfg, opts)
	}
	return runWindowed(storage, device, cfg)
}

func runHeadless(storage *ecs.Storage, device *soft.Device, cfg engine.Config, opts runOptions) error {
	head, err := engine.NewHeadSystem(storage, cfg, engine.Options{Device: device})
	if err != nil {
		return err
	}
	defer head.Shutdown()

	ticks := opts.ticks
	if ticks <= 0 {
		// one pass per autoload path, plus one to draw the last of them
		ticks = len(cfg.Autoload) + 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := engine.Loop(ctx, head, nil, ticks); err != nil {
		return err
	}

	stats := device.Stats()
	log.Printf("viewer: %d ticks, %d draws, %d triangles, %d pixels", head.Tick(), stats.Draws, stats.Triangles, stats.Pixels)

	if opts.snapshot == "" {
		return nil
	}
	f, err := os.Create(opts.snapshot)
	if err != nil {
		return err
	}
	if err := device.WriteWebP(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func runWindowed(storage *ecs.Storage, device *soft.Device, cfg engine.Config) error {
	ecs.SetContext(storage, debugui_ebiten.NewImguiBackend(cfg.Title, cfg.Width, cfg.Height))
	ecs.SetContext(storage, debugui.ImguiInputState{})
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	head, err := engine.NewHeadSystem(storage, cfg, engine.Options{
		Device: device,
		UI:     &debugui.ImguiSystem{},
	})
	if err != nil {
		return err
	}
	defer head.Shutdown()

	debugui.SpawnDebugUI(storage, describeMesh)
	storage.Spawn(debugui.ImguiItem{Render: newLoadPanel(head).Render})

	game := newGame(head, device)
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}
