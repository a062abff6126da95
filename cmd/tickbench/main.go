package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/profile"
	"github.com/plus3/softbody/components"
	"github.com/plus3/softbody/ecs"
	"github.com/plus3/softbody/engine"
	"github.com/plus3/softbody/gfx/soft"
	"github.com/plus3/softbody/resource"
)

func main() {
	duration := flag.Duration("duration", 10*time.Second, "The total duration the benchmark should run for.")
	meshCount := flag.Int("meshes", 100, "The number of mesh entities to spawn before ticking.")
	meshPath := flag.String("mesh", "objects/block.obj", "Mesh to spawn, relative to the asset root.")
	assets := flag.String("assets", "", "Asset root holding shaders/ and objects/.")
	width := flag.Int("width", 320, "Framebuffer width.")
	height := flag.Int("height", 240, "Framebuffer height.")
	gcPauseMetrics := flag.Bool("gc-pause-metrics", false, "Enable detailed GC pause metrics in the report.")
	memProfile := flag.Bool("memprofile", false, "Write an allocation profile to the working directory.")
	flag.Parse()

	if *memProfile {
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}

	log.Println("Starting tick benchmark...")

	cfg := engine.Config{AssetRoot: *assets, Width: *width, Height: *height}
	cfg.Resolve(engine.Flags{})

	registry := ecs.NewComponentRegistry()
	components.RegisterAll(registry)
	storage := ecs.NewStorage(registry)
	device := soft.New(cfg.DeviceOptions())

	head, err := engine.NewHeadSystem(storage, cfg, engine.Options{
		Device: device,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	log.Printf("Spawning %d copies of %s...\n", *meshCount, *meshPath)
	if err := spawnMeshes(storage, cfg.Resolver(), *meshPath, *meshCount); err != nil {
		log.Fatalf("Failed to spawn meshes: %v", err)
	}

	report := &Report{
		Duration:       *duration,
		Meshes:         *meshCount,
		MeshPath:       *meshPath,
		Width:          *width,
		Height:         *height,
		Systems:        head.Systems(),
		GCPauseMetrics: *gcPauseMetrics,
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	log.Printf("Running for %s...\n", *duration)
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	startTime := time.Now()
Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			tickStart := time.Now()
			if err := head.Run(); err != nil {
				report.FailedTicks++
			}
			report.TickTime.Samples = append(report.TickTime.Samples, time.Since(tickStart))
		}
	}

	report.TotalTime = time.Since(startTime)
	report.TotalTicks = head.Tick()
	report.TickTime.Finalize()
	report.Device = device.Stats()
	if stats, err := ecs.Context[ecs.SchedulerStats](storage); err == nil {
		report.SystemStats = stats.Systems
	}
	runtime.ReadMemStats(&report.MemStatsEnd)

	if err := head.Shutdown(); err != nil {
		log.Printf("Shutdown: %v", err)
	}
	report.LeakedBuffers = device.LiveBuffers()

	fmt.Println("\n\n--- Tick Benchmark Report ---")
	if err := report.Generate(os.Stdout); err != nil {
		log.Fatalf("Failed to generate report: %v", err)
	}
	fmt.Println("--- End of Report ---")
}

// spawnMeshes loads the mesh once and spawns count entities sharing its
// geometry, each with its own uploaded buffers.
func spawnMeshes(storage *ecs.Storage, resolver resource.Resolver, path string, count int) error {
	mesh, err := resolver.LoadMesh(path)
	if err != nil {
		return err
	}
	device, err := ecs.Context[components.GraphicsDevice](storage)
	if err != nil {
		return err
	}
	layouts, err := ecs.Context[components.BufferLayouts](storage)
	if err != nil {
		return err
	}

	for i := 0; i < count; i++ {
		buffers, err := resource.UploadMesh(device.Device, layouts, &mesh)
		if err != nil {
			return fmt.Errorf("mesh %d: %w", i, err)
		}
		offset := mgl32.Vec3{float32(i%10) * 2, 0, float32(i/10) * 2}
		storage.Spawn(mesh, buffers, components.Position{Vec3: components.SpawnPosition.Vec3.Add(offset)})
	}
	return nil
}
