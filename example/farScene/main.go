package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/akmonengine/dtransform"
	"github.com/akmonengine/dtransform/config"
	"github.com/akmonengine/dtransform/ecs"
	"github.com/akmonengine/dtransform/transform"
	"github.com/go-gl/mathgl/mgl64"
)

func main() {
	path := flag.String("config", "example/farScene/scene.yaml", "scene configuration")
	frames := flag.Int("frames", 5, "number of frames to simulate, 0 runs until interrupted when watching")
	watch := flag.Bool("watch", false, "reload the origin and tuning when the configuration changes")
	speed := flag.Float64("speed", 250, "ship speed along -Z, in units per frame")
	flag.Parse()

	logger := log.New(os.Stderr, "farScene: ", log.LstdFlags)

	cfg, err := config.Load(*path)
	if err != nil {
		logger.Fatal(err)
	}

	reg := ecs.NewRegistry()
	scene, err := cfg.Spawn(reg)
	if err != nil {
		logger.Fatal(err)
	}
	world, err := dtransform.NewWorld(reg)
	if err != nil {
		logger.Fatal(err)
	}
	world.Logger = logger
	if err := cfg.Apply(world, scene); err != nil {
		logger.Fatal(err)
	}
	world.Events.Subscribe(dtransform.ORIGIN_SHIFTED, func(event dtransform.Event) {
		e := event.(dtransform.OriginShiftedEvent)
		fmt.Printf("  origin shifted by %v\n", e.Current.Sub(e.Previous))
	})

	var updates <-chan config.Config
	if *watch {
		watcher, err := config.NewWatcher(*path)
		if err != nil {
			logger.Fatal(err)
		}
		defer watcher.Close()
		updates = watcher.Updates
		go func() {
			for err := range watcher.Errors {
				logger.Printf("reload: %v", err)
			}
		}()
	}

	if err := world.Startup(); err != nil {
		logger.Fatal(err)
	}
	for frame := 1; *frames == 0 || frame <= *frames; frame++ {
		select {
		case next := <-updates:
			// the scene itself is not respawned, only the tuning and origin follow the file
			if err := next.Apply(world, scene); err != nil {
				logger.Printf("reload: %v", err)
			}
		default:
		}

		if ship, ok := scene["ship"]; ok {
			local, _ := reg.Local(ship)
			if err := reg.SetLocal(ship, local.Translate(mgl64.Vec3{0, 0, -*speed})); err != nil {
				logger.Fatal(err)
			}
		}
		if err := world.Step(); err != nil {
			logger.Fatal(err)
		}
		printFrame(world, reg, scene)
	}
}

func printFrame(world *dtransform.World, reg *ecs.Registry, scene config.Scene) {
	stats := world.Stats()
	fmt.Printf("frame %d: origin %v, synced %d, propagated %d, projected %d\n",
		stats.Frame, stats.Origin, stats.Synced, stats.Propagated, stats.Projected)

	names := make([]string, 0, len(scene))
	for name := range scene {
		names = append(names, name)
	}
	sort.Strings(names)

	origin := world.ResolvedOrigin().Position
	for _, name := range names {
		render, ok := reg.Render(scene[name])
		if !ok {
			continue
		}
		global, _ := reg.World(scene[name])
		fmt.Printf("  %-8s world %v render %v error %.3g\n",
			name, global.Translation, render.Translation, narrowingError(global, render, origin))
	}
}

// narrowingError is the distance between the projected translation and the exact offset from the origin
func narrowingError(global transform.Global, render transform.Render, origin mgl64.Vec3) float64 {
	exact := global.Translation.Sub(origin)
	projected := mgl64.Vec3{float64(render.Translation[0]), float64(render.Translation[1]), float64(render.Translation[2])}
	return projected.Sub(exact).Len()
}
