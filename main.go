/*
Penumbra renders a small deferred-shaded scene fully offscreen: a grid of
spinning checker-textured cubes goes through the geometry and lighting
passes for a fixed number of frames while the frame ring keeps the CPU at
most one frame ahead of the GPU.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/config"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/math"
	"github.com/spaghettifunk/penumbra/engine/renderer/components"
	"github.com/spaghettifunk/penumbra/engine/renderer/frame"
	"github.com/spaghettifunk/penumbra/engine/renderer/vulkan"
)

func main() {
	configPath := flag.String("config", "penumbra.toml", "path to the TOML configuration file")
	frames := flag.Uint("frames", 0, "number of frames to simulate, 0 keeps the configured value")
	debug := flag.Bool("debug", false, "enable the Vulkan validation layers")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}
	core.LogSetLevel(cfg.LogLevel)
	if *frames > 0 {
		cfg.Demo.SimulatedFrames = uint32(*frames)
	}

	if err := core.MetricsInitialize(); err != nil {
		core.LogFatal(err.Error())
	}

	context, err := vulkan.NewContext(cfg.AppName, *debug)
	if err != nil {
		core.LogFatal(err.Error())
	}

	catalog := assets.NewShaderCatalog(cfg.Assets.ShaderDir)
	if err := catalog.Watch(); err != nil {
		core.LogWarn("shader hot reload unavailable: %s", err.Error())
	}

	texture, err := vulkan.NewCheckerTexture(context, 256)
	if err != nil {
		core.LogFatal(err.Error())
	}

	backend, err := vulkan.NewBackend(context, catalog, cfg.Renderer.Width, cfg.Renderer.Height, cfg.Renderer.FramesInFlight)
	if err != nil {
		core.LogFatal(err.Error())
	}

	vertices := cubeVertices()
	mesh, err := backend.CreateVertexBuffer(vertices)
	if err != nil {
		core.LogFatal(err.Error())
	}

	frameManager, err := frame.NewFrameManager(backend, frame.Options{
		MaxFrames:     cfg.Renderer.FramesInFlight,
		Width:         cfg.Renderer.Width,
		Height:        cfg.Renderer.Height,
		MeshCapacity:  cfg.Renderer.MeshCapacity,
		ShadowMapSize: cfg.Renderer.ShadowMapSize,
		SharedTexture: texture.Image,
		SharedSampler: texture.Sampler,
	})
	if err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	if err := runLoop(cfg, backend, frameManager, mesh, uint32(len(vertices)), sigCh); err != nil {
		core.LogError(err.Error())
	}

	// Teardown in reverse construction order. The device drains first so
	// nothing still referenced by in-flight work goes away under it.
	if err := backend.WaitIdle(); err != nil {
		core.LogWarn(err.Error())
	}
	frameManager.Destroy()
	mesh.Destroy()
	backend.Destroy()
	texture.Destroy()
	if err := catalog.Close(); err != nil {
		core.LogWarn(err.Error())
	}
	context.Destroy()
}

// runLoop drives the ring: wait for the slot, write its uniforms, record
// both passes, submit, advance. One iteration per simulated frame.
func runLoop(cfg *config.Config, backend *vulkan.Backend, frameManager *frame.FrameManager, mesh *vulkan.VulkanBuffer, vertexCount uint32, sigCh <-chan os.Signal) error {
	camera := components.NewCamera()
	aspect := float32(cfg.Renderer.Width) / float32(cfg.Renderer.Height)
	projection := math.NewMat4Perspective(math.DegToRad(45.0), aspect, 0.1, 100.0)

	instanceCount := math.Clamp(uint32(9), 1, cfg.Renderer.MeshCapacity)
	models := make([]frame.ModelUniform, instanceCount)

	frameClock := core.NewClock()
	reportClock := core.NewClock()
	frameClock.Start()
	reportClock.Start()

	for i := uint32(0); i < cfg.Demo.SimulatedFrames; i++ {
		select {
		case <-sigCh:
			core.LogInfo("interrupted after %d frames", i)
			return nil
		default:
		}

		if err := frameManager.Current().WaitReady(); err != nil {
			return err
		}
		fd, err := frameManager.CurrentMutable()
		if err != nil {
			return err
		}

		// Animate on a fixed timestep so a run is reproducible regardless
		// of how fast the device retires frames.
		t := float32(i) * (1.0 / 60.0)

		camera.Orbit(8.0, 3.0, t*0.5)
		if err := fd.SetCameraTransform(frame.CameraUniform{
			View:       camera.GetView(),
			Projection: projection,
		}); err != nil {
			return err
		}

		for m := range models {
			row := m / 3
			col := m % 3
			position := math.NewVec3(float32(col-1)*2.5, 0.0, float32(row-1)*2.5)
			spin := t + float32(m)*0.7
			models[m].Model = math.NewMat4EulerY(spin).Mul(math.NewMat4Translation(position))
		}
		if err := fd.SetInstanceTransforms(models); err != nil {
			return err
		}

		lighting := frame.DefaultLighting()
		lighting.LightDirection = math.NewVec3(math.Sin(t*0.3), -1.0, math.Cos(t*0.3)).Normalized().ToVec4(0.0)
		if err := fd.SetLighting(lighting); err != nil {
			return err
		}

		if err := backend.RecordFrame(frameManager, mesh, vertexCount, instanceCount); err != nil {
			return err
		}
		if err := fd.MarkSubmitted(); err != nil {
			return err
		}
		if err := backend.Submit(fd); err != nil {
			return err
		}
		frameManager.Advance()

		frameClock.Update()
		core.MetricsUpdate(frameClock.Elapsed())
		frameClock.Start()

		reportClock.Update()
		if reportClock.Elapsed() >= 1.0 {
			fps, avg := core.MetricsFrame()
			core.LogInfo("%.0f fps, %.2f ms average frame time, slot %d", fps, avg, frameManager.CurrentIndex())
			reportClock.Start()
		}
	}

	core.LogInfo("simulated %d frames", cfg.Demo.SimulatedFrames)
	return nil
}

// cubeVertices builds a unit cube as 36 vertices, one quad per face, wound
// so the outward faces survive back-face culling.
func cubeVertices() []vulkan.Vertex3D {
	const h = 0.5

	quads := []struct {
		normal         math.Vec3
		bl, br, tr, tl math.Vec3
	}{
		{math.NewVec3(0, 0, 1), math.NewVec3(-h, -h, h), math.NewVec3(h, -h, h), math.NewVec3(h, h, h), math.NewVec3(-h, h, h)},
		{math.NewVec3(0, 0, -1), math.NewVec3(h, -h, -h), math.NewVec3(-h, -h, -h), math.NewVec3(-h, h, -h), math.NewVec3(h, h, -h)},
		{math.NewVec3(1, 0, 0), math.NewVec3(h, -h, h), math.NewVec3(h, -h, -h), math.NewVec3(h, h, -h), math.NewVec3(h, h, h)},
		{math.NewVec3(-1, 0, 0), math.NewVec3(-h, -h, -h), math.NewVec3(-h, -h, h), math.NewVec3(-h, h, h), math.NewVec3(-h, h, -h)},
		{math.NewVec3(0, 1, 0), math.NewVec3(-h, h, h), math.NewVec3(h, h, h), math.NewVec3(h, h, -h), math.NewVec3(-h, h, -h)},
		{math.NewVec3(0, -1, 0), math.NewVec3(-h, -h, -h), math.NewVec3(h, -h, -h), math.NewVec3(h, -h, h), math.NewVec3(-h, -h, h)},
	}

	vertices := make([]vulkan.Vertex3D, 0, len(quads)*6)
	for _, q := range quads {
		vertices = append(vertices,
			vulkan.Vertex3D{Position: q.bl, Normal: q.normal, Texcoord: math.NewVec2(0, 0)},
			vulkan.Vertex3D{Position: q.br, Normal: q.normal, Texcoord: math.NewVec2(1, 0)},
			vulkan.Vertex3D{Position: q.tr, Normal: q.normal, Texcoord: math.NewVec2(1, 1)},
			vulkan.Vertex3D{Position: q.tr, Normal: q.normal, Texcoord: math.NewVec2(1, 1)},
			vulkan.Vertex3D{Position: q.tl, Normal: q.normal, Texcoord: math.NewVec2(0, 1)},
			vulkan.Vertex3D{Position: q.bl, Normal: q.normal, Texcoord: math.NewVec2(0, 0)},
		)
	}
	return vertices
}
