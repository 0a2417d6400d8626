package frame

import (
	"testing"
)

func TestAdvanceCycles(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	if got := fm.CurrentIndex(); got != 0 {
		t.Fatalf("expected initial index 0; got %d", got)
	}

	exp := []uint32{1, 2, 0, 1, 2, 0}
	for step, want := range exp {
		fm.Advance()
		if got := fm.CurrentIndex(); got != want {
			t.Fatalf("advance %d: expected index %d; got %d", step+1, want, got)
		}
		if fm.Current() != fm.frames[want] {
			t.Fatalf("advance %d: current slot does not match index %d", step+1, want)
		}
	}
}

func TestMinimalRingWraparound(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 5))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	if got := fm.Current().Index(); got != 0 {
		t.Fatalf("expected slot 0; got %d", got)
	}
	fm.Advance()
	if got := fm.Current().Index(); got != 1 {
		t.Fatalf("expected slot 1; got %d", got)
	}
	fm.Advance()
	if got := fm.Current().Index(); got != 0 {
		t.Fatalf("expected wraparound to slot 0; got %d", got)
	}
}

func TestSingleSlotRing(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 1, 2))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	for i := 0; i < 3; i++ {
		fm.Advance()
		if got := fm.CurrentIndex(); got != 0 {
			t.Fatalf("expected index to stay 0; got %d", got)
		}
	}
}

func TestSlotExclusivity(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 4, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	if got := fm.FrameCount(); got != 4 {
		t.Fatalf("expected 4 slots; got %d", got)
	}

	// 4 slots x (3 buffers + 5 images), none shared between slots.
	handles := make(map[interface{}]struct{})
	for _, fd := range fm.frames {
		handles[fd.CameraBuffer()] = struct{}{}
		handles[fd.ModelBuffer()] = struct{}{}
		handles[fd.LightingBuffer()] = struct{}{}
		handles[fd.AlbedoImage()] = struct{}{}
		handles[fd.NormalImage()] = struct{}{}
		handles[fd.DepthImage()] = struct{}{}
		handles[fd.ShadowMapImage()] = struct{}{}
		handles[fd.DrawImage()] = struct{}{}
	}
	if got := len(handles); got != 32 {
		t.Fatalf("expected 32 distinct resource handles; got %d", got)
	}

	// Sync primitives and descriptor sets are per slot as well.
	sync := make(map[interface{}]struct{})
	for _, fd := range fm.frames {
		sync[fd.Fence()] = struct{}{}
		sync[fd.AcquireSemaphore()] = struct{}{}
		sync[fd.RenderSemaphore()] = struct{}{}
		sync[fd.CommandBuffer()] = struct{}{}
		sync[fd.GBufferSet()] = struct{}{}
		sync[fd.LightingSet()] = struct{}{}
	}
	if got := len(sync); got != 24 {
		t.Fatalf("expected 24 distinct sync and descriptor handles; got %d", got)
	}
}

func TestSharedPipelines(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 3, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	gbuffer := fm.Pipeline(PassGeometry)
	lighting := fm.Pipeline(PassLighting)

	if gbuffer.Pass() != PassGeometry {
		t.Fatalf("expected geometry pass; got %s", gbuffer.Pass())
	}
	if lighting.Pass() != PassLighting {
		t.Fatalf("expected lighting pass; got %s", lighting.Pass())
	}
	if gbuffer == lighting {
		t.Fatalf("expected two distinct pipelines")
	}

	// The same handle is returned no matter which slot is current.
	fm.Advance()
	if fm.Pipeline(PassGeometry) != gbuffer || fm.Pipeline(PassLighting) != lighting {
		t.Fatalf("expected pipeline handles to be stable across slots")
	}
}

func TestDescriptorWiring(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	for _, fd := range fm.frames {
		if got := fd.GBufferSet().Kind(); got != DescriptorSetGBuffer {
			t.Fatalf("slot %d: expected gbuffer set; got %s", fd.Index(), got)
		}
		if got := fd.LightingSet().Kind(); got != DescriptorSetLighting {
			t.Fatalf("slot %d: expected lighting set; got %s", fd.Index(), got)
		}
	}

	// Each slot contributes 3 gbuffer writes and 4 lighting writes.
	if got := len(dev.writes); got != 2*(3+4) {
		t.Fatalf("expected 14 descriptor writes; got %d", got)
	}

	for _, fd := range fm.frames {
		var gbufferWrites, lightingWrites []DescriptorWrite
		for _, w := range dev.writes {
			switch w.Set {
			case fd.GBufferSet():
				gbufferWrites = append(gbufferWrites, w)
			case fd.LightingSet():
				lightingWrites = append(lightingWrites, w)
			}
		}

		if len(gbufferWrites) != 3 {
			t.Fatalf("slot %d: expected 3 gbuffer writes; got %d", fd.Index(), len(gbufferWrites))
		}
		if gbufferWrites[0].Binding != 0 || gbufferWrites[0].Buffer != fd.CameraBuffer() {
			t.Fatalf("slot %d: gbuffer binding 0 not the camera buffer", fd.Index())
		}
		if gbufferWrites[1].Binding != 1 || gbufferWrites[1].Buffer != fd.ModelBuffer() || !gbufferWrites[1].Dynamic {
			t.Fatalf("slot %d: gbuffer binding 1 not the dynamic model buffer", fd.Index())
		}
		if gbufferWrites[1].Range != ModelUniformSize {
			t.Fatalf("slot %d: expected dynamic range %d; got %d", fd.Index(), ModelUniformSize, gbufferWrites[1].Range)
		}
		if gbufferWrites[2].Binding != 2 || gbufferWrites[2].Image == nil || gbufferWrites[2].Sampler == nil {
			t.Fatalf("slot %d: gbuffer binding 2 not the shared texture", fd.Index())
		}

		if len(lightingWrites) != 4 {
			t.Fatalf("slot %d: expected 4 lighting writes; got %d", fd.Index(), len(lightingWrites))
		}
		if lightingWrites[0].Binding != 0 || lightingWrites[0].Buffer != fd.LightingBuffer() {
			t.Fatalf("slot %d: lighting binding 0 not the lighting buffer", fd.Index())
		}
		if lightingWrites[1].Image != fd.AlbedoImage() {
			t.Fatalf("slot %d: lighting binding 1 not the albedo image", fd.Index())
		}
		if lightingWrites[2].Image != fd.NormalImage() {
			t.Fatalf("slot %d: lighting binding 2 not the normal image", fd.Index())
		}
		if lightingWrites[3].Image != fd.DepthImage() {
			t.Fatalf("slot %d: lighting binding 3 not the depth image", fd.Index())
		}
	}
}

func TestImageDimensions(t *testing.T) {
	dev := newFakeDevice(64)
	fm, err := NewFrameManager(dev, testOptions(t, dev, 2, 4))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	defer fm.Destroy()

	for _, fd := range fm.frames {
		for _, img := range []Image{fd.AlbedoImage(), fd.NormalImage(), fd.DepthImage(), fd.DrawImage()} {
			opts := img.(*fakeImage).opts
			if opts.Width != 640 || opts.Height != 360 {
				t.Fatalf("slot %d: expected render extent 640x360; got %dx%d", fd.Index(), opts.Width, opts.Height)
			}
		}

		// The shadow map tracks its own configured size, not the render
		// target extent.
		shadow := fd.ShadowMapImage().(*fakeImage).opts
		if shadow.Width != 1024 || shadow.Height != 1024 {
			t.Fatalf("slot %d: expected 1024x1024 shadow map; got %dx%d", fd.Index(), shadow.Width, shadow.Height)
		}
		if shadow.Usage&ImageUsageSampled != 0 {
			t.Fatalf("slot %d: shadow map should not be sampled", fd.Index())
		}
		if shadow.Format != FormatD32Float {
			t.Fatalf("slot %d: expected depth format shadow map", fd.Index())
		}
	}
}

func TestNewFrameManagerValidation(t *testing.T) {
	type spec struct {
		mutate func(*Options)
	}
	specs := []spec{
		{func(o *Options) { o.MaxFrames = 0 }},
		{func(o *Options) { o.Width = 0 }},
		{func(o *Options) { o.Height = 0 }},
		{func(o *Options) { o.MeshCapacity = 0 }},
		{func(o *Options) { o.ShadowMapSize = 0 }},
		{func(o *Options) { o.SharedTexture = nil }},
		{func(o *Options) { o.SharedSampler = nil }},
	}

	for index, s := range specs {
		dev := newFakeDevice(64)
		opts := testOptions(t, dev, 2, 4)
		s.mutate(&opts)
		if _, err := NewFrameManager(dev, opts); err == nil {
			t.Fatalf("[spec %d] expected validation error; got nil", index)
		}
	}
}

func TestConstructionFailurePropagates(t *testing.T) {
	dev := newFakeDevice(64)
	opts := testOptions(t, dev, 2, 4)
	dev.failImages = true
	if _, err := NewFrameManager(dev, opts); err == nil {
		t.Fatalf("expected image creation failure to propagate")
	}

	dev = newFakeDevice(64)
	opts = testOptions(t, dev, 2, 4)
	dev.failPipelines = true
	if _, err := NewFrameManager(dev, opts); err == nil {
		t.Fatalf("expected pipeline creation failure to propagate")
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	dev := newFakeDevice(64)
	opts := testOptions(t, dev, 2, 4)
	fm, err := NewFrameManager(dev, opts)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// Leave one slot in flight so Destroy has to wait for it.
	fd := fm.Current()
	if err := fd.MarkSubmitted(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	fence := fd.Fence().(*fakeFence)

	fm.Destroy()

	if fence.waits != 1 {
		t.Fatalf("expected destroy to wait on the in-flight slot; got %d waits", fence.waits)
	}

	for i, f := range dev.fences {
		if !f.destroyed {
			t.Fatalf("fence %d not destroyed", i)
		}
	}
	for i, s := range dev.semaphores {
		if !s.destroyed {
			t.Fatalf("semaphore %d not destroyed", i)
		}
	}
	for i, cb := range dev.commandBuffers {
		if !cb.destroyed {
			t.Fatalf("command buffer %d not destroyed", i)
		}
	}
	for i, b := range dev.buffers {
		if !b.destroyed {
			t.Fatalf("buffer %d not destroyed", i)
		}
	}
	for i, p := range dev.pipelines {
		if !p.destroyed {
			t.Fatalf("pipeline %d not destroyed", i)
		}
	}

	// The shared texture and sampler stay owned by the caller.
	sharedTex := opts.SharedTexture.(*fakeImage)
	sharedSmp := opts.SharedSampler.(*fakeSampler)
	if sharedTex.destroyed {
		t.Fatalf("shared texture must outlive the ring")
	}
	if sharedSmp.destroyed {
		t.Fatalf("shared sampler must outlive the ring")
	}
	for i, img := range dev.images {
		if img != sharedTex && !img.destroyed {
			t.Fatalf("image %d not destroyed", i)
		}
	}
	for i, s := range dev.samplers {
		if s != sharedSmp && !s.destroyed {
			t.Fatalf("sampler %d not destroyed", i)
		}
	}
}
