package frame

import (
	"errors"
	"fmt"
	"testing"
)

// fakeDevice implements Device in process memory so ring behavior can be
// exercised without a GPU.
type fakeDevice struct {
	alignment uint64

	fences         []*fakeFence
	semaphores     []*fakeSemaphore
	commandBuffers []*fakeCommandBuffer
	buffers        []*fakeBuffer
	images         []*fakeImage
	samplers       []*fakeSampler
	pipelines      []*fakePipeline
	sets           []*fakeDescriptorSet
	writes         []DescriptorWrite

	failImages    bool
	failPipelines bool
}

func newFakeDevice(alignment uint64) *fakeDevice {
	return &fakeDevice{alignment: alignment}
}

type fakeFence struct {
	signaled  bool
	waits     int
	destroyed bool
}

func (f *fakeFence) Wait(timeoutNs uint64) error {
	f.waits++
	// The fake device completes instantly.
	f.signaled = true
	return nil
}

func (f *fakeFence) Reset() error {
	f.signaled = false
	return nil
}

func (f *fakeFence) Destroy() { f.destroyed = true }

type fakeSemaphore struct {
	destroyed bool
}

func (s *fakeSemaphore) Destroy() { s.destroyed = true }

type fakeCommandBuffer struct {
	destroyed bool
}

func (c *fakeCommandBuffer) Destroy() { c.destroyed = true }

type fakeBuffer struct {
	data      []byte
	destroyed bool
}

func (b *fakeBuffer) Write(data []byte, offset uint64) error {
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("write of %d bytes at %d overruns buffer of %d", len(data), offset, len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

func (b *fakeBuffer) Size() uint64 { return uint64(len(b.data)) }

func (b *fakeBuffer) Destroy() { b.destroyed = true }

type fakeImage struct {
	opts      ImageOptions
	destroyed bool
}

func (i *fakeImage) Destroy() { i.destroyed = true }

type fakeSampler struct {
	destroyed bool
}

func (s *fakeSampler) Destroy() { s.destroyed = true }

type fakePipeline struct {
	pass      PassKind
	destroyed bool
}

func (p *fakePipeline) Pass() PassKind { return p.pass }

func (p *fakePipeline) Destroy() { p.destroyed = true }

type fakeDescriptorSet struct {
	kind DescriptorSetKind
}

func (d *fakeDescriptorSet) Kind() DescriptorSetKind { return d.kind }

func (d *fakeDevice) MinUniformBufferOffsetAlignment() uint64 {
	return d.alignment
}

func (d *fakeDevice) AllocateCommandBuffers(count uint32) ([]CommandBuffer, error) {
	out := make([]CommandBuffer, 0, count)
	for i := uint32(0); i < count; i++ {
		cb := &fakeCommandBuffer{}
		d.commandBuffers = append(d.commandBuffers, cb)
		out = append(out, cb)
	}
	return out, nil
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	f := &fakeFence{signaled: signaled}
	d.fences = append(d.fences, f)
	return f, nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	s := &fakeSemaphore{}
	d.semaphores = append(d.semaphores, s)
	return s, nil
}

func (d *fakeDevice) CreateBuffer(size uint64, usage BufferUsage, memory MemoryFlags) (Buffer, error) {
	b := &fakeBuffer{data: make([]byte, size)}
	d.buffers = append(d.buffers, b)
	return b, nil
}

func (d *fakeDevice) CreateImage(opts ImageOptions) (Image, error) {
	if d.failImages {
		return nil, errors.New("image creation refused")
	}
	img := &fakeImage{opts: opts}
	d.images = append(d.images, img)
	return img, nil
}

func (d *fakeDevice) CreateSampler() (Sampler, error) {
	s := &fakeSampler{}
	d.samplers = append(d.samplers, s)
	return s, nil
}

func (d *fakeDevice) CreatePipeline(pass PassKind) (Pipeline, error) {
	if d.failPipelines {
		return nil, errors.New("pipeline creation refused")
	}
	p := &fakePipeline{pass: pass}
	d.pipelines = append(d.pipelines, p)
	return p, nil
}

func (d *fakeDevice) AllocateDescriptorSet(kind DescriptorSetKind) (DescriptorSet, error) {
	s := &fakeDescriptorSet{kind: kind}
	d.sets = append(d.sets, s)
	return s, nil
}

func (d *fakeDevice) UpdateDescriptorSets(writes []DescriptorWrite) error {
	d.writes = append(d.writes, writes...)
	return nil
}

// testOptions builds Options backed by a shared texture and sampler from
// the same fake device.
func testOptions(t *testing.T, dev *fakeDevice, maxFrames, meshCapacity uint32) Options {
	t.Helper()

	tex, err := dev.CreateImage(ImageOptions{
		Width:  2,
		Height: 2,
		Format: FormatRGBA16Float,
		Usage:  ImageUsageTransferDst | ImageUsageSampled,
		Memory: MemoryDeviceLocal,
	})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	smp, err := dev.CreateSampler()
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	return Options{
		MaxFrames:     maxFrames,
		Width:         640,
		Height:        360,
		MeshCapacity:  meshCapacity,
		ShadowMapSize: 1024,
		SharedTexture: tex,
		SharedSampler: smp,
	}
}
