package frame

import (
	"fmt"
)

// SlotState tracks whether a slot's previous submission is still executing
// on the device. Host-side mutation is legal only from SlotReady.
type SlotState uint32

const (
	SlotReady SlotState = iota
	SlotInFlight
)

func (s SlotState) String() string {
	switch s {
	case SlotReady:
		return "ready"
	case SlotInFlight:
		return "in-flight"
	}
	return "unknown"
}

const noTimeout = ^uint64(0)

// FrameData bundles everything one ring slot owns: sync primitives, a
// command buffer, three uniform buffers, the G-buffer and shadow/draw
// images with their samplers, and the two descriptor sets pointing at
// them. Nothing here is shared with another slot.
type FrameData struct {
	index uint32
	state SlotState

	fence            Fence
	acquireSemaphore Semaphore
	renderSemaphore  Semaphore
	commandBuffer    CommandBuffer

	cameraBuffer   Buffer
	modelBuffer    Buffer
	lightingBuffer Buffer

	albedoImage      Image
	albedoSampler    Sampler
	normalImage      Image
	normalSampler    Sampler
	depthImage       Image
	depthSampler     Sampler
	shadowMapImage   Image
	shadowMapSampler Sampler
	drawImage        Image

	gbufferSet  DescriptorSet
	lightingSet DescriptorSet

	stride       uint64
	meshCapacity uint32
}

// newFrameData creates every resource a slot owns and wires the two
// descriptor sets to them. There is no partial-construction recovery; on
// error the caller is expected to treat the whole ring as unusable.
func newFrameData(device Device, index uint32, commandBuffer CommandBuffer, opts Options, stride uint64) (*FrameData, error) {
	fd := &FrameData{
		index:         index,
		state:         SlotReady,
		commandBuffer: commandBuffer,
		stride:        stride,
		meshCapacity:  opts.MeshCapacity,
	}

	var err error
	if fd.fence, err = device.CreateFence(true); err != nil {
		return nil, fmt.Errorf("slot %d: create fence: %w", index, err)
	}
	if fd.acquireSemaphore, err = device.CreateSemaphore(); err != nil {
		return nil, fmt.Errorf("slot %d: create acquire semaphore: %w", index, err)
	}
	if fd.renderSemaphore, err = device.CreateSemaphore(); err != nil {
		return nil, fmt.Errorf("slot %d: create render semaphore: %w", index, err)
	}

	if err = fd.createBuffers(device, opts); err != nil {
		return nil, fmt.Errorf("slot %d: %w", index, err)
	}
	if err = fd.createImages(device, opts); err != nil {
		return nil, fmt.Errorf("slot %d: %w", index, err)
	}
	if err = fd.createDescriptorSets(device, opts); err != nil {
		return nil, fmt.Errorf("slot %d: %w", index, err)
	}

	return fd, nil
}

func (fd *FrameData) createBuffers(device Device, opts Options) error {
	var err error

	fd.cameraBuffer, err = device.CreateBuffer(CameraUniformSize, BufferUsageUniform, MemoryHostVisible|MemoryHostCoherent)
	if err != nil {
		return fmt.Errorf("create camera buffer: %w", err)
	}

	fd.modelBuffer, err = device.CreateBuffer(fd.stride*uint64(opts.MeshCapacity), BufferUsageUniform, MemoryHostVisible)
	if err != nil {
		return fmt.Errorf("create model dynamic buffer: %w", err)
	}

	fd.lightingBuffer, err = device.CreateBuffer(LightingUniformSize, BufferUsageUniform, MemoryHostVisible|MemoryHostCoherent)
	if err != nil {
		return fmt.Errorf("create lighting buffer: %w", err)
	}

	lighting := DefaultLighting()
	if err := fd.lightingBuffer.Write(lighting.Bytes(), 0); err != nil {
		return fmt.Errorf("seed lighting buffer: %w", err)
	}

	return nil
}

func (fd *FrameData) createImages(device Device, opts Options) error {
	var err error

	fd.albedoImage, err = device.CreateImage(ImageOptions{
		Width:  opts.Width,
		Height: opts.Height,
		Format: FormatRGBA16Float,
		Usage:  ImageUsageTransferSrc | ImageUsageTransferDst | ImageUsageStorage | ImageUsageColorAttachment | ImageUsageSampled,
		Memory: MemoryDeviceLocal,
	})
	if err != nil {
		return fmt.Errorf("create albedo image: %w", err)
	}

	fd.normalImage, err = device.CreateImage(ImageOptions{
		Width:  opts.Width,
		Height: opts.Height,
		Format: FormatRGBA16SNorm,
		Usage:  ImageUsageTransferSrc | ImageUsageTransferDst | ImageUsageColorAttachment | ImageUsageSampled,
		Memory: MemoryDeviceLocal,
	})
	if err != nil {
		return fmt.Errorf("create normal image: %w", err)
	}

	fd.depthImage, err = device.CreateImage(ImageOptions{
		Width:  opts.Width,
		Height: opts.Height,
		Format: FormatD32Float,
		Usage:  ImageUsageTransferSrc | ImageUsageTransferDst | ImageUsageDepthAttachment | ImageUsageSampled,
		Memory: MemoryDeviceLocal,
	})
	if err != nil {
		return fmt.Errorf("create depth image: %w", err)
	}

	fd.shadowMapImage, err = device.CreateImage(ImageOptions{
		Width:  opts.ShadowMapSize,
		Height: opts.ShadowMapSize,
		Format: FormatD32Float,
		Usage:  ImageUsageTransferSrc | ImageUsageTransferDst | ImageUsageStorage | ImageUsageDepthAttachment,
		Memory: MemoryDeviceLocal,
	})
	if err != nil {
		return fmt.Errorf("create shadow map image: %w", err)
	}

	fd.drawImage, err = device.CreateImage(ImageOptions{
		Width:  opts.Width,
		Height: opts.Height,
		Format: FormatRGBA16Float,
		Usage:  ImageUsageTransferSrc | ImageUsageTransferDst | ImageUsageStorage | ImageUsageColorAttachment,
		Memory: MemoryDeviceLocal,
	})
	if err != nil {
		return fmt.Errorf("create draw image: %w", err)
	}

	if fd.albedoSampler, err = device.CreateSampler(); err != nil {
		return fmt.Errorf("create albedo sampler: %w", err)
	}
	if fd.normalSampler, err = device.CreateSampler(); err != nil {
		return fmt.Errorf("create normal sampler: %w", err)
	}
	if fd.depthSampler, err = device.CreateSampler(); err != nil {
		return fmt.Errorf("create depth sampler: %w", err)
	}
	if fd.shadowMapSampler, err = device.CreateSampler(); err != nil {
		return fmt.Errorf("create shadow map sampler: %w", err)
	}

	return nil
}

func (fd *FrameData) createDescriptorSets(device Device, opts Options) error {
	var err error

	if fd.gbufferSet, err = device.AllocateDescriptorSet(DescriptorSetGBuffer); err != nil {
		return fmt.Errorf("allocate gbuffer descriptor set: %w", err)
	}
	err = device.UpdateDescriptorSets([]DescriptorWrite{
		{Set: fd.gbufferSet, Binding: 0, Buffer: fd.cameraBuffer},
		{Set: fd.gbufferSet, Binding: 1, Buffer: fd.modelBuffer, Dynamic: true, Range: ModelUniformSize},
		{Set: fd.gbufferSet, Binding: 2, Image: opts.SharedTexture, Sampler: opts.SharedSampler},
	})
	if err != nil {
		return fmt.Errorf("update gbuffer descriptor set: %w", err)
	}

	if fd.lightingSet, err = device.AllocateDescriptorSet(DescriptorSetLighting); err != nil {
		return fmt.Errorf("allocate lighting descriptor set: %w", err)
	}
	err = device.UpdateDescriptorSets([]DescriptorWrite{
		{Set: fd.lightingSet, Binding: 0, Buffer: fd.lightingBuffer},
		{Set: fd.lightingSet, Binding: 1, Image: fd.albedoImage, Sampler: fd.albedoSampler},
		{Set: fd.lightingSet, Binding: 2, Image: fd.normalImage, Sampler: fd.normalSampler},
		{Set: fd.lightingSet, Binding: 3, Image: fd.depthImage, Sampler: fd.depthSampler},
	})
	if err != nil {
		return fmt.Errorf("update lighting descriptor set: %w", err)
	}

	return nil
}

func (fd *FrameData) Index() uint32 { return fd.index }

func (fd *FrameData) State() SlotState { return fd.state }

func (fd *FrameData) Fence() Fence { return fd.fence }

func (fd *FrameData) AcquireSemaphore() Semaphore { return fd.acquireSemaphore }

func (fd *FrameData) RenderSemaphore() Semaphore { return fd.renderSemaphore }

func (fd *FrameData) CommandBuffer() CommandBuffer { return fd.commandBuffer }

func (fd *FrameData) CameraBuffer() Buffer { return fd.cameraBuffer }

func (fd *FrameData) ModelBuffer() Buffer { return fd.modelBuffer }

func (fd *FrameData) LightingBuffer() Buffer { return fd.lightingBuffer }

func (fd *FrameData) AlbedoImage() Image { return fd.albedoImage }

func (fd *FrameData) NormalImage() Image { return fd.normalImage }

func (fd *FrameData) DepthImage() Image { return fd.depthImage }

func (fd *FrameData) ShadowMapImage() Image { return fd.shadowMapImage }

func (fd *FrameData) DrawImage() Image { return fd.drawImage }

func (fd *FrameData) AlbedoSampler() Sampler { return fd.albedoSampler }

func (fd *FrameData) NormalSampler() Sampler { return fd.normalSampler }

func (fd *FrameData) DepthSampler() Sampler { return fd.depthSampler }

func (fd *FrameData) ShadowMapSampler() Sampler { return fd.shadowMapSampler }

// Stride is the byte distance between consecutive records in the model
// dynamic buffer, fixed at construction.
func (fd *FrameData) Stride() uint64 { return fd.stride }

func (fd *FrameData) GBufferSet() DescriptorSet { return fd.gbufferSet }

func (fd *FrameData) LightingSet() DescriptorSet { return fd.lightingSet }

// SetCameraTransform overwrites the slot's single camera record.
func (fd *FrameData) SetCameraTransform(camera CameraUniform) error {
	if fd.state != SlotReady {
		return fmt.Errorf("slot %d: set camera transform: %w", fd.index, ErrSlotInFlight)
	}
	return fd.cameraBuffer.Write(camera.Bytes(), 0)
}

// SetInstanceTransforms overwrites the dynamic buffer with one record per
// instance at the slot's stride. Supplying more records than the capacity
// reserved at construction is rejected.
func (fd *FrameData) SetInstanceTransforms(models []ModelUniform) error {
	if fd.state != SlotReady {
		return fmt.Errorf("slot %d: set instance transforms: %w", fd.index, ErrSlotInFlight)
	}
	if uint32(len(models)) > fd.meshCapacity {
		return fmt.Errorf("slot %d: %d records for capacity %d: %w", fd.index, len(models), fd.meshCapacity, ErrCapacityExceeded)
	}

	for i := range models {
		if err := fd.modelBuffer.Write(models[i].Bytes(), uint64(i)*fd.stride); err != nil {
			return fmt.Errorf("slot %d: write instance record %d: %w", fd.index, i, err)
		}
	}
	return nil
}

// SetLighting overwrites the slot's single lighting record.
func (fd *FrameData) SetLighting(lighting LightingUniform) error {
	if fd.state != SlotReady {
		return fmt.Errorf("slot %d: set lighting: %w", fd.index, ErrSlotInFlight)
	}
	return fd.lightingBuffer.Write(lighting.Bytes(), 0)
}

// MarkSubmitted resets the slot's fence and transitions it to in-flight.
// Call immediately before submitting the slot's command buffer so the
// unsignaled fence pairs with the submission about to produce it.
func (fd *FrameData) MarkSubmitted() error {
	if fd.state != SlotReady {
		return fmt.Errorf("slot %d: already submitted: %w", fd.index, ErrSlotInFlight)
	}
	if err := fd.fence.Reset(); err != nil {
		return fmt.Errorf("slot %d: reset fence: %w", fd.index, err)
	}
	fd.state = SlotInFlight
	return nil
}

// WaitReady blocks until the slot's previous submission has completed on
// the device. A slot that is already ready returns immediately. There is
// no timeout; the device finishing is the only way forward.
func (fd *FrameData) WaitReady() error {
	if fd.state == SlotReady {
		return nil
	}
	if err := fd.fence.Wait(noTimeout); err != nil {
		return fmt.Errorf("slot %d: wait fence: %w", fd.index, err)
	}
	fd.state = SlotReady
	return nil
}

// destroy releases everything the slot owns. The caller has already
// waited for the slot to leave flight.
func (fd *FrameData) destroy() {
	fd.gbufferSet = nil
	fd.lightingSet = nil

	fd.albedoSampler.Destroy()
	fd.normalSampler.Destroy()
	fd.depthSampler.Destroy()
	fd.shadowMapSampler.Destroy()

	fd.albedoImage.Destroy()
	fd.normalImage.Destroy()
	fd.depthImage.Destroy()
	fd.shadowMapImage.Destroy()
	fd.drawImage.Destroy()

	fd.cameraBuffer.Destroy()
	fd.modelBuffer.Destroy()
	fd.lightingBuffer.Destroy()

	fd.commandBuffer.Destroy()
	fd.acquireSemaphore.Destroy()
	fd.renderSemaphore.Destroy()
	fd.fence.Destroy()
}
