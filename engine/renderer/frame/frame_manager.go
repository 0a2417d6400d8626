package frame

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// Options sizes the ring and its per-slot resources. SharedTexture and
// SharedSampler are bound read-only into every slot's gbuffer set; they
// stay owned by the caller.
type Options struct {
	MaxFrames     uint32
	Width         uint32
	Height        uint32
	MeshCapacity  uint32
	ShadowMapSize uint32
	SharedTexture Image
	SharedSampler Sampler
}

func (o Options) validate() error {
	if o.MaxFrames < 1 {
		return fmt.Errorf("max frames must be at least 1, got %d", o.MaxFrames)
	}
	if o.Width == 0 || o.Height == 0 {
		return fmt.Errorf("render extent must be non-zero, got %dx%d", o.Width, o.Height)
	}
	if o.MeshCapacity < 1 {
		return fmt.Errorf("mesh capacity must be at least 1, got %d", o.MeshCapacity)
	}
	if o.ShadowMapSize == 0 {
		return errors.New("shadow map size must be non-zero")
	}
	if o.SharedTexture == nil || o.SharedSampler == nil {
		return errors.New("shared texture and sampler are required")
	}
	return nil
}

// FrameManager owns a fixed ring of FrameData slots plus the two pipelines
// all slots record against. The ring lets the host prepare slot N+1 while
// the device still executes slot N, bounding in-flight frames to
// MaxFrames-1. All slots are created together at construction and
// destroyed together at teardown.
type FrameManager struct {
	device Device

	frames       []*FrameData
	currentFrame uint32
	frameCount   uint32

	gbufferPipeline  Pipeline
	lightingPipeline Pipeline

	stride uint64
}

// NewFrameManager eagerly builds every slot. Any sub-step failure is
// returned as-is; there is no degraded mode and no partial ring.
func NewFrameManager(device Device, opts Options) (*FrameManager, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	commandBuffers, err := device.AllocateCommandBuffers(opts.MaxFrames)
	if err != nil {
		return nil, fmt.Errorf("allocate command buffers: %w", err)
	}

	gbufferPipeline, err := device.CreatePipeline(PassGeometry)
	if err != nil {
		return nil, fmt.Errorf("create gbuffer pipeline: %w", err)
	}
	lightingPipeline, err := device.CreatePipeline(PassLighting)
	if err != nil {
		return nil, fmt.Errorf("create lighting pipeline: %w", err)
	}

	stride := UniformStride(ModelUniformSize, device.MinUniformBufferOffsetAlignment())

	fm := &FrameManager{
		device:           device,
		frames:           make([]*FrameData, 0, opts.MaxFrames),
		currentFrame:     0,
		frameCount:       opts.MaxFrames,
		gbufferPipeline:  gbufferPipeline,
		lightingPipeline: lightingPipeline,
		stride:           stride,
	}

	for i := uint32(0); i < opts.MaxFrames; i++ {
		fd, err := newFrameData(device, i, commandBuffers[i], opts, stride)
		if err != nil {
			return nil, err
		}
		fm.frames = append(fm.frames, fd)
	}

	core.LogDebug("frame ring ready: %d slots, %dx%d targets, stride %d bytes", fm.frameCount, opts.Width, opts.Height, stride)

	return fm, nil
}

// Advance rotates the ring cursor. It performs no waiting; callers wait on
// the target slot via WaitReady before mutating it.
func (fm *FrameManager) Advance() {
	fm.currentFrame = (fm.currentFrame + 1) % fm.frameCount
}

// Current returns the slot under the cursor for reading and recording.
func (fm *FrameManager) Current() *FrameData {
	return fm.frames[fm.currentFrame]
}

// CurrentMutable returns the slot under the cursor for host-side writes.
// A slot still in flight cannot be mutated.
func (fm *FrameManager) CurrentMutable() (*FrameData, error) {
	fd := fm.frames[fm.currentFrame]
	if fd.state != SlotReady {
		return nil, fmt.Errorf("slot %d: %w", fd.index, ErrSlotInFlight)
	}
	return fd, nil
}

func (fm *FrameManager) CurrentIndex() uint32 {
	return fm.currentFrame
}

func (fm *FrameManager) FrameCount() uint32 {
	return fm.frameCount
}

// Stride is the dynamic uniform buffer stride computed once at
// construction from the device alignment limit.
func (fm *FrameManager) Stride() uint64 {
	return fm.stride
}

// Pipeline returns the shared pipeline for the given pass. The handle is
// immutable and safe to bind from any slot.
func (fm *FrameManager) Pipeline(pass PassKind) Pipeline {
	if pass == PassGeometry {
		return fm.gbufferPipeline
	}
	return fm.lightingPipeline
}

// Destroy waits for every in-flight slot and then tears the whole ring
// down, shared pipelines included.
func (fm *FrameManager) Destroy() {
	for _, fd := range fm.frames {
		if err := fd.WaitReady(); err != nil {
			core.LogWarn("destroying slot %d without completion: %s", fd.index, err.Error())
		}
		fd.destroy()
	}
	fm.frames = nil

	fm.gbufferPipeline.Destroy()
	fm.lightingPipeline.Destroy()
}
