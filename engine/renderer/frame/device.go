package frame

// BufferUsage selects what a GPU buffer may be bound as.
type BufferUsage uint32

const (
	BufferUsageUniform BufferUsage = 1 << iota
	BufferUsageTransferSrc
	BufferUsageTransferDst
)

// MemoryFlags select which memory heap backs an allocation and whether
// host writes need an explicit flush.
type MemoryFlags uint32

const (
	MemoryDeviceLocal MemoryFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
)

type ImageUsage uint32

const (
	ImageUsageTransferSrc ImageUsage = 1 << iota
	ImageUsageTransferDst
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthAttachment
	ImageUsageSampled
)

type ImageFormat uint32

const (
	FormatRGBA16Float ImageFormat = iota
	FormatRGBA16SNorm
	FormatD32Float
)

// PassKind names the two passes of the deferred pipeline.
type PassKind uint32

const (
	PassGeometry PassKind = iota
	PassLighting
)

func (p PassKind) String() string {
	switch p {
	case PassGeometry:
		return "geometry"
	case PassLighting:
		return "lighting"
	}
	return "unknown"
}

// DescriptorSetKind names the two per-slot descriptor sets.
type DescriptorSetKind uint32

const (
	DescriptorSetGBuffer DescriptorSetKind = iota
	DescriptorSetLighting
)

func (k DescriptorSetKind) String() string {
	switch k {
	case DescriptorSetGBuffer:
		return "gbuffer"
	case DescriptorSetLighting:
		return "lighting"
	}
	return "unknown"
}

// ImageOptions describes a 2D image allocation with its view.
type ImageOptions struct {
	Width  uint32
	Height uint32
	Format ImageFormat
	Usage  ImageUsage
	Memory MemoryFlags
}

// Fence is a host-waitable completion signal.
type Fence interface {
	// Wait blocks until the fence signals or timeoutNs elapses.
	Wait(timeoutNs uint64) error
	Reset() error
	Destroy()
}

// Semaphore is a device-side ordering signal. The host never waits on it.
type Semaphore interface {
	Destroy()
}

type CommandBuffer interface {
	Destroy()
}

// Buffer is a GPU buffer whose contents the host can overwrite.
type Buffer interface {
	// Write overwrites len(data) bytes starting at offset.
	Write(data []byte, offset uint64) error
	Size() uint64
	Destroy()
}

type Image interface {
	Destroy()
}

type Sampler interface {
	Destroy()
}

type DescriptorSet interface {
	Kind() DescriptorSetKind
}

// Pipeline is immutable after construction and may be referenced from any
// slot's recorded commands without locking.
type Pipeline interface {
	Pass() PassKind
	Destroy()
}

// DescriptorWrite points one binding of a set at a buffer or at an
// image+sampler pair. Exactly one of Buffer and Image is non-nil.
type DescriptorWrite struct {
	Set     DescriptorSet
	Binding uint32

	Buffer Buffer
	// Dynamic marks Buffer as a dynamic uniform buffer indexed per draw
	// call by stride offset.
	Dynamic bool
	// Range is the number of bytes visible to the shader per bind. Zero
	// means the whole buffer. Dynamic bindings must set it to one record.
	Range uint64

	Image   Image
	Sampler Sampler
}

// Device is the slice of the device/instance layer the frame ring consumes.
// The Vulkan backend implements it; tests substitute a fake.
type Device interface {
	// MinUniformBufferOffsetAlignment reports the device limit used to
	// compute the dynamic uniform buffer stride.
	MinUniformBufferOffsetAlignment() uint64

	AllocateCommandBuffers(count uint32) ([]CommandBuffer, error)
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateBuffer(size uint64, usage BufferUsage, memory MemoryFlags) (Buffer, error)
	CreateImage(opts ImageOptions) (Image, error)
	CreateSampler() (Sampler, error)

	CreatePipeline(pass PassKind) (Pipeline, error)
	AllocateDescriptorSet(kind DescriptorSetKind) (DescriptorSet, error)
	UpdateDescriptorSets(writes []DescriptorWrite) error
}
