package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// VulkanBuffer is a device buffer with persistently mapped memory when the
// memory is host visible. Uniform data is streamed through it every frame,
// so mapping once at creation beats mapping per write.
type VulkanBuffer struct {
	context *VulkanContext

	Handle    vk.Buffer
	Memory    vk.DeviceMemory
	TotalSize uint64

	mapped       unsafe.Pointer
	hostCoherent bool
}

func NewBuffer(context *VulkanContext, size uint64, usage vk.BufferUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	buffer := &VulkanBuffer{
		context:      context,
		TotalSize:    size,
		hostCoherent: memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	var handle vk.Buffer
	if res := vk.CreateBuffer(context.Device.LogicalDevice, &bufferInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create buffer with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Handle = handle

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(context.Device.LogicalDevice, buffer.Handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex < 0 {
		buffer.Destroy()
		err := fmt.Errorf("unable to create buffer because the required memory type was not found")
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: uint32(memoryIndex),
	}

	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(context.Device.LogicalDevice, &allocInfo, context.Allocator, &memory); res != vk.Success {
		buffer.Destroy()
		err := fmt.Errorf("failed to allocate buffer memory with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(context.Device.LogicalDevice, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		buffer.Destroy()
		err := fmt.Errorf("failed to bind buffer memory with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if memoryFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0 {
		var data unsafe.Pointer
		if res := vk.MapMemory(context.Device.LogicalDevice, buffer.Memory, 0, vk.DeviceSize(size), 0, &data); res != vk.Success {
			buffer.Destroy()
			err := fmt.Errorf("failed to map buffer memory with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return nil, err
		}
		buffer.mapped = data
	}

	return buffer, nil
}

func (vb *VulkanBuffer) Write(data []byte, offset uint64) error {
	if vb.mapped == nil {
		err := fmt.Errorf("buffer memory is not host visible")
		core.LogError(err.Error())
		return err
	}
	if offset+uint64(len(data)) > vb.TotalSize {
		err := fmt.Errorf("buffer write of %d bytes at offset %d exceeds size %d", len(data), offset, vb.TotalSize)
		core.LogError(err.Error())
		return err
	}

	vk.Memcopy(unsafe.Pointer(uintptr(vb.mapped)+uintptr(offset)), data)

	if !vb.hostCoherent {
		return vb.flushRange(offset, uint64(len(data)))
	}
	return nil
}

// flushRange makes a host write visible to the device. Flushed ranges must
// align to NonCoherentAtomSize, so the written span is widened to atom
// boundaries and clamped to the end of the allocation.
func (vb *VulkanBuffer) flushRange(offset, size uint64) error {
	atom := uint64(vb.context.Device.Properties.Limits.NonCoherentAtomSize)
	if atom == 0 {
		atom = 1
	}

	start := (offset / atom) * atom
	end := ((offset + size + atom - 1) / atom) * atom
	if end > vb.TotalSize {
		end = vb.TotalSize
	}

	memoryRange := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: vb.Memory,
		Offset: vk.DeviceSize(start),
		Size:   vk.DeviceSize(end - start),
	}
	if res := vk.FlushMappedMemoryRanges(vb.context.Device.LogicalDevice, 1, []vk.MappedMemoryRange{memoryRange}); res != vk.Success {
		err := fmt.Errorf("failed to flush mapped memory range with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vb *VulkanBuffer) Size() uint64 {
	return vb.TotalSize
}

func (vb *VulkanBuffer) Destroy() {
	if vb.mapped != nil {
		vk.UnmapMemory(vb.context.Device.LogicalDevice, vb.Memory)
		vb.mapped = nil
	}
	if vb.Handle != vk.NullBuffer {
		vk.DestroyBuffer(vb.context.Device.LogicalDevice, vb.Handle, vb.context.Allocator)
		vb.Handle = vk.NullBuffer
	}
	if vb.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(vb.context.Device.LogicalDevice, vb.Memory, vb.context.Allocator)
		vb.Memory = vk.NullDeviceMemory
	}
	vb.TotalSize = 0
}
