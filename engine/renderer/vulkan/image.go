package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type VulkanImage struct {
	context *VulkanContext

	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView
	Format vk.Format
	Width  uint32
	Height uint32
}

func NewImage(context *VulkanContext, width, height uint32, format vk.Format, usage vk.ImageUsageFlags, memoryFlags vk.MemoryPropertyFlags) (*VulkanImage, error) {
	image := &VulkanImage{
		context: context,
		Format:  format,
		Width:   width,
		Height:  height,
	}

	imageInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  width,
			Height: height,
			Depth:  1,
		},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var handle vk.Image
	if res := vk.CreateImage(context.Device.LogicalDevice, &imageInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create image with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Handle = handle

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(context.Device.LogicalDevice, image.Handle, &memReqs)
	memReqs.Deref()

	memoryIndex := context.FindMemoryIndex(memReqs.MemoryTypeBits, uint32(memoryFlags))
	if memoryIndex < 0 {
		image.Destroy()
		err := fmt.Errorf("unable to create image because the required memory type was not found")
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
		image.Destroy()
		err := fmt.Errorf("failed to allocate image memory with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	image.Memory = memory

	if res := vk.BindImageMemory(context.Device.LogicalDevice, image.Handle, image.Memory, 0); res != vk.Success {
		image.Destroy()
		err := fmt.Errorf("failed to bind image memory with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	if err := image.createView(); err != nil {
		image.Destroy()
		return nil, err
	}

	return image, nil
}

func (vi *VulkanImage) createView() error {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if vi.Format == vk.FormatD32Sfloat || vi.Format == vk.FormatD32SfloatS8Uint || vi.Format == vk.FormatD24UnormS8Uint {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    vi.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   vi.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if res := vk.CreateImageView(vi.context.Device.LogicalDevice, &viewInfo, vi.context.Allocator, &view); res != vk.Success {
		err := fmt.Errorf("failed to create image view with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	vi.View = view
	return nil
}

// Transition records and submits a single use layout transition. Only the
// transitions the engine actually performs are supported.
func (vi *VulkanImage) Transition(oldLayout, newLayout vk.ImageLayout) error {
	cb, err := AllocateAndBeginSingleUse(vi.context, vi.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if newLayout == vk.ImageLayoutDepthStencilAttachmentOptimal {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               vi.Handle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var srcStage vk.PipelineStageFlags
	var dstStage vk.PipelineStageFlags

	if oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal {
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	} else if oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal {
		barrier.SrcAccessMask = vk.AccessFlags(vk.AccessTransferWriteBit)
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessShaderReadBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTransferBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	} else if oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutDepthStencilAttachmentOptimal {
		barrier.SrcAccessMask = 0
		barrier.DstAccessMask = vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
		srcStage = vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
		dstStage = vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit)
	} else {
		err := fmt.Errorf("unsupported image layout transition from %d to %d", oldLayout, newLayout)
		core.LogError(err.Error())
		return err
	}

	vk.CmdPipelineBarrier(
		cb.Handle,
		srcStage, dstStage,
		0,
		0, nil,
		0, nil,
		1, []vk.ImageMemoryBarrier{barrier})

	return cb.EndSingleUse(vi.context.Device.GraphicsQueue)
}

// CopyFromBuffer copies the whole buffer into the image. The image must be
// in TRANSFER_DST_OPTIMAL layout.
func (vi *VulkanImage) CopyFromBuffer(buffer *VulkanBuffer) error {
	cb, err := AllocateAndBeginSingleUse(vi.context, vi.context.Device.GraphicsCommandPool)
	if err != nil {
		return err
	}

	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{
			Width:  vi.Width,
			Height: vi.Height,
			Depth:  1,
		},
	}
	vk.CmdCopyBufferToImage(cb.Handle, buffer.Handle, vi.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	return cb.EndSingleUse(vi.context.Device.GraphicsQueue)
}

func (vi *VulkanImage) Destroy() {
	if vi.View != vk.NullImageView {
		vk.DestroyImageView(vi.context.Device.LogicalDevice, vi.View, vi.context.Allocator)
		vi.View = vk.NullImageView
	}
	if vi.Handle != vk.NullImage {
		vk.DestroyImage(vi.context.Device.LogicalDevice, vi.Handle, vi.context.Allocator)
		vi.Handle = vk.NullImage
	}
	if vi.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(vi.context.Device.LogicalDevice, vi.Memory, vi.context.Allocator)
		vi.Memory = vk.NullDeviceMemory
	}
}
