package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/frame"
)

type VulkanDescriptorSet struct {
	kind   frame.DescriptorSetKind
	Handle vk.DescriptorSet
}

func (vds *VulkanDescriptorSet) Kind() frame.DescriptorSetKind {
	return vds.kind
}

/**
 * @brief Owns the descriptor pool and the two set layouts of the deferred
 * pipeline. The pool is sized for one geometry set and one lighting set per
 * frame slot and is never reset, so sets live as long as the slot does.
 */
type VulkanDescriptorPool struct {
	context *VulkanContext

	Handle         vk.DescriptorPool
	GBufferLayout  vk.DescriptorSetLayout
	LightingLayout vk.DescriptorSetLayout
}

func NewDescriptorPool(context *VulkanContext, frameCount uint32) (*VulkanDescriptorPool, error) {
	pool := &VulkanDescriptorPool{
		context: context,
	}

	// Per slot: camera and lighting uniforms, one dynamic model uniform,
	// one surface texture plus three gbuffer inputs.
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: 2 * frameCount},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: frameCount},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 4 * frameCount},
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       2 * frameCount,
	}

	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor pool with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	pool.Handle = handle

	gbufferBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		},
		{
			Binding:         2,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layout, err := pool.createLayout(gbufferBindings)
	if err != nil {
		return nil, err
	}
	pool.GBufferLayout = layout

	lightingBindings := []vk.DescriptorSetLayoutBinding{
		{
			Binding:         0,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         2,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
		{
			Binding:         3,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: 1,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		},
	}
	layout, err = pool.createLayout(lightingBindings)
	if err != nil {
		return nil, err
	}
	pool.LightingLayout = layout

	return pool, nil
}

func (vdp *VulkanDescriptorPool) createLayout(bindings []vk.DescriptorSetLayoutBinding) (vk.DescriptorSetLayout, error) {
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}

	var layout vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(vdp.context.Device.LogicalDevice, &layoutInfo, vdp.context.Allocator, &layout); res != vk.Success {
		err := fmt.Errorf("failed to create descriptor set layout with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return layout, nil
}

func (vdp *VulkanDescriptorPool) layoutFor(kind frame.DescriptorSetKind) (vk.DescriptorSetLayout, error) {
	switch kind {
	case frame.DescriptorSetGBuffer:
		return vdp.GBufferLayout, nil
	case frame.DescriptorSetLighting:
		return vdp.LightingLayout, nil
	}
	return nil, fmt.Errorf("unknown descriptor set kind %d", kind)
}

func (vdp *VulkanDescriptorPool) Allocate(kind frame.DescriptorSetKind) (*VulkanDescriptorSet, error) {
	layout, err := vdp.layoutFor(kind)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vdp.Handle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}

	sets := make([]vk.DescriptorSet, 1)
	if res := vk.AllocateDescriptorSets(vdp.context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
		err := fmt.Errorf("failed to allocate %s descriptor set with error `%s`", kind.String(), VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanDescriptorSet{
		kind:   kind,
		Handle: sets[0],
	}, nil
}

// Update translates the backend agnostic writes into Vulkan writes and
// applies them in a single call.
func (vdp *VulkanDescriptorPool) Update(writes []frame.DescriptorWrite) error {
	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))

	for _, w := range writes {
		set, ok := w.Set.(*VulkanDescriptorSet)
		if !ok {
			err := fmt.Errorf("descriptor write targets a set that was not allocated by this backend")
			core.LogError(err.Error())
			return err
		}

		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.Handle,
			DstBinding:      w.Binding,
			DstArrayElement: 0,
			DescriptorCount: 1,
		}

		switch {
		case w.Buffer != nil:
			buffer, ok := w.Buffer.(*VulkanBuffer)
			if !ok {
				err := fmt.Errorf("descriptor write references a buffer that was not created by this backend")
				core.LogError(err.Error())
				return err
			}
			bufferRange := w.Range
			if bufferRange == 0 {
				bufferRange = buffer.TotalSize
			}
			write.DescriptorType = vk.DescriptorTypeUniformBuffer
			if w.Dynamic {
				write.DescriptorType = vk.DescriptorTypeUniformBufferDynamic
			}
			write.PBufferInfo = []vk.DescriptorBufferInfo{
				{
					Buffer: buffer.Handle,
					Offset: 0,
					Range:  vk.DeviceSize(bufferRange),
				},
			}
		case w.Image != nil:
			image, ok := w.Image.(*VulkanImage)
			if !ok {
				err := fmt.Errorf("descriptor write references an image that was not created by this backend")
				core.LogError(err.Error())
				return err
			}
			sampler, ok := w.Sampler.(*VulkanSampler)
			if !ok {
				err := fmt.Errorf("descriptor write references a sampler that was not created by this backend")
				core.LogError(err.Error())
				return err
			}
			write.DescriptorType = vk.DescriptorTypeCombinedImageSampler
			write.PImageInfo = []vk.DescriptorImageInfo{
				{
					Sampler:     sampler.Handle,
					ImageView:   image.View,
					ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
				},
			}
		default:
			err := fmt.Errorf("descriptor write for binding %d carries neither a buffer nor an image", w.Binding)
			core.LogError(err.Error())
			return err
		}

		vkWrites = append(vkWrites, write)
	}

	vk.UpdateDescriptorSets(vdp.context.Device.LogicalDevice, uint32(len(vkWrites)), vkWrites, 0, nil)
	return nil
}

func (vdp *VulkanDescriptorPool) Destroy() {
	if vdp.GBufferLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vdp.context.Device.LogicalDevice, vdp.GBufferLayout, vdp.context.Allocator)
		vdp.GBufferLayout = vk.NullDescriptorSetLayout
	}
	if vdp.LightingLayout != vk.NullDescriptorSetLayout {
		vk.DestroyDescriptorSetLayout(vdp.context.Device.LogicalDevice, vdp.LightingLayout, vdp.context.Allocator)
		vdp.LightingLayout = vk.NullDescriptorSetLayout
	}
	if vdp.Handle != vk.NullDescriptorPool {
		vk.DestroyDescriptorPool(vdp.context.Device.LogicalDevice, vdp.Handle, vdp.context.Allocator)
		vdp.Handle = vk.NullDescriptorPool
	}
}
