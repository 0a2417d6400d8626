package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type VulkanSampler struct {
	context *VulkanContext
	Handle  vk.Sampler
}

func NewSampler(context *VulkanContext) (*VulkanSampler, error) {
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		MipLodBias:              0.0,
		AnisotropyEnable:        vk.True,
		MaxAnisotropy:           context.Device.Properties.Limits.MaxSamplerAnisotropy,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0.0,
		MaxLod:                  0.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}

	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &samplerInfo, context.Allocator, &sampler); res != vk.Success {
		err := fmt.Errorf("failed to create sampler with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanSampler{
		context: context,
		Handle:  sampler,
	}, nil
}

func (vs *VulkanSampler) Destroy() {
	if vs.Handle != vk.NullSampler {
		vk.DestroySampler(vs.context.Device.LogicalDevice, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSampler
	}
}
