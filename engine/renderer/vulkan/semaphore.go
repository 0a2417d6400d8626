package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type VulkanSemaphore struct {
	context *VulkanContext
	Handle  vk.Semaphore
}

func NewSemaphore(context *VulkanContext) (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var pSemaphore vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, context.Allocator, &pSemaphore); res != vk.Success {
		err := fmt.Errorf("failed to create semaphore with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanSemaphore{
		context: context,
		Handle:  pSemaphore,
	}, nil
}

func (vs *VulkanSemaphore) Destroy() {
	if vs.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(vs.context.Device.LogicalDevice, vs.Handle, vs.context.Allocator)
		vs.Handle = vk.NullSemaphore
	}
}
