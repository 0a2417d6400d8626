package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	context *VulkanContext
	/** @brief The internal shader module handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// NewShaderModule wraps SPIR-V bytecode in a shader module. The catalog
// guarantees the bytecode is non-empty and word aligned before it gets here.
func NewShaderModule(context *VulkanContext, code []byte, shaderStageFlag vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    bytesToBytecode(code),
	}

	var handle vk.ShaderModule
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &handle); res != vk.Success {
		err := fmt.Errorf("failed to create shader module with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanShaderStage{
		context: context,
		Handle:  handle,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStageFlag,
			Module: handle,
			PName:  VulkanSafeString("main"),
		},
	}, nil
}

func (vss *VulkanShaderStage) Destroy() {
	if vss.Handle != vk.NullShaderModule {
		vk.DestroyShaderModule(vss.context.Device.LogicalDevice, vss.Handle, vss.context.Allocator)
		vss.Handle = vk.NullShaderModule
	}
}

// bytesToBytecode reassembles SPIR-V words from little endian bytes.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
