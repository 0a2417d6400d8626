package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device

	GraphicsQueueIndex  int32
	GraphicsQueue       vk.Queue
	GraphicsCommandPool vk.CommandPool

	Properties  vk.PhysicalDeviceProperties
	Features    vk.PhysicalDeviceFeatures
	Memory      vk.PhysicalDeviceMemoryProperties
	DepthFormat vk.Format
}

func DeviceCreate(context *VulkanContext) error {
	context.Device = &VulkanDevice{
		GraphicsQueueIndex: -1,
	}

	if err := SelectPhysicalDevice(context); err != nil {
		return err
	}

	core.LogInfo("Creating logical device...")

	queueCreateInfos := []vk.DeviceQueueCreateInfo{
		{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		},
	}

	// Request device features.
	deviceFeatures := vk.PhysicalDeviceFeatures{}
	deviceFeatures.SamplerAnisotropy = vk.True // Request anistrophy

	portability := false
	var availableExtensionCount uint32
	if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &availableExtensionCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate device extension properties with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if availableExtensionCount != 0 {
		availableExtensions := make([]vk.ExtensionProperties, availableExtensionCount)
		if res := vk.EnumerateDeviceExtensionProperties(context.Device.PhysicalDevice, "", &availableExtensionCount, availableExtensions); res != vk.Success {
			err := fmt.Errorf("failed to enumerate device extension properties with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}
		for i := 0; i < int(availableExtensionCount); i++ {
			availableExtensions[i].Deref()
			end := FindFirstZeroInByteArray(availableExtensions[i].ExtensionName[:])
			if vk.ToString(availableExtensions[i].ExtensionName[:end+1]) == "VK_KHR_portability_subset" {
				core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
				portability = true
				break
			}
		}
	}

	// Offscreen rendering needs no swapchain extension.
	extensionNames := []string{}
	if portability {
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	// Create the device.
	var device vk.Device
	if res := vk.CreateDevice(context.Device.PhysicalDevice, &deviceCreateInfo, context.Allocator, &device); res != vk.Success {
		err := fmt.Errorf("failed to create logical device with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	context.Device.LogicalDevice = device

	core.LogInfo("Logical device created.")

	// Get queues.
	vk.GetDeviceQueue(
		context.Device.LogicalDevice,
		uint32(context.Device.GraphicsQueueIndex),
		0,
		&context.Device.GraphicsQueue)
	core.LogInfo("Queues obtained.")

	// Create command pool for graphics queue.
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(context.Device.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(
		context.Device.LogicalDevice,
		&poolCreateInfo,
		context.Allocator,
		&context.Device.GraphicsCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Graphics command pool created.")

	if !DeviceDetectDepthFormat(context.Device) {
		err := fmt.Errorf("depth format D32_SFLOAT is not supported by the selected device")
		core.LogError(err.Error())
		return err
	}

	return nil
}

func DeviceDestroy(context *VulkanContext) {
	// Unset queues
	context.Device.GraphicsQueue = nil

	core.LogInfo("Destroying command pools...")
	vk.DestroyCommandPool(
		context.Device.LogicalDevice,
		context.Device.GraphicsCommandPool,
		context.Allocator)

	// Destroy logical device
	core.LogInfo("Destroying logical device...")
	if context.Device.LogicalDevice != nil {
		vk.DestroyDevice(context.Device.LogicalDevice, context.Allocator)
		context.Device.LogicalDevice = nil
	}

	// Physical devices are not destroyed.
	core.LogInfo("Releasing physical device resources...")
	context.Device.PhysicalDevice = nil
	context.Device.GraphicsQueueIndex = -1
}

// DeviceDetectDepthFormat verifies the device can render the D32 depth and
// shadow targets the deferred pipeline is built around.
func DeviceDetectDepthFormat(device *VulkanDevice) bool {
	flags := vk.FormatFeatureDepthStencilAttachmentBit

	properties := vk.FormatProperties{}
	vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, vk.FormatD32Sfloat, &properties)
	properties.Deref()

	if (vk.FormatFeatureFlagBits(properties.LinearTilingFeatures)&flags) == flags ||
		(vk.FormatFeatureFlagBits(properties.OptimalTilingFeatures)&flags) == flags {
		device.DepthFormat = vk.FormatD32Sfloat
		return true
	}
	return false
}

func SelectPhysicalDevice(context *VulkanContext) error {
	var physicalDeviceCount uint32 = 0
	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	if physicalDeviceCount == 0 {
		err := fmt.Errorf("no devices which support Vulkan were found")
		core.LogError(err.Error())
		return err
	}

	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)

	if res := vk.EnumeratePhysicalDevices(context.Instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}

	preferDiscrete := runtime.GOOS != "darwin"

	var fallback vk.PhysicalDevice
	fallbackQueueIndex := int32(-1)

	for i := 0; i < int(physicalDeviceCount); i++ {
		properties := vk.PhysicalDeviceProperties{}
		vk.GetPhysicalDeviceProperties(physicalDevices[i], &properties)
		properties.Deref()

		queueIndex := graphicsQueueFamilyIndex(physicalDevices[i])
		if queueIndex < 0 {
			core.LogInfo("Device has no graphics queue family. Skipping.")
			continue
		}

		if preferDiscrete && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
			if fallback == nil {
				fallback = physicalDevices[i]
				fallbackQueueIndex = queueIndex
			}
			continue
		}

		selectDevice(context, physicalDevices[i], queueIndex)
		core.LogInfo("Physical device selected.")
		return nil
	}

	if fallback != nil {
		selectDevice(context, fallback, fallbackQueueIndex)
		core.LogInfo("Physical device selected.")
		return nil
	}

	err := fmt.Errorf("no physical devices were found which meet the requirements")
	core.LogError(err.Error())
	return err
}

func selectDevice(context *VulkanContext, device vk.PhysicalDevice, queueIndex int32) {
	properties := vk.PhysicalDeviceProperties{}
	vk.GetPhysicalDeviceProperties(device, &properties)
	properties.Deref()
	properties.Limits.Deref()

	features := vk.PhysicalDeviceFeatures{}
	vk.GetPhysicalDeviceFeatures(device, &features)
	features.Deref()

	memory := vk.PhysicalDeviceMemoryProperties{}
	vk.GetPhysicalDeviceMemoryProperties(device, &memory)
	memory.Deref()

	end := FindFirstZeroInByteArray(properties.DeviceName[:])
	core.LogInfo("Selected device: '%s'.", vk.ToString(properties.DeviceName[:end+1]))

	// GPU type, etc.
	switch properties.DeviceType {
	default:
		fallthrough
	case vk.PhysicalDeviceTypeOther:
		core.LogInfo("GPU type is Unknown.")
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Descrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	}

	core.LogInfo(
		"GPU Driver version: %d.%d.%d",
		vk.Version.Major(vk.Version(properties.DriverVersion)),
		vk.Version.Minor(vk.Version(properties.DriverVersion)),
		vk.Version.Patch(vk.Version(properties.DriverVersion)),
	)

	// Vulkan API version.
	core.LogInfo(
		"Vulkan API version: %d.%d.%d",
		vk.Version.Major(vk.Version(properties.ApiVersion)),
		vk.Version.Minor(vk.Version(properties.ApiVersion)),
		vk.Version.Patch(vk.Version(properties.ApiVersion)),
	)

	// Memory information
	for j := 0; j < int(memory.MemoryHeapCount); j++ {
		memory.MemoryHeaps[j].Deref()
		memorySizeGib := ((memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0)
		if vk.MemoryHeapFlagBits(memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit > 0 {
			core.LogInfo("Local GPU memory: %d GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %d GiB", memorySizeGib)
		}
	}

	context.Device.PhysicalDevice = device
	context.Device.GraphicsQueueIndex = queueIndex

	// Keep a copy of properties, features and memory info for later use.
	context.Device.Properties = properties
	context.Device.Features = features
	context.Device.Memory = memory
}

func graphicsQueueFamilyIndex(device vk.PhysicalDevice) int32 {
	var queueFamilyCount uint32 = 0
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &queueFamilyCount, queueFamilies)

	for i := 0; i < int(queueFamilyCount); i++ {
		queueFamilies[i].Deref()
		if queueFamilies[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return int32(i)
		}
	}
	return -1
}
