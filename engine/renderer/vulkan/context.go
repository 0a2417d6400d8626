package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

// VulkanContext owns the instance and logical device every GPU resource
// in this package hangs off. It is built once at start-up and torn down
// once at exit; there is no recovery path for a context that failed to
// come up.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks

	Device *VulkanDevice

	debug          bool
	debugMessenger vk.DebugReportCallback
}

// NewContext boots the Vulkan loader without a window system: the default
// instance proc address comes straight from the installed ICD, so the
// renderer runs headless.
func NewContext(appName string, debug bool) (*VulkanContext, error) {
	if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		core.LogError("failed to load the Vulkan library: %s", err.Error())
		return nil, err
	}
	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize the Vulkan loader: %s", err.Error())
		return nil, err
	}

	// TODO: custom allocator.
	context := &VulkanContext{
		Allocator: nil,
		debug:     debug,
	}

	if err := context.createInstance(appName); err != nil {
		return nil, err
	}
	if err := DeviceCreate(context); err != nil {
		return nil, err
	}

	return context, nil
}

func (vc *VulkanContext) createInstance(appName string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 2, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Penumbra Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// No surface extensions: rendering happens offscreen.
	requiredExtensions := []string{}

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}

	if vc.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for i := 0; i < len(requiredExtensions); i++ {
			core.LogInfo(requiredExtensions[i])
		}
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers.
	requiredValidationLayerNames := []string{}

	if vc.debug {
		core.LogInfo("Validation layers enabled. Enumerating...")

		requiredValidationLayerNames = []string{"VK_LAYER_KHRONOS_validation"}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			err := fmt.Errorf("failed to enumerate validation layers with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}

		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			err := fmt.Errorf("failed to enumerate validation layers with error `%s`", VulkanResultString(res))
			core.LogError(err.Error())
			return err
		}

		// Verify all required layers are available.
		for i := range requiredValidationLayerNames {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredValidationLayerNames[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					break
				}
			}

			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", requiredValidationLayerNames[i])
				core.LogError(err.Error())
				return err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredValidationLayerNames))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredValidationLayerNames)

	if res := vk.CreateInstance(&createInfo, vc.Allocator, &vc.Instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}

	core.LogInfo("Vulkan Instance created.")

	if vc.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: dbgCallbackFunc,
			PNext:       nil,
		}

		var dbg vk.DebugReportCallback
		if res := vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, vc.Allocator, &dbg); res != vk.Success {
			core.LogWarn("vk.CreateDebugReportCallback failed with %s", VulkanResultString(res))
		} else {
			vc.debugMessenger = dbg
		}
	}

	return nil
}

// FindMemoryIndex returns the index of a memory type matching the filter
// and property flags, or -1 when the device offers none.
func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// WaitIdle blocks until the device has drained all submitted work.
func (vc *VulkanContext) WaitIdle() error {
	if vc.Device == nil || vc.Device.LogicalDevice == nil {
		return nil
	}
	if res := vk.DeviceWaitIdle(vc.Device.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("vkDeviceWaitIdle failed with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return err
	}
	return nil
}

func (vc *VulkanContext) Destroy() {
	vc.WaitIdle()

	if vc.Device != nil {
		DeviceDestroy(vc)
	}
	if vc.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugMessenger, vc.Allocator)
	}
	if vc.Instance != nil {
		vk.DestroyInstance(vc.Instance, vc.Allocator)
		vc.Instance = nil
	}
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		core.LogInfo("DEBUG: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
