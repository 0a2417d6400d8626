package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/core"
)

type VulkanRenderPassState int

const (
	READY VulkanRenderPassState = iota
	RECORDING
	IN_RENDER_PASS
	RECORDING_ENDED
	SUBMITTED
	NOT_ALLOCATED
)

type VulkanRenderpass struct {
	context *VulkanContext

	Handle     vk.RenderPass
	X, Y, W, H float32
	R, G, B, A float32
	Depth      float32
	Stencil    uint32
	State      VulkanRenderPassState

	colorAttachmentCount uint32
	hasDepth             bool
}

// GeometryRenderpassCreate builds the pass that fills the gbuffer: albedo
// and normal color attachments plus the depth attachment. All three are
// stored and handed to the lighting pass as shader inputs.
func GeometryRenderpassCreate(context *VulkanContext, x, y, w, h, r, g, b, a, depth float32, stencil uint32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		context:              context,
		X:                    x,
		Y:                    y,
		W:                    w,
		H:                    h,
		R:                    r,
		G:                    g,
		B:                    b,
		A:                    a,
		Depth:                depth,
		Stencil:              stencil,
		colorAttachmentCount: 2,
		hasDepth:             true,
	}

	// Main subpass
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	attachmentDescriptions := make([]vk.AttachmentDescription, 3)

	// Albedo attachment
	attachmentDescriptions[0] = vk.AttachmentDescription{
		Format:         vk.FormatR16g16b16a16Sfloat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
	}

	// Normal attachment
	attachmentDescriptions[1] = vk.AttachmentDescription{
		Format:         vk.FormatR16g16b16a16Snorm,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
	}

	// Depth attachment. Stored because the lighting pass reconstructs
	// positions from it.
	attachmentDescriptions[2] = vk.AttachmentDescription{
		Format:         context.Device.DepthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutShaderReadOnlyOptimal,
	}

	colorAttachmentReferences := []vk.AttachmentReference{
		{
			Attachment: 0, // Attachment description array index
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
		{
			Attachment: 1,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	subpass.ColorAttachmentCount = 2
	subpass.PColorAttachments = colorAttachmentReferences

	depthAttachmentReference := vk.AttachmentReference{
		Attachment: 2,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}
	subpass.PDepthStencilAttachment = &depthAttachmentReference

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
		},
		{
			// The lighting pass samples every gbuffer target.
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageLateFragmentTestsBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit) | vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			DstAccessMask: vk.AccessFlags(vk.AccessShaderReadBit),
		},
	}

	handle, err := renderpassCreate(context, attachmentDescriptions, subpass, dependencies)
	if err != nil {
		return nil, err
	}
	outRenderpass.Handle = handle
	return outRenderpass, nil
}

// LightingRenderpassCreate builds the composition pass: a single color
// attachment holding the lit frame, left ready for transfer out.
func LightingRenderpassCreate(context *VulkanContext, x, y, w, h, r, g, b, a float32) (*VulkanRenderpass, error) {
	outRenderpass := &VulkanRenderpass{
		context:              context,
		X:                    x,
		Y:                    y,
		W:                    w,
		H:                    h,
		R:                    r,
		G:                    g,
		B:                    b,
		A:                    a,
		colorAttachmentCount: 1,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	attachmentDescriptions := []vk.AttachmentDescription{
		{
			Format:         vk.FormatR16g16b16a16Sfloat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutTransferSrcOptimal,
		},
	}

	colorAttachmentReferences := []vk.AttachmentReference{
		{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		},
	}

	subpass.ColorAttachmentCount = 1
	subpass.PColorAttachments = colorAttachmentReferences

	dependencies := []vk.SubpassDependency{
		{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
		},
		{
			SrcSubpass:    0,
			DstSubpass:    vk.SubpassExternal,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
			SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			DstAccessMask: vk.AccessFlags(vk.AccessTransferReadBit),
		},
	}

	handle, err := renderpassCreate(context, attachmentDescriptions, subpass, dependencies)
	if err != nil {
		return nil, err
	}
	outRenderpass.Handle = handle
	return outRenderpass, nil
}

func renderpassCreate(context *VulkanContext, attachments []vk.AttachmentDescription, subpass vk.SubpassDescription, dependencies []vk.SubpassDependency) (vk.RenderPass, error) {
	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: uint32(len(dependencies)),
		PDependencies:   dependencies,
	}

	var pRenderPass vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &pRenderPass); res != vk.Success {
		err := fmt.Errorf("failed to create render pass with error `%s`", VulkanResultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	return pRenderPass, nil
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{
				X: int32(vr.X),
				Y: int32(vr.Y),
			},
			Extent: vk.Extent2D{
				Width:  uint32(vr.W),
				Height: uint32(vr.H),
			},
		},
	}

	clearValues := make([]vk.ClearValue, 0, vr.colorAttachmentCount+1)
	color := []float32{vr.R, vr.G, vr.B, vr.A}
	for i := uint32(0); i < vr.colorAttachmentCount; i++ {
		var clear vk.ClearValue
		clear.SetColor(color)
		clearValues = append(clearValues, clear)
	}
	if vr.hasDepth {
		var clear vk.ClearValue
		clear.SetDepthStencil(vr.Depth, vr.Stencil)
		clearValues = append(clearValues, clear)
	}

	beginInfo.ClearValueCount = uint32(len(clearValues))
	beginInfo.PClearValues = clearValues

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}

func (vr *VulkanRenderpass) RenderpassDestroy() {
	if vr.Handle != nil {
		vk.DestroyRenderPass(vr.context.Device.LogicalDevice, vr.Handle, vr.context.Allocator)
		vr.Handle = nil
	}
}
