package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/assets"
	"github.com/spaghettifunk/penumbra/engine/core"
	"github.com/spaghettifunk/penumbra/engine/renderer/frame"
)

/**
 * @brief Backend implements frame.Device on top of the Vulkan context.
 * Beyond the factory methods the frame ring consumes, it owns the two
 * renderpasses, the descriptor pool, and one framebuffer pair per ring
 * slot, and it records and submits the demo's command buffers.
 */
type Backend struct {
	context *VulkanContext
	catalog *assets.ShaderCatalog

	width  uint32
	height uint32

	GeometryRenderpass *VulkanRenderpass
	LightingRenderpass *VulkanRenderpass

	descriptorPool *VulkanDescriptorPool

	// Framebuffers are built on first RecordFrame for a slot: they need the
	// slot's image views, which do not exist until the ring is constructed.
	framebuffers map[uint32]*slotFramebuffers
}

type slotFramebuffers struct {
	geometry *VulkanFramebuffer
	lighting *VulkanFramebuffer
}

func NewBackend(context *VulkanContext, catalog *assets.ShaderCatalog, width, height, frameCount uint32) (*Backend, error) {
	backend := &Backend{
		context:      context,
		catalog:      catalog,
		width:        width,
		height:       height,
		framebuffers: make(map[uint32]*slotFramebuffers),
	}

	var err error
	backend.GeometryRenderpass, err = GeometryRenderpassCreate(context, 0, 0, float32(width), float32(height), 0.0, 0.0, 0.2, 1.0, 1.0, 0)
	if err != nil {
		return nil, err
	}
	backend.LightingRenderpass, err = LightingRenderpassCreate(context, 0, 0, float32(width), float32(height), 0.0, 0.0, 0.0, 1.0)
	if err != nil {
		return nil, err
	}

	backend.descriptorPool, err = NewDescriptorPool(context, frameCount)
	if err != nil {
		return nil, err
	}

	core.LogInfo("Vulkan backend ready: %dx%d render target, %d frame slots", width, height, frameCount)
	return backend, nil
}

// MinUniformBufferOffsetAlignment reports the device limit the frame ring
// uses to compute the dynamic uniform buffer stride.
func (vb *Backend) MinUniformBufferOffsetAlignment() uint64 {
	return uint64(vb.context.Device.Properties.Limits.MinUniformBufferOffsetAlignment)
}

func (vb *Backend) AllocateCommandBuffers(count uint32) ([]frame.CommandBuffer, error) {
	commandBuffers, err := AllocateCommandBuffers(vb.context, vb.context.Device.GraphicsCommandPool, count)
	if err != nil {
		return nil, err
	}
	out := make([]frame.CommandBuffer, len(commandBuffers))
	for i, cb := range commandBuffers {
		out[i] = cb
	}
	return out, nil
}

func (vb *Backend) CreateFence(signaled bool) (frame.Fence, error) {
	return NewFence(vb.context, signaled)
}

func (vb *Backend) CreateSemaphore() (frame.Semaphore, error) {
	return NewSemaphore(vb.context)
}

func (vb *Backend) CreateBuffer(size uint64, usage frame.BufferUsage, memory frame.MemoryFlags) (frame.Buffer, error) {
	return NewBuffer(vb.context, size, bufferUsageFlags(usage), memoryPropertyFlags(memory))
}

func (vb *Backend) CreateImage(opts frame.ImageOptions) (frame.Image, error) {
	format, err := imageFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	return NewImage(vb.context, opts.Width, opts.Height, format, imageUsageFlags(opts.Usage), memoryPropertyFlags(opts.Memory))
}

func (vb *Backend) CreateSampler() (frame.Sampler, error) {
	return NewSampler(vb.context)
}

func (vb *Backend) AllocateDescriptorSet(kind frame.DescriptorSetKind) (frame.DescriptorSet, error) {
	return vb.descriptorPool.Allocate(kind)
}

func (vb *Backend) UpdateDescriptorSets(writes []frame.DescriptorWrite) error {
	return vb.descriptorPool.Update(writes)
}

// CreatePipeline assembles one of the two shared pipelines. Shader modules
// are built from catalog bytecode and destroyed again once the pipeline
// holds its own copy.
func (vb *Backend) CreatePipeline(pass frame.PassKind) (frame.Pipeline, error) {
	name := shaderBaseName(pass)

	vertCode, err := vb.catalog.Load(name + ".vert")
	if err != nil {
		return nil, err
	}
	fragCode, err := vb.catalog.Load(name + ".frag")
	if err != nil {
		return nil, err
	}

	vertStage, err := NewShaderModule(vb.context, vertCode, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	defer vertStage.Destroy()

	fragStage, err := NewShaderModule(vb.context, fragCode, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	defer fragStage.Destroy()

	config := &VulkanPipelineConfig{
		Stages: []vk.PipelineShaderStageCreateInfo{
			vertStage.ShaderStageCreateInfo,
			fragStage.ShaderStageCreateInfo,
		},
		Viewport: vk.Viewport{
			X:        0.0,
			Y:        0.0,
			Width:    float32(vb.width),
			Height:   float32(vb.height),
			MinDepth: 0.0,
			MaxDepth: 1.0,
		},
		Scissor: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: vb.width, Height: vb.height},
		},
	}

	switch pass {
	case frame.PassGeometry:
		config.Renderpass = vb.GeometryRenderpass
		config.Stride = Vertex3DStride
		config.Attributes = Vertex3DAttributes()
		config.DescriptorSetLayouts = []vk.DescriptorSetLayout{vb.descriptorPool.GBufferLayout}
		config.ColorAttachmentCount = 2
		config.DepthTest = true
	case frame.PassLighting:
		config.Renderpass = vb.LightingRenderpass
		config.DescriptorSetLayouts = []vk.DescriptorSetLayout{vb.descriptorPool.LightingLayout}
		config.ColorAttachmentCount = 1
	default:
		return nil, fmt.Errorf("unknown pass kind %d", pass)
	}

	return NewGraphicsPipeline(vb.context, pass, config)
}

// CreateVertexBuffer uploads vertices into a host visible buffer the
// geometry pass can bind. The demo scene is small enough that device local
// memory plus a staging hop would buy nothing.
func (vb *Backend) CreateVertexBuffer(vertices []Vertex3D) (*VulkanBuffer, error) {
	if len(vertices) == 0 {
		return nil, errors.New("vertex buffer needs at least one vertex")
	}
	size := uint64(len(vertices)) * uint64(Vertex3DStride)

	buffer, err := NewBuffer(vb.context, size,
		vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), int(size))
	if err := buffer.Write(data, 0); err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

// RecordFrame records both passes of the deferred pipeline into the current
// slot's command buffer: instanceCount dynamic-offset draws of the mesh
// into the gbuffer, then the fullscreen composition into the draw image.
// The slot must be ready; nothing here touches the queue.
func (vb *Backend) RecordFrame(fm *frame.FrameManager, mesh *VulkanBuffer, vertexCount, instanceCount uint32) error {
	fd := fm.Current()

	commandBuffer, ok := fd.CommandBuffer().(*VulkanCommandBuffer)
	if !ok {
		return errors.New("command buffer was not allocated by this backend")
	}
	gbufferPipeline, ok := fm.Pipeline(frame.PassGeometry).(*VulkanPipeline)
	if !ok {
		return errors.New("gbuffer pipeline was not created by this backend")
	}
	lightingPipeline, ok := fm.Pipeline(frame.PassLighting).(*VulkanPipeline)
	if !ok {
		return errors.New("lighting pipeline was not created by this backend")
	}
	gbufferSet, ok := fd.GBufferSet().(*VulkanDescriptorSet)
	if !ok {
		return errors.New("gbuffer descriptor set was not allocated by this backend")
	}
	lightingSet, ok := fd.LightingSet().(*VulkanDescriptorSet)
	if !ok {
		return errors.New("lighting descriptor set was not allocated by this backend")
	}

	if uint64(instanceCount)*fm.Stride() > fd.ModelBuffer().Size() {
		return fmt.Errorf("%d instances exceed the model buffer of slot %d", instanceCount, fd.Index())
	}

	framebuffers, err := vb.slotFramebuffers(fd)
	if err != nil {
		return err
	}

	commandBuffer.Reset()
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}

	// Dynamic state
	viewport := vk.Viewport{
		X:        0.0,
		Y:        0.0,
		Width:    float32(vb.width),
		Height:   float32(vb.height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: vk.Extent2D{Width: vb.width, Height: vb.height},
	}
	vk.CmdSetViewport(commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})

	// Geometry pass: fill the gbuffer.
	vb.GeometryRenderpass.RenderpassBegin(commandBuffer, framebuffers.geometry.Handle)
	if mesh != nil && vertexCount > 0 {
		gbufferPipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
		vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{mesh.Handle}, []vk.DeviceSize{0})
		for i := uint32(0); i < instanceCount; i++ {
			// One dynamic offset per instance selects its model record.
			offset := uint32(uint64(i) * fm.Stride())
			vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics,
				gbufferPipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{gbufferSet.Handle}, 1, []uint32{offset})
			vk.CmdDraw(commandBuffer.Handle, vertexCount, 1, 0, 0)
		}
	}
	vb.GeometryRenderpass.RenderpassEnd(commandBuffer)

	// Lighting pass: compose the gbuffer into the draw image with a
	// fullscreen triangle generated in the vertex shader.
	vb.LightingRenderpass.RenderpassBegin(commandBuffer, framebuffers.lighting.Handle)
	lightingPipeline.Bind(commandBuffer, vk.PipelineBindPointGraphics)
	vk.CmdBindDescriptorSets(commandBuffer.Handle, vk.PipelineBindPointGraphics,
		lightingPipeline.PipelineLayout, 0, 1, []vk.DescriptorSet{lightingSet.Handle}, 0, nil)
	vk.CmdDraw(commandBuffer.Handle, 3, 1, 0, 0)
	vb.LightingRenderpass.RenderpassEnd(commandBuffer)

	return commandBuffer.End()
}

// Submit hands the slot's recorded commands to the graphics queue, paired
// with the slot's fence. Nothing waits on the per-slot semaphores without a
// presentation engine, so none are attached; completion is observed through
// the fence alone.
func (vb *Backend) Submit(fd *frame.FrameData) error {
	commandBuffer, ok := fd.CommandBuffer().(*VulkanCommandBuffer)
	if !ok {
		return errors.New("command buffer was not allocated by this backend")
	}
	fence, ok := fd.Fence().(*VulkanFence)
	if !ok {
		return errors.New("fence was not created by this backend")
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{commandBuffer.Handle},
	}

	if result := vk.QueueSubmit(vb.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle); result != vk.Success {
		err := fmt.Errorf("vkQueueSubmit failed with result: %s", VulkanResultString(result))
		core.LogError(err.Error())
		return err
	}

	commandBuffer.UpdateSubmitted()
	return nil
}

func (vb *Backend) WaitIdle() error {
	return vb.context.WaitIdle()
}

// slotFramebuffers returns the framebuffer pair for a slot, building it from
// the slot's image views on first use.
func (vb *Backend) slotFramebuffers(fd *frame.FrameData) (*slotFramebuffers, error) {
	if framebuffers, ok := vb.framebuffers[fd.Index()]; ok {
		return framebuffers, nil
	}

	albedo, ok := fd.AlbedoImage().(*VulkanImage)
	if !ok {
		return nil, errors.New("albedo image was not created by this backend")
	}
	normal, ok := fd.NormalImage().(*VulkanImage)
	if !ok {
		return nil, errors.New("normal image was not created by this backend")
	}
	depth, ok := fd.DepthImage().(*VulkanImage)
	if !ok {
		return nil, errors.New("depth image was not created by this backend")
	}
	draw, ok := fd.DrawImage().(*VulkanImage)
	if !ok {
		return nil, errors.New("draw image was not created by this backend")
	}

	// Attachment order matches the renderpass declarations.
	geometry, err := FramebufferCreate(vb.context, vb.GeometryRenderpass, vb.width, vb.height,
		[]vk.ImageView{albedo.View, normal.View, depth.View})
	if err != nil {
		return nil, err
	}
	lighting, err := FramebufferCreate(vb.context, vb.LightingRenderpass, vb.width, vb.height,
		[]vk.ImageView{draw.View})
	if err != nil {
		geometry.Destroy()
		return nil, err
	}

	framebuffers := &slotFramebuffers{geometry: geometry, lighting: lighting}
	vb.framebuffers[fd.Index()] = framebuffers
	return framebuffers, nil
}

// Destroy tears down everything the backend owns. The frame ring must be
// destroyed first and the device idle.
func (vb *Backend) Destroy() {
	for _, framebuffers := range vb.framebuffers {
		framebuffers.geometry.Destroy()
		framebuffers.lighting.Destroy()
	}
	vb.framebuffers = nil

	if vb.descriptorPool != nil {
		vb.descriptorPool.Destroy()
		vb.descriptorPool = nil
	}
	if vb.LightingRenderpass != nil {
		vb.LightingRenderpass.RenderpassDestroy()
		vb.LightingRenderpass = nil
	}
	if vb.GeometryRenderpass != nil {
		vb.GeometryRenderpass.RenderpassDestroy()
		vb.GeometryRenderpass = nil
	}
}

// shaderBaseName maps a pass to the logical shader name the catalog serves.
// The geometry pass keeps the gbuffer name its shaders are written under.
func shaderBaseName(pass frame.PassKind) string {
	if pass == frame.PassGeometry {
		return "gbuffer"
	}
	return "lighting"
}

func bufferUsageFlags(usage frame.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlags
	if usage&frame.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if usage&frame.BufferUsageTransferSrc != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit)
	}
	if usage&frame.BufferUsageTransferDst != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageTransferDstBit)
	}
	return flags
}

func memoryPropertyFlags(memory frame.MemoryFlags) vk.MemoryPropertyFlags {
	var flags vk.MemoryPropertyFlags
	if memory&frame.MemoryDeviceLocal != 0 {
		flags |= vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	}
	if memory&frame.MemoryHostVisible != 0 {
		flags |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)
	}
	if memory&frame.MemoryHostCoherent != 0 {
		flags |= vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit)
	}
	return flags
}

func imageUsageFlags(usage frame.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage&frame.ImageUsageTransferSrc != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit)
	}
	if usage&frame.ImageUsageTransferDst != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	if usage&frame.ImageUsageStorage != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	if usage&frame.ImageUsageColorAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if usage&frame.ImageUsageDepthAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if usage&frame.ImageUsageSampled != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	return flags
}

func imageFormat(format frame.ImageFormat) (vk.Format, error) {
	switch format {
	case frame.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat, nil
	case frame.FormatRGBA16SNorm:
		return vk.FormatR16g16b16a16Snorm, nil
	case frame.FormatD32Float:
		return vk.FormatD32Sfloat, nil
	}
	return vk.FormatUndefined, fmt.Errorf("unsupported image format %d", format)
}
