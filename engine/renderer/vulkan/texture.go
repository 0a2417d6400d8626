package vulkan

import (
	"errors"
	"image"

	vk "github.com/goki/vulkan"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"github.com/spaghettifunk/penumbra/engine/core"
)

/**
 * @brief A sampled texture in device local memory, uploaded once through a
 * staging buffer. It is bound read-only into every frame slot and never
 * written again after the upload completes.
 */
type VulkanTexture struct {
	context *VulkanContext

	/** @brief The generated name of the texture. */
	Name string
	/** @brief The image backing the texture. */
	Image *VulkanImage
	/** @brief The sampler the shaders read the texture through. */
	Sampler *VulkanSampler
}

// NewTextureFromImage converts pixels to 8-bit RGBA and uploads them to a
// device local image in the shader read-only layout.
func NewTextureFromImage(context *VulkanContext, pixels image.Image) (*VulkanTexture, error) {
	bounds := pixels.Bounds()
	width := uint32(bounds.Dx())
	height := uint32(bounds.Dy())
	if width == 0 || height == 0 {
		err := errors.New("texture source image is empty")
		core.LogError(err.Error())
		return nil, err
	}

	rgba := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	xdraw.Copy(rgba, image.Point{}, pixels, bounds, xdraw.Src, nil)

	staging, err := NewBuffer(context,
		uint64(len(rgba.Pix)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit)|vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err := staging.Write(rgba.Pix, 0); err != nil {
		return nil, err
	}

	img, err := NewImage(context, width, height,
		vk.FormatR8g8b8a8Unorm,
		vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)|vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}

	if err := img.Transition(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		img.Destroy()
		return nil, err
	}
	if err := img.CopyFromBuffer(staging); err != nil {
		img.Destroy()
		return nil, err
	}
	if err := img.Transition(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal); err != nil {
		img.Destroy()
		return nil, err
	}

	sampler, err := NewSampler(context)
	if err != nil {
		img.Destroy()
		return nil, err
	}

	// Generate a UUID to act as the texture name.
	textureNameUUID := uuid.New()

	texture := &VulkanTexture{
		context: context,
		Name:    textureNameUUID.String(),
		Image:   img,
		Sampler: sampler,
	}
	core.LogDebug("texture %s uploaded (%dx%d)", texture.Name, width, height)

	return texture, nil
}

// NewCheckerTexture uploads a dim x dim blue/white checkerboard.
// The pattern is generated in code to eliminate asset dependencies: a 16x16
// base is drawn pixel by pixel and scaled up so each cell covers dim/16
// texels.
func NewCheckerTexture(context *VulkanContext, dim uint32) (*VulkanTexture, error) {
	const baseDim = 16

	base := image.NewRGBA(image.Rect(0, 0, baseDim, baseDim))
	for row := 0; row < baseDim; row++ {
		for col := 0; col < baseDim; col++ {
			offset := (row*baseDim + col) * 4
			base.Pix[offset+0] = 255
			base.Pix[offset+1] = 255
			base.Pix[offset+2] = 255
			base.Pix[offset+3] = 255
			// Zero out red and green on alternating cells, leaving blue.
			if row%2 != 0 {
				if col%2 != 0 {
					base.Pix[offset+0] = 0
					base.Pix[offset+1] = 0
				}
			} else {
				if col%2 == 0 {
					base.Pix[offset+0] = 0
					base.Pix[offset+1] = 0
				}
			}
		}
	}

	if dim < baseDim {
		dim = baseDim
	}
	scaled := image.NewRGBA(image.Rect(0, 0, int(dim), int(dim)))
	xdraw.NearestNeighbor.Scale(scaled, scaled.Bounds(), base, base.Bounds(), xdraw.Src, nil)

	return NewTextureFromImage(context, scaled)
}

func (texture *VulkanTexture) Destroy() {
	if texture.Sampler != nil {
		texture.Sampler.Destroy()
		texture.Sampler = nil
	}
	if texture.Image != nil {
		texture.Image.Destroy()
		texture.Image = nil
	}
}
