package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/penumbra/engine/math"
)

/**
 * @brief A single geometry pass vertex: position, normal and texture
 * coordinates, tightly packed.
 */
type Vertex3D struct {
	Position math.Vec3
	Normal   math.Vec3
	Texcoord math.Vec2
}

/** @brief The stride of one Vertex3D in a vertex buffer. */
var Vertex3DStride = uint32(unsafe.Sizeof(Vertex3D{}))

/**
 * @brief Describes Vertex3D to a pipeline: position at location 0, normal
 * at location 1, texture coordinates at location 2, all on binding 0.
 */
func Vertex3DAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{
			Location: 0,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex3D{}.Position)),
		},
		{
			Location: 1,
			Binding:  0,
			Format:   vk.FormatR32g32b32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex3D{}.Normal)),
		},
		{
			Location: 2,
			Binding:  0,
			Format:   vk.FormatR32g32Sfloat,
			Offset:   uint32(unsafe.Offsetof(Vertex3D{}.Texcoord)),
		},
	}
}
