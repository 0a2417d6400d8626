package frame

import (
	"unsafe"

	"github.com/spaghettifunk/penumbra/engine/math"
)

// CameraUniform is the single camera record of a slot's camera buffer.
type CameraUniform struct {
	View       math.Mat4
	Projection math.Mat4
}

// ModelUniform is one per-instance record of a slot's dynamic buffer.
// Records live at stride offsets, not back to back.
type ModelUniform struct {
	Model math.Mat4
}

// LightingUniform is the single record of a slot's lighting buffer.
type LightingUniform struct {
	LightDirection math.Vec4
	LightColor     math.Vec4
	AmbientLight   math.Vec4
}

const (
	CameraUniformSize   = uint64(unsafe.Sizeof(CameraUniform{}))
	ModelUniformSize    = uint64(unsafe.Sizeof(ModelUniform{}))
	LightingUniformSize = uint64(unsafe.Sizeof(LightingUniform{}))
)

func (u *CameraUniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), int(CameraUniformSize))
}

func (u *ModelUniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), int(ModelUniformSize))
}

func (u *LightingUniform) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(u)), int(LightingUniformSize))
}

// DefaultLighting is the directional light every slot's lighting buffer is
// seeded with at construction.
func DefaultLighting() LightingUniform {
	lightDir := math.NewVec3(-1.0, -1.0, -1.0).Normalized()

	return LightingUniform{
		LightDirection: lightDir.ToVec4(0.0),

		// w is intensity
		LightColor:   math.NewVec4Create(1.0, 1.0, 0.0, 2.0),
		AmbientLight: math.NewVec4Create(0.1, 0.1, 0.1, 0.2),
	}
}
