package components

import (
	"github.com/spaghettifunk/penumbra/engine/math"
)

/**
 * @brief Represents a camera aimed at a fixed target, used to fill the
 * per-frame camera uniform. The view matrix is rebuilt lazily when position
 * or target change.
 */
type Camera struct {
	/**
	 * @brief The position of this camera.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/**
	 * @brief The point the camera looks at.
	 * NOTE: Do not set this directly, use SetTarget() instead
	 * so the view matrix is recalculated when needed.
	 */
	Target math.Vec3
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: IMPORTANT: Do not get this directly, use GetView() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix math.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Position = math.NewVec3(0.0, 0.0, 5.0)
	c.Target = math.NewVec3Zero()
	c.IsDirty = true
	c.ViewMatrix = math.NewMat4Identity()
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera) GetTarget() math.Vec3 {
	return c.Target
}

func (c *Camera) SetTarget(target math.Vec3) {
	c.Target = target
	c.IsDirty = true
}

// Orbit places the camera on a circle of the given radius around the
// target, at the given height, angle radians around the Y axis.
func (c *Camera) Orbit(radius, height, angle float32) {
	c.Position = math.NewVec3(
		c.Target.X+radius*math.Sin(angle),
		c.Target.Y+height,
		c.Target.Z+radius*math.Cos(angle),
	)
	c.IsDirty = true
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		c.ViewMatrix = math.NewMat4LookAt(c.Position, c.Target, math.NewVec3Up())
		c.IsDirty = false
	}
	return c.ViewMatrix
}
