package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional represents a light with no position, only direction.
	// Used for large distant sources like the sun. Affects all surfaces
	// uniformly with no distance attenuation.
	LightTypeDirectional LightType = iota

	// LightTypePoint represents a light that emits in all directions from a position.
	LightTypePoint
)

// String returns the lowercase light type name.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	default:
		return "unknown"
	}
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	id        common.ID
	lightType LightType
	position  mgl32.Vec3
	direction mgl32.Vec3
	color     mgl32.Vec3
	intensity float32
	shadow    Shadow
}

// Light defines the interface for a light source in the scene.
//
// Lights are scene-level entities that contribute to the shaded color of every
// body. Both light types share this interface; a directional light ignores its
// position for shading (the position only anchors its shadow frustum) and a
// point light ignores its direction.
//
// A light is immutable once created and may be read from any goroutine.
type Light interface {
	// ID returns the process-unique light identifier.
	//
	// Returns:
	//   - common.ID: the identifier
	ID() common.ID

	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the position
	Position() mgl32.Vec3

	// Direction returns the normalized direction the light travels in.
	//
	// Returns:
	//   - mgl32.Vec3: the direction
	Direction() mgl32.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - mgl32.Vec3: the color
	Color() mgl32.Vec3

	// Intensity returns the scalar intensity multiplier.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// Shadow returns the shadow parameters stored for this light.
	//
	// Returns:
	//   - Shadow: the shadow parameters
	Shadow() Shadow

	// Irradiance returns the Lambertian contribution of this light at a world-space surface point.
	//
	// Parameters:
	//   - point: the surface position
	//   - normal: the unit surface normal
	//
	// Returns:
	//   - mgl32.Vec3: the RGB contribution, zero when the surface faces away
	Irradiance(point, normal mgl32.Vec3) mgl32.Vec3
}

var _ Light = &lightImpl{}

// NewLight creates a new Light of the specified type with the provided options applied.
// A fresh identifier is assigned.
//
// Parameters:
//   - lightType: the kind of light to create (directional or point)
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		id:        common.NextID(),
		lightType: lightType,
		direction: mgl32.Vec3{0, -1, 0},
		color:     mgl32.Vec3{1, 1, 1},
		intensity: 1.0,
		shadow:    DefaultShadow(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) ID() common.ID {
	return l.id
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() mgl32.Vec3 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Shadow() Shadow {
	return l.shadow
}

func (l *lightImpl) Irradiance(point, normal mgl32.Vec3) mgl32.Vec3 {
	var toLight mgl32.Vec3
	switch l.lightType {
	case LightTypePoint:
		toLight = l.position.Sub(point)
		if toLight.Len() == 0 {
			return mgl32.Vec3{}
		}
		toLight = toLight.Normalize()
	default:
		toLight = l.direction.Mul(-1)
	}
	lambert := normal.Dot(toLight)
	if lambert <= 0 {
		return mgl32.Vec3{}
	}
	return l.color.Mul(lambert * l.intensity)
}
