package light

import "github.com/go-gl/mathgl/mgl32"

// DefaultShadowMapSize is the default width and height in texels of a shadow depth texture.
const DefaultShadowMapSize = 2048

// DefaultShadowScale is the default orthographic half-extent (in world units)
// used for the directional light shadow frustum.
const DefaultShadowScale float32 = 40.0

// DefaultShadowNear is the default near plane of a shadow projection.
const DefaultShadowNear float32 = 0.1

// DefaultShadowFar is the default far plane of a shadow projection.
const DefaultShadowFar float32 = 200.0

// Shadow holds the shadow-casting parameters of a light. They are stored and reported
// but no shadow maps are rendered.
type Shadow struct {
	Enabled bool
	Near    float32
	Far     float32
	MapSize int

	// Position anchors a directional light's shadow frustum.
	Position mgl32.Vec3

	// Scale is a directional light's orthographic half-extent.
	Scale float32
}

// DefaultShadow returns disabled shadow parameters with default projection values.
//
// Returns:
//   - Shadow: the defaults
func DefaultShadow() Shadow {
	return Shadow{
		Near:    DefaultShadowNear,
		Far:     DefaultShadowFar,
		MapSize: DefaultShadowMapSize,
		Scale:   DefaultShadowScale,
	}
}
