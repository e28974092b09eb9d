package light

import (
	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - position: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(position [3]float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = mgl32.Vec3(position)
	}
}

// WithDirection is an option builder that sets the direction of the light.
// The direction is normalized before storing; a zero direction keeps the default.
//
// Parameters:
//   - direction: the direction the light travels in
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(direction [3]float32) LightBuilderOption {
	return func(l *lightImpl) {
		d := mgl32.Vec3(direction)
		if d.Len() > 0 {
			l.direction = d.Normalize()
		}
	}
}

// WithColor is an option builder that sets the RGB color of the light.
//
// Parameters:
//   - color: the color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(color [3]float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = mgl32.Vec3(color)
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithShadow is an option builder that sets the shadow parameters.
// Zero projection fields keep their defaults.
//
// Parameters:
//   - shadow: the shadow parameters
//
// Returns:
//   - LightBuilderOption: a function that applies the shadow option to a lightImpl
func WithShadow(shadow Shadow) LightBuilderOption {
	return func(l *lightImpl) {
		def := DefaultShadow()
		shadow.Near = common.Coalesce(shadow.Near, def.Near)
		shadow.Far = common.Coalesce(shadow.Far, def.Far)
		shadow.MapSize = common.Coalesce(shadow.MapSize, def.MapSize)
		shadow.Scale = common.Coalesce(shadow.Scale, def.Scale)
		l.shadow = shadow
	}
}
