package material

import "github.com/Carmen-Shannon/oxy-render/common"

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo/diffuse RGBA color of the material.
//
// Parameters:
//   - color: the base color as RGBA float32 values
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color [4]float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor (0.0 = smooth, 1.0 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = roughness
	}
}

// WithSpecular is an option builder that sets the specular factor of the material.
//
// Parameters:
//   - specular: the specular factor
//
// Returns:
//   - MaterialBuilderOption: a function that applies the specular option to a material
func WithSpecular(specular float32) MaterialBuilderOption {
	return func(m *material) {
		m.specular = specular
	}
}

// FromImported builds the options that reproduce an imported material.
// A negative imported specular keeps the material default.
//
// Parameters:
//   - imp: the imported material
//
// Returns:
//   - []MaterialBuilderOption: the options to pass to NewMaterial
func FromImported(imp common.ImportedMaterial) []MaterialBuilderOption {
	opts := []MaterialBuilderOption{
		WithName(imp.Name),
		WithBaseColor(imp.BaseColor),
		WithMetallic(imp.Metallic),
		WithRoughness(imp.Roughness),
	}
	if imp.Specular >= 0 {
		opts = append(opts, WithSpecular(imp.Specular))
	}
	return opts
}
