// package common contains common types that are used throughout the render server. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// ImportedMaterial represents material properties from an imported model file.
type ImportedMaterial struct {
	// Name is the material identifier.
	Name string

	// BaseColor is the albedo/diffuse color (RGBA).
	BaseColor [4]float32

	// Metallic factor (0.0 = dielectric, 1.0 = metal).
	Metallic float32

	// Roughness factor (0.0 = smooth, 1.0 = rough).
	Roughness float32

	// Specular is the specular/fresnel strength; negative means "use the material default".
	Specular float32
}

// DefaultImportedMaterial returns the material used for geometry that references no material.
//
// Returns:
//   - ImportedMaterial: white, rough, dielectric
func DefaultImportedMaterial() ImportedMaterial {
	return ImportedMaterial{
		Name:      "default",
		BaseColor: [4]float32{1, 1, 1, 1},
		Metallic:  0,
		Roughness: 1,
		Specular:  -1,
	}
}
