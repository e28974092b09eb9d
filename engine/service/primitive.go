package service

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// PrimitiveType is a built-in body shape.
type PrimitiveType int

const (
	PrimitiveBox PrimitiveType = iota
	PrimitiveSphere
	PrimitivePlane
	PrimitiveCapsule
	PrimitiveCylinder
)

var primitiveNames = map[string]PrimitiveType{
	"box":      PrimitiveBox,
	"sphere":   PrimitiveSphere,
	"plane":    PrimitivePlane,
	"capsule":  PrimitiveCapsule,
	"cylinder": PrimitiveCylinder,
}

// ParsePrimitiveType resolves a case-insensitive primitive name.
//
// Parameters:
//   - name: box, sphere, plane, capsule or cylinder
//
// Returns:
//   - PrimitiveType: the type
//   - error: InvalidArgument for unknown names
func ParsePrimitiveType(name string) (PrimitiveType, error) {
	if t, ok := primitiveNames[strings.ToLower(name)]; ok {
		return t, nil
	}
	return 0, status.Errorf(status.InvalidArgument, "unknown primitive type %q", name)
}

func (t PrimitiveType) String() string {
	for name, v := range primitiveNames {
		if v == t {
			return name
		}
	}
	return "unknown"
}
