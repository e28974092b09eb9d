package renderer

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// Target identifies one per-pixel output of a render.
type Target int

const (
	// TargetColor is the shaded RGBA color, float32 per channel.
	TargetColor Target = iota

	// TargetPosition is the camera-space position of the visible surface, float32 per channel.
	// The fourth channel is 1 where a surface was hit and 0 elsewhere.
	TargetPosition

	// TargetSegmentation holds the two segmentation labels of the visible body, int32 per channel.
	TargetSegmentation
)

// TargetChannels is the channel count of every target.
const TargetChannels = 4

// TargetElemSize is the byte size of one channel of every target.
const TargetElemSize = 4

// AllTargets lists every target in declaration order.
var AllTargets = []Target{TargetColor, TargetPosition, TargetSegmentation}

// ParseTarget resolves a target name. Lowercase and capitalized names are accepted.
//
// Parameters:
//   - name: the target name (color, position or segmentation)
//
// Returns:
//   - Target: the target
//   - error: InvalidArgument for unknown names
func ParseTarget(name string) (Target, error) {
	switch name {
	case "color", "Color":
		return TargetColor, nil
	case "position", "Position":
		return TargetPosition, nil
	case "segmentation", "Segmentation":
		return TargetSegmentation, nil
	}
	return 0, status.Errorf(status.InvalidArgument, "unknown render target %q", name)
}

// String returns the capitalized target name.
func (t Target) String() string {
	switch t {
	case TargetColor:
		return "Color"
	case TargetPosition:
		return "Position"
	case TargetSegmentation:
		return "Segmentation"
	}
	return "Unknown"
}

// TypeString returns the array-interface type string of the target's channels.
func (t Target) TypeString() string {
	if t == TargetSegmentation {
		return "<i4"
	}
	return "<f4"
}

// Label returns the lowercase name used for buffer labels.
func (t Target) Label() string {
	return strings.ToLower(t.String())
}
