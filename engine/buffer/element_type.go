package buffer

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-render/engine/status"
)

// ElementType is an array-interface element type such as "<f4" or "<i4":
// byte order, kind and element byte size.
type ElementType struct {
	ByteOrder binary.ByteOrder
	Kind      byte
	Size      int
}

var validSizes = map[byte][]int{
	'f': {2, 4, 8},
	'i': {1, 2, 4, 8},
	'u': {1, 2, 4, 8},
}

// ParseType parses an element type string. The first character is the byte
// order ('<' little, '>' big), the second the kind ('f' float, 'i' signed,
// 'u' unsigned) and the rest the byte size.
//
// Parameters:
//   - s: the type string
//
// Returns:
//   - ElementType: the parsed type
//   - error: InvalidArgument for malformed or unsupported types
func ParseType(s string) (ElementType, error) {
	if len(s) < 3 {
		return ElementType{}, status.Errorf(status.InvalidArgument, "invalid buffer type %q", s)
	}
	var t ElementType
	switch s[0] {
	case '<':
		t.ByteOrder = binary.LittleEndian
	case '>':
		t.ByteOrder = binary.BigEndian
	default:
		return ElementType{}, status.Errorf(status.InvalidArgument, "invalid byte order in buffer type %q", s)
	}

	sizes, ok := validSizes[s[1]]
	if !ok {
		return ElementType{}, status.Errorf(status.InvalidArgument, "invalid kind in buffer type %q", s)
	}
	t.Kind = s[1]

	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return ElementType{}, status.Errorf(status.InvalidArgument, "invalid size in buffer type %q", s)
	}
	for _, v := range sizes {
		if v == size {
			t.Size = size
			return t, nil
		}
	}
	return ElementType{}, status.Errorf(status.InvalidArgument, "unsupported size %d for kind %q", size, t.Kind)
}

// String formats the type back into its type string.
func (t ElementType) String() string {
	order := '<'
	if t.ByteOrder == binary.BigEndian {
		order = '>'
	}
	return fmt.Sprintf("%c%c%d", order, t.Kind, t.Size)
}
